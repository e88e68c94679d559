// ABOUTME: Workspace and project operations of the hierarchy service
// ABOUTME: Both entities are admin-managed, reads carry no access check

package hierarchy

import (
	"context"

	"github.com/2389/trellis/internal/access"
	"github.com/2389/trellis/internal/apperr"
	"github.com/2389/trellis/internal/store"
)

// CreateWorkspace creates a workspace. Admin only.
func (s *Service) CreateWorkspace(ctx context.Context, a access.Actor, in CreateWorkspaceInput) (*store.WorkspaceView, error) {
	if err := access.RequireRole(a.Role, "Only admins can create workspaces", store.RoleAdmin); err != nil {
		return nil, err
	}
	if err := in.Validate().Err(); err != nil {
		return nil, err
	}

	w := &store.Workspace{Name: in.Name, Description: in.Description, CreatedBy: a.UserID}
	if err := s.store.CreateWorkspace(ctx, w); err != nil {
		return nil, translate(err, "Workspace", w.ID, "create")
	}
	s.logger.Info("workspace created", "workspace_id", w.ID, "user_id", a.UserID)
	return s.GetWorkspace(ctx, w.ID)
}

// GetWorkspace returns a hydrated workspace.
func (s *Service) GetWorkspace(ctx context.Context, id string) (*store.WorkspaceView, error) {
	w, err := s.store.GetWorkspace(ctx, id)
	if err != nil {
		return nil, translate(err, "Workspace", id, "fetch")
	}
	return w, nil
}

// ListWorkspaces pages through workspaces, newest first. Search matches name.
func (s *Service) ListWorkspaces(ctx context.Context, p ListParams) (*store.Page[store.WorkspaceView], error) {
	page, err := s.store.ListWorkspaces(ctx, normalize(p))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to fetch workspaces")
	}
	return page, nil
}

// UpdateWorkspace applies a partial update. Admin only.
func (s *Service) UpdateWorkspace(ctx context.Context, a access.Actor, id string, in UpdateWorkspaceInput) (*store.WorkspaceView, error) {
	if err := access.RequireRole(a.Role, "Only admins can update workspaces", store.RoleAdmin); err != nil {
		return nil, err
	}
	if err := in.Validate().Err(); err != nil {
		return nil, err
	}
	if err := s.check(ctx, a, access.Target{}, access.Write); err != nil {
		return nil, err
	}

	cur, err := s.GetWorkspace(ctx, id)
	if err != nil {
		return nil, err
	}
	w := cur.Workspace
	if in.Name != nil {
		w.Name = *in.Name
	}
	if in.Description != nil {
		w.Description = *in.Description
	}
	if err := s.store.UpdateWorkspace(ctx, &w); err != nil {
		return nil, translate(err, "Workspace", id, "update")
	}
	return s.GetWorkspace(ctx, id)
}

// DeleteWorkspace removes a workspace and everything below it. Admin only.
func (s *Service) DeleteWorkspace(ctx context.Context, a access.Actor, id string) error {
	if err := access.RequireRole(a.Role, "Only admins can delete workspaces", store.RoleAdmin); err != nil {
		return err
	}
	if err := s.check(ctx, a, access.Target{}, access.Delete); err != nil {
		return err
	}
	if err := s.store.DeleteWorkspace(ctx, id); err != nil {
		return translate(err, "Workspace", id, "delete")
	}
	s.logger.Info("workspace deleted", "workspace_id", id, "user_id", a.UserID)
	return nil
}

// CreateProject creates a project inside an existing workspace. Admin only.
func (s *Service) CreateProject(ctx context.Context, a access.Actor, in CreateProjectInput) (*store.ProjectView, error) {
	if err := access.RequireRole(a.Role, "Only admins can create projects", store.RoleAdmin); err != nil {
		return nil, err
	}
	if err := in.Validate().Err(); err != nil {
		return nil, err
	}
	if _, err := s.GetWorkspace(ctx, in.WorkspaceID); err != nil {
		return nil, err
	}

	p := &store.Project{
		WorkspaceID: in.WorkspaceID,
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		CreatedBy:   a.UserID,
	}
	if err := s.store.CreateProject(ctx, p); err != nil {
		return nil, translate(err, "Project", p.ID, "create")
	}
	s.logger.Info("project created", "project_id", p.ID, "workspace_id", p.WorkspaceID)
	return s.GetProject(ctx, p.ID)
}

// GetProject returns a hydrated project.
func (s *Service) GetProject(ctx context.Context, id string) (*store.ProjectView, error) {
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return nil, translate(err, "Project", id, "fetch")
	}
	return p, nil
}

// ListProjects pages through projects, newest first. WorkspaceID narrows the
// listing to one workspace.
func (s *Service) ListProjects(ctx context.Context, p ListParams) (*store.Page[store.ProjectView], error) {
	if err := validateStatus(p.Status, func(v string) bool { return store.ProjectStatus(v).Valid() },
		"must be one of active, archived"); err != nil {
		return nil, err
	}
	page, err := s.store.ListProjects(ctx, normalize(p))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to fetch projects")
	}
	return page, nil
}

// UpdateProject applies a partial update. The workspace cannot change.
func (s *Service) UpdateProject(ctx context.Context, a access.Actor, id string, in UpdateProjectInput) (*store.ProjectView, error) {
	if err := access.RequireRole(a.Role, "Only admins can update projects", store.RoleAdmin); err != nil {
		return nil, err
	}
	if err := in.Validate().Err(); err != nil {
		return nil, err
	}
	if err := s.check(ctx, a, access.Target{ProjectID: id}, access.Write); err != nil {
		return nil, err
	}

	cur, err := s.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	p := cur.Project
	if in.Title != nil {
		p.Title = *in.Title
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Status != nil {
		p.Status = *in.Status
	}
	if err := s.store.UpdateProject(ctx, &p); err != nil {
		return nil, translate(err, "Project", id, "update")
	}
	return s.GetProject(ctx, id)
}

// DeleteProject removes a project, its boards and its team-lead assignments.
func (s *Service) DeleteProject(ctx context.Context, a access.Actor, id string) error {
	if err := access.RequireRole(a.Role, "Only admins can delete projects", store.RoleAdmin); err != nil {
		return err
	}
	if err := s.check(ctx, a, access.Target{ProjectID: id}, access.Delete); err != nil {
		return err
	}
	if err := s.store.DeleteProject(ctx, id); err != nil {
		return translate(err, "Project", id, "delete")
	}
	s.logger.Info("project deleted", "project_id", id, "user_id", a.UserID)
	return nil
}
