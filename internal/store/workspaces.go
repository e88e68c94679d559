// ABOUTME: Workspace and project persistence
// ABOUTME: Reads hydrate the creator and, for projects, the parent workspace

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

type workspaceRow struct {
	ID          string `db:"id"`
	Name        string `db:"name"`
	Description string `db:"description"`
	CreatedBy   string `db:"created_by"`
	timestamps
	creatorRow
}

func (r *workspaceRow) view() (*WorkspaceView, error) {
	v := &WorkspaceView{
		Workspace: Workspace{
			ID:          r.ID,
			Name:        r.Name,
			Description: r.Description,
			CreatedBy:   r.CreatedBy,
		},
		Creator: r.creatorRow.ref(),
	}
	var err error
	if v.CreatedAt, v.UpdatedAt, err = r.parse(); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *SQLStore) workspaceSelect() sq.SelectBuilder {
	cols := append([]string{"w.id", "w.name", "w.description", "w.created_by", "w.created_at", "w.updated_at"}, creatorColumns...)
	return s.sb.Select(cols...).From("workspaces w").LeftJoin("users cu ON cu.id = w.created_by")
}

// CreateWorkspace inserts a workspace.
func (s *SQLStore) CreateWorkspace(ctx context.Context, w *Workspace) error {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	w.CreatedAt, w.UpdatedAt = now, now

	_, err := s.exec(ctx, s.sb.Insert("workspaces").
		Columns("id", "name", "description", "created_by", "created_at", "updated_at").
		Values(w.ID, w.Name, w.Description, w.CreatedBy, formatTime(now), formatTime(now)))
	if err != nil {
		return mapWriteError(err, "inserting workspace")
	}
	s.logger.Debug("created workspace", "id", w.ID, "name", w.Name)
	return nil
}

// GetWorkspace retrieves a workspace with its creator.
func (s *SQLStore) GetWorkspace(ctx context.Context, id string) (*WorkspaceView, error) {
	var row workspaceRow
	if err := s.get(ctx, &row, s.workspaceSelect().Where(sq.Eq{"w.id": id})); err != nil {
		return nil, mapReadError(err, "querying workspace")
	}
	return row.view()
}

// ListWorkspaces returns a page of workspaces, newest first.
func (s *SQLStore) ListWorkspaces(ctx context.Context, filter ListFilter) (*Page[WorkspaceView], error) {
	filter.Normalize()

	where := sq.And{}
	if filter.Search != "" {
		where = append(where, searchClause(filter.Search, "w.name"))
	}

	total, err := s.count(ctx, "workspaces w", where)
	if err != nil {
		return nil, fmt.Errorf("counting workspaces: %w", err)
	}

	var rows []workspaceRow
	q := s.workspaceSelect().Where(where).OrderBy("w.created_at DESC").
		Limit(uint64(filter.Limit)).Offset(filter.offset())
	if err := s.selectRows(ctx, &rows, q); err != nil {
		return nil, fmt.Errorf("listing workspaces: %w", err)
	}

	out := make([]WorkspaceView, 0, len(rows))
	for i := range rows {
		v, err := rows[i].view()
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return NewPage(out, total, filter), nil
}

// UpdateWorkspace writes the mutable workspace fields.
func (s *SQLStore) UpdateWorkspace(ctx context.Context, w *Workspace) error {
	w.UpdatedAt = time.Now().UTC()
	n, err := s.exec(ctx, s.sb.Update("workspaces").
		Set("name", w.Name).
		Set("description", w.Description).
		Set("updated_at", formatTime(w.UpdatedAt)).
		Where(sq.Eq{"id": w.ID}))
	if err != nil {
		return mapWriteError(err, "updating workspace")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteWorkspace removes a workspace and, through cascades, everything in it.
func (s *SQLStore) DeleteWorkspace(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "workspaces", id)
}

type projectRow struct {
	ID             string         `db:"id"`
	WorkspaceID    string         `db:"workspace_id"`
	Title          string         `db:"title"`
	Description    string         `db:"description"`
	Status         string         `db:"status"`
	CreatedBy      string         `db:"created_by"`
	WorkspaceRefID sql.NullString `db:"workspace_ref_id"`
	WorkspaceName  sql.NullString `db:"workspace_name"`
	timestamps
	creatorRow
}

func (r *projectRow) view() (*ProjectView, error) {
	v := &ProjectView{
		Project: Project{
			ID:          r.ID,
			WorkspaceID: r.WorkspaceID,
			Title:       r.Title,
			Description: r.Description,
			Status:      ProjectStatus(r.Status),
			CreatedBy:   r.CreatedBy,
		},
		Workspace: ref(r.WorkspaceRefID, r.WorkspaceName),
		Creator:   r.creatorRow.ref(),
	}
	var err error
	if v.CreatedAt, v.UpdatedAt, err = r.parse(); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *SQLStore) projectSelect() sq.SelectBuilder {
	cols := append([]string{
		"p.id", "p.workspace_id", "p.title", "p.description", "p.status", "p.created_by", "p.created_at", "p.updated_at",
		"w.id AS workspace_ref_id", "w.name AS workspace_name",
	}, creatorColumns...)
	return s.sb.Select(cols...).From("projects p").
		LeftJoin("workspaces w ON w.id = p.workspace_id").
		LeftJoin("users cu ON cu.id = p.created_by")
}

// CreateProject inserts a project.
func (s *SQLStore) CreateProject(ctx context.Context, p *Project) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Status == "" {
		p.Status = ProjectActive
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	_, err := s.exec(ctx, s.sb.Insert("projects").
		Columns("id", "workspace_id", "title", "description", "status", "created_by", "created_at", "updated_at").
		Values(p.ID, p.WorkspaceID, p.Title, p.Description, string(p.Status), p.CreatedBy, formatTime(now), formatTime(now)))
	if err != nil {
		return mapWriteError(err, "inserting project")
	}
	s.logger.Debug("created project", "id", p.ID, "workspace_id", p.WorkspaceID)
	return nil
}

// GetProject retrieves a project with its workspace and creator.
func (s *SQLStore) GetProject(ctx context.Context, id string) (*ProjectView, error) {
	var row projectRow
	if err := s.get(ctx, &row, s.projectSelect().Where(sq.Eq{"p.id": id})); err != nil {
		return nil, mapReadError(err, "querying project")
	}
	return row.view()
}

// ListProjects returns a page of projects, newest first.
func (s *SQLStore) ListProjects(ctx context.Context, filter ListFilter) (*Page[ProjectView], error) {
	filter.Normalize()

	where := sq.And{}
	if filter.WorkspaceID != "" {
		where = append(where, sq.Eq{"p.workspace_id": filter.WorkspaceID})
	}
	if filter.Status != "" {
		where = append(where, sq.Eq{"p.status": filter.Status})
	}
	if filter.Search != "" {
		where = append(where, searchClause(filter.Search, "p.title"))
	}

	total, err := s.count(ctx, "projects p", where)
	if err != nil {
		return nil, fmt.Errorf("counting projects: %w", err)
	}

	var rows []projectRow
	q := s.projectSelect().Where(where).OrderBy("p.created_at DESC").
		Limit(uint64(filter.Limit)).Offset(filter.offset())
	if err := s.selectRows(ctx, &rows, q); err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}

	out := make([]ProjectView, 0, len(rows))
	for i := range rows {
		v, err := rows[i].view()
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return NewPage(out, total, filter), nil
}

// UpdateProject writes the mutable project fields. WorkspaceID is never
// rewritten.
func (s *SQLStore) UpdateProject(ctx context.Context, p *Project) error {
	p.UpdatedAt = time.Now().UTC()
	n, err := s.exec(ctx, s.sb.Update("projects").
		Set("title", p.Title).
		Set("description", p.Description).
		Set("status", string(p.Status)).
		Set("updated_at", formatTime(p.UpdatedAt)).
		Where(sq.Eq{"id": p.ID}))
	if err != nil {
		return mapWriteError(err, "updating project")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteProject removes a project. Team-lead assignments, boards and
// everything below go with it.
func (s *SQLStore) DeleteProject(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "projects", id)
}

func (s *SQLStore) deleteByID(ctx context.Context, table, id string) error {
	n, err := s.exec(ctx, s.sb.Delete(table).Where(sq.Eq{"id": id}))
	if err != nil {
		return mapWriteError(err, "deleting from "+table)
	}
	if n == 0 {
		return ErrNotFound
	}
	s.logger.Debug("deleted row", "table", table, "id", id)
	return nil
}
