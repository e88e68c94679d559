// ABOUTME: Task operations of the hierarchy service
// ABOUTME: Tasks copy project and board from their list, done stamps completion

package hierarchy

import (
	"context"

	"github.com/2389/trellis/internal/access"
	"github.com/2389/trellis/internal/apperr"
	"github.com/2389/trellis/internal/store"
)

// CreateTask creates a task in a list the actor can write to. Project and
// board are taken from the list.
func (s *Service) CreateTask(ctx context.Context, a access.Actor, in CreateTaskInput) (*store.TaskView, error) {
	if err := in.Validate().Err(); err != nil {
		return nil, err
	}
	list, err := s.GetList(ctx, in.ListID, nil)
	if err != nil {
		return nil, err
	}
	if err := s.check(ctx, a, access.Target{ProjectID: list.ProjectID, BoardID: list.BoardID}, access.Write); err != nil {
		return nil, err
	}

	t := &store.Task{
		ProjectID:   list.ProjectID,
		BoardID:     list.BoardID,
		ListID:      list.ID,
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
		Metadata:    in.Metadata,
		CreatedBy:   a.UserID,
	}
	if in.Position != nil {
		t.Position = *in.Position
	}
	if t.Status == store.TaskDone {
		now := s.now().UTC()
		t.CompletedAt = &now
	}
	if err := s.store.CreateTask(ctx, t); err != nil {
		return nil, translate(err, "Task", t.ID, "create")
	}
	s.logger.Info("task created", "task_id", t.ID, "list_id", t.ListID, "user_id", a.UserID)
	return s.GetTask(ctx, t.ID, nil)
}

// GetTask returns a hydrated task. When a is non-nil the read access check
// runs against the task's board.
func (s *Service) GetTask(ctx context.Context, id string, a *access.Actor) (*store.TaskView, error) {
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, translate(err, "Task", id, "fetch")
	}
	if a != nil {
		if err := s.check(ctx, *a, access.Target{ProjectID: t.ProjectID, BoardID: t.BoardID}, access.Read); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// ListTasks pages through tasks ordered by position. ListID, BoardID,
// ProjectID, Priority and AssigneeID all narrow the listing; Search matches
// title and description.
func (s *Service) ListTasks(ctx context.Context, p ListParams) (*store.Page[store.TaskView], error) {
	if err := validateStatus(p.Status, func(v string) bool { return store.TaskStatus(v).Valid() }, taskStatuses); err != nil {
		return nil, err
	}
	if p.Priority != "" && !store.TaskPriority(p.Priority).Valid() {
		return nil, apperr.FieldErrors{"priority": taskPriorities}.Err()
	}
	page, err := s.store.ListTasks(ctx, normalize(p))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to fetch tasks")
	}
	return page, nil
}

// UpdateTask applies a partial update. Moving to done stamps CompletedAt;
// leaving done keeps the previous stamp.
func (s *Service) UpdateTask(ctx context.Context, a access.Actor, id string, in UpdateTaskInput) (*store.TaskView, error) {
	if err := in.Validate().Err(); err != nil {
		return nil, err
	}
	cur, err := s.GetTask(ctx, id, nil)
	if err != nil {
		return nil, err
	}
	if err := s.check(ctx, a, access.Target{ProjectID: cur.ProjectID, BoardID: cur.BoardID}, access.Write); err != nil {
		return nil, err
	}

	t := cur.Task
	if in.Title != nil {
		t.Title = *in.Title
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Status != nil {
		t.Status = *in.Status
		if t.Status == store.TaskDone {
			now := s.now().UTC()
			t.CompletedAt = &now
		}
	}
	if in.Priority != nil {
		t.Priority = *in.Priority
	}
	if in.Position != nil {
		t.Position = *in.Position
	}
	if in.DueDate != nil {
		t.DueDate = in.DueDate
	}
	if in.Metadata != nil {
		t.Metadata = in.Metadata
	}
	if err := s.store.UpdateTask(ctx, &t); err != nil {
		return nil, translate(err, "Task", id, "update")
	}
	return s.GetTask(ctx, id, nil)
}

// DeleteTask removes a task and its assignments.
func (s *Service) DeleteTask(ctx context.Context, a access.Actor, id string) error {
	cur, err := s.GetTask(ctx, id, nil)
	if err != nil {
		return err
	}
	if err := s.check(ctx, a, access.Target{ProjectID: cur.ProjectID, BoardID: cur.BoardID}, access.Delete); err != nil {
		return err
	}
	if err := s.store.DeleteTask(ctx, id); err != nil {
		return translate(err, "Task", id, "delete")
	}
	s.logger.Info("task deleted", "task_id", id, "user_id", a.UserID)
	return nil
}
