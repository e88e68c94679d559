// ABOUTME: Task assignment service linking users to tasks
// ABOUTME: Depends on a TaskLookup capability rather than the task operations

package hierarchy

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/2389/trellis/internal/access"
	"github.com/2389/trellis/internal/apperr"
	"github.com/2389/trellis/internal/identity"
	"github.com/2389/trellis/internal/store"
)

// TaskLookup loads a task by id. store.TaskStore satisfies it.
type TaskLookup interface {
	GetTask(ctx context.Context, id string) (*store.TaskView, error)
}

// Assignees manages task assignments.
type Assignees struct {
	store  store.TaskAssigneeStore
	tasks  TaskLookup
	users  *identity.Service
	acl    *access.Engine
	logger *slog.Logger
	now    func() time.Time
}

// NewAssignees creates an Assignees service.
func NewAssignees(s store.TaskAssigneeStore, tasks TaskLookup, users *identity.Service, acl *access.Engine, logger *slog.Logger) *Assignees {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assignees{
		store:  s,
		tasks:  tasks,
		users:  users,
		acl:    acl,
		logger: logger.With("component", "assignees"),
		now:    time.Now,
	}
}

// task loads taskID and checks the actor may perform act on it.
func (s *Assignees) task(ctx context.Context, a access.Actor, taskID string, act access.Action) (*store.TaskView, error) {
	t, err := s.tasks.GetTask(ctx, taskID)
	if err != nil {
		return nil, translate(err, "Task", taskID, "fetch")
	}
	if err := checkAccess(ctx, s.acl, a, access.Target{ProjectID: t.ProjectID, BoardID: t.BoardID}, act); err != nil {
		return nil, err
	}
	return t, nil
}

// Assign links one user to a task.
func (s *Assignees) Assign(ctx context.Context, a access.Actor, in AssignInput) (*store.TaskAssigneeView, error) {
	if err := in.Validate().Err(); err != nil {
		return nil, err
	}
	if _, err := s.task(ctx, a, in.TaskID, access.Write); err != nil {
		return nil, err
	}
	if _, err := s.users.Get(ctx, in.UserID); err != nil {
		return nil, err
	}
	assigned, err := s.IsAssigned(ctx, in.TaskID, in.UserID)
	if err != nil {
		return nil, err
	}
	if assigned {
		return nil, apperr.Conflict("User is already assigned to this task")
	}

	ta := &store.TaskAssignee{
		TaskID:     in.TaskID,
		UserID:     in.UserID,
		AssignedBy: a.UserID,
		AssignedAt: s.now().UTC(),
		Metadata:   in.Metadata,
	}
	if err := s.store.CreateTaskAssignees(ctx, []*store.TaskAssignee{ta}); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, apperr.Wrap(apperr.KindConflict, err, "User is already assigned to this task")
		}
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to assign user")
	}
	s.logger.Info("task assigned", "task_id", in.TaskID, "user_id", in.UserID, "assigned_by", a.UserID)
	return s.Get(ctx, ta.ID)
}

// AssignMany links several users to a task in one write. Every user must
// exist and none may already be assigned.
func (s *Assignees) AssignMany(ctx context.Context, a access.Actor, in BulkAssignInput) ([]*store.TaskAssigneeView, error) {
	if err := in.Validate().Err(); err != nil {
		return nil, err
	}
	ids := dedupe(in.UserIDs)
	if _, err := s.task(ctx, a, in.TaskID, access.Write); err != nil {
		return nil, err
	}

	n, err := s.users.CountExisting(ctx, ids)
	if err != nil {
		return nil, err
	}
	if n != len(ids) {
		return nil, apperr.NotFound("One or more users not found")
	}

	existing, err := s.store.ListTaskAssignees(ctx, store.TaskAssigneeFilter{TaskID: in.TaskID, UserIDs: ids})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to check assignments")
	}
	if len(existing) > 0 {
		taken := make([]string, len(existing))
		for i, e := range existing {
			taken[i] = e.UserID
		}
		return nil, apperr.Conflict("Users %s are already assigned to this task", strings.Join(taken, ", "))
	}

	at := s.now().UTC()
	batch := make([]*store.TaskAssignee, len(ids))
	for i, id := range ids {
		batch[i] = &store.TaskAssignee{TaskID: in.TaskID, UserID: id, AssignedBy: a.UserID, AssignedAt: at, Metadata: in.Metadata}
	}
	if err := s.store.CreateTaskAssignees(ctx, batch); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, apperr.Wrap(apperr.KindConflict, err, "One or more users are already assigned to this task")
		}
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to assign users")
	}
	s.logger.Info("task assigned", "task_id", in.TaskID, "count", len(batch), "assigned_by", a.UserID)

	out, err := s.store.ListTaskAssignees(ctx, store.TaskAssigneeFilter{TaskID: in.TaskID, UserIDs: ids})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to fetch assignments")
	}
	return out, nil
}

// Unassign removes userIDs from a task and reports how many were removed.
// Matching nothing is NotFound.
func (s *Assignees) Unassign(ctx context.Context, a access.Actor, taskID string, userIDs []string) (int64, error) {
	if len(userIDs) == 0 {
		return 0, apperr.FieldErrors{"userIds": "must contain at least one id"}.Err()
	}
	if _, err := s.task(ctx, a, taskID, access.Delete); err != nil {
		return 0, err
	}
	n, err := s.store.DeleteTaskAssignees(ctx, store.TaskAssigneeFilter{TaskID: taskID, UserIDs: dedupe(userIDs)})
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, err, "failed to unassign users")
	}
	if n == 0 {
		return 0, apperr.NotFound("No assignments found for the specified users")
	}
	s.logger.Info("task unassigned", "task_id", taskID, "count", n, "user_id", a.UserID)
	return n, nil
}

// Reassign moves an assignment from one user to another, keeping its
// metadata.
func (s *Assignees) Reassign(ctx context.Context, a access.Actor, taskID, fromUserID, toUserID string) (*store.TaskAssigneeView, error) {
	if _, err := s.task(ctx, a, taskID, access.Write); err != nil {
		return nil, err
	}
	cur, err := s.store.ListTaskAssignees(ctx, store.TaskAssigneeFilter{TaskID: taskID, UserID: fromUserID})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to fetch assignment")
	}
	if len(cur) == 0 {
		return nil, apperr.NotFound("Assignment not found")
	}
	if _, err := s.users.Get(ctx, toUserID); err != nil {
		return nil, err
	}
	taken, err := s.IsAssigned(ctx, taskID, toUserID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Conflict("Target user is already assigned to this task")
	}

	ta := cur[0].TaskAssignee
	ta.UserID = toUserID
	ta.AssignedBy = a.UserID
	ta.AssignedAt = s.now().UTC()
	if err := s.store.UpdateTaskAssignee(ctx, &ta); err != nil {
		return nil, translate(err, "Task assignment", ta.ID, "update")
	}
	s.logger.Info("task reassigned", "task_id", taskID, "from", fromUserID, "to", toUserID)
	return s.Get(ctx, ta.ID)
}

// Get returns one assignment.
func (s *Assignees) Get(ctx context.Context, id string) (*store.TaskAssigneeView, error) {
	ta, err := s.store.GetTaskAssignee(ctx, id)
	if err != nil {
		return nil, translate(err, "Task assignment", id, "fetch")
	}
	return ta, nil
}

func (s *Assignees) ListByTask(ctx context.Context, taskID string) ([]*store.TaskAssigneeView, error) {
	return s.list(ctx, store.TaskAssigneeFilter{TaskID: taskID})
}

func (s *Assignees) ListByUser(ctx context.Context, userID string) ([]*store.TaskAssigneeView, error) {
	return s.list(ctx, store.TaskAssigneeFilter{UserID: userID})
}

func (s *Assignees) list(ctx context.Context, f store.TaskAssigneeFilter) ([]*store.TaskAssigneeView, error) {
	out, err := s.store.ListTaskAssignees(ctx, f)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to fetch task assignments")
	}
	return out, nil
}

// Update replaces an assignment's metadata.
func (s *Assignees) Update(ctx context.Context, a access.Actor, id string, metadata store.Metadata) (*store.TaskAssigneeView, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.task(ctx, a, cur.TaskID, access.Write); err != nil {
		return nil, err
	}
	ta := cur.TaskAssignee
	ta.Metadata = metadata
	if ta.Metadata == nil {
		ta.Metadata = store.Metadata{}
	}
	if err := s.store.UpdateTaskAssignee(ctx, &ta); err != nil {
		return nil, translate(err, "Task assignment", id, "update")
	}
	return s.Get(ctx, id)
}

// Remove deletes one assignment by id.
func (s *Assignees) Remove(ctx context.Context, a access.Actor, id string) error {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.task(ctx, a, cur.TaskID, access.Delete); err != nil {
		return err
	}
	n, err := s.store.DeleteTaskAssignees(ctx, store.TaskAssigneeFilter{TaskID: cur.TaskID, UserID: cur.UserID})
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "failed to remove task assignment")
	}
	if n == 0 {
		return apperr.NotFound("Task assignment with ID %s not found", id)
	}
	return nil
}

// Count returns how many users are assigned to taskID.
func (s *Assignees) Count(ctx context.Context, taskID string) (int, error) {
	out, err := s.ListByTask(ctx, taskID)
	if err != nil {
		return 0, err
	}
	return len(out), nil
}

// IsAssigned reports whether userID is assigned to taskID.
func (s *Assignees) IsAssigned(ctx context.Context, taskID, userID string) (bool, error) {
	out, err := s.list(ctx, store.TaskAssigneeFilter{TaskID: taskID, UserID: userID})
	if err != nil {
		return false, err
	}
	return len(out) > 0, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
