// ABOUTME: Task and task-assignee persistence
// ABOUTME: Task reads hydrate project, board, list and creator references

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

type taskRow struct {
	ID           string         `db:"id"`
	ProjectID    string         `db:"project_id"`
	BoardID      string         `db:"board_id"`
	ListID       string         `db:"list_id"`
	Title        string         `db:"title"`
	Description  string         `db:"description"`
	Status       string         `db:"status"`
	Priority     string         `db:"priority"`
	Position     int            `db:"position"`
	DueDate      sql.NullString `db:"due_date"`
	CompletedAt  sql.NullString `db:"completed_at"`
	Metadata     string         `db:"metadata"`
	CreatedBy    string         `db:"created_by"`
	ProjectRefID sql.NullString `db:"project_ref_id"`
	ProjectTitle sql.NullString `db:"project_title"`
	BoardRefID   sql.NullString `db:"board_ref_id"`
	BoardTitle   sql.NullString `db:"board_title"`
	ListRefID    sql.NullString `db:"list_ref_id"`
	ListTitle    sql.NullString `db:"list_title"`
	timestamps
	creatorRow
}

func (r *taskRow) view() (*TaskView, error) {
	v := &TaskView{
		Task: Task{
			ID:          r.ID,
			ProjectID:   r.ProjectID,
			BoardID:     r.BoardID,
			ListID:      r.ListID,
			Title:       r.Title,
			Description: r.Description,
			Status:      TaskStatus(r.Status),
			Priority:    TaskPriority(r.Priority),
			Position:    r.Position,
			CreatedBy:   r.CreatedBy,
		},
		Project: ref(r.ProjectRefID, r.ProjectTitle),
		Board:   ref(r.BoardRefID, r.BoardTitle),
		List:    ref(r.ListRefID, r.ListTitle),
		Creator: r.creatorRow.ref(),
	}
	var err error
	if v.DueDate, err = parseNullTime(r.DueDate); err != nil {
		return nil, err
	}
	if v.CompletedAt, err = parseNullTime(r.CompletedAt); err != nil {
		return nil, err
	}
	if v.Metadata, err = decodeMetadata(r.Metadata); err != nil {
		return nil, err
	}
	if v.CreatedAt, v.UpdatedAt, err = r.parse(); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *SQLStore) taskSelect() sq.SelectBuilder {
	cols := append([]string{
		"t.id", "t.project_id", "t.board_id", "t.list_id", "t.title", "t.description", "t.status", "t.priority",
		"t.position", "t.due_date", "t.completed_at", "t.metadata", "t.created_by", "t.created_at", "t.updated_at",
		"p.id AS project_ref_id", "p.title AS project_title",
		"b.id AS board_ref_id", "b.title AS board_title",
		"l.id AS list_ref_id", "l.title AS list_title",
	}, creatorColumns...)
	return s.sb.Select(cols...).From("tasks t").
		LeftJoin("projects p ON p.id = t.project_id").
		LeftJoin("boards b ON b.id = t.board_id").
		LeftJoin("lists l ON l.id = t.list_id").
		LeftJoin("users cu ON cu.id = t.created_by")
}

// CreateTask inserts a task.
func (s *SQLStore) CreateTask(ctx context.Context, t *Task) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Status == "" {
		t.Status = TaskTodo
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.Metadata == nil {
		t.Metadata = Metadata{}
	}
	meta, err := encodeMetadata(t.Metadata)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now

	_, err = s.exec(ctx, s.sb.Insert("tasks").
		Columns("id", "project_id", "board_id", "list_id", "title", "description", "status", "priority", "position",
			"due_date", "completed_at", "metadata", "created_by", "created_at", "updated_at").
		Values(t.ID, t.ProjectID, t.BoardID, t.ListID, t.Title, t.Description, string(t.Status), string(t.Priority),
			t.Position, formatNullTime(t.DueDate), formatNullTime(t.CompletedAt), meta, t.CreatedBy,
			formatTime(now), formatTime(now)))
	if err != nil {
		return mapWriteError(err, "inserting task")
	}
	s.logger.Debug("created task", "id", t.ID, "list_id", t.ListID)
	return nil
}

// GetTask retrieves a task with its parents and creator.
func (s *SQLStore) GetTask(ctx context.Context, id string) (*TaskView, error) {
	var row taskRow
	if err := s.get(ctx, &row, s.taskSelect().Where(sq.Eq{"t.id": id})); err != nil {
		return nil, mapReadError(err, "querying task")
	}
	return row.view()
}

// ListTasks returns a page of tasks ordered by position.
func (s *SQLStore) ListTasks(ctx context.Context, filter ListFilter) (*Page[TaskView], error) {
	filter.Normalize()

	where := sq.And{}
	if filter.ProjectID != "" {
		where = append(where, sq.Eq{"t.project_id": filter.ProjectID})
	}
	if filter.BoardID != "" {
		where = append(where, sq.Eq{"t.board_id": filter.BoardID})
	}
	if filter.ListID != "" {
		where = append(where, sq.Eq{"t.list_id": filter.ListID})
	}
	if filter.Status != "" {
		where = append(where, sq.Eq{"t.status": filter.Status})
	}
	if filter.Priority != "" {
		where = append(where, sq.Eq{"t.priority": filter.Priority})
	}
	if filter.AssigneeID != "" {
		where = append(where, sq.Expr("EXISTS (SELECT 1 FROM task_assignees ta WHERE ta.task_id = t.id AND ta.user_id = ?)", filter.AssigneeID))
	}
	if filter.Search != "" {
		where = append(where, searchClause(filter.Search, "t.title", "t.description"))
	}

	total, err := s.count(ctx, "tasks t", where)
	if err != nil {
		return nil, fmt.Errorf("counting tasks: %w", err)
	}

	var rows []taskRow
	q := s.taskSelect().Where(where).OrderBy("t.position ASC", "t.created_at DESC").
		Limit(uint64(filter.Limit)).Offset(filter.offset())
	if err := s.selectRows(ctx, &rows, q); err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}

	out := make([]TaskView, 0, len(rows))
	for i := range rows {
		v, err := rows[i].view()
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return NewPage(out, total, filter), nil
}

// UpdateTask writes the mutable task fields. ProjectID, BoardID and ListID
// are never rewritten.
func (s *SQLStore) UpdateTask(ctx context.Context, t *Task) error {
	meta, err := encodeMetadata(t.Metadata)
	if err != nil {
		return err
	}
	t.UpdatedAt = time.Now().UTC()
	n, err := s.exec(ctx, s.sb.Update("tasks").
		Set("title", t.Title).
		Set("description", t.Description).
		Set("status", string(t.Status)).
		Set("priority", string(t.Priority)).
		Set("position", t.Position).
		Set("due_date", formatNullTime(t.DueDate)).
		Set("completed_at", formatNullTime(t.CompletedAt)).
		Set("metadata", meta).
		Set("updated_at", formatTime(t.UpdatedAt)).
		Where(sq.Eq{"id": t.ID}))
	if err != nil {
		return mapWriteError(err, "updating task")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTask removes a task and its assignments.
func (s *SQLStore) DeleteTask(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "tasks", id)
}

type taskAssigneeRow struct {
	ID               string         `db:"id"`
	TaskID           string         `db:"task_id"`
	UserID           string         `db:"user_id"`
	AssignedBy       string         `db:"assigned_by"`
	AssignedAt       string         `db:"assigned_at"`
	Metadata         string         `db:"metadata"`
	TaskTitle        sql.NullString `db:"task_title"`
	UserUsername     sql.NullString `db:"user_username"`
	UserEmail        sql.NullString `db:"user_email"`
	UserFullName     sql.NullString `db:"user_full_name"`
	AssignerUsername sql.NullString `db:"assigner_username"`
	AssignerEmail    sql.NullString `db:"assigner_email"`
	AssignerFullName sql.NullString `db:"assigner_full_name"`
	timestamps
}

func (r *taskAssigneeRow) view() (*TaskAssigneeView, error) {
	v := &TaskAssigneeView{
		TaskAssignee: TaskAssignee{
			ID:         r.ID,
			TaskID:     r.TaskID,
			UserID:     r.UserID,
			AssignedBy: r.AssignedBy,
		},
	}
	if r.TaskTitle.Valid {
		v.Task = &Ref{ID: r.TaskID, Title: r.TaskTitle.String}
	}
	if r.UserUsername.Valid {
		v.User = &UserRef{ID: r.UserID, Username: r.UserUsername.String, Email: r.UserEmail.String, FullName: r.UserFullName.String}
	}
	if r.AssignerUsername.Valid {
		v.Assigner = &UserRef{ID: r.AssignedBy, Username: r.AssignerUsername.String, Email: r.AssignerEmail.String, FullName: r.AssignerFullName.String}
	}
	var err error
	if v.AssignedAt, err = parseTime(r.AssignedAt); err != nil {
		return nil, err
	}
	if v.Metadata, err = decodeMetadata(r.Metadata); err != nil {
		return nil, err
	}
	if v.CreatedAt, v.UpdatedAt, err = r.parse(); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *SQLStore) taskAssigneeSelect() sq.SelectBuilder {
	return s.sb.Select(
		"ta.id", "ta.task_id", "ta.user_id", "ta.assigned_by", "ta.assigned_at", "ta.metadata",
		"ta.created_at", "ta.updated_at",
		"t.title AS task_title",
		"u.username AS user_username", "u.email AS user_email", "u.full_name AS user_full_name",
		"a.username AS assigner_username", "a.email AS assigner_email", "a.full_name AS assigner_full_name",
	).From("task_assignees ta").
		LeftJoin("tasks t ON t.id = ta.task_id").
		LeftJoin("users u ON u.id = ta.user_id").
		LeftJoin("users a ON a.id = ta.assigned_by")
}

func taskAssigneeWhere(prefix string, f TaskAssigneeFilter) sq.And {
	where := sq.And{}
	if f.TaskID != "" {
		where = append(where, sq.Eq{prefix + "task_id": f.TaskID})
	}
	if f.UserID != "" {
		where = append(where, sq.Eq{prefix + "user_id": f.UserID})
	}
	if len(f.UserIDs) > 0 {
		where = append(where, sq.Eq{prefix + "user_id": f.UserIDs})
	}
	return where
}

// CreateTaskAssignees inserts assignments in a single statement. Any
// duplicate (task, user) pair fails the whole batch with ErrConflict.
func (s *SQLStore) CreateTaskAssignees(ctx context.Context, assignees []*TaskAssignee) error {
	if len(assignees) == 0 {
		return nil
	}
	now := time.Now().UTC()
	q := s.sb.Insert("task_assignees").
		Columns("id", "task_id", "user_id", "assigned_by", "assigned_at", "metadata", "created_at", "updated_at")
	for _, a := range assignees {
		if a.ID == "" {
			a.ID = uuid.New().String()
		}
		if a.AssignedAt.IsZero() {
			a.AssignedAt = now
		}
		if a.Metadata == nil {
			a.Metadata = Metadata{}
		}
		a.CreatedAt, a.UpdatedAt = now, now
		meta, err := encodeMetadata(a.Metadata)
		if err != nil {
			return err
		}
		q = q.Values(a.ID, a.TaskID, a.UserID, a.AssignedBy, formatTime(a.AssignedAt), meta, formatTime(now), formatTime(now))
	}

	if _, err := s.exec(ctx, q); err != nil {
		return mapWriteError(err, "inserting task assignees")
	}
	s.logger.Debug("created task assignees", "task_id", assignees[0].TaskID, "count", len(assignees))
	return nil
}

// GetTaskAssignee retrieves one assignment by ID.
func (s *SQLStore) GetTaskAssignee(ctx context.Context, id string) (*TaskAssigneeView, error) {
	var row taskAssigneeRow
	if err := s.get(ctx, &row, s.taskAssigneeSelect().Where(sq.Eq{"ta.id": id})); err != nil {
		return nil, mapReadError(err, "querying task assignee")
	}
	return row.view()
}

// ListTaskAssignees returns assignments matching filter, most recent first.
func (s *SQLStore) ListTaskAssignees(ctx context.Context, filter TaskAssigneeFilter) ([]*TaskAssigneeView, error) {
	var rows []taskAssigneeRow
	q := s.taskAssigneeSelect().Where(taskAssigneeWhere("ta.", filter)).OrderBy("ta.assigned_at DESC")
	if err := s.selectRows(ctx, &rows, q); err != nil {
		return nil, fmt.Errorf("listing task assignees: %w", err)
	}

	out := make([]*TaskAssigneeView, 0, len(rows))
	for i := range rows {
		v, err := rows[i].view()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// UpdateTaskAssignee writes the assignee, assigner and metadata of an
// assignment. TaskID is never rewritten.
func (s *SQLStore) UpdateTaskAssignee(ctx context.Context, a *TaskAssignee) error {
	meta, err := encodeMetadata(a.Metadata)
	if err != nil {
		return err
	}
	a.UpdatedAt = time.Now().UTC()
	n, err := s.exec(ctx, s.sb.Update("task_assignees").
		Set("user_id", a.UserID).
		Set("assigned_by", a.AssignedBy).
		Set("assigned_at", formatTime(a.AssignedAt)).
		Set("metadata", meta).
		Set("updated_at", formatTime(a.UpdatedAt)).
		Where(sq.Eq{"id": a.ID}))
	if err != nil {
		return mapWriteError(err, "updating task assignee")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTaskAssignees removes the assignments matching filter. An empty
// filter is rejected.
func (s *SQLStore) DeleteTaskAssignees(ctx context.Context, filter TaskAssigneeFilter) (int64, error) {
	where := taskAssigneeWhere("", filter)
	if len(where) == 0 {
		return 0, fmt.Errorf("deleting task assignees: empty filter")
	}
	n, err := s.exec(ctx, s.sb.Delete("task_assignees").Where(where))
	if err != nil {
		return 0, mapWriteError(err, "deleting task assignees")
	}
	return n, nil
}
