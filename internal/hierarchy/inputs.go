// ABOUTME: Create and update inputs for hierarchy entities with field validation
// ABOUTME: Update inputs omit denormalized parent ids so they cannot be changed

package hierarchy

import (
	"strings"
	"time"

	"github.com/2389/trellis/internal/apperr"
	"github.com/2389/trellis/internal/store"
)

const maxTitle = 255

func required(f apperr.FieldErrors, field, v string) {
	if strings.TrimSpace(v) == "" {
		f.Add(field, "is required")
		return
	}
	if len(v) > maxTitle {
		f.Add(field, "must be at most 255 characters")
	}
}

func optional(f apperr.FieldErrors, field string, v *string) {
	if v != nil {
		required(f, field, *v)
	}
}

func position(f apperr.FieldErrors, p *int) {
	if p != nil && *p < 0 {
		f.Add("position", "must not be negative")
	}
}

// CreateWorkspaceInput names a new workspace.
type CreateWorkspaceInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Validate reports every invalid field at once. An empty result means the
// input is usable.
func (in CreateWorkspaceInput) Validate() apperr.FieldErrors {
	f := apperr.FieldErrors{}
	required(f, "name", in.Name)
	return f
}

// UpdateWorkspaceInput is a partial update; nil fields are left alone.
type UpdateWorkspaceInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (in UpdateWorkspaceInput) Validate() apperr.FieldErrors {
	f := apperr.FieldErrors{}
	optional(f, "name", in.Name)
	return f
}

// CreateProjectInput creates a project inside WorkspaceID.
type CreateProjectInput struct {
	WorkspaceID string              `json:"workspaceId"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Status      store.ProjectStatus `json:"status"`
}

func (in CreateProjectInput) Validate() apperr.FieldErrors {
	f := apperr.FieldErrors{}
	required(f, "workspaceId", in.WorkspaceID)
	required(f, "title", in.Title)
	if in.Status != "" && !in.Status.Valid() {
		f.Add("status", "must be one of active, archived")
	}
	return f
}

// UpdateProjectInput is a partial update. The workspace cannot change.
type UpdateProjectInput struct {
	Title       *string              `json:"title"`
	Description *string              `json:"description"`
	Status      *store.ProjectStatus `json:"status"`
}

func (in UpdateProjectInput) Validate() apperr.FieldErrors {
	f := apperr.FieldErrors{}
	optional(f, "title", in.Title)
	if in.Status != nil && !in.Status.Valid() {
		f.Add("status", "must be one of active, archived")
	}
	return f
}

// CreateBoardInput creates a board inside ProjectID. Status defaults to active.
type CreateBoardInput struct {
	ProjectID   string            `json:"projectId"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Status      store.BoardStatus `json:"status"`
	Metadata    store.Metadata    `json:"metadata"`
}

func (in CreateBoardInput) Validate() apperr.FieldErrors {
	f := apperr.FieldErrors{}
	required(f, "projectId", in.ProjectID)
	required(f, "title", in.Title)
	if in.Status != "" && !in.Status.Valid() {
		f.Add("status", "must be one of active, archived")
	}
	return f
}

// UpdateBoardInput is a partial update. Metadata replaces the stored map when set.
type UpdateBoardInput struct {
	Title       *string            `json:"title"`
	Description *string            `json:"description"`
	Status      *store.BoardStatus `json:"status"`
	Metadata    store.Metadata     `json:"metadata"`
}

func (in UpdateBoardInput) Validate() apperr.FieldErrors {
	f := apperr.FieldErrors{}
	optional(f, "title", in.Title)
	if in.Status != nil && !in.Status.Valid() {
		f.Add("status", "must be one of active, archived")
	}
	return f
}

// CreateListInput creates a list on BoardID. The project is taken from the
// board and Position defaults to 0.
type CreateListInput struct {
	BoardID     string           `json:"boardId"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Status      store.ListStatus `json:"status"`
	Position    *int             `json:"position"`
	Metadata    store.Metadata   `json:"metadata"`
}

// Validate rejects an empty title, an unknown status or a negative position.
func (in CreateListInput) Validate() apperr.FieldErrors {
	f := apperr.FieldErrors{}
	required(f, "boardId", in.BoardID)
	required(f, "title", in.Title)
	if in.Status != "" && !in.Status.Valid() {
		f.Add("status", "must be one of active, inactive, archived")
	}
	position(f, in.Position)
	return f
}

// UpdateListInput is a partial update of a list.
type UpdateListInput struct {
	Title       *string           `json:"title"`
	Description *string           `json:"description"`
	Status      *store.ListStatus `json:"status"`
	Position    *int              `json:"position"`
	Metadata    store.Metadata    `json:"metadata"`
}

func (in UpdateListInput) Validate() apperr.FieldErrors {
	f := apperr.FieldErrors{}
	optional(f, "title", in.Title)
	if in.Status != nil && !in.Status.Valid() {
		f.Add("status", "must be one of active, inactive, archived")
	}
	position(f, in.Position)
	return f
}

const (
	taskStatuses   = "must be one of todo, in_progress, in_review, done, blocked"
	taskPriorities = "must be one of low, medium, high, critical"
)

// CreateTaskInput creates a task in ListID. Project and board come from the
// list; status defaults to todo and priority to medium.
type CreateTaskInput struct {
	ListID      string             `json:"listId"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Status      store.TaskStatus   `json:"status"`
	Priority    store.TaskPriority `json:"priority"`
	Position    *int               `json:"position"`
	DueDate     *time.Time         `json:"dueDate"`
	Metadata    store.Metadata     `json:"metadata"`
}

func (in CreateTaskInput) Validate() apperr.FieldErrors {
	f := apperr.FieldErrors{}
	required(f, "listId", in.ListID)
	required(f, "title", in.Title)
	if in.Status != "" && !in.Status.Valid() {
		f.Add("status", taskStatuses)
	}
	if in.Priority != "" && !in.Priority.Valid() {
		f.Add("priority", taskPriorities)
	}
	position(f, in.Position)
	return f
}

// UpdateTaskInput is a partial update. Setting Status to done stamps
// CompletedAt.
type UpdateTaskInput struct {
	Title       *string             `json:"title"`
	Description *string             `json:"description"`
	Status      *store.TaskStatus   `json:"status"`
	Priority    *store.TaskPriority `json:"priority"`
	Position    *int                `json:"position"`
	DueDate     *time.Time          `json:"dueDate"`
	Metadata    store.Metadata      `json:"metadata"`
}

// Validate checks only the fields that are set.
func (in UpdateTaskInput) Validate() apperr.FieldErrors {
	f := apperr.FieldErrors{}
	optional(f, "title", in.Title)
	if in.Status != nil && !in.Status.Valid() {
		f.Add("status", taskStatuses)
	}
	if in.Priority != nil && !in.Priority.Valid() {
		f.Add("priority", taskPriorities)
	}
	position(f, in.Position)
	return f
}

// AssignInput assigns one user to a task.
type AssignInput struct {
	TaskID   string         `json:"taskId"`
	UserID   string         `json:"userId"`
	Metadata store.Metadata `json:"metadata"`
}

func (in AssignInput) Validate() apperr.FieldErrors {
	f := apperr.FieldErrors{}
	required(f, "taskId", in.TaskID)
	required(f, "userId", in.UserID)
	return f
}

// BulkAssignInput assigns several users to a task at once.
type BulkAssignInput struct {
	TaskID   string         `json:"taskId"`
	UserIDs  []string       `json:"userIds"`
	Metadata store.Metadata `json:"metadata"`
}

func (in BulkAssignInput) Validate() apperr.FieldErrors {
	f := apperr.FieldErrors{}
	required(f, "taskId", in.TaskID)
	if len(in.UserIDs) == 0 {
		f.Add("userIds", "must contain at least one id")
	}
	for _, id := range in.UserIDs {
		if strings.TrimSpace(id) == "" {
			f.Add("userIds", "must not contain empty ids")
		}
	}
	return f
}

// validateStatus checks a listing's status filter against valid.
func validateStatus(status string, valid func(string) bool, allowed string) error {
	if status == "" || valid(status) {
		return nil
	}
	return apperr.FieldErrors{"status": allowed}.Err()
}
