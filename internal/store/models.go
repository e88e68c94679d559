// ABOUTME: Entity types for the workspace/project/board/list/task hierarchy
// ABOUTME: Includes role and status enums plus the read-side relation views

package store

import (
	"fmt"
	"time"
)

// Role is a user's global role. It is fixed at registration.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleTeamLead Role = "team_lead"
	RoleUser     Role = "user"
)

// ParseRole validates a role string.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleAdmin, RoleTeamLead, RoleUser:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// ProjectStatus and BoardStatus share the same two values.
type ProjectStatus string

const (
	ProjectActive   ProjectStatus = "active"
	ProjectArchived ProjectStatus = "archived"
)

type BoardStatus string

const (
	BoardActive   BoardStatus = "active"
	BoardArchived BoardStatus = "archived"
)

type ListStatus string

const (
	ListActive   ListStatus = "active"
	ListInactive ListStatus = "inactive"
	ListArchived ListStatus = "archived"
)

type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskInReview   TaskStatus = "in_review"
	TaskDone       TaskStatus = "done"
	TaskBlocked    TaskStatus = "blocked"
)

type TaskPriority string

const (
	PriorityLow      TaskPriority = "low"
	PriorityMedium   TaskPriority = "medium"
	PriorityHigh     TaskPriority = "high"
	PriorityCritical TaskPriority = "critical"
)

func (s ProjectStatus) Valid() bool { return s == ProjectActive || s == ProjectArchived }
func (s BoardStatus) Valid() bool   { return s == BoardActive || s == BoardArchived }

func (s ListStatus) Valid() bool {
	return s == ListActive || s == ListInactive || s == ListArchived
}

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskTodo, TaskInProgress, TaskInReview, TaskDone, TaskBlocked:
		return true
	}
	return false
}

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Metadata is an opaque key-value bag stored as JSON.
type Metadata map[string]any

// User is a registered account. PasswordHash is only populated by
// GetUserByEmail; every other read leaves it empty.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FullName     string     `json:"fullName"`
	PhoneNumber  *string    `json:"phoneNumber,omitempty"`
	Role         Role       `json:"role"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Workspace is the root of containment.
type Workspace struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Project struct {
	ID          string        `json:"id"`
	WorkspaceID string        `json:"workspaceId"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Status      ProjectStatus `json:"status"`
	CreatedBy   string        `json:"createdBy"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

type Board struct {
	ID          string      `json:"id"`
	ProjectID   string      `json:"projectId"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Status      BoardStatus `json:"status"`
	Metadata    Metadata    `json:"metadata"`
	CreatedBy   string      `json:"createdBy"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// List belongs to a board. ProjectID is copied from the board at creation.
type List struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"projectId"`
	BoardID     string     `json:"boardId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      ListStatus `json:"status"`
	Position    int        `json:"position"`
	Metadata    Metadata   `json:"metadata"`
	CreatedBy   string     `json:"createdBy"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Task belongs to a list. ProjectID and BoardID are copied from the list at
// creation.
type Task struct {
	ID          string       `json:"id"`
	ProjectID   string       `json:"projectId"`
	BoardID     string       `json:"boardId"`
	ListID      string       `json:"listId"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	Position    int          `json:"position"`
	DueDate     *time.Time   `json:"dueDate,omitempty"`
	CompletedAt *time.Time   `json:"completedAt,omitempty"`
	Metadata    Metadata     `json:"metadata"`
	CreatedBy   string       `json:"createdBy"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

type TaskAssignee struct {
	ID         string    `json:"id"`
	TaskID     string    `json:"taskId"`
	UserID     string    `json:"userId"`
	AssignedBy string    `json:"assignedBy"`
	AssignedAt time.Time `json:"assignedAt"`
	Metadata   Metadata  `json:"metadata"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// MembershipKind selects one of the two (parent, user) join relations.
type MembershipKind string

const (
	// TeamLeads links users to the projects they lead.
	TeamLeads MembershipKind = "team_lead"
	// BoardMembers links users to the boards they belong to.
	BoardMembers MembershipKind = "board_member"
)

// DefaultRole is the role label used when none is given.
func (k MembershipKind) DefaultRole() string {
	if k == TeamLeads {
		return "team_lead"
	}
	return "member"
}

// Membership is a TeamLeadAssignment (ParentID is a project) or a
// BoardMembership (ParentID is a board), keyed by (ParentID, UserID).
type Membership struct {
	Kind      MembershipKind `json:"-"`
	ParentID  string         `json:"parentId"`
	UserID    string         `json:"userId"`
	Role      string         `json:"role"`
	AddedAt   time.Time      `json:"addedAt"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	User      *UserRef       `json:"user,omitempty"`
}

// Ref is the id/title pair attached to a hydrated entity.
type Ref struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// UserRef is the public slice of a user attached to a hydrated entity.
type UserRef struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
}

type WorkspaceView struct {
	Workspace
	Creator *UserRef `json:"creator,omitempty"`
}

type ProjectView struct {
	Project
	Workspace *Ref     `json:"workspace,omitempty"`
	Creator   *UserRef `json:"creator,omitempty"`
}

type BoardView struct {
	Board
	Project *Ref     `json:"project,omitempty"`
	Creator *UserRef `json:"creator,omitempty"`
}

type ListView struct {
	List
	Project *Ref     `json:"project,omitempty"`
	Board   *Ref     `json:"board,omitempty"`
	Creator *UserRef `json:"creator,omitempty"`
}

type TaskView struct {
	Task
	Project *Ref     `json:"project,omitempty"`
	Board   *Ref     `json:"board,omitempty"`
	List    *Ref     `json:"list,omitempty"`
	Creator *UserRef `json:"creator,omitempty"`
}

type TaskAssigneeView struct {
	TaskAssignee
	User     *UserRef `json:"user,omitempty"`
	Assigner *UserRef `json:"assigner,omitempty"`
	Task     *Ref     `json:"task,omitempty"`
}
