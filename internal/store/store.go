// ABOUTME: Store interfaces and shared query types for trellis persistence
// ABOUTME: Services depend on these narrow interfaces, SQLStore implements them all

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write violates a uniqueness or reference
// constraint.
var ErrConflict = errors.New("conflict")

// Pagination bounds.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
	MaxPage      = 1_000_000
)

// ListFilter narrows a listing. Zero values mean "no filter".
type ListFilter struct {
	Page   int
	Limit  int
	Status string
	Search string

	WorkspaceID string
	ProjectID   string
	BoardID     string
	ListID      string
	Priority    string
	AssigneeID  string
}

// Normalize clamps pagination to sane bounds.
func (f *ListFilter) Normalize() {
	if f.Page < 1 {
		f.Page = DefaultPage
	}
	if f.Limit < 1 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.Page > MaxPage {
		f.Page = MaxPage
	}
}

func (f ListFilter) offset() uint64 {
	return uint64((f.Page - 1) * f.Limit)
}

// Page is one page of a listing.
type Page[T any] struct {
	Data            []T  `json:"data"`
	Total           int  `json:"total"`
	Page            int  `json:"page"`
	Limit           int  `json:"limit"`
	TotalPages      int  `json:"totalPages"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

// NewPage fills in the derived page counters.
func NewPage[T any](data []T, total int, f ListFilter) *Page[T] {
	if data == nil {
		data = []T{}
	}
	pages := 0
	if f.Limit > 0 {
		pages = (total + f.Limit - 1) / f.Limit
	}
	return &Page[T]{
		Data:            data,
		Total:           total,
		Page:            f.Page,
		Limit:           f.Limit,
		TotalPages:      pages,
		HasNextPage:     f.Page < pages,
		HasPreviousPage: f.Page > 1,
	}
}

// MembershipFilter selects join rows by parent, user, or both.
type MembershipFilter struct {
	ParentID string
	UserID   string
}

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	ListUsers(ctx context.Context, filter ListFilter) (*Page[User], error)
	CountUsers(ctx context.Context, ids []string) (int, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	DeleteUser(ctx context.Context, id string) error
}

// MembershipStore persists both (parent, user) join relations.
type MembershipStore interface {
	CreateMembership(ctx context.Context, m *Membership) error
	GetMembership(ctx context.Context, kind MembershipKind, parentID, userID string) (*Membership, error)
	ListMemberships(ctx context.Context, kind MembershipKind, filter MembershipFilter) ([]*Membership, error)
	UpdateMembershipRole(ctx context.Context, kind MembershipKind, parentID, userID, role string) error
	DeleteMemberships(ctx context.Context, kind MembershipKind, filter MembershipFilter) (int64, error)
}

type WorkspaceStore interface {
	CreateWorkspace(ctx context.Context, w *Workspace) error
	GetWorkspace(ctx context.Context, id string) (*WorkspaceView, error)
	ListWorkspaces(ctx context.Context, filter ListFilter) (*Page[WorkspaceView], error)
	UpdateWorkspace(ctx context.Context, w *Workspace) error
	DeleteWorkspace(ctx context.Context, id string) error
}

type ProjectStore interface {
	CreateProject(ctx context.Context, p *Project) error
	GetProject(ctx context.Context, id string) (*ProjectView, error)
	ListProjects(ctx context.Context, filter ListFilter) (*Page[ProjectView], error)
	UpdateProject(ctx context.Context, p *Project) error
	DeleteProject(ctx context.Context, id string) error
}

type BoardStore interface {
	CreateBoard(ctx context.Context, b *Board) error
	GetBoard(ctx context.Context, id string) (*BoardView, error)
	ListBoards(ctx context.Context, filter ListFilter) (*Page[BoardView], error)
	UpdateBoard(ctx context.Context, b *Board) error
	DeleteBoard(ctx context.Context, id string) error
}

type ListStore interface {
	CreateList(ctx context.Context, l *List) error
	GetList(ctx context.Context, id string) (*ListView, error)
	ListLists(ctx context.Context, filter ListFilter) (*Page[ListView], error)
	UpdateList(ctx context.Context, l *List) error
	DeleteList(ctx context.Context, id string) error
}

type TaskStore interface {
	CreateTask(ctx context.Context, t *Task) error
	GetTask(ctx context.Context, id string) (*TaskView, error)
	ListTasks(ctx context.Context, filter ListFilter) (*Page[TaskView], error)
	UpdateTask(ctx context.Context, t *Task) error
	DeleteTask(ctx context.Context, id string) error
}

type TaskAssigneeStore interface {
	CreateTaskAssignees(ctx context.Context, assignees []*TaskAssignee) error
	GetTaskAssignee(ctx context.Context, id string) (*TaskAssigneeView, error)
	ListTaskAssignees(ctx context.Context, filter TaskAssigneeFilter) ([]*TaskAssigneeView, error)
	UpdateTaskAssignee(ctx context.Context, a *TaskAssignee) error
	DeleteTaskAssignees(ctx context.Context, filter TaskAssigneeFilter) (int64, error)
}

// TaskAssigneeFilter selects assignment rows. UserIDs narrows TaskID to a set.
type TaskAssigneeFilter struct {
	TaskID  string
	UserID  string
	UserIDs []string
}

// Store is the full persistence surface.
type Store interface {
	UserStore
	MembershipStore
	WorkspaceStore
	ProjectStore
	BoardStore
	ListStore
	TaskStore
	TaskAssigneeStore

	Close() error
}

// Transactor runs fn against a Store bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
type Transactor interface {
	WithTx(ctx context.Context, fn func(tx Store) error) error
}
