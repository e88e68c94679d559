// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite and to inject per-operation failures

package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockStore is an in-memory Store implementation for testing. It does not
// implement Transactor, so callers exercise their non-transactional paths.
type MockStore struct {
	mu          sync.RWMutex
	users       map[string]*User
	workspaces  map[string]*Workspace
	projects    map[string]*Project
	boards      map[string]*Board
	lists       map[string]*List
	tasks       map[string]*Task
	assignees   map[string]*TaskAssignee
	memberships map[MembershipKind]map[string]*Membership // keyed by "parent:user"
	failures    map[string]error                          // keyed by method name
	calls       []string
}

var _ Store = (*MockStore)(nil)

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		users:      make(map[string]*User),
		workspaces: make(map[string]*Workspace),
		projects:   make(map[string]*Project),
		boards:     make(map[string]*Board),
		lists:      make(map[string]*List),
		tasks:      make(map[string]*Task),
		assignees:  make(map[string]*TaskAssignee),
		memberships: map[MembershipKind]map[string]*Membership{
			TeamLeads:    make(map[string]*Membership),
			BoardMembers: make(map[string]*Membership),
		},
		failures: make(map[string]error),
	}
}

// FailOn makes every subsequent call to the named method return err.
// Passing a nil err clears the failure.
func (m *MockStore) FailOn(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, method)
		return
	}
	m.failures[method] = err
}

// Calls returns the method names invoked so far, in order.
func (m *MockStore) Calls() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.calls)
}

// enter records the call and returns any injected failure. Callers hold mu.
func (m *MockStore) enter(method string) error {
	m.calls = append(m.calls, method)
	return m.failures[method]
}

func memberKey(parentID, userID string) string {
	return parentID + ":" + userID
}

func matches(term string, fields ...string) bool {
	if term == "" {
		return true
	}
	term = strings.ToLower(term)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

func paginate[T any](items []T, f ListFilter) *Page[T] {
	total := len(items)
	start := min(int(f.offset()), total)
	end := min(start+f.Limit, total)
	return NewPage(slices.Clone(items[start:end]), total, f)
}

func (m *MockStore) creatorRef(id string) *UserRef {
	u, ok := m.users[id]
	if !ok {
		return nil
	}
	return &UserRef{ID: u.ID, Username: u.Username, Email: u.Email, FullName: u.FullName}
}

// Close is a no-op.
func (m *MockStore) Close() error { return nil }

// CreateUser stores a new user, enforcing unique username and email.
func (m *MockStore) CreateUser(ctx context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateUser"); err != nil {
		return err
	}
	for _, u := range m.users {
		if u.Username == user.Username || u.Email == user.Email {
			return fmt.Errorf("inserting user: %w", ErrConflict)
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	u := *user
	m.users[u.ID] = &u
	return nil
}

func (m *MockStore) findUser(method string, pred func(*User) bool, withHash bool) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failures[method]; err != nil {
		return nil, err
	}
	for _, u := range m.users {
		if pred(u) {
			c := *u
			if !withHash {
				c.PasswordHash = ""
			}
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

// GetUser retrieves a user by ID without the password hash.
func (m *MockStore) GetUser(ctx context.Context, id string) (*User, error) {
	return m.findUser("GetUser", func(u *User) bool { return u.ID == id }, false)
}

// GetUserByEmail retrieves a user by email including the password hash.
func (m *MockStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return m.findUser("GetUserByEmail", func(u *User) bool { return u.Email == email }, true)
}

// GetUserByUsername retrieves a user by username.
func (m *MockStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	return m.findUser("GetUserByUsername", func(u *User) bool { return u.Username == username }, false)
}

// ListUsers returns a page of users, newest first.
func (m *MockStore) ListUsers(ctx context.Context, filter ListFilter) (*Page[User], error) {
	filter.Normalize()
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failures["ListUsers"]; err != nil {
		return nil, err
	}
	var out []User
	for _, u := range m.users {
		if filter.Status != "" && string(u.Role) != filter.Status {
			continue
		}
		if !matches(filter.Search, u.Username, u.Email, u.FullName) {
			continue
		}
		c := *u
		c.PasswordHash = ""
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, filter), nil
}

// CountUsers returns how many of ids exist.
func (m *MockStore) CountUsers(ctx context.Context, ids []string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failures["CountUsers"]; err != nil {
		return 0, err
	}
	seen := make(map[string]bool)
	for _, id := range ids {
		if _, ok := m.users[id]; ok {
			seen[id] = true
		}
	}
	return len(seen), nil
}

// UpdateLastLogin stamps the user's last login time.
func (m *MockStore) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("UpdateLastLogin"); err != nil {
		return err
	}
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	at = at.UTC()
	u.LastLogin = &at
	return nil
}

// DeleteUser removes a user and their memberships and assignments.
func (m *MockStore) DeleteUser(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("DeleteUser"); err != nil {
		return err
	}
	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.users, id)
	for _, rows := range m.memberships {
		for k, r := range rows {
			if r.UserID == id {
				delete(rows, k)
			}
		}
	}
	for k, a := range m.assignees {
		if a.UserID == id {
			delete(m.assignees, k)
		}
	}
	return nil
}

// CreateMembership stores a join row, enforcing the (parent, user) key and
// the existence of both ends.
func (m *MockStore) CreateMembership(ctx context.Context, mem *Membership) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateMembership"); err != nil {
		return err
	}
	rows, ok := m.memberships[mem.Kind]
	if !ok {
		return fmt.Errorf("unknown membership kind %q", mem.Kind)
	}
	parentExists := false
	switch mem.Kind {
	case TeamLeads:
		_, parentExists = m.projects[mem.ParentID]
	case BoardMembers:
		_, parentExists = m.boards[mem.ParentID]
	}
	if _, userExists := m.users[mem.UserID]; !parentExists || !userExists {
		return fmt.Errorf("inserting %s: %w: missing reference", mem.Kind, ErrConflict)
	}
	key := memberKey(mem.ParentID, mem.UserID)
	if _, dup := rows[key]; dup {
		return fmt.Errorf("inserting %s: %w", mem.Kind, ErrConflict)
	}
	now := time.Now().UTC()
	if mem.Role == "" {
		mem.Role = mem.Kind.DefaultRole()
	}
	if mem.AddedAt.IsZero() {
		mem.AddedAt = now
	}
	mem.CreatedAt, mem.UpdatedAt = now, now
	c := *mem
	c.User = nil
	rows[key] = &c
	return nil
}

func (m *MockStore) hydrateMembership(r *Membership) *Membership {
	c := *r
	c.User = m.creatorRef(r.UserID)
	return &c
}

// GetMembership retrieves a single join row.
func (m *MockStore) GetMembership(ctx context.Context, kind MembershipKind, parentID, userID string) (*Membership, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failures["GetMembership"]; err != nil {
		return nil, err
	}
	r, ok := m.memberships[kind][memberKey(parentID, userID)]
	if !ok {
		return nil, ErrNotFound
	}
	return m.hydrateMembership(r), nil
}

func (m *MockStore) selectMemberships(kind MembershipKind, f MembershipFilter) []*Membership {
	var out []*Membership
	for _, r := range m.memberships[kind] {
		if f.ParentID != "" && r.ParentID != f.ParentID {
			continue
		}
		if f.UserID != "" && r.UserID != f.UserID {
			continue
		}
		out = append(out, r)
	}
	return out
}

// ListMemberships returns join rows matching filter, most recently added first.
func (m *MockStore) ListMemberships(ctx context.Context, kind MembershipKind, filter MembershipFilter) ([]*Membership, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failures["ListMemberships"]; err != nil {
		return nil, err
	}
	rows := m.selectMemberships(kind, filter)
	out := make([]*Membership, 0, len(rows))
	for _, r := range rows {
		out = append(out, m.hydrateMembership(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AddedAt.After(out[j].AddedAt) })
	return out, nil
}

// UpdateMembershipRole changes the role on one join row.
func (m *MockStore) UpdateMembershipRole(ctx context.Context, kind MembershipKind, parentID, userID, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("UpdateMembershipRole"); err != nil {
		return err
	}
	r, ok := m.memberships[kind][memberKey(parentID, userID)]
	if !ok {
		return ErrNotFound
	}
	r.Role = role
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// DeleteMemberships removes matching join rows. An empty filter is rejected.
func (m *MockStore) DeleteMemberships(ctx context.Context, kind MembershipKind, filter MembershipFilter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("DeleteMemberships"); err != nil {
		return 0, err
	}
	if filter.ParentID == "" && filter.UserID == "" {
		return 0, fmt.Errorf("deleting %s: empty filter", kind)
	}
	var n int64
	for _, r := range m.selectMemberships(kind, filter) {
		delete(m.memberships[kind], memberKey(r.ParentID, r.UserID))
		n++
	}
	return n, nil
}

// CreateWorkspace stores a new workspace.
func (m *MockStore) CreateWorkspace(ctx context.Context, w *Workspace) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateWorkspace"); err != nil {
		return err
	}
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	w.CreatedAt, w.UpdatedAt = now, now
	c := *w
	m.workspaces[c.ID] = &c
	return nil
}

func (m *MockStore) workspaceView(w *Workspace) WorkspaceView {
	return WorkspaceView{Workspace: *w, Creator: m.creatorRef(w.CreatedBy)}
}

// GetWorkspace retrieves a workspace with its creator.
func (m *MockStore) GetWorkspace(ctx context.Context, id string) (*WorkspaceView, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failures["GetWorkspace"]; err != nil {
		return nil, err
	}
	w, ok := m.workspaces[id]
	if !ok {
		return nil, ErrNotFound
	}
	v := m.workspaceView(w)
	return &v, nil
}

// ListWorkspaces returns a page of workspaces, newest first.
func (m *MockStore) ListWorkspaces(ctx context.Context, filter ListFilter) (*Page[WorkspaceView], error) {
	filter.Normalize()
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []WorkspaceView
	for _, w := range m.workspaces {
		if matches(filter.Search, w.Name) {
			out = append(out, m.workspaceView(w))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, filter), nil
}

// UpdateWorkspace writes the mutable workspace fields.
func (m *MockStore) UpdateWorkspace(ctx context.Context, w *Workspace) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("UpdateWorkspace"); err != nil {
		return err
	}
	cur, ok := m.workspaces[w.ID]
	if !ok {
		return ErrNotFound
	}
	w.UpdatedAt = time.Now().UTC()
	cur.Name, cur.Description, cur.UpdatedAt = w.Name, w.Description, w.UpdatedAt
	return nil
}

// DeleteWorkspace removes a workspace and everything beneath it.
func (m *MockStore) DeleteWorkspace(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("DeleteWorkspace"); err != nil {
		return err
	}
	if _, ok := m.workspaces[id]; !ok {
		return ErrNotFound
	}
	delete(m.workspaces, id)
	for pid, p := range m.projects {
		if p.WorkspaceID == id {
			m.cascadeProject(pid)
		}
	}
	return nil
}

// CreateProject stores a new project. The workspace must exist.
func (m *MockStore) CreateProject(ctx context.Context, p *Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateProject"); err != nil {
		return err
	}
	if _, ok := m.workspaces[p.WorkspaceID]; !ok {
		return fmt.Errorf("inserting project: %w: missing workspace", ErrConflict)
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Status == "" {
		p.Status = ProjectActive
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	c := *p
	m.projects[c.ID] = &c
	return nil
}

func (m *MockStore) projectView(p *Project) ProjectView {
	v := ProjectView{Project: *p, Creator: m.creatorRef(p.CreatedBy)}
	if w, ok := m.workspaces[p.WorkspaceID]; ok {
		v.Workspace = &Ref{ID: w.ID, Title: w.Name}
	}
	return v
}

// GetProject retrieves a project with its workspace and creator.
func (m *MockStore) GetProject(ctx context.Context, id string) (*ProjectView, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failures["GetProject"]; err != nil {
		return nil, err
	}
	p, ok := m.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	v := m.projectView(p)
	return &v, nil
}

// ListProjects returns a page of projects, newest first.
func (m *MockStore) ListProjects(ctx context.Context, filter ListFilter) (*Page[ProjectView], error) {
	filter.Normalize()
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ProjectView
	for _, p := range m.projects {
		if filter.WorkspaceID != "" && p.WorkspaceID != filter.WorkspaceID {
			continue
		}
		if filter.Status != "" && string(p.Status) != filter.Status {
			continue
		}
		if matches(filter.Search, p.Title) {
			out = append(out, m.projectView(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, filter), nil
}

// UpdateProject writes the mutable project fields.
func (m *MockStore) UpdateProject(ctx context.Context, p *Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("UpdateProject"); err != nil {
		return err
	}
	cur, ok := m.projects[p.ID]
	if !ok {
		return ErrNotFound
	}
	p.UpdatedAt = time.Now().UTC()
	cur.Title, cur.Description, cur.Status, cur.UpdatedAt = p.Title, p.Description, p.Status, p.UpdatedAt
	return nil
}

// DeleteProject removes a project and everything beneath it.
func (m *MockStore) DeleteProject(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("DeleteProject"); err != nil {
		return err
	}
	if _, ok := m.projects[id]; !ok {
		return ErrNotFound
	}
	m.cascadeProject(id)
	return nil
}

func (m *MockStore) cascadeProject(id string) {
	delete(m.projects, id)
	for k, r := range m.memberships[TeamLeads] {
		if r.ParentID == id {
			delete(m.memberships[TeamLeads], k)
		}
	}
	for bid, b := range m.boards {
		if b.ProjectID == id {
			m.cascadeBoard(bid)
		}
	}
}

// CreateBoard stores a new board. The project must exist.
func (m *MockStore) CreateBoard(ctx context.Context, b *Board) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateBoard"); err != nil {
		return err
	}
	if _, ok := m.projects[b.ProjectID]; !ok {
		return fmt.Errorf("inserting board: %w: missing project", ErrConflict)
	}
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if b.Status == "" {
		b.Status = BoardActive
	}
	if b.Metadata == nil {
		b.Metadata = Metadata{}
	}
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now
	c := *b
	m.boards[c.ID] = &c
	return nil
}

func (m *MockStore) boardView(b *Board) BoardView {
	v := BoardView{Board: *b, Creator: m.creatorRef(b.CreatedBy)}
	if p, ok := m.projects[b.ProjectID]; ok {
		v.Project = &Ref{ID: p.ID, Title: p.Title}
	}
	return v
}

// GetBoard retrieves a board with its project and creator.
func (m *MockStore) GetBoard(ctx context.Context, id string) (*BoardView, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failures["GetBoard"]; err != nil {
		return nil, err
	}
	b, ok := m.boards[id]
	if !ok {
		return nil, ErrNotFound
	}
	v := m.boardView(b)
	return &v, nil
}

// ListBoards returns a page of boards, newest first.
func (m *MockStore) ListBoards(ctx context.Context, filter ListFilter) (*Page[BoardView], error) {
	filter.Normalize()
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []BoardView
	for _, b := range m.boards {
		if filter.ProjectID != "" && b.ProjectID != filter.ProjectID {
			continue
		}
		if filter.Status != "" && string(b.Status) != filter.Status {
			continue
		}
		if matches(filter.Search, b.Title) {
			out = append(out, m.boardView(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, filter), nil
}

// UpdateBoard writes the mutable board fields.
func (m *MockStore) UpdateBoard(ctx context.Context, b *Board) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("UpdateBoard"); err != nil {
		return err
	}
	cur, ok := m.boards[b.ID]
	if !ok {
		return ErrNotFound
	}
	b.UpdatedAt = time.Now().UTC()
	cur.Title, cur.Description, cur.Status, cur.Metadata, cur.UpdatedAt = b.Title, b.Description, b.Status, b.Metadata, b.UpdatedAt
	return nil
}

// DeleteBoard removes a board and everything beneath it.
func (m *MockStore) DeleteBoard(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("DeleteBoard"); err != nil {
		return err
	}
	if _, ok := m.boards[id]; !ok {
		return ErrNotFound
	}
	m.cascadeBoard(id)
	return nil
}

func (m *MockStore) cascadeBoard(id string) {
	delete(m.boards, id)
	for k, r := range m.memberships[BoardMembers] {
		if r.ParentID == id {
			delete(m.memberships[BoardMembers], k)
		}
	}
	for lid, l := range m.lists {
		if l.BoardID == id {
			m.cascadeList(lid)
		}
	}
}

// CreateList stores a new list. The board must exist.
func (m *MockStore) CreateList(ctx context.Context, l *List) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateList"); err != nil {
		return err
	}
	if _, ok := m.boards[l.BoardID]; !ok {
		return fmt.Errorf("inserting list: %w: missing board", ErrConflict)
	}
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if l.Status == "" {
		l.Status = ListActive
	}
	if l.Metadata == nil {
		l.Metadata = Metadata{}
	}
	now := time.Now().UTC()
	l.CreatedAt, l.UpdatedAt = now, now
	c := *l
	m.lists[c.ID] = &c
	return nil
}

func (m *MockStore) listView(l *List) ListView {
	v := ListView{List: *l, Creator: m.creatorRef(l.CreatedBy)}
	if p, ok := m.projects[l.ProjectID]; ok {
		v.Project = &Ref{ID: p.ID, Title: p.Title}
	}
	if b, ok := m.boards[l.BoardID]; ok {
		v.Board = &Ref{ID: b.ID, Title: b.Title}
	}
	return v
}

// GetList retrieves a list with its parents and creator.
func (m *MockStore) GetList(ctx context.Context, id string) (*ListView, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failures["GetList"]; err != nil {
		return nil, err
	}
	l, ok := m.lists[id]
	if !ok {
		return nil, ErrNotFound
	}
	v := m.listView(l)
	return &v, nil
}

// ListLists returns a page of lists ordered by position.
func (m *MockStore) ListLists(ctx context.Context, filter ListFilter) (*Page[ListView], error) {
	filter.Normalize()
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ListView
	for _, l := range m.lists {
		if filter.ProjectID != "" && l.ProjectID != filter.ProjectID {
			continue
		}
		if filter.BoardID != "" && l.BoardID != filter.BoardID {
			continue
		}
		if filter.Status != "" && string(l.Status) != filter.Status {
			continue
		}
		if matches(filter.Search, l.Title) {
			out = append(out, m.listView(l))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return paginate(out, filter), nil
}

// UpdateList writes the mutable list fields.
func (m *MockStore) UpdateList(ctx context.Context, l *List) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("UpdateList"); err != nil {
		return err
	}
	cur, ok := m.lists[l.ID]
	if !ok {
		return ErrNotFound
	}
	l.UpdatedAt = time.Now().UTC()
	cur.Title, cur.Description, cur.Status = l.Title, l.Description, l.Status
	cur.Position, cur.Metadata, cur.UpdatedAt = l.Position, l.Metadata, l.UpdatedAt
	return nil
}

// DeleteList removes a list and its tasks.
func (m *MockStore) DeleteList(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("DeleteList"); err != nil {
		return err
	}
	if _, ok := m.lists[id]; !ok {
		return ErrNotFound
	}
	m.cascadeList(id)
	return nil
}

func (m *MockStore) cascadeList(id string) {
	delete(m.lists, id)
	for tid, t := range m.tasks {
		if t.ListID == id {
			m.cascadeTask(tid)
		}
	}
}

// CreateTask stores a new task. The list must exist.
func (m *MockStore) CreateTask(ctx context.Context, t *Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateTask"); err != nil {
		return err
	}
	if _, ok := m.lists[t.ListID]; !ok {
		return fmt.Errorf("inserting task: %w: missing list", ErrConflict)
	}
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
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	c := *t
	m.tasks[c.ID] = &c
	return nil
}

func (m *MockStore) taskView(t *Task) TaskView {
	v := TaskView{Task: *t, Creator: m.creatorRef(t.CreatedBy)}
	if p, ok := m.projects[t.ProjectID]; ok {
		v.Project = &Ref{ID: p.ID, Title: p.Title}
	}
	if b, ok := m.boards[t.BoardID]; ok {
		v.Board = &Ref{ID: b.ID, Title: b.Title}
	}
	if l, ok := m.lists[t.ListID]; ok {
		v.List = &Ref{ID: l.ID, Title: l.Title}
	}
	return v
}

// GetTask retrieves a task with its parents and creator.
func (m *MockStore) GetTask(ctx context.Context, id string) (*TaskView, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failures["GetTask"]; err != nil {
		return nil, err
	}
	t, ok := m.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	v := m.taskView(t)
	return &v, nil
}

func (m *MockStore) isAssigned(taskID, userID string) bool {
	for _, a := range m.assignees {
		if a.TaskID == taskID && a.UserID == userID {
			return true
		}
	}
	return false
}

// ListTasks returns a page of tasks ordered by position.
func (m *MockStore) ListTasks(ctx context.Context, filter ListFilter) (*Page[TaskView], error) {
	filter.Normalize()
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []TaskView
	for _, t := range m.tasks {
		switch {
		case filter.ProjectID != "" && t.ProjectID != filter.ProjectID,
			filter.BoardID != "" && t.BoardID != filter.BoardID,
			filter.ListID != "" && t.ListID != filter.ListID,
			filter.Status != "" && string(t.Status) != filter.Status,
			filter.Priority != "" && string(t.Priority) != filter.Priority,
			filter.AssigneeID != "" && !m.isAssigned(t.ID, filter.AssigneeID),
			!matches(filter.Search, t.Title, t.Description):
			continue
		}
		out = append(out, m.taskView(t))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return paginate(out, filter), nil
}

// UpdateTask writes the mutable task fields.
func (m *MockStore) UpdateTask(ctx context.Context, t *Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("UpdateTask"); err != nil {
		return err
	}
	cur, ok := m.tasks[t.ID]
	if !ok {
		return ErrNotFound
	}
	t.UpdatedAt = time.Now().UTC()
	cur.Title, cur.Description, cur.Status, cur.Priority = t.Title, t.Description, t.Status, t.Priority
	cur.Position, cur.DueDate, cur.CompletedAt = t.Position, t.DueDate, t.CompletedAt
	cur.Metadata, cur.UpdatedAt = t.Metadata, t.UpdatedAt
	return nil
}

// DeleteTask removes a task and its assignments.
func (m *MockStore) DeleteTask(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("DeleteTask"); err != nil {
		return err
	}
	if _, ok := m.tasks[id]; !ok {
		return ErrNotFound
	}
	m.cascadeTask(id)
	return nil
}

func (m *MockStore) cascadeTask(id string) {
	delete(m.tasks, id)
	for k, a := range m.assignees {
		if a.TaskID == id {
			delete(m.assignees, k)
		}
	}
}

// CreateTaskAssignees stores a batch of assignments. Any duplicate pair
// rejects the whole batch.
func (m *MockStore) CreateTaskAssignees(ctx context.Context, batch []*TaskAssignee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateTaskAssignees"); err != nil {
		return err
	}
	seen := make(map[string]bool)
	for _, a := range batch {
		key := memberKey(a.TaskID, a.UserID)
		if seen[key] || m.isAssigned(a.TaskID, a.UserID) {
			return fmt.Errorf("inserting task assignees: %w", ErrConflict)
		}
		if _, ok := m.tasks[a.TaskID]; !ok {
			return fmt.Errorf("inserting task assignees: %w: missing task", ErrConflict)
		}
		if _, ok := m.users[a.UserID]; !ok {
			return fmt.Errorf("inserting task assignees: %w: missing user", ErrConflict)
		}
		seen[key] = true
	}
	now := time.Now().UTC()
	for _, a := range batch {
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
		c := *a
		m.assignees[c.ID] = &c
	}
	return nil
}

func (m *MockStore) assigneeView(a *TaskAssignee) *TaskAssigneeView {
	v := &TaskAssigneeView{TaskAssignee: *a, User: m.creatorRef(a.UserID), Assigner: m.creatorRef(a.AssignedBy)}
	if t, ok := m.tasks[a.TaskID]; ok {
		v.Task = &Ref{ID: t.ID, Title: t.Title}
	}
	return v
}

// GetTaskAssignee retrieves one assignment by ID.
func (m *MockStore) GetTaskAssignee(ctx context.Context, id string) (*TaskAssigneeView, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assignees[id]
	if !ok {
		return nil, ErrNotFound
	}
	return m.assigneeView(a), nil
}

func (m *MockStore) selectAssignees(f TaskAssigneeFilter) []*TaskAssignee {
	var out []*TaskAssignee
	for _, a := range m.assignees {
		if f.TaskID != "" && a.TaskID != f.TaskID {
			continue
		}
		if f.UserID != "" && a.UserID != f.UserID {
			continue
		}
		if len(f.UserIDs) > 0 && !slices.Contains(f.UserIDs, a.UserID) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// ListTaskAssignees returns assignments matching filter, most recent first.
func (m *MockStore) ListTaskAssignees(ctx context.Context, filter TaskAssigneeFilter) ([]*TaskAssigneeView, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failures["ListTaskAssignees"]; err != nil {
		return nil, err
	}
	rows := m.selectAssignees(filter)
	out := make([]*TaskAssigneeView, 0, len(rows))
	for _, a := range rows {
		out = append(out, m.assigneeView(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssignedAt.After(out[j].AssignedAt) })
	return out, nil
}

// UpdateTaskAssignee writes the assignee, assigner and metadata.
func (m *MockStore) UpdateTaskAssignee(ctx context.Context, a *TaskAssignee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("UpdateTaskAssignee"); err != nil {
		return err
	}
	cur, ok := m.assignees[a.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.UserID != a.UserID && m.isAssigned(cur.TaskID, a.UserID) {
		return fmt.Errorf("updating task assignee: %w", ErrConflict)
	}
	a.UpdatedAt = time.Now().UTC()
	cur.UserID, cur.AssignedBy, cur.AssignedAt = a.UserID, a.AssignedBy, a.AssignedAt
	cur.Metadata, cur.UpdatedAt = a.Metadata, a.UpdatedAt
	return nil
}

// DeleteTaskAssignees removes matching assignments. An empty filter is rejected.
func (m *MockStore) DeleteTaskAssignees(ctx context.Context, filter TaskAssigneeFilter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("DeleteTaskAssignees"); err != nil {
		return 0, err
	}
	if filter.TaskID == "" && filter.UserID == "" && len(filter.UserIDs) == 0 {
		return 0, fmt.Errorf("deleting task assignees: empty filter")
	}
	var n int64
	for _, a := range m.selectAssignees(filter) {
		delete(m.assignees, a.ID)
		n++
	}
	return n, nil
}
