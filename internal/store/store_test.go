// ABOUTME: Shared fixtures and core tests for the SQL store
// ABOUTME: Covers schema creation, users, pagination and the workspace chain

package store

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *SQLStore {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

func createTestUser(t *testing.T, s *SQLStore, username string, role Role) *User {
	t.Helper()
	u := &User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash-" + username,
		FullName:     "User " + username,
		Role:         role,
	}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

// chain is a workspace → project → board → list fixture.
type chain struct {
	Admin     *User
	Workspace *Workspace
	Project   *Project
	Board     *Board
	List      *List
}

func createTestChain(t *testing.T, s *SQLStore) *chain {
	t.Helper()
	ctx := context.Background()

	c := &chain{Admin: createTestUser(t, s, "root", RoleAdmin)}

	c.Workspace = &Workspace{Name: "W1", CreatedBy: c.Admin.ID}
	require.NoError(t, s.CreateWorkspace(ctx, c.Workspace))

	c.Project = &Project{WorkspaceID: c.Workspace.ID, Title: "P1", CreatedBy: c.Admin.ID}
	require.NoError(t, s.CreateProject(ctx, c.Project))

	c.Board = &Board{ProjectID: c.Project.ID, Title: "B1", CreatedBy: c.Admin.ID}
	require.NoError(t, s.CreateBoard(ctx, c.Board))

	c.List = &List{ProjectID: c.Project.ID, BoardID: c.Board.ID, Title: "L1", CreatedBy: c.Admin.ID}
	require.NoError(t, s.CreateList(ctx, c.List))

	return c
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "subdir", "nested", "test.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "database file should exist")
}

func TestNewSQLiteStore_ReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	u := createTestUser(t, store, "alice", RoleUser)
	require.NoError(t, store.Close())

	store, err = NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.GetUser(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("mysql", "whatever")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")
}

func TestUsers_CreateAndGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	phone := "+1-555-0100"
	u := &User{
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "secret-hash",
		FullName:     "Alice Example",
		PhoneNumber:  &phone,
		Role:         RoleTeamLead,
	}
	require.NoError(t, store.CreateUser(ctx, u))
	assert.NotEmpty(t, u.ID)

	got, err := store.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, RoleTeamLead, got.Role)
	require.NotNil(t, got.PhoneNumber)
	assert.Equal(t, phone, *got.PhoneNumber)
	assert.Nil(t, got.LastLogin)
	assert.Empty(t, got.PasswordHash, "GetUser must not expose the hash")

	byEmail, err := store.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "secret-hash", byEmail.PasswordHash)

	byName, err := store.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)
	assert.Empty(t, byName.PasswordHash)
}

func TestUsers_DuplicateUsernameOrEmail(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	createTestUser(t, store, "alice", RoleUser)

	err := store.CreateUser(ctx, &User{Username: "alice", Email: "other@example.com", PasswordHash: "x", Role: RoleUser})
	assert.ErrorIs(t, err, ErrConflict)

	err = store.CreateUser(ctx, &User{Username: "other", Email: "alice@example.com", PasswordHash: "x", Role: RoleUser})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestUsers_RejectsUnknownRole(t *testing.T) {
	store := setupTestStore(t)
	err := store.CreateUser(context.Background(), &User{Username: "x", Email: "x@example.com", PasswordHash: "x", Role: "superuser"})
	assert.Error(t, err)
}

func TestUsers_NotFound(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.GetUserByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, store.DeleteUser(ctx, "missing"), ErrNotFound)
	assert.ErrorIs(t, store.UpdateLastLogin(ctx, "missing", time.Now()), ErrNotFound)
}

func TestUsers_UpdateLastLoginAndDelete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	u := createTestUser(t, store, "alice", RoleUser)

	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	require.NoError(t, store.UpdateLastLogin(ctx, u.ID, at))

	got, err := store.GetUser(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLogin)
	assert.True(t, got.LastLogin.Equal(at))

	require.NoError(t, store.DeleteUser(ctx, u.ID))
	_, err = store.GetUser(ctx, u.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUsers_ListAndCount(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	a := createTestUser(t, store, "alice", RoleUser)
	b := createTestUser(t, store, "bob", RoleTeamLead)
	createTestUser(t, store, "carol", RoleUser)

	page, err := store.ListUsers(ctx, ListFilter{Status: string(RoleUser)})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	page, err = store.ListUsers(ctx, ListFilter{Search: "BOB"})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, b.ID, page.Data[0].ID)

	n, err := store.CountUsers(ctx, []string{a.ID, b.ID, "missing"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestNewPage(t *testing.T) {
	f := ListFilter{Page: 2, Limit: 10}
	p := NewPage([]int{1, 2, 3}, 23, f)

	assert.Equal(t, 3, p.TotalPages)
	assert.True(t, p.HasNextPage)
	assert.True(t, p.HasPreviousPage)

	empty := NewPage[int](nil, 0, ListFilter{Page: 1, Limit: 10})
	assert.NotNil(t, empty.Data)
	assert.Equal(t, 0, empty.TotalPages)
	assert.False(t, empty.HasNextPage)
}

func TestListFilter_Normalize(t *testing.T) {
	f := ListFilter{Page: -3, Limit: 5000}
	f.Normalize()
	assert.Equal(t, DefaultPage, f.Page)
	assert.Equal(t, MaxLimit, f.Limit)

	f = ListFilter{}
	f.Normalize()
	assert.Equal(t, DefaultLimit, f.Limit)

	f = ListFilter{Page: math.MaxInt / 50, Limit: 100}
	f.Normalize()
	assert.Equal(t, MaxPage, f.Page)
	assert.Positive(t, f.offset())
}

func TestListing_HugePageIsEmpty(t *testing.T) {
	store := setupTestStore(t)
	createTestChain(t, store)

	page, err := store.ListWorkspaces(context.Background(), ListFilter{Page: math.MaxInt / 50, Limit: 100})
	require.NoError(t, err)
	assert.Empty(t, page.Data)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, MaxPage, page.Page)
}

func TestWorkspaceChain_HydratesRelations(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	c := createTestChain(t, store)

	w, err := store.GetWorkspace(ctx, c.Workspace.ID)
	require.NoError(t, err)
	require.NotNil(t, w.Creator)
	assert.Equal(t, "root", w.Creator.Username)

	p, err := store.GetProject(ctx, c.Project.ID)
	require.NoError(t, err)
	assert.Equal(t, ProjectActive, p.Status)
	require.NotNil(t, p.Workspace)
	assert.Equal(t, "W1", p.Workspace.Title)

	b, err := store.GetBoard(ctx, c.Board.ID)
	require.NoError(t, err)
	require.NotNil(t, b.Project)
	assert.Equal(t, "P1", b.Project.Title)
	assert.NotNil(t, b.Metadata)

	l, err := store.GetList(ctx, c.List.ID)
	require.NoError(t, err)
	assert.Equal(t, ListActive, l.Status)
	assert.Equal(t, 0, l.Position)
	require.NotNil(t, l.Board)
	assert.Equal(t, "B1", l.Board.Title)
}

func TestWorkspaceChain_UpdateKeepsParents(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	c := createTestChain(t, store)

	other := &Project{WorkspaceID: c.Workspace.ID, Title: "P2", CreatedBy: c.Admin.ID}
	require.NoError(t, store.CreateProject(ctx, other))

	b := c.Board
	b.Title = "renamed"
	b.ProjectID = other.ID // must be ignored
	b.Metadata = Metadata{"color": "blue"}
	require.NoError(t, store.UpdateBoard(ctx, b))

	got, err := store.GetBoard(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
	assert.Equal(t, c.Project.ID, got.ProjectID)
	assert.Equal(t, "blue", got.Metadata["color"])
}

func TestWorkspaceChain_DeleteCascades(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	c := createTestChain(t, store)

	task := &Task{ProjectID: c.Project.ID, BoardID: c.Board.ID, ListID: c.List.ID, Title: "T1", CreatedBy: c.Admin.ID}
	require.NoError(t, store.CreateTask(ctx, task))

	require.NoError(t, store.DeleteWorkspace(ctx, c.Workspace.ID))

	_, err := store.GetProject(ctx, c.Project.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetBoard(ctx, c.Board.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetTask(ctx, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, store.DeleteWorkspace(ctx, c.Workspace.ID), ErrNotFound)
}

func TestListing_SearchIsCaseInsensitive(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	c := createTestChain(t, store)

	require.NoError(t, store.CreateBoard(ctx, &Board{ProjectID: c.Project.ID, Title: "Roadmap Q3", CreatedBy: c.Admin.ID}))

	page, err := store.ListBoards(ctx, ListFilter{Search: "roadMAP"})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "Roadmap Q3", page.Data[0].Title)
	require.NotNil(t, page.Data[0].Project, "search returns hydrated boards")

	page, err = store.ListBoards(ctx, ListFilter{ProjectID: c.Project.ID, Status: string(BoardActive)})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
}

func TestListing_SearchWildcardsAreLiteral(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	c := createTestChain(t, store)

	require.NoError(t, store.CreateBoard(ctx, &Board{ProjectID: c.Project.ID, Title: "50% done", CreatedBy: c.Admin.ID}))
	require.NoError(t, store.CreateBoard(ctx, &Board{ProjectID: c.Project.ID, Title: `C:\tmp`, CreatedBy: c.Admin.ID}))

	for term, want := range map[string]int{"%": 1, "_": 0, "50%": 1, `\`: 1, "b_": 0} {
		page, err := store.ListBoards(ctx, ListFilter{Search: term})
		require.NoError(t, err)
		assert.Equal(t, want, page.Total, "search %q", term)
	}
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	sentinel := errors.New("boom")

	err := store.WithTx(ctx, func(tx Store) error {
		require.NoError(t, tx.CreateUser(ctx, &User{Username: "ghost", Email: "ghost@example.com", PasswordHash: "x", Role: RoleUser}))
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)

	_, err = store.GetUserByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWithTx_Commits(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(tx Store) error {
		return tx.CreateUser(ctx, &User{Username: "kept", Email: "kept@example.com", PasswordHash: "x", Role: RoleUser})
	})
	require.NoError(t, err)

	_, err = store.GetUserByUsername(ctx, "kept")
	assert.NoError(t, err)
}
