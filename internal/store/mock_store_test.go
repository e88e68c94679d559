// ABOUTME: Tests for MockStore
// ABOUTME: Ensures the in-memory store honors the same contracts as SQLStore

package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockStore_UserUniqueness(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()

	require.NoError(t, m.CreateUser(ctx, &User{Username: "a", Email: "a@example.com", PasswordHash: "h", Role: RoleUser}))
	err := m.CreateUser(ctx, &User{Username: "a", Email: "b@example.com", PasswordHash: "h", Role: RoleUser})
	assert.ErrorIs(t, err, ErrConflict)

	u, err := m.GetUserByUsername(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, u.PasswordHash)

	u, err = m.GetUserByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "h", u.PasswordHash)
}

func TestMockStore_FailOn(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()
	boom := errors.New("boom")

	m.FailOn("CreateUser", boom)
	err := m.CreateUser(ctx, &User{Username: "a", Email: "a@example.com", Role: RoleUser})
	assert.ErrorIs(t, err, boom)

	m.FailOn("CreateUser", nil)
	require.NoError(t, m.CreateUser(ctx, &User{Username: "a", Email: "a@example.com", Role: RoleUser}))
	assert.Equal(t, []string{"CreateUser", "CreateUser"}, m.Calls())
}

func TestMockStore_MembershipsAndCascade(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()

	admin := &User{Username: "root", Email: "root@example.com", Role: RoleAdmin}
	require.NoError(t, m.CreateUser(ctx, admin))
	w := &Workspace{Name: "W", CreatedBy: admin.ID}
	require.NoError(t, m.CreateWorkspace(ctx, w))
	p := &Project{WorkspaceID: w.ID, Title: "P", CreatedBy: admin.ID}
	require.NoError(t, m.CreateProject(ctx, p))
	b := &Board{ProjectID: p.ID, Title: "B", CreatedBy: admin.ID}
	require.NoError(t, m.CreateBoard(ctx, b))

	require.NoError(t, m.CreateMembership(ctx, &Membership{Kind: BoardMembers, ParentID: b.ID, UserID: admin.ID}))
	err := m.CreateMembership(ctx, &Membership{Kind: BoardMembers, ParentID: b.ID, UserID: admin.ID})
	assert.ErrorIs(t, err, ErrConflict)

	err = m.CreateMembership(ctx, &Membership{Kind: TeamLeads, ParentID: "nope", UserID: admin.ID})
	assert.ErrorIs(t, err, ErrConflict)

	require.NoError(t, m.DeleteWorkspace(ctx, w.ID))
	_, err = m.GetBoard(ctx, b.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.GetMembership(ctx, BoardMembers, b.ID, admin.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMockStore_TaskOrderingAndPaging(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()

	admin := &User{Username: "root", Email: "root@example.com", Role: RoleAdmin}
	require.NoError(t, m.CreateUser(ctx, admin))
	w := &Workspace{Name: "W", CreatedBy: admin.ID}
	require.NoError(t, m.CreateWorkspace(ctx, w))
	p := &Project{WorkspaceID: w.ID, Title: "P", CreatedBy: admin.ID}
	require.NoError(t, m.CreateProject(ctx, p))
	b := &Board{ProjectID: p.ID, Title: "B", CreatedBy: admin.ID}
	require.NoError(t, m.CreateBoard(ctx, b))
	l := &List{ProjectID: p.ID, BoardID: b.ID, Title: "L", CreatedBy: admin.ID}
	require.NoError(t, m.CreateList(ctx, l))

	for _, pos := range []int{3, 1, 2} {
		require.NoError(t, m.CreateTask(ctx, &Task{ProjectID: p.ID, BoardID: b.ID, ListID: l.ID, Title: "t", Position: pos, CreatedBy: admin.ID}))
	}

	page, err := m.ListTasks(ctx, ListFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Data, 2)
	assert.Equal(t, 1, page.Data[0].Position)
	assert.Equal(t, 2, page.Data[1].Position)
	assert.True(t, page.HasNextPage)
}
