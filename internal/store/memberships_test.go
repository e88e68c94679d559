// ABOUTME: Tests for the team-lead and board-member join tables
// ABOUTME: Covers uniqueness, bulk removal and cascade on parent delete

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemberships_CreateAndGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	c := createTestChain(t, store)
	u := createTestUser(t, store, "u1", RoleUser)

	m := &Membership{Kind: BoardMembers, ParentID: c.Board.ID, UserID: u.ID}
	require.NoError(t, store.CreateMembership(ctx, m))
	assert.Equal(t, "member", m.Role)

	got, err := store.GetMembership(ctx, BoardMembers, c.Board.ID, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "member", got.Role)
	require.NotNil(t, got.User)
	assert.Equal(t, "u1", got.User.Username)

	_, err = store.GetMembership(ctx, TeamLeads, c.Board.ID, u.ID)
	assert.ErrorIs(t, err, ErrNotFound, "kinds must not bleed into each other")
}

func TestMemberships_DuplicatePairConflicts(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	c := createTestChain(t, store)
	u := createTestUser(t, store, "tl", RoleTeamLead)

	require.NoError(t, store.CreateMembership(ctx, &Membership{Kind: TeamLeads, ParentID: c.Project.ID, UserID: u.ID}))
	err := store.CreateMembership(ctx, &Membership{Kind: TeamLeads, ParentID: c.Project.ID, UserID: u.ID})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestMemberships_MissingParentConflicts(t *testing.T) {
	store := setupTestStore(t)
	u := createTestUser(t, store, "u1", RoleUser)

	err := store.CreateMembership(context.Background(), &Membership{Kind: BoardMembers, ParentID: "no-such-board", UserID: u.ID})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestMemberships_ListUpdateDelete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	c := createTestChain(t, store)
	u1 := createTestUser(t, store, "u1", RoleUser)
	u2 := createTestUser(t, store, "u2", RoleUser)

	require.NoError(t, store.CreateMembership(ctx, &Membership{Kind: BoardMembers, ParentID: c.Board.ID, UserID: u1.ID}))
	require.NoError(t, store.CreateMembership(ctx, &Membership{Kind: BoardMembers, ParentID: c.Board.ID, UserID: u2.ID, Role: "viewer"}))

	byBoard, err := store.ListMemberships(ctx, BoardMembers, MembershipFilter{ParentID: c.Board.ID})
	require.NoError(t, err)
	assert.Len(t, byBoard, 2)

	byUser, err := store.ListMemberships(ctx, BoardMembers, MembershipFilter{UserID: u2.ID})
	require.NoError(t, err)
	require.Len(t, byUser, 1)
	assert.Equal(t, "viewer", byUser[0].Role)

	require.NoError(t, store.UpdateMembershipRole(ctx, BoardMembers, c.Board.ID, u2.ID, "editor"))
	assert.ErrorIs(t, store.UpdateMembershipRole(ctx, BoardMembers, c.Board.ID, "missing", "editor"), ErrNotFound)

	n, err := store.DeleteMemberships(ctx, BoardMembers, MembershipFilter{ParentID: c.Board.ID, UserID: u1.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = store.DeleteMemberships(ctx, BoardMembers, MembershipFilter{ParentID: c.Board.ID, UserID: u1.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	_, err = store.DeleteMemberships(ctx, BoardMembers, MembershipFilter{})
	assert.Error(t, err, "empty filter must not wipe the table")
}

func TestMemberships_CascadeOnParentDelete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	c := createTestChain(t, store)
	tl := createTestUser(t, store, "tl", RoleTeamLead)
	u := createTestUser(t, store, "u1", RoleUser)

	require.NoError(t, store.CreateMembership(ctx, &Membership{Kind: TeamLeads, ParentID: c.Project.ID, UserID: tl.ID}))
	require.NoError(t, store.CreateMembership(ctx, &Membership{Kind: BoardMembers, ParentID: c.Board.ID, UserID: u.ID}))

	require.NoError(t, store.DeleteBoard(ctx, c.Board.ID))
	members, err := store.ListMemberships(ctx, BoardMembers, MembershipFilter{UserID: u.ID})
	require.NoError(t, err)
	assert.Empty(t, members)

	require.NoError(t, store.DeleteProject(ctx, c.Project.ID))
	leads, err := store.ListMemberships(ctx, TeamLeads, MembershipFilter{UserID: tl.ID})
	require.NoError(t, err)
	assert.Empty(t, leads)
}

func TestMembershipKind_Unknown(t *testing.T) {
	store := setupTestStore(t)
	err := store.CreateMembership(context.Background(), &Membership{Kind: "owner", ParentID: "p", UserID: "u"})
	assert.Error(t, err)
}
