// ABOUTME: Tests for the membership registry
// ABOUTME: Covers duplicate pairs, missing pairs and bulk removal semantics

package membership

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/trellis/internal/apperr"
	"github.com/2389/trellis/internal/store"
)

type fixture struct {
	store   *store.MockStore
	project *store.Project
	board   *store.Board
	users   []*store.User
}

func newFixture(t *testing.T, nUsers int) *fixture {
	t.Helper()
	ctx := context.Background()
	m := store.NewMockStore()
	f := &fixture{store: m}

	for i := 0; i < nUsers; i++ {
		u := &store.User{Username: string(rune('a' + i)), Email: string(rune('a'+i)) + "@example.com", Role: store.RoleUser}
		require.NoError(t, m.CreateUser(ctx, u))
		f.users = append(f.users, u)
	}
	w := &store.Workspace{Name: "W", CreatedBy: f.users[0].ID}
	require.NoError(t, m.CreateWorkspace(ctx, w))
	f.project = &store.Project{WorkspaceID: w.ID, Title: "P", CreatedBy: f.users[0].ID}
	require.NoError(t, m.CreateProject(ctx, f.project))
	f.board = &store.Board{ProjectID: f.project.ID, Title: "B", CreatedBy: f.users[0].ID}
	require.NoError(t, m.CreateBoard(ctx, f.board))
	return f
}

func TestCreate_DefaultRoleAndConflict(t *testing.T) {
	f := newFixture(t, 1)
	reg := NewBoardMembers(f.store, nil)
	ctx := context.Background()

	m, err := reg.Create(ctx, f.board.ID, f.users[0].ID, "")
	require.NoError(t, err)
	assert.Equal(t, "member", m.Role)

	_, err = reg.Create(ctx, f.board.ID, f.users[0].ID, "")
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestCreate_StorageRaceIsConflict(t *testing.T) {
	f := newFixture(t, 1)
	f.store.FailOn("CreateMembership", store.ErrConflict)
	reg := NewTeamLeads(f.store, nil)

	_, err := reg.Create(context.Background(), f.project.ID, f.users[0].ID, "")
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestTeamLeads_DefaultRole(t *testing.T) {
	f := newFixture(t, 1)
	reg := NewTeamLeads(f.store, nil)

	m, err := reg.Create(context.Background(), f.project.ID, f.users[0].ID, "")
	require.NoError(t, err)
	assert.Equal(t, "team_lead", m.Role)
	assert.Equal(t, store.TeamLeads, m.Kind)
}

func TestGetAndExists(t *testing.T) {
	f := newFixture(t, 2)
	reg := NewBoardMembers(f.store, nil)
	ctx := context.Background()

	_, err := reg.Create(ctx, f.board.ID, f.users[0].ID, "")
	require.NoError(t, err)

	ok, err := reg.Exists(ctx, f.board.ID, f.users[0].ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = reg.Exists(ctx, f.board.ID, f.users[1].ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = reg.Get(ctx, f.board.ID, f.users[1].ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestExists_PropagatesLookupFailure(t *testing.T) {
	f := newFixture(t, 1)
	boom := errors.New("db down")
	f.store.FailOn("GetMembership", boom)
	reg := NewBoardMembers(f.store, nil)

	_, err := reg.Exists(context.Background(), f.board.ID, f.users[0].ID)
	assert.ErrorIs(t, err, boom)
}

func TestRemove(t *testing.T) {
	f := newFixture(t, 1)
	reg := NewBoardMembers(f.store, nil)
	ctx := context.Background()

	err := reg.Remove(ctx, f.board.ID, f.users[0].ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = reg.Create(ctx, f.board.ID, f.users[0].ID, "")
	require.NoError(t, err)
	require.NoError(t, reg.Remove(ctx, f.board.ID, f.users[0].ID))
}

func TestRemoveByParentAndUser_NeverFailOnZeroRows(t *testing.T) {
	f := newFixture(t, 3)
	reg := NewBoardMembers(f.store, nil)
	ctx := context.Background()

	assert.NoError(t, reg.RemoveByParent(ctx, f.board.ID))
	assert.NoError(t, reg.RemoveByUser(ctx, f.users[0].ID))

	for _, u := range f.users {
		_, err := reg.Create(ctx, f.board.ID, u.ID, "")
		require.NoError(t, err)
	}

	require.NoError(t, reg.RemoveByUser(ctx, f.users[0].ID))
	left, err := reg.ListByParent(ctx, f.board.ID)
	require.NoError(t, err)
	assert.Len(t, left, 2)

	require.NoError(t, reg.RemoveByParent(ctx, f.board.ID))
	left, err = reg.ListByParent(ctx, f.board.ID)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestUpdate(t *testing.T) {
	f := newFixture(t, 1)
	reg := NewBoardMembers(f.store, nil)
	ctx := context.Background()

	_, err := reg.Update(ctx, f.board.ID, f.users[0].ID, "viewer")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = reg.Create(ctx, f.board.ID, f.users[0].ID, "")
	require.NoError(t, err)

	m, err := reg.Update(ctx, f.board.ID, f.users[0].ID, "viewer")
	require.NoError(t, err)
	assert.Equal(t, "viewer", m.Role)

	byUser, err := reg.ListByUser(ctx, f.users[0].ID)
	require.NoError(t, err)
	require.Len(t, byUser, 1)
	assert.Equal(t, "viewer", byUser[0].Role)

	_, err = reg.Update(ctx, f.board.ID, f.users[0].ID, "")
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))
}
