// ABOUTME: Tests for registration, login, refresh and validation
// ABOUTME: Covers selector rules and rollback on both transactional and plain stores

package auth

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/trellis/internal/apperr"
	"github.com/2389/trellis/internal/identity"
	"github.com/2389/trellis/internal/membership"
	"github.com/2389/trellis/internal/store"
)

const testAdminKey = "let-me-in"

type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "plain:" + p, nil }
func (plainHasher) Verify(h, p string) bool       { return h == "plain:"+p }

type fixture struct {
	svc     *Service
	users   *identity.Service
	members *membership.Registry
	leads   *membership.Registry
	project *store.Project
	board   *store.Board
}

func newFixture(t *testing.T, s store.Store) *fixture {
	t.Helper()
	ctx := context.Background()

	owner := &store.User{Username: "owner", Email: "owner@example.com", Role: store.RoleAdmin, PasswordHash: "x"}
	require.NoError(t, s.CreateUser(ctx, owner))
	w := &store.Workspace{Name: "W", CreatedBy: owner.ID}
	require.NoError(t, s.CreateWorkspace(ctx, w))
	p := &store.Project{WorkspaceID: w.ID, Title: "P", CreatedBy: owner.ID}
	require.NoError(t, s.CreateProject(ctx, p))
	b := &store.Board{ProjectID: p.ID, Title: "B", CreatedBy: owner.ID}
	require.NoError(t, s.CreateBoard(ctx, b))

	users := identity.New(s, plainHasher{}, nil)
	leads := membership.NewTeamLeads(s, nil)
	members := membership.NewBoardMembers(s, nil)
	issuer := NewIssuer([]byte("access"), []byte("refresh"), 0, 0)
	return &fixture{
		svc:     NewService(s, users, leads, members, issuer, testAdminKey, nil),
		users:   users,
		members: members,
		leads:   leads,
		project: p,
		board:   b,
	}
}

func createTestStore(t *testing.T) *store.SQLStore {
	tmpDir := t.TempDir()
	s, err := store.NewSQLiteStore(filepath.Join(tmpDir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func registration(name string) RegisterInput {
	return RegisterInput{Username: name, Email: name + "@example.com", Password: "hunter22", FullName: name}
}

func TestRegister_SelectorRule(t *testing.T) {
	f := newFixture(t, createTestStore(t))
	ctx := context.Background()

	none := registration("none")
	_, err := f.svc.Register(ctx, none)
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))

	two := registration("two")
	two.ProjectID, two.BoardID = f.project.ID, f.board.ID
	_, err = f.svc.Register(ctx, two)
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))

	three := registration("three")
	three.ProjectID, three.BoardID, three.AdminKey = f.project.ID, f.board.ID, testAdminKey
	_, err = f.svc.Register(ctx, three)
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))

	_, err = f.users.GetByEmail(ctx, "two@example.com")
	assert.True(t, apperr.Is(err, apperr.KindNotFound), "no user may be created")
}

func TestRegister_Paths(t *testing.T) {
	f := newFixture(t, createTestStore(t))
	ctx := context.Background()

	lead := registration("lead")
	lead.ProjectID = f.project.ID
	sess, err := f.svc.Register(ctx, lead)
	require.NoError(t, err)
	assert.Equal(t, store.RoleTeamLead, sess.User.Role)
	assert.NotEmpty(t, sess.AccessToken)
	assert.NotEmpty(t, sess.RefreshToken)
	assert.Empty(t, sess.User.PasswordHash)
	ok, err := f.leads.Exists(ctx, f.project.ID, sess.User.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	member := registration("member")
	member.BoardID = f.board.ID
	sess, err = f.svc.Register(ctx, member)
	require.NoError(t, err)
	assert.Equal(t, store.RoleUser, sess.User.Role)
	ok, err = f.members.Exists(ctx, f.board.ID, sess.User.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	admin := registration("admin")
	admin.AdminKey = testAdminKey
	sess, err = f.svc.Register(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, store.RoleAdmin, sess.User.Role)
}

func TestRegister_BadTargets(t *testing.T) {
	f := newFixture(t, createTestStore(t))
	ctx := context.Background()

	in := registration("x")
	in.ProjectID = "missing"
	_, err := f.svc.Register(ctx, in)
	assert.True(t, errors.Is(err, apperr.BadRequest("invalid projectId")))

	in = registration("y")
	in.BoardID = "missing"
	_, err = f.svc.Register(ctx, in)
	assert.True(t, errors.Is(err, apperr.BadRequest("invalid boardId")))

	in = registration("z")
	in.AdminKey = "wrong"
	_, err = f.svc.Register(ctx, in)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	for _, email := range []string{"x@example.com", "y@example.com", "z@example.com"} {
		_, err := f.users.GetByEmail(ctx, email)
		assert.True(t, apperr.Is(err, apperr.KindNotFound), email)
	}
}

func TestRegister_EmptyAdminKeyDisablesAdminPath(t *testing.T) {
	s := createTestStore(t)
	f := newFixture(t, s)
	f.svc.adminKey = ""

	in := registration("admin")
	in.AdminKey = "anything"
	_, err := f.svc.Register(context.Background(), in)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
}

func TestRegister_DuplicateIsConflict(t *testing.T) {
	f := newFixture(t, createTestStore(t))
	ctx := context.Background()

	in := registration("dup")
	in.BoardID = f.board.ID
	_, err := f.svc.Register(ctx, in)
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, in)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

// failingMemberships wraps a Store so membership inserts fail.
type failingMemberships struct {
	store.Store
	err error
}

func (f failingMemberships) CreateMembership(ctx context.Context, m *store.Membership) error {
	return f.err
}

// failingTxStore runs real transactions whose membership inserts fail.
type failingTxStore struct {
	*store.SQLStore
	err error
}

func (f failingTxStore) WithTx(ctx context.Context, fn func(tx store.Store) error) error {
	return f.SQLStore.WithTx(ctx, func(tx store.Store) error {
		return fn(failingMemberships{Store: tx, err: f.err})
	})
}

func TestRegister_TransactionRollsBackUser(t *testing.T) {
	sqlStore := createTestStore(t)
	boom := errors.New("membership insert failed")
	f := newFixture(t, failingTxStore{SQLStore: sqlStore, err: boom})

	in := registration("rollback")
	in.BoardID = f.board.ID
	_, err := f.svc.Register(context.Background(), in)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	_, err = sqlStore.GetUserByEmail(context.Background(), "rollback@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRegister_CompensatingDelete(t *testing.T) {
	m := store.NewMockStore()
	f := newFixture(t, m)
	m.FailOn("CreateMembership", store.ErrConflict)

	in := registration("rollback")
	in.BoardID = f.board.ID
	_, err := f.svc.Register(context.Background(), in)
	assert.True(t, apperr.Is(err, apperr.KindConflict), "original association error surfaces, got %v", err)

	_, err = m.GetUserByEmail(context.Background(), "rollback@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Contains(t, m.Calls(), "DeleteUser")
}

func TestRegister_CompensatingDeleteFails(t *testing.T) {
	m := store.NewMockStore()
	f := newFixture(t, m)
	m.FailOn("CreateMembership", store.ErrConflict)
	m.FailOn("DeleteUser", errors.New("disk full"))

	in := registration("stuck")
	in.ProjectID = f.project.ID
	_, err := f.svc.Register(context.Background(), in)
	assert.True(t, apperr.Is(err, apperr.KindInternal), "got %v", err)
	assert.False(t, apperr.Is(err, apperr.KindConflict))
}

func TestLogin(t *testing.T) {
	f := newFixture(t, createTestStore(t))
	ctx := context.Background()

	in := registration("alice")
	in.BoardID = f.board.ID
	_, err := f.svc.Register(ctx, in)
	require.NoError(t, err)

	sess, err := f.svc.Login(ctx, LoginInput{Email: "alice@example.com", Password: "hunter22"})
	require.NoError(t, err)
	assert.Empty(t, sess.User.PasswordHash)
	assert.True(t, f.svc.Validate(ctx, sess.AccessToken).Valid)

	u, err := f.users.Get(ctx, sess.User.ID)
	require.NoError(t, err)
	assert.NotNil(t, u.LastLogin)

	_, err = f.svc.Login(ctx, LoginInput{Email: "alice@example.com", Password: "wrong"})
	assert.True(t, errors.Is(err, apperr.Unauthorized("invalid credentials")))

	_, err = f.svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "hunter22"})
	assert.True(t, errors.Is(err, apperr.Unauthorized("invalid credentials")))
}

func TestRefreshAndValidate(t *testing.T) {
	f := newFixture(t, createTestStore(t))
	ctx := context.Background()

	in := registration("alice")
	in.ProjectID = f.project.ID
	sess, err := f.svc.Register(ctx, in)
	require.NoError(t, err)

	access, err := f.svc.Refresh(ctx, sess.RefreshToken)
	require.NoError(t, err)
	v := f.svc.Validate(ctx, access)
	require.True(t, v.Valid)
	assert.Equal(t, sess.User.ID, v.Claims.UserID())
	assert.Equal(t, store.RoleTeamLead, v.Claims.Role)

	_, err = f.svc.Refresh(ctx, sess.AccessToken)
	assert.True(t, errors.Is(err, apperr.Unauthorized("invalid refresh token")))

	v = f.svc.Validate(ctx, "garbage")
	assert.False(t, v.Valid)
	assert.Nil(t, v.Claims)
}
