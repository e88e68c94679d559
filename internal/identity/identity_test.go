// ABOUTME: Tests for the identity service
// ABOUTME: Covers conflicts, hash hiding, password checks and last-login stamping

package identity

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/trellis/internal/apperr"
	"github.com/2389/trellis/internal/store"
)

// plainHasher keeps tests fast; bcrypt is covered separately.
type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "plain:" + p, nil }
func (plainHasher) Verify(h, p string) bool       { return h == "plain:"+p }

func createTestStore(t *testing.T) *store.SQLStore {
	tmpDir := t.TempDir()
	s, err := store.NewSQLiteStore(filepath.Join(tmpDir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func validInput(name string) CreateInput {
	return CreateInput{
		Username: name,
		Email:    name + "@example.com",
		Password: "hunter22",
		FullName: "Test " + name,
		Role:     store.RoleUser,
	}
}

func TestCreate_HidesHash(t *testing.T) {
	svc := New(createTestStore(t), plainHasher{}, nil)

	u, err := svc.Create(context.Background(), validInput("alice"))
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Empty(t, u.PasswordHash)
	assert.Equal(t, store.RoleUser, u.Role)
}

func TestCreate_DuplicateIsConflict(t *testing.T) {
	svc := New(createTestStore(t), plainHasher{}, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, validInput("alice"))
	require.NoError(t, err)

	_, err = svc.Create(ctx, validInput("alice"))
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	dupEmail := validInput("bob")
	dupEmail.Email = "alice@example.com"
	_, err = svc.Create(ctx, dupEmail)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestCreate_StorageConflictMapsToConflict(t *testing.T) {
	// The advisory lookup misses but the insert races into a duplicate.
	m := store.NewMockStore()
	m.FailOn("CreateUser", store.ErrConflict)
	svc := New(m, plainHasher{}, nil)

	_, err := svc.Create(context.Background(), validInput("alice"))
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestCreate_Validation(t *testing.T) {
	svc := New(store.NewMockStore(), plainHasher{}, nil)

	in := CreateInput{Email: "not-an-email", Role: "owner"}
	_, err := svc.Create(context.Background(), in)
	require.Error(t, err)

	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperr.KindBadRequest, appErr.Kind)
	assert.Contains(t, appErr.Fields, "username")
	assert.Contains(t, appErr.Fields, "email")
	assert.Contains(t, appErr.Fields, "password")
	assert.Contains(t, appErr.Fields, "role")
}

func TestGetByEmail_OnlyLookupWithHash(t *testing.T) {
	svc := New(createTestStore(t), plainHasher{}, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, validInput("alice"))
	require.NoError(t, err)

	byID, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, byID.PasswordHash)
	assert.False(t, svc.ValidatePassword(byID, "hunter22"))

	withHash, err := svc.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, svc.ValidatePassword(withHash, "hunter22"))
	assert.False(t, svc.ValidatePassword(withHash, "wrong"))
}

func TestGet_NotFound(t *testing.T) {
	svc := New(store.NewMockStore(), plainHasher{}, nil)

	_, err := svc.Get(context.Background(), "missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	err = svc.Remove(context.Background(), "missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestUpdateLastLogin(t *testing.T) {
	svc := New(store.NewMockStore(), plainHasher{}, nil)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	ctx := context.Background()

	u, err := svc.Create(ctx, validInput("alice"))
	require.NoError(t, err)
	require.NoError(t, svc.UpdateLastLogin(ctx, u.ID))

	got, err := svc.Get(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLogin)
	assert.True(t, got.LastLogin.Equal(fixed))
}

func TestRemove(t *testing.T) {
	svc := New(store.NewMockStore(), plainHasher{}, nil)
	ctx := context.Background()

	u, err := svc.Create(ctx, validInput("alice"))
	require.NoError(t, err)
	require.NoError(t, svc.Remove(ctx, u.ID))

	_, err = svc.Get(ctx, u.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestRemove_OwnerOfContentIsConflict(t *testing.T) {
	s := createTestStore(t)
	svc := New(s, plainHasher{}, nil)
	ctx := context.Background()

	u, err := svc.Create(ctx, validInput("alice"))
	require.NoError(t, err)
	require.NoError(t, s.CreateWorkspace(ctx, &store.Workspace{Name: "W1", CreatedBy: u.ID}))

	err = svc.Remove(ctx, u.ID)
	assert.True(t, errors.Is(err, apperr.Conflict(MsgUserOwnsContent)), "got %v", err)

	got, err := svc.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
}

func TestBcryptHasher(t *testing.T) {
	h := BcryptHasher{Cost: 4}
	hash, err := h.Hash("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)
	assert.True(t, h.Verify(hash, "s3cret"))
	assert.False(t, h.Verify(hash, "other"))
}
