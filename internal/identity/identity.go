// ABOUTME: Identity service owning user accounts and credential verification
// ABOUTME: Hashing is a pluggable capability; bcrypt is the production implementation

package identity

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/2389/trellis/internal/apperr"
	"github.com/2389/trellis/internal/store"
)

// MsgUserOwnsContent rejects deleting a user who still created hierarchy
// entities or task assignments.
const MsgUserOwnsContent = "user still owns workspace content and cannot be deleted"

// Hasher hashes and verifies passwords.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(hash, plaintext string) bool
}

// BcryptHasher implements Hasher with bcrypt.
type BcryptHasher struct {
	Cost int
}

// Hash returns the bcrypt hash of plaintext.
func (h BcryptHasher) Hash(plaintext string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether plaintext matches hash.
func (h BcryptHasher) Verify(hash, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// Service manages user accounts.
type Service struct {
	store  store.UserStore
	hasher Hasher
	logger *slog.Logger
	now    func() time.Time
}

// New creates a new identity Service.
func New(s store.UserStore, hasher Hasher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if hasher == nil {
		hasher = BcryptHasher{}
	}
	return &Service{
		store:  s,
		hasher: hasher,
		logger: logger.With("component", "identity"),
		now:    time.Now,
	}
}

// WithStore returns a copy of the service bound to s, typically a
// transaction-scoped store.
func (s *Service) WithStore(us store.UserStore) *Service {
	c := *s
	c.store = us
	return &c
}

// CreateInput holds the fields for a new account.
type CreateInput struct {
	Username    string
	Email       string
	Password    string
	FullName    string
	PhoneNumber *string
	Role        store.Role
}

// Validate checks the input before any storage is touched.
func (in CreateInput) Validate() apperr.FieldErrors {
	errs := apperr.FieldErrors{}
	if strings.TrimSpace(in.Username) == "" {
		errs.Add("username", "must not be empty")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil || !strings.Contains(in.Email, "@") {
		errs.Add("email", "must be a valid email address")
	}
	if in.Password == "" {
		errs.Add("password", "must not be empty")
	}
	if _, err := store.ParseRole(string(in.Role)); err != nil {
		errs.Add("role", "must be one of admin, team_lead, user")
	}
	return errs
}

// Create registers a new user. Duplicate usernames or emails are a Conflict.
// The returned user never carries the password hash.
func (s *Service) Create(ctx context.Context, in CreateInput) (*store.User, error) {
	if err := in.Validate().Err(); err != nil {
		return nil, err
	}

	// Advisory checks; the UNIQUE constraints are authoritative.
	if _, err := s.store.GetUserByUsername(ctx, in.Username); err == nil {
		return nil, apperr.Conflict("username already taken")
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Wrap(apperr.KindInternal, err, "checking username")
	}
	if _, err := s.store.GetUserByEmail(ctx, in.Email); err == nil {
		return nil, apperr.Conflict("email already registered")
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Wrap(apperr.KindInternal, err, "checking email")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "hashing password")
	}

	user := &store.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		FullName:     in.FullName,
		PhoneNumber:  in.PhoneNumber,
		Role:         in.Role,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, apperr.Wrap(apperr.KindConflict, err, "username or email already taken")
		}
		return nil, apperr.Wrap(apperr.KindInternal, err, "creating user")
	}

	s.logger.Info("user created", "user_id", user.ID, "role", user.Role)
	user.PasswordHash = ""
	return user, nil
}

// Get retrieves a user by ID.
func (s *Service) Get(ctx context.Context, id string) (*store.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, translate(err, "user not found")
	}
	return u, nil
}

// GetByEmail retrieves a user including the password hash. It is the only
// lookup that exposes the hash.
func (s *Service) GetByEmail(ctx context.Context, email string) (*store.User, error) {
	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, translate(err, "user not found")
	}
	return u, nil
}

// ValidatePassword reports whether plaintext matches the user's hash.
func (s *Service) ValidatePassword(user *store.User, plaintext string) bool {
	if user == nil || user.PasswordHash == "" {
		return false
	}
	return s.hasher.Verify(user.PasswordHash, plaintext)
}

// UpdateLastLogin stamps the user's last login with the current time.
func (s *Service) UpdateLastLogin(ctx context.Context, id string) error {
	if err := s.store.UpdateLastLogin(ctx, id, s.now()); err != nil {
		return translate(err, "user not found")
	}
	return nil
}

// Remove hard-deletes a user.
func (s *Service) Remove(ctx context.Context, id string) error {
	if err := s.store.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return apperr.Conflict(MsgUserOwnsContent)
		}
		return translate(err, "user not found")
	}
	s.logger.Info("user removed", "user_id", id)
	return nil
}

// List returns a page of users. filter.Status narrows by role.
func (s *Service) List(ctx context.Context, filter store.ListFilter) (*store.Page[store.User], error) {
	page, err := s.store.ListUsers(ctx, filter)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "listing users")
	}
	return page, nil
}

// CountExisting returns how many of ids belong to existing users.
func (s *Service) CountExisting(ctx context.Context, ids []string) (int, error) {
	n, err := s.store.CountUsers(ctx, ids)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, err, "counting users")
	}
	return n, nil
}

func translate(err error, notFound string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("%s", notFound)
	}
	return apperr.Wrap(apperr.KindInternal, err, "user store")
}
