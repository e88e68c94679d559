// ABOUTME: Registration, login, refresh and validation of user sessions
// ABOUTME: Registration creates the user and its membership as one unit

package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"

	"github.com/2389/trellis/internal/apperr"
	"github.com/2389/trellis/internal/identity"
	"github.com/2389/trellis/internal/membership"
	"github.com/2389/trellis/internal/store"
)

// RegisterInput is a sign-up request. Exactly one of ProjectID, BoardID or
// AdminKey selects the account's role.
type RegisterInput struct {
	Username    string  `json:"username"`
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	FullName    string  `json:"fullName"`
	PhoneNumber *string `json:"phoneNumber"`
	ProjectID   string  `json:"projectId"`
	BoardID     string  `json:"boardId"`
	AdminKey    string  `json:"adminKey"`
}

// role resolves the selector. Zero or several selectors is a BadRequest.
func (in RegisterInput) role() (store.Role, error) {
	n := 0
	for _, v := range []string{in.ProjectID, in.BoardID, in.AdminKey} {
		if v != "" {
			n++
		}
	}
	if n != 1 {
		return "", apperr.BadRequest("exactly one of projectId, boardId or adminKey is required")
	}
	switch {
	case in.ProjectID != "":
		return store.RoleTeamLead, nil
	case in.BoardID != "":
		return store.RoleUser, nil
	default:
		return store.RoleAdmin, nil
	}
}

// LoginInput holds login credentials.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is returned by Register and Login.
type Session struct {
	TokenPair
	User *store.User `json:"user"`
}

// Validation is the result of Validate. It never carries an error.
type Validation struct {
	Valid  bool    `json:"valid"`
	Claims *Claims `json:"payload,omitempty"`
}

// Service handles account sessions.
type Service struct {
	store    store.Store
	users    *identity.Service
	leads    *membership.Registry
	members  *membership.Registry
	issuer   *Issuer
	adminKey string
	logger   *slog.Logger
}

// NewService creates an auth Service. An empty adminKey disables the admin
// registration path.
func NewService(
	s store.Store,
	users *identity.Service,
	leads, members *membership.Registry,
	issuer *Issuer,
	adminKey string,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    s,
		users:    users,
		leads:    leads,
		members:  members,
		issuer:   issuer,
		adminKey: adminKey,
		logger:   logger.With("component", "auth"),
	}
}

// Register creates an account and, for the project and board paths, the
// matching team-lead or board membership. Either both exist afterwards or
// neither does.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	role, err := in.role()
	if err != nil {
		return nil, err
	}
	create := identity.CreateInput{
		Username:    in.Username,
		Email:       in.Email,
		Password:    in.Password,
		FullName:    in.FullName,
		PhoneNumber: in.PhoneNumber,
		Role:        role,
	}
	if err := create.Validate().Err(); err != nil {
		return nil, err
	}

	var reg *membership.Registry
	var parentID string
	switch role {
	case store.RoleTeamLead:
		if err := checkParent(ctx, s.store.GetProject, in.ProjectID, "invalid projectId"); err != nil {
			return nil, err
		}
		reg, parentID = s.leads, in.ProjectID
	case store.RoleUser:
		if err := checkParent(ctx, s.store.GetBoard, in.BoardID, "invalid boardId"); err != nil {
			return nil, err
		}
		reg, parentID = s.members, in.BoardID
	case store.RoleAdmin:
		if s.adminKey == "" || subtle.ConstantTimeCompare([]byte(in.AdminKey), []byte(s.adminKey)) != 1 {
			return nil, apperr.Unauthorized("invalid admin key")
		}
	}

	var user *store.User
	if tx, ok := s.store.(store.Transactor); ok {
		user, err = s.registerTx(ctx, tx, create, reg, parentID)
	} else {
		user, err = s.registerCompensating(ctx, create, reg, parentID)
	}
	if err != nil {
		return nil, err
	}

	pair, err := s.issuer.Issue(user)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "issuing tokens")
	}
	s.logger.Info("user registered", "user_id", user.ID, "role", user.Role)
	return &Session{TokenPair: *pair, User: user}, nil
}

// checkParent turns a missing parent into a BadRequest.
func checkParent[T any](ctx context.Context, get func(context.Context, string) (T, error), id, msg string) error {
	if _, err := get(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.BadRequest("%s", msg)
		}
		return apperr.Wrap(apperr.KindInternal, err, "checking registration target")
	}
	return nil
}

func (s *Service) registerTx(ctx context.Context, tx store.Transactor, in identity.CreateInput, reg *membership.Registry, parentID string) (*store.User, error) {
	var user *store.User
	err := tx.WithTx(ctx, func(txs store.Store) error {
		u, err := s.users.WithStore(txs).Create(ctx, in)
		if err != nil {
			return err
		}
		if reg != nil {
			if _, err := reg.WithStore(txs).Create(ctx, parentID, u.ID, ""); err != nil {
				return err
			}
		}
		user = u
		return nil
	})
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperr.Wrap(apperr.KindInternal, err, "registering user")
	}
	return user, nil
}

// registerCompensating deletes the new user when the association fails. A
// failed delete is reported instead of the association error.
func (s *Service) registerCompensating(ctx context.Context, in identity.CreateInput, reg *membership.Registry, parentID string) (*store.User, error) {
	user, err := s.users.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		return user, nil
	}
	if _, err := reg.Create(ctx, parentID, user.ID, ""); err != nil {
		if delErr := s.users.Remove(ctx, user.ID); delErr != nil {
			s.logger.Error("registration rollback failed", "user_id", user.ID, "cause", err, "error", delErr)
			return nil, apperr.Wrap(apperr.KindInternal, delErr, "failed to roll back user %s", user.ID)
		}
		s.logger.Warn("registration rolled back", "user_id", user.ID, "error", err)
		return nil, err
	}
	return user, nil
}

// Login checks credentials and issues a token pair. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.Unauthorized("invalid credentials")
		}
		return nil, err
	}
	if !s.users.ValidatePassword(user, in.Password) {
		return nil, apperr.Unauthorized("invalid credentials")
	}
	user.PasswordHash = ""

	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		return nil, err
	}
	pair, err := s.issuer.Issue(user)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "issuing tokens")
	}
	s.logger.Info("user logged in", "user_id", user.ID)
	return &Session{TokenPair: *pair, User: user}, nil
}

// Refresh exchanges a refresh token for a new access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.issuer.VerifyRefresh(refreshToken)
	if err != nil {
		return "", apperr.Unauthorized("invalid refresh token")
	}
	access, err := s.issuer.Access(claims)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, err, "issuing access token")
	}
	return access, nil
}

// Validate reports whether accessToken is currently valid.
func (s *Service) Validate(ctx context.Context, accessToken string) Validation {
	claims, err := s.issuer.Verify(accessToken)
	if err != nil {
		return Validation{Valid: false}
	}
	return Validation{Valid: true, Claims: claims}
}
