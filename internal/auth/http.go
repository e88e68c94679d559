// ABOUTME: Gin middleware for bearer token authentication on API routes
// ABOUTME: Resolves the token to a user, attaches the Actor and stamps last login

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/2389/trellis/internal/access"
	"github.com/2389/trellis/internal/apperr"
	"github.com/2389/trellis/internal/store"
)

// Gate failure messages.
const (
	MsgTokenNotFound = "Token not found"
	MsgInvalidToken  = "Invalid or expired token"
	MsgExpiredToken  = "Token has expired"
	MsgUserNotFound  = "User not found"
	MsgAdminOnly     = "Admin access only"
)

// userContextKey holds the authenticated *store.User on the gin context.
const userContextKey = "trellis.user"

// UserLookup is the slice of the identity service the gate needs.
type UserLookup interface {
	Get(ctx context.Context, id string) (*store.User, error)
	UpdateLastLogin(ctx context.Context, id string) error
}

// Gate authenticates requests.
type Gate struct {
	verifier TokenVerifier
	users    UserLookup
	logger   *slog.Logger
	now      func() time.Time
	loc      *time.Location
}

// NewGate creates a Gate.
func NewGate(verifier TokenVerifier, users UserLookup, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		verifier: verifier,
		users:    users,
		logger:   logger.With("component", "gate"),
		now:      time.Now,
		loc:      time.Local,
	}
}

// extractBearerToken extracts a bearer token from the Authorization header.
// Returns the token and an error message (empty if successful).
func extractBearerToken(authHeader string) (string, string) {
	if authHeader == "" {
		return "", MsgTokenNotFound
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", MsgTokenNotFound
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", MsgTokenNotFound
	}
	return token, ""
}

// Authenticate requires a valid access token whose subject still exists.
// Failures are recorded on the gin context for the error renderer.
func (g *Gate) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, errMsg := extractBearerToken(c.GetHeader("Authorization"))
		if errMsg != "" {
			abort(c, apperr.Unauthorized("%s", errMsg))
			return
		}

		claims, err := g.verifier.Verify(token)
		if err != nil {
			msg := MsgInvalidToken
			if errors.Is(err, ErrExpiredToken) {
				msg = MsgExpiredToken
			}
			abort(c, apperr.Unauthorized("%s", msg))
			return
		}

		user, err := g.users.Get(c.Request.Context(), claims.UserID())
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				abort(c, apperr.Unauthorized(MsgUserNotFound))
				return
			}
			abort(c, err)
			return
		}

		actor := access.Actor{UserID: user.ID, Role: user.Role}
		c.Set(userContextKey, user)
		c.Request = c.Request.WithContext(WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

// StampLogin records activity at most once per local calendar day. It runs
// after Authenticate and any role check, so rejected requests leave no trace.
func (g *Gate) StampLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if user := CurrentUser(c); user != nil {
			g.stampLogin(c.Request.Context(), user)
		}
		c.Next()
	}
}

func (g *Gate) stampLogin(ctx context.Context, user *store.User) {
	today := g.now().In(g.loc).Format(time.DateOnly)
	if user.LastLogin != nil && user.LastLogin.In(g.loc).Format(time.DateOnly) == today {
		return
	}
	if err := g.users.UpdateLastLogin(ctx, user.ID); err != nil {
		g.logger.Warn("failed to stamp last login", "user_id", user.ID, "error", err)
	}
}

// RequireAdmin rejects non-admin callers. Must run after Authenticate.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if _, ok := FromContext(ctx); !ok {
			abort(c, apperr.Unauthorized(MsgTokenNotFound))
			return
		}
		if !IsAdmin(ctx) {
			abort(c, apperr.Forbidden(MsgAdminOnly))
			return
		}
		c.Next()
	}
}

// CurrentUser returns the user attached by Authenticate.
func CurrentUser(c *gin.Context) *store.User {
	v, ok := c.Get(userContextKey)
	if !ok {
		return nil
	}
	u, _ := v.(*store.User)
	return u
}

func abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
