// ABOUTME: Access control engine deciding whether a user may act on an entity
// ABOUTME: Pure function of role, target ancestry and membership existence

package access

import (
	"context"
	"log/slog"

	"github.com/2389/trellis/internal/apperr"
	"github.com/2389/trellis/internal/store"
)

// Action is the kind of operation being attempted. Every action is currently
// treated the same way.
type Action string

const (
	Read   Action = "read"
	Write  Action = "write"
	Delete Action = "delete"
)

// Target identifies the ancestry of the entity being acted on. Either field
// may be empty.
type Target struct {
	ProjectID string
	BoardID   string
}

// Actor is the authenticated caller.
type Actor struct {
	UserID string
	Role   store.Role
}

// MembershipChecker reports whether a (parent, user) pair exists.
type MembershipChecker interface {
	Exists(ctx context.Context, parentID, userID string) (bool, error)
}

// Denial messages.
const (
	MsgProject      = "not authorized for this project"
	MsgBoard        = "not authorized for this board"
	MsgInsufficient = "insufficient permissions"
)

// Engine evaluates access rules.
type Engine struct {
	leads   MembershipChecker
	members MembershipChecker
	logger  *slog.Logger
}

// New creates an Engine backed by the team-lead and board-member registries.
func New(leads, members MembershipChecker, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		leads:   leads,
		members: members,
		logger:  logger.With("component", "access"),
	}
}

// CheckAccess returns nil when the user may perform action on target and a
// Forbidden error otherwise. Rules are evaluated in order:
//
//  1. admin is always allowed
//  2. team_lead with a ProjectID needs a team-lead assignment on that project
//  3. user with a BoardID needs a membership on that board
//  4. anything else is denied
//
// Membership lookup failures are returned as-is.
func (e *Engine) CheckAccess(ctx context.Context, userID string, role store.Role, target Target, action Action) error {
	switch {
	case role == store.RoleAdmin:
		return nil

	case role == store.RoleTeamLead && target.ProjectID != "":
		ok, err := e.leads.Exists(ctx, target.ProjectID, userID)
		if err != nil {
			return err
		}
		if !ok {
			e.deny(userID, role, target, action, MsgProject)
			return apperr.Forbidden(MsgProject)
		}
		return nil

	case role == store.RoleUser && target.BoardID != "":
		ok, err := e.members.Exists(ctx, target.BoardID, userID)
		if err != nil {
			return err
		}
		if !ok {
			e.deny(userID, role, target, action, MsgBoard)
			return apperr.Forbidden(MsgBoard)
		}
		return nil

	default:
		e.deny(userID, role, target, action, MsgInsufficient)
		return apperr.Forbidden(MsgInsufficient)
	}
}

// Check is CheckAccess for an Actor.
func (e *Engine) Check(ctx context.Context, a Actor, target Target, action Action) error {
	return e.CheckAccess(ctx, a.UserID, a.Role, target, action)
}

// RequireRole is the coarse role gate applied before entity-level checks.
func RequireRole(role store.Role, message string, allowed ...store.Role) error {
	for _, r := range allowed {
		if role == r {
			return nil
		}
	}
	return apperr.Forbidden("%s", message)
}

func (e *Engine) deny(userID string, role store.Role, target Target, action Action, reason string) {
	e.logger.Debug("access denied",
		"user_id", userID,
		"role", role,
		"project_id", target.ProjectID,
		"board_id", target.BoardID,
		"action", action,
		"reason", reason,
	)
}
