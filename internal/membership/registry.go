// ABOUTME: Membership registry for project team leads and board members
// ABOUTME: One Registry per join relation, keyed by (parentID, userID)

package membership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/2389/trellis/internal/apperr"
	"github.com/2389/trellis/internal/store"
)

// Registry manages one join relation.
type Registry struct {
	kind   store.MembershipKind
	store  store.MembershipStore
	logger *slog.Logger
	noun   string
}

// New creates a Registry for the given kind.
func New(kind store.MembershipKind, s store.MembershipStore, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	noun := "board member"
	if kind == store.TeamLeads {
		noun = "team lead"
	}
	return &Registry{
		kind:   kind,
		store:  s,
		logger: logger.With("component", "membership", "kind", string(kind)),
		noun:   noun,
	}
}

// NewTeamLeads creates the project team-lead registry.
func NewTeamLeads(s store.MembershipStore, logger *slog.Logger) *Registry {
	return New(store.TeamLeads, s, logger)
}

// NewBoardMembers creates the board-member registry.
func NewBoardMembers(s store.MembershipStore, logger *slog.Logger) *Registry {
	return New(store.BoardMembers, s, logger)
}

// WithStore returns a copy of the registry bound to s.
func (r *Registry) WithStore(s store.MembershipStore) *Registry {
	c := *r
	c.store = s
	return &c
}

// Create adds userID to parentID. An existing pair is a Conflict. An empty
// role takes the relation's default label.
func (r *Registry) Create(ctx context.Context, parentID, userID, role string) (*store.Membership, error) {
	// Advisory check; the primary key is authoritative.
	_, err := r.store.GetMembership(ctx, r.kind, parentID, userID)
	switch {
	case err == nil:
		return nil, r.conflict()
	case !errors.Is(err, store.ErrNotFound):
		return nil, apperr.Wrap(apperr.KindInternal, err, "checking %s", r.noun)
	}

	m := &store.Membership{Kind: r.kind, ParentID: parentID, UserID: userID, Role: role}
	if err := r.store.CreateMembership(ctx, m); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, apperr.Wrap(apperr.KindConflict, err, "%s", r.conflict().Message)
		}
		return nil, apperr.Wrap(apperr.KindInternal, err, "creating %s", r.noun)
	}

	r.logger.Info("membership created", "parent_id", parentID, "user_id", userID, "role", m.Role)
	return m, nil
}

func (r *Registry) conflict() *apperr.Error {
	if r.kind == store.TeamLeads {
		return apperr.Conflict("user is already a team lead for this project")
	}
	return apperr.Conflict("user is already a member of this board")
}

// Get returns the pair or NotFound.
func (r *Registry) Get(ctx context.Context, parentID, userID string) (*store.Membership, error) {
	m, err := r.store.GetMembership(ctx, r.kind, parentID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("%s not found", r.noun)
		}
		return nil, apperr.Wrap(apperr.KindInternal, err, "getting %s", r.noun)
	}
	return m, nil
}

// Exists reports whether the pair is present. Lookup failures other than a
// missing row are returned.
func (r *Registry) Exists(ctx context.Context, parentID, userID string) (bool, error) {
	_, err := r.store.GetMembership(ctx, r.kind, parentID, userID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, store.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("looking up %s: %w", r.noun, err)
	}
}

// ListByParent returns every membership of parentID.
func (r *Registry) ListByParent(ctx context.Context, parentID string) ([]*store.Membership, error) {
	return r.list(ctx, store.MembershipFilter{ParentID: parentID})
}

// ListByUser returns every membership held by userID.
func (r *Registry) ListByUser(ctx context.Context, userID string) ([]*store.Membership, error) {
	return r.list(ctx, store.MembershipFilter{UserID: userID})
}

// ListAll returns every membership of this kind.
func (r *Registry) ListAll(ctx context.Context) ([]*store.Membership, error) {
	return r.list(ctx, store.MembershipFilter{})
}

func (r *Registry) list(ctx context.Context, f store.MembershipFilter) ([]*store.Membership, error) {
	ms, err := r.store.ListMemberships(ctx, r.kind, f)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "listing %ss", r.noun)
	}
	return ms, nil
}

// Update changes the role label on an existing pair.
func (r *Registry) Update(ctx context.Context, parentID, userID, role string) (*store.Membership, error) {
	if role == "" {
		return nil, apperr.FieldErrors{"role": "must not be empty"}.Err()
	}
	if err := r.store.UpdateMembershipRole(ctx, r.kind, parentID, userID, role); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("%s not found", r.noun)
		}
		return nil, apperr.Wrap(apperr.KindInternal, err, "updating %s", r.noun)
	}
	return r.Get(ctx, parentID, userID)
}

// Remove deletes the pair. A missing pair is NotFound.
func (r *Registry) Remove(ctx context.Context, parentID, userID string) error {
	n, err := r.store.DeleteMemberships(ctx, r.kind, store.MembershipFilter{ParentID: parentID, UserID: userID})
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "removing %s", r.noun)
	}
	if n == 0 {
		return apperr.NotFound("%s not found", r.noun)
	}
	r.logger.Info("membership removed", "parent_id", parentID, "user_id", userID)
	return nil
}

// RemoveByParent deletes every membership of parentID. Zero rows is not an
// error.
func (r *Registry) RemoveByParent(ctx context.Context, parentID string) error {
	return r.removeWhere(ctx, store.MembershipFilter{ParentID: parentID})
}

// RemoveByUser deletes every membership held by userID. Zero rows is not an
// error.
func (r *Registry) RemoveByUser(ctx context.Context, userID string) error {
	return r.removeWhere(ctx, store.MembershipFilter{UserID: userID})
}

func (r *Registry) removeWhere(ctx context.Context, f store.MembershipFilter) error {
	if f.ParentID == "" && f.UserID == "" {
		return nil
	}
	n, err := r.store.DeleteMemberships(ctx, r.kind, f)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "removing %ss", r.noun)
	}
	r.logger.Debug("memberships removed", "parent_id", f.ParentID, "user_id", f.UserID, "count", n)
	return nil
}
