// ABOUTME: Hierarchy service for workspaces, projects, boards, lists and tasks
// ABOUTME: Applies role gates and the access engine before touching the store

package hierarchy

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/2389/trellis/internal/access"
	"github.com/2389/trellis/internal/apperr"
	"github.com/2389/trellis/internal/identity"
	"github.com/2389/trellis/internal/membership"
	"github.com/2389/trellis/internal/store"
)

// ListParams narrows a listing. Page and Limit are clamped by the store.
type ListParams = store.ListFilter

// Service owns the containment chain. Task assignments live in Assignees.
type Service struct {
	store   store.Store
	acl     *access.Engine
	leads   *membership.Registry
	members *membership.Registry
	users   *identity.Service
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a hierarchy Service.
func New(
	s store.Store,
	acl *access.Engine,
	leads, members *membership.Registry,
	users *identity.Service,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:   s,
		acl:     acl,
		leads:   leads,
		members: members,
		users:   users,
		logger:  logger.With("component", "hierarchy"),
		now:     time.Now,
	}
}

// check runs the access engine and turns lookup failures into Internal.
func (s *Service) check(ctx context.Context, a access.Actor, t access.Target, act access.Action) error {
	return checkAccess(ctx, s.acl, a, t, act)
}

func checkAccess(ctx context.Context, acl *access.Engine, a access.Actor, t access.Target, act access.Action) error {
	err := acl.Check(ctx, a, t, act)
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperr.Wrap(apperr.KindInternal, err, "checking access")
}

// translate maps store sentinels onto apperr kinds for the named entity.
func translate(err error, entity, id, op string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound("%s with ID %s not found", entity, id)
	case errors.Is(err, store.ErrConflict):
		return apperr.Wrap(apperr.KindConflict, err, "%s already exists", entity)
	default:
		return apperr.Wrap(apperr.KindInternal, err, "failed to %s %s", op, strings.ToLower(entity))
	}
}

func normalize(p ListParams) ListParams {
	p.Normalize()
	return p
}
