// ABOUTME: Authentication context for tracking the caller through request handlers
// ABOUTME: Provides WithActor/FromContext for propagating identity via context

package auth

import (
	"context"

	"github.com/2389/trellis/internal/access"
	"github.com/2389/trellis/internal/store"
)

// actorContextKey is the key type for storing the Actor in context.Context.
type actorContextKey struct{}

// WithActor returns a new context with the Actor attached.
func WithActor(ctx context.Context, a access.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, a)
}

// FromContext retrieves the Actor from the context.
func FromContext(ctx context.Context) (access.Actor, bool) {
	a, ok := ctx.Value(actorContextKey{}).(access.Actor)
	return a, ok
}

// MustFromContext retrieves the Actor from the context, panicking if not present.
func MustFromContext(ctx context.Context) access.Actor {
	a, ok := FromContext(ctx)
	if !ok {
		panic("auth: Actor not found in context")
	}
	return a
}

// IsAdmin reports whether the caller in ctx is an admin.
func IsAdmin(ctx context.Context) bool {
	a, ok := FromContext(ctx)
	return ok && a.Role == store.RoleAdmin
}
