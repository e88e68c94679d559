// ABOUTME: Creates the first admin account directly against the store
// ABOUTME: Used by the CLI when no admin key is configured

package server

import (
	"context"
	"log/slog"

	"github.com/2389/trellis/internal/config"
	"github.com/2389/trellis/internal/identity"
	"github.com/2389/trellis/internal/store"
)

// BootstrapAdmin opens the database and creates an admin user from in.
// in.Role is ignored.
func BootstrapAdmin(ctx context.Context, db config.DatabaseConfig, in identity.CreateInput, logger *slog.Logger) (*store.User, error) {
	s, err := OpenStore(db)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	in.Role = store.RoleAdmin
	return identity.New(s, identity.BcryptHasher{}, logger).Create(ctx, in)
}
