// ABOUTME: Server orchestrator that wires the store, services and HTTP API
// ABOUTME: Owns the HTTP server lifecycle including graceful shutdown

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/2389/trellis/internal/access"
	"github.com/2389/trellis/internal/api"
	"github.com/2389/trellis/internal/auth"
	"github.com/2389/trellis/internal/config"
	"github.com/2389/trellis/internal/hierarchy"
	"github.com/2389/trellis/internal/identity"
	"github.com/2389/trellis/internal/membership"
	"github.com/2389/trellis/internal/store"
)

// Server runs the trellis HTTP API.
type Server struct {
	config     *config.Config
	store      *store.SQLStore
	users      *identity.Service
	httpServer *http.Server
	logger     *slog.Logger
}

// OpenStore opens the database selected by cfg.
func OpenStore(cfg config.DatabaseConfig) (*store.SQLStore, error) {
	var (
		s   *store.SQLStore
		err error
	)
	switch cfg.Driver {
	case store.DriverPostgres:
		s, err = store.Open(store.DriverPostgres, cfg.DSN)
	default:
		s, err = store.NewSQLiteStore(cfg.DSN)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	return s, nil
}

// New creates a Server with every service wired to a freshly opened store.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s, err := OpenStore(cfg.Database)
	if err != nil {
		return nil, err
	}

	users := identity.New(s, identity.BcryptHasher{}, logger)
	leads := membership.NewTeamLeads(s, logger)
	members := membership.NewBoardMembers(s, logger)
	acl := access.New(leads, members, logger)
	issuer := auth.NewIssuer(
		[]byte(cfg.Auth.AccessSecret),
		[]byte(cfg.Auth.RefreshSecret),
		cfg.Auth.AccessTTL,
		cfg.Auth.RefreshTTL,
	)
	if cfg.Auth.AdminKey == "" {
		logger.Warn("auth.admin_key not set - admin self-registration is disabled")
	}

	handler := api.New(api.Deps{
		Auth:      auth.NewService(s, users, leads, members, issuer, cfg.Auth.AdminKey, logger),
		Gate:      auth.NewGate(issuer, users, logger),
		Hierarchy: hierarchy.New(s, acl, leads, members, users, logger),
		Assignees: hierarchy.NewAssignees(s, s, users, acl, logger),
		Users:     users,
		Leads:     leads,
		Members:   members,
		Store:     s,
	}, logger)

	return &Server{
		config: cfg,
		store:  s,
		users:  users,
		httpServer: &http.Server{
			Addr:              cfg.Server.HTTPAddr,
			Handler:           handler.Router(),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       cfg.Server.ReadTimeout,
			WriteTimeout:      cfg.Server.WriteTimeout,
		},
		logger: logger.With("component", "server"),
	}, nil
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Users returns the identity service backed by the server's store.
func (s *Server) Users() *identity.Service {
	return s.users
}

// startServer serves HTTP on ln in a goroutine, returning the error channel.
func (s *Server) startServer(ln net.Listener) chan error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()
	return errCh
}

// waitForShutdownSignal waits for context cancellation or server error.
func (s *Server) waitForShutdownSignal(ctx context.Context, errCh chan error) error {
	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, initiating shutdown")
		return nil
	case err := <-errCh:
		s.logger.Error("server error", "error", err)
		return err
	}
}

// Run starts the HTTP server and blocks until the context is canceled.
// Returns nil on graceful shutdown, or an error if the server fails.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Server.HTTPAddr)
	if err != nil {
		_ = s.store.Close()
		return fmt.Errorf("listening on HTTP address: %w", err)
	}
	s.logger.Info("starting trellis", "http_addr", s.config.Server.HTTPAddr, "driver", s.config.Database.Driver)

	errCh := s.startServer(ln)
	serverErr := s.waitForShutdownSignal(ctx, errCh)

	shutdownErr := s.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout, since
// the run context is already canceled.
func (s *Server) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown stops the HTTP server and closes the store.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", s.httpServer.Shutdown(ctx))
	errs = appendCloseError(errs, "store close", s.store.Close())

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}
