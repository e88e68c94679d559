// ABOUTME: SQL implementation of the Store interfaces over sqlx and squirrel
// ABOUTME: Runs on SQLite (modernc.org/sqlite) or Postgres (lib/pq) with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// SQLStore implements Store on top of a SQL database. A SQLStore returned by
// WithTx shares the parent's configuration but executes inside a transaction.
type SQLStore struct {
	db     sqlx.ExtContext
	root   *sqlx.DB
	sb     sq.StatementBuilderType
	logger *slog.Logger
}

var (
	_ Store      = (*SQLStore)(nil)
	_ Transactor = (*SQLStore)(nil)
)

// NewSQLiteStore creates a new SQLite store at the given path.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	// Pragmas go in the DSN so every pooled connection gets them.
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	return Open(DriverSQLite, dsn)
}

// Open connects to the database and creates the schema if it doesn't exist.
func Open(driver, dsn string) (*SQLStore, error) {
	logger := slog.Default().With("component", "store")

	var placeholder sq.PlaceholderFormat
	switch driver {
	case DriverSQLite:
		placeholder = sq.Question
	case DriverPostgres:
		placeholder = sq.Dollar
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &SQLStore{
		db:     db,
		root:   db,
		sb:     sq.StatementBuilder.PlaceholderFormat(placeholder),
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("store initialized", "driver", driver)
	return s, nil
}

// createSchema creates the database tables if they don't exist. The DDL is
// restricted to the subset SQLite and Postgres agree on; timestamps are
// RFC3339 text and metadata is JSON text.
func (s *SQLStore) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			full_name     TEXT NOT NULL DEFAULT '',
			phone_number  TEXT,
			role          TEXT NOT NULL,
			last_login    TEXT,
			created_at    TEXT NOT NULL,
			updated_at    TEXT NOT NULL,

			CHECK (role IN ('admin', 'team_lead', 'user'))
		)`,

		`CREATE TABLE IF NOT EXISTS workspaces (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_by  TEXT NOT NULL REFERENCES users(id),
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS projects (
			id           TEXT PRIMARY KEY,
			workspace_id TEXT NOT NULL REFERENCES workspaces(id) ON DELETE CASCADE,
			title        TEXT NOT NULL,
			description  TEXT NOT NULL DEFAULT '',
			status       TEXT NOT NULL DEFAULT 'active',
			created_by   TEXT NOT NULL REFERENCES users(id),
			created_at   TEXT NOT NULL,
			updated_at   TEXT NOT NULL,

			CHECK (status IN ('active', 'archived'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_projects_workspace ON projects(workspace_id)`,

		`CREATE TABLE IF NOT EXISTS project_team_leads (
			project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			role       TEXT NOT NULL DEFAULT 'team_lead',
			added_at   TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,

			PRIMARY KEY (project_id, user_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_team_leads_user ON project_team_leads(user_id)`,

		`CREATE TABLE IF NOT EXISTS boards (
			id          TEXT PRIMARY KEY,
			project_id  TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			title       TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status      TEXT NOT NULL DEFAULT 'active',
			metadata    TEXT NOT NULL DEFAULT '{}',
			created_by  TEXT NOT NULL REFERENCES users(id),
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL,

			CHECK (status IN ('active', 'archived'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_boards_project ON boards(project_id)`,

		`CREATE TABLE IF NOT EXISTS board_members (
			board_id   TEXT NOT NULL REFERENCES boards(id) ON DELETE CASCADE,
			user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			role       TEXT NOT NULL DEFAULT 'member',
			added_at   TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,

			PRIMARY KEY (board_id, user_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_board_members_user ON board_members(user_id)`,

		`CREATE TABLE IF NOT EXISTS lists (
			id          TEXT PRIMARY KEY,
			project_id  TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			board_id    TEXT NOT NULL REFERENCES boards(id) ON DELETE CASCADE,
			title       TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status      TEXT NOT NULL DEFAULT 'active',
			position    INTEGER NOT NULL DEFAULT 0,
			metadata    TEXT NOT NULL DEFAULT '{}',
			created_by  TEXT NOT NULL REFERENCES users(id),
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL,

			CHECK (status IN ('active', 'inactive', 'archived'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_lists_board ON lists(board_id, position)`,

		`CREATE TABLE IF NOT EXISTS tasks (
			id           TEXT PRIMARY KEY,
			project_id   TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			board_id     TEXT NOT NULL REFERENCES boards(id) ON DELETE CASCADE,
			list_id      TEXT NOT NULL REFERENCES lists(id) ON DELETE CASCADE,
			title        TEXT NOT NULL,
			description  TEXT NOT NULL DEFAULT '',
			status       TEXT NOT NULL DEFAULT 'todo',
			priority     TEXT NOT NULL DEFAULT 'medium',
			position     INTEGER NOT NULL DEFAULT 0,
			due_date     TEXT,
			completed_at TEXT,
			metadata     TEXT NOT NULL DEFAULT '{}',
			created_by   TEXT NOT NULL REFERENCES users(id),
			created_at   TEXT NOT NULL,
			updated_at   TEXT NOT NULL,

			CHECK (status IN ('todo', 'in_progress', 'in_review', 'done', 'blocked')),
			CHECK (priority IN ('low', 'medium', 'high', 'critical'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_list ON tasks(list_id, position)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_board ON tasks(board_id)`,

		`CREATE TABLE IF NOT EXISTS task_assignees (
			id          TEXT PRIMARY KEY,
			task_id     TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
			user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			assigned_by TEXT NOT NULL REFERENCES users(id),
			assigned_at TEXT NOT NULL,
			metadata    TEXT NOT NULL DEFAULT '{}',
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL,

			UNIQUE (task_id, user_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_task_assignees_user ON task_assignees(user_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.root.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Ping checks that the database is reachable.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.root.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	s.logger.Info("closing store")
	return s.root.Close()
}

// WithTx executes fn within a transaction.
func (s *SQLStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	if _, inTx := s.db.(*sqlx.Tx); inTx {
		return fn(s)
	}

	tx, err := s.root.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	txStore := &SQLStore{db: tx, root: s.root, sb: s.sb, logger: s.logger}
	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// isConstraintViolation checks if the error is a UNIQUE or FOREIGN KEY
// constraint violation on either backend.
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// 23505 unique_violation, 23503 foreign_key_violation
		return pqErr.Code == "23505" || pqErr.Code == "23503"
	}

	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "FOREIGN KEY constraint failed")
}

// mapWriteError converts constraint violations into ErrConflict.
func mapWriteError(err error, op string) error {
	if isConstraintViolation(err) {
		return fmt.Errorf("%s: %w: %v", op, ErrConflict, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// mapReadError converts sql.ErrNoRows into ErrNotFound.
func mapReadError(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

// exec runs a built statement and returns the affected row count.
func (s *SQLStore) exec(ctx context.Context, b sq.Sqlizer) (int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("building query: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// get scans a single row into dest.
func (s *SQLStore) get(ctx context.Context, dest any, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("building query: %w", err)
	}
	return sqlx.GetContext(ctx, s.db, dest, query, args...)
}

// selectRows scans all rows into dest, which must be a pointer to a slice.
func (s *SQLStore) selectRows(ctx context.Context, dest any, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("building query: %w", err)
	}
	return sqlx.SelectContext(ctx, s.db, dest, query, args...)
}

// count runs a COUNT(*) query built from base with its ORDER/LIMIT stripped.
func (s *SQLStore) count(ctx context.Context, from string, where sq.Sqlizer) (int, error) {
	q := s.sb.Select("COUNT(*)").From(from)
	if where != nil {
		q = q.Where(where)
	}
	var n int
	if err := s.get(ctx, &n, q); err != nil {
		return 0, err
	}
	return n, nil
}

// searchClause builds a case-insensitive substring match over columns.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// searchClause matches term as a literal substring of any of columns.
func searchClause(term string, columns ...string) sq.Sqlizer {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
	or := sq.Or{}
	for _, col := range columns {
		or = append(or, sq.Expr("LOWER("+col+`) LIKE ? ESCAPE '\'`, pattern))
	}
	return or
}
