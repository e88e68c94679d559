// ABOUTME: User account persistence
// ABOUTME: Only GetUserByEmail returns the password hash

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

type userRow struct {
	ID           string         `db:"id"`
	Username     string         `db:"username"`
	Email        string         `db:"email"`
	PasswordHash string         `db:"password_hash"`
	FullName     string         `db:"full_name"`
	PhoneNumber  sql.NullString `db:"phone_number"`
	Role         string         `db:"role"`
	LastLogin    sql.NullString `db:"last_login"`
	timestamps
}

var userColumns = []string{
	"id", "username", "email", "full_name", "phone_number", "role", "last_login", "created_at", "updated_at",
}

func (r *userRow) user() (*User, error) {
	u := &User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		FullName:     r.FullName,
		Role:         Role(r.Role),
	}
	if r.PhoneNumber.Valid {
		phone := r.PhoneNumber.String
		u.PhoneNumber = &phone
	}
	var err error
	if u.LastLogin, err = parseNullTime(r.LastLogin); err != nil {
		return nil, err
	}
	if u.CreatedAt, u.UpdatedAt, err = r.parse(); err != nil {
		return nil, err
	}
	return u, nil
}

// CreateUser inserts a user. Duplicate username or email returns ErrConflict.
func (s *SQLStore) CreateUser(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = user.CreatedAt

	var phone any
	if user.PhoneNumber != nil {
		phone = *user.PhoneNumber
	}

	_, err := s.exec(ctx, s.sb.Insert("users").
		Columns("id", "username", "email", "password_hash", "full_name", "phone_number", "role", "created_at", "updated_at").
		Values(user.ID, user.Username, user.Email, user.PasswordHash, user.FullName, phone, string(user.Role),
			formatTime(user.CreatedAt), formatTime(user.UpdatedAt)))
	if err != nil {
		return mapWriteError(err, "inserting user")
	}

	s.logger.Debug("created user", "id", user.ID, "username", user.Username, "role", user.Role)
	return nil
}

func (s *SQLStore) getUserWhere(ctx context.Context, where sq.Sqlizer, withHash bool) (*User, error) {
	cols := userColumns
	if withHash {
		cols = append(append([]string{}, userColumns...), "password_hash")
	}
	var row userRow
	if err := s.get(ctx, &row, s.sb.Select(cols...).From("users").Where(where)); err != nil {
		return nil, mapReadError(err, "querying user")
	}
	return row.user()
}

// GetUser retrieves a user by ID.
func (s *SQLStore) GetUser(ctx context.Context, id string) (*User, error) {
	return s.getUserWhere(ctx, sq.Eq{"id": id}, false)
}

// GetUserByEmail retrieves a user by email, including the password hash.
func (s *SQLStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.getUserWhere(ctx, sq.Eq{"email": email}, true)
}

// GetUserByUsername retrieves a user by username.
func (s *SQLStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	return s.getUserWhere(ctx, sq.Eq{"username": username}, false)
}

// ListUsers returns a page of users, newest first. Status filters by role.
func (s *SQLStore) ListUsers(ctx context.Context, filter ListFilter) (*Page[User], error) {
	filter.Normalize()

	where := sq.And{}
	if filter.Status != "" {
		where = append(where, sq.Eq{"role": filter.Status})
	}
	if filter.Search != "" {
		where = append(where, searchClause(filter.Search, "username", "email", "full_name"))
	}

	total, err := s.count(ctx, "users", where)
	if err != nil {
		return nil, fmt.Errorf("counting users: %w", err)
	}

	var rows []userRow
	q := s.sb.Select(userColumns...).From("users").Where(where).
		OrderBy("created_at DESC").Limit(uint64(filter.Limit)).Offset(filter.offset())
	if err := s.selectRows(ctx, &rows, q); err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}

	users := make([]User, 0, len(rows))
	for i := range rows {
		u, err := rows[i].user()
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return NewPage(users, total, filter), nil
}

// CountUsers returns how many of ids exist.
func (s *SQLStore) CountUsers(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := s.count(ctx, "users", sq.Eq{"id": ids})
	if err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}

// UpdateLastLogin stamps the user's last login time.
func (s *SQLStore) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	n, err := s.exec(ctx, s.sb.Update("users").
		Set("last_login", formatTime(at)).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return mapWriteError(err, "updating last login")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser hard-deletes a user.
func (s *SQLStore) DeleteUser(ctx context.Context, id string) error {
	n, err := s.exec(ctx, s.sb.Delete("users").Where(sq.Eq{"id": id}))
	if err != nil {
		return mapWriteError(err, "deleting user")
	}
	if n == 0 {
		return ErrNotFound
	}
	s.logger.Debug("deleted user", "id", id)
	return nil
}
