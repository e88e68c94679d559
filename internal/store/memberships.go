// ABOUTME: Persistence for the project team-lead and board-member join tables
// ABOUTME: Both relations share one implementation keyed by (parent_id, user_id)

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// table returns the join table and its parent column.
func (k MembershipKind) table() (table, parentCol string, err error) {
	switch k {
	case TeamLeads:
		return "project_team_leads", "project_id", nil
	case BoardMembers:
		return "board_members", "board_id", nil
	default:
		return "", "", fmt.Errorf("unknown membership kind %q", k)
	}
}

type membershipRow struct {
	ParentID string         `db:"parent_id"`
	UserID   string         `db:"user_id"`
	Role     string         `db:"role"`
	AddedAt  string         `db:"added_at"`
	Username sql.NullString `db:"username"`
	Email    sql.NullString `db:"email"`
	FullName sql.NullString `db:"full_name"`
	timestamps
}

func (r *membershipRow) membership(kind MembershipKind) (*Membership, error) {
	m := &Membership{
		Kind:     kind,
		ParentID: r.ParentID,
		UserID:   r.UserID,
		Role:     r.Role,
	}
	var err error
	if m.AddedAt, err = parseTime(r.AddedAt); err != nil {
		return nil, err
	}
	if m.CreatedAt, m.UpdatedAt, err = r.parse(); err != nil {
		return nil, err
	}
	if r.Username.Valid {
		m.User = &UserRef{ID: r.UserID, Username: r.Username.String, Email: r.Email.String, FullName: r.FullName.String}
	}
	return m, nil
}

func (s *SQLStore) membershipSelect(kind MembershipKind) (sq.SelectBuilder, string, error) {
	table, parentCol, err := kind.table()
	if err != nil {
		return sq.SelectBuilder{}, "", err
	}
	q := s.sb.Select(
		"m."+parentCol+" AS parent_id", "m.user_id", "m.role", "m.added_at", "m.created_at", "m.updated_at",
		"u.username", "u.email", "u.full_name",
	).From(table + " m").LeftJoin("users u ON u.id = m.user_id")
	return q, parentCol, nil
}

func membershipWhere(prefix, parentCol string, f MembershipFilter) sq.Eq {
	where := sq.Eq{}
	if f.ParentID != "" {
		where[prefix+parentCol] = f.ParentID
	}
	if f.UserID != "" {
		where[prefix+"user_id"] = f.UserID
	}
	return where
}

// CreateMembership inserts a join row. A duplicate (parent, user) pair
// returns ErrConflict.
func (s *SQLStore) CreateMembership(ctx context.Context, m *Membership) error {
	table, parentCol, err := m.Kind.table()
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if m.Role == "" {
		m.Role = m.Kind.DefaultRole()
	}
	if m.AddedAt.IsZero() {
		m.AddedAt = now
	}
	m.CreatedAt, m.UpdatedAt = now, now

	_, err = s.exec(ctx, s.sb.Insert(table).
		Columns(parentCol, "user_id", "role", "added_at", "created_at", "updated_at").
		Values(m.ParentID, m.UserID, m.Role, formatTime(m.AddedAt), formatTime(m.CreatedAt), formatTime(m.UpdatedAt)))
	if err != nil {
		return mapWriteError(err, "inserting "+string(m.Kind))
	}

	s.logger.Debug("created membership", "kind", m.Kind, "parent_id", m.ParentID, "user_id", m.UserID)
	return nil
}

// GetMembership retrieves a single join row.
func (s *SQLStore) GetMembership(ctx context.Context, kind MembershipKind, parentID, userID string) (*Membership, error) {
	q, parentCol, err := s.membershipSelect(kind)
	if err != nil {
		return nil, err
	}
	var row membershipRow
	err = s.get(ctx, &row, q.Where(membershipWhere("m.", parentCol, MembershipFilter{ParentID: parentID, UserID: userID})))
	if err != nil {
		return nil, mapReadError(err, "querying "+string(kind))
	}
	return row.membership(kind)
}

// ListMemberships returns join rows matching filter, newest first.
func (s *SQLStore) ListMemberships(ctx context.Context, kind MembershipKind, filter MembershipFilter) ([]*Membership, error) {
	q, parentCol, err := s.membershipSelect(kind)
	if err != nil {
		return nil, err
	}
	var rows []membershipRow
	q = q.Where(membershipWhere("m.", parentCol, filter)).OrderBy("m.added_at DESC")
	if err := s.selectRows(ctx, &rows, q); err != nil {
		return nil, fmt.Errorf("listing %s: %w", kind, err)
	}

	out := make([]*Membership, 0, len(rows))
	for i := range rows {
		m, err := rows[i].membership(kind)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// UpdateMembershipRole changes the role label of an existing pair.
func (s *SQLStore) UpdateMembershipRole(ctx context.Context, kind MembershipKind, parentID, userID, role string) error {
	table, parentCol, err := kind.table()
	if err != nil {
		return err
	}
	n, err := s.exec(ctx, s.sb.Update(table).
		Set("role", role).
		Set("updated_at", formatTime(time.Now())).
		Where(membershipWhere("", parentCol, MembershipFilter{ParentID: parentID, UserID: userID})))
	if err != nil {
		return mapWriteError(err, "updating "+string(kind))
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteMemberships removes every join row matching filter and reports how
// many were removed. An empty filter is rejected.
func (s *SQLStore) DeleteMemberships(ctx context.Context, kind MembershipKind, filter MembershipFilter) (int64, error) {
	table, parentCol, err := kind.table()
	if err != nil {
		return 0, err
	}
	where := membershipWhere("", parentCol, filter)
	if len(where) == 0 {
		return 0, fmt.Errorf("deleting %s: empty filter", kind)
	}
	n, err := s.exec(ctx, s.sb.Delete(table).Where(where))
	if err != nil {
		return 0, mapWriteError(err, "deleting "+string(kind))
	}
	s.logger.Debug("deleted memberships", "kind", kind, "parent_id", filter.ParentID, "user_id", filter.UserID, "count", n)
	return n, nil
}
