// ABOUTME: Column encoders for timestamps and JSON metadata
// ABOUTME: Keeps the on-disk format identical between SQLite and Postgres

package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// formatTime renders t as the canonical column value.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// formatNullTime renders an optional timestamp.
func formatNullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func encodeMetadata(m Metadata) (string, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encoding metadata: %w", err)
	}
	return string(b), nil
}

func decodeMetadata(s string) (Metadata, error) {
	m := Metadata{}
	if s == "" {
		return m, nil
	}
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("decoding metadata: %w", err)
	}
	return m, nil
}

// timestamps is embedded in every row struct.
type timestamps struct {
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

func (ts timestamps) parse() (created, updated time.Time, err error) {
	if created, err = parseTime(ts.CreatedAt); err != nil {
		return
	}
	updated, err = parseTime(ts.UpdatedAt)
	return
}

// creatorRow carries the joined creator columns.
type creatorRow struct {
	CreatorID       sql.NullString `db:"creator_id"`
	CreatorUsername sql.NullString `db:"creator_username"`
	CreatorEmail    sql.NullString `db:"creator_email"`
	CreatorFullName sql.NullString `db:"creator_full_name"`
}

func (c creatorRow) ref() *UserRef {
	if !c.CreatorID.Valid {
		return nil
	}
	return &UserRef{
		ID:       c.CreatorID.String,
		Username: c.CreatorUsername.String,
		Email:    c.CreatorEmail.String,
		FullName: c.CreatorFullName.String,
	}
}

// creatorColumns selects the creator join, aliased "cu".
var creatorColumns = []string{
	"cu.id AS creator_id",
	"cu.username AS creator_username",
	"cu.email AS creator_email",
	"cu.full_name AS creator_full_name",
}

func ref(id, title sql.NullString) *Ref {
	if !id.Valid {
		return nil
	}
	return &Ref{ID: id.String, Title: title.String}
}
