// ABOUTME: Board and list persistence
// ABOUTME: Lists carry project_id/board_id copied from their board at creation

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

type boardRow struct {
	ID           string         `db:"id"`
	ProjectID    string         `db:"project_id"`
	Title        string         `db:"title"`
	Description  string         `db:"description"`
	Status       string         `db:"status"`
	Metadata     string         `db:"metadata"`
	CreatedBy    string         `db:"created_by"`
	ProjectRefID sql.NullString `db:"project_ref_id"`
	ProjectTitle sql.NullString `db:"project_title"`
	timestamps
	creatorRow
}

func (r *boardRow) view() (*BoardView, error) {
	v := &BoardView{
		Board: Board{
			ID:          r.ID,
			ProjectID:   r.ProjectID,
			Title:       r.Title,
			Description: r.Description,
			Status:      BoardStatus(r.Status),
			CreatedBy:   r.CreatedBy,
		},
		Project: ref(r.ProjectRefID, r.ProjectTitle),
		Creator: r.creatorRow.ref(),
	}
	var err error
	if v.Metadata, err = decodeMetadata(r.Metadata); err != nil {
		return nil, err
	}
	if v.CreatedAt, v.UpdatedAt, err = r.parse(); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *SQLStore) boardSelect() sq.SelectBuilder {
	cols := append([]string{
		"b.id", "b.project_id", "b.title", "b.description", "b.status", "b.metadata", "b.created_by",
		"b.created_at", "b.updated_at",
		"p.id AS project_ref_id", "p.title AS project_title",
	}, creatorColumns...)
	return s.sb.Select(cols...).From("boards b").
		LeftJoin("projects p ON p.id = b.project_id").
		LeftJoin("users cu ON cu.id = b.created_by")
}

// CreateBoard inserts a board.
func (s *SQLStore) CreateBoard(ctx context.Context, b *Board) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if b.Status == "" {
		b.Status = BoardActive
	}
	if b.Metadata == nil {
		b.Metadata = Metadata{}
	}
	meta, err := encodeMetadata(b.Metadata)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now

	_, err = s.exec(ctx, s.sb.Insert("boards").
		Columns("id", "project_id", "title", "description", "status", "metadata", "created_by", "created_at", "updated_at").
		Values(b.ID, b.ProjectID, b.Title, b.Description, string(b.Status), meta, b.CreatedBy, formatTime(now), formatTime(now)))
	if err != nil {
		return mapWriteError(err, "inserting board")
	}
	s.logger.Debug("created board", "id", b.ID, "project_id", b.ProjectID)
	return nil
}

// GetBoard retrieves a board with its project and creator.
func (s *SQLStore) GetBoard(ctx context.Context, id string) (*BoardView, error) {
	var row boardRow
	if err := s.get(ctx, &row, s.boardSelect().Where(sq.Eq{"b.id": id})); err != nil {
		return nil, mapReadError(err, "querying board")
	}
	return row.view()
}

// ListBoards returns a page of boards, newest first.
func (s *SQLStore) ListBoards(ctx context.Context, filter ListFilter) (*Page[BoardView], error) {
	filter.Normalize()

	where := sq.And{}
	if filter.ProjectID != "" {
		where = append(where, sq.Eq{"b.project_id": filter.ProjectID})
	}
	if filter.Status != "" {
		where = append(where, sq.Eq{"b.status": filter.Status})
	}
	if filter.Search != "" {
		where = append(where, searchClause(filter.Search, "b.title"))
	}

	total, err := s.count(ctx, "boards b", where)
	if err != nil {
		return nil, fmt.Errorf("counting boards: %w", err)
	}

	var rows []boardRow
	q := s.boardSelect().Where(where).OrderBy("b.created_at DESC").
		Limit(uint64(filter.Limit)).Offset(filter.offset())
	if err := s.selectRows(ctx, &rows, q); err != nil {
		return nil, fmt.Errorf("listing boards: %w", err)
	}

	out := make([]BoardView, 0, len(rows))
	for i := range rows {
		v, err := rows[i].view()
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return NewPage(out, total, filter), nil
}

// UpdateBoard writes the mutable board fields. ProjectID is never rewritten.
func (s *SQLStore) UpdateBoard(ctx context.Context, b *Board) error {
	meta, err := encodeMetadata(b.Metadata)
	if err != nil {
		return err
	}
	b.UpdatedAt = time.Now().UTC()
	n, err := s.exec(ctx, s.sb.Update("boards").
		Set("title", b.Title).
		Set("description", b.Description).
		Set("status", string(b.Status)).
		Set("metadata", meta).
		Set("updated_at", formatTime(b.UpdatedAt)).
		Where(sq.Eq{"id": b.ID}))
	if err != nil {
		return mapWriteError(err, "updating board")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteBoard removes a board. Board memberships, lists and tasks go with it.
func (s *SQLStore) DeleteBoard(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "boards", id)
}

type listRow struct {
	ID           string         `db:"id"`
	ProjectID    string         `db:"project_id"`
	BoardID      string         `db:"board_id"`
	Title        string         `db:"title"`
	Description  string         `db:"description"`
	Status       string         `db:"status"`
	Position     int            `db:"position"`
	Metadata     string         `db:"metadata"`
	CreatedBy    string         `db:"created_by"`
	ProjectRefID sql.NullString `db:"project_ref_id"`
	ProjectTitle sql.NullString `db:"project_title"`
	BoardRefID   sql.NullString `db:"board_ref_id"`
	BoardTitle   sql.NullString `db:"board_title"`
	timestamps
	creatorRow
}

func (r *listRow) view() (*ListView, error) {
	v := &ListView{
		List: List{
			ID:          r.ID,
			ProjectID:   r.ProjectID,
			BoardID:     r.BoardID,
			Title:       r.Title,
			Description: r.Description,
			Status:      ListStatus(r.Status),
			Position:    r.Position,
			CreatedBy:   r.CreatedBy,
		},
		Project: ref(r.ProjectRefID, r.ProjectTitle),
		Board:   ref(r.BoardRefID, r.BoardTitle),
		Creator: r.creatorRow.ref(),
	}
	var err error
	if v.Metadata, err = decodeMetadata(r.Metadata); err != nil {
		return nil, err
	}
	if v.CreatedAt, v.UpdatedAt, err = r.parse(); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *SQLStore) listSelect() sq.SelectBuilder {
	cols := append([]string{
		"l.id", "l.project_id", "l.board_id", "l.title", "l.description", "l.status", "l.position", "l.metadata",
		"l.created_by", "l.created_at", "l.updated_at",
		"p.id AS project_ref_id", "p.title AS project_title",
		"b.id AS board_ref_id", "b.title AS board_title",
	}, creatorColumns...)
	return s.sb.Select(cols...).From("lists l").
		LeftJoin("projects p ON p.id = l.project_id").
		LeftJoin("boards b ON b.id = l.board_id").
		LeftJoin("users cu ON cu.id = l.created_by")
}

// CreateList inserts a list.
func (s *SQLStore) CreateList(ctx context.Context, l *List) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if l.Status == "" {
		l.Status = ListActive
	}
	if l.Metadata == nil {
		l.Metadata = Metadata{}
	}
	meta, err := encodeMetadata(l.Metadata)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	l.CreatedAt, l.UpdatedAt = now, now

	_, err = s.exec(ctx, s.sb.Insert("lists").
		Columns("id", "project_id", "board_id", "title", "description", "status", "position", "metadata",
			"created_by", "created_at", "updated_at").
		Values(l.ID, l.ProjectID, l.BoardID, l.Title, l.Description, string(l.Status), l.Position, meta,
			l.CreatedBy, formatTime(now), formatTime(now)))
	if err != nil {
		return mapWriteError(err, "inserting list")
	}
	s.logger.Debug("created list", "id", l.ID, "board_id", l.BoardID)
	return nil
}

// GetList retrieves a list with its project, board and creator.
func (s *SQLStore) GetList(ctx context.Context, id string) (*ListView, error) {
	var row listRow
	if err := s.get(ctx, &row, s.listSelect().Where(sq.Eq{"l.id": id})); err != nil {
		return nil, mapReadError(err, "querying list")
	}
	return row.view()
}

// ListLists returns a page of lists ordered by position.
func (s *SQLStore) ListLists(ctx context.Context, filter ListFilter) (*Page[ListView], error) {
	filter.Normalize()

	where := sq.And{}
	if filter.ProjectID != "" {
		where = append(where, sq.Eq{"l.project_id": filter.ProjectID})
	}
	if filter.BoardID != "" {
		where = append(where, sq.Eq{"l.board_id": filter.BoardID})
	}
	if filter.Status != "" {
		where = append(where, sq.Eq{"l.status": filter.Status})
	}
	if filter.Search != "" {
		where = append(where, searchClause(filter.Search, "l.title"))
	}

	total, err := s.count(ctx, "lists l", where)
	if err != nil {
		return nil, fmt.Errorf("counting lists: %w", err)
	}

	var rows []listRow
	q := s.listSelect().Where(where).OrderBy("l.position ASC", "l.created_at DESC").
		Limit(uint64(filter.Limit)).Offset(filter.offset())
	if err := s.selectRows(ctx, &rows, q); err != nil {
		return nil, fmt.Errorf("listing lists: %w", err)
	}

	out := make([]ListView, 0, len(rows))
	for i := range rows {
		v, err := rows[i].view()
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return NewPage(out, total, filter), nil
}

// UpdateList writes the mutable list fields. ProjectID and BoardID are never
// rewritten.
func (s *SQLStore) UpdateList(ctx context.Context, l *List) error {
	meta, err := encodeMetadata(l.Metadata)
	if err != nil {
		return err
	}
	l.UpdatedAt = time.Now().UTC()
	n, err := s.exec(ctx, s.sb.Update("lists").
		Set("title", l.Title).
		Set("description", l.Description).
		Set("status", string(l.Status)).
		Set("position", l.Position).
		Set("metadata", meta).
		Set("updated_at", formatTime(l.UpdatedAt)).
		Where(sq.Eq{"id": l.ID}))
	if err != nil {
		return mapWriteError(err, "updating list")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteList removes a list and its tasks.
func (s *SQLStore) DeleteList(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "lists", id)
}
