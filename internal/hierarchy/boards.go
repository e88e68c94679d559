// ABOUTME: Board and list operations of the hierarchy service
// ABOUTME: Lists copy their project from the board they are created in

package hierarchy

import (
	"context"

	"github.com/2389/trellis/internal/access"
	"github.com/2389/trellis/internal/apperr"
	"github.com/2389/trellis/internal/store"
)

var boardManagers = []store.Role{store.RoleAdmin, store.RoleTeamLead}

// CreateBoard creates a board in an existing project. Only the role gate
// applies; the board has no id for the access engine to check yet.
func (s *Service) CreateBoard(ctx context.Context, a access.Actor, in CreateBoardInput) (*store.BoardView, error) {
	if err := access.RequireRole(a.Role, "Only admins and team leads can create boards", boardManagers...); err != nil {
		return nil, err
	}
	if err := in.Validate().Err(); err != nil {
		return nil, err
	}
	if _, err := s.GetProject(ctx, in.ProjectID); err != nil {
		return nil, err
	}

	b := &store.Board{
		ProjectID:   in.ProjectID,
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Metadata:    in.Metadata,
		CreatedBy:   a.UserID,
	}
	if err := s.store.CreateBoard(ctx, b); err != nil {
		return nil, translate(err, "Board", b.ID, "create")
	}
	s.logger.Info("board created", "board_id", b.ID, "project_id", b.ProjectID, "user_id", a.UserID)
	return s.GetBoard(ctx, b.ID)
}

// GetBoard returns a hydrated board.
func (s *Service) GetBoard(ctx context.Context, id string) (*store.BoardView, error) {
	b, err := s.store.GetBoard(ctx, id)
	if err != nil {
		return nil, translate(err, "Board", id, "fetch")
	}
	return b, nil
}

// ListBoards pages through boards, newest first. ProjectID narrows the
// listing to one project.
func (s *Service) ListBoards(ctx context.Context, p ListParams) (*store.Page[store.BoardView], error) {
	if err := validateStatus(p.Status, func(v string) bool { return store.BoardStatus(v).Valid() },
		"must be one of active, archived"); err != nil {
		return nil, err
	}
	page, err := s.store.ListBoards(ctx, normalize(p))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to fetch boards")
	}
	return page, nil
}

// UpdateBoard applies a partial update. The project cannot change.
func (s *Service) UpdateBoard(ctx context.Context, a access.Actor, id string, in UpdateBoardInput) (*store.BoardView, error) {
	if err := access.RequireRole(a.Role, "Only admins and team leads can update boards", boardManagers...); err != nil {
		return nil, err
	}
	if err := in.Validate().Err(); err != nil {
		return nil, err
	}
	cur, err := s.GetBoard(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.check(ctx, a, access.Target{ProjectID: cur.ProjectID, BoardID: cur.ID}, access.Write); err != nil {
		return nil, err
	}

	b := cur.Board
	if in.Title != nil {
		b.Title = *in.Title
	}
	if in.Description != nil {
		b.Description = *in.Description
	}
	if in.Status != nil {
		b.Status = *in.Status
	}
	if in.Metadata != nil {
		b.Metadata = in.Metadata
	}
	if err := s.store.UpdateBoard(ctx, &b); err != nil {
		return nil, translate(err, "Board", id, "update")
	}
	return s.GetBoard(ctx, id)
}

// DeleteBoard removes a board, its lists and its memberships.
func (s *Service) DeleteBoard(ctx context.Context, a access.Actor, id string) error {
	if err := access.RequireRole(a.Role, "Only admins and team leads can delete boards", boardManagers...); err != nil {
		return err
	}
	cur, err := s.GetBoard(ctx, id)
	if err != nil {
		return err
	}
	if err := s.check(ctx, a, access.Target{ProjectID: cur.ProjectID, BoardID: cur.ID}, access.Delete); err != nil {
		return err
	}
	if err := s.store.DeleteBoard(ctx, id); err != nil {
		return translate(err, "Board", id, "delete")
	}
	s.logger.Info("board deleted", "board_id", id, "user_id", a.UserID)
	return nil
}

// CreateList creates a list on a board the actor can write to.
func (s *Service) CreateList(ctx context.Context, a access.Actor, in CreateListInput) (*store.ListView, error) {
	if err := in.Validate().Err(); err != nil {
		return nil, err
	}
	board, err := s.GetBoard(ctx, in.BoardID)
	if err != nil {
		return nil, err
	}
	if err := s.check(ctx, a, access.Target{ProjectID: board.ProjectID, BoardID: board.ID}, access.Write); err != nil {
		return nil, err
	}

	l := &store.List{
		ProjectID:   board.ProjectID,
		BoardID:     board.ID,
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Metadata:    in.Metadata,
		CreatedBy:   a.UserID,
	}
	if in.Position != nil {
		l.Position = *in.Position
	}
	if err := s.store.CreateList(ctx, l); err != nil {
		return nil, translate(err, "List", l.ID, "create")
	}
	s.logger.Info("list created", "list_id", l.ID, "board_id", l.BoardID, "user_id", a.UserID)
	return s.GetList(ctx, l.ID, nil)
}

// GetList returns a hydrated list. When a is non-nil the read access check
// runs against the list's board.
func (s *Service) GetList(ctx context.Context, id string, a *access.Actor) (*store.ListView, error) {
	l, err := s.store.GetList(ctx, id)
	if err != nil {
		return nil, translate(err, "List", id, "fetch")
	}
	if a != nil {
		if err := s.check(ctx, *a, access.Target{ProjectID: l.ProjectID, BoardID: l.BoardID}, access.Read); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// ListLists pages through lists ordered by position. BoardID narrows the
// listing to one board.
func (s *Service) ListLists(ctx context.Context, p ListParams) (*store.Page[store.ListView], error) {
	if err := validateStatus(p.Status, func(v string) bool { return store.ListStatus(v).Valid() },
		"must be one of active, inactive, archived"); err != nil {
		return nil, err
	}
	page, err := s.store.ListLists(ctx, normalize(p))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to fetch lists")
	}
	return page, nil
}

// UpdateList applies a partial update. Board and project cannot change.
func (s *Service) UpdateList(ctx context.Context, a access.Actor, id string, in UpdateListInput) (*store.ListView, error) {
	if err := in.Validate().Err(); err != nil {
		return nil, err
	}
	cur, err := s.GetList(ctx, id, nil)
	if err != nil {
		return nil, err
	}
	if err := s.check(ctx, a, access.Target{ProjectID: cur.ProjectID, BoardID: cur.BoardID}, access.Write); err != nil {
		return nil, err
	}

	l := cur.List
	if in.Title != nil {
		l.Title = *in.Title
	}
	if in.Description != nil {
		l.Description = *in.Description
	}
	if in.Status != nil {
		l.Status = *in.Status
	}
	if in.Position != nil {
		l.Position = *in.Position
	}
	if in.Metadata != nil {
		l.Metadata = in.Metadata
	}
	if err := s.store.UpdateList(ctx, &l); err != nil {
		return nil, translate(err, "List", id, "update")
	}
	return s.GetList(ctx, id, nil)
}

// DeleteList removes a list and its tasks.
func (s *Service) DeleteList(ctx context.Context, a access.Actor, id string) error {
	cur, err := s.GetList(ctx, id, nil)
	if err != nil {
		return err
	}
	if err := s.check(ctx, a, access.Target{ProjectID: cur.ProjectID, BoardID: cur.BoardID}, access.Delete); err != nil {
		return err
	}
	if err := s.store.DeleteList(ctx, id); err != nil {
		return translate(err, "List", id, "delete")
	}
	s.logger.Info("list deleted", "list_id", id, "user_id", a.UserID)
	return nil
}
