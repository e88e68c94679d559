// ABOUTME: Team-lead and board-member management with role and access gates
// ABOUTME: Verifies parent entity and user exist before touching the registries

package hierarchy

import (
	"context"

	"github.com/2389/trellis/internal/access"
	"github.com/2389/trellis/internal/store"
)

// AssignTeamLead makes userID a team lead of projectID. Admin only.
func (s *Service) AssignTeamLead(ctx context.Context, a access.Actor, projectID, userID, role string) (*store.Membership, error) {
	if err := access.RequireRole(a.Role, "Only admins can assign team leads", store.RoleAdmin); err != nil {
		return nil, err
	}
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	if _, err := s.users.Get(ctx, userID); err != nil {
		return nil, err
	}
	m, err := s.leads.Create(ctx, projectID, userID, role)
	if err != nil {
		return nil, err
	}
	return s.leads.Get(ctx, m.ParentID, m.UserID)
}

// UpdateTeamLead changes the role label of an assignment. Admin only.
func (s *Service) UpdateTeamLead(ctx context.Context, a access.Actor, projectID, userID, role string) (*store.Membership, error) {
	if err := access.RequireRole(a.Role, "Only admins can update team leads", store.RoleAdmin); err != nil {
		return nil, err
	}
	return s.leads.Update(ctx, projectID, userID, role)
}

// RemoveTeamLead removes a team-lead assignment. Admin only.
func (s *Service) RemoveTeamLead(ctx context.Context, a access.Actor, projectID, userID string) error {
	if err := access.RequireRole(a.Role, "Only admins can remove team leads", store.RoleAdmin); err != nil {
		return err
	}
	return s.leads.Remove(ctx, projectID, userID)
}

// boardMemberGate loads the board and checks the actor may manage its members.
func (s *Service) boardMemberGate(ctx context.Context, a access.Actor, boardID, message string) error {
	if err := access.RequireRole(a.Role, message, boardManagers...); err != nil {
		return err
	}
	b, err := s.GetBoard(ctx, boardID)
	if err != nil {
		return err
	}
	return s.check(ctx, a, access.Target{ProjectID: b.ProjectID, BoardID: b.ID}, access.Write)
}

// AddBoardMember adds userID to boardID. Admins and the board project's team
// leads may do this.
func (s *Service) AddBoardMember(ctx context.Context, a access.Actor, boardID, userID, role string) (*store.Membership, error) {
	if err := s.boardMemberGate(ctx, a, boardID, "Only admins and team leads can add board members"); err != nil {
		return nil, err
	}
	if _, err := s.users.Get(ctx, userID); err != nil {
		return nil, err
	}
	m, err := s.members.Create(ctx, boardID, userID, role)
	if err != nil {
		return nil, err
	}
	return s.members.Get(ctx, m.ParentID, m.UserID)
}

// UpdateBoardMember changes the role label of a membership.
func (s *Service) UpdateBoardMember(ctx context.Context, a access.Actor, boardID, userID, role string) (*store.Membership, error) {
	if err := s.boardMemberGate(ctx, a, boardID, "Only admins and team leads can update board members"); err != nil {
		return nil, err
	}
	return s.members.Update(ctx, boardID, userID, role)
}

// RemoveBoardMember removes userID from boardID.
func (s *Service) RemoveBoardMember(ctx context.Context, a access.Actor, boardID, userID string) error {
	if err := s.boardMemberGate(ctx, a, boardID, "Only admins and team leads can remove board members"); err != nil {
		return err
	}
	return s.members.Remove(ctx, boardID, userID)
}
