// ABOUTME: HTTP handlers for project team leads and board members
// ABOUTME: Writes go through the hierarchy service, reads straight to the registries

package api

import (
	"github.com/gin-gonic/gin"

	"github.com/2389/trellis/internal/apperr"
	"github.com/2389/trellis/internal/membership"
	"github.com/2389/trellis/internal/store"
)

// TeamLeadRequest is the JSON body for POST /project-team-leads.
type TeamLeadRequest struct {
	ProjectID string `json:"projectId"`
	UserID    string `json:"userId"`
	Role      string `json:"role"`
}

// BoardMemberRequest is the JSON body for POST /board-members.
type BoardMemberRequest struct {
	BoardID string `json:"boardId"`
	UserID  string `json:"userId"`
	Role    string `json:"role"`
}

// RoleRequest is the JSON body for PATCH on a membership.
type RoleRequest struct {
	Role string `json:"role"`
}

func requireIDs(parentField, parentID, userID string) error {
	f := apperr.FieldErrors{}
	if parentID == "" {
		f.Add(parentField, "is required")
	}
	if userID == "" {
		f.Add("userId", "is required")
	}
	return f.Err()
}

func (h *Handler) assignTeamLead(c *gin.Context) {
	var in TeamLeadRequest
	if !bind(c, &in) {
		return
	}
	if err := requireIDs("projectId", in.ProjectID, in.UserID); err != nil {
		fail(c, err)
		return
	}
	m, err := h.hierarchy.AssignTeamLead(c.Request.Context(), actor(c), in.ProjectID, in.UserID, in.Role)
	if err != nil {
		fail(c, err)
		return
	}
	h.created(c, m)
}

func (h *Handler) updateTeamLead(c *gin.Context) {
	var in RoleRequest
	if !bind(c, &in) {
		return
	}
	m, err := h.hierarchy.UpdateTeamLead(c.Request.Context(), actor(c), c.Param("parentId"), c.Param("userId"), in.Role)
	if err != nil {
		fail(c, err)
		return
	}
	h.updated(c, m)
}

func (h *Handler) removeTeamLead(c *gin.Context) {
	if err := h.hierarchy.RemoveTeamLead(c.Request.Context(), actor(c), c.Param("parentId"), c.Param("userId")); err != nil {
		fail(c, err)
		return
	}
	h.deleted(c)
}

func (h *Handler) listTeamLeads(c *gin.Context) {
	h.listMemberships(c, h.leads, "projectId")
}

func (h *Handler) getTeamLead(c *gin.Context) {
	h.getMembership(c, h.leads)
}

func (h *Handler) addBoardMember(c *gin.Context) {
	var in BoardMemberRequest
	if !bind(c, &in) {
		return
	}
	if err := requireIDs("boardId", in.BoardID, in.UserID); err != nil {
		fail(c, err)
		return
	}
	m, err := h.hierarchy.AddBoardMember(c.Request.Context(), actor(c), in.BoardID, in.UserID, in.Role)
	if err != nil {
		fail(c, err)
		return
	}
	h.created(c, m)
}

func (h *Handler) updateBoardMember(c *gin.Context) {
	var in RoleRequest
	if !bind(c, &in) {
		return
	}
	m, err := h.hierarchy.UpdateBoardMember(c.Request.Context(), actor(c), c.Param("parentId"), c.Param("userId"), in.Role)
	if err != nil {
		fail(c, err)
		return
	}
	h.updated(c, m)
}

func (h *Handler) removeBoardMember(c *gin.Context) {
	if err := h.hierarchy.RemoveBoardMember(c.Request.Context(), actor(c), c.Param("parentId"), c.Param("userId")); err != nil {
		fail(c, err)
		return
	}
	h.deleted(c)
}

func (h *Handler) listBoardMembers(c *gin.Context) {
	h.listMemberships(c, h.members, "boardId")
}

func (h *Handler) getBoardMember(c *gin.Context) {
	h.getMembership(c, h.members)
}

// listMemberships filters by the parent query parameter, then by userId, and
// otherwise returns every row.
func (h *Handler) listMemberships(c *gin.Context, reg *membership.Registry, parentParam string) {
	ctx := c.Request.Context()
	var (
		rows []*store.Membership
		err  error
	)
	switch {
	case c.Query(parentParam) != "":
		rows, err = reg.ListByParent(ctx, c.Query(parentParam))
	case c.Query("userId") != "":
		rows, err = reg.ListByUser(ctx, c.Query("userId"))
	default:
		rows, err = reg.ListAll(ctx)
	}
	if err != nil {
		fail(c, err)
		return
	}
	h.ok(c, rows)
}

func (h *Handler) getMembership(c *gin.Context, reg *membership.Registry) {
	m, err := reg.Get(c.Request.Context(), c.Param("parentId"), c.Param("userId"))
	if err != nil {
		fail(c, err)
		return
	}
	h.ok(c, m)
}
