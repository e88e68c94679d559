// ABOUTME: HTTP handlers for task assignments
// ABOUTME: Single and bulk assign, unassign, reassign and per-assignment updates

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/2389/trellis/internal/apperr"
	"github.com/2389/trellis/internal/hierarchy"
	"github.com/2389/trellis/internal/store"
)

// UnassignRequest is the JSON body for POST /task-assignees/unassign.
type UnassignRequest struct {
	TaskID  string   `json:"taskId"`
	UserIDs []string `json:"userIds"`
}

// ReassignRequest is the JSON body for POST /task-assignees/reassign.
type ReassignRequest struct {
	TaskID     string `json:"taskId"`
	FromUserID string `json:"fromUserId"`
	ToUserID   string `json:"toUserId"`
}

// MetadataRequest is the JSON body for PATCH /task-assignees/:id.
type MetadataRequest struct {
	Metadata store.Metadata `json:"metadata"`
}

func (h *Handler) assign(c *gin.Context) {
	var in hierarchy.AssignInput
	if !bind(c, &in) {
		return
	}
	ta, err := h.assignees.Assign(c.Request.Context(), actor(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	h.created(c, ta)
}

func (h *Handler) assignMany(c *gin.Context) {
	var in hierarchy.BulkAssignInput
	if !bind(c, &in) {
		return
	}
	out, err := h.assignees.AssignMany(c.Request.Context(), actor(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	h.created(c, out)
}

func (h *Handler) unassign(c *gin.Context) {
	var in UnassignRequest
	if !bind(c, &in) {
		return
	}
	if in.TaskID == "" {
		fail(c, apperr.FieldErrors{"taskId": "is required"}.Err())
		return
	}
	n, err := h.assignees.Unassign(c.Request.Context(), actor(c), in.TaskID, in.UserIDs)
	if err != nil {
		fail(c, err)
		return
	}
	h.write(c, http.StatusOK, MsgDeleted, gin.H{"removed": n})
}

func (h *Handler) reassign(c *gin.Context) {
	var in ReassignRequest
	if !bind(c, &in) {
		return
	}
	f := apperr.FieldErrors{}
	for field, v := range map[string]string{"taskId": in.TaskID, "fromUserId": in.FromUserID, "toUserId": in.ToUserID} {
		if v == "" {
			f.Add(field, "is required")
		}
	}
	if err := f.Err(); err != nil {
		fail(c, err)
		return
	}
	ta, err := h.assignees.Reassign(c.Request.Context(), actor(c), in.TaskID, in.FromUserID, in.ToUserID)
	if err != nil {
		fail(c, err)
		return
	}
	h.updated(c, ta)
}

// listAssignees requires a taskId or userId filter.
func (h *Handler) listAssignees(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		out []*store.TaskAssigneeView
		err error
	)
	switch {
	case c.Query("taskId") != "":
		out, err = h.assignees.ListByTask(ctx, c.Query("taskId"))
	case c.Query("userId") != "":
		out, err = h.assignees.ListByUser(ctx, c.Query("userId"))
	default:
		err = apperr.BadRequest("taskId or userId query parameter is required")
	}
	if err != nil {
		fail(c, err)
		return
	}
	h.ok(c, gin.H{"assignees": out, "count": len(out)})
}

func (h *Handler) isAssigned(c *gin.Context) {
	taskID, userID := c.Query("taskId"), c.Query("userId")
	if err := requireIDs("taskId", taskID, userID); err != nil {
		fail(c, err)
		return
	}
	ok, err := h.assignees.IsAssigned(c.Request.Context(), taskID, userID)
	if err != nil {
		fail(c, err)
		return
	}
	h.ok(c, gin.H{"assigned": ok})
}

func (h *Handler) countAssignees(c *gin.Context) {
	n, err := h.assignees.Count(c.Request.Context(), c.Param("taskId"))
	if err != nil {
		fail(c, err)
		return
	}
	h.ok(c, gin.H{"count": n})
}

func (h *Handler) getAssignee(c *gin.Context) {
	ta, err := h.assignees.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	h.ok(c, ta)
}

func (h *Handler) updateAssignee(c *gin.Context) {
	var in MetadataRequest
	if !bind(c, &in) {
		return
	}
	ta, err := h.assignees.Update(c.Request.Context(), actor(c), c.Param("id"), in.Metadata)
	if err != nil {
		fail(c, err)
		return
	}
	h.updated(c, ta)
}

func (h *Handler) removeAssignee(c *gin.Context) {
	if err := h.assignees.Remove(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	h.deleted(c)
}
