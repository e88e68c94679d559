// ABOUTME: Admin-only HTTP handlers for user accounts
// ABOUTME: List with role filter and search, fetch one, hard delete

package api

import (
	"github.com/gin-gonic/gin"

	"github.com/2389/trellis/internal/apperr"
	"github.com/2389/trellis/internal/store"
)

// listUsers accepts ?role= as well as the standard listing parameters.
func (h *Handler) listUsers(c *gin.Context) {
	p, ok := listParams(c)
	if !ok {
		return
	}
	if role := c.Query("role"); role != "" {
		if _, err := store.ParseRole(role); err != nil {
			fail(c, apperr.FieldErrors{"role": "must be one of admin, team_lead, user"}.Err())
			return
		}
		p.Status = role
	}
	page, err := h.users.List(c.Request.Context(), p)
	if err != nil {
		fail(c, err)
		return
	}
	h.ok(c, page)
}

func (h *Handler) getUser(c *gin.Context) {
	u, err := h.users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	h.ok(c, u)
}

func (h *Handler) deleteUser(c *gin.Context) {
	if err := h.users.Remove(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	h.deleted(c)
}
