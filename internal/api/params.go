// ABOUTME: Request parsing helpers shared by every handler
// ABOUTME: Binds JSON bodies, parses listing query parameters and reads the caller

package api

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/2389/trellis/internal/access"
	"github.com/2389/trellis/internal/apperr"
	"github.com/2389/trellis/internal/auth"
	"github.com/2389/trellis/internal/hierarchy"
)

// bind decodes the JSON body into dst. On failure it records a BadRequest and
// returns false.
func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		fail(c, apperr.Wrap(apperr.KindBadRequest, err, "invalid request body"))
		return false
	}
	return true
}

// actor returns the authenticated caller. Only valid behind the gate.
func actor(c *gin.Context) access.Actor {
	return auth.MustFromContext(c.Request.Context())
}

// listParams reads pagination, filter and search parameters from the query.
func listParams(c *gin.Context) (hierarchy.ListParams, bool) {
	p := hierarchy.ListParams{
		Status:      c.Query("status"),
		Search:      c.Query("search"),
		WorkspaceID: c.Query("workspaceId"),
		ProjectID:   c.Query("projectId"),
		BoardID:     c.Query("boardId"),
		ListID:      c.Query("listId"),
		Priority:    c.Query("priority"),
		AssigneeID:  c.Query("assigneeId"),
	}

	var ok bool
	if p.Page, ok = positiveInt(c, "page"); !ok {
		return p, false
	}
	if p.Limit, ok = positiveInt(c, "limit"); !ok {
		return p, false
	}
	return p, true
}

// positiveInt parses an optional positive integer query parameter. Absent
// parameters yield zero, which the services replace with their defaults.
func positiveInt(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		fields := apperr.FieldErrors{}
		fields.Add(name, "must be a positive integer")
		fail(c, fields.Err())
		return 0, false
	}
	return n, true
}
