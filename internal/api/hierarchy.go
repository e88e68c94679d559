// ABOUTME: HTTP handlers for workspaces, projects, boards, lists and tasks
// ABOUTME: Each entity gets create, list, get, update and delete routes

package api

import (
	"github.com/gin-gonic/gin"

	"github.com/2389/trellis/internal/hierarchy"
)

func (h *Handler) createWorkspace(c *gin.Context) {
	var in hierarchy.CreateWorkspaceInput
	if !bind(c, &in) {
		return
	}
	w, err := h.hierarchy.CreateWorkspace(c.Request.Context(), actor(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	h.created(c, w)
}

func (h *Handler) listWorkspaces(c *gin.Context) {
	p, ok := listParams(c)
	if !ok {
		return
	}
	page, err := h.hierarchy.ListWorkspaces(c.Request.Context(), p)
	if err != nil {
		fail(c, err)
		return
	}
	h.ok(c, page)
}

func (h *Handler) getWorkspace(c *gin.Context) {
	w, err := h.hierarchy.GetWorkspace(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	h.ok(c, w)
}

func (h *Handler) updateWorkspace(c *gin.Context) {
	var in hierarchy.UpdateWorkspaceInput
	if !bind(c, &in) {
		return
	}
	w, err := h.hierarchy.UpdateWorkspace(c.Request.Context(), actor(c), c.Param("id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	h.updated(c, w)
}

func (h *Handler) deleteWorkspace(c *gin.Context) {
	if err := h.hierarchy.DeleteWorkspace(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	h.deleted(c)
}

func (h *Handler) createProject(c *gin.Context) {
	var in hierarchy.CreateProjectInput
	if !bind(c, &in) {
		return
	}
	p, err := h.hierarchy.CreateProject(c.Request.Context(), actor(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	h.created(c, p)
}

func (h *Handler) listProjects(c *gin.Context) {
	p, ok := listParams(c)
	if !ok {
		return
	}
	page, err := h.hierarchy.ListProjects(c.Request.Context(), p)
	if err != nil {
		fail(c, err)
		return
	}
	h.ok(c, page)
}

func (h *Handler) getProject(c *gin.Context) {
	p, err := h.hierarchy.GetProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	h.ok(c, p)
}

func (h *Handler) updateProject(c *gin.Context) {
	var in hierarchy.UpdateProjectInput
	if !bind(c, &in) {
		return
	}
	p, err := h.hierarchy.UpdateProject(c.Request.Context(), actor(c), c.Param("id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	h.updated(c, p)
}

func (h *Handler) deleteProject(c *gin.Context) {
	if err := h.hierarchy.DeleteProject(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	h.deleted(c)
}

func (h *Handler) createBoard(c *gin.Context) {
	var in hierarchy.CreateBoardInput
	if !bind(c, &in) {
		return
	}
	b, err := h.hierarchy.CreateBoard(c.Request.Context(), actor(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	h.created(c, b)
}

func (h *Handler) listBoards(c *gin.Context) {
	p, ok := listParams(c)
	if !ok {
		return
	}
	page, err := h.hierarchy.ListBoards(c.Request.Context(), p)
	if err != nil {
		fail(c, err)
		return
	}
	h.ok(c, page)
}

func (h *Handler) getBoard(c *gin.Context) {
	b, err := h.hierarchy.GetBoard(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	h.ok(c, b)
}

func (h *Handler) updateBoard(c *gin.Context) {
	var in hierarchy.UpdateBoardInput
	if !bind(c, &in) {
		return
	}
	b, err := h.hierarchy.UpdateBoard(c.Request.Context(), actor(c), c.Param("id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	h.updated(c, b)
}

func (h *Handler) deleteBoard(c *gin.Context) {
	if err := h.hierarchy.DeleteBoard(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	h.deleted(c)
}

func (h *Handler) createList(c *gin.Context) {
	var in hierarchy.CreateListInput
	if !bind(c, &in) {
		return
	}
	l, err := h.hierarchy.CreateList(c.Request.Context(), actor(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	h.created(c, l)
}

func (h *Handler) listLists(c *gin.Context) {
	p, ok := listParams(c)
	if !ok {
		return
	}
	page, err := h.hierarchy.ListLists(c.Request.Context(), p)
	if err != nil {
		fail(c, err)
		return
	}
	h.ok(c, page)
}

// getList runs the read check for the caller.
func (h *Handler) getList(c *gin.Context) {
	a := actor(c)
	l, err := h.hierarchy.GetList(c.Request.Context(), c.Param("id"), &a)
	if err != nil {
		fail(c, err)
		return
	}
	h.ok(c, l)
}

func (h *Handler) updateList(c *gin.Context) {
	var in hierarchy.UpdateListInput
	if !bind(c, &in) {
		return
	}
	l, err := h.hierarchy.UpdateList(c.Request.Context(), actor(c), c.Param("id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	h.updated(c, l)
}

func (h *Handler) deleteList(c *gin.Context) {
	if err := h.hierarchy.DeleteList(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	h.deleted(c)
}

func (h *Handler) createTask(c *gin.Context) {
	var in hierarchy.CreateTaskInput
	if !bind(c, &in) {
		return
	}
	t, err := h.hierarchy.CreateTask(c.Request.Context(), actor(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	h.created(c, t)
}

func (h *Handler) listTasks(c *gin.Context) {
	p, ok := listParams(c)
	if !ok {
		return
	}
	page, err := h.hierarchy.ListTasks(c.Request.Context(), p)
	if err != nil {
		fail(c, err)
		return
	}
	h.ok(c, page)
}

func (h *Handler) getTask(c *gin.Context) {
	a := actor(c)
	t, err := h.hierarchy.GetTask(c.Request.Context(), c.Param("id"), &a)
	if err != nil {
		fail(c, err)
		return
	}
	h.ok(c, t)
}

func (h *Handler) updateTask(c *gin.Context) {
	var in hierarchy.UpdateTaskInput
	if !bind(c, &in) {
		return
	}
	t, err := h.hierarchy.UpdateTask(c.Request.Context(), actor(c), c.Param("id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	h.updated(c, t)
}

func (h *Handler) deleteTask(c *gin.Context) {
	if err := h.hierarchy.DeleteTask(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	h.deleted(c)
}
