// ABOUTME: Gin router for the trellis HTTP API
// ABOUTME: Wires public auth routes, gated hierarchy routes and admin-only user routes

package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/2389/trellis/internal/auth"
	"github.com/2389/trellis/internal/hierarchy"
	"github.com/2389/trellis/internal/identity"
	"github.com/2389/trellis/internal/membership"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services the API is built on.
type Deps struct {
	Auth      *auth.Service
	Gate      *auth.Gate
	Hierarchy *hierarchy.Service
	Assignees *hierarchy.Assignees
	Users     *identity.Service
	Leads     *membership.Registry
	Members   *membership.Registry
	// Store is optional; when set /health/ready pings it.
	Store Pinger
}

// Handler serves the HTTP API.
type Handler struct {
	auth      *auth.Service
	gate      *auth.Gate
	hierarchy *hierarchy.Service
	assignees *hierarchy.Assignees
	users     *identity.Service
	leads     *membership.Registry
	members   *membership.Registry
	store     Pinger
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a Handler.
func New(deps Deps, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		auth:      deps.Auth,
		gate:      deps.Gate,
		hierarchy: deps.Hierarchy,
		assignees: deps.Assignees,
		users:     deps.Users,
		leads:     deps.Leads,
		members:   deps.Members,
		store:     deps.Store,
		logger:    logger.With("component", "api"),
		now:       time.Now,
	}
}

// Router builds the gin engine with every route registered.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(h.recovery(), h.requestLogger(), h.renderErrors())
	r.NoRoute(func(c *gin.Context) {
		h.write(c, http.StatusNotFound, "Route not found", nil)
	})

	r.GET("/health", h.handleHealth)
	r.GET("/health/ready", h.handleReady)

	public := r.Group("/auth")
	public.POST("/register", h.register)
	public.POST("/login", h.login)
	public.POST("/refresh", h.refresh)
	public.POST("/validate", h.validate)

	gated := r.Group("/", h.gate.Authenticate(), h.gate.StampLogin())
	gated.GET("/auth/me", h.me)

	workspaces := gated.Group("/workspaces")
	workspaces.POST("", h.createWorkspace)
	workspaces.GET("", h.listWorkspaces)
	workspaces.GET("/:id", h.getWorkspace)
	workspaces.PATCH("/:id", h.updateWorkspace)
	workspaces.DELETE("/:id", h.deleteWorkspace)

	projects := gated.Group("/projects")
	projects.POST("", h.createProject)
	projects.GET("", h.listProjects)
	projects.GET("/:id", h.getProject)
	projects.PATCH("/:id", h.updateProject)
	projects.DELETE("/:id", h.deleteProject)

	boards := gated.Group("/boards")
	boards.POST("", h.createBoard)
	boards.GET("", h.listBoards)
	boards.GET("/:id", h.getBoard)
	boards.PATCH("/:id", h.updateBoard)
	boards.DELETE("/:id", h.deleteBoard)

	lists := gated.Group("/lists")
	lists.POST("", h.createList)
	lists.GET("", h.listLists)
	lists.GET("/:id", h.getList)
	lists.PATCH("/:id", h.updateList)
	lists.DELETE("/:id", h.deleteList)

	tasks := gated.Group("/tasks")
	tasks.POST("", h.createTask)
	tasks.GET("", h.listTasks)
	tasks.GET("/:id", h.getTask)
	tasks.PATCH("/:id", h.updateTask)
	tasks.DELETE("/:id", h.deleteTask)

	assignees := gated.Group("/task-assignees")
	assignees.POST("", h.assign)
	assignees.POST("/bulk", h.assignMany)
	assignees.POST("/unassign", h.unassign)
	assignees.POST("/reassign", h.reassign)
	assignees.GET("", h.listAssignees)
	assignees.GET("/check", h.isAssigned)
	assignees.GET("/tasks/:taskId/count", h.countAssignees)
	assignees.GET("/:id", h.getAssignee)
	assignees.PATCH("/:id", h.updateAssignee)
	assignees.DELETE("/:id", h.removeAssignee)

	leads := gated.Group("/project-team-leads")
	leads.POST("", h.assignTeamLead)
	leads.GET("", h.listTeamLeads)
	leads.GET("/:parentId/:userId", h.getTeamLead)
	leads.PATCH("/:parentId/:userId", h.updateTeamLead)
	leads.DELETE("/:parentId/:userId", h.removeTeamLead)

	members := gated.Group("/board-members")
	members.POST("", h.addBoardMember)
	members.GET("", h.listBoardMembers)
	members.GET("/:parentId/:userId", h.getBoardMember)
	members.PATCH("/:parentId/:userId", h.updateBoardMember)
	members.DELETE("/:parentId/:userId", h.removeBoardMember)

	admin := r.Group("/admin", h.gate.Authenticate(), auth.RequireAdmin(), h.gate.StampLogin())
	admin.GET("/users", h.listUsers)
	admin.GET("/users/:id", h.getUser)
	admin.DELETE("/users/:id", h.deleteUser)

	return r
}

// handleHealth returns 200 OK if the server is alive.
func (h *Handler) handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// handleReady returns 200 OK if the store answers a ping.
func (h *Handler) handleReady(c *gin.Context) {
	if h.store == nil {
		c.String(http.StatusOK, "ready")
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("readiness check failed", "error", err)
		c.String(http.StatusServiceUnavailable, "database unavailable")
		return
	}
	c.String(http.StatusOK, "ready")
}
