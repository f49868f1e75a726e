package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"taskboard/internal/auth"
	"taskboard/internal/blob"
	"taskboard/internal/changefeed"
	"taskboard/internal/models"
	"taskboard/internal/storage/sqlite"
)

// Feed publishes change events and opens change channels.
type Feed interface {
	changefeed.Publisher
	changefeed.Subscriber
}

// Deps are the collaborators the HTTP server is built from.
type Deps struct {
	Store     *sqlite.Store
	Feed      Feed
	Auth      *auth.Authenticator
	Blobs     *blob.Store
	Logger    *slog.Logger
	StaticDir string
	// Now defaults to time.Now; stats use it to find overdue tasks.
	Now func() time.Time
}

// Server provides HTTP handlers for the task board backend.
type Server struct {
	engine    *gin.Engine
	store     *sqlite.Store
	feed      Feed
	auth      *auth.Authenticator
	blobs     *blob.Store
	logger    *slog.Logger
	staticDir string
	now       func() time.Time
}

// New constructs the HTTP server with routes and middleware configured.
func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithWriter(gin.DefaultWriter, "/api/healthz"))

	srv := &Server{
		engine:    router,
		store:     deps.Store,
		feed:      deps.Feed,
		auth:      deps.Auth,
		blobs:     deps.Blobs,
		logger:    logger,
		staticDir: deps.StaticDir,
		now:       now,
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API and static handlers together.
func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	api.GET("/healthz", s.handleHealth)

	authed := api.Group("", s.auth.Middleware())
	pm := auth.RequireElevated()
	{
		authed.GET("/me", s.handleMe)
		authed.GET("/me/tasks", s.handleMyTasks)
		authed.GET("/me/stats", s.handleMyStats)
		authed.GET("/calendar", s.handleCalendar)
		authed.GET("/profiles", s.handleListProfiles)
		authed.PUT("/profiles/:id/role", pm, s.handleSetRole)

		projects := authed.Group("/projects")
		{
			projects.GET("", s.handleListProjects)
			projects.POST("", pm, s.handleCreateProject)
			projects.GET(":id", s.handleGetProject)
			projects.PUT(":id", pm, s.handleUpdateProject)
			projects.DELETE(":id", pm, s.handleDeleteProject)
			projects.GET(":id/tasks", s.handleListTasks)
			projects.POST(":id/tasks", pm, s.handleCreateTask)
			projects.GET(":id/stats", s.handleProjectStats)
			projects.GET(":id/changes", s.handleTaskChanges)
		}

		tasks := authed.Group("/tasks")
		{
			tasks.GET("upcoming", s.handleUpcoming)
			tasks.GET(":id", s.handleGetTask)
			tasks.PUT(":id", s.handleUpdateTask)
			tasks.PUT(":id/status", s.handleUpdateStatus)
			tasks.PUT(":id/assignee", pm, s.handleSetAssignee)
			tasks.DELETE(":id", pm, s.handleDeleteTask)
			tasks.GET(":id/subtasks", s.handleListSubtasks)
			tasks.GET(":id/activity", s.handleListActivity)
			tasks.GET(":id/comments", s.handleListComments)
			tasks.POST(":id/comments", s.handleCreateComment)
			tasks.GET(":id/comments/changes", s.handleCommentChanges)
			tasks.POST(":id/attachments", s.handleUpload)
		}

		authed.GET("/comments/:id", s.handleGetComment)
	}

	s.mountFiles()
	s.mountStatic()
}

// handleHealth reports readiness of the database.
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// actor returns the authenticated caller set by the auth middleware.
func actor(c *gin.Context) auth.Actor {
	a, _ := auth.ActorFrom(c)
	return a
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var ve *models.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrTaskCompleted):
		return http.StatusConflict
	case errors.Is(err, models.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

// respondError logs the error and returns a JSON payload with a matching status.
func (s *Server) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	attrs := []any{slog.String("path", c.FullPath()), slog.Int("status", status), slog.String("error", err.Error())}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", attrs...)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	s.logger.Debug("request rejected", attrs...)
	c.JSON(status, gin.H{"error": err.Error()})
}

// badRequest reports a malformed body.
func (s *Server) badRequest(c *gin.Context, err error) {
	s.respondError(c, &models.ValidationError{Field: "body", Message: err.Error()})
}

// respondSuccess wraps a payload in a JSON envelope for consistency.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}

// publish emits a change event. The mutation already committed, so a
// failure is logged and subscribers catch up on their next resync.
func (s *Server) publish(ctx context.Context, topic string, ev changefeed.Event) {
	if s.feed == nil {
		return
	}
	if err := s.feed.Publish(ctx, topic, ev); err != nil {
		s.logger.Warn("publish change failed",
			slog.String("topic", topic),
			slog.String("kind", string(ev.Kind)),
			slog.String("error", err.Error()))
	}
}
