package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskboard/internal/board"
	"taskboard/internal/changefeed"
	"taskboard/internal/models"
)

// handleListProjects returns all projects, newest first.
func (s *Server) handleListProjects(c *gin.Context) {
	projects, err := s.store.ListProjects(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"projects": projects})
}

// handleGetProject returns one project.
func (s *Server) handleGetProject(c *gin.Context) {
	project, err := s.store.GetProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"project": project})
}

// handleCreateProject creates a project owned by the caller.
func (s *Server) handleCreateProject(c *gin.Context) {
	var req models.ProjectInput
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	project, err := s.store.CreateProject(c.Request.Context(), actor(c).UserID, req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"project": project})
}

// handleUpdateProject edits the name and description of a project.
func (s *Server) handleUpdateProject(c *gin.Context) {
	var req models.ProjectInput
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	project, err := s.store.UpdateProject(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"project": project})
}

// handleDeleteProject removes a project with its tasks and tells board
// subscribers about every task that went with it.
func (s *Server) handleDeleteProject(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	tasks, err := s.store.ListTasks(ctx, id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if err := s.store.DeleteProject(ctx, id); err != nil {
		s.respondError(c, err)
		return
	}
	for _, t := range tasks {
		s.publish(ctx, changefeed.TaskTopic(id), changefeed.TaskEvent(changefeed.KindDelete, t))
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// handleProjectStats summarizes the tasks of a project.
func (s *Server) handleProjectStats(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if _, err := s.store.GetProject(ctx, id); err != nil {
		s.respondError(c, err)
		return
	}
	tasks, err := s.store.ListTasks(ctx, id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"stats": board.Summarize(tasks, models.DateOf(s.now()))})
}
