package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskboard/internal/changefeed"
	"taskboard/internal/models"
)

const activityLimit = 10

type statusRequest struct {
	Status models.Status `json:"status"`
}

type assigneeRequest struct {
	AssignedTo *string `json:"assigned_to"`
}

// handleListTasks fetches the joined task list of a project, newest first.
func (s *Server) handleListTasks(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := c.Param("id")
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		s.respondError(c, err)
		return
	}

	tasks, err := s.store.ListTasks(ctx, projectID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"tasks": tasks})
}

// handleCreateTask inserts a new task into a project column.
func (s *Server) handleCreateTask(c *gin.Context) {
	var req models.TaskInput
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	task, err := s.store.CreateTask(ctx, c.Param("id"), actor(c).UserID, req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.publish(ctx, changefeed.TaskTopic(task.ProjectID), changefeed.TaskEvent(changefeed.KindInsert, task))
	respondSuccess(c, http.StatusCreated, gin.H{"task": task})
}

// handleGetTask returns the joined view of one task.
func (s *Server) handleGetTask(c *gin.Context) {
	task, err := s.store.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// canEdit loads the task and checks the caller manages projects or holds it.
func (s *Server) canEdit(c *gin.Context) (models.Task, bool) {
	task, err := s.store.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return models.Task{}, false
	}
	a := actor(c)
	if a.Elevated() || (task.AssignedTo != nil && *task.AssignedTo == a.UserID) {
		return task, true
	}
	s.respondError(c, fmt.Errorf("edit task %s: %w", task.ID, models.ErrForbidden))
	return models.Task{}, false
}

// handleUpdateTask edits task fields. Reassignment goes through the assignee route.
func (s *Server) handleUpdateTask(c *gin.Context) {
	var req models.TaskInput
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	current, ok := s.canEdit(c)
	if !ok {
		return
	}
	if req.AssignedTo != nil && !actor(c).Elevated() {
		s.respondError(c, fmt.Errorf("reassign task %s: %w", current.ID, models.ErrForbidden))
		return
	}

	ctx := c.Request.Context()
	task, err := s.store.UpdateTask(ctx, current.ID, actor(c).UserID, req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.publish(ctx, changefeed.TaskTopic(task.ProjectID), changefeed.TaskEvent(changefeed.KindUpdate, task))
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleUpdateStatus moves a task to another column.
func (s *Server) handleUpdateStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	current, ok := s.canEdit(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	task, err := s.store.UpdateTaskStatus(ctx, current.ID, actor(c).UserID, req.Status)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.publish(ctx, changefeed.TaskTopic(task.ProjectID), changefeed.TaskEvent(changefeed.KindUpdate, task))
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleSetAssignee changes or clears the assignee of a task.
func (s *Server) handleSetAssignee(c *gin.Context) {
	var req assigneeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	task, err := s.store.SetAssignee(ctx, c.Param("id"), actor(c).UserID, req.AssignedTo)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.publish(ctx, changefeed.TaskTopic(task.ProjectID), changefeed.TaskEvent(changefeed.KindUpdate, task))
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleDeleteTask removes a task completely.
func (s *Server) handleDeleteTask(c *gin.Context) {
	ctx := c.Request.Context()
	task, err := s.store.DeleteTask(ctx, c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.publish(ctx, changefeed.TaskTopic(task.ProjectID), changefeed.TaskEvent(changefeed.KindDelete, task))
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// handleListSubtasks returns the children of a task.
func (s *Server) handleListSubtasks(c *gin.Context) {
	ctx := c.Request.Context()
	if _, err := s.store.GetTask(ctx, c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	tasks, err := s.store.ListSubtasks(ctx, c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"tasks": tasks})
}

// handleListActivity returns the latest audit entries of a task.
func (s *Server) handleListActivity(c *gin.Context) {
	ctx := c.Request.Context()
	if _, err := s.store.GetTask(ctx, c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	activity, err := s.store.ListActivity(ctx, c.Param("id"), activityLimit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"activity": activity})
}
