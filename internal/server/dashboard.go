package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"taskboard/internal/board"
	"taskboard/internal/models"
)

const upcomingLimit = 5

// myTasks loads the tasks assigned to the caller, soonest due date first.
func (s *Server) myTasks(c *gin.Context) ([]models.Task, bool) {
	tasks, err := s.store.ListAssigned(c.Request.Context(), actor(c).UserID)
	if err != nil {
		s.respondError(c, err)
		return nil, false
	}
	return tasks, true
}

// handleMyTasks lists the caller's tasks across projects.
func (s *Server) handleMyTasks(c *gin.Context) {
	tasks, ok := s.myTasks(c)
	if !ok {
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"tasks": tasks})
}

// handleMyStats summarizes the caller's tasks: counts, overdue and hours.
func (s *Server) handleMyStats(c *gin.Context) {
	tasks, ok := s.myTasks(c)
	if !ok {
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"stats": board.Summarize(tasks, models.DateOf(s.now()))})
}

// handleUpcoming lists the caller's soonest open deadlines.
func (s *Server) handleUpcoming(c *gin.Context) {
	limit := upcomingLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.respondError(c, &models.ValidationError{Field: "limit", Message: "limit must be a positive integer"})
			return
		}
		limit = n
	}
	tasks, ok := s.myTasks(c)
	if !ok {
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"tasks": board.Upcoming(tasks, limit)})
}

// handleCalendar groups every dated task by due date. from and to bound the
// range inclusively when given.
func (s *Server) handleCalendar(c *gin.Context) {
	var from, to *models.Date
	for _, q := range []struct {
		name string
		dst  **models.Date
	}{{"from", &from}, {"to", &to}} {
		raw := c.Query(q.name)
		if raw == "" {
			continue
		}
		d, err := models.ParseDate(raw)
		if err != nil {
			s.respondError(c, &models.ValidationError{Field: q.name, Message: err.Error()})
			return
		}
		*q.dst = &d
	}

	tasks, err := s.store.ListDated(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	inRange := tasks[:0]
	for _, t := range tasks {
		if (from != nil && t.DueDate.Before(*from)) || (to != nil && to.Before(*t.DueDate)) {
			continue
		}
		inRange = append(inRange, t)
	}
	respondSuccess(c, http.StatusOK, gin.H{"calendar": board.Calendar(inRange, models.DateOf(s.now()))})
}
