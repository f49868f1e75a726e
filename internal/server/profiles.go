package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskboard/internal/models"
)

type roleRequest struct {
	Role models.Role `json:"role"`
}

type meResponse struct {
	models.Profile
	Elevated bool `json:"elevated"`
}

// handleMe returns the caller's profile and authorization level.
func (s *Server) handleMe(c *gin.Context) {
	profile, err := s.store.GetProfile(c.Request.Context(), actor(c).UserID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"profile": meResponse{Profile: profile, Elevated: profile.Elevated()}})
}

// handleListProfiles returns everyone a task can be assigned to.
func (s *Server) handleListProfiles(c *gin.Context) {
	profiles, err := s.store.ListProfiles(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"profiles": profiles})
}

// handleSetRole changes the role of a profile.
func (s *Server) handleSetRole(c *gin.Context) {
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	profile, err := s.store.SetRole(c.Request.Context(), c.Param("id"), req.Role)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.auth.Forget(profile.ID)
	respondSuccess(c, http.StatusOK, gin.H{"profile": profile})
}
