package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskboard/internal/changefeed"
	"taskboard/internal/models"
)

// handleListComments returns a task's comment thread, oldest first.
func (s *Server) handleListComments(c *gin.Context) {
	ctx := c.Request.Context()
	if _, err := s.store.GetTask(ctx, c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	comments, err := s.store.ListComments(ctx, c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"comments": comments})
}

// handleGetComment returns one comment with its author name.
func (s *Server) handleGetComment(c *gin.Context) {
	comment, err := s.store.GetComment(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"comment": comment})
}

// handleCreateComment appends a comment authored by the caller.
func (s *Server) handleCreateComment(c *gin.Context) {
	var req models.CommentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	comment, err := s.store.CreateComment(ctx, c.Param("id"), actor(c).UserID, req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.publish(ctx, changefeed.CommentTopic(comment.TaskID), changefeed.CommentEvent(changefeed.KindInsert, comment))
	respondSuccess(c, http.StatusCreated, gin.H{"comment": comment})
}

// handleUpload stores a multipart "file" for later use as a comment attachment.
func (s *Server) handleUpload(c *gin.Context) {
	ctx := c.Request.Context()
	if _, err := s.store.GetTask(ctx, c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}

	// multipart overhead on top of the file itself
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.blobs.MaxBytes()+1<<20)
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(c, fmt.Errorf("upload: %w", models.ErrTooLarge))
			return
		}
		s.respondError(c, &models.ValidationError{Field: "file", Message: "multipart field \"file\" is required"})
		return
	}
	if header.Size > s.blobs.MaxBytes() {
		s.respondError(c, fmt.Errorf("%s is %d bytes: %w", header.Filename, header.Size, models.ErrTooLarge))
		return
	}

	f, err := header.Open()
	if err != nil {
		s.respondError(c, fmt.Errorf("open upload: %w", err))
		return
	}
	defer f.Close()

	attachment, err := s.blobs.Put(ctx, actor(c).UserID, header.Filename, header.Size, f)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"attachment": attachment})
}
