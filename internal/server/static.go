package server

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"taskboard/internal/blob"
)

// mountFiles serves uploaded attachments without directory listings.
func (s *Server) mountFiles() {
	if s.blobs == nil {
		return
	}
	s.engine.StaticFS(strings.TrimSuffix(blob.URLPrefix, "/"), gin.Dir(s.blobs.Root(), false))
}

// mountStatic serves a built web client, when one is configured, with a
// history fallback to index.html for client-side routes.
func (s *Server) mountStatic() {
	if s.staticDir == "" {
		s.logger.Info("static directory not configured; API only mode")
		return
	}

	info, err := os.Stat(s.staticDir)
	if err != nil || !info.IsDir() {
		s.logger.Warn("static directory missing", slog.String("path", s.staticDir))
		return
	}

	indexPath := filepath.Join(s.staticDir, "index.html")
	if _, err := os.Stat(indexPath); err != nil {
		s.logger.Warn("index.html not found", slog.String("path", indexPath))
	} else {
		s.engine.GET("/", func(c *gin.Context) {
			c.File(indexPath)
		})
		s.engine.NoRoute(func(c *gin.Context) {
			if strings.HasPrefix(c.Request.URL.Path, "/api/") || strings.HasPrefix(c.Request.URL.Path, blob.URLPrefix) {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			c.File(indexPath)
		})
	}

	assetsDir := filepath.Join(s.staticDir, "assets")
	if _, err := os.Stat(assetsDir); err == nil {
		s.engine.StaticFS("/assets", gin.Dir(assetsDir, false))
	}
}
