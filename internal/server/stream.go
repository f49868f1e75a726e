package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"

	"taskboard/internal/changefeed"
)

const writeTimeout = 5 * time.Second

// handleTaskChanges streams task changes of one project over a websocket.
func (s *Server) handleTaskChanges(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.store.GetProject(c.Request.Context(), id); err != nil {
		s.respondError(c, err)
		return
	}
	s.relay(c, changefeed.TaskTopic(id))
}

// handleCommentChanges streams new comments of one task over a websocket.
func (s *Server) handleCommentChanges(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.store.GetTask(c.Request.Context(), id); err != nil {
		s.respondError(c, err)
		return
	}
	s.relay(c, changefeed.CommentTopic(id))
}

// relay forwards every event of topic to the websocket client until either
// side goes away. The feed subscription is live before the upgrade completes.
func (s *Server) relay(c *gin.Context, topic string) {
	ch, err := s.feed.Subscribe(c.Request.Context(), topic)
	if err != nil {
		s.respondError(c, err)
		return
	}
	defer ch.Close()

	ws, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.logger.Warn("websocket accept failed", slog.String("topic", topic), slog.String("error", err.Error()))
		return
	}
	defer ws.CloseNow()

	s.logger.Debug("change stream opened", slog.String("topic", topic), slog.String("remote", c.Request.RemoteAddr))
	ctx := ws.CloseRead(c.Request.Context())
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("change stream closed", slog.String("topic", topic))
			return
		case ev, ok := <-ch.Events():
			if !ok {
				_ = ws.Close(websocket.StatusGoingAway, "change feed closed")
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				s.logger.Error("marshal change event", slog.String("error", err.Error()))
				continue
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err = ws.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				s.logger.Debug("websocket write failed", slog.String("topic", topic), slog.String("error", err.Error()))
				return
			}
		}
	}
}
