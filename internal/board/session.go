package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"taskboard/internal/changefeed"
	"taskboard/internal/models"
)

// view is one live subscription feeding a store.
type view[T any] struct {
	id     string
	store  *RowStore[T]
	ch     changefeed.Channel
	cancel context.CancelFunc
	done   chan struct{}
}

func (v *view[T]) close() {
	v.cancel()
	_ = v.ch.Close()
	<-v.done
}

// running reports whether the view still consumes its channel. A view whose
// channel closed underneath it has stopped and must be resubscribed.
func (v *view[T]) running() bool {
	select {
	case <-v.done:
		return false
	default:
		return true
	}
}

func openView[T any](ctx context.Context, feed changefeed.Subscriber, id, topic string, store *RowStore[T], loader Loader[T], logger *slog.Logger) (*view[T], error) {
	vctx, cancel := context.WithCancel(ctx)
	ch, err := feed.Subscribe(vctx, topic)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}
	if err := Resync(vctx, store, loader); err != nil {
		cancel()
		_ = ch.Close()
		return nil, err
	}

	v := &view[T]{id: id, store: store, ch: ch, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(v.done)
		consume(vctx, store, ch, loader, logger)
	}()
	return v, nil
}

// Session owns the live views of one board client: at most one project view
// and one task view, each with exactly one change channel.
type Session struct {
	feed     changefeed.Subscriber
	gateway  Gateway
	comments CommentSource
	logger   *slog.Logger

	mu      sync.Mutex
	project *view[models.Task]
	task    *view[models.Comment]
}

// NewSession wires a session to its change feed and request gateway. comments
// may be nil when task views are not needed.
func NewSession(feed changefeed.Subscriber, gateway Gateway, comments CommentSource, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{feed: feed, gateway: gateway, comments: comments, logger: logger}
}

// OpenProjectView subscribes to the task changes of projectID and loads its
// baseline. A previously open project view is torn down first. Reopening the
// same project returns the existing store; if its stream has ended the store
// is resubscribed and reloaded in place.
func (s *Session) OpenProjectView(ctx context.Context, projectID string) (*RowStore[models.Task], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	store := NewTaskStore()
	if s.project != nil {
		if s.project.id == projectID {
			if s.project.running() {
				return s.project.store, nil
			}
			store = s.project.store
			s.logger.Debug("reopening stopped project view", slog.String("project_id", projectID))
		}
		s.project.close()
		s.project = nil
	}

	v, err := openView(ctx, s.feed, projectID, changefeed.TaskTopic(projectID), store, TaskLoader(s.gateway, projectID), s.logger)
	if err != nil {
		return nil, err
	}
	s.project = v
	s.logger.Debug("project view opened", slog.String("project_id", projectID))
	return v.store, nil
}

// CloseProjectView tears down the project subscription, if any.
func (s *Session) CloseProjectView() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.project == nil {
		return
	}
	s.project.close()
	s.logger.Debug("project view closed", slog.String("project_id", s.project.id))
	s.project = nil
}

// ProjectDone returns a channel closed once the open project view stops
// consuming changes, or nil when no project view is open.
func (s *Session) ProjectDone() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.project == nil {
		return nil
	}
	return s.project.done
}

// OpenTaskView subscribes to the comment thread of taskID.
func (s *Session) OpenTaskView(ctx context.Context, taskID string) (*RowStore[models.Comment], error) {
	if s.comments == nil {
		return nil, errors.New("session has no comment source")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	store := NewCommentStore()
	if s.task != nil {
		if s.task.id == taskID {
			if s.task.running() {
				return s.task.store, nil
			}
			store = s.task.store
		}
		s.task.close()
		s.task = nil
	}

	v, err := openView(ctx, s.feed, taskID, changefeed.CommentTopic(taskID), store, CommentLoader(s.comments, taskID), s.logger)
	if err != nil {
		return nil, err
	}
	s.task = v
	return v.store, nil
}

// CloseTaskView tears down the comment subscription, if any.
func (s *Session) CloseTaskView() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.task == nil {
		return
	}
	s.task.close()
	s.task = nil
}

// Close tears down every open view.
func (s *Session) Close() {
	s.CloseTaskView()
	s.CloseProjectView()
}
