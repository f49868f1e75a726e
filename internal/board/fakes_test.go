package board

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"taskboard/internal/changefeed"
	"taskboard/internal/models"
)

type fakeChannel struct {
	events  chan changefeed.Event
	once    sync.Once
	dropped sync.Once
	closed  chan struct{}
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{events: make(chan changefeed.Event, 16), closed: make(chan struct{})}
}

func (c *fakeChannel) Events() <-chan changefeed.Event { return c.events }

func (c *fakeChannel) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

// drop ends the stream from the feed side, as a lost connection would.
func (c *fakeChannel) drop() {
	c.Close()
	c.dropped.Do(func() { close(c.events) })
}

func (c *fakeChannel) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

type fakeFeed struct {
	mu       sync.Mutex
	channels map[string][]*fakeChannel
	err      error
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{channels: map[string][]*fakeChannel{}}
}

func (f *fakeFeed) Subscribe(_ context.Context, topic string) (changefeed.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	ch := newFakeChannel()
	f.channels[topic] = append(f.channels[topic], ch)
	return ch, nil
}

func (f *fakeFeed) subscriptions(topic string) []*fakeChannel {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeChannel(nil), f.channels[topic]...)
}

func (f *fakeFeed) publish(topic string, ev changefeed.Event) {
	for _, ch := range f.subscriptions(topic) {
		if !ch.isClosed() {
			ch.events <- ev
		}
	}
}

type statusCall struct {
	ID     string
	Status models.Status
}

type fakeGateway struct {
	mu        sync.Mutex
	tasks     []models.Task
	comments  []models.Comment
	listErr   error
	updateErr error
	fetchGate chan struct{}
	calls     []statusCall
}

func (g *fakeGateway) ListTasks(_ context.Context, projectID string) ([]models.Task, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.listErr != nil {
		return nil, g.listErr
	}
	out := []models.Task{}
	for _, t := range g.tasks {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (g *fakeGateway) GetTask(ctx context.Context, id string) (models.Task, error) {
	if g.fetchGate != nil {
		select {
		case <-g.fetchGate:
		case <-ctx.Done():
			return models.Task{}, ctx.Err()
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, t := range g.tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return models.Task{}, fmt.Errorf("task %s: %w", id, models.ErrNotFound)
}

func (g *fakeGateway) UpdateTaskStatus(_ context.Context, id string, status models.Status) (models.Task, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, statusCall{ID: id, Status: status})
	if g.updateErr != nil {
		return models.Task{}, g.updateErr
	}
	for i, t := range g.tasks {
		if t.ID == id {
			g.tasks[i].Status = status
			return g.tasks[i], nil
		}
	}
	return models.Task{}, models.ErrNotFound
}

func (g *fakeGateway) ListComments(_ context.Context, taskID string) ([]models.Comment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := []models.Comment{}
	for _, c := range g.comments {
		if c.TaskID == taskID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (g *fakeGateway) GetComment(_ context.Context, id string) (models.Comment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, c := range g.comments {
		if c.ID == id {
			return c, nil
		}
	}
	return models.Comment{}, models.ErrNotFound
}

func (g *fakeGateway) put(t models.Task) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.tasks {
		if g.tasks[i].ID == t.ID {
			g.tasks[i] = t
			return
		}
	}
	g.tasks = append(g.tasks, t)
}

func (g *fakeGateway) remove(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.tasks {
		if g.tasks[i].ID == id {
			g.tasks = append(g.tasks[:i], g.tasks[i+1:]...)
			return
		}
	}
}

func (g *fakeGateway) statusCalls() []statusCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]statusCall(nil), g.calls...)
}

type role bool

func (r role) Elevated() bool { return bool(r) }

const (
	manager role = true
	member  role = false
)

var errBackend = errors.New("backend unavailable")

func task(id string, status models.Status) models.Task {
	return models.Task{ID: id, ProjectID: "p1", Title: "Task " + id, Status: status, Priority: models.PriorityMedium}
}

func ids[T interface{ Key() string }](rows []T) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Key()
	}
	return out
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met: %s", msg)
}
