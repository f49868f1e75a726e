package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/coder/websocket"

	"taskboard/internal/changefeed"
)

// streamPath maps a change topic onto the service's websocket route.
func streamPath(topic string) (string, error) {
	table, id, ok := strings.Cut(topic, ":")
	if !ok || id == "" {
		return "", fmt.Errorf("malformed topic %q", topic)
	}
	switch table {
	case changefeed.TableTasks:
		return projectPath(id) + "/changes", nil
	case changefeed.TableComments:
		return taskPath(id) + "/comments/changes", nil
	}
	return "", fmt.Errorf("unknown topic table %q", table)
}

// Subscribe opens the websocket change stream for topic. The server has
// subscribed to the feed by the time the handshake completes.
func (c *Client) Subscribe(ctx context.Context, topic string) (changefeed.Channel, error) {
	path, err := streamPath(topic)
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}
	conn, resp, err := websocket.Dial(ctx, u.String(), &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		if resp != nil && resp.StatusCode >= http.StatusBadRequest {
			return nil, fmt.Errorf("subscribe %s: %w", topic, decodeError(resp))
		}
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	sctx, cancel := context.WithCancel(context.Background())
	ch := &wsChannel{conn: conn, cancel: cancel, events: make(chan changefeed.Event, 64)}
	go ch.pump(sctx, topic, c.logger)
	return ch, nil
}

type wsChannel struct {
	conn   *websocket.Conn
	cancel context.CancelFunc
	events chan changefeed.Event
	once   sync.Once
}

func (w *wsChannel) pump(ctx context.Context, topic string, logger *slog.Logger) {
	defer close(w.events)
	for {
		_, data, err := w.conn.Read(ctx)
		if err != nil {
			return
		}
		ev, err := changefeed.Decode(data)
		if err != nil {
			logger.Warn("dropping change event", slog.String("topic", topic), slog.String("error", err.Error()))
			continue
		}
		select {
		case w.events <- ev:
		case <-ctx.Done():
			return
		}
	}
}

func (w *wsChannel) Events() <-chan changefeed.Event {
	return w.events
}

func (w *wsChannel) Close() error {
	var err error
	w.once.Do(func() {
		err = w.conn.Close(websocket.StatusNormalClosure, "")
		w.cancel()
	})
	return err
}
