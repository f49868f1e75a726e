package changefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Redis publishes and subscribes to change events over redis pub/sub.
type Redis struct {
	rc     *redis.Client
	prefix string
	logger *slog.Logger
}

// NewRedis wraps a redis client. Channel names are prefix + topic.
func NewRedis(rc *redis.Client, prefix string, logger *slog.Logger) *Redis {
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{rc: rc, prefix: prefix, logger: logger}
}

// Ping checks the redis connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.rc.Ping(ctx).Err()
}

// Publish sends ev to every subscriber of topic.
func (r *Redis) Publish(ctx context.Context, topic string, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := r.rc.Publish(ctx, r.prefix+topic, data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Subscribe opens a channel for topic. The subscription is confirmed before
// returning, so no event published afterwards is missed.
func (r *Redis) Subscribe(ctx context.Context, topic string) (Channel, error) {
	sub := r.rc.Subscribe(ctx, r.prefix+topic)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	ch := &redisChannel{
		sub:    sub,
		events: make(chan Event, 64),
		done:   make(chan struct{}),
	}
	go ch.pump(topic, r.logger)
	return ch, nil
}

type redisChannel struct {
	sub    *redis.PubSub
	events chan Event
	done   chan struct{}
	once   sync.Once
}

func (c *redisChannel) pump(topic string, logger *slog.Logger) {
	defer close(c.events)
	msgs := c.sub.Channel()
	for {
		select {
		case <-c.done:
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			ev, err := Decode([]byte(msg.Payload))
			if err != nil {
				logger.Warn("dropping change event", slog.String("topic", topic), slog.String("error", err.Error()))
				continue
			}
			select {
			case c.events <- ev:
			case <-c.done:
				return
			}
		}
	}
}

func (c *redisChannel) Events() <-chan Event {
	return c.events
}

func (c *redisChannel) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		err = c.sub.Close()
	})
	return err
}
