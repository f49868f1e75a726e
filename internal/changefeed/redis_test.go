package changefeed

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"taskboard/internal/models"
)

func newTestFeed(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(m.Close)
	rc := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	return NewRedis(rc, "test:", nil), m
}

func receive(t *testing.T, ch Channel) Event {
	t.Helper()
	select {
	case ev, ok := <-ch.Events():
		if !ok {
			t.Fatal("channel closed")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestPublishSubscribe(t *testing.T) {
	feed, _ := newTestFeed(t)
	ctx := context.Background()

	ch, err := feed.Subscribe(ctx, TaskTopic("p1"))
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer ch.Close()

	task := models.Task{ID: "t1", ProjectID: "p1", Status: models.StatusInProgress}
	if err := feed.Publish(ctx, TaskTopic("p1"), TaskEvent(KindUpdate, task)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := feed.Publish(ctx, TaskTopic("p2"), TaskEvent(KindInsert, models.Task{ID: "other", ProjectID: "p2"})); err != nil {
		t.Fatalf("publish other: %v", err)
	}
	if err := feed.Publish(ctx, TaskTopic("p1"), TaskEvent(KindDelete, task)); err != nil {
		t.Fatalf("publish delete: %v", err)
	}

	first := receive(t, ch)
	if first.Kind != KindUpdate || first.Row.ID != "t1" || first.Row.Status != models.StatusInProgress || !first.NeedsFetch() {
		t.Fatalf("unexpected first event %+v", first)
	}
	second := receive(t, ch)
	if second.Kind != KindDelete || second.Row.ID != "t1" || second.NeedsFetch() {
		t.Fatalf("unexpected second event %+v", second)
	}
}

func TestSubscriptionDropsMalformedPayloads(t *testing.T) {
	feed, m := newTestFeed(t)
	ctx := context.Background()

	ch, err := feed.Subscribe(ctx, CommentTopic("t1"))
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer ch.Close()

	m.Publish("test:"+CommentTopic("t1"), "not json")
	m.Publish("test:"+CommentTopic("t1"), `{"kind":"upsert","table":"comments","row":{"id":"c0"}}`)
	if err := feed.Publish(ctx, CommentTopic("t1"), CommentEvent(KindInsert, models.Comment{ID: "c1", TaskID: "t1"})); err != nil {
		t.Fatalf("publish: %v", err)
	}

	ev := receive(t, ch)
	if ev.Row.ID != "c1" || ev.Table != TableComments || ev.Row.TaskID != "t1" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestCloseEndsEvents(t *testing.T) {
	feed, _ := newTestFeed(t)
	ch, err := feed.Subscribe(context.Background(), TaskTopic("p1"))
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := ch.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := ch.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	select {
	case _, ok := <-ch.Events():
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("events channel not closed")
	}
}

func TestDecodeRejectsIncompleteEvents(t *testing.T) {
	if _, err := Decode([]byte(`{"kind":"delete","table":"tasks","row":{}}`)); err == nil {
		t.Fatal("expected error for missing id")
	}
	ev, err := Decode([]byte(`{"kind":"delete","table":"tasks","row":{"id":"x"}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Row.ID != "x" {
		t.Fatalf("row = %+v", ev.Row)
	}
}
