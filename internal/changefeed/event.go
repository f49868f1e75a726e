// Package changefeed carries row change notifications between the service and
// board clients. Events hold only a reduced row; subscribers re-fetch the full
// joined row for inserts and updates.
package changefeed

import (
	"context"
	"encoding/json"
	"fmt"

	"taskboard/internal/models"
)

// Kind is the type of row change.
type Kind string

const (
	KindInsert Kind = "insert"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// Table names used in events and topics.
const (
	TableTasks    = "tasks"
	TableComments = "comments"
)

// Reduced is the push-notification shape of a changed row.
type Reduced struct {
	ID        string        `json:"id"`
	ProjectID string        `json:"project_id,omitempty"`
	TaskID    string        `json:"task_id,omitempty"`
	Status    models.Status `json:"status,omitempty"`
}

// Event is one insert/update/delete notification.
type Event struct {
	Kind  Kind    `json:"kind"`
	Table string  `json:"table"`
	Row   Reduced `json:"row"`
}

// NeedsFetch reports whether the subscriber must re-fetch the full row.
func (e Event) NeedsFetch() bool {
	return e.Kind == KindInsert || e.Kind == KindUpdate
}

// Valid reports whether the event can be applied.
func (e Event) Valid() bool {
	switch e.Kind {
	case KindInsert, KindUpdate, KindDelete:
	default:
		return false
	}
	return e.Row.ID != ""
}

// TaskTopic is the channel carrying task changes for one project.
func TaskTopic(projectID string) string {
	return TableTasks + ":" + projectID
}

// CommentTopic is the channel carrying comment changes for one task.
func CommentTopic(taskID string) string {
	return TableComments + ":" + taskID
}

// TaskEvent builds an event for a task row.
func TaskEvent(kind Kind, t models.Task) Event {
	return Event{Kind: kind, Table: TableTasks, Row: Reduced{ID: t.ID, ProjectID: t.ProjectID, Status: t.Status}}
}

// CommentEvent builds an event for a comment row.
func CommentEvent(kind Kind, c models.Comment) Event {
	return Event{Kind: kind, Table: TableComments, Row: Reduced{ID: c.ID, TaskID: c.TaskID}}
}

// Decode parses an event payload.
func Decode(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if !ev.Valid() {
		return Event{}, fmt.Errorf("invalid event %q/%q", ev.Kind, ev.Row.ID)
	}
	return ev, nil
}

// Channel is a live subscription to one topic.
type Channel interface {
	Events() <-chan Event
	Close() error
}

// Subscriber opens channels by topic.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (Channel, error)
}

// Publisher emits events on a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, ev Event) error
}
