package ports

import (
	"context"
	"time"

	"sandgraph/domain/events"
)

// ChangeQueue is the notification boundary. The cascade engine enqueues one
// event per durable mutation, always after the store flush that made the
// mutation visible.
type ChangeQueue interface {
	PushPropertyChange(ctx context.Context, event events.PropertyChanged) error
	PushVertexDeletion(ctx context.Context, event events.VertexDeleted) error
	PushEdgeDeletion(ctx context.Context, event events.EdgeDeleted) error
	PushTextUpdated(ctx context.Context, event events.TextUpdated) error
	PushElementImage(ctx context.Context, event events.ImageChanged) error
}

// EventStatus tracks an outbox record through its lifecycle
type EventStatus string

const (
	EventStatusPending   EventStatus = "pending"
	EventStatusPublished EventStatus = "published"
	EventStatusFailed    EventStatus = "failed"
)

// EventRecord is a change event staged in the outbox. Events are written in
// the same store as the graph mutation, then relayed to the bus by a
// separate worker, so a crash between mutation and publish cannot lose the
// notification.
type EventRecord struct {
	EventID     string          `json:"event_id"`
	EventType   string          `json:"event_type"`
	ElementID   string          `json:"element_id"`
	Priority    events.Priority `json:"priority"`
	Payload     []byte          `json:"payload"`
	Status      EventStatus     `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	PublishedAt *time.Time      `json:"published_at,omitempty"`
	LastError   string          `json:"last_error,omitempty"`
	RetryCount  int             `json:"retry_count"`
}

// ChangeEventStore persists outbox records. RecordRetry keeps the event
// pending with an incremented retry count; MarkFailed is terminal and takes
// the event out of the relay's view.
type ChangeEventStore interface {
	SaveEvent(ctx context.Context, record *EventRecord) error
	GetPendingEvents(ctx context.Context, limit int) ([]*EventRecord, error)
	MarkPublished(ctx context.Context, eventID string) error
	RecordRetry(ctx context.Context, eventID string, reason string) error
	MarkFailed(ctx context.Context, eventID string, reason string) error
}

// EventPublisher delivers staged events to the downstream bus
type EventPublisher interface {
	Publish(ctx context.Context, records []*EventRecord) error
}
