// Package outbox stages change events in the same store as the graph
// mutations they describe, then relays them to the event bus. A crash
// between mutation and publish leaves a pending record, never a lost event.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sandgraph/application/ports"
	"sandgraph/domain/events"
)

// Queue implements ports.ChangeQueue by writing outbox records
type Queue struct {
	store  ports.ChangeEventStore
	logger *zap.Logger
}

// NewQueue creates a new outbox-backed change queue
func NewQueue(store ports.ChangeEventStore, logger *zap.Logger) *Queue {
	return &Queue{
		store:  store,
		logger: logger,
	}
}

// PushPropertyChange implements ports.ChangeQueue
func (q *Queue) PushPropertyChange(ctx context.Context, event events.PropertyChanged) error {
	return q.stage(ctx, event)
}

// PushVertexDeletion implements ports.ChangeQueue
func (q *Queue) PushVertexDeletion(ctx context.Context, event events.VertexDeleted) error {
	return q.stage(ctx, event)
}

// PushEdgeDeletion implements ports.ChangeQueue
func (q *Queue) PushEdgeDeletion(ctx context.Context, event events.EdgeDeleted) error {
	return q.stage(ctx, event)
}

// PushTextUpdated implements ports.ChangeQueue
func (q *Queue) PushTextUpdated(ctx context.Context, event events.TextUpdated) error {
	return q.stage(ctx, event)
}

// PushElementImage implements ports.ChangeQueue
func (q *Queue) PushElementImage(ctx context.Context, event events.ImageChanged) error {
	return q.stage(ctx, event)
}

func (q *Queue) stage(ctx context.Context, event events.ChangeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}

	record := &ports.EventRecord{
		EventID:   uuid.New().String(),
		EventType: event.GetEventType(),
		ElementID: event.GetElementID(),
		Priority:  event.GetPriority(),
		Payload:   payload,
		Status:    ports.EventStatusPending,
		CreatedAt: time.Now(),
	}
	if err := q.store.SaveEvent(ctx, record); err != nil {
		return fmt.Errorf("failed to stage change event: %w", err)
	}

	q.logger.Debug("staged change event",
		zap.String("event_id", record.EventID),
		zap.String("event_type", record.EventType),
		zap.String("element_id", record.ElementID),
		zap.String("priority", string(record.Priority)))
	return nil
}
