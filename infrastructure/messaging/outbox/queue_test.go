package outbox_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sandgraph/application/ports"
	"sandgraph/domain/core/valueobjects"
	"sandgraph/domain/events"
	"sandgraph/infrastructure/messaging/outbox"
	"sandgraph/infrastructure/persistence/memory"
)

func TestQueueStagesPendingRecordWithPayload(t *testing.T) {
	store := memory.NewChangeEventStore()
	queue := outbox.NewQueue(store, zap.NewNop())

	vertexID := valueobjects.NewElementID()
	event := events.NewVertexDeleted(vertexID, time.Now(), events.PriorityHigh)
	require.NoError(t, queue.PushVertexDeletion(context.Background(), event))

	records := store.Records()
	require.Len(t, records, 1)
	rec := records[0]

	assert.Equal(t, ports.EventStatusPending, rec.Status)
	assert.Equal(t, "vertex.deleted", rec.EventType)
	assert.Equal(t, vertexID.String(), rec.ElementID)
	assert.Equal(t, events.PriorityHigh, rec.Priority)
	assert.NotEmpty(t, rec.EventID)

	var decoded events.VertexDeleted
	require.NoError(t, json.Unmarshal(rec.Payload, &decoded))
	assert.Equal(t, vertexID.String(), decoded.VertexID)
	assert.Equal(t, events.PriorityHigh, decoded.Priority)
}

func TestQueueStagesEveryEventKind(t *testing.T) {
	store := memory.NewChangeEventStore()
	queue := outbox.NewQueue(store, zap.NewNop())
	ctx := context.Background()

	elementID := valueobjects.NewElementID()
	otherID := valueobjects.NewElementID()
	now := time.Now()

	require.NoError(t, queue.PushPropertyChange(ctx,
		events.NewPropertyChanged(elementID, "vertex", "k", "name", "ws1", "", false, nil, events.PriorityNormal, now)))
	require.NoError(t, queue.PushEdgeDeletion(ctx,
		events.NewEdgeDeleted(elementID, otherID, otherID, "knows", now, events.PriorityHigh)))
	require.NoError(t, queue.PushTextUpdated(ctx, events.NewTextUpdated(otherID, now)))
	require.NoError(t, queue.PushElementImage(ctx,
		events.NewImageChanged(elementID, "k", "entityImage", now, events.PriorityNormal)))

	records := store.Records()
	require.Len(t, records, 4)
	types := make([]string, 0, len(records))
	for _, rec := range records {
		types = append(types, rec.EventType)
	}
	assert.ElementsMatch(t, []string{"property.changed", "edge.deleted", "text.updated", "image.changed"}, types)
}
