package outbox_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sandgraph/application/ports"
	"sandgraph/domain/events"
	"sandgraph/infrastructure/messaging/outbox"
	"sandgraph/infrastructure/persistence/memory"
)

// capturingPublisher records published events and can be told to fail
type capturingPublisher struct {
	mu        sync.Mutex
	published []*ports.EventRecord
	err       error
}

func (p *capturingPublisher) Publish(ctx context.Context, records []*ports.EventRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, records...)
	return nil
}

func (p *capturingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

func stageEvent(t *testing.T, store *memory.ChangeEventStore, eventID string, retryCount int) {
	t.Helper()
	require.NoError(t, store.SaveEvent(context.Background(), &ports.EventRecord{
		EventID:    eventID,
		EventType:  "vertex.deleted",
		ElementID:  "v1",
		Priority:   events.PriorityHigh,
		Payload:    []byte(`{"vertex_id":"v1"}`),
		Status:     ports.EventStatusPending,
		CreatedAt:  time.Now(),
		RetryCount: retryCount,
	}))
}

func newRelay(store *memory.ChangeEventStore, publisher ports.EventPublisher) *outbox.Relay {
	return outbox.NewRelay(store, publisher, nil, outbox.RelayConfig{
		BatchSize:  25,
		Interval:   time.Second,
		MaxRetries: 3,
	}, zap.NewNop())
}

func TestRelayPublishesPendingEvents(t *testing.T) {
	store := memory.NewChangeEventStore()
	publisher := &capturingPublisher{}
	relay := newRelay(store, publisher)

	stageEvent(t, store, "e1", 0)
	stageEvent(t, store, "e2", 0)

	require.NoError(t, relay.ProcessBatch(context.Background()))

	assert.Equal(t, 2, publisher.count())
	for _, id := range []string{"e1", "e2"} {
		rec := store.Record(id)
		require.NotNil(t, rec)
		assert.Equal(t, ports.EventStatusPublished, rec.Status)
		assert.NotNil(t, rec.PublishedAt)
	}

	pending, err := store.GetPendingEvents(context.Background(), 25)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRelayRetriesFailedPublish(t *testing.T) {
	store := memory.NewChangeEventStore()
	publisher := &capturingPublisher{err: errors.New("bus unavailable")}
	relay := newRelay(store, publisher)

	stageEvent(t, store, "e1", 0)

	require.NoError(t, relay.ProcessBatch(context.Background()))

	rec := store.Record("e1")
	require.NotNil(t, rec)
	assert.Equal(t, ports.EventStatusPending, rec.Status)
	assert.Equal(t, 1, rec.RetryCount)
	assert.Equal(t, "bus unavailable", rec.LastError)

	// still pending: recovers once the bus is back
	publisher.err = nil
	require.NoError(t, relay.ProcessBatch(context.Background()))
	assert.Equal(t, ports.EventStatusPublished, store.Record("e1").Status)
}

func TestRelayMarksEventFailedAfterMaxRetries(t *testing.T) {
	store := memory.NewChangeEventStore()
	publisher := &capturingPublisher{err: errors.New("bus unavailable")}
	relay := newRelay(store, publisher)

	stageEvent(t, store, "e1", 2)

	require.NoError(t, relay.ProcessBatch(context.Background()))

	rec := store.Record("e1")
	require.NotNil(t, rec)
	assert.Equal(t, ports.EventStatusFailed, rec.Status)

	pending, err := store.GetPendingEvents(context.Background(), 25)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRelayStartStop(t *testing.T) {
	store := memory.NewChangeEventStore()
	publisher := &capturingPublisher{}
	relay := outbox.NewRelay(store, publisher, nil, outbox.RelayConfig{
		BatchSize:  25,
		Interval:   10 * time.Millisecond,
		MaxRetries: 3,
	}, zap.NewNop())

	stageEvent(t, store, "e1", 0)

	relay.Start(context.Background())
	assert.Eventually(t, func() bool {
		return publisher.count() == 1
	}, time.Second, 5*time.Millisecond)
	relay.Stop()
}
