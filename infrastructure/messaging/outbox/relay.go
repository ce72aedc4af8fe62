package outbox

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sandgraph/application/ports"
	"sandgraph/pkg/observability"
)

// Relay drains pending outbox records to the event publisher on a fixed
// interval. Events that keep failing past maxRetries are marked failed and
// left behind for inspection.
type Relay struct {
	eventStore ports.ChangeEventStore
	publisher  ports.EventPublisher
	metrics    *observability.Metrics
	logger     *zap.Logger

	batchSize  int
	interval   time.Duration
	maxRetries int

	stopChan    chan struct{}
	stoppedChan chan struct{}
}

// RelayConfig tunes the relay loop
type RelayConfig struct {
	BatchSize  int
	Interval   time.Duration
	MaxRetries int
}

// NewRelay creates a new outbox relay. A nil metrics recorder disables
// metric emission.
func NewRelay(eventStore ports.ChangeEventStore, publisher ports.EventPublisher, metrics *observability.Metrics, cfg RelayConfig, logger *zap.Logger) *Relay {
	return &Relay{
		eventStore:  eventStore,
		publisher:   publisher,
		metrics:     metrics,
		logger:      logger,
		batchSize:   cfg.BatchSize,
		interval:    cfg.Interval,
		maxRetries:  cfg.MaxRetries,
		stopChan:    make(chan struct{}),
		stoppedChan: make(chan struct{}),
	}
}

// Start begins draining the outbox in the background
func (r *Relay) Start(ctx context.Context) {
	r.logger.Info("starting outbox relay",
		zap.Int("batch_size", r.batchSize),
		zap.Duration("interval", r.interval),
		zap.Int("max_retries", r.maxRetries))

	go r.processLoop(ctx)
}

// Stop gracefully stops the relay, waiting for the in-flight batch
func (r *Relay) Stop() {
	r.logger.Info("stopping outbox relay")
	close(r.stopChan)
	<-r.stoppedChan
	r.logger.Info("outbox relay stopped")
}

func (r *Relay) processLoop(ctx context.Context) {
	defer close(r.stoppedChan)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("context cancelled, stopping outbox relay")
			return
		case <-r.stopChan:
			return
		case <-ticker.C:
			if err := r.ProcessBatch(ctx); err != nil {
				r.logger.Error("failed to process outbox batch", zap.Error(err))
			}
		}
	}
}

// ProcessBatch drains one batch of pending events. Exported so a one-shot
// invocation (Lambda, cron) can drive the relay without the loop.
func (r *Relay) ProcessBatch(ctx context.Context) error {
	pending, err := r.eventStore.GetPendingEvents(ctx, r.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending events: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	r.logger.Debug("processing outbox batch", zap.Int("event_count", len(pending)))
	batchStart := time.Now()

	var published, failed int
	for _, record := range pending {
		if err := r.processEvent(ctx, record); err != nil {
			r.logger.Error("failed to relay event",
				zap.String("event_id", record.EventID),
				zap.String("event_type", record.EventType),
				zap.Error(err))
			failed++
			continue
		}
		published++
	}

	r.metrics.Duration(ctx, observability.MetricRelayBatchDuration, time.Since(batchStart), nil)
	if published > 0 {
		r.metrics.Count(ctx, observability.MetricEventsPublished, float64(published), nil)
	}
	if failed > 0 {
		r.metrics.Count(ctx, observability.MetricEventsFailed, float64(failed), nil)
		r.logger.Warn("outbox batch finished with failures",
			zap.Int("published", published),
			zap.Int("failed", failed))
	}
	return nil
}

func (r *Relay) processEvent(ctx context.Context, record *ports.EventRecord) error {
	err := r.publisher.Publish(ctx, []*ports.EventRecord{record})
	if err == nil {
		if err := r.eventStore.MarkPublished(ctx, record.EventID); err != nil {
			return fmt.Errorf("failed to mark event published: %w", err)
		}
		return nil
	}

	if record.RetryCount+1 >= r.maxRetries {
		if markErr := r.eventStore.MarkFailed(ctx, record.EventID, err.Error()); markErr != nil {
			return fmt.Errorf("failed to mark event failed: %w", markErr)
		}
		r.logger.Warn("event exhausted retries",
			zap.String("event_id", record.EventID),
			zap.Int("retry_count", record.RetryCount+1))
		return err
	}

	if retryErr := r.eventStore.RecordRetry(ctx, record.EventID, err.Error()); retryErr != nil {
		return fmt.Errorf("failed to record event retry: %w", retryErr)
	}
	return err
}
