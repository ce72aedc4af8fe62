// Package eventbridge delivers staged change events to an EventBridge bus.
package eventbridge

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.uber.org/zap"

	"sandgraph/application/ports"
)

const eventSource = "sandgraph"

// maximum entries per PutEvents call
const putEventsBatchLimit = 10

// EventBridgePublisher implements ports.EventPublisher on EventBridge
type EventBridgePublisher struct {
	client  *eventbridge.Client
	busName string
	logger  *zap.Logger
}

// NewEventBridgePublisher creates a new EventBridge publisher
func NewEventBridgePublisher(client *eventbridge.Client, busName string, logger *zap.Logger) *EventBridgePublisher {
	return &EventBridgePublisher{
		client:  client,
		busName: busName,
		logger:  logger,
	}
}

// Publish implements ports.EventPublisher. The payload staged in the outbox
// goes out verbatim as the event detail.
func (p *EventBridgePublisher) Publish(ctx context.Context, records []*ports.EventRecord) error {
	for start := 0; start < len(records); start += putEventsBatchLimit {
		end := start + putEventsBatchLimit
		if end > len(records) {
			end = len(records)
		}
		if err := p.putBatch(ctx, records[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (p *EventBridgePublisher) putBatch(ctx context.Context, records []*ports.EventRecord) error {
	entries := make([]types.PutEventsRequestEntry, 0, len(records))
	for _, record := range records {
		entries = append(entries, types.PutEventsRequestEntry{
			EventBusName: aws.String(p.busName),
			Source:       aws.String(eventSource),
			DetailType:   aws.String(record.EventType),
			Detail:       aws.String(string(record.Payload)),
		})
	}

	result, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{Entries: entries})
	if err != nil {
		p.logger.Error("failed to publish events",
			zap.Int("event_count", len(records)),
			zap.Error(err))
		return fmt.Errorf("failed to publish events: %w", err)
	}

	if result.FailedEntryCount > 0 {
		for i, entry := range result.Entries {
			if entry.ErrorCode == nil {
				continue
			}
			p.logger.Error("event rejected by bus",
				zap.String("event_id", records[i].EventID),
				zap.String("error_code", aws.ToString(entry.ErrorCode)),
				zap.String("error_message", aws.ToString(entry.ErrorMessage)))
		}
		return fmt.Errorf("event bus rejected %d of %d events", result.FailedEntryCount, len(records))
	}

	p.logger.Debug("published events", zap.Int("event_count", len(records)))
	return nil
}
