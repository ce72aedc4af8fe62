package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"sandgraph/application/ports"
	"sandgraph/domain/events"
	pkgerrors "sandgraph/pkg/errors"
)

// ChangeEventStore implements ports.ChangeEventStore on DynamoDB. Pending
// events are found through a status GSI keyed by creation time, so the relay
// drains the outbox oldest first without scanning.
type ChangeEventStore struct {
	client    *dynamodb.Client
	tableName string
	indexName string
	logger    *zap.Logger
}

// NewChangeEventStore creates a new DynamoDB change event store
func NewChangeEventStore(client *dynamodb.Client, tableName, indexName string, logger *zap.Logger) *ChangeEventStore {
	return &ChangeEventStore{
		client:    client,
		tableName: tableName,
		indexName: indexName,
		logger:    logger,
	}
}

// eventItem is the DynamoDB item structure for an outbox record
type eventItem struct {
	PK          string `dynamodbav:"PK"`     // EVENT#<event_id>
	SK          string `dynamodbav:"SK"`     // METADATA
	GSI2PK      string `dynamodbav:"GSI2PK"` // STATUS#<status>
	GSI2SK      string `dynamodbav:"GSI2SK"` // EVENT#<created_at>#<event_id>
	EntityType  string `dynamodbav:"EntityType"`
	EventID     string `dynamodbav:"EventID"`
	EventType   string `dynamodbav:"EventType"`
	ElementID   string `dynamodbav:"ElementID"`
	Priority    string `dynamodbav:"Priority"`
	Payload     []byte `dynamodbav:"Payload"`
	Status      string `dynamodbav:"Status"`
	CreatedAt   string `dynamodbav:"CreatedAt"`
	PublishedAt string `dynamodbav:"PublishedAt,omitempty"`
	LastError   string `dynamodbav:"LastError,omitempty"`
	RetryCount  int    `dynamodbav:"RetryCount"`
}

func eventKey(eventID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("EVENT#%s", eventID)},
		"SK": &types.AttributeValueMemberS{Value: "METADATA"},
	}
}

func statusSortKey(createdAt time.Time, eventID string) string {
	return fmt.Sprintf("EVENT#%s#%s", createdAt.Format(time.RFC3339Nano), eventID)
}

// SaveEvent implements ports.ChangeEventStore
func (s *ChangeEventStore) SaveEvent(ctx context.Context, record *ports.EventRecord) error {
	item := eventItem{
		PK:         fmt.Sprintf("EVENT#%s", record.EventID),
		SK:         "METADATA",
		GSI2PK:     fmt.Sprintf("STATUS#%s", record.Status),
		GSI2SK:     statusSortKey(record.CreatedAt, record.EventID),
		EntityType: "CHANGE_EVENT",
		EventID:    record.EventID,
		EventType:  record.EventType,
		ElementID:  record.ElementID,
		Priority:   string(record.Priority),
		Payload:    record.Payload,
		Status:     string(record.Status),
		CreatedAt:  record.CreatedAt.Format(time.RFC3339Nano),
		LastError:  record.LastError,
		RetryCount: record.RetryCount,
	}
	if record.PublishedAt != nil {
		item.PublishedAt = record.PublishedAt.Format(time.RFC3339Nano)
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal event record: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	}); err != nil {
		s.logger.Error("failed to save change event",
			zap.String("event_id", record.EventID),
			zap.String("event_type", record.EventType),
			zap.Error(err))
		return pkgerrors.NewStoreError("save change event", err)
	}
	return nil
}

// GetPendingEvents implements ports.ChangeEventStore
func (s *ChangeEventStore) GetPendingEvents(ctx context.Context, limit int) ([]*ports.EventRecord, error) {
	keyCond := expression.Key("GSI2PK").Equal(
		expression.Value(fmt.Sprintf("STATUS#%s", ports.EventStatusPending)))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build pending events expression: %w", err)
	}

	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		IndexName:                 aws.String(s.indexName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, pkgerrors.NewStoreError("query pending events", err)
	}

	records := make([]*ports.EventRecord, 0, len(result.Items))
	for _, raw := range result.Items {
		var item eventItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event record: %w", err)
		}
		records = append(records, s.fromItem(&item))
	}
	return records, nil
}

// MarkPublished implements ports.ChangeEventStore
func (s *ChangeEventStore) MarkPublished(ctx context.Context, eventID string) error {
	now := time.Now()
	input := &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key:       eventKey(eventID),
		UpdateExpression: aws.String(
			"SET #status = :status, GSI2PK = :gsi2pk, PublishedAt = :published_at"),
		ExpressionAttributeNames: map[string]string{
			"#status": "Status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status":       &types.AttributeValueMemberS{Value: string(ports.EventStatusPublished)},
			":gsi2pk":       &types.AttributeValueMemberS{Value: fmt.Sprintf("STATUS#%s", ports.EventStatusPublished)},
			":published_at": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339Nano)},
		},
	}
	if _, err := s.client.UpdateItem(ctx, input); err != nil {
		return pkgerrors.NewStoreError("mark event published", err)
	}
	return nil
}

// MarkFailed implements ports.ChangeEventStore. Terminal: the record leaves
// the pending view and stays behind for inspection.
func (s *ChangeEventStore) MarkFailed(ctx context.Context, eventID string, reason string) error {
	input := &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key:       eventKey(eventID),
		UpdateExpression: aws.String(
			"SET #status = :status, GSI2PK = :gsi2pk, LastError = :reason ADD RetryCount :one"),
		ExpressionAttributeNames: map[string]string{
			"#status": "Status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: string(ports.EventStatusFailed)},
			":gsi2pk": &types.AttributeValueMemberS{Value: fmt.Sprintf("STATUS#%s", ports.EventStatusFailed)},
			":reason": &types.AttributeValueMemberS{Value: reason},
			":one":    &types.AttributeValueMemberN{Value: "1"},
		},
	}
	if _, err := s.client.UpdateItem(ctx, input); err != nil {
		return pkgerrors.NewStoreError("mark event failed", err)
	}
	return nil
}

// RecordRetry implements ports.ChangeEventStore
func (s *ChangeEventStore) RecordRetry(ctx context.Context, eventID string, reason string) error {
	input := &dynamodb.UpdateItemInput{
		TableName:        aws.String(s.tableName),
		Key:              eventKey(eventID),
		UpdateExpression: aws.String("SET LastError = :reason ADD RetryCount :one"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":reason": &types.AttributeValueMemberS{Value: reason},
			":one":    &types.AttributeValueMemberN{Value: "1"},
		},
	}
	if _, err := s.client.UpdateItem(ctx, input); err != nil {
		return pkgerrors.NewStoreError("record event retry", err)
	}
	return nil
}

func (s *ChangeEventStore) fromItem(item *eventItem) *ports.EventRecord {
	record := &ports.EventRecord{
		EventID:    item.EventID,
		EventType:  item.EventType,
		ElementID:  item.ElementID,
		Priority:   events.Priority(item.Priority),
		Payload:    item.Payload,
		Status:     ports.EventStatus(item.Status),
		LastError:  item.LastError,
		RetryCount: item.RetryCount,
	}
	if createdAt, err := time.Parse(time.RFC3339Nano, item.CreatedAt); err == nil {
		record.CreatedAt = createdAt
	}
	if item.PublishedAt != "" {
		if publishedAt, err := time.Parse(time.RFC3339Nano, item.PublishedAt); err == nil {
			record.PublishedAt = &publishedAt
		}
	}
	return record
}
