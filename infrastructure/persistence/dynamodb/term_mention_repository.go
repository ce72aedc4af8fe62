package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"sandgraph/domain/core/entities"
	"sandgraph/domain/core/valueobjects"
	pkgerrors "sandgraph/pkg/errors"
)

// TermMentionRepository implements ports.TermMentionRepository on DynamoDB.
// The mention itself lives under MENTION#<id>; pointer items under the
// source vertex and the resolved entity make both lookup directions a query.
type TermMentionRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewTermMentionRepository creates a new DynamoDB term mention repository
func NewTermMentionRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) *TermMentionRepository {
	return &TermMentionRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// termMentionItem is the DynamoDB item structure for a term mention
type termMentionItem struct {
	PK               string   `dynamodbav:"PK"` // MENTION#<id>
	SK               string   `dynamodbav:"SK"` // METADATA
	EntityType       string   `dynamodbav:"EntityType"`
	MentionID        string   `dynamodbav:"MentionID"`
	OutVertexID      string   `dynamodbav:"OutVertexID"`
	ResolvedToID     string   `dynamodbav:"ResolvedToID"`
	ResolveEdgeID    string   `dynamodbav:"ResolveEdgeID,omitempty"`
	Title            string   `dynamodbav:"Title"`
	SpanStart        int      `dynamodbav:"SpanStart"`
	SpanEnd          int      `dynamodbav:"SpanEnd"`
	RefPropertyKey   string   `dynamodbav:"RefPropertyKey,omitempty"`
	RefPropertyName  string   `dynamodbav:"RefPropertyName,omitempty"`
	RefPropertyVis   string   `dynamodbav:"RefPropertyVis,omitempty"`
	Visibility       string   `dynamodbav:"Visibility"`
	Tombstoned       bool     `dynamodbav:"Tombstoned"`
	HiddenVisibility []string `dynamodbav:"HiddenVisibility,omitempty"`
	UpdatedAt        string   `dynamodbav:"UpdatedAt"`
}

// mentionPointerItem points from a vertex to a mention that references it
type mentionPointerItem struct {
	PK        string `dynamodbav:"PK"` // VERTEX#<out_vertex_id> or RESOLVED#<resolved_id>
	SK        string `dynamodbav:"SK"` // MENTION#<mention_id>
	MentionID string `dynamodbav:"MentionID"`
}

func mentionKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("MENTION#%s", id)},
		"SK": &types.AttributeValueMemberS{Value: "METADATA"},
	}
}

// Save implements ports.TermMentionRepository
func (r *TermMentionRepository) Save(ctx context.Context, mention *entities.TermMention) error {
	item := termMentionItem{
		PK:               fmt.Sprintf("MENTION#%s", mention.ID.String()),
		SK:               "METADATA",
		EntityType:       "TERM_MENTION",
		MentionID:        mention.ID.String(),
		OutVertexID:      mention.OutVertexID.String(),
		ResolvedToID:     mention.ResolvedToID.String(),
		ResolveEdgeID:    mention.ResolveEdgeID.String(),
		Title:            mention.Title,
		SpanStart:        mention.SpanStart,
		SpanEnd:          mention.SpanEnd,
		RefPropertyKey:   mention.RefPropertyKey,
		RefPropertyName:  mention.RefPropertyName,
		RefPropertyVis:   mention.RefPropertyVis.String(),
		Visibility:       mention.Visibility.String(),
		Tombstoned:       mention.Tombstoned,
		HiddenVisibility: mention.HiddenVisibility,
		UpdatedAt:        time.Now().Format(time.RFC3339),
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal term mention: %w", err)
	}
	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	}); err != nil {
		r.logger.Error("failed to save term mention",
			zap.String("mention_id", mention.ID.String()),
			zap.Error(err))
		return pkgerrors.NewStoreError("save term mention", err)
	}

	pointers := []mentionPointerItem{
		{
			PK:        fmt.Sprintf("VERTEX#%s", mention.OutVertexID.String()),
			SK:        fmt.Sprintf("MENTION#%s", mention.ID.String()),
			MentionID: mention.ID.String(),
		},
	}
	if !mention.ResolvedToID.IsZero() {
		pointers = append(pointers, mentionPointerItem{
			PK:        fmt.Sprintf("RESOLVED#%s", mention.ResolvedToID.String()),
			SK:        fmt.Sprintf("MENTION#%s", mention.ID.String()),
			MentionID: mention.ID.String(),
		})
	}
	for _, pointer := range pointers {
		pointerAV, err := attributevalue.MarshalMap(pointer)
		if err != nil {
			return fmt.Errorf("failed to marshal mention pointer: %w", err)
		}
		if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(r.tableName),
			Item:      pointerAV,
		}); err != nil {
			return pkgerrors.NewStoreError("save mention pointer", err)
		}
	}
	return nil
}

// FindByOutVertex implements ports.TermMentionRepository
func (r *TermMentionRepository) FindByOutVertex(ctx context.Context, vertexID valueobjects.ElementID) ([]*entities.TermMention, error) {
	return r.findByPointer(ctx, fmt.Sprintf("VERTEX#%s", vertexID.String()))
}

// FindResolvedTo implements ports.TermMentionRepository
func (r *TermMentionRepository) FindResolvedTo(ctx context.Context, vertexID valueobjects.ElementID) ([]*entities.TermMention, error) {
	return r.findByPointer(ctx, fmt.Sprintf("RESOLVED#%s", vertexID.String()))
}

// FindByEdgeID implements ports.TermMentionRepository
func (r *TermMentionRepository) FindByEdgeID(ctx context.Context, outVertexID, edgeID valueobjects.ElementID) ([]*entities.TermMention, error) {
	mentions, err := r.findByPointer(ctx, fmt.Sprintf("VERTEX#%s", outVertexID.String()))
	if err != nil {
		return nil, err
	}
	var out []*entities.TermMention
	for _, m := range mentions {
		if m.ResolveEdgeID.Equals(edgeID) {
			out = append(out, m)
		}
	}
	return out, nil
}

// Delete implements ports.TermMentionRepository. Mentions are tombstoned,
// not removed; the pointer items stay and the tombstone filters them out.
func (r *TermMentionRepository) Delete(ctx context.Context, mention *entities.TermMention) error {
	input := &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.tableName),
		Key:              mentionKey(mention.ID.String()),
		UpdateExpression: aws.String("SET Tombstoned = :true, UpdatedAt = :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":true": &types.AttributeValueMemberBOOL{Value: true},
			":now":  &types.AttributeValueMemberS{Value: time.Now().Format(time.RFC3339)},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	}
	if _, err := r.client.UpdateItem(ctx, input); err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return pkgerrors.NewNotFoundError("term mention " + mention.ID.String())
		}
		return pkgerrors.NewStoreError("delete term mention", err)
	}
	return nil
}

// MarkHidden implements ports.TermMentionRepository
func (r *TermMentionRepository) MarkHidden(ctx context.Context, mention *entities.TermMention, visibility valueobjects.Visibility) error {
	input := &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.tableName),
		Key:              mentionKey(mention.ID.String()),
		UpdateExpression: aws.String("SET HiddenVisibility = list_append(if_not_exists(HiddenVisibility, :empty), :vis), UpdatedAt = :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":empty": &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
			":vis": &types.AttributeValueMemberL{Value: []types.AttributeValue{
				&types.AttributeValueMemberS{Value: visibility.String()},
			}},
			":now": &types.AttributeValueMemberS{Value: time.Now().Format(time.RFC3339)},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	}
	if _, err := r.client.UpdateItem(ctx, input); err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return pkgerrors.NewNotFoundError("term mention " + mention.ID.String())
		}
		return pkgerrors.NewStoreError("mark term mention hidden", err)
	}
	return nil
}

func (r *TermMentionRepository) findByPointer(ctx context.Context, pk string) ([]*entities.TermMention, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: pk},
			":sk": &types.AttributeValueMemberS{Value: "MENTION#"},
		},
	}

	var mentions []*entities.TermMention
	for {
		result, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, pkgerrors.NewStoreError("query term mentions", err)
		}
		for _, raw := range result.Items {
			var pointer mentionPointerItem
			if err := attributevalue.UnmarshalMap(raw, &pointer); err != nil {
				return nil, fmt.Errorf("failed to unmarshal mention pointer: %w", err)
			}
			mention, err := r.getMention(ctx, pointer.MentionID)
			if err != nil {
				if pkgerrors.IsNotFound(err) {
					continue
				}
				return nil, err
			}
			if mention.Tombstoned {
				continue
			}
			mentions = append(mentions, mention)
		}
		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
	return mentions, nil
}

func (r *TermMentionRepository) getMention(ctx context.Context, id string) (*entities.TermMention, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       mentionKey(id),
	})
	if err != nil {
		return nil, pkgerrors.NewStoreError("get term mention", err)
	}
	if result.Item == nil {
		return nil, pkgerrors.NewNotFoundError("term mention " + id)
	}
	var item termMentionItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal term mention: %w", err)
	}
	return r.fromItem(&item)
}

func (r *TermMentionRepository) fromItem(item *termMentionItem) (*entities.TermMention, error) {
	id, err := valueobjects.NewElementIDFromString(item.MentionID)
	if err != nil {
		return nil, fmt.Errorf("invalid mention id: %w", err)
	}
	mention := &entities.TermMention{
		ID:               id,
		Title:            item.Title,
		SpanStart:        item.SpanStart,
		SpanEnd:          item.SpanEnd,
		RefPropertyKey:   item.RefPropertyKey,
		RefPropertyName:  item.RefPropertyName,
		RefPropertyVis:   valueobjects.ParseVisibility(item.RefPropertyVis),
		Visibility:       valueobjects.ParseVisibility(item.Visibility),
		Tombstoned:       item.Tombstoned,
		HiddenVisibility: item.HiddenVisibility,
	}
	if item.OutVertexID != "" {
		mention.OutVertexID, _ = valueobjects.NewElementIDFromString(item.OutVertexID)
	}
	if item.ResolvedToID != "" {
		mention.ResolvedToID, _ = valueobjects.NewElementIDFromString(item.ResolvedToID)
	}
	if item.ResolveEdgeID != "" {
		mention.ResolveEdgeID, _ = valueobjects.NewElementIDFromString(item.ResolveEdgeID)
	}
	return mention, nil
}
