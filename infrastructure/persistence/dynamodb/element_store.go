// Package dynamodb implements the persistence ports on a single DynamoDB
// table. Elements live under ELEMENT#<id>; edges additionally write
// adjacency items under each endpoint vertex so edge lookups are a query,
// not a scan.
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
	"sandgraph/domain/sandbox"
	"sandgraph/pkg/auth"
	pkgerrors "sandgraph/pkg/errors"
)

// ElementStore implements ports.ElementStore on DynamoDB
type ElementStore struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewElementStore creates a new DynamoDB element store
func NewElementStore(client *dynamodb.Client, tableName string, logger *zap.Logger) *ElementStore {
	return &ElementStore{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// propertyItem is the stored shape of a property, including the hidden
// visibility markers accumulated against its slot
type propertyItem struct {
	Key        string      `dynamodbav:"Key"`
	Name       string      `dynamodbav:"Name"`
	Value      interface{} `dynamodbav:"Value"`
	Visibility string      `dynamodbav:"Visibility"`
	Hidden     []string    `dynamodbav:"Hidden,omitempty"`
}

// elementItem is the DynamoDB item structure for a graph element
type elementItem struct {
	PK               string         `dynamodbav:"PK"` // ELEMENT#<id>
	SK               string         `dynamodbav:"SK"` // METADATA
	EntityType       string         `dynamodbav:"EntityType"`
	ElementID        string         `dynamodbav:"ElementID"`
	Kind             string         `dynamodbav:"Kind"`
	Properties       []propertyItem `dynamodbav:"Properties"`
	VisibilitySource string         `dynamodbav:"VisibilitySource"`
	Workspaces       []string       `dynamodbav:"Workspaces,omitempty"`
	OutVertexID      string         `dynamodbav:"OutVertexID,omitempty"`
	InVertexID       string         `dynamodbav:"InVertexID,omitempty"`
	Label            string         `dynamodbav:"Label,omitempty"`
	Tombstoned       bool           `dynamodbav:"Tombstoned"`
	Hidden           []string       `dynamodbav:"Hidden,omitempty"`
	CreatedAt        string         `dynamodbav:"CreatedAt"`
	UpdatedAt        string         `dynamodbav:"UpdatedAt"`
}

// adjacencyItem points from an endpoint vertex to an edge
type adjacencyItem struct {
	PK     string `dynamodbav:"PK"` // VERTEX#<vertex_id>
	SK     string `dynamodbav:"SK"` // EDGE#<edge_id>
	EdgeID string `dynamodbav:"EdgeID"`
}

func elementKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("ELEMENT#%s", id)},
		"SK": &types.AttributeValueMemberS{Value: "METADATA"},
	}
}

// SaveElement persists an element. Edges also write one adjacency item per
// endpoint. Not part of the ElementStore port; used by ingestion and tools.
func (s *ElementStore) SaveElement(ctx context.Context, element *entities.Element) error {
	item := s.toItem(element)
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal element: %w", err)
	}

	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	}); err != nil {
		s.logger.Error("failed to save element",
			zap.String("element_id", element.ID.String()),
			zap.Error(err))
		return pkgerrors.NewStoreError("save element", err)
	}

	if element.Kind == entities.KindEdge {
		for _, vertexID := range []string{element.OutVertexID.String(), element.InVertexID.String()} {
			adj := adjacencyItem{
				PK:     fmt.Sprintf("VERTEX#%s", vertexID),
				SK:     fmt.Sprintf("EDGE#%s", element.ID.String()),
				EdgeID: element.ID.String(),
			}
			adjAV, err := attributevalue.MarshalMap(adj)
			if err != nil {
				return fmt.Errorf("failed to marshal adjacency item: %w", err)
			}
			if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
				TableName: aws.String(s.tableName),
				Item:      adjAV,
			}); err != nil {
				return pkgerrors.NewStoreError("save adjacency item", err)
			}
		}
	}
	return nil
}

// GetElement implements ports.ElementStore
func (s *ElementStore) GetElement(ctx context.Context, id valueobjects.ElementID, auths auth.Authorizations) (*entities.Element, error) {
	item, err := s.getItem(ctx, id.String())
	if err != nil {
		return nil, err
	}
	element := s.visibleElement(item, auths)
	if element == nil {
		return nil, pkgerrors.NewNotFoundError("element " + id.String())
	}
	return element, nil
}

// GetEdges implements ports.ElementStore
func (s *ElementStore) GetEdges(ctx context.Context, vertexID valueobjects.ElementID, label string, auths auth.Authorizations) ([]*entities.Element, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: fmt.Sprintf("VERTEX#%s", vertexID.String())},
			":sk": &types.AttributeValueMemberS{Value: "EDGE#"},
		},
	}

	var edges []*entities.Element
	for {
		result, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, pkgerrors.NewStoreError("query edges", err)
		}
		for _, raw := range result.Items {
			var adj adjacencyItem
			if err := attributevalue.UnmarshalMap(raw, &adj); err != nil {
				return nil, fmt.Errorf("failed to unmarshal adjacency item: %w", err)
			}
			item, err := s.getItem(ctx, adj.EdgeID)
			if err != nil {
				if pkgerrors.IsNotFound(err) {
					continue
				}
				return nil, err
			}
			edge := s.visibleElement(item, auths)
			if edge == nil {
				continue
			}
			if label != "" && edge.Label != label {
				continue
			}
			edges = append(edges, edge)
		}
		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
	return edges, nil
}

// GetEdgesBetween implements ports.ElementStore
func (s *ElementStore) GetEdgesBetween(ctx context.Context, vertexID, otherVertexID valueobjects.ElementID, label string, auths auth.Authorizations) ([]*entities.Element, error) {
	edges, err := s.GetEdges(ctx, vertexID, label, auths)
	if err != nil {
		return nil, err
	}
	var out []*entities.Element
	for _, edge := range edges {
		if edge.OutVertexID.Equals(otherVertexID) || edge.InVertexID.Equals(otherVertexID) {
			out = append(out, edge)
		}
	}
	return out, nil
}

// SoftDeleteElement implements ports.ElementStore
func (s *ElementStore) SoftDeleteElement(ctx context.Context, id valueobjects.ElementID, auths auth.Authorizations) error {
	input := &dynamodb.UpdateItemInput{
		TableName:        aws.String(s.tableName),
		Key:              elementKey(id.String()),
		UpdateExpression: aws.String("SET Tombstoned = :true, UpdatedAt = :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":true": &types.AttributeValueMemberBOOL{Value: true},
			":now":  &types.AttributeValueMemberS{Value: time.Now().Format(time.RFC3339)},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	}
	if _, err := s.client.UpdateItem(ctx, input); err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return pkgerrors.NewNotFoundError("element " + id.String())
		}
		return pkgerrors.NewStoreError("soft delete element", err)
	}
	return nil
}

// MarkElementHidden implements ports.ElementStore
func (s *ElementStore) MarkElementHidden(ctx context.Context, id valueobjects.ElementID, visibility valueobjects.Visibility, auths auth.Authorizations) error {
	input := &dynamodb.UpdateItemInput{
		TableName:        aws.String(s.tableName),
		Key:              elementKey(id.String()),
		UpdateExpression: aws.String("SET Hidden = list_append(if_not_exists(Hidden, :empty), :vis), UpdatedAt = :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":empty": &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
			":vis": &types.AttributeValueMemberL{Value: []types.AttributeValue{
				&types.AttributeValueMemberS{Value: visibility.String()},
			}},
			":now": &types.AttributeValueMemberS{Value: time.Now().Format(time.RFC3339)},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	}
	if _, err := s.client.UpdateItem(ctx, input); err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return pkgerrors.NewNotFoundError("element " + id.String())
		}
		return pkgerrors.NewStoreError("mark element hidden", err)
	}
	return nil
}

// SoftDeleteProperty implements ports.ElementStore. Property mutations are
// read-modify-write on the element item; the property list is small and the
// element item is the unit of consistency.
func (s *ElementStore) SoftDeleteProperty(ctx context.Context, elementID valueobjects.ElementID, key, name string, visibility valueobjects.Visibility, auths auth.Authorizations) error {
	return s.mutateProperties(ctx, elementID, func(props []propertyItem) []propertyItem {
		kept := props[:0]
		for _, p := range props {
			if p.Key == key && p.Name == name && p.Visibility == visibility.String() {
				continue
			}
			kept = append(kept, p)
		}
		return kept
	})
}

// MarkPropertyHidden implements ports.ElementStore
func (s *ElementStore) MarkPropertyHidden(ctx context.Context, elementID valueobjects.ElementID, key, name string, visibility valueobjects.Visibility, hiddenVisibility valueobjects.Visibility, auths auth.Authorizations) error {
	return s.mutateProperties(ctx, elementID, func(props []propertyItem) []propertyItem {
		for i := range props {
			if props[i].Key == key && props[i].Name == name && props[i].Visibility == visibility.String() {
				props[i].Hidden = append(props[i].Hidden, hiddenVisibility.String())
			}
		}
		return props
	})
}

// RemoveProperty implements ports.ElementStore
func (s *ElementStore) RemoveProperty(ctx context.Context, elementID valueobjects.ElementID, key, name string, auths auth.Authorizations) error {
	return s.mutateProperties(ctx, elementID, func(props []propertyItem) []propertyItem {
		kept := props[:0]
		for _, p := range props {
			if p.Key == key && p.Name == name {
				continue
			}
			kept = append(kept, p)
		}
		return kept
	})
}

// UpdateVisibility implements ports.ElementStore
func (s *ElementStore) UpdateVisibility(ctx context.Context, id valueobjects.ElementID, record valueobjects.VisibilityRecord, auths auth.Authorizations) error {
	workspaces := record.Workspaces
	if workspaces == nil {
		workspaces = []string{}
	}
	workspacesAV, err := attributevalue.Marshal(workspaces)
	if err != nil {
		return fmt.Errorf("failed to marshal workspaces: %w", err)
	}
	input := &dynamodb.UpdateItemInput{
		TableName:        aws.String(s.tableName),
		Key:              elementKey(id.String()),
		UpdateExpression: aws.String("SET VisibilitySource = :source, Workspaces = :workspaces, UpdatedAt = :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":source":     &types.AttributeValueMemberS{Value: record.Source},
			":workspaces": workspacesAV,
			":now":        &types.AttributeValueMemberS{Value: time.Now().Format(time.RFC3339)},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	}
	if _, err := s.client.UpdateItem(ctx, input); err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return pkgerrors.NewNotFoundError("element " + id.String())
		}
		return pkgerrors.NewStoreError("update visibility", err)
	}
	return nil
}

// Flush implements ports.ElementStore. DynamoDB writes are applied
// immediately, so there is nothing to drain.
func (s *ElementStore) Flush(ctx context.Context) error {
	return nil
}

// mutateProperties rewrites the element's property list
func (s *ElementStore) mutateProperties(ctx context.Context, elementID valueobjects.ElementID, mutate func([]propertyItem) []propertyItem) error {
	item, err := s.getItem(ctx, elementID.String())
	if err != nil {
		return err
	}

	item.Properties = mutate(item.Properties)
	item.UpdatedAt = time.Now().Format(time.RFC3339)

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal element: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	}); err != nil {
		return pkgerrors.NewStoreError("update properties", err)
	}
	return nil
}

func (s *ElementStore) getItem(ctx context.Context, id string) (*elementItem, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       elementKey(id),
	})
	if err != nil {
		return nil, pkgerrors.NewStoreError("get element", err)
	}
	if result.Item == nil {
		return nil, pkgerrors.NewNotFoundError("element " + id)
	}
	var item elementItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal element: %w", err)
	}
	return &item, nil
}

// visibleElement converts an item to the element as the caller sees it, or
// nil if the caller cannot observe it
func (s *ElementStore) visibleElement(item *elementItem, auths auth.Authorizations) *entities.Element {
	if item == nil || item.Tombstoned {
		return nil
	}
	if !sandbox.SourceVisible(item.VisibilitySource, auths) {
		return nil
	}
	if sandbox.HiddenFrom(item.Hidden, auths) {
		return nil
	}

	element := s.fromItem(item)
	visible := element.Properties[:0]
	for i, p := range element.Properties {
		if sandbox.PropertyVisible(p, item.Properties[i].Hidden, auths) {
			visible = append(visible, p)
		}
	}
	element.Properties = visible
	return element
}

func (s *ElementStore) toItem(element *entities.Element) *elementItem {
	props := make([]propertyItem, 0, len(element.Properties))
	for _, p := range element.Properties {
		props = append(props, propertyItem{
			Key:        p.Key,
			Name:       p.Name,
			Value:      p.Value,
			Visibility: p.Visibility.String(),
		})
	}

	item := &elementItem{
		PK:               fmt.Sprintf("ELEMENT#%s", element.ID.String()),
		SK:               "METADATA",
		EntityType:       "ELEMENT",
		ElementID:        element.ID.String(),
		Kind:             string(element.Kind),
		Properties:       props,
		VisibilitySource: element.Visibility.Source,
		Workspaces:       element.Visibility.Workspaces,
		CreatedAt:        element.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        element.UpdatedAt.Format(time.RFC3339),
	}
	if element.Kind == entities.KindEdge {
		item.OutVertexID = element.OutVertexID.String()
		item.InVertexID = element.InVertexID.String()
		item.Label = element.Label
	}
	return item
}

func (s *ElementStore) fromItem(item *elementItem) *entities.Element {
	props := make([]entities.Property, 0, len(item.Properties))
	for _, p := range item.Properties {
		props = append(props, entities.Property{
			Key:        p.Key,
			Name:       p.Name,
			Value:      p.Value,
			Visibility: valueobjects.ParseVisibility(p.Visibility),
		})
	}

	elementID, _ := valueobjects.NewElementIDFromString(item.ElementID)
	element := &entities.Element{
		ID:         elementID,
		Kind:       entities.ElementKind(item.Kind),
		Properties: props,
		Visibility: valueobjects.VisibilityRecord{
			Source:     item.VisibilitySource,
			Workspaces: item.Workspaces,
		},
		Label: item.Label,
	}
	if item.OutVertexID != "" {
		element.OutVertexID, _ = valueobjects.NewElementIDFromString(item.OutVertexID)
	}
	if item.InVertexID != "" {
		element.InVertexID, _ = valueobjects.NewElementIDFromString(item.InVertexID)
	}
	if createdAt, err := time.Parse(time.RFC3339, item.CreatedAt); err == nil {
		element.CreatedAt = createdAt
	}
	if updatedAt, err := time.Parse(time.RFC3339, item.UpdatedAt); err == nil {
		element.UpdatedAt = updatedAt
	}
	return element
}
