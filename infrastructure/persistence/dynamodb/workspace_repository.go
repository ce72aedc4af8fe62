package dynamodb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"sandgraph/application/ports"
	"sandgraph/domain/core/entities"
	"sandgraph/domain/core/valueobjects"
	"sandgraph/pkg/auth"
	pkgerrors "sandgraph/pkg/errors"
)

// WorkspaceRepository implements ports.WorkspaceRepository on DynamoDB
type WorkspaceRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewWorkspaceRepository creates a new DynamoDB workspace repository
func NewWorkspaceRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) *WorkspaceRepository {
	return &WorkspaceRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// workspaceEntityItem records that a workspace has touched a vertex
type workspaceEntityItem struct {
	PK          string `dynamodbav:"PK"` // WORKSPACE#<workspace_id>
	SK          string `dynamodbav:"SK"` // ENTITY#<vertex_id>
	EntityType  string `dynamodbav:"EntityType"`
	WorkspaceID string `dynamodbav:"WorkspaceID"`
	VertexID    string `dynamodbav:"VertexID"`
	UpdatedAt   string `dynamodbav:"UpdatedAt"`
}

// UpdateEntityOnWorkspace implements ports.WorkspaceRepository. An empty
// workspaceID means the change happened in the public scope; there is no
// workspace to register it on.
func (r *WorkspaceRepository) UpdateEntityOnWorkspace(ctx context.Context, workspaceID string, vertexID valueobjects.ElementID) error {
	if workspaceID == "" {
		return nil
	}

	item := workspaceEntityItem{
		PK:          fmt.Sprintf("WORKSPACE#%s", workspaceID),
		SK:          fmt.Sprintf("ENTITY#%s", vertexID.String()),
		EntityType:  "WORKSPACE_ENTITY",
		WorkspaceID: workspaceID,
		VertexID:    vertexID.String(),
		UpdatedAt:   time.Now().Format(time.RFC3339),
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal workspace entity: %w", err)
	}
	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	}); err != nil {
		r.logger.Error("failed to register entity on workspace",
			zap.String("workspace_id", workspaceID),
			zap.String("vertex_id", vertexID.String()),
			zap.Error(err))
		return pkgerrors.NewStoreError("register entity on workspace", err)
	}
	return nil
}

// SystemAuthorizations implements ports.WorkspaceRepository
func (r *WorkspaceRepository) SystemAuthorizations(auths auth.Authorizations) auth.Authorizations {
	return auths.With(ports.WorkspaceSystemVisibility)
}

// productItem is the DynamoDB item structure for a work product
type productItem struct {
	PK          string `dynamodbav:"PK"` // WORKSPACE#<workspace_id>
	SK          string `dynamodbav:"SK"` // PRODUCT#<product_id>
	EntityType  string `dynamodbav:"EntityType"`
	WorkspaceID string `dynamodbav:"WorkspaceID"`
	ProductID   string `dynamodbav:"ProductID"`
	Title       string `dynamodbav:"Title,omitempty"`
	Kind        string `dynamodbav:"Kind,omitempty"`
	Params      string `dynamodbav:"Params,omitempty"`
	CreatedAt   string `dynamodbav:"CreatedAt"`
	UpdatedAt   string `dynamodbav:"UpdatedAt"`
}

// AddOrUpdateProduct implements ports.WorkspaceRepository. The upsert only
// sets the fields the caller provided, so a rename does not clobber the
// stored params, and the creation time survives updates.
func (r *WorkspaceRepository) AddOrUpdateProduct(ctx context.Context, workspaceID, productID, title, kind string, params map[string]interface{}) (*entities.WorkProduct, error) {
	if productID == "" {
		productID = uuid.NewString()
	}
	now := time.Now().Format(time.RFC3339Nano)

	update := expression.
		Set(expression.Name("EntityType"), expression.Value("WORK_PRODUCT")).
		Set(expression.Name("WorkspaceID"), expression.Value(workspaceID)).
		Set(expression.Name("ProductID"), expression.Value(productID)).
		Set(expression.Name("CreatedAt"), expression.IfNotExists(expression.Name("CreatedAt"), expression.Value(now))).
		Set(expression.Name("UpdatedAt"), expression.Value(now))
	if title != "" {
		update = update.Set(expression.Name("Title"), expression.Value(title))
	}
	if kind != "" {
		update = update.Set(expression.Name("Kind"), expression.Value(kind))
	}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal product params: %w", err)
		}
		update = update.Set(expression.Name("Params"), expression.Value(string(raw)))
	}

	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build product update expression: %w", err)
	}

	result, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("WORKSPACE#%s", workspaceID)},
			"SK": &types.AttributeValueMemberS{Value: fmt.Sprintf("PRODUCT#%s", productID)},
		},
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		r.logger.Error("failed to upsert work product",
			zap.String("workspace_id", workspaceID),
			zap.String("product_id", productID),
			zap.Error(err))
		return nil, pkgerrors.NewStoreError("upsert work product", err)
	}

	var item productItem
	if err := attributevalue.UnmarshalMap(result.Attributes, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal work product: %w", err)
	}
	return r.productFromItem(&item)
}

func (r *WorkspaceRepository) productFromItem(item *productItem) (*entities.WorkProduct, error) {
	product := &entities.WorkProduct{
		ID:          item.ProductID,
		WorkspaceID: item.WorkspaceID,
		Title:       item.Title,
		Kind:        item.Kind,
	}
	if item.Params != "" {
		if err := json.Unmarshal([]byte(item.Params), &product.Params); err != nil {
			return nil, fmt.Errorf("failed to unmarshal product params: %w", err)
		}
	}
	if createdAt, err := time.Parse(time.RFC3339Nano, item.CreatedAt); err == nil {
		product.CreatedAt = createdAt
	}
	if updatedAt, err := time.Parse(time.RFC3339Nano, item.UpdatedAt); err == nil {
		product.UpdatedAt = updatedAt
	}
	return product, nil
}
