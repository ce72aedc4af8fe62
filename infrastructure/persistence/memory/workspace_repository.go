package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"sandgraph/application/ports"
	"sandgraph/domain/core/entities"
	"sandgraph/domain/core/valueobjects"
	"sandgraph/pkg/auth"
)

// WorkspaceRepository is an in-memory WorkspaceRepository
type WorkspaceRepository struct {
	mu         sync.RWMutex
	registered map[string]map[string]struct{}
	products   map[string]map[string]*entities.WorkProduct
}

// NewWorkspaceRepository creates an empty in-memory workspace repository
func NewWorkspaceRepository() *WorkspaceRepository {
	return &WorkspaceRepository{
		registered: make(map[string]map[string]struct{}),
		products:   make(map[string]map[string]*entities.WorkProduct),
	}
}

// UpdateEntityOnWorkspace implements ports.WorkspaceRepository. Publishing
// runs outside any workspace, so an empty workspace id is a no-op.
func (r *WorkspaceRepository) UpdateEntityOnWorkspace(ctx context.Context, workspaceID string, vertexID valueobjects.ElementID) error {
	if workspaceID == "" {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.registered[workspaceID] == nil {
		r.registered[workspaceID] = make(map[string]struct{})
	}
	r.registered[workspaceID][vertexID.String()] = struct{}{}
	return nil
}

// SystemAuthorizations implements ports.WorkspaceRepository
func (r *WorkspaceRepository) SystemAuthorizations(auths auth.Authorizations) auth.Authorizations {
	return auths.With(ports.WorkspaceSystemVisibility)
}

// AddOrUpdateProduct implements ports.WorkspaceRepository
func (r *WorkspaceRepository) AddOrUpdateProduct(ctx context.Context, workspaceID, productID, title, kind string, params map[string]interface{}) (*entities.WorkProduct, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if r.products[workspaceID] == nil {
		r.products[workspaceID] = make(map[string]*entities.WorkProduct)
	}

	if productID == "" {
		productID = uuid.NewString()
	}
	product, ok := r.products[workspaceID][productID]
	if !ok {
		product = &entities.WorkProduct{
			ID:          productID,
			WorkspaceID: workspaceID,
			CreatedAt:   now,
		}
		r.products[workspaceID][productID] = product
	}
	if title != "" {
		product.Title = title
	}
	if kind != "" {
		product.Kind = kind
	}
	if params != nil {
		product.Params = params
	}
	product.UpdatedAt = now

	clone := *product
	return &clone, nil
}

// Product returns the stored product. Test helper.
func (r *WorkspaceRepository) Product(workspaceID, productID string) *entities.WorkProduct {
	r.mu.RLock()
	defer r.mu.RUnlock()
	product, ok := r.products[workspaceID][productID]
	if !ok {
		return nil
	}
	clone := *product
	return &clone
}

// IsRegistered reports whether the vertex was registered on the workspace.
// Test helper.
func (r *WorkspaceRepository) IsRegistered(workspaceID string, vertexID valueobjects.ElementID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.registered[workspaceID][vertexID.String()]
	return ok
}
