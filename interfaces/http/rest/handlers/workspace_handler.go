package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"sandgraph/application/ports"
	"sandgraph/pkg/auth"
	"sandgraph/pkg/common"
	pkgerrors "sandgraph/pkg/errors"
	"sandgraph/pkg/utils"
)

// WorkspaceHandler handles workspace-related HTTP requests
type WorkspaceHandler struct {
	workspaces ports.WorkspaceRepository
	logger     *zap.Logger
}

// NewWorkspaceHandler creates a new workspace handler
func NewWorkspaceHandler(workspaces ports.WorkspaceRepository, logger *zap.Logger) *WorkspaceHandler {
	return &WorkspaceHandler{
		workspaces: workspaces,
		logger:     logger,
	}
}

// updateProductRequest is the JSON body of a product upsert. All fields are
// optional; an empty product id creates a new product.
type updateProductRequest struct {
	WorkspaceID string                 `json:"-" validate:"required"`
	ProductID   string                 `json:"productId"`
	Title       string                 `json:"title"`
	Kind        string                 `json:"kind"`
	Params      map[string]interface{} `json:"params"`
}

type productResponse struct {
	ID          string                 `json:"id"`
	WorkspaceID string                 `json:"workspaceId"`
	Title       string                 `json:"title"`
	Kind        string                 `json:"kind"`
	Params      map[string]interface{} `json:"params,omitempty"`
	CreatedAt   time.Time              `json:"createdAt"`
	UpdatedAt   time.Time              `json:"updatedAt"`
}

// UpdateProduct handles PUT /workspaces/{workspaceID}/product
func (h *WorkspaceHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.GetClaimsFromContext(r.Context())
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	if !claims.Privileges.Has(auth.PrivilegeEdit) {
		common.RespondAppError(w, pkgerrors.NewAccessDeniedError("edit privilege is required to update a product"))
		return
	}

	req := updateProductRequest{
		WorkspaceID: chi.URLParam(r, "workspaceID"),
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondAppError(w, pkgerrors.NewValidationError("invalid request body"))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondAppError(w, pkgerrors.NewValidationError(err.Error()))
		return
	}

	product, err := h.workspaces.AddOrUpdateProduct(r.Context(), req.WorkspaceID, req.ProductID, req.Title, req.Kind, req.Params)
	if err != nil {
		h.logger.Error("failed to upsert product",
			zap.String("workspace_id", req.WorkspaceID),
			zap.String("product_id", req.ProductID),
			zap.String("user_id", claims.UserID),
			zap.Error(err))
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, productResponse{
		ID:          product.ID,
		WorkspaceID: product.WorkspaceID,
		Title:       product.Title,
		Kind:        product.Kind,
		Params:      product.Params,
		CreatedAt:   product.CreatedAt,
		UpdatedAt:   product.UpdatedAt,
	})
}
