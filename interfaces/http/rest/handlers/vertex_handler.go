// Package handlers translates HTTP requests into commands on the bus.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"sandgraph/application/commands"
	"sandgraph/application/commands/bus"
	"sandgraph/domain/core/valueobjects"
	"sandgraph/pkg/auth"
	"sandgraph/pkg/common"
	pkgerrors "sandgraph/pkg/errors"
	"sandgraph/pkg/utils"
)

// VertexHandler handles vertex-related HTTP requests
type VertexHandler struct {
	commandBus *bus.CommandBus
	logger     *zap.Logger
}

// NewVertexHandler creates a new vertex handler
func NewVertexHandler(commandBus *bus.CommandBus, logger *zap.Logger) *VertexHandler {
	return &VertexHandler{
		commandBus: commandBus,
		logger:     logger,
	}
}

// deleteVertexRequest is the query-parameter shape of a vertex deletion
type deleteVertexRequest struct {
	VertexID    string `validate:"required"`
	WorkspaceID string
	Publish     bool
}

// DeleteVertex handles DELETE /vertices/{vertexID}
func (h *VertexHandler) DeleteVertex(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.GetClaimsFromContext(r.Context())
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	req := deleteVertexRequest{
		VertexID:    chi.URLParam(r, "vertexID"),
		WorkspaceID: r.URL.Query().Get("workspaceId"),
		Publish:     r.URL.Query().Get("publish") == "true",
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondAppError(w, pkgerrors.NewValidationError(err.Error()))
		return
	}

	cmd := commands.DeleteVertexCommand{
		VertexID:       req.VertexID,
		WorkspaceID:    req.WorkspaceID,
		Publish:        req.Publish,
		UserID:         claims.UserID,
		Privileges:     claims.Privileges.Strings(),
		Authorizations: workspaceAuthorizations(claims, req.WorkspaceID),
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.logger.Error("failed to delete vertex",
			zap.String("vertex_id", req.VertexID),
			zap.String("user_id", claims.UserID),
			zap.Error(err))
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]string{"vertex_id": req.VertexID})
}

// deletePropertyRequest is the query-parameter shape of a property deletion
type deletePropertyRequest struct {
	ElementID    string `validate:"required"`
	PropertyKey  string `validate:"required"`
	PropertyName string `validate:"required"`
	WorkspaceID  string
	Publish      bool
}

// DeleteProperty handles DELETE /vertices/{vertexID}/property and
// DELETE /edges/{edgeID}/property
func (h *VertexHandler) DeleteProperty(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.GetClaimsFromContext(r.Context())
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	elementID := chi.URLParam(r, "vertexID")
	if elementID == "" {
		elementID = chi.URLParam(r, "edgeID")
	}

	req := deletePropertyRequest{
		ElementID:    elementID,
		PropertyKey:  r.URL.Query().Get("propertyKey"),
		PropertyName: r.URL.Query().Get("propertyName"),
		WorkspaceID:  r.URL.Query().Get("workspaceId"),
		Publish:      r.URL.Query().Get("publish") == "true",
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondAppError(w, pkgerrors.NewValidationError(err.Error()))
		return
	}

	cmd := commands.DeletePropertyCommand{
		ElementID:      req.ElementID,
		PropertyKey:    req.PropertyKey,
		PropertyName:   req.PropertyName,
		WorkspaceID:    req.WorkspaceID,
		Publish:        req.Publish,
		UserID:         claims.UserID,
		Privileges:     claims.Privileges.Strings(),
		Authorizations: workspaceAuthorizations(claims, req.WorkspaceID),
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.logger.Error("failed to delete property",
			zap.String("element_id", req.ElementID),
			zap.String("property_key", req.PropertyKey),
			zap.String("property_name", req.PropertyName),
			zap.String("user_id", claims.UserID),
			zap.Error(err))
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]string{
		"element_id":    req.ElementID,
		"property_key":  req.PropertyKey,
		"property_name": req.PropertyName,
	})
}

// workspaceAuthorizations widens the token's visibility grants with the
// workspace being operated on. Tokens grant workspaces by membership; the
// current workspace always rides along so sandboxed records stay reachable.
func workspaceAuthorizations(claims *auth.Claims, workspaceID string) []string {
	auths := claims.Authorizations
	if workspaceID == "" {
		return auths
	}
	ws := valueobjects.WorkspaceVisibility(workspaceID).String()
	for _, a := range auths {
		if a == ws {
			return auths
		}
	}
	out := make([]string, 0, len(auths)+1)
	out = append(out, auths...)
	out = append(out, ws)
	return out
}
