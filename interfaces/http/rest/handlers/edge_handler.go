package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"sandgraph/application/commands"
	"sandgraph/application/commands/bus"
	"sandgraph/pkg/auth"
	"sandgraph/pkg/common"
	pkgerrors "sandgraph/pkg/errors"
	"sandgraph/pkg/utils"
)

// EdgeHandler handles edge-related HTTP requests
type EdgeHandler struct {
	commandBus *bus.CommandBus
	logger     *zap.Logger
}

// NewEdgeHandler creates a new edge handler
func NewEdgeHandler(commandBus *bus.CommandBus, logger *zap.Logger) *EdgeHandler {
	return &EdgeHandler{
		commandBus: commandBus,
		logger:     logger,
	}
}

// deleteEdgeRequest is the query-parameter shape of an edge deletion
type deleteEdgeRequest struct {
	EdgeID      string `validate:"required"`
	WorkspaceID string
	Publish     bool
}

// DeleteEdge handles DELETE /edges/{edgeID}
func (h *EdgeHandler) DeleteEdge(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.GetClaimsFromContext(r.Context())
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	req := deleteEdgeRequest{
		EdgeID:      chi.URLParam(r, "edgeID"),
		WorkspaceID: r.URL.Query().Get("workspaceId"),
		Publish:     r.URL.Query().Get("publish") == "true",
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondAppError(w, pkgerrors.NewValidationError(err.Error()))
		return
	}

	cmd := commands.DeleteEdgeCommand{
		EdgeID:         req.EdgeID,
		WorkspaceID:    req.WorkspaceID,
		Publish:        req.Publish,
		UserID:         claims.UserID,
		Privileges:     claims.Privileges.Strings(),
		Authorizations: workspaceAuthorizations(claims, req.WorkspaceID),
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.logger.Error("failed to delete edge",
			zap.String("edge_id", req.EdgeID),
			zap.String("user_id", claims.UserID),
			zap.Error(err))
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]string{"edge_id": req.EdgeID})
}
