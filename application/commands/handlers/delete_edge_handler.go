package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"sandgraph/application/cascade"
	"sandgraph/application/commands"
	"sandgraph/application/commands/bus"
	"sandgraph/application/ports"
	"sandgraph/domain/core/valueobjects"
	"sandgraph/domain/events"
	"sandgraph/pkg/auth"
	pkgerrors "sandgraph/pkg/errors"
	"sandgraph/pkg/observability"
)

// DeleteEdgeHandler handles edge deletion commands
type DeleteEdgeHandler struct {
	store   ports.ElementStore
	engine  *cascade.Engine
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewDeleteEdgeHandler creates a new delete edge handler
func NewDeleteEdgeHandler(store ports.ElementStore, engine *cascade.Engine, metrics *observability.Metrics, logger *zap.Logger) *DeleteEdgeHandler {
	return &DeleteEdgeHandler{store: store, engine: engine, metrics: metrics, logger: logger}
}

// Handle executes the delete edge command
func (h *DeleteEdgeHandler) Handle(ctx context.Context, cmd bus.Command) error {
	c, ok := cmd.(commands.DeleteEdgeCommand)
	if !ok {
		return pkgerrors.NewInternalError(fmt.Sprintf("unexpected command type %T", cmd))
	}

	privileges := privilegesOf(c.Privileges)
	workspaceID, err := cascade.WorkspaceIDOrPublish(c.WorkspaceID, c.Publish, privileges)
	if err != nil {
		return err
	}
	if workspaceID != "" && !privileges.Has(auth.PrivilegeEdit) {
		return pkgerrors.NewAccessDeniedError("edit privilege is required to delete within a workspace")
	}

	edgeID, err := valueobjects.NewElementIDFromString(c.EdgeID)
	if err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}

	auths := auth.NewAuthorizations(c.Authorizations...)
	edge, err := h.store.GetElement(ctx, edgeID, auths)
	if err != nil {
		return err
	}

	outVertex, err := h.store.GetElement(ctx, edge.OutVertexID, auths)
	if err != nil {
		return fmt.Errorf("failed to load edge out-vertex: %w", err)
	}

	isPublic := valueobjects.StatusOfVisibility(
		valueobjects.ParseVisibility(edge.Visibility.Source), workspaceID,
	) == valueobjects.SandboxStatusPublic

	if err := h.engine.DeleteEdge(ctx, workspaceID, edge, outVertex, isPublic, events.PriorityHigh, auths); err != nil {
		return err
	}

	h.metrics.Increment(ctx, observability.MetricEdgesDeleted, map[string]string{
		"Scope": scopeDimension(workspaceID),
	})
	h.logger.Info("edge deleted",
		zap.String("edge_id", c.EdgeID),
		zap.String("workspace_id", workspaceID),
		zap.String("user_id", c.UserID))
	return nil
}
