// Package handlers contains the command handlers driving the cascade
// engine. Handlers resolve the workspace scope, enforce privilege checks,
// load the target element, and dispatch to the engine.
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

// DeleteVertexHandler handles vertex deletion commands
type DeleteVertexHandler struct {
	store   ports.ElementStore
	engine  *cascade.Engine
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewDeleteVertexHandler creates a new delete vertex handler. A nil metrics
// recorder disables metric emission.
func NewDeleteVertexHandler(store ports.ElementStore, engine *cascade.Engine, metrics *observability.Metrics, logger *zap.Logger) *DeleteVertexHandler {
	return &DeleteVertexHandler{store: store, engine: engine, metrics: metrics, logger: logger}
}

// Handle executes the delete vertex command
func (h *DeleteVertexHandler) Handle(ctx context.Context, cmd bus.Command) error {
	c, ok := cmd.(commands.DeleteVertexCommand)
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

	vertexID, err := valueobjects.NewElementIDFromString(c.VertexID)
	if err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}

	auths := auth.NewAuthorizations(c.Authorizations...)
	vertex, err := h.store.GetElement(ctx, vertexID, auths)
	if err != nil {
		return err
	}

	isPublic := valueobjects.StatusOfVisibility(
		valueobjects.ParseVisibility(vertex.Visibility.Source), workspaceID,
	) == valueobjects.SandboxStatusPublic

	if err := h.engine.DeleteVertex(ctx, vertex, workspaceID, isPublic, events.PriorityHigh, auths); err != nil {
		return err
	}

	h.metrics.Increment(ctx, observability.MetricVerticesDeleted, map[string]string{
		"Scope": scopeDimension(workspaceID),
	})
	h.logger.Info("vertex deleted",
		zap.String("vertex_id", c.VertexID),
		zap.String("workspace_id", workspaceID),
		zap.String("user_id", c.UserID))
	return nil
}

func scopeDimension(workspaceID string) string {
	if workspaceID == "" {
		return "public"
	}
	return "workspace"
}

func privilegesOf(raw []string) auth.Privileges {
	set := make(auth.Privileges, len(raw))
	for _, p := range raw {
		set[auth.Privilege(p)] = struct{}{}
	}
	return set
}
