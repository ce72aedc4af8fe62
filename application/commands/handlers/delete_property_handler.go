package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"sandgraph/application/cascade"
	"sandgraph/application/commands"
	"sandgraph/application/commands/bus"
	"sandgraph/application/ports"
	"sandgraph/domain/core/entities"
	"sandgraph/domain/core/valueobjects"
	"sandgraph/domain/events"
	"sandgraph/pkg/auth"
	pkgerrors "sandgraph/pkg/errors"
	"sandgraph/pkg/observability"
)

// DeletePropertyHandler handles property deletion commands. A (key, name)
// slot can hold several properties differing only in visibility; the
// handler cascades over every one the caller can see.
type DeletePropertyHandler struct {
	store   ports.ElementStore
	engine  *cascade.Engine
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewDeletePropertyHandler creates a new delete property handler
func NewDeletePropertyHandler(store ports.ElementStore, engine *cascade.Engine, metrics *observability.Metrics, logger *zap.Logger) *DeletePropertyHandler {
	return &DeletePropertyHandler{store: store, engine: engine, metrics: metrics, logger: logger}
}

// Handle executes the delete property command
func (h *DeletePropertyHandler) Handle(ctx context.Context, cmd bus.Command) error {
	c, ok := cmd.(commands.DeletePropertyCommand)
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

	elementID, err := valueobjects.NewElementIDFromString(c.ElementID)
	if err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}

	auths := auth.NewAuthorizations(c.Authorizations...)
	element, err := h.store.GetElement(ctx, elementID, auths)
	if err != nil {
		return err
	}

	var matched []entities.Property
	for _, p := range element.Properties {
		if p.Key == c.PropertyKey && p.Name == c.PropertyName {
			matched = append(matched, p)
		}
	}
	if len(matched) == 0 {
		return pkgerrors.NewNotFoundError(fmt.Sprintf("property %s:%s on element %s", c.PropertyKey, c.PropertyName, c.ElementID))
	}

	for _, property := range matched {
		isPublic := valueobjects.StatusOfVisibility(property.Visibility, workspaceID) == valueobjects.SandboxStatusPublic
		if err := h.engine.DeleteProperty(ctx, element, property, isPublic, workspaceID, events.PriorityHigh, auths); err != nil {
			return err
		}
	}

	h.metrics.Count(ctx, observability.MetricPropertiesDeleted, float64(len(matched)), map[string]string{
		"Scope": scopeDimension(workspaceID),
	})
	h.logger.Info("property deleted",
		zap.String("element_id", c.ElementID),
		zap.String("property_key", c.PropertyKey),
		zap.String("property_name", c.PropertyName),
		zap.String("workspace_id", workspaceID),
		zap.String("user_id", c.UserID))
	return nil
}
