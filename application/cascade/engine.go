// Package cascade implements sandbox-aware deletion of graph elements and
// the bookkeeping that has to travel with each deletion: unresolving term
// mentions, cleaning image references and detected-object overlays, and
// enqueueing change notifications in flush order.
package cascade

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sandgraph/application/ports"
	"sandgraph/domain/core/entities"
	"sandgraph/domain/core/valueobjects"
	"sandgraph/domain/events"
	"sandgraph/domain/sandbox"
	"sandgraph/pkg/auth"
	pkgerrors "sandgraph/pkg/errors"
)

// Engine drives the deletion cascades. One instance serves all workspaces;
// per-call scoping comes from the workspace id and authorizations arguments.
//
// The entityHasImage and artifactContainsImageOfEntity ontology intents are
// resolved at construction. A deployment that leaves an intent unmapped gets
// a warning and the dependent cascade step is skipped instead of failing the
// whole deletion.
type Engine struct {
	store        ports.ElementStore
	termMentions ports.TermMentionRepository
	workspaces   ports.WorkspaceRepository
	ontology     ports.OntologyReader
	queue        ports.ChangeQueue
	logger       *zap.Logger

	entityHasImageIRI        string
	artifactContainsImageIRI string
}

// NewEngine creates a cascade engine, resolving ontology intents up front
func NewEngine(
	store ports.ElementStore,
	termMentions ports.TermMentionRepository,
	workspaces ports.WorkspaceRepository,
	ontology ports.OntologyReader,
	queue ports.ChangeQueue,
	logger *zap.Logger,
) *Engine {
	e := &Engine{
		store:        store,
		termMentions: termMentions,
		workspaces:   workspaces,
		ontology:     ontology,
		queue:        queue,
		logger:       logger,
	}

	ctx := context.Background()
	if iri, ok := ontology.RelationshipIRIByIntent(ctx, ports.IntentEntityHasImage); ok {
		e.entityHasImageIRI = iri
	} else {
		logger.Warn("ontology intent has not been defined, image cleanup will be skipped",
			zap.String("intent", ports.IntentEntityHasImage))
	}
	if iri, ok := ontology.RelationshipIRIByIntent(ctx, ports.IntentArtifactContainsImage); ok {
		e.artifactContainsImageIRI = iri
	} else {
		logger.Warn("ontology intent has not been defined, detected object cleanup will be skipped",
			zap.String("intent", ports.IntentArtifactContainsImage))
	}

	return e
}

// UnresolveTerm detaches a term mention from the entity it resolved to: the
// resolve edge is soft deleted, the mention record removed, and the source
// text re-queued for highlighting. If the source vertex is already gone the
// call is a no-op, so concurrent cascades can race here safely.
func (e *Engine) UnresolveTerm(ctx context.Context, mention *entities.TermMention, auths auth.Authorizations) error {
	outVertex, err := e.store.GetElement(ctx, mention.OutVertexID, auths)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to load term mention source vertex: %w", err)
	}

	if mention.HasResolveEdge() {
		resolveEdge, err := e.store.GetElement(ctx, mention.ResolveEdgeID, auths)
		if err != nil && !pkgerrors.IsNotFound(err) {
			return fmt.Errorf("failed to load resolve edge: %w", err)
		}
		if resolveEdge != nil {
			timestamp := time.Now()
			if err := e.store.SoftDeleteElement(ctx, resolveEdge.ID, auths); err != nil {
				return fmt.Errorf("failed to soft delete resolve edge: %w", err)
			}
			if err := e.store.Flush(ctx); err != nil {
				return fmt.Errorf("failed to flush store: %w", err)
			}
			event := events.NewEdgeDeleted(resolveEdge.ID, resolveEdge.OutVertexID, resolveEdge.InVertexID, resolveEdge.Label, timestamp, events.PriorityHigh)
			if err := e.queue.PushEdgeDeletion(ctx, event); err != nil {
				return fmt.Errorf("failed to enqueue edge deletion: %w", err)
			}
		}
	}

	if err := e.termMentions.Delete(ctx, mention); err != nil {
		return fmt.Errorf("failed to delete term mention: %w", err)
	}
	if err := e.queue.PushTextUpdated(ctx, events.NewTextUpdated(outVertex.ID, time.Now())); err != nil {
		return fmt.Errorf("failed to enqueue text update: %w", err)
	}

	if err := e.store.Flush(ctx); err != nil {
		return fmt.Errorf("failed to flush store: %w", err)
	}
	return nil
}

// DeleteProperty removes a single property from an element. Public
// properties deleted inside a workspace are hidden behind the workspace
// visibility so the deletion stays sandboxed; sandboxed properties (or
// deletions outside any workspace) are soft deleted outright. Term mentions
// derived from the property are unresolved in the same pass.
func (e *Engine) DeleteProperty(
	ctx context.Context,
	element *entities.Element,
	property entities.Property,
	propertyIsPublic bool,
	workspaceID string,
	priority events.Priority,
	auths auth.Authorizations,
) error {
	// register the element so the deletion shows up in the workspace diff
	if err := e.workspaces.UpdateEntityOnWorkspace(ctx, workspaceID, element.ID); err != nil {
		return fmt.Errorf("failed to register element on workspace: %w", err)
	}
	return e.deleteProperty(ctx, element, property, propertyIsPublic, workspaceID, priority, false, nil, auths)
}

func (e *Engine) deleteProperty(
	ctx context.Context,
	element *entities.Element,
	property entities.Property,
	propertyIsPublic bool,
	workspaceID string,
	priority events.Priority,
	isElementDeleted bool,
	beforeDeleteTimestamp *time.Time,
	auths auth.Authorizations,
) error {
	if propertyIsPublic && workspaceID != "" {
		workspaceVis := valueobjects.WorkspaceVisibility(workspaceID)
		if err := e.store.MarkPropertyHidden(ctx, element.ID, property.Key, property.Name, property.Visibility, workspaceVis, auths); err != nil {
			return fmt.Errorf("failed to hide property: %w", err)
		}
	} else {
		if err := e.store.SoftDeleteProperty(ctx, element.ID, property.Key, property.Name, property.Visibility, auths); err != nil {
			return fmt.Errorf("failed to soft delete property: %w", err)
		}
	}

	if element.IsVertex() {
		if err := e.unresolveTermMentionsForProperty(ctx, element, property, auths); err != nil {
			return err
		}
	}

	if err := e.store.Flush(ctx); err != nil {
		return fmt.Errorf("failed to flush store: %w", err)
	}

	event := events.NewPropertyChanged(
		element.ID,
		string(element.Kind),
		property.Key,
		property.Name,
		workspaceID,
		property.Visibility.String(),
		isElementDeleted,
		beforeDeleteTimestamp,
		priority,
		time.Now(),
	)
	if err := e.queue.PushPropertyChange(ctx, event); err != nil {
		return fmt.Errorf("failed to enqueue property change: %w", err)
	}
	return nil
}

// deleteProperties cascades over every property on the element, resolving
// each one's sandbox status against the workspace to pick hide vs delete
func (e *Engine) deleteProperties(
	ctx context.Context,
	element *entities.Element,
	workspaceID string,
	priority events.Priority,
	beforeDeleteTimestamp time.Time,
	auths auth.Authorizations,
) error {
	properties := make([]entities.Property, len(element.Properties))
	copy(properties, element.Properties)
	statuses := sandbox.PropertyStatuses(properties, workspaceID)

	for i, property := range properties {
		propertyIsPublic := statuses[i] == valueobjects.SandboxStatusPublic
		if err := e.deleteProperty(ctx, element, property, propertyIsPublic, workspaceID, priority, true, &beforeDeleteTimestamp, auths); err != nil {
			return err
		}
	}
	return nil
}

// DeleteEdge removes an edge, cascading over its properties first and
// registering both endpoints on the workspace so the change shows up in the
// workspace diff. Public edges are hidden behind the workspace visibility;
// sandboxed edges are soft deleted. Either way the entity-image property and
// term mentions hanging off the edge are cleaned with matching semantics,
// and the final edge-deletion event goes out at high priority.
func (e *Engine) DeleteEdge(
	ctx context.Context,
	workspaceID string,
	edge *entities.Element,
	outVertex *entities.Element,
	isPublicEdge bool,
	priority events.Priority,
	auths auth.Authorizations,
) error {
	timestamp := time.Now()

	if err := e.deleteProperties(ctx, edge, workspaceID, priority, timestamp, auths); err != nil {
		return err
	}

	// register both endpoints so the deletion shows up in the workspace diff
	if err := e.workspaces.UpdateEntityOnWorkspace(ctx, workspaceID, edge.InVertexID); err != nil {
		return fmt.Errorf("failed to register in-vertex on workspace: %w", err)
	}
	if err := e.workspaces.UpdateEntityOnWorkspace(ctx, workspaceID, edge.OutVertexID); err != nil {
		return fmt.Errorf("failed to register out-vertex on workspace: %w", err)
	}

	if isPublicEdge {
		workspaceVis := valueobjects.WorkspaceVisibility(workspaceID)

		if err := e.store.MarkElementHidden(ctx, edge.ID, workspaceVis, auths); err != nil {
			return fmt.Errorf("failed to hide edge: %w", err)
		}

		if e.entityHasImageIRI != "" && edge.Label == e.entityHasImageIRI {
			if entityImage := outVertex.Property(entities.PropertyNameEntityImage); entityImage != nil {
				if err := e.store.MarkPropertyHidden(ctx, outVertex.ID, entityImage.Key, entityImage.Name, entityImage.Visibility, workspaceVis, auths); err != nil {
					return fmt.Errorf("failed to hide entity image property: %w", err)
				}
				if err := e.queue.PushElementImage(ctx, events.NewImageChanged(outVertex.ID, entityImage.Key, entityImage.Name, time.Now(), priority)); err != nil {
					return fmt.Errorf("failed to enqueue image change: %w", err)
				}
			}
		}

		mentions, err := e.termMentions.FindByEdgeID(ctx, outVertex.ID, edge.ID)
		if err != nil {
			return fmt.Errorf("failed to find term mentions for edge: %w", err)
		}
		for _, mention := range mentions {
			if err := e.termMentions.MarkHidden(ctx, mention, workspaceVis); err != nil {
				return fmt.Errorf("failed to hide term mention: %w", err)
			}
			if err := e.queue.PushTextUpdated(ctx, events.NewTextUpdated(outVertex.ID, time.Now())); err != nil {
				return fmt.Errorf("failed to enqueue text update: %w", err)
			}
		}

		if err := e.store.Flush(ctx); err != nil {
			return fmt.Errorf("failed to flush store: %w", err)
		}
	} else {
		if err := e.store.SoftDeleteElement(ctx, edge.ID, auths); err != nil {
			return fmt.Errorf("failed to soft delete edge: %w", err)
		}

		if e.entityHasImageIRI != "" && edge.Label == e.entityHasImageIRI {
			if entityImage := outVertex.Property(entities.PropertyNameEntityImage); entityImage != nil {
				if err := e.store.SoftDeleteProperty(ctx, outVertex.ID, entityImage.Key, entityImage.Name, entityImage.Visibility, auths); err != nil {
					return fmt.Errorf("failed to soft delete entity image property: %w", err)
				}
				if err := e.queue.PushElementImage(ctx, events.NewImageChanged(outVertex.ID, entityImage.Key, entityImage.Name, time.Now(), priority)); err != nil {
					return fmt.Errorf("failed to enqueue image change: %w", err)
				}
			}
		}

		mentions, err := e.termMentions.FindByEdgeID(ctx, outVertex.ID, edge.ID)
		if err != nil {
			return fmt.Errorf("failed to find term mentions for edge: %w", err)
		}
		for _, mention := range mentions {
			if err := e.termMentions.Delete(ctx, mention); err != nil {
				return fmt.Errorf("failed to delete term mention: %w", err)
			}
			if err := e.queue.PushTextUpdated(ctx, events.NewTextUpdated(outVertex.ID, time.Now())); err != nil {
				return fmt.Errorf("failed to enqueue text update: %w", err)
			}
		}

		if err := e.store.Flush(ctx); err != nil {
			return fmt.Errorf("failed to flush store: %w", err)
		}
	}

	event := events.NewEdgeDeleted(edge.ID, edge.OutVertexID, edge.InVertexID, edge.Label, timestamp, events.PriorityHigh)
	if err := e.queue.PushEdgeDeletion(ctx, event); err != nil {
		return fmt.Errorf("failed to enqueue edge deletion: %w", err)
	}
	if err := e.store.Flush(ctx); err != nil {
		return fmt.Errorf("failed to flush store: %w", err)
	}
	return nil
}

// DeleteVertex removes a vertex. Public vertices are hidden behind the
// workspace visibility and nothing else is touched. Sandboxed vertices get
// the full cascade: every property is deleted, image references on
// neighboring entities are cleaned, detected-object overlays on artifacts
// are removed together with their edges, resolved term mentions are
// unresolved, workspace membership edges are soft deleted under elevated
// authorizations, and finally the vertex itself is tombstoned.
func (e *Engine) DeleteVertex(
	ctx context.Context,
	vertex *entities.Element,
	workspaceID string,
	isPublicVertex bool,
	priority events.Priority,
	auths auth.Authorizations,
) error {
	e.logger.Debug("begin delete vertex",
		zap.String("vertex_id", vertex.ID.String()),
		zap.String("workspace_id", workspaceID),
		zap.Bool("is_public", isPublicVertex))
	timestamp := time.Now()

	if err := e.deleteProperties(ctx, vertex, workspaceID, priority, timestamp, auths); err != nil {
		return err
	}

	// register the entity so the deletion shows up in the workspace diff
	if err := e.workspaces.UpdateEntityOnWorkspace(ctx, workspaceID, vertex.ID); err != nil {
		return fmt.Errorf("failed to register vertex on workspace: %w", err)
	}

	if isPublicVertex {
		workspaceVis := valueobjects.WorkspaceVisibility(workspaceID)
		if err := e.store.MarkElementHidden(ctx, vertex.ID, workspaceVis, auths); err != nil {
			return fmt.Errorf("failed to hide vertex: %w", err)
		}
		if err := e.store.Flush(ctx); err != nil {
			return fmt.Errorf("failed to flush store: %w", err)
		}
		if err := e.queue.PushVertexDeletion(ctx, events.NewVertexDeleted(vertex.ID, timestamp, events.PriorityHigh)); err != nil {
			return fmt.Errorf("failed to enqueue vertex deletion: %w", err)
		}
	} else {
		visibility := vertex.Visibility.RemoveFromAllWorkspaces()
		if err := e.store.UpdateVisibility(ctx, vertex.ID, visibility, auths); err != nil {
			return fmt.Errorf("failed to strip workspace visibility: %w", err)
		}

		if err := e.cleanEntityImageReferences(ctx, vertex, priority, auths); err != nil {
			return err
		}
		if err := e.cleanDetectedObjects(ctx, vertex, workspaceID, visibility.Source, timestamp, priority, auths); err != nil {
			return err
		}

		e.logger.Debug("unresolve terms", zap.String("vertex_id", vertex.ID.String()))
		mentions, err := e.termMentions.FindResolvedTo(ctx, vertex.ID)
		if err != nil {
			return fmt.Errorf("failed to find resolved term mentions: %w", err)
		}
		for _, mention := range mentions {
			if err := e.UnresolveTerm(ctx, mention, auths); err != nil {
				return err
			}
		}

		if err := e.deleteWorkspaceMembershipEdges(ctx, vertex, workspaceID, auths); err != nil {
			return err
		}

		e.logger.Debug("soft delete vertex", zap.String("vertex_id", vertex.ID.String()))
		if err := e.store.SoftDeleteElement(ctx, vertex.ID, auths); err != nil {
			return fmt.Errorf("failed to soft delete vertex: %w", err)
		}
		if err := e.store.Flush(ctx); err != nil {
			return fmt.Errorf("failed to flush store: %w", err)
		}
		if err := e.queue.PushVertexDeletion(ctx, events.NewVertexDeleted(vertex.ID, timestamp, events.PriorityHigh)); err != nil {
			return fmt.Errorf("failed to enqueue vertex deletion: %w", err)
		}
	}

	if err := e.store.Flush(ctx); err != nil {
		return fmt.Errorf("failed to flush store: %w", err)
	}
	e.logger.Debug("end delete vertex", zap.String("vertex_id", vertex.ID.String()))
	return nil
}

// cleanEntityImageReferences removes the image-pointer property from any
// entity whose current image is the vertex being deleted
func (e *Engine) cleanEntityImageReferences(ctx context.Context, vertex *entities.Element, priority events.Priority, auths auth.Authorizations) error {
	if e.entityHasImageIRI == "" {
		e.logger.Warn("skipping entity image cleanup, intent is not mapped",
			zap.String("intent", ports.IntentEntityHasImage))
		return nil
	}

	edges, err := e.store.GetEdges(ctx, vertex.ID, e.entityHasImageIRI, auths)
	if err != nil {
		return fmt.Errorf("failed to load image edges: %w", err)
	}
	for _, edge := range edges {
		if !edge.InVertexID.Equals(vertex.ID) {
			continue
		}
		outVertex, err := e.store.GetElement(ctx, edge.OutVertexID, auths)
		if err != nil {
			if pkgerrors.IsNotFound(err) {
				continue
			}
			return fmt.Errorf("failed to load image edge out-vertex: %w", err)
		}
		entityImage := outVertex.Property(entities.PropertyNameEntityImage)
		if entityImage == nil {
			// a concurrent cascade already cleaned the reference
			continue
		}
		if err := e.store.SoftDeleteProperty(ctx, outVertex.ID, entityImage.Key, entityImage.Name, entityImage.Visibility, auths); err != nil {
			return fmt.Errorf("failed to soft delete entity image property: %w", err)
		}
		if err := e.queue.PushElementImage(ctx, events.NewImageChanged(outVertex.ID, entityImage.Key, entityImage.Name, time.Now(), priority)); err != nil {
			return fmt.Errorf("failed to enqueue image change: %w", err)
		}
	}
	return nil
}

// cleanDetectedObjects removes detected-object overlay properties from
// artifacts that reference the vertex being deleted. The overlay is keyed by
// the vertex's row key; the overlay removal and the edge soft delete share
// one timestamp so consumers can correlate the pair.
func (e *Engine) cleanDetectedObjects(
	ctx context.Context,
	vertex *entities.Element,
	workspaceID string,
	visibilitySource string,
	timestamp time.Time,
	priority events.Priority,
	auths auth.Authorizations,
) error {
	if e.artifactContainsImageIRI == "" {
		e.logger.Warn("skipping detected object cleanup, intent is not mapped",
			zap.String("intent", ports.IntentArtifactContainsImage))
		return nil
	}

	edges, err := e.store.GetEdges(ctx, vertex.ID, e.artifactContainsImageIRI, auths)
	if err != nil {
		return fmt.Errorf("failed to load artifact edges: %w", err)
	}
	for _, edge := range edges {
		if !edge.InVertexID.Equals(vertex.ID) {
			continue
		}
		outVertex, err := e.store.GetElement(ctx, edge.OutVertexID, auths)
		if err != nil {
			if pkgerrors.IsNotFound(err) {
				continue
			}
			return fmt.Errorf("failed to load artifact vertex: %w", err)
		}
		for _, rowKeyProperty := range vertex.PropertiesNamed(entities.PropertyNameRowKey) {
			multiValueKey := fmt.Sprintf("%v", rowKeyProperty.Value)
			if err := e.store.RemoveProperty(ctx, outVertex.ID, multiValueKey, entities.PropertyNameDetectedObject, auths); err != nil {
				return fmt.Errorf("failed to remove detected object property: %w", err)
			}
			if err := e.store.SoftDeleteElement(ctx, edge.ID, auths); err != nil {
				return fmt.Errorf("failed to soft delete artifact edge: %w", err)
			}
			edgeEvent := events.NewEdgeDeleted(edge.ID, edge.OutVertexID, edge.InVertexID, edge.Label, timestamp, events.PriorityHigh)
			if err := e.queue.PushEdgeDeletion(ctx, edgeEvent); err != nil {
				return fmt.Errorf("failed to enqueue edge deletion: %w", err)
			}
			propertyEvent := events.NewPropertyChanged(
				outVertex.ID,
				string(entities.KindVertex),
				multiValueKey,
				entities.PropertyNameDetectedObject,
				workspaceID,
				visibilitySource,
				false,
				nil,
				priority,
				timestamp,
			)
			if err := e.queue.PushPropertyChange(ctx, propertyEvent); err != nil {
				return fmt.Errorf("failed to enqueue property change: %w", err)
			}
		}
	}
	return nil
}

// deleteWorkspaceMembershipEdges soft deletes the edges tying the vertex to
// its workspace. Membership edges carry the workspace system visibility, so
// the caller's authorizations are widened before the lookup.
func (e *Engine) deleteWorkspaceMembershipEdges(ctx context.Context, vertex *entities.Element, workspaceID string, auths auth.Authorizations) error {
	if workspaceID == "" {
		return nil
	}
	e.logger.Debug("soft delete workspace membership edges",
		zap.String("vertex_id", vertex.ID.String()),
		zap.String("workspace_id", workspaceID))

	systemAuths := e.workspaces.SystemAuthorizations(auths).With(workspaceID)
	workspaceVertexID, err := valueobjects.NewElementIDFromString(workspaceID)
	if err != nil {
		return fmt.Errorf("failed to resolve workspace vertex id: %w", err)
	}
	edges, err := e.store.GetEdgesBetween(ctx, workspaceVertexID, vertex.ID, "", systemAuths)
	if err != nil {
		return fmt.Errorf("failed to load workspace membership edges: %w", err)
	}
	for _, edge := range edges {
		if err := e.store.SoftDeleteElement(ctx, edge.ID, systemAuths); err != nil {
			return fmt.Errorf("failed to soft delete membership edge: %w", err)
		}
	}
	return nil
}

// unresolveTermMentionsForProperty unresolves every mention that was derived
// from the given property slot
func (e *Engine) unresolveTermMentionsForProperty(ctx context.Context, vertex *entities.Element, property entities.Property, auths auth.Authorizations) error {
	mentions, err := e.termMentions.FindResolvedTo(ctx, vertex.ID)
	if err != nil {
		return fmt.Errorf("failed to find resolved term mentions: %w", err)
	}
	for _, mention := range mentions {
		if mention.RefersToProperty(property) {
			if err := e.UnresolveTerm(ctx, mention, auths); err != nil {
				return err
			}
		}
	}
	return nil
}
