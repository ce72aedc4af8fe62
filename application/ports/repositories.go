package ports

import (
	"context"

	"sandgraph/domain/core/entities"
	"sandgraph/domain/core/valueobjects"
	"sandgraph/pkg/auth"
)

// TermMentionRepository stores the links between spans of source text and
// the entities they resolve to.
type TermMentionRepository interface {
	// FindByOutVertex returns the live mentions anchored on the given source
	// vertex.
	FindByOutVertex(ctx context.Context, vertexID valueobjects.ElementID) ([]*entities.TermMention, error)

	// FindResolvedTo returns the live mentions resolving to the given entity
	// vertex.
	FindResolvedTo(ctx context.Context, vertexID valueobjects.ElementID) ([]*entities.TermMention, error)

	// FindByEdgeID returns the live mentions on outVertexID whose resolve
	// edge is edgeID.
	FindByEdgeID(ctx context.Context, outVertexID, edgeID valueobjects.ElementID) ([]*entities.TermMention, error)

	// Save persists a mention.
	Save(ctx context.Context, mention *entities.TermMention) error

	// Delete tombstones a mention.
	Delete(ctx context.Context, mention *entities.TermMention) error

	// MarkHidden hides a mention from readers holding the given visibility.
	MarkHidden(ctx context.Context, mention *entities.TermMention, visibility valueobjects.Visibility) error
}

// WorkspaceSystemVisibility is the visibility string on workspace
// infrastructure records such as membership edges. Ordinary user
// authorizations do not carry it.
const WorkspaceSystemVisibility = "workspace"

// WorkspaceRepository tracks which entities each workspace has touched and
// supplies the elevated authorizations cascade steps need to reach
// workspace-internal records.
type WorkspaceRepository interface {
	// UpdateEntityOnWorkspace registers a vertex on the workspace so the
	// workspace diff surfaces the change.
	UpdateEntityOnWorkspace(ctx context.Context, workspaceID string, vertexID valueobjects.ElementID) error

	// SystemAuthorizations widens the caller's authorizations with the
	// workspace system visibility, enough to see membership edges.
	SystemAuthorizations(auths auth.Authorizations) auth.Authorizations

	// AddOrUpdateProduct upserts a work product on the workspace. An empty
	// product id creates a new product; otherwise the named product is
	// updated in place, keeping its creation time. Empty title or kind and
	// nil params leave the stored values untouched.
	AddOrUpdateProduct(ctx context.Context, workspaceID, productID, title, kind string, params map[string]interface{}) (*entities.WorkProduct, error)
}

// OntologyReader resolves ontology intents to concrete relationship IRIs.
// A deployment may leave an intent unmapped; callers skip the dependent
// cascade step in that case.
type OntologyReader interface {
	RelationshipIRIByIntent(ctx context.Context, intent string) (string, bool)
}

// Ontology intents the cascade engine resolves at construction.
const (
	IntentEntityHasImage        = "entityHasImage"
	IntentArtifactContainsImage = "artifactContainsImageOfEntity"
)
