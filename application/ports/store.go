package ports

import (
	"context"

	"sandgraph/domain/core/entities"
	"sandgraph/domain/core/valueobjects"
	"sandgraph/pkg/auth"
)

// ElementStore is the persistence boundary for graph elements. Reads are
// scoped by the caller's authorizations: an element or property whose
// visibility the caller cannot see behaves as if it does not exist.
//
// Writes are buffered until Flush. The cascade engine relies on flush
// ordering to make sure deletions are durable before the matching change
// events are enqueued.
type ElementStore interface {
	// GetElement returns the element if it exists, is not tombstoned, and is
	// visible under auths. Returns a NOT_FOUND error otherwise.
	GetElement(ctx context.Context, id valueobjects.ElementID, auths auth.Authorizations) (*entities.Element, error)

	// GetEdges returns the non-tombstoned edges touching vertexID, optionally
	// filtered by label (empty label matches all).
	GetEdges(ctx context.Context, vertexID valueobjects.ElementID, label string, auths auth.Authorizations) ([]*entities.Element, error)

	// GetEdgesBetween returns the non-tombstoned edges connecting the two
	// vertices in either direction, optionally filtered by label.
	GetEdgesBetween(ctx context.Context, vertexID, otherVertexID valueobjects.ElementID, label string, auths auth.Authorizations) ([]*entities.Element, error)

	// SoftDeleteElement tombstones an element. The record survives for
	// provenance but no read returns it afterwards.
	SoftDeleteElement(ctx context.Context, id valueobjects.ElementID, auths auth.Authorizations) error

	// MarkElementHidden hides an element from readers holding the given
	// visibility. Reversible, unlike a soft delete.
	MarkElementHidden(ctx context.Context, id valueobjects.ElementID, visibility valueobjects.Visibility, auths auth.Authorizations) error

	// SoftDeleteProperty tombstones the property in the (key, name,
	// visibility) slot. Missing properties are not an error: a concurrent
	// cascade may have cleaned the slot already.
	SoftDeleteProperty(ctx context.Context, elementID valueobjects.ElementID, key, name string, visibility valueobjects.Visibility, auths auth.Authorizations) error

	// MarkPropertyHidden hides the property from readers holding
	// hiddenVisibility. Missing properties are not an error.
	MarkPropertyHidden(ctx context.Context, elementID valueobjects.ElementID, key, name string, visibility valueobjects.Visibility, hiddenVisibility valueobjects.Visibility, auths auth.Authorizations) error

	// RemoveProperty removes every property in the (key, name) slot whatever
	// its visibility, used for detected-object overlays which are keyed by
	// row key. Missing properties are not an error.
	RemoveProperty(ctx context.Context, elementID valueobjects.ElementID, key, name string, auths auth.Authorizations) error

	// UpdateVisibility replaces the element's visibility record, used to
	// strip workspace markers before a sandboxed vertex is tombstoned.
	UpdateVisibility(ctx context.Context, id valueobjects.ElementID, record valueobjects.VisibilityRecord, auths auth.Authorizations) error

	// Flush makes all buffered writes durable.
	Flush(ctx context.Context) error
}
