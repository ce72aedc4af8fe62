package entities

import "sandgraph/domain/core/valueobjects"

// TermMention links a span of text on a source vertex to the graph entity
// it was resolved to. It remembers the property it was derived from so that
// deleting that property can unresolve exactly the mentions it produced.
type TermMention struct {
	ID               valueobjects.ElementID
	OutVertexID      valueobjects.ElementID // vertex carrying the source text
	ResolvedToID     valueobjects.ElementID // entity the span resolves to
	ResolveEdgeID    valueobjects.ElementID // edge representing the resolution, optional
	Title            string
	SpanStart        int
	SpanEnd          int
	RefPropertyKey   string
	RefPropertyName  string
	RefPropertyVis   valueobjects.Visibility
	Visibility       valueobjects.Visibility
	Tombstoned       bool
	HiddenVisibility []string
}

// RefersToProperty reports whether the mention was derived from the given
// property slot
func (t *TermMention) RefersToProperty(p Property) bool {
	return p.SameSlot(t.RefPropertyKey, t.RefPropertyName, t.RefPropertyVis)
}

// HasResolveEdge reports whether the mention carries a resolution edge
func (t *TermMention) HasResolveEdge() bool {
	return !t.ResolveEdgeID.IsZero()
}
