// Package memory provides in-memory implementations of the persistence
// ports. Used by unit tests and local development.
package memory

import (
	"context"
	"sync"

	"sandgraph/domain/core/entities"
	"sandgraph/domain/core/valueobjects"
	"sandgraph/domain/sandbox"
	"sandgraph/pkg/auth"
	pkgerrors "sandgraph/pkg/errors"
)

type propertySlot struct {
	key  string
	name string
	vis  string
}

type elementRecord struct {
	element    entities.Element
	tombstoned bool
	hidden     []string                  // element-level hidden visibility strings
	propHidden map[propertySlot][]string // per-slot hidden visibility strings
}

// ElementStore is an in-memory ElementStore. Visibility scoping matches the
// production store: tombstoned elements are never returned, elements and
// properties are invisible to callers who hold one of their hidden
// visibilities, and workspace-scoped records require the matching
// authorization.
type ElementStore struct {
	mu       sync.RWMutex
	elements map[string]*elementRecord
	flushes  int
}

// NewElementStore creates an empty in-memory element store
func NewElementStore() *ElementStore {
	return &ElementStore{elements: make(map[string]*elementRecord)}
}

// Put stores an element, replacing any previous record. Test seeding helper.
func (s *ElementStore) Put(element *entities.Element) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elements[element.ID.String()] = &elementRecord{
		element:    cloneElement(element),
		propHidden: make(map[propertySlot][]string),
	}
}

func cloneElement(e *entities.Element) entities.Element {
	clone := *e
	clone.Properties = make([]entities.Property, len(e.Properties))
	copy(clone.Properties, e.Properties)
	return clone
}

// visibleCopy returns the element as the caller sees it, or nil
func (s *ElementStore) visibleCopy(rec *elementRecord, auths auth.Authorizations) *entities.Element {
	if rec == nil || rec.tombstoned {
		return nil
	}
	if !sandbox.SourceVisible(rec.element.Visibility.Source, auths) {
		return nil
	}
	if sandbox.HiddenFrom(rec.hidden, auths) {
		return nil
	}
	clone := cloneElement(&rec.element)
	visible := clone.Properties[:0]
	for _, p := range clone.Properties {
		slot := propertySlot{key: p.Key, name: p.Name, vis: p.Visibility.String()}
		if sandbox.PropertyVisible(p, rec.propHidden[slot], auths) {
			visible = append(visible, p)
		}
	}
	clone.Properties = visible
	return &clone
}

// GetElement implements ports.ElementStore
func (s *ElementStore) GetElement(ctx context.Context, id valueobjects.ElementID, auths auth.Authorizations) (*entities.Element, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	element := s.visibleCopy(s.elements[id.String()], auths)
	if element == nil {
		return nil, pkgerrors.NewNotFoundError("element " + id.String())
	}
	return element, nil
}

// GetEdges implements ports.ElementStore
func (s *ElementStore) GetEdges(ctx context.Context, vertexID valueobjects.ElementID, label string, auths auth.Authorizations) ([]*entities.Element, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*entities.Element
	for _, rec := range s.elements {
		if rec.element.Kind != entities.KindEdge {
			continue
		}
		if !rec.element.OutVertexID.Equals(vertexID) && !rec.element.InVertexID.Equals(vertexID) {
			continue
		}
		if label != "" && rec.element.Label != label {
			continue
		}
		if edge := s.visibleCopy(rec, auths); edge != nil {
			out = append(out, edge)
		}
	}
	return out, nil
}

// GetEdgesBetween implements ports.ElementStore
func (s *ElementStore) GetEdgesBetween(ctx context.Context, vertexID, otherVertexID valueobjects.ElementID, label string, auths auth.Authorizations) ([]*entities.Element, error) {
	edges, err := s.GetEdges(ctx, vertexID, label, auths)
	if err != nil {
		return nil, err
	}
	var out []*entities.Element
	for _, edge := range edges {
		if edge.OutVertexID.Equals(otherVertexID) || edge.InVertexID.Equals(otherVertexID) {
			out = append(out, edge)
		}
	}
	return out, nil
}

// SoftDeleteElement implements ports.ElementStore
func (s *ElementStore) SoftDeleteElement(ctx context.Context, id valueobjects.ElementID, auths auth.Authorizations) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.elements[id.String()]
	if !ok || rec.tombstoned {
		return pkgerrors.NewNotFoundError("element " + id.String())
	}
	rec.tombstoned = true
	return nil
}

// MarkElementHidden implements ports.ElementStore
func (s *ElementStore) MarkElementHidden(ctx context.Context, id valueobjects.ElementID, visibility valueobjects.Visibility, auths auth.Authorizations) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.elements[id.String()]
	if !ok || rec.tombstoned {
		return pkgerrors.NewNotFoundError("element " + id.String())
	}
	rec.hidden = append(rec.hidden, visibility.String())
	return nil
}

// SoftDeleteProperty implements ports.ElementStore
func (s *ElementStore) SoftDeleteProperty(ctx context.Context, elementID valueobjects.ElementID, key, name string, visibility valueobjects.Visibility, auths auth.Authorizations) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.elements[elementID.String()]
	if !ok {
		return pkgerrors.NewNotFoundError("element " + elementID.String())
	}
	kept := rec.element.Properties[:0]
	for _, p := range rec.element.Properties {
		if p.SameSlot(key, name, visibility) {
			continue
		}
		kept = append(kept, p)
	}
	rec.element.Properties = kept
	return nil
}

// MarkPropertyHidden implements ports.ElementStore
func (s *ElementStore) MarkPropertyHidden(ctx context.Context, elementID valueobjects.ElementID, key, name string, visibility valueobjects.Visibility, hiddenVisibility valueobjects.Visibility, auths auth.Authorizations) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.elements[elementID.String()]
	if !ok {
		return pkgerrors.NewNotFoundError("element " + elementID.String())
	}
	slot := propertySlot{key: key, name: name, vis: visibility.String()}
	rec.propHidden[slot] = append(rec.propHidden[slot], hiddenVisibility.String())
	return nil
}

// RemoveProperty implements ports.ElementStore
func (s *ElementStore) RemoveProperty(ctx context.Context, elementID valueobjects.ElementID, key, name string, auths auth.Authorizations) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.elements[elementID.String()]
	if !ok {
		return pkgerrors.NewNotFoundError("element " + elementID.String())
	}
	kept := rec.element.Properties[:0]
	for _, p := range rec.element.Properties {
		if p.Key == key && p.Name == name {
			continue
		}
		kept = append(kept, p)
	}
	rec.element.Properties = kept
	return nil
}

// UpdateVisibility implements ports.ElementStore
func (s *ElementStore) UpdateVisibility(ctx context.Context, id valueobjects.ElementID, record valueobjects.VisibilityRecord, auths auth.Authorizations) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.elements[id.String()]
	if !ok {
		return pkgerrors.NewNotFoundError("element " + id.String())
	}
	rec.element.Visibility = record
	return nil
}

// Flush implements ports.ElementStore
func (s *ElementStore) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
	return nil
}

// FlushCount returns how many times Flush has been called
func (s *ElementStore) FlushCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flushes
}

// Tombstoned reports whether the element is soft deleted
func (s *ElementStore) Tombstoned(id valueobjects.ElementID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.elements[id.String()]
	return ok && rec.tombstoned
}

// HiddenVisibilities returns the element-level hidden visibility strings
func (s *ElementStore) HiddenVisibilities(id valueobjects.ElementID) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.elements[id.String()]
	if !ok {
		return nil
	}
	out := make([]string, len(rec.hidden))
	copy(out, rec.hidden)
	return out
}

// PropertyHiddenVisibilities returns the hidden visibility strings for a
// property slot
func (s *ElementStore) PropertyHiddenVisibilities(id valueobjects.ElementID, key, name string, visibility valueobjects.Visibility) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.elements[id.String()]
	if !ok {
		return nil
	}
	slot := propertySlot{key: key, name: name, vis: visibility.String()}
	out := make([]string, len(rec.propHidden[slot]))
	copy(out, rec.propHidden[slot])
	return out
}

// HasProperty reports whether the raw record still carries a property in the
// (key, name) slot, ignoring visibility scoping
func (s *ElementStore) HasProperty(id valueobjects.ElementID, key, name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.elements[id.String()]
	if !ok {
		return false
	}
	for _, p := range rec.element.Properties {
		if p.Key == key && p.Name == name {
			return true
		}
	}
	return false
}
