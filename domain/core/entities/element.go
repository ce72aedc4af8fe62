package entities

import (
	"time"

	"sandgraph/domain/core/valueobjects"
)

// ElementKind is the closed set of graph element kinds. Cascade behavior
// dispatches on this tag rather than on runtime types.
type ElementKind string

const (
	KindVertex ElementKind = "vertex"
	KindEdge   ElementKind = "edge"
)

// Property is a named, keyed value attached to an element. Multiple
// properties may share a name and differ by key (multi-valued attributes
// such as detected objects).
type Property struct {
	Key        string
	Name       string
	Value      interface{}
	Visibility valueobjects.Visibility
}

// SameSlot reports whether two properties occupy the same (key, name,
// visibility) slot. Term-mention back references match on this triple.
func (p Property) SameSlot(key, name string, visibility valueobjects.Visibility) bool {
	return p.Key == key && p.Name == name && p.Visibility.Equals(visibility)
}

// Element is a vertex or edge in the shared graph. Edges additionally carry
// typed endpoints and a relationship label; those fields are zero for
// vertices.
type Element struct {
	ID         valueobjects.ElementID
	Kind       ElementKind
	Properties []Property
	Visibility valueobjects.VisibilityRecord

	// Edge-only fields
	OutVertexID valueobjects.ElementID
	InVertexID  valueobjects.ElementID
	Label       string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewVertex creates a vertex element
func NewVertex(id valueobjects.ElementID, visibility valueobjects.VisibilityRecord) *Element {
	now := time.Now()
	return &Element{
		ID:         id,
		Kind:       KindVertex,
		Visibility: visibility,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// NewEdge creates an edge element between two vertices
func NewEdge(id, outVertexID, inVertexID valueobjects.ElementID, label string, visibility valueobjects.VisibilityRecord) *Element {
	now := time.Now()
	return &Element{
		ID:          id,
		Kind:        KindEdge,
		Visibility:  visibility,
		OutVertexID: outVertexID,
		InVertexID:  inVertexID,
		Label:       label,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsVertex reports whether the element is a vertex
func (e *Element) IsVertex() bool {
	return e.Kind == KindVertex
}

// Property returns the first property with the given name, or nil
func (e *Element) Property(name string) *Property {
	for i := range e.Properties {
		if e.Properties[i].Name == name {
			return &e.Properties[i]
		}
	}
	return nil
}

// PropertiesNamed returns every property with the given name
func (e *Element) PropertiesNamed(name string) []Property {
	var out []Property
	for _, p := range e.Properties {
		if p.Name == name {
			out = append(out, p)
		}
	}
	return out
}

// PropertyByKey returns the property with the given key and name, or nil
func (e *Element) PropertyByKey(key, name string) *Property {
	for i := range e.Properties {
		if e.Properties[i].Key == key && e.Properties[i].Name == name {
			return &e.Properties[i]
		}
	}
	return nil
}

// SetProperty adds or replaces the property occupying the (key, name) slot
func (e *Element) SetProperty(prop Property) {
	for i := range e.Properties {
		if e.Properties[i].Key == prop.Key && e.Properties[i].Name == prop.Name {
			e.Properties[i] = prop
			e.UpdatedAt = time.Now()
			return
		}
	}
	e.Properties = append(e.Properties, prop)
	e.UpdatedAt = time.Now()
}
