package events

import (
	"time"

	"sandgraph/domain/core/valueobjects"
)

// Priority orders change events for downstream consumers. Structural
// deletions go out HIGH so indexers drop stale references before they
// re-render dependent views.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// ChangeEvent is the base interface for all change-notification events
type ChangeEvent interface {
	GetElementID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetPriority() Priority
}

// BaseEvent provides common event fields
type BaseEvent struct {
	ElementID string    `json:"element_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	Priority  Priority  `json:"priority"`
}

func (e BaseEvent) GetElementID() string    { return e.ElementID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetPriority() Priority   { return e.Priority }

// PropertyChanged is emitted once per property mutation. IsElementDeleted
// and BeforeDeleteTimestamp let consumers distinguish "property removed
// while the element survives" from "property removed as part of a
// whole-element deletion", which matters for re-indexing order.
type PropertyChanged struct {
	BaseEvent
	ElementKind           string     `json:"element_kind"`
	PropertyKey           string     `json:"property_key"`
	PropertyName          string     `json:"property_name"`
	WorkspaceID           string     `json:"workspace_id,omitempty"`
	VisibilitySource      string     `json:"visibility_source,omitempty"`
	IsElementDeleted      bool       `json:"is_element_deleted"`
	BeforeDeleteTimestamp *time.Time `json:"before_delete_timestamp,omitempty"`
}

// NewPropertyChanged creates a PropertyChanged event
func NewPropertyChanged(
	elementID valueobjects.ElementID,
	elementKind string,
	propertyKey, propertyName string,
	workspaceID, visibilitySource string,
	isElementDeleted bool,
	beforeDeleteTimestamp *time.Time,
	priority Priority,
	timestamp time.Time,
) PropertyChanged {
	return PropertyChanged{
		BaseEvent: BaseEvent{
			ElementID: elementID.String(),
			EventType: "property.changed",
			Timestamp: timestamp,
			Priority:  priority,
		},
		ElementKind:           elementKind,
		PropertyKey:           propertyKey,
		PropertyName:          propertyName,
		WorkspaceID:           workspaceID,
		VisibilitySource:      visibilitySource,
		IsElementDeleted:      isElementDeleted,
		BeforeDeleteTimestamp: beforeDeleteTimestamp,
	}
}

// VertexDeleted is emitted after a vertex is hidden or tombstoned
type VertexDeleted struct {
	BaseEvent
	VertexID string `json:"vertex_id"`
}

// NewVertexDeleted creates a VertexDeleted event
func NewVertexDeleted(vertexID valueobjects.ElementID, timestamp time.Time, priority Priority) VertexDeleted {
	return VertexDeleted{
		BaseEvent: BaseEvent{
			ElementID: vertexID.String(),
			EventType: "vertex.deleted",
			Timestamp: timestamp,
			Priority:  priority,
		},
		VertexID: vertexID.String(),
	}
}

// EdgeDeleted is emitted after an edge is hidden or tombstoned
type EdgeDeleted struct {
	BaseEvent
	EdgeID      string `json:"edge_id"`
	OutVertexID string `json:"out_vertex_id"`
	InVertexID  string `json:"in_vertex_id"`
	Label       string `json:"label"`
}

// NewEdgeDeleted creates an EdgeDeleted event
func NewEdgeDeleted(edgeID, outVertexID, inVertexID valueobjects.ElementID, label string, timestamp time.Time, priority Priority) EdgeDeleted {
	return EdgeDeleted{
		BaseEvent: BaseEvent{
			ElementID: edgeID.String(),
			EventType: "edge.deleted",
			Timestamp: timestamp,
			Priority:  priority,
		},
		EdgeID:      edgeID.String(),
		OutVertexID: outVertexID.String(),
		InVertexID:  inVertexID.String(),
		Label:       label,
	}
}

// TextUpdated tells consumers to re-run highlighting on a vertex's text
// after a term mention was resolved or unresolved
type TextUpdated struct {
	BaseEvent
	VertexID string `json:"vertex_id"`
}

// NewTextUpdated creates a TextUpdated event
func NewTextUpdated(vertexID valueobjects.ElementID, timestamp time.Time) TextUpdated {
	return TextUpdated{
		BaseEvent: BaseEvent{
			ElementID: vertexID.String(),
			EventType: "text.updated",
			Timestamp: timestamp,
			Priority:  PriorityNormal,
		},
		VertexID: vertexID.String(),
	}
}

// ImageChanged is emitted when an entity's image reference property is
// hidden or removed
type ImageChanged struct {
	BaseEvent
	PropertyKey  string `json:"property_key"`
	PropertyName string `json:"property_name"`
}

// NewImageChanged creates an ImageChanged event
func NewImageChanged(elementID valueobjects.ElementID, propertyKey, propertyName string, timestamp time.Time, priority Priority) ImageChanged {
	return ImageChanged{
		BaseEvent: BaseEvent{
			ElementID: elementID.String(),
			EventType: "image.changed",
			Timestamp: timestamp,
			Priority:  priority,
		},
		PropertyKey:  propertyKey,
		PropertyName: propertyName,
	}
}
