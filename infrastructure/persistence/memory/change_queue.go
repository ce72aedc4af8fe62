package memory

import (
	"context"
	"sync"

	"sandgraph/domain/events"
)

// ChangeQueue is an in-memory ChangeQueue capturing events in arrival order
type ChangeQueue struct {
	mu              sync.RWMutex
	propertyChanges []events.PropertyChanged
	vertexDeletions []events.VertexDeleted
	edgeDeletions   []events.EdgeDeleted
	textUpdates     []events.TextUpdated
	imageChanges    []events.ImageChanged
}

// NewChangeQueue creates an empty in-memory change queue
func NewChangeQueue() *ChangeQueue {
	return &ChangeQueue{}
}

// PushPropertyChange implements ports.ChangeQueue
func (q *ChangeQueue) PushPropertyChange(ctx context.Context, event events.PropertyChanged) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.propertyChanges = append(q.propertyChanges, event)
	return nil
}

// PushVertexDeletion implements ports.ChangeQueue
func (q *ChangeQueue) PushVertexDeletion(ctx context.Context, event events.VertexDeleted) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.vertexDeletions = append(q.vertexDeletions, event)
	return nil
}

// PushEdgeDeletion implements ports.ChangeQueue
func (q *ChangeQueue) PushEdgeDeletion(ctx context.Context, event events.EdgeDeleted) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.edgeDeletions = append(q.edgeDeletions, event)
	return nil
}

// PushTextUpdated implements ports.ChangeQueue
func (q *ChangeQueue) PushTextUpdated(ctx context.Context, event events.TextUpdated) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.textUpdates = append(q.textUpdates, event)
	return nil
}

// PushElementImage implements ports.ChangeQueue
func (q *ChangeQueue) PushElementImage(ctx context.Context, event events.ImageChanged) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.imageChanges = append(q.imageChanges, event)
	return nil
}

// PropertyChanges returns the captured property change events
func (q *ChangeQueue) PropertyChanges() []events.PropertyChanged {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make([]events.PropertyChanged, len(q.propertyChanges))
	copy(out, q.propertyChanges)
	return out
}

// VertexDeletions returns the captured vertex deletion events
func (q *ChangeQueue) VertexDeletions() []events.VertexDeleted {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make([]events.VertexDeleted, len(q.vertexDeletions))
	copy(out, q.vertexDeletions)
	return out
}

// EdgeDeletions returns the captured edge deletion events
func (q *ChangeQueue) EdgeDeletions() []events.EdgeDeleted {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make([]events.EdgeDeleted, len(q.edgeDeletions))
	copy(out, q.edgeDeletions)
	return out
}

// TextUpdates returns the captured text update events
func (q *ChangeQueue) TextUpdates() []events.TextUpdated {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make([]events.TextUpdated, len(q.textUpdates))
	copy(out, q.textUpdates)
	return out
}

// ImageChanges returns the captured image change events
func (q *ChangeQueue) ImageChanges() []events.ImageChanged {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make([]events.ImageChanged, len(q.imageChanges))
	copy(out, q.imageChanges)
	return out
}
