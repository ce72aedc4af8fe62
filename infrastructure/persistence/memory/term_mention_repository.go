package memory

import (
	"context"
	"sync"

	"sandgraph/domain/core/entities"
	"sandgraph/domain/core/valueobjects"
)

// TermMentionRepository is an in-memory TermMentionRepository
type TermMentionRepository struct {
	mu       sync.RWMutex
	mentions map[string]*entities.TermMention
}

// NewTermMentionRepository creates an empty in-memory mention repository
func NewTermMentionRepository() *TermMentionRepository {
	return &TermMentionRepository{mentions: make(map[string]*entities.TermMention)}
}

// FindByOutVertex implements ports.TermMentionRepository
func (r *TermMentionRepository) FindByOutVertex(ctx context.Context, vertexID valueobjects.ElementID) ([]*entities.TermMention, error) {
	return r.filter(func(m *entities.TermMention) bool {
		return m.OutVertexID.Equals(vertexID)
	}), nil
}

// FindResolvedTo implements ports.TermMentionRepository
func (r *TermMentionRepository) FindResolvedTo(ctx context.Context, vertexID valueobjects.ElementID) ([]*entities.TermMention, error) {
	return r.filter(func(m *entities.TermMention) bool {
		return m.ResolvedToID.Equals(vertexID)
	}), nil
}

// FindByEdgeID implements ports.TermMentionRepository
func (r *TermMentionRepository) FindByEdgeID(ctx context.Context, outVertexID, edgeID valueobjects.ElementID) ([]*entities.TermMention, error) {
	return r.filter(func(m *entities.TermMention) bool {
		return m.OutVertexID.Equals(outVertexID) && m.ResolveEdgeID.Equals(edgeID)
	}), nil
}

func (r *TermMentionRepository) filter(match func(*entities.TermMention) bool) []*entities.TermMention {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*entities.TermMention
	for _, m := range r.mentions {
		if m.Tombstoned || !match(m) {
			continue
		}
		clone := *m
		out = append(out, &clone)
	}
	return out
}

// Save implements ports.TermMentionRepository
func (r *TermMentionRepository) Save(ctx context.Context, mention *entities.TermMention) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *mention
	r.mentions[mention.ID.String()] = &clone
	return nil
}

// Delete implements ports.TermMentionRepository
func (r *TermMentionRepository) Delete(ctx context.Context, mention *entities.TermMention) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.mentions[mention.ID.String()]; ok {
		m.Tombstoned = true
	}
	return nil
}

// MarkHidden implements ports.TermMentionRepository
func (r *TermMentionRepository) MarkHidden(ctx context.Context, mention *entities.TermMention, visibility valueobjects.Visibility) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.mentions[mention.ID.String()]; ok {
		m.HiddenVisibility = append(m.HiddenVisibility, visibility.String())
	}
	return nil
}

// Mention returns the raw stored mention, ignoring tombstones. Test helper.
func (r *TermMentionRepository) Mention(id valueobjects.ElementID) *entities.TermMention {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.mentions[id.String()]
	if !ok {
		return nil
	}
	clone := *m
	return &clone
}
