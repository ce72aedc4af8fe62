package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"sandgraph/application/ports"
	pkgerrors "sandgraph/pkg/errors"
)

// ChangeEventStore is an in-memory outbox
type ChangeEventStore struct {
	mu      sync.RWMutex
	records map[string]*ports.EventRecord
}

// NewChangeEventStore creates an empty in-memory outbox
func NewChangeEventStore() *ChangeEventStore {
	return &ChangeEventStore{records: make(map[string]*ports.EventRecord)}
}

// SaveEvent implements ports.ChangeEventStore
func (s *ChangeEventStore) SaveEvent(ctx context.Context, record *ports.EventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *record
	s.records[record.EventID] = &clone
	return nil
}

// GetPendingEvents implements ports.ChangeEventStore, oldest first
func (s *ChangeEventStore) GetPendingEvents(ctx context.Context, limit int) ([]*ports.EventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var pending []*ports.EventRecord
	for _, rec := range s.records {
		if rec.Status == ports.EventStatusPending {
			clone := *rec
			pending = append(pending, &clone)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	if len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

// MarkPublished implements ports.ChangeEventStore
func (s *ChangeEventStore) MarkPublished(ctx context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[eventID]
	if !ok {
		return pkgerrors.NewNotFoundError("event " + eventID)
	}
	now := time.Now()
	rec.Status = ports.EventStatusPublished
	rec.PublishedAt = &now
	return nil
}

// RecordRetry implements ports.ChangeEventStore
func (s *ChangeEventStore) RecordRetry(ctx context.Context, eventID string, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[eventID]
	if !ok {
		return pkgerrors.NewNotFoundError("event " + eventID)
	}
	rec.RetryCount++
	rec.LastError = reason
	return nil
}

// MarkFailed implements ports.ChangeEventStore
func (s *ChangeEventStore) MarkFailed(ctx context.Context, eventID string, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[eventID]
	if !ok {
		return pkgerrors.NewNotFoundError("event " + eventID)
	}
	rec.Status = ports.EventStatusFailed
	rec.RetryCount++
	rec.LastError = reason
	return nil
}

// Record returns a copy of the stored record, for assertions
func (s *ChangeEventStore) Record(eventID string) *ports.EventRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[eventID]
	if !ok {
		return nil
	}
	clone := *rec
	return &clone
}

// Records returns copies of every stored record
func (s *ChangeEventStore) Records() []*ports.EventRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*ports.EventRecord, 0, len(s.records))
	for _, rec := range s.records {
		clone := *rec
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
