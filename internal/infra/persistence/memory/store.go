// Package memory provides an in-memory implementation of the persistence
// store used for tests and ephemeral environments.
package memory

import (
	"context"
	"sort"
	"sync"

	"pathodex/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

// Store keeps the catalog snapshot and export history in process memory.
type Store struct {
	mu       sync.RWMutex
	diseases []domain.Disease
	exports  map[string]domain.ExportRecord
}

// NewStore constructs an empty in-memory store.
func NewStore() *Store {
	return &Store{exports: make(map[string]domain.ExportRecord)}
}

// SaveCatalog replaces the persisted catalog snapshot.
func (s *Store) SaveCatalog(_ context.Context, diseases []domain.Disease) error {
	clone := domain.Catalog(diseases).Clone()
	s.mu.Lock()
	s.diseases = clone
	s.mu.Unlock()
	return nil
}

// LoadCatalog returns the persisted catalog snapshot.
func (s *Store) LoadCatalog(context.Context) ([]domain.Disease, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.Catalog(s.diseases).Clone(), nil
}

// RecordExport upserts an export record keyed by ID.
func (s *Store) RecordExport(_ context.Context, record domain.ExportRecord) error {
	s.mu.Lock()
	s.exports[record.ID] = record.Clone()
	s.mu.Unlock()
	return nil
}

// ListExports returns export records ordered by creation time, then ID for
// deterministic output.
func (s *Store) ListExports(context.Context) ([]domain.ExportRecord, error) {
	s.mu.RLock()
	out := make([]domain.ExportRecord, 0, len(s.exports))
	for _, rec := range s.exports {
		out = append(out, rec.Clone())
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }

// ExportState captures a snapshot clone of the full store state.
func (s *Store) ExportState() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := domain.Snapshot{Diseases: s.diseases}
	for _, rec := range s.exports {
		snapshot.Exports = append(snapshot.Exports, rec)
	}
	cloned := snapshot.Clone()
	sort.Slice(cloned.Exports, func(i, j int) bool {
		if cloned.Exports[i].CreatedAt.Equal(cloned.Exports[j].CreatedAt) {
			return cloned.Exports[i].ID < cloned.Exports[j].ID
		}
		return cloned.Exports[i].CreatedAt.Before(cloned.Exports[j].CreatedAt)
	})
	return cloned
}

// ImportState replaces the store state from a snapshot.
func (s *Store) ImportState(snapshot domain.Snapshot) {
	clone := snapshot.Clone()
	s.mu.Lock()
	s.diseases = clone.Diseases
	s.exports = make(map[string]domain.ExportRecord, len(clone.Exports))
	for _, rec := range clone.Exports {
		s.exports[rec.ID] = rec
	}
	s.mu.Unlock()
}
