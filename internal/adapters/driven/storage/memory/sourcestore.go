package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/custodia-labs/cardsync/internal/core/domain"
	"github.com/custodia-labs/cardsync/internal/core/ports/driven"
)

// Ensure SourceStore implements the interface.
var _ driven.SourceStore = (*SourceStore)(nil)

// SourceStore is an in-memory implementation of driven.SourceStore.
// Sources keep the order they were added in until moved.
type SourceStore struct {
	mu      sync.RWMutex
	sources []domain.Source
}

// NewSourceStore creates a new in-memory source store.
func NewSourceStore() *SourceStore {
	return &SourceStore{}
}

func (s *SourceStore) indexOf(id string) int {
	return slices.IndexFunc(s.sources, func(src domain.Source) bool { return src.ID == id })
}

// Save stores or updates a source.
func (s *SourceStore) Save(_ context.Context, source domain.Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(source.ID); i >= 0 {
		s.sources[i] = source
		return nil
	}
	s.sources = append(s.sources, source)
	return nil
}

// Get retrieves a source by ID.
func (s *SourceStore) Get(_ context.Context, id string) (*domain.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return nil, domain.ErrNotFound
	}
	source := s.sources[i]
	return &source, nil
}

// Delete removes a source.
func (s *SourceStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		s.sources = slices.Delete(s.sources, i, i+1)
	}
	return nil
}

// List returns all configured sources in order.
func (s *SourceStore) List(_ context.Context) ([]domain.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.sources), nil
}

// Move places a source at position. Out of range positions are clamped.
func (s *SourceStore) Move(_ context.Context, id string, position int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return domain.ErrNotFound
	}
	source := s.sources[i]
	s.sources = slices.Delete(s.sources, i, i+1)
	position = max(0, min(position, len(s.sources)))
	s.sources = slices.Insert(s.sources, position, source)
	return nil
}
