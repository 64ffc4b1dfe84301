package metadata

import (
	"context"
	"sync"

	"hoopgraph-backend/internal/domain"
)

// MemoryStore keeps edge metadata in a map. It backs the "memory" provider
// and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[domain.PairKey]domain.EdgeMetadata
}

// NewMemoryStore creates a store seeded with records.
func NewMemoryStore(records []domain.PairRecord) *MemoryStore {
	s := &MemoryStore{records: make(map[domain.PairKey]domain.EdgeMetadata, len(records))}
	for _, r := range records {
		s.records[r.Key()] = r.Metadata()
	}
	return s
}

// Lookup implements Lookup.
func (s *MemoryStore) Lookup(ctx context.Context, key domain.PairKey) (domain.EdgeMetadata, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.EdgeMetadata{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.records[domain.NewPairKey(key.Low, key.High)]
	return m, ok, nil
}

// Import implements Importer.
func (s *MemoryStore) Import(_ context.Context, records []domain.PairRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		s.records[r.Key()] = r.Metadata()
	}
	return len(records), nil
}

// Len returns the number of stored pairs.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
