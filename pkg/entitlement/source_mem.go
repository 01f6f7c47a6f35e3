package entitlement

import (
	"context"
	"sync"
)

// inMemSource implements Source from an in-memory record map. Used by tests
// and by services that embed their catalog in code.
type inMemSource struct {
	mu      sync.RWMutex
	records map[Tier]Record
}

// NewInMemSource returns a Source backed by a deep copy of records.
func NewInMemSource(records map[Tier]Record) Source {
	copied := make(map[Tier]Record, len(records))
	for tier, rec := range records {
		copied[tier] = rec.clone()
	}
	return &inMemSource{records: copied}
}

func (s *inMemSource) Load(ctx context.Context) (map[Tier]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[Tier]Record, len(s.records))
	for tier, rec := range s.records {
		out[tier] = rec.clone()
	}
	return out, nil
}
