package usage

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

type counterKey struct {
	userID uuid.UUID
	day    Day
}

// MemoryStore is an in-memory Store for tests and local development. The
// mutex gives the same atomicity the (user, day) uniqueness constraint
// provides in Postgres.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[counterKey]int64
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counters: make(map[counterKey]int64)}
}

func (s *MemoryStore) Used(ctx context.Context, userID uuid.UUID, day Day) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[counterKey{userID: userID, day: day}], nil
}

func (s *MemoryStore) Increment(ctx context.Context, userID uuid.UUID, day Day, amount int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := counterKey{userID: userID, day: day}
	s.counters[key] += amount
	return s.counters[key], nil
}

func (s *MemoryStore) TryConsume(ctx context.Context, userID uuid.UUID, day Day, amount, limit int64) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := counterKey{userID: userID, day: day}
	used := s.counters[key]
	if used+amount > limit {
		return used, false, nil
	}
	s.counters[key] = used + amount
	return s.counters[key], true, nil
}

func (s *MemoryStore) ResetForDate(ctx context.Context, day Day) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.counters {
		if key.day == day {
			s.counters[key] = 0
		}
	}
	return nil
}

func (s *MemoryStore) ForDate(ctx context.Context, day Day, limit int) ([]Counter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Counter
	for key, used := range s.counters {
		if key.day == day {
			out = append(out, Counter{UserID: key.userID, Day: day, Used: used})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Used > out[j].Used })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Range(ctx context.Context, userID uuid.UUID, from, to Day) (map[Day]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[Day]int64)
	for key, used := range s.counters {
		if key.userID == userID && key.day >= from && key.day <= to {
			out[key.day] = used
		}
	}
	return out, nil
}
