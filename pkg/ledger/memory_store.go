package ledger

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store with process-local state. A single mutex gives
// the conditional increment its atomicity, which is enough for tests and
// single-instance development but not for horizontally scaled deployments.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[Key]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counters: make(map[Key]int)}
}

func (s *MemoryStore) Increment(ctx context.Context, key Key, limit int) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.counters[key]
	if limit <= 0 || current >= limit {
		return current, false, nil
	}

	current++
	s.counters[key] = current
	return current, true, nil
}

func (s *MemoryStore) Count(ctx context.Context, key Key) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[key], nil
}

func (s *MemoryStore) Sweep(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key := range s.counters {
		if key.PeriodStart.Before(cutoff) {
			delete(s.counters, key)
			removed++
		}
	}
	return removed, nil
}
