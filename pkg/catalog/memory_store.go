package catalog

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store implementation for tests and local
// development.
type MemoryStore struct {
	mu       sync.RWMutex
	features map[string]Feature
	version  uint64
}

// NewMemoryStore creates a memory-backed catalog seeded with the given
// features. Invalid seed features are rejected.
func NewMemoryStore(seed ...Feature) (*MemoryStore, error) {
	s := &MemoryStore{features: make(map[string]Feature, len(seed))}
	for i := range seed {
		f := seed[i]
		if err := f.Validate(); err != nil {
			return nil, err
		}
		if f.UpdatedAt.IsZero() {
			f.UpdatedAt = time.Now().UTC()
		}
		s.features[f.Key] = f
	}
	if len(seed) > 0 {
		s.version = 1
	}
	return s, nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) (*Feature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.features[key]
	if !ok {
		return nil, ErrFeatureNotFound
	}
	// Copy so callers cannot mutate stored state.
	return &f, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]Feature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Feature, 0, len(s.features))
	for _, f := range s.features {
		result = append(result, f)
	}
	slices.SortFunc(result, func(a, b Feature) int {
		return strings.Compare(a.Key, b.Key)
	})
	return result, nil
}

func (s *MemoryStore) Version(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return strconv.FormatUint(s.version, 10), nil
}

func (s *MemoryStore) Put(ctx context.Context, f *Feature) error {
	if err := f.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *f
	stored.UpdatedAt = time.Now().UTC()
	s.features[stored.Key] = stored
	s.version++
	return nil
}
