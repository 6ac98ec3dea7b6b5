package plan

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory EntitlementStore for tests and local
// development.
type MemoryStore struct {
	mu           sync.RWMutex
	entitlements map[uuid.UUID]Entitlement
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entitlements: make(map[uuid.UUID]Entitlement)}
}

func (s *MemoryStore) Get(ctx context.Context, userID uuid.UUID) (*Entitlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entitlements[userID]
	if !ok {
		return nil, ErrEntitlementNotFound
	}
	return &e, nil
}

func (s *MemoryStore) Set(ctx context.Context, userID uuid.UUID, planID string, expiresAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entitlements[userID] = Entitlement{
		UserID:    userID,
		PlanID:    planID,
		ExpiresAt: expiresAt,
		UpdatedAt: time.Now().UTC(),
	}
	return nil
}
