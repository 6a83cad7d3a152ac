package warning

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps warning state for the life of the process.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[uuid.UUID]Entry)}
}

func (s *MemoryStore) Load(_ context.Context, groupID uuid.UUID) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[groupID]

	return e, ok, nil
}

func (s *MemoryStore) Save(_ context.Context, groupID uuid.UUID, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[groupID] = e

	return nil
}
