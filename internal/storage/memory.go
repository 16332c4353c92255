package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bilancio/internal/core"
)

// MemoryStore keeps periods in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	order []string
	items map[string]core.Period
}

var _ PeriodStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: map[string]core.Period{}}
}

// Upsert stores a copy of the period, replacing any previous one.
func (s *MemoryStore) Upsert(_ context.Context, p core.Period) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[p.ID]; !ok {
		s.order = append(s.order, p.ID)
	}
	stored := p.Clone()
	stored.UpdatedAt = time.Now()
	s.items[p.ID] = stored
	return nil
}

// ListPeriodIDs returns ids in first-save order.
func (s *MemoryStore) ListPeriodIDs(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...), nil
}

// Get returns a copy of the stored period.
func (s *MemoryStore) Get(_ context.Context, periodID string) (core.Period, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[periodID]
	if !ok {
		return core.Period{}, fmt.Errorf("get period %s: %w", periodID, core.ErrNotFound)
	}
	return p.Clone(), nil
}

func (s *MemoryStore) Close() error { return nil }
