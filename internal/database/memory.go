package database

import (
	"context"
	"sync"

	"energy-trading-bot/internal/allocation"
)

// MemoryPoolRegistry serves a fixed pool catalog from memory. Used in
// dry-run deployments without PostgreSQL.
type MemoryPoolRegistry struct {
	pools []allocation.Pool
}

// NewMemoryPoolRegistry creates a registry over the given pools,
// defaulting to the built-in catalog.
func NewMemoryPoolRegistry(pools []allocation.Pool) *MemoryPoolRegistry {
	if len(pools) == 0 {
		pools = allocation.DefaultPools()
	}
	return &MemoryPoolRegistry{pools: pools}
}

// List returns the catalog.
func (r *MemoryPoolRegistry) List(context.Context) ([]allocation.Pool, error) {
	out := make([]allocation.Pool, len(r.pools))
	copy(out, r.pools)
	return out, nil
}

// MemoryAllocationStore keeps per-user allocations in memory.
type MemoryAllocationStore struct {
	mu          sync.RWMutex
	allocations map[string]map[string]float64
}

// NewMemoryAllocationStore creates an empty store.
func NewMemoryAllocationStore() *MemoryAllocationStore {
	return &MemoryAllocationStore{allocations: make(map[string]map[string]float64)}
}

// Current returns a copy of the user's allocation.
func (s *MemoryAllocationStore) Current(_ context.Context, userID string) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]float64)
	for poolID, amount := range s.allocations[userID] {
		out[poolID] = amount
	}
	return out, nil
}

// Save replaces the stored amounts for the listed pools.
func (s *MemoryAllocationStore) Save(_ context.Context, userID string, allocations map[string]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.allocations[userID] == nil {
		s.allocations[userID] = make(map[string]float64)
	}
	for poolID, amount := range allocations {
		s.allocations[userID][poolID] = amount
	}
	return nil
}
