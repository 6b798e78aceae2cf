package allocation

import "context"

// Pool is a yield pool a user can stake into. Static configuration,
// supplied by a registry.
type Pool struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	APYPct         float64 `json:"apyPct"`
	LockPeriodDays int     `json:"lockPeriodDays"`
	MinStake       float64 `json:"minStake"`
}

// PoolRegistry lists the pools available for allocation.
type PoolRegistry interface {
	List(ctx context.Context) ([]Pool, error)
}

// AllocationStore reads and writes a user's current pool allocation.
type AllocationStore interface {
	Current(ctx context.Context, userID string) (map[string]float64, error)
	Save(ctx context.Context, userID string, allocations map[string]float64) error
}

// DefaultPools is the built-in yield pool catalog.
func DefaultPools() []Pool {
	return []Pool{
		{ID: "pool-solar-30", Name: "Solar Yield 30d", APYPct: 12.5, LockPeriodDays: 30, MinStake: 100},
		{ID: "pool-wind-14", Name: "Wind Yield 14d", APYPct: 9.8, LockPeriodDays: 14, MinStake: 100},
		{ID: "pool-flex-7", Name: "Flex Yield 7d", APYPct: 7.2, LockPeriodDays: 7, MinStake: 50},
		{ID: "pool-core-90", Name: "Core Yield 90d", APYPct: 15.0, LockPeriodDays: 90, MinStake: 500},
	}
}
