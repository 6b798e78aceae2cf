package database

import (
	"context"
	"fmt"

	"energy-trading-bot/internal/allocation"
)

// PoolRepository reads and seeds the yield pool catalog.
type PoolRepository struct {
	db *DB
}

// NewPoolRepository creates a pool repository.
func NewPoolRepository(db *DB) *PoolRepository {
	return &PoolRepository{db: db}
}

// List returns all pools ordered by id.
func (r *PoolRepository) List(ctx context.Context) ([]allocation.Pool, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, name, apy_pct, lock_period_days, min_stake FROM pools ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query pools: %w", err)
	}
	defer rows.Close()

	var pools []allocation.Pool
	for rows.Next() {
		var p allocation.Pool
		if err := rows.Scan(&p.ID, &p.Name, &p.APYPct, &p.LockPeriodDays, &p.MinStake); err != nil {
			return nil, fmt.Errorf("scan pool: %w", err)
		}
		pools = append(pools, p)
	}
	return pools, rows.Err()
}

// Seed inserts pools that do not exist yet. Existing rows are left
// untouched so operator edits survive restarts.
func (r *PoolRepository) Seed(ctx context.Context, pools []allocation.Pool) error {
	for _, p := range pools {
		_, err := r.db.Pool.Exec(ctx,
			`INSERT INTO pools (id, name, apy_pct, lock_period_days, min_stake)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (id) DO NOTHING`,
			p.ID, p.Name, p.APYPct, p.LockPeriodDays, p.MinStake)
		if err != nil {
			return fmt.Errorf("seed pool %s: %w", p.ID, err)
		}
	}
	return nil
}

// AllocationRepository persists per-user pool allocations.
type AllocationRepository struct {
	db *DB
}

// NewAllocationRepository creates an allocation repository.
func NewAllocationRepository(db *DB) *AllocationRepository {
	return &AllocationRepository{db: db}
}

// Current returns the user's allocation per pool id.
func (r *AllocationRepository) Current(ctx context.Context, userID string) (map[string]float64, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT pool_id, amount FROM pool_allocations WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("query allocations: %w", err)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var poolID string
		var amount float64
		if err := rows.Scan(&poolID, &amount); err != nil {
			return nil, fmt.Errorf("scan allocation: %w", err)
		}
		out[poolID] = amount
	}
	return out, rows.Err()
}

// Save upserts the user's allocation for every listed pool.
func (r *AllocationRepository) Save(ctx context.Context, userID string, allocations map[string]float64) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for poolID, amount := range allocations {
		_, err := tx.Exec(ctx,
			`INSERT INTO pool_allocations (user_id, pool_id, amount, updated_at)
			 VALUES ($1, $2, $3, NOW())
			 ON CONFLICT (user_id, pool_id) DO UPDATE SET amount = $3, updated_at = NOW()`,
			userID, poolID, amount)
		if err != nil {
			return fmt.Errorf("upsert allocation %s: %w", poolID, err)
		}
	}
	return tx.Commit(ctx)
}
