// Package cache provides Redis-backed caching for computed analytics
// snapshots with graceful degradation. When Redis is unavailable the
// cache reports misses and callers recompute from engine state.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrCacheMiss is returned when a key is absent or Redis is degraded.
var ErrCacheMiss = errors.New("cache miss")

// Key patterns per snapshot type.
const (
	keyRisk       = "user:%s:risk"
	keyAllocation = "user:%s:allocation:%s"
	keyGrowth     = "user:%s:growth:%d"
)

// Snapshot TTLs. Risk changes with every tick so it expires fast;
// allocation and growth only depend on pool config and stakes.
const (
	RiskTTL       = 30 * time.Second
	AllocationTTL = 5 * time.Minute
	GrowthTTL     = 10 * time.Minute
)

// Config holds Redis connection settings.
type Config struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
	PoolSize int
}

// SnapshotCache caches serialized analytics snapshots. A failure
// streak marks the client unhealthy; health is re-probed on a timer.
type SnapshotCache struct {
	client *redis.Client
	logger zerolog.Logger

	mu           sync.Mutex
	healthy      bool
	failureCount int
	lastProbe    time.Time

	maxFailures   int
	probeInterval time.Duration
}

// New connects to Redis. A failed initial connection returns the
// cache in degraded mode rather than an error.
func New(cfg Config, logger zerolog.Logger) (*SnapshotCache, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("redis is not enabled in configuration")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	sc := &SnapshotCache{
		client:        client,
		logger:        logger.With().Str("component", "snapshot_cache").Logger(),
		maxFailures:   3,
		probeInterval: 30 * time.Second,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		sc.logger.Warn().Err(err).Msg("initial Redis connection failed, running degraded")
		return sc, nil
	}

	sc.healthy = true
	sc.lastProbe = time.Now()
	sc.logger.Info().Str("address", cfg.Address).Msg("Redis connected")
	return sc, nil
}

// IsHealthy reports whether Redis is currently usable.
func (sc *SnapshotCache) IsHealthy() bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.healthy
}

func (sc *SnapshotCache) recordFailure() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.failureCount++
	if sc.failureCount >= sc.maxFailures && sc.healthy {
		sc.healthy = false
		sc.logger.Warn().Int("failures", sc.failureCount).Msg("Redis marked unhealthy")
	}
}

func (sc *SnapshotCache) recordSuccess() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.failureCount = 0
	if !sc.healthy {
		sc.healthy = true
		sc.logger.Info().Msg("Redis recovered")
	}
}

// usable reports whether an operation should be attempted, probing
// for recovery when unhealthy and the probe interval has elapsed.
func (sc *SnapshotCache) usable() bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.healthy {
		return true
	}
	if time.Since(sc.lastProbe) >= sc.probeInterval {
		sc.lastProbe = time.Now()
		return true
	}
	return false
}

func (sc *SnapshotCache) get(ctx context.Context, key string, dest interface{}) error {
	if !sc.usable() {
		return ErrCacheMiss
	}

	data, err := sc.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		sc.recordSuccess()
		return ErrCacheMiss
	}
	if err != nil {
		sc.recordFailure()
		return ErrCacheMiss
	}
	sc.recordSuccess()

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("unmarshal cached %s: %w", key, err)
	}
	return nil
}

func (sc *SnapshotCache) set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if !sc.usable() {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		sc.logger.Error().Err(err).Str("key", key).Msg("marshal for cache failed")
		return
	}
	if err := sc.client.Set(ctx, key, data, ttl).Err(); err != nil {
		sc.recordFailure()
		return
	}
	sc.recordSuccess()
}

// GetRisk loads a cached risk snapshot into dest.
func (sc *SnapshotCache) GetRisk(ctx context.Context, userID string, dest interface{}) error {
	return sc.get(ctx, fmt.Sprintf(keyRisk, userID), dest)
}

// SetRisk caches a risk snapshot.
func (sc *SnapshotCache) SetRisk(ctx context.Context, userID string, value interface{}) {
	sc.set(ctx, fmt.Sprintf(keyRisk, userID), value, RiskTTL)
}

// GetAllocation loads a cached allocation recommendation for a style.
func (sc *SnapshotCache) GetAllocation(ctx context.Context, userID, style string, dest interface{}) error {
	return sc.get(ctx, fmt.Sprintf(keyAllocation, userID, style), dest)
}

// SetAllocation caches an allocation recommendation.
func (sc *SnapshotCache) SetAllocation(ctx context.Context, userID, style string, value interface{}) {
	sc.set(ctx, fmt.Sprintf(keyAllocation, userID, style), value, AllocationTTL)
}

// GetGrowth loads a cached growth projection for a month span.
func (sc *SnapshotCache) GetGrowth(ctx context.Context, userID string, months int, dest interface{}) error {
	return sc.get(ctx, fmt.Sprintf(keyGrowth, userID, months), dest)
}

// SetGrowth caches a growth projection.
func (sc *SnapshotCache) SetGrowth(ctx context.Context, userID string, months int, value interface{}) {
	sc.set(ctx, fmt.Sprintf(keyGrowth, userID, months), value, GrowthTTL)
}

// Invalidate drops every cached snapshot for a user. Called after
// stakes change so stale recommendations are not served.
func (sc *SnapshotCache) Invalidate(ctx context.Context, userID string) {
	if !sc.usable() {
		return
	}
	pattern := fmt.Sprintf("user:%s:*", userID)
	iter := sc.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		sc.recordFailure()
		return
	}
	if len(keys) > 0 {
		if err := sc.client.Del(ctx, keys...).Err(); err != nil {
			sc.recordFailure()
			return
		}
	}
	sc.recordSuccess()
}

// Close shuts down the Redis client.
func (sc *SnapshotCache) Close() error {
	return sc.client.Close()
}
