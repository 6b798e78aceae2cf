package market

import (
	"errors"
	"sync"
)

// ErrNoPriceHistory is returned when an asset has no recorded points.
// Callers fall back to the asset's base price rather than failing.
var ErrNoPriceHistory = errors.New("no price history for asset")

// HistoryStore keeps a bounded, append-only price series per asset.
type HistoryStore struct {
	mu       sync.RWMutex
	capacity int
	series   map[string][]PricePoint
}

// NewHistoryStore creates a store retaining up to capacity points per asset.
func NewHistoryStore(capacity int) *HistoryStore {
	if capacity <= 0 {
		capacity = 2016 // 7 days at 5-minute cadence
	}
	return &HistoryStore{
		capacity: capacity,
		series:   make(map[string][]PricePoint),
	}
}

// Append records a point for an asset, evicting the oldest at capacity.
func (hs *HistoryStore) Append(assetID string, p PricePoint) {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	points := append(hs.series[assetID], p)
	if len(points) > hs.capacity {
		points = points[len(points)-hs.capacity:]
	}
	hs.series[assetID] = points
}

// Latest returns the most recent point for an asset.
func (hs *HistoryStore) Latest(assetID string) (PricePoint, error) {
	hs.mu.RLock()
	defer hs.mu.RUnlock()

	points := hs.series[assetID]
	if len(points) == 0 {
		return PricePoint{}, ErrNoPriceHistory
	}
	return points[len(points)-1], nil
}

// Series returns a copy of the asset's full series, oldest first.
func (hs *HistoryStore) Series(assetID string) []PricePoint {
	hs.mu.RLock()
	defer hs.mu.RUnlock()

	points := hs.series[assetID]
	out := make([]PricePoint, len(points))
	copy(out, points)
	return out
}

// Prices returns just the price values of the asset's series, oldest first.
func (hs *HistoryStore) Prices(assetID string) []float64 {
	hs.mu.RLock()
	defer hs.mu.RUnlock()

	points := hs.series[assetID]
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Price
	}
	return out
}

// Len returns the number of retained points for an asset.
func (hs *HistoryStore) Len(assetID string) int {
	hs.mu.RLock()
	defer hs.mu.RUnlock()
	return len(hs.series[assetID])
}
