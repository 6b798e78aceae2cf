package market

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"energy-trading-bot/internal/clock"
)

// SyntheticFeed generates deterministic walk-around-base prices.
// Solar output follows daylight hours and wind follows a half-day
// cycle, so their prices are shaped by a time-of-day factor before
// the random walk noise is applied.
type SyntheticFeed struct {
	mu    sync.Mutex
	rng   *rand.Rand
	clk   clock.Clock
	last  map[string]float64
	drift float64 // max per-tick fractional move
}

// NewSyntheticFeed creates a feed seeded for reproducible runs.
// A zero seed falls back to the current time.
func NewSyntheticFeed(seed int64, clk clock.Clock) *SyntheticFeed {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &SyntheticFeed{
		rng:   rand.New(rand.NewSource(seed)),
		clk:   clk,
		last:  make(map[string]float64),
		drift: 0.02,
	}
}

// Fetch returns one new price point per asset. A cancelled context,
// such as a tick racing shutdown, reports the feed unavailable.
func (f *SyntheticFeed) Fetch(ctx context.Context, assets []Asset) (map[string]PricePoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.clk.Now()
	out := make(map[string]PricePoint, len(assets))
	for _, a := range assets {
		prev, ok := f.last[a.ID]
		if !ok {
			prev = a.BasePrice * timeOfDayFactor(a.Type, now)
		}

		step := 1 + (f.rng.Float64()*2-1)*f.drift
		price := prev * step

		// keep the walk tethered to the shaped base price
		anchor := a.BasePrice * timeOfDayFactor(a.Type, now)
		if price < anchor*0.5 {
			price = anchor * 0.5
		} else if price > anchor*2 {
			price = anchor * 2
		}

		f.last[a.ID] = price
		out[a.ID] = PricePoint{
			Timestamp: now,
			Price:     price,
			Volume:    500 + f.rng.Float64()*4500,
		}
	}
	return out, nil
}

// timeOfDayFactor shapes supply-driven prices by hour of day.
// More generation means cheaper energy, so solar dips at midday
// and wind oscillates on a 12-hour cycle.
func timeOfDayFactor(t SourceType, now time.Time) float64 {
	hour := float64(now.Hour()) + float64(now.Minute())/60

	switch t {
	case SourceSolar:
		if hour < 6 || hour > 18 {
			return 1.15 // no generation overnight
		}
		// peak generation near 12:00 pushes the price down
		return 1.15 - 0.3*math.Sin((hour-6)/12*math.Pi)
	case SourceWind:
		return 1 + 0.1*math.Sin(hour/12*2*math.Pi)
	default:
		return 1
	}
}
