package market

import (
	"errors"
	"testing"
	"time"
)

func point(price float64, offset int) PricePoint {
	return PricePoint{
		Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(offset) * 5 * time.Minute),
		Price:     price,
		Volume:    1000,
	}
}

// ============================================================
// Append / Latest
// ============================================================

func TestHistoryLatestEmpty(t *testing.T) {
	hs := NewHistoryStore(10)

	_, err := hs.Latest("F9-SOLAR-001")
	if !errors.Is(err, ErrNoPriceHistory) {
		t.Errorf("expected ErrNoPriceHistory, got %v", err)
	}
}

func TestHistoryAppendAndLatest(t *testing.T) {
	hs := NewHistoryStore(10)
	hs.Append("F9-SOLAR-001", point(1.00, 0))
	hs.Append("F9-SOLAR-001", point(1.05, 1))

	latest, err := hs.Latest("F9-SOLAR-001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest.Price != 1.05 {
		t.Errorf("expected latest price 1.05, got %f", latest.Price)
	}
	if hs.Len("F9-SOLAR-001") != 2 {
		t.Errorf("expected 2 points, got %d", hs.Len("F9-SOLAR-001"))
	}
}

func TestHistoryPerAssetIsolation(t *testing.T) {
	hs := NewHistoryStore(10)
	hs.Append("F9-SOLAR-001", point(1.00, 0))

	if hs.Len("F9-WIND-001") != 0 {
		t.Errorf("expected empty series for untouched asset, got %d", hs.Len("F9-WIND-001"))
	}
}

// ============================================================
// Bounded retention
// ============================================================

func TestHistoryEvictsOldestAtCapacity(t *testing.T) {
	hs := NewHistoryStore(3)
	for i := 0; i < 5; i++ {
		hs.Append("F9-WIND-001", point(float64(i), i))
	}

	prices := hs.Prices("F9-WIND-001")
	if len(prices) != 3 {
		t.Fatalf("expected 3 retained points, got %d", len(prices))
	}
	// oldest two (0, 1) evicted
	for i, want := range []float64{2, 3, 4} {
		if prices[i] != want {
			t.Errorf("prices[%d]: expected %f, got %f", i, want, prices[i])
		}
	}
}

func TestHistorySeriesReturnsCopy(t *testing.T) {
	hs := NewHistoryStore(10)
	hs.Append("F9-HYDRO-001", point(0.68, 0))

	series := hs.Series("F9-HYDRO-001")
	series[0].Price = 99

	latest, _ := hs.Latest("F9-HYDRO-001")
	if latest.Price != 0.68 {
		t.Errorf("mutating returned series leaked into store: got %f", latest.Price)
	}
}
