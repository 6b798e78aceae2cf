package signal

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"energy-trading-bot/internal/clock"
	"energy-trading-bot/internal/market"
)

func floatEquals(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

func testEngine(t *testing.T) (*Engine, *market.HistoryStore, *clock.Manual) {
	t.Helper()
	hs := market.NewHistoryStore(2016)
	clk := clock.NewManual(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	eng := NewEngine(hs, market.DefaultAssets(), clk, zerolog.Nop())
	return eng, hs, clk
}

func fill(hs *market.HistoryStore, assetID string, prices []float64) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, p := range prices {
		hs.Append(assetID, market.PricePoint{
			Timestamp: base.Add(time.Duration(i) * 5 * time.Minute),
			Price:     p,
			Volume:    1000,
		})
	}
}

func flatSeries(n int, p float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = p
	}
	return out
}

// ============================================================
// Moving average / volatility
// ============================================================

func TestMovingAverageFlatSeries(t *testing.T) {
	prices := flatSeries(400, 1.25)
	if ma := movingAverage(prices, 288); !floatEquals(ma, 1.25, 1e-9) {
		t.Errorf("expected MA 1.25 for flat series, got %f", ma)
	}
	if v := volatility(prices); v != 0 {
		t.Errorf("expected zero volatility for flat series, got %f", v)
	}
}

func TestMovingAverageShortSeries(t *testing.T) {
	// fewer samples than the window: mean of all available
	if ma := movingAverage([]float64{1, 2, 3}, 288); !floatEquals(ma, 2, 1e-9) {
		t.Errorf("expected MA 2, got %f", ma)
	}
}

func TestMovingAverageUsesWindowTail(t *testing.T) {
	prices := append(flatSeries(288, 10), flatSeries(288, 20)...)
	if ma := movingAverage(prices, 288); !floatEquals(ma, 20, 1e-9) {
		t.Errorf("expected MA over last 288 samples only, got %f", ma)
	}
}

// ============================================================
// Classification thresholds
// ============================================================

func TestClassifyThresholds(t *testing.T) {
	tests := []struct {
		name       string
		deviation  float64
		action     Action
		strength   Strength
		confidence float64
	}{
		{"deep discount", -0.06, ActionBuy, StrengthStrong, 0.85},
		{"mild discount", -0.03, ActionBuy, StrengthModerate, 0.70},
		{"deep premium", 0.06, ActionSell, StrengthStrong, 0.85},
		{"mild premium", 0.03, ActionSell, StrengthModerate, 0.70},
		{"near average", 0.01, ActionHold, StrengthWeak, 0.50},
		{"boundary low", -0.02, ActionHold, StrengthWeak, 0.50},
		{"boundary high", 0.02, ActionHold, StrengthWeak, 0.50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, strength, confidence := classify(tt.deviation)
			if action != tt.action || strength != tt.strength {
				t.Errorf("deviation %f: got %s/%s, want %s/%s",
					tt.deviation, action, strength, tt.action, tt.strength)
			}
			if !floatEquals(confidence, tt.confidence, 1e-9) {
				t.Errorf("deviation %f: got confidence %f, want %f",
					tt.deviation, confidence, tt.confidence)
			}
		})
	}
}

func TestAnalyzePremiumProducesStrongSell(t *testing.T) {
	eng, hs, _ := testEngine(t)

	// flat average with the last point 6% above it
	series := flatSeries(287, 1.00)
	series = append(series, 1.0607) // MA ≈ 1.000211, deviation ≈ 0.0604
	fill(hs, "F9-THERMAL-001", series)

	asset, _ := market.AssetByID(market.DefaultAssets(), "F9-THERMAL-001")
	sig := eng.Analyze(asset)

	if sig.Action != ActionSell || sig.Strength != StrengthStrong {
		t.Errorf("expected STRONG SELL, got %s/%s", sig.Action, sig.Strength)
	}
	if !floatEquals(sig.Confidence, 0.85, 1e-9) {
		t.Errorf("expected confidence 0.85, got %f", sig.Confidence)
	}
	if sig.Trend != TrendBullish {
		t.Errorf("price 6%% above MA should read BULLISH, got %s", sig.Trend)
	}
	if !floatEquals(sig.PriceTarget, sig.CurrentPrice*0.95, 1e-9) {
		t.Errorf("sell target should be 5%% below current, got %f", sig.PriceTarget)
	}
	if !floatEquals(sig.StopLoss, sig.CurrentPrice*1.08, 1e-9) {
		t.Errorf("sell stop should be 8%% above current, got %f", sig.StopLoss)
	}
}

func TestAnalyzeTimeframeFollowsStrength(t *testing.T) {
	eng, hs, _ := testEngine(t)

	// 7% above a flat average: strong signals act immediately
	strong := append(flatSeries(287, 1.00), 1.07)
	fill(hs, "F9-THERMAL-001", strong)
	// 3% above: moderate signals get the short horizon
	moderate := append(flatSeries(287, 1.00), 1.03)
	fill(hs, "F9-WIND-001", moderate)

	thermal, _ := market.AssetByID(market.DefaultAssets(), "F9-THERMAL-001")
	sig := eng.Analyze(thermal)
	if sig.Strength != StrengthStrong {
		t.Fatalf("expected STRONG, got %s", sig.Strength)
	}
	if sig.Timeframe != TimeframeImmediate {
		t.Errorf("strong signal timeframe = %q, want %q", sig.Timeframe, TimeframeImmediate)
	}

	wind, _ := market.AssetByID(market.DefaultAssets(), "F9-WIND-001")
	sig = eng.Analyze(wind)
	if sig.Strength != StrengthModerate {
		t.Fatalf("expected MODERATE, got %s", sig.Strength)
	}
	if sig.Timeframe != TimeframeShort {
		t.Errorf("moderate signal timeframe = %q, want %q", sig.Timeframe, TimeframeShort)
	}

	// no history: the weak HOLD fallback also reads SHORT
	nuclear, _ := market.AssetByID(market.DefaultAssets(), "F9-NUCLEAR-001")
	if sig = eng.Analyze(nuclear); sig.Timeframe != TimeframeShort {
		t.Errorf("hold fallback timeframe = %q, want %q", sig.Timeframe, TimeframeShort)
	}
}

func TestAnalyzeDiscountProducesBuyTargets(t *testing.T) {
	eng, hs, _ := testEngine(t)

	series := flatSeries(287, 1.00)
	series = append(series, 0.93)
	fill(hs, "F9-WIND-001", series)

	asset, _ := market.AssetByID(market.DefaultAssets(), "F9-WIND-001")
	sig := eng.Analyze(asset)

	if sig.Action != ActionBuy || sig.Strength != StrengthStrong {
		t.Errorf("expected STRONG BUY, got %s/%s", sig.Action, sig.Strength)
	}
	if !floatEquals(sig.PriceTarget, sig.CurrentPrice*1.05, 1e-9) {
		t.Errorf("buy target should be 5%% above current, got %f", sig.PriceTarget)
	}
	if !floatEquals(sig.StopLoss, sig.CurrentPrice*0.92, 1e-9) {
		t.Errorf("buy stop should be 8%% below current, got %f", sig.StopLoss)
	}
	if !floatEquals(sig.ExpectedReturn, 5, 1e-9) {
		t.Errorf("expected 5%% return on buy target, got %f", sig.ExpectedReturn)
	}
}

func TestAnalyzeVolatilityPenalty(t *testing.T) {
	eng, hs, _ := testEngine(t)

	// alternate far around the mean so stdev/mean > 0.10,
	// with the final point well below the average
	var series []float64
	for i := 0; i < 100; i++ {
		if i%2 == 0 {
			series = append(series, 0.80)
		} else {
			series = append(series, 1.20)
		}
	}
	series = append(series, 0.80)
	fill(hs, "F9-BIOMASS-001", series)

	asset, _ := market.AssetByID(market.DefaultAssets(), "F9-BIOMASS-001")
	sig := eng.Analyze(asset)

	if sig.Action != ActionBuy {
		t.Fatalf("expected BUY, got %s", sig.Action)
	}
	if !floatEquals(sig.Confidence, 0.85*0.8, 1e-9) {
		t.Errorf("expected penalized confidence %f, got %f", 0.85*0.8, sig.Confidence)
	}
}

// ============================================================
// Fallbacks and reasoning
// ============================================================

func TestAnalyzeNoHistoryHoldsAtBasePrice(t *testing.T) {
	eng, _, _ := testEngine(t)

	asset, _ := market.AssetByID(market.DefaultAssets(), "F9-NUCLEAR-001")
	sig := eng.Analyze(asset)

	if sig.Action != ActionHold {
		t.Errorf("expected HOLD without history, got %s", sig.Action)
	}
	if sig.CurrentPrice != asset.BasePrice {
		t.Errorf("expected base price %f, got %f", asset.BasePrice, sig.CurrentPrice)
	}
	if len(sig.Reasoning) == 0 {
		t.Error("reasoning must not be empty")
	}
}

func TestAnalyzeSolarMiddayReasoning(t *testing.T) {
	eng, hs, clk := testEngine(t)
	clk.Set(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))

	fill(hs, "F9-SOLAR-001", flatSeries(50, 1.08))

	asset, _ := market.AssetByID(market.DefaultAssets(), "F9-SOLAR-001")
	sig := eng.Analyze(asset)

	found := false
	for _, r := range sig.Reasoning {
		if r == "Peak solar generation hours, supply pressure expected" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected midday solar note in reasoning, got %v", sig.Reasoning)
	}
}

// ============================================================
// Catalog ordering
// ============================================================

func TestAnalyzeAllSortedByStrengthThenConfidence(t *testing.T) {
	eng, hs, _ := testEngine(t)

	// strong signal for thermal, moderate for wind, everything else holds
	strong := append(flatSeries(287, 1.00), 0.93)
	fill(hs, "F9-THERMAL-001", strong)
	moderate := append(flatSeries(287, 1.00), 0.97)
	fill(hs, "F9-WIND-001", moderate)

	signals := eng.AnalyzeAll()
	if len(signals) != len(market.DefaultAssets()) {
		t.Fatalf("expected one signal per asset, got %d", len(signals))
	}
	if signals[0].AssetID != "F9-THERMAL-001" {
		t.Errorf("strongest signal should sort first, got %s", signals[0].AssetID)
	}
	if signals[1].AssetID != "F9-WIND-001" {
		t.Errorf("moderate signal should sort second, got %s", signals[1].AssetID)
	}
	for i := 1; i < len(signals); i++ {
		ri, rj := strengthRank(signals[i-1].Strength), strengthRank(signals[i].Strength)
		if ri < rj {
			t.Errorf("signals out of strength order at %d", i)
		}
		if ri == rj && signals[i-1].Confidence < signals[i].Confidence {
			t.Errorf("signals out of confidence order at %d", i)
		}
	}
}
