package allocation

import (
	"math"
	"testing"

	"github.com/rs/zerolog"
)

func floatEquals(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

func testPools() []Pool {
	return []Pool{
		{ID: "p1", Name: "Pool 1", APYPct: 12.5, LockPeriodDays: 30, MinStake: 100},
		{ID: "p2", Name: "Pool 2", APYPct: 9.8, LockPeriodDays: 14, MinStake: 100},
		{ID: "p3", Name: "Pool 3", APYPct: 7.2, LockPeriodDays: 7, MinStake: 50},
		{ID: "p4", Name: "Pool 4", APYPct: 15.0, LockPeriodDays: 90, MinStake: 500},
	}
}

func newTestOptimizer() *Optimizer {
	return NewOptimizer(zerolog.Nop())
}

// ============================================================
// Weight formulas
// ============================================================

func TestConservativeFavorsShortLowYieldLocks(t *testing.T) {
	o := newTestOptimizer()
	res := o.Optimize(10000, StyleConservative, testPools(), nil)

	byID := make(map[string]Target)
	for _, target := range res.Targets {
		byID[target.PoolID] = target
	}

	// (10/apy)*(30/lock): p3 = (10/7.2)*(30/7) ≈ 5.95 dominates,
	// p4 = (10/15)*(30/90) ≈ 0.22 is smallest
	if byID["p3"].RecommendedAmount <= byID["p2"].RecommendedAmount {
		t.Errorf("short low-yield pool should lead: p3=%f p2=%f",
			byID["p3"].RecommendedAmount, byID["p2"].RecommendedAmount)
	}
	if byID["p2"].RecommendedAmount <= byID["p1"].RecommendedAmount {
		t.Errorf("expected p2 > p1: p2=%f p1=%f",
			byID["p2"].RecommendedAmount, byID["p1"].RecommendedAmount)
	}
	if byID["p1"].RecommendedAmount <= byID["p4"].RecommendedAmount {
		t.Errorf("long high-yield pool should trail: p1=%f p4=%f",
			byID["p1"].RecommendedAmount, byID["p4"].RecommendedAmount)
	}
}

func TestAggressiveFavorsHighestAPY(t *testing.T) {
	o := newTestOptimizer()
	res := o.Optimize(10000, StyleAggressive, testPools(), nil)

	var top Target
	for _, target := range res.Targets {
		if target.RecommendedAmount > top.RecommendedAmount {
			top = target
		}
	}
	if top.PoolID != "p4" {
		t.Errorf("aggressive style should favor the 15%% APY pool, got %s", top.PoolID)
	}
}

func TestRecommendedAmountsSumToTotal(t *testing.T) {
	o := newTestOptimizer()
	for _, style := range []Style{StyleConservative, StyleBalanced, StyleAggressive} {
		res := o.Optimize(10000, style, testPools(), nil)

		sum := 0.0
		for _, target := range res.Targets {
			sum += target.RecommendedAmount
		}
		if math.Abs(sum-10000) > float64(len(testPools())) {
			t.Errorf("%s: recommendations sum to %f, want 10000 within rounding", style, sum)
		}
	}
}

// ============================================================
// Diff, actions, priorities
// ============================================================

func TestActionsFromDelta(t *testing.T) {
	o := newTestOptimizer()
	current := map[string]float64{"p3": 9000, "p4": 1000}
	res := o.Optimize(10000, StyleConservative, testPools(), current)

	byID := make(map[string]Target)
	for _, target := range res.Targets {
		byID[target.PoolID] = target
	}

	if byID["p3"].Action != ActionDecrease {
		t.Errorf("heavily overweight pool should DECREASE, got %s", byID["p3"].Action)
	}
	// p1 and p2 start at 0 and receive meaningful weight
	if byID["p1"].Action != ActionIncrease || byID["p1"].Priority != PriorityHigh {
		t.Errorf("fresh pool with large delta should be INCREASE/HIGH, got %s/%s",
			byID["p1"].Action, byID["p1"].Priority)
	}
}

func TestHoldInsideDeltaBand(t *testing.T) {
	o := newTestOptimizer()
	pools := []Pool{{ID: "only", Name: "Only", APYPct: 10, LockPeriodDays: 30, MinStake: 0}}

	res := o.Optimize(1000, StyleBalanced, pools, map[string]float64{"only": 950})
	if res.Targets[0].Action != ActionHold {
		t.Errorf("delta of 50 is inside the band, expected HOLD, got %s", res.Targets[0].Action)
	}
	if res.Targets[0].Priority != PriorityLow {
		t.Errorf("expected LOW priority inside the band, got %s", res.Targets[0].Priority)
	}
}

func TestPriorityHighOnLargeRelativeDelta(t *testing.T) {
	// delta/current = 600/400 = 1.5 > 0.3
	if p := priorityFor(600, 400); p != PriorityHigh {
		t.Errorf("expected HIGH for 150%% shift, got %s", p)
	}
	// delta/current = 150/1000 = 0.15 <= 0.3
	if p := priorityFor(150, 1000); p != PriorityMedium {
		t.Errorf("expected MEDIUM for 15%% shift, got %s", p)
	}
}

func TestUnknownPoolSkipped(t *testing.T) {
	o := newTestOptimizer()
	current := map[string]float64{"ghost": 5000, "p1": 1000}
	res := o.Optimize(10000, StyleBalanced, testPools(), current)

	for _, target := range res.Targets {
		if target.PoolID == "ghost" {
			t.Error("unknown pool must not appear in targets")
		}
	}
	// unknown pool excluded from the APY mean: all counted capital is in p1
	if !floatEquals(res.CurrentAPY, 12.5, 1e-9) {
		t.Errorf("expected current APY 12.5 from p1 only, got %f", res.CurrentAPY)
	}
}

// ============================================================
// APY means
// ============================================================

func TestCurrentAPYZeroWhenUnallocated(t *testing.T) {
	o := newTestOptimizer()
	res := o.Optimize(10000, StyleBalanced, testPools(), nil)
	if res.CurrentAPY != 0 {
		t.Errorf("empty allocation must report 0 current APY, got %f", res.CurrentAPY)
	}
	if res.OptimizedAPY <= 0 {
		t.Errorf("optimized APY should be positive, got %f", res.OptimizedAPY)
	}
}

func TestOptimizedAPYWithinPoolRange(t *testing.T) {
	o := newTestOptimizer()
	for _, style := range []Style{StyleConservative, StyleBalanced, StyleAggressive} {
		res := o.Optimize(10000, style, testPools(), nil)
		if res.OptimizedAPY < 7.2 || res.OptimizedAPY > 15.0 {
			t.Errorf("%s: optimized APY %f outside pool APY range", style, res.OptimizedAPY)
		}
	}
}

func TestNoPools(t *testing.T) {
	o := newTestOptimizer()
	res := o.Optimize(10000, StyleBalanced, nil, nil)
	if len(res.Targets) != 0 || res.CurrentAPY != 0 || res.OptimizedAPY != 0 {
		t.Errorf("no pools must yield an empty result, got %+v", res)
	}
}
