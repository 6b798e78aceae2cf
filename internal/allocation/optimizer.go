// Package allocation computes target stake weights per yield pool
// and diffs them against the user's current allocation.
package allocation

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
)

// Style selects the weighting formula.
type Style string

const (
	StyleConservative Style = "CONSERVATIVE"
	StyleBalanced     Style = "BALANCED"
	StyleAggressive   Style = "AGGRESSIVE"
)

// TargetAction says which way a pool's allocation should move.
type TargetAction string

const (
	ActionIncrease TargetAction = "INCREASE"
	ActionDecrease TargetAction = "DECREASE"
	ActionHold     TargetAction = "HOLD"
)

// Priority ranks how urgent a rebalance step is.
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// Target is the rebalance recommendation for one pool.
type Target struct {
	PoolID            string       `json:"poolId"`
	CurrentAmount     float64      `json:"currentAmount"`
	RecommendedAmount float64      `json:"recommendedAmount"`
	Action            TargetAction `json:"action"`
	Priority          Priority     `json:"priority"`
	Reason            string       `json:"reason"`
}

// Result is the full optimization output.
type Result struct {
	CurrentAPY   float64  `json:"currentApy"`
	OptimizedAPY float64  `json:"optimizedApy"`
	Targets      []Target `json:"targets"`
}

// deltaBand is the dead zone inside which a pool is left alone.
const deltaBand = 100.0

// minWeight floors pool weights so no pool divides to zero.
const minWeight = 0.1

// Optimizer computes rebalance recommendations.
type Optimizer struct {
	logger zerolog.Logger
}

// NewOptimizer creates an optimizer.
func NewOptimizer(logger zerolog.Logger) *Optimizer {
	return &Optimizer{logger: logger.With().Str("component", "allocation_optimizer").Logger()}
}

// Optimize distributes totalAssets across pools by style weight and
// diffs the result against currentAllocations. Allocations referencing
// unknown pool ids are skipped.
func (o *Optimizer) Optimize(totalAssets float64, style Style, pools []Pool, currentAllocations map[string]float64) Result {
	if len(pools) == 0 {
		return Result{Targets: []Target{}}
	}

	known := make(map[string]Pool, len(pools))
	for _, p := range pools {
		known[p.ID] = p
	}
	for id := range currentAllocations {
		if _, ok := known[id]; !ok {
			o.logger.Warn().Str("pool", id).Msg("allocation references unknown pool, skipping")
		}
	}

	weights := make([]float64, len(pools))
	weightSum := 0.0
	for i, p := range pools {
		w := styleWeight(style, p)
		if w < minWeight {
			w = minWeight
		}
		weights[i] = w
		weightSum += w
	}

	targets := make([]Target, 0, len(pools))
	for i, p := range pools {
		current := currentAllocations[p.ID]
		recommended := math.Round(totalAssets * weights[i] / weightSum)
		delta := recommended - current

		target := Target{
			PoolID:            p.ID,
			CurrentAmount:     current,
			RecommendedAmount: recommended,
			Action:            actionFor(delta),
			Priority:          priorityFor(delta, current),
		}
		target.Reason = reasonFor(target, p, style)
		targets = append(targets, target)
	}

	return Result{
		CurrentAPY:   weightedAPY(known, currentAllocations),
		OptimizedAPY: weightedAPYTargets(known, targets),
		Targets:      targets,
	}
}

// styleWeight scores a pool for a given investment style.
func styleWeight(style Style, p Pool) float64 {
	lock := float64(p.LockPeriodDays)
	switch style {
	case StyleConservative:
		return (10 / p.APYPct) * (30 / lock)
	case StyleAggressive:
		return p.APYPct / 10
	default:
		return (p.APYPct / 12) * (20 / lock)
	}
}

func actionFor(delta float64) TargetAction {
	switch {
	case delta > deltaBand:
		return ActionIncrease
	case delta < -deltaBand:
		return ActionDecrease
	default:
		return ActionHold
	}
}

func priorityFor(delta, current float64) Priority {
	if math.Abs(delta) <= deltaBand {
		return PriorityLow
	}
	if current == 0 {
		if delta > deltaBand {
			return PriorityHigh
		}
		return PriorityMedium
	}
	if math.Abs(delta/current) > 0.3 {
		return PriorityHigh
	}
	return PriorityMedium
}

func reasonFor(t Target, p Pool, style Style) string {
	switch t.Action {
	case ActionIncrease:
		return fmt.Sprintf("Increase stake in %s: %.1f%% APY over a %d-day lock fits the %s profile",
			p.Name, p.APYPct, p.LockPeriodDays, style)
	case ActionDecrease:
		return fmt.Sprintf("Reduce stake in %s: capital is better deployed under the %s profile",
			p.Name, style)
	default:
		return fmt.Sprintf("Hold current stake in %s", p.Name)
	}
}

// weightedAPY is the allocation-weighted mean APY of the current
// allocation, 0 when nothing is allocated.
func weightedAPY(pools map[string]Pool, allocations map[string]float64) float64 {
	total, weighted := 0.0, 0.0
	for id, amount := range allocations {
		p, ok := pools[id]
		if !ok {
			continue
		}
		total += amount
		weighted += amount * p.APYPct
	}
	if total == 0 {
		return 0
	}
	return round2(weighted / total)
}

func weightedAPYTargets(pools map[string]Pool, targets []Target) float64 {
	total, weighted := 0.0, 0.0
	for _, t := range targets {
		p, ok := pools[t.PoolID]
		if !ok {
			continue
		}
		total += t.RecommendedAmount
		weighted += t.RecommendedAmount * p.APYPct
	}
	if total == 0 {
		return 0
	}
	return round2(weighted / total)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
