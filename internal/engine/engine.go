// Package engine owns the tick loop and all mutable trading state.
// Every mutation runs behind one mutex so the ledger invariants hold
// even when API handlers call in concurrently with the scheduler.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"energy-trading-bot/internal/allocation"
	"energy-trading-bot/internal/bot"
	"energy-trading-bot/internal/circuit"
	"energy-trading-bot/internal/clock"
	"energy-trading-bot/internal/events"
	"energy-trading-bot/internal/growth"
	"energy-trading-bot/internal/ledger"
	"energy-trading-bot/internal/market"
	"energy-trading-bot/internal/risk"
	"energy-trading-bot/internal/signal"
)

// ErrInvalidAllocation wraps stake requests that fail validation
// against the pool catalog.
var ErrInvalidAllocation = errors.New("invalid allocation")

// Options wires the engine's collaborators and limits.
type Options struct {
	Assets          []market.Asset
	Feed            market.PriceFeed
	PoolRegistry    allocation.PoolRegistry
	AllocationStore allocation.AllocationStore
	Bus             *events.Bus
	Clock           clock.Clock
	UserID          string
	HistoryCapacity int
	ValueSeriesCap  int
	RiskFreeRatePct float64
	BreakerConfig   circuit.Config
	TickMinInterval time.Duration
	MaxCandidates   int
	Logger          zerolog.Logger
}

// ValuePoint is one sample of total portfolio value.
type ValuePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Engine is the single actor driving signals, trades and analytics.
type Engine struct {
	mu sync.Mutex

	assets     []market.Asset
	feed       market.PriceFeed
	history    *market.HistoryStore
	signals    *signal.Engine
	ledger     *ledger.Ledger
	bot        *bot.Controller
	analyzer   *risk.Analyzer
	optimizer  *allocation.Optimizer
	pools      allocation.PoolRegistry
	allocStore allocation.AllocationStore
	bus        *events.Bus
	clk        clock.Clock
	userID     string

	valueSeries    []ValuePoint
	valueSeriesCap int
	lastSignals    []signal.TradeSignal

	logger zerolog.Logger
}

// New assembles an engine from options.
func New(opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if len(opts.Assets) == 0 {
		opts.Assets = market.DefaultAssets()
	}
	if opts.ValueSeriesCap <= 0 {
		opts.ValueSeriesCap = 365
	}
	if opts.RiskFreeRatePct == 0 {
		opts.RiskFreeRatePct = 5
	}

	logger := opts.Logger.With().Str("component", "engine").Logger()
	history := market.NewHistoryStore(opts.HistoryCapacity)
	led := ledger.New(opts.Logger)
	breaker := circuit.New(opts.BreakerConfig, opts.Clock, opts.Logger)

	return &Engine{
		assets:  opts.Assets,
		feed:    opts.Feed,
		history: history,
		signals: signal.NewEngine(history, opts.Assets, opts.Clock, opts.Logger),
		ledger:  led,
		bot: bot.NewController(led, breaker, opts.Bus, opts.Clock,
			opts.TickMinInterval, opts.MaxCandidates, opts.Logger),
		analyzer:       risk.NewAnalyzer(opts.RiskFreeRatePct, opts.Logger),
		optimizer:      allocation.NewOptimizer(opts.Logger),
		pools:          opts.PoolRegistry,
		allocStore:     opts.AllocationStore,
		bus:            opts.Bus,
		clk:            opts.Clock,
		userID:         opts.UserID,
		valueSeriesCap: opts.ValueSeriesCap,
		logger:         logger,
	}
}

// Tick runs one scheduler cycle: fetch prices, refresh signals, let
// the bot trade, record the portfolio value. A feed failure is
// surfaced to the caller, which owns retry policy.
func (e *Engine) Tick(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	points, err := e.feed.Fetch(ctx, e.assets)
	if err != nil {
		e.logger.Error().Err(err).Msg("price feed fetch failed")
		if e.bus != nil {
			e.bus.PublishError("price_feed", err)
		}
		return fmt.Errorf("fetch prices: %w", err)
	}

	for id, p := range points {
		e.history.Append(id, p)
		e.ledger.MarkPrice(id, p.Price)
		if e.bus != nil {
			e.bus.PublishPriceUpdate(id, p.Price)
		}
	}

	e.lastSignals = e.signals.AnalyzeAll()
	if e.bus != nil {
		for _, s := range e.lastSignals {
			if s.Action != signal.ActionHold {
				e.bus.PublishSignal(s.AssetID, string(s.Action), string(s.Strength), s.Confidence, s.CurrentPrice)
			}
		}
	}

	e.bot.Tick(e.lastSignals)

	e.recordValue()
	return nil
}

func (e *Engine) recordValue() {
	e.valueSeries = append(e.valueSeries, ValuePoint{
		Timestamp: e.clk.Now(),
		Value:     round2(e.ledger.TotalValue()),
	})
	if len(e.valueSeries) > e.valueSeriesCap {
		e.valueSeries = e.valueSeries[len(e.valueSeries)-e.valueSeriesCap:]
	}
}

// Signals returns the signals computed on the last tick. Before the
// first tick it computes them on demand from base prices.
func (e *Engine) Signals() []signal.TradeSignal {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.lastSignals == nil {
		return e.signals.AnalyzeAll()
	}
	out := make([]signal.TradeSignal, len(e.lastSignals))
	copy(out, e.lastSignals)
	return out
}

// Trades returns the ledger's retained trade history.
func (e *Engine) Trades() []ledger.Trade {
	return e.ledger.Trades()
}

// Portfolio returns the current holdings snapshot.
func (e *Engine) Portfolio() Portfolio {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buildPortfolio()
}

// Risk evaluates the current risk metrics from the recorded value
// series and holdings.
func (e *Engine) Risk(ctx context.Context) risk.Metrics {
	e.mu.Lock()
	values := make([]float64, len(e.valueSeries))
	for i, vp := range e.valueSeries {
		values[i] = vp.Value
	}
	allocations := make(map[string]float64)
	for _, pos := range e.ledger.Positions() {
		allocations[pos.AssetID] = pos.Value()
	}
	e.mu.Unlock()

	staked := 0.0
	if e.allocStore != nil {
		if current, err := e.allocStore.Current(ctx, e.userID); err == nil {
			for _, amount := range current {
				staked += amount
			}
		} else {
			e.logger.Warn().Err(err).Msg("allocation store unavailable, risk computed without staking")
		}
	}

	return e.analyzer.Evaluate(risk.Input{
		ValueHistory: values,
		Allocations:  allocations,
		StakedValue:  staked,
	})
}

// AllocationRecommendation optimizes the user's pool allocation for a
// style. Pool registry failures surface to the caller.
func (e *Engine) AllocationRecommendation(ctx context.Context, style allocation.Style) (allocation.Result, error) {
	pools, err := e.pools.List(ctx)
	if err != nil {
		return allocation.Result{}, fmt.Errorf("list pools: %w", err)
	}

	current := map[string]float64{}
	if e.allocStore != nil {
		if got, err := e.allocStore.Current(ctx, e.userID); err == nil {
			current = got
		} else {
			e.logger.Warn().Err(err).Msg("allocation store unavailable, optimizing from zero")
		}
	}

	staked := 0.0
	for _, amount := range current {
		staked += amount
	}
	totalAssets := e.ledger.TotalValue() + staked

	return e.optimizer.Optimize(totalAssets, style, pools, current), nil
}

// Allocation returns the user's current pool stakes.
func (e *Engine) Allocation(ctx context.Context) (map[string]float64, error) {
	if e.allocStore == nil {
		return nil, fmt.Errorf("allocation store not configured")
	}
	return e.allocStore.Current(ctx, e.userID)
}

// SetAllocation validates the requested stakes against the pool
// catalog and persists them. A zero amount unstakes a pool; positive
// amounts must meet the pool's minimum stake.
func (e *Engine) SetAllocation(ctx context.Context, allocations map[string]float64) error {
	if e.allocStore == nil {
		return fmt.Errorf("allocation store not configured")
	}

	pools, err := e.pools.List(ctx)
	if err != nil {
		return fmt.Errorf("list pools: %w", err)
	}
	byID := make(map[string]allocation.Pool, len(pools))
	for _, p := range pools {
		byID[p.ID] = p
	}

	for id, amount := range allocations {
		p, ok := byID[id]
		if !ok {
			return fmt.Errorf("%w: unknown pool %q", ErrInvalidAllocation, id)
		}
		if amount < 0 {
			return fmt.Errorf("%w: negative amount for pool %q", ErrInvalidAllocation, id)
		}
		if amount > 0 && amount < p.MinStake {
			return fmt.Errorf("%w: pool %q requires a minimum stake of %.2f", ErrInvalidAllocation, id, p.MinStake)
		}
	}

	if err := e.allocStore.Save(ctx, e.userID, allocations); err != nil {
		return fmt.Errorf("save allocation: %w", err)
	}
	e.logger.Info().Int("pools", len(allocations)).Msg("allocation updated")
	return nil
}

// GrowthProjection projects the user's staked value forward. With
// nothing staked it projects the portfolio value at the best pool APY
// so the endpoint stays useful before the first stake.
func (e *Engine) GrowthProjection(ctx context.Context, months int) ([]growth.Point, error) {
	pools, err := e.pools.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pools: %w", err)
	}

	current := map[string]float64{}
	if e.allocStore != nil {
		if got, err := e.allocStore.Current(ctx, e.userID); err == nil {
			current = got
		}
	}

	byID := make(map[string]allocation.Pool, len(pools))
	bestAPY := 0.0
	for _, p := range pools {
		byID[p.ID] = p
		if p.APYPct > bestAPY {
			bestAPY = p.APYPct
		}
	}

	staked, weighted := 0.0, 0.0
	for id, amount := range current {
		p, ok := byID[id]
		if !ok {
			continue
		}
		staked += amount
		weighted += amount * p.APYPct
	}

	initial, apy := staked, 0.0
	if staked > 0 {
		apy = weighted / staked
	} else {
		initial = e.ledger.TotalValue()
		apy = bestAPY
	}

	return growth.Project(initial, apy, months), nil
}

// Pools lists the available yield pools.
func (e *Engine) Pools(ctx context.Context) ([]allocation.Pool, error) {
	return e.pools.List(ctx)
}

// BotStatus returns the controller snapshot.
func (e *Engine) BotStatus() bot.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bot.Status()
}

// ActivateBot switches the bot mode.
func (e *Engine) ActivateBot(mode bot.Mode) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bot.Activate(mode)
}

// ValueSeries returns a copy of the recorded portfolio value series.
func (e *Engine) ValueSeries() []ValuePoint {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]ValuePoint, len(e.valueSeries))
	copy(out, e.valueSeries)
	return out
}
