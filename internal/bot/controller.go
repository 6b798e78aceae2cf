// Package bot gates autonomous trade execution by mode, confidence
// threshold and a rolling daily trade cap.
package bot

import (
	"time"

	"github.com/rs/zerolog"

	"energy-trading-bot/internal/circuit"
	"energy-trading-bot/internal/clock"
	"energy-trading-bot/internal/events"
	"energy-trading-bot/internal/ledger"
	"energy-trading-bot/internal/signal"
)

// Status is the read-only controller snapshot served to callers.
type Status struct {
	Mode        Mode          `json:"mode"`
	Running     bool          `json:"running"`
	StartedAt   *time.Time    `json:"startedAt,omitempty"`
	TradesToday int           `json:"tradesToday"`
	Config      Config        `json:"config"`
	Breaker     circuit.Stats `json:"breaker"`
}

// Controller drives trades from signals on each engine tick. Not safe
// for concurrent use on its own; the engine serializes all calls.
type Controller struct {
	config        Config
	running       bool
	startedAt     time.Time
	lastTick      time.Time
	tradeTimes    []time.Time
	minInterval   time.Duration
	maxCandidates int

	ledger  *ledger.Ledger
	breaker *circuit.Breaker
	bus     *events.Bus
	clk     clock.Clock
	logger  zerolog.Logger
}

// NewController creates a controller in OFF mode.
func NewController(led *ledger.Ledger, breaker *circuit.Breaker, bus *events.Bus,
	clk clock.Clock, minInterval time.Duration, maxCandidates int, logger zerolog.Logger) *Controller {

	if clk == nil {
		clk = clock.Real{}
	}
	if minInterval <= 0 {
		minInterval = 15 * time.Second
	}
	if maxCandidates <= 0 {
		maxCandidates = 2
	}
	return &Controller{
		config:        presets[ModeOff],
		minInterval:   minInterval,
		maxCandidates: maxCandidates,
		ledger:        led,
		breaker:       breaker,
		bus:           bus,
		clk:           clk,
		logger:        logger.With().Str("component", "bot_controller").Logger(),
	}
}

// Activate switches the bot to a mode, replacing the configuration
// from the mode preset. OFF halts execution immediately and leaves
// open positions untouched.
func (c *Controller) Activate(mode Mode) error {
	preset, err := PresetFor(mode)
	if err != nil {
		return err
	}

	c.config = preset
	if mode == ModeOff {
		c.running = false
		c.logger.Info().Msg("bot deactivated")
	} else {
		c.running = true
		c.startedAt = c.clk.Now()
		c.logger.Info().Str("mode", string(mode)).Msg("bot activated")
	}

	if c.bus != nil {
		c.bus.PublishBotMode(string(mode), c.running)
	}
	return nil
}

// Tick evaluates the given signals and executes qualifying trades.
// Ticks closer together than the minimum interval are no-ops.
// Returns the trades executed this tick.
func (c *Controller) Tick(signals []signal.TradeSignal) []ledger.Trade {
	now := c.clk.Now()
	if !c.running {
		return nil
	}
	if !c.lastTick.IsZero() && now.Sub(c.lastTick) < c.minInterval {
		return nil
	}
	c.lastTick = now

	candidates := c.filter(signals)
	var executed []ledger.Trade
	for _, sig := range candidates {
		if c.tradesInWindow(now) >= c.config.MaxDailyTrades {
			c.logger.Debug().Int("limit", c.config.MaxDailyTrades).Msg("daily trade limit reached")
			break
		}
		if ok, reason := c.breaker.CanTrade(); !ok {
			c.logger.Warn().Str("reason", reason).Msg("trade blocked by circuit breaker")
			break
		}

		trade, ok := c.execute(sig, now)
		if !ok {
			continue
		}
		executed = append(executed, trade)
		c.tradeTimes = append(c.tradeTimes, now)
	}
	return executed
}

// filter keeps signals decisive enough to act on: confident, not
// WEAK, not HOLD. At most maxCandidates survive; the input is already
// sorted strongest first.
func (c *Controller) filter(signals []signal.TradeSignal) []signal.TradeSignal {
	var out []signal.TradeSignal
	for _, sig := range signals {
		if sig.Confidence < c.config.ConfidenceThreshold {
			continue
		}
		if sig.Strength == signal.StrengthWeak || sig.Action == signal.ActionHold {
			continue
		}
		out = append(out, sig)
		if len(out) == c.maxCandidates {
			break
		}
	}
	return out
}

func (c *Controller) execute(sig signal.TradeSignal, now time.Time) (ledger.Trade, bool) {
	if sig.CurrentPrice <= 0 {
		return ledger.Trade{}, false
	}
	amount := c.config.MaxPositionSize / sig.CurrentPrice

	var tradeType ledger.TradeType
	switch sig.Action {
	case signal.ActionBuy:
		tradeType = ledger.TradeBuy
	case signal.ActionSell:
		tradeType = ledger.TradeSell
		if _, held := c.ledger.Position(sig.AssetID); !held {
			c.logger.Debug().Str("asset", sig.AssetID).Msg("sell signal without position, skipping")
			return ledger.Trade{}, false
		}
	default:
		return ledger.Trade{}, false
	}

	reason := ""
	if len(sig.Reasoning) > 0 {
		reason = sig.Reasoning[0]
	}

	trade := c.ledger.ApplyTrade(ledger.TradeRequest{
		Type:      tradeType,
		AssetID:   sig.AssetID,
		Amount:    amount,
		Price:     sig.CurrentPrice,
		Reason:    reason,
		Timestamp: now,
	})

	if trade.Profit != nil && trade.Total > 0 {
		c.breaker.RecordResult(*trade.Profit / trade.Total * 100)
	}
	if c.bus != nil {
		c.bus.PublishTradeExecuted(trade.AssetID, string(trade.Type),
			trade.Amount, trade.Price, trade.Total, trade.Profit)
	}

	c.logger.Info().Str("asset", trade.AssetID).Str("type", string(trade.Type)).
		Float64("amount", trade.Amount).Float64("price", trade.Price).
		Float64("confidence", sig.Confidence).Msg("bot executed trade")
	return trade, true
}

// tradesInWindow counts trades in the trailing 24 hours and drops
// entries that aged out.
func (c *Controller) tradesInWindow(now time.Time) int {
	cutoff := now.Add(-24 * time.Hour)
	kept := c.tradeTimes[:0]
	for _, t := range c.tradeTimes {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	c.tradeTimes = kept
	return len(c.tradeTimes)
}

// Status returns the controller snapshot.
func (c *Controller) Status() Status {
	s := Status{
		Mode:        c.config.Mode,
		Running:     c.running,
		TradesToday: c.tradesInWindow(c.clk.Now()),
		Config:      c.config,
		Breaker:     c.breaker.GetStats(),
	}
	if c.running {
		started := c.startedAt
		s.StartedAt = &started
	}
	return s
}
