// Package circuit halts autonomous trading after sustained losses.
// The breaker sits between the bot controller and the ledger: every
// candidate trade asks CanTrade first, every realized result is fed
// back through RecordResult.
package circuit

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"energy-trading-bot/internal/clock"
)

// State is the breaker state.
type State string

const (
	StateClosed   State = "closed"    // normal operation
	StateOpen     State = "open"      // trading halted
	StateHalfOpen State = "half_open" // probing recovery after cooldown
)

// Config holds the breaker's trip thresholds.
type Config struct {
	Enabled              bool          `json:"enabled"`
	MaxConsecutiveLosses int           `json:"max_consecutive_losses"`
	MaxDailyLossPct      float64       `json:"max_daily_loss_pct"`
	Cooldown             time.Duration `json:"cooldown"`
}

// DefaultConfig returns safe defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:              true,
		MaxConsecutiveLosses: 5,
		MaxDailyLossPct:      5.0,
		Cooldown:             30 * time.Minute,
	}
}

// Breaker tracks loss streaks and trips open when limits are hit.
type Breaker struct {
	mu                sync.Mutex
	config            Config
	state             State
	consecutiveLosses int
	dailyLossPct      float64
	dailyResetAt      time.Time
	trippedAt         time.Time
	tripReason        string
	clk               clock.Clock
	logger            zerolog.Logger
}

// New creates a closed breaker.
func New(config Config, clk clock.Clock, logger zerolog.Logger) *Breaker {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Breaker{
		config:       config,
		state:        StateClosed,
		dailyResetAt: clk.Now().Add(24 * time.Hour),
		clk:          clk,
		logger:       logger.With().Str("component", "circuit_breaker").Logger(),
	}
}

// CanTrade reports whether a new trade may execute. When the cooldown
// has elapsed the breaker moves to half-open and allows one probe.
func (b *Breaker) CanTrade() (bool, string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.config.Enabled {
		return true, ""
	}

	b.resetDailyIfNeeded()

	if b.state == StateOpen {
		elapsed := b.clk.Now().Sub(b.trippedAt)
		if elapsed < b.config.Cooldown {
			remaining := (b.config.Cooldown - elapsed).Round(time.Second)
			return false, fmt.Sprintf("breaker open, cooldown remaining %v (reason: %s)", remaining, b.tripReason)
		}
		b.state = StateHalfOpen
		b.logger.Info().Msg("cooldown elapsed, probing recovery")
	}

	if b.dailyLossPct >= b.config.MaxDailyLossPct {
		return false, fmt.Sprintf("daily loss limit reached: %.2f%%", b.dailyLossPct)
	}
	if b.consecutiveLosses >= b.config.MaxConsecutiveLosses {
		return false, fmt.Sprintf("max consecutive losses reached: %d", b.consecutiveLosses)
	}
	return true, ""
}

// RecordResult feeds a realized trade result back. A winning probe in
// half-open closes the breaker; losses accumulate and may trip it.
func (b *Breaker) RecordResult(pnlPct float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.config.Enabled {
		return
	}
	if math.IsNaN(pnlPct) || math.IsInf(pnlPct, 0) {
		b.logger.Warn().Float64("pnl_pct", pnlPct).Msg("ignoring non-finite trade result")
		return
	}

	b.resetDailyIfNeeded()

	if pnlPct < 0 {
		b.consecutiveLosses++
		b.dailyLossPct += -pnlPct
		b.checkAndTrip()
		return
	}

	b.consecutiveLosses = 0
	if b.state == StateHalfOpen {
		b.state = StateClosed
		b.tripReason = ""
		b.logger.Info().Msg("breaker closed after winning probe")
	}
}

func (b *Breaker) checkAndTrip() {
	var reason string
	if b.consecutiveLosses >= b.config.MaxConsecutiveLosses {
		reason = fmt.Sprintf("consecutive losses: %d", b.consecutiveLosses)
	} else if b.dailyLossPct >= b.config.MaxDailyLossPct {
		reason = fmt.Sprintf("daily loss: %.2f%%", b.dailyLossPct)
	}
	if reason == "" {
		return
	}

	b.state = StateOpen
	b.trippedAt = b.clk.Now()
	b.tripReason = reason
	b.logger.Warn().Str("reason", reason).Msg("circuit breaker tripped")
}

func (b *Breaker) resetDailyIfNeeded() {
	now := b.clk.Now()
	if now.After(b.dailyResetAt) {
		b.dailyLossPct = 0
		b.dailyResetAt = now.Add(24 * time.Hour)
	}
}

// Reset manually closes the breaker and clears the loss streak.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.consecutiveLosses = 0
	b.tripReason = ""
	b.logger.Info().Msg("circuit breaker manually reset")
}

// GetState returns the current state.
func (b *Breaker) GetState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Stats is a snapshot of the breaker's counters.
type Stats struct {
	State             State     `json:"state"`
	ConsecutiveLosses int       `json:"consecutiveLosses"`
	DailyLossPct      float64   `json:"dailyLossPct"`
	TripReason        string    `json:"tripReason,omitempty"`
	TrippedAt         time.Time `json:"trippedAt,omitempty"`
}

// GetStats returns a snapshot of the breaker's counters.
func (b *Breaker) GetStats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		State:             b.state,
		ConsecutiveLosses: b.consecutiveLosses,
		DailyLossPct:      b.dailyLossPct,
		TripReason:        b.tripReason,
		TrippedAt:         b.trippedAt,
	}
}
