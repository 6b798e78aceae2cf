// Package signal derives trade signals from recorded price history.
// Signals are pure functions of the current series and carry no state,
// so every result is re-derivable.
package signal

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"energy-trading-bot/internal/clock"
	"energy-trading-bot/internal/market"
)

// Action is the trade direction a signal recommends.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Strength grades how decisive a signal is.
type Strength string

const (
	StrengthStrong   Strength = "STRONG"
	StrengthModerate Strength = "MODERATE"
	StrengthWeak     Strength = "WEAK"
)

// Timeframes a signal can act on. Strong deviations are expected to
// revert quickly, so they carry the immediate horizon.
const (
	TimeframeImmediate = "IMMEDIATE"
	TimeframeShort     = "SHORT"
)

// Trend labels price position relative to the 24h moving average.
type Trend string

const (
	TrendBullish Trend = "BULLISH"
	TrendBearish Trend = "BEARISH"
	TrendNeutral Trend = "NEUTRAL"
)

// TradeSignal is one recommendation for one asset. Recomputed every
// tick and never persisted.
type TradeSignal struct {
	AssetID        string   `json:"assetId"`
	Action         Action   `json:"action"`
	Strength       Strength `json:"strength"`
	Confidence     float64  `json:"confidence"`
	Trend          Trend    `json:"trend"`
	CurrentPrice   float64  `json:"currentPrice"`
	PriceTarget    float64  `json:"priceTarget"`
	StopLoss       float64  `json:"stopLoss"`
	ExpectedReturn float64  `json:"expectedReturn"` // percent
	Timeframe      string   `json:"timeframe"`
	Reasoning      []string `json:"reasoning"`
}

// maWindow is 24 hours of samples at 5-minute cadence.
const maWindow = 288

// volatilityPenaltyThreshold marks a series too choppy to trust fully.
const volatilityPenaltyThreshold = 0.10

// Engine computes signals from a history store.
type Engine struct {
	history *market.HistoryStore
	assets  []market.Asset
	clk     clock.Clock
	logger  zerolog.Logger
}

// NewEngine creates a signal engine over the given history and catalog.
func NewEngine(history *market.HistoryStore, assets []market.Asset, clk clock.Clock, logger zerolog.Logger) *Engine {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Engine{
		history: history,
		assets:  assets,
		clk:     clk,
		logger:  logger.With().Str("component", "signal_engine").Logger(),
	}
}

// Analyze produces the signal for a single asset. With no recorded
// history it falls back to a HOLD at the asset's base price instead
// of failing.
func (e *Engine) Analyze(asset market.Asset) TradeSignal {
	prices := e.history.Prices(asset.ID)
	if len(prices) == 0 {
		e.logger.Debug().Str("asset", asset.ID).Msg("no price history, holding at base price")
		return TradeSignal{
			AssetID:      asset.ID,
			Action:       ActionHold,
			Strength:     StrengthWeak,
			Confidence:   0.50,
			Trend:        TrendNeutral,
			CurrentPrice: asset.BasePrice,
			PriceTarget:  asset.BasePrice,
			StopLoss:     asset.BasePrice * 0.95,
			Timeframe:    timeframeFor(StrengthWeak),
			Reasoning:    []string{"No price history available, holding at base price"},
		}
	}

	current := prices[len(prices)-1]
	ma := movingAverage(prices, maWindow)
	vol := volatility(prices)
	deviation := (current - ma) / ma

	action, strength, confidence := classify(deviation)
	if vol > volatilityPenaltyThreshold {
		confidence *= 0.8
	}

	sig := TradeSignal{
		AssetID:      asset.ID,
		Action:       action,
		Strength:     strength,
		Confidence:   confidence,
		Trend:        trendOf(current, ma),
		CurrentPrice: current,
		Timeframe:    timeframeFor(strength),
	}

	switch action {
	case ActionBuy:
		sig.PriceTarget = current * 1.05
		sig.StopLoss = current * 0.92
		sig.ExpectedReturn = (sig.PriceTarget - current) / current * 100
	case ActionSell:
		sig.PriceTarget = current * 0.95
		sig.StopLoss = current * 1.08
		sig.ExpectedReturn = (current - sig.PriceTarget) / current * 100
	default:
		sig.PriceTarget = current
		sig.StopLoss = current * 0.95
	}

	sig.Reasoning = e.reasoning(asset, deviation, vol, sig)
	return sig
}

// AnalyzeAll produces signals for the whole catalog, sorted by
// strength then confidence, strongest first.
func (e *Engine) AnalyzeAll() []TradeSignal {
	signals := make([]TradeSignal, 0, len(e.assets))
	for _, a := range e.assets {
		signals = append(signals, e.Analyze(a))
	}

	sort.SliceStable(signals, func(i, j int) bool {
		ri, rj := strengthRank(signals[i].Strength), strengthRank(signals[j].Strength)
		if ri != rj {
			return ri > rj
		}
		return signals[i].Confidence > signals[j].Confidence
	})
	return signals
}

func (e *Engine) reasoning(asset market.Asset, deviation, vol float64, sig TradeSignal) []string {
	var reasons []string

	switch {
	case sig.Action == ActionBuy:
		reasons = append(reasons, fmt.Sprintf("Price %.1f%% below 24h average", math.Abs(deviation*100)))
	case sig.Action == ActionSell:
		reasons = append(reasons, fmt.Sprintf("Price %.1f%% above 24h average", deviation*100))
	default:
		reasons = append(reasons, "Price within normal range of 24h average")
	}

	hour := e.clk.Now().Hour()
	if asset.Type == market.SourceSolar && hour >= 10 && hour <= 14 {
		reasons = append(reasons, "Peak solar generation hours, supply pressure expected")
	}
	if asset.Type == market.SourceWind && vol > 0.05 {
		reasons = append(reasons, "Elevated wind output variability")
	}
	if vol > volatilityPenaltyThreshold {
		reasons = append(reasons, fmt.Sprintf("High volatility %.1f%%, confidence reduced", vol*100))
	}

	return reasons
}

// classify maps deviation from the 24h mean to an action grade.
// First match wins.
func classify(deviation float64) (Action, Strength, float64) {
	switch {
	case deviation < -0.05:
		return ActionBuy, StrengthStrong, 0.85
	case deviation < -0.02:
		return ActionBuy, StrengthModerate, 0.70
	case deviation > 0.05:
		return ActionSell, StrengthStrong, 0.85
	case deviation > 0.02:
		return ActionSell, StrengthModerate, 0.70
	default:
		return ActionHold, StrengthWeak, 0.50
	}
}

func timeframeFor(s Strength) string {
	if s == StrengthStrong {
		return TimeframeImmediate
	}
	return TimeframeShort
}

func trendOf(current, ma float64) Trend {
	switch {
	case current > ma*1.02:
		return TrendBullish
	case current < ma*0.98:
		return TrendBearish
	default:
		return TrendNeutral
	}
}

func strengthRank(s Strength) int {
	switch s {
	case StrengthStrong:
		return 2
	case StrengthModerate:
		return 1
	default:
		return 0
	}
}

// movingAverage is the mean of the last window samples, or of all
// samples when fewer exist.
func movingAverage(prices []float64, window int) float64 {
	if len(prices) == 0 {
		return 0
	}
	if len(prices) > window {
		prices = prices[len(prices)-window:]
	}
	sum := 0.0
	for _, p := range prices {
		sum += p
	}
	return sum / float64(len(prices))
}

// volatility is the population standard deviation divided by the mean.
func volatility(prices []float64) float64 {
	if len(prices) < 2 {
		return 0
	}
	mean := 0.0
	for _, p := range prices {
		mean += p
	}
	mean /= float64(len(prices))
	if mean == 0 {
		return 0
	}

	variance := 0.0
	for _, p := range prices {
		d := p - mean
		variance += d * d
	}
	variance /= float64(len(prices))
	return math.Sqrt(variance) / mean
}
