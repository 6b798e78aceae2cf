// Package risk computes portfolio risk metrics from the recorded
// value series and current asset allocation.
package risk

import (
	"math"

	"github.com/rs/zerolog"
)

// Level buckets the composite risk score.
type Level string

const (
	LevelLow      Level = "LOW"
	LevelModerate Level = "MODERATE"
	LevelHigh     Level = "HIGH"
	LevelExtreme  Level = "EXTREME"
)

// Metrics is the read-only risk snapshot served to callers.
type Metrics struct {
	VolatilityPct        float64  `json:"volatilityPct"`
	SharpeRatio          float64  `json:"sharpeRatio"`
	MaxDrawdownPct       float64  `json:"maxDrawdownPct"`
	DiversificationScore float64  `json:"diversificationScore"`
	RiskScore            float64  `json:"riskScore"`
	RiskLevel            Level    `json:"riskLevel"`
	Recommendations      []string `json:"recommendations"`
}

// Input is the portfolio state the analyzer evaluates.
type Input struct {
	ValueHistory []float64          // daily portfolio values, oldest first
	Allocations  map[string]float64 // asset id -> current value
	StakedValue  float64            // value locked in yield pools
}

// Analyzer evaluates portfolio risk. Stateless apart from config.
type Analyzer struct {
	riskFreeRatePct float64
	logger          zerolog.Logger
}

// NewAnalyzer creates an analyzer with the given risk-free rate in
// percent per year.
func NewAnalyzer(riskFreeRatePct float64, logger zerolog.Logger) *Analyzer {
	return &Analyzer{
		riskFreeRatePct: riskFreeRatePct,
		logger:          logger.With().Str("component", "risk_analyzer").Logger(),
	}
}

const maintainMessage = "Portfolio risk is balanced. Maintain current strategy."

// Evaluate computes the metrics snapshot. With fewer than two value
// points every numeric metric is zeroed and the level is LOW; the
// recommendation list is never empty.
func (a *Analyzer) Evaluate(in Input) Metrics {
	if len(in.ValueHistory) < 2 {
		a.logger.Debug().Int("points", len(in.ValueHistory)).Msg("insufficient history for risk metrics")
		return Metrics{
			RiskLevel:       LevelLow,
			Recommendations: []string{"Not enough history to assess risk. Maintain current strategy while data accumulates."},
		}
	}

	returns := dailyReturns(in.ValueHistory)
	meanReturn := mean(returns)
	volatilityPct := stddev(returns) * math.Sqrt(365) * 100

	sharpe := 0.0
	if volatilityPct > 0 {
		sharpe = (meanReturn*365*100 - a.riskFreeRatePct) / volatilityPct
	}

	maxDrawdownPct := maxDrawdown(in.ValueHistory) * 100
	hhi := concentration(in.Allocations)
	diversification := math.Round((1 - hhi) * 100)

	score := math.Min(40, volatilityPct) + maxDrawdownPct*0.5 + hhi*30
	score = math.Round(math.Min(100, math.Max(0, score)))

	m := Metrics{
		VolatilityPct:        round2(volatilityPct),
		SharpeRatio:          round2(sharpe),
		MaxDrawdownPct:       round2(maxDrawdownPct),
		DiversificationScore: diversification,
		RiskScore:            score,
		RiskLevel:            levelFor(score),
	}
	m.Recommendations = a.recommend(m, in)
	return m
}

func (a *Analyzer) recommend(m Metrics, in Input) []string {
	var recs []string

	if m.DiversificationScore < 50 {
		recs = append(recs, "Holdings are concentrated. Spread capital across more energy sources.")
	}
	if m.VolatilityPct > 30 {
		recs = append(recs, "Volatility is elevated. Shift weight toward baseload assets to reduce swings.")
	}
	if m.MaxDrawdownPct > 10 {
		recs = append(recs, "Drawdown exceeded 10%. Tighten stop-loss levels on open positions.")
	}

	total := in.StakedValue
	for _, v := range in.Allocations {
		total += v
	}
	if total > 0 && in.StakedValue/total < 0.20 {
		recs = append(recs, "Less than 20% of the portfolio is staked. Allocate more to yield pools for steady returns.")
	}

	if len(recs) == 0 {
		recs = append(recs, maintainMessage)
	}
	return recs
}

func levelFor(score float64) Level {
	switch {
	case score > 70:
		return LevelExtreme
	case score > 50:
		return LevelHigh
	case score > 30:
		return LevelModerate
	default:
		return LevelLow
	}
}

func dailyReturns(values []float64) []float64 {
	returns := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, (values[i]-values[i-1])/values[i-1])
	}
	return returns
}

// maxDrawdown returns the largest decline from a running peak, as a
// fraction in [0,1].
func maxDrawdown(values []float64) float64 {
	peak := values[0]
	maxDD := 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := (peak - v) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// concentration returns the Herfindahl-Hirschman index of the
// allocation shares. Empty allocation counts as fully concentrated.
func concentration(allocations map[string]float64) float64 {
	total := 0.0
	for _, v := range allocations {
		total += v
	}
	if total == 0 {
		return 1
	}

	hhi := 0.0
	for _, v := range allocations {
		share := v / total
		hhi += share * share
	}
	return hhi
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	variance := 0.0
	for _, v := range values {
		d := v - m
		variance += d * d
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
