package bot

import "fmt"

// Mode is the bot operating mode.
type Mode string

const (
	ModeOff          Mode = "OFF"
	ModeConservative Mode = "CONSERVATIVE"
	ModeBalanced     Mode = "BALANCED"
	ModeAggressive   Mode = "AGGRESSIVE"
	ModeProphet      Mode = "PROPHET"
)

// Config is the active bot configuration. Replaced wholesale on every
// mode change; never mutated field by field.
type Config struct {
	Mode                Mode    `json:"mode"`
	MaxDailyTrades      int     `json:"maxDailyTrades"`
	MaxPositionSize     float64 `json:"maxPositionSize"`
	RiskTolerance       float64 `json:"riskTolerance"`
	ProfitTargetPct     float64 `json:"profitTargetPct"`
	StopLossPct         float64 `json:"stopLossPct"`
	ConfidenceThreshold float64 `json:"confidenceThreshold"`
}

// presets maps each mode to its full configuration. OFF zeroes every
// limit so the invariant mode == OFF implies maxDailyTrades == 0
// holds by construction.
var presets = map[Mode]Config{
	ModeOff: {
		Mode: ModeOff, ConfidenceThreshold: 1.0,
	},
	ModeConservative: {
		Mode: ModeConservative, MaxDailyTrades: 10, MaxPositionSize: 500,
		RiskTolerance: 20, ProfitTargetPct: 2, StopLossPct: 3, ConfidenceThreshold: 0.80,
	},
	ModeBalanced: {
		Mode: ModeBalanced, MaxDailyTrades: 30, MaxPositionSize: 2000,
		RiskTolerance: 50, ProfitTargetPct: 5, StopLossPct: 7, ConfidenceThreshold: 0.65,
	},
	ModeAggressive: {
		Mode: ModeAggressive, MaxDailyTrades: 50, MaxPositionSize: 5000,
		RiskTolerance: 80, ProfitTargetPct: 10, StopLossPct: 15, ConfidenceThreshold: 0.50,
	},
	ModeProphet: {
		Mode: ModeProphet, MaxDailyTrades: 100, MaxPositionSize: 10000,
		RiskTolerance: 70, ProfitTargetPct: 15, StopLossPct: 10, ConfidenceThreshold: 0.60,
	},
}

// PresetFor returns the configuration for a mode.
func PresetFor(mode Mode) (Config, error) {
	cfg, ok := presets[mode]
	if !ok {
		return Config{}, fmt.Errorf("unknown bot mode %q", mode)
	}
	return cfg, nil
}
