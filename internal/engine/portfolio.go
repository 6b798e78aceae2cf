package engine

import (
	"math"
	"time"

	"energy-trading-bot/internal/market"
)

// PortfolioAsset is one open holding in the portfolio snapshot.
type PortfolioAsset struct {
	AssetID       string  `json:"assetId"`
	Name          string  `json:"name"`
	Type          string  `json:"type"`
	Amount        float64 `json:"amount"`
	AvgCost       float64 `json:"avgCost"`
	CurrentPrice  float64 `json:"currentPrice"`
	Value         float64 `json:"value"`
	PnL           float64 `json:"pnl"`
	PnLPercent    float64 `json:"pnlPercent"`
	AllocationPct float64 `json:"allocationPct"`
}

// PortfolioSummary aggregates the holdings.
type PortfolioSummary struct {
	TotalValue       float64 `json:"totalValue"`
	TotalPnL         float64 `json:"totalPnL"`
	TotalPnLPercent  float64 `json:"totalPnLPercent"`
	DayChangePercent float64 `json:"dayChangePercent"`
	AllTimeHigh      float64 `json:"allTimeHigh"`
	AllTimeLow       float64 `json:"allTimeLow"`
	PositionCount    int     `json:"positionCount"`
	WinRate          float64 `json:"winRate"`
}

// Portfolio is the full snapshot served to callers.
type Portfolio struct {
	Assets  []PortfolioAsset `json:"assets"`
	Summary PortfolioSummary `json:"summary"`
}

// buildPortfolio assembles the snapshot. Caller holds the engine lock.
func (e *Engine) buildPortfolio() Portfolio {
	positions := e.ledger.Positions()

	totalValue, totalCost := 0.0, 0.0
	for _, pos := range positions {
		totalValue += pos.Value()
		totalCost += pos.AvgCost * pos.Amount
	}

	assets := make([]PortfolioAsset, 0, len(positions))
	for _, pos := range positions {
		pa := PortfolioAsset{
			AssetID:      pos.AssetID,
			Amount:       round4(pos.Amount),
			AvgCost:      round4(pos.AvgCost),
			CurrentPrice: round4(pos.CurrentPrice),
			Value:        round2(pos.Value()),
			PnL:          round2(pos.UnrealizedPnL()),
		}
		if a, ok := market.AssetByID(e.assets, pos.AssetID); ok {
			pa.Name = a.Name
			pa.Type = string(a.Type)
		}
		if cost := pos.AvgCost * pos.Amount; cost > 0 {
			pa.PnLPercent = round2(pos.UnrealizedPnL() / cost * 100)
		}
		if totalValue > 0 {
			pa.AllocationPct = round2(pos.Value() / totalValue * 100)
		}
		assets = append(assets, pa)
	}

	summary := PortfolioSummary{
		TotalValue:    round2(totalValue),
		TotalPnL:      round2(totalValue - totalCost),
		PositionCount: len(positions),
		WinRate:       round2(e.ledger.WinRate()),
	}
	if totalCost > 0 {
		summary.TotalPnLPercent = round2((totalValue - totalCost) / totalCost * 100)
	}
	summary.DayChangePercent = e.dayChangePercent(totalValue)
	summary.AllTimeHigh, summary.AllTimeLow = e.valueExtremes()

	return Portfolio{Assets: assets, Summary: summary}
}

// dayChangePercent compares the current value to the oldest sample in
// the trailing 24 hours. Caller holds the engine lock.
func (e *Engine) dayChangePercent(currentValue float64) float64 {
	cutoff := e.clk.Now().Add(-24 * time.Hour)
	for _, vp := range e.valueSeries {
		if !vp.Timestamp.Before(cutoff) {
			if vp.Value > 0 {
				return round2((currentValue - vp.Value) / vp.Value * 100)
			}
			return 0
		}
	}
	return 0
}

func (e *Engine) valueExtremes() (high, low float64) {
	if len(e.valueSeries) == 0 {
		return 0, 0
	}
	high, low = e.valueSeries[0].Value, e.valueSeries[0].Value
	for _, vp := range e.valueSeries[1:] {
		if vp.Value > high {
			high = vp.Value
		}
		if vp.Value < low {
			low = vp.Value
		}
	}
	return high, low
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
