package ledger

import "time"

// TradeType is the direction of an executed trade.
type TradeType string

const (
	TradeBuy  TradeType = "BUY"
	TradeSell TradeType = "SELL"
)

// TradeStatus tracks trade execution state.
type TradeStatus string

const (
	StatusPending  TradeStatus = "PENDING"
	StatusExecuted TradeStatus = "EXECUTED"
	StatusFailed   TradeStatus = "FAILED"
)

// Trade is one executed exchange of an energy asset.
// Profit is populated on sells only.
type Trade struct {
	ID        string      `json:"id"`
	Type      TradeType   `json:"type"`
	AssetID   string      `json:"assetId"`
	Amount    float64     `json:"amount"`
	Price     float64     `json:"price"`
	Total     float64     `json:"total"`
	Profit    *float64    `json:"profit,omitempty"`
	Reason    string      `json:"reason"`
	Timestamp time.Time   `json:"timestamp"`
	Status    TradeStatus `json:"status"`
}

// Position is the open holding in one asset. One position per asset;
// removed when amount reaches zero.
type Position struct {
	AssetID      string  `json:"assetId"`
	Amount       float64 `json:"amount"`
	AvgCost      float64 `json:"avgCost"`
	CurrentPrice float64 `json:"currentPrice"`
}

// Value returns the position's mark-to-market value.
func (p Position) Value() float64 {
	return p.Amount * p.CurrentPrice
}

// UnrealizedPnL returns the profit if the position closed at the
// current price.
func (p Position) UnrealizedPnL() float64 {
	return (p.CurrentPrice - p.AvgCost) * p.Amount
}
