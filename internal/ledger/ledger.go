// Package ledger owns open positions and the rolling trade history.
// All mutations go through ApplyTrade so the position invariants are
// enforced in one place.
package ledger

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// tradeHistoryCap bounds the retained trade history.
const tradeHistoryCap = 20

// coldStartWinRate is reported before any sell has completed. Stated
// default, revisit once enough closed trades exist to measure.
const coldStartWinRate = 0.65

// Ledger tracks positions keyed by asset id and a bounded trade log.
type Ledger struct {
	mu        sync.RWMutex
	positions map[string]*Position
	trades    []Trade
	logger    zerolog.Logger
}

// New creates an empty ledger.
func New(logger zerolog.Logger) *Ledger {
	return &Ledger{
		positions: make(map[string]*Position),
		logger:    logger.With().Str("component", "ledger").Logger(),
	}
}

// TradeRequest describes a trade to apply.
type TradeRequest struct {
	Type      TradeType
	AssetID   string
	Amount    float64
	Price     float64
	Reason    string
	Timestamp time.Time
}

// ApplyTrade records a trade and updates the position for its asset.
// Buys average into the position; sells are clamped to the held amount
// and realize profit against average cost. Selling with no open
// position is recorded as a zero-profit no-op.
func (l *Ledger) ApplyTrade(req TradeRequest) Trade {
	l.mu.Lock()
	defer l.mu.Unlock()

	trade := Trade{
		ID:        uuid.New().String(),
		Type:      req.Type,
		AssetID:   req.AssetID,
		Amount:    req.Amount,
		Price:     req.Price,
		Total:     req.Amount * req.Price,
		Reason:    req.Reason,
		Timestamp: req.Timestamp,
		Status:    StatusExecuted,
	}

	switch req.Type {
	case TradeBuy:
		l.applyBuy(&trade)
	case TradeSell:
		l.applySell(&trade)
	default:
		trade.Status = StatusFailed
		l.logger.Warn().Str("type", string(req.Type)).Msg("unknown trade type rejected")
	}

	l.trades = append(l.trades, trade)
	if len(l.trades) > tradeHistoryCap {
		l.trades = l.trades[len(l.trades)-tradeHistoryCap:]
	}
	return trade
}

func (l *Ledger) applyBuy(trade *Trade) {
	pos, ok := l.positions[trade.AssetID]
	if !ok {
		l.positions[trade.AssetID] = &Position{
			AssetID:      trade.AssetID,
			Amount:       trade.Amount,
			AvgCost:      trade.Price,
			CurrentPrice: trade.Price,
		}
		l.logger.Info().Str("asset", trade.AssetID).Float64("amount", trade.Amount).
			Float64("price", trade.Price).Msg("position opened")
		return
	}

	newAmount := pos.Amount + trade.Amount
	pos.AvgCost = (pos.AvgCost*pos.Amount + trade.Price*trade.Amount) / newAmount
	pos.Amount = newAmount
	pos.CurrentPrice = trade.Price
	l.logger.Info().Str("asset", trade.AssetID).Float64("amount", pos.Amount).
		Float64("avg_cost", pos.AvgCost).Msg("position increased")
}

func (l *Ledger) applySell(trade *Trade) {
	pos, ok := l.positions[trade.AssetID]
	if !ok {
		// upstream inconsistency, not fatal
		zero := 0.0
		trade.Profit = &zero
		trade.Amount = 0
		trade.Total = 0
		l.logger.Warn().Str("asset", trade.AssetID).Msg("sell without open position ignored")
		return
	}

	sellAmount := trade.Amount
	if sellAmount > pos.Amount {
		l.logger.Warn().Str("asset", trade.AssetID).
			Float64("requested", sellAmount).Float64("held", pos.Amount).
			Msg("sell clamped to held amount")
		sellAmount = pos.Amount
	}

	profit := (trade.Price - pos.AvgCost) * sellAmount
	trade.Profit = &profit
	trade.Amount = sellAmount
	trade.Total = sellAmount * trade.Price

	pos.Amount -= sellAmount
	pos.CurrentPrice = trade.Price
	if pos.Amount == 0 {
		delete(l.positions, trade.AssetID)
		l.logger.Info().Str("asset", trade.AssetID).Float64("profit", profit).Msg("position closed")
	} else {
		l.logger.Info().Str("asset", trade.AssetID).Float64("remaining", pos.Amount).
			Float64("profit", profit).Msg("position reduced")
	}
}

// MarkPrice updates the current price of an open position.
func (l *Ledger) MarkPrice(assetID string, price float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if pos, ok := l.positions[assetID]; ok {
		pos.CurrentPrice = price
	}
}

// Position returns a copy of the open position for an asset.
func (l *Ledger) Position(assetID string) (Position, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	pos, ok := l.positions[assetID]
	if !ok {
		return Position{}, false
	}
	return *pos, true
}

// Positions returns copies of all open positions.
func (l *Ledger) Positions() []Position {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Position, 0, len(l.positions))
	for _, pos := range l.positions {
		out = append(out, *pos)
	}
	return out
}

// Trades returns the retained trade history, oldest first.
func (l *Ledger) Trades() []Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

// TotalValue returns the mark-to-market value of all open positions.
func (l *Ledger) TotalValue() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	total := 0.0
	for _, pos := range l.positions {
		total += pos.Value()
	}
	return total
}

// WinRate is the share of profitable sells. Before any sell completes
// it reports coldStartWinRate.
func (l *Ledger) WinRate() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	sells, wins := 0, 0
	for _, t := range l.trades {
		if t.Type == TradeSell && t.Status == StatusExecuted && t.Profit != nil {
			sells++
			if *t.Profit > 0 {
				wins++
			}
		}
	}
	if sells == 0 {
		return coldStartWinRate
	}
	return float64(wins) / float64(sells)
}
