package domain

import "time"

type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// Opposite returns the other direction.
func (s Side) Opposite() Side {
	if s == SideLong {
		return SideShort
	}
	return SideLong
}

// Sign is +1 for long and -1 for short.
func (s Side) Sign() float64 {
	if s == SideShort {
		return -1
	}
	return 1
}

// Position represents an open leveraged position.
type Position struct {
	Symbol        string    `json:"symbol"`
	Side          Side      `json:"side"`
	EntryPrice    float64   `json:"entry_price"`
	CurrentPrice  float64   `json:"current_price"`
	Quantity      float64   `json:"quantity"`
	Leverage      int       `json:"leverage"`
	Margin        float64   `json:"margin"`
	UnrealizedPnL float64   `json:"unrealized_pnl"`
	HighestPnLPct float64   `json:"highest_pnl_pct"`
	ATRAtEntry    float64   `json:"atr_at_entry"`
	OpenedAt      time.Time `json:"opened_at"`
}

// PnLPct is the unrealized PnL as a percentage of margin.
func (p *Position) PnLPct() float64 {
	if p.Margin <= 0 {
		return 0
	}
	return p.UnrealizedPnL / p.Margin * 100
}

// EquitySample is one point of the equity curve.
type EquitySample struct {
	Timestamp time.Time `json:"timestamp"`
	Equity    float64   `json:"equity"`
}

// PortfolioState is the durable snapshot of the simulated account.
type PortfolioState struct {
	Balance       float64              `json:"balance"`
	Positions     map[string]*Position `json:"positions"`
	EquityHistory []EquitySample       `json:"equity_history"`
}

// PortfolioSummary is derived from PortfolioState, never stored.
type PortfolioSummary struct {
	AvailableBalance   float64 `json:"available_balance_usd"`
	TotalEquity        float64 `json:"total_equity_usd"`
	UnrealizedPnL      float64 `json:"unrealized_pnl_usd"`
	OpenPositionsCount int     `json:"open_positions_count"`
}

type TradeAction string

const (
	TradeActionOpen  TradeAction = "OPEN"
	TradeActionClose TradeAction = "CLOSE"
)

// TradeEvent is one open or close recorded to the trade log and journal.
type TradeEvent struct {
	ID         string          `json:"id"`
	Action     TradeAction     `json:"action"`
	Symbol     string          `json:"symbol"`
	Reason     string          `json:"reason"`
	Side       Side            `json:"side"`
	Quantity   float64         `json:"quantity"`
	Leverage   int             `json:"leverage"`
	Margin     float64         `json:"margin"`
	EntryPrice float64         `json:"entry_price"`
	ExitPrice  float64         `json:"exit_price,omitempty"`
	PnL        float64         `json:"pnl_usd,omitempty"`
	PnLPct     float64         `json:"pnl_pct,omitempty"`
	Snapshot   *MarketSnapshot `json:"market_data,omitempty"`
	Time       time.Time       `json:"time"`
}
