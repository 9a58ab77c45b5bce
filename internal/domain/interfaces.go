package domain

import (
	"context"
	"errors"
)

var (
	ErrPositionExists      = errors.New("position already open")
	ErrNoPosition          = errors.New("no open position")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrSnapshotMissing     = errors.New("market snapshot missing")
	ErrStrategyUnavailable = errors.New("strategy not loaded")
)

// OpenRequest carries everything needed to open a position.
type OpenRequest struct {
	Symbol    string
	Side      Side
	Quantity  float64
	Price     float64
	Leverage  int
	MarginUSD float64
	Reason    string
	Snapshot  *MarketSnapshot
}

// Executor is the execution contract shared by the simulated exchange and a
// live adapter. A nil event with a nil error means the call was a no-op.
type Executor interface {
	Open(ctx context.Context, req OpenRequest) (*TradeEvent, error)
	Close(ctx context.Context, symbol string, price float64, reason string, snap *MarketSnapshot) (*TradeEvent, error)
	Position(symbol string) (*Position, bool)
	Positions() []*Position
	// RaiseWatermark lifts the position's highest PnL% to at least pnlPct and
	// returns the resulting watermark.
	RaiseWatermark(symbol string, pnlPct float64) float64
	Summary() PortfolioSummary
}

// MarketDataProvider builds a snapshot for one symbol.
type MarketDataProvider interface {
	Snapshot(ctx context.Context, symbol string) (*MarketSnapshot, error)
}

// CandleSource is the part of an exchange the market provider needs.
type CandleSource interface {
	GetCandles(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)
}

// StateStore persists the simulated portfolio.
type StateStore interface {
	Load() (*PortfolioState, error)
	Save(state *PortfolioState) error
}

// TradeRecorder receives every open/close event.
type TradeRecorder interface {
	RecordTrade(ctx context.Context, event *TradeEvent) error
}

// TradeRepository is the queryable trade journal.
type TradeRepository interface {
	TradeRecorder
	ListTrades(ctx context.Context, limit int) ([]*TradeEvent, error)
	ListTradesBySymbol(ctx context.Context, symbol string, limit int) ([]*TradeEvent, error)
}

// TradeLogReader exposes the trailing window of the human-readable trade log.
type TradeLogReader interface {
	Tail(numBytes int64) (string, error)
}

// StrategyRepository loads and replaces the strategy document.
type StrategyRepository interface {
	LoadStrategy() (*Strategy, error)
	LoadRaw() ([]byte, error)
	SaveRaw(doc []byte) error
}

// Notifier delivers operator alerts.
type Notifier interface {
	SendErrorAlert(ctx context.Context, errs []string) error
	SendSummary(ctx context.Context, summary PortfolioSummary, positions []*Position) error
}

// StrategyAdvisor proposes a full replacement strategy document.
type StrategyAdvisor interface {
	ProposeStrategy(ctx context.Context, current []byte, tradeLog string, analyses []*MarketSnapshot) ([]byte, error)
}
