package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/vitos/crypto_scalper/internal/domain"
	"go.uber.org/zap"
)

// DefaultMaxEquityHistory keeps 24h of one-minute samples.
const DefaultMaxEquityHistory = 1440

// SimulatedExchange is a paper account holding leveraged positions. It is not
// safe for concurrent use; the cycle runner owns it.
type SimulatedExchange struct {
	store      domain.StateStore
	recorders  []domain.TradeRecorder
	logger     *zap.Logger
	maxHistory int

	balance   float64
	positions map[string]*domain.Position
	history   []domain.EquitySample

	timeNow func() time.Time
}

func NewSimulatedExchange(
	store domain.StateStore,
	startingBalance float64,
	maxHistory int,
	logger *zap.Logger,
	recorders ...domain.TradeRecorder,
) *SimulatedExchange {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxEquityHistory
	}
	e := &SimulatedExchange{
		store:      store,
		recorders:  recorders,
		logger:     logger,
		maxHistory: maxHistory,
		balance:    startingBalance,
		positions:  make(map[string]*domain.Position),
		timeNow:    time.Now,
	}
	e.restore(startingBalance)
	return e
}

func (e *SimulatedExchange) restore(startingBalance float64) {
	state, err := e.store.Load()
	if err != nil {
		e.logger.Warn("Could not read state, starting fresh", zap.Error(err))
		state = nil
	}
	if state == nil {
		e.logger.Info("No saved state, starting fresh", zap.Float64("balance", startingBalance))
		e.history = append(e.history, domain.EquitySample{Timestamp: e.timeNow(), Equity: startingBalance})
		return
	}

	e.balance = state.Balance
	for symbol, p := range state.Positions {
		if p == nil {
			continue
		}
		cp := *p
		cp.Symbol = symbol
		e.positions[symbol] = &cp
	}
	e.history = append(e.history, state.EquityHistory...)
	e.trimHistory()
	e.logger.Info("Loaded saved state",
		zap.Float64("balance", e.balance),
		zap.Int("positions", len(e.positions)),
		zap.Int("equity_samples", len(e.history)))
}

// Open debits margin and creates a position. Duplicate positions and
// insufficient balance are logged no-ops.
func (e *SimulatedExchange) Open(ctx context.Context, req domain.OpenRequest) (*domain.TradeEvent, error) {
	log := e.logger.With(zap.String("symbol", req.Symbol))

	if _, exists := e.positions[req.Symbol]; exists {
		log.Warn("Open ignored", zap.Error(domain.ErrPositionExists))
		return nil, nil
	}
	if req.MarginUSD > e.balance {
		log.Warn("Open ignored", zap.Error(domain.ErrInsufficientBalance),
			zap.Float64("need", req.MarginUSD), zap.Float64("have", e.balance))
		return nil, nil
	}
	if req.MarginUSD <= 0 || req.Price <= 0 || req.Quantity <= 0 {
		log.Warn("Open ignored: non-positive margin, price or quantity",
			zap.Float64("margin", req.MarginUSD), zap.Float64("price", req.Price), zap.Float64("quantity", req.Quantity))
		return nil, nil
	}

	leverage := req.Leverage
	if leverage < 1 {
		leverage = 1
	}
	var atr float64
	if req.Snapshot != nil && req.Snapshot.ATR > 0 {
		atr = req.Snapshot.ATR
	}

	now := e.timeNow()
	e.balance -= req.MarginUSD
	pos := &domain.Position{
		Symbol:       req.Symbol,
		Side:         req.Side,
		EntryPrice:   req.Price,
		CurrentPrice: req.Price,
		Quantity:     req.Quantity,
		Leverage:     leverage,
		Margin:       req.MarginUSD,
		ATRAtEntry:   atr,
		OpenedAt:     now,
	}
	e.positions[req.Symbol] = pos

	log.Info("Position opened",
		zap.String("side", string(req.Side)),
		zap.Float64("quantity", req.Quantity),
		zap.Float64("price", req.Price),
		zap.Float64("margin", req.MarginUSD),
		zap.Float64("balance", e.balance))

	event := &domain.TradeEvent{
		ID:         uuid.New().String(),
		Action:     domain.TradeActionOpen,
		Symbol:     req.Symbol,
		Reason:     req.Reason,
		Side:       req.Side,
		Quantity:   req.Quantity,
		Leverage:   leverage,
		Margin:     req.MarginUSD,
		EntryPrice: req.Price,
		Snapshot:   req.Snapshot,
		Time:       now,
	}
	// the trade happened even if the state write failed
	err := e.persist()
	e.record(ctx, event)
	return event, err
}

// Close realizes PnL and returns margin plus PnL to the balance. Closing a
// symbol without a position is a logged no-op.
func (e *SimulatedExchange) Close(ctx context.Context, symbol string, price float64, reason string, snap *domain.MarketSnapshot) (*domain.TradeEvent, error) {
	pos, ok := e.positions[symbol]
	if !ok {
		e.logger.Warn("Close ignored", zap.String("symbol", symbol), zap.Error(domain.ErrNoPosition))
		return nil, nil
	}

	pnl := PositionPnL(pos, price)
	e.balance += pos.Margin + pnl
	delete(e.positions, symbol)

	now := e.timeNow()
	event := &domain.TradeEvent{
		ID:         uuid.New().String(),
		Action:     domain.TradeActionClose,
		Symbol:     symbol,
		Reason:     reason,
		Side:       pos.Side,
		Quantity:   pos.Quantity,
		Leverage:   pos.Leverage,
		Margin:     pos.Margin,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  price,
		PnL:        pnl,
		PnLPct:     PnLOnMarginPct(pnl, pos.Margin),
		Snapshot:   snap,
		Time:       now,
	}

	e.logger.Info("Position closed",
		zap.String("symbol", symbol),
		zap.Float64("exit", price),
		zap.Float64("pnl", pnl),
		zap.Float64("margin_returned", pos.Margin),
		zap.Float64("balance", e.balance))

	// the trade happened even if the state write failed
	err := e.persist()
	e.record(ctx, event)
	return event, err
}

// UpdateMarks re-prices every open position that has a snapshot and always
// persists, so each cycle leaves an equity sample.
func (e *SimulatedExchange) UpdateMarks(snapshots map[string]*domain.MarketSnapshot) error {
	updated := 0
	for symbol, pos := range e.positions {
		snap, ok := snapshots[symbol]
		if !ok || snap == nil || snap.CurrentPrice <= 0 {
			e.logger.Warn("No market data for open position", zap.String("symbol", symbol))
			continue
		}
		pos.CurrentPrice = snap.CurrentPrice
		pos.UnrealizedPnL = PositionPnL(pos, snap.CurrentPrice)
		updated++
	}
	if len(e.positions) > 0 {
		e.logger.Debug("Marks updated", zap.Int("updated", updated), zap.Int("open", len(e.positions)))
	}
	return e.persist()
}

func (e *SimulatedExchange) RaiseWatermark(symbol string, pnlPct float64) float64 {
	pos, ok := e.positions[symbol]
	if !ok {
		return 0
	}
	if pnlPct > pos.HighestPnLPct {
		pos.HighestPnLPct = pnlPct
	}
	return pos.HighestPnLPct
}

func (e *SimulatedExchange) Summary() domain.PortfolioSummary {
	return Summarize(e.balance, e.positions)
}

// Position returns a copy of the symbol's position.
func (e *SimulatedExchange) Position(symbol string) (*domain.Position, bool) {
	p, ok := e.positions[symbol]
	if !ok {
		return nil, false
	}
	cp := *p
	return &cp, true
}

// Positions returns copies of all positions ordered by symbol.
func (e *SimulatedExchange) Positions() []*domain.Position {
	out := make([]*domain.Position, 0, len(e.positions))
	for _, p := range e.positions {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func (e *SimulatedExchange) EquityHistory() []domain.EquitySample {
	out := make([]domain.EquitySample, len(e.history))
	copy(out, e.history)
	return out
}

// State returns a deep copy of the persisted portfolio.
func (e *SimulatedExchange) State() *domain.PortfolioState {
	positions := make(map[string]*domain.Position, len(e.positions))
	for symbol, p := range e.positions {
		cp := *p
		positions[symbol] = &cp
	}
	return &domain.PortfolioState{
		Balance:       e.balance,
		Positions:     positions,
		EquityHistory: e.EquityHistory(),
	}
}

func (e *SimulatedExchange) persist() error {
	e.history = append(e.history, domain.EquitySample{
		Timestamp: e.timeNow(),
		Equity:    e.Summary().TotalEquity,
	})
	e.trimHistory()
	if err := e.store.Save(e.State()); err != nil {
		e.logger.Error("Failed to persist state", zap.Error(err))
		return fmt.Errorf("persist state: %w", err)
	}
	return nil
}

func (e *SimulatedExchange) trimHistory() {
	if over := len(e.history) - e.maxHistory; over > 0 {
		kept := make([]domain.EquitySample, e.maxHistory)
		copy(kept, e.history[over:])
		e.history = kept
	}
}

func (e *SimulatedExchange) record(ctx context.Context, event *domain.TradeEvent) {
	for _, r := range e.recorders {
		if err := r.RecordTrade(ctx, event); err != nil {
			e.logger.Warn("Failed to record trade", zap.String("symbol", event.Symbol), zap.Error(err))
		}
	}
}
