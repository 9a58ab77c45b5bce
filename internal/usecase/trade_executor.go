package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/vitos/crypto_scalper/internal/domain"
	"go.uber.org/zap"
)

type ExecutionConfig struct {
	MinLeverage       int           `yaml:"min_leverage"`
	MaxLeverage       int           `yaml:"max_leverage"`
	CooldownAfterLoss time.Duration `yaml:"cooldown_after_loss"`
}

func DefaultExecutionConfig() ExecutionConfig {
	return ExecutionConfig{MinLeverage: 5, MaxLeverage: 25, CooldownAfterLoss: 15 * time.Minute}
}

// TradeExecutor turns decisions into exchange calls.
type TradeExecutor struct {
	exchange  domain.Executor
	cooldowns *CooldownBook
	cfg       ExecutionConfig
	logger    *zap.Logger
}

func NewTradeExecutor(exchange domain.Executor, cooldowns *CooldownBook, cfg ExecutionConfig, logger *zap.Logger) *TradeExecutor {
	return &TradeExecutor{
		exchange:  exchange,
		cooldowns: cooldowns,
		cfg:       cfg,
		logger:    logger,
	}
}

// Execute applies d to symbol. An opposite position is closed before a new
// one is opened; a same-side position is left alone.
func (e *TradeExecutor) Execute(ctx context.Context, symbol string, d domain.Decision, snap *domain.MarketSnapshot) ([]*domain.TradeEvent, error) {
	if d.Command == domain.CommandHold {
		return nil, nil
	}
	if snap == nil || snap.CurrentPrice <= 0 {
		return nil, fmt.Errorf("%s: %w", symbol, domain.ErrSnapshotMissing)
	}
	price := snap.CurrentPrice
	pos, hasPos := e.exchange.Position(symbol)

	switch d.Command {
	case domain.CommandClose:
		if !hasPos {
			e.logger.Debug("No position to close", zap.String("symbol", symbol))
			return nil, nil
		}
		ev, err := e.closePosition(ctx, symbol, price, d.Reasoning, snap)
		if ev == nil {
			return nil, err
		}
		return []*domain.TradeEvent{ev}, err

	case domain.CommandLong, domain.CommandShort:
		side := domain.SideLong
		if d.Command == domain.CommandShort {
			side = domain.SideShort
		}

		var events []*domain.TradeEvent
		if hasPos {
			if pos.Side == side {
				e.logger.Info("Already in position, skipping entry",
					zap.String("symbol", symbol), zap.String("side", string(side)))
				return nil, nil
			}
			ev, err := e.closePosition(ctx, symbol, price, "Reversing: "+d.Reasoning, snap)
			if err != nil {
				return nil, err
			}
			if ev != nil {
				events = append(events, ev)
			}
		}

		leverage := e.clampLeverage(d.Leverage)
		qty := d.TradeAmountUSD * float64(leverage) / price
		ev, err := e.exchange.Open(ctx, domain.OpenRequest{
			Symbol:    symbol,
			Side:      side,
			Quantity:  qty,
			Price:     price,
			Leverage:  leverage,
			MarginUSD: d.TradeAmountUSD,
			Reason:    d.Reasoning,
			Snapshot:  snap,
		})
		if ev != nil {
			events = append(events, ev)
		}
		return events, err
	}

	return nil, fmt.Errorf("unknown command %q", d.Command)
}

// RegisterExit puts the closed direction on cooldown after a losing exit.
func (e *TradeExecutor) RegisterExit(ev *domain.TradeEvent) {
	if ev == nil || ev.Action != domain.TradeActionClose || ev.PnL >= 0 {
		return
	}
	e.cooldowns.Add(ev.Symbol, ev.Side, e.cfg.CooldownAfterLoss)
	e.logger.Info("Cooldown started",
		zap.String("symbol", ev.Symbol),
		zap.String("side", string(ev.Side)),
		zap.Duration("ttl", e.cfg.CooldownAfterLoss))
}

func (e *TradeExecutor) closePosition(ctx context.Context, symbol string, price float64, reason string, snap *domain.MarketSnapshot) (*domain.TradeEvent, error) {
	ev, err := e.exchange.Close(ctx, symbol, price, reason, snap)
	e.RegisterExit(ev)
	return ev, err
}

func (e *TradeExecutor) clampLeverage(l int) int {
	if e.cfg.MinLeverage > 0 && l < e.cfg.MinLeverage {
		return e.cfg.MinLeverage
	}
	if e.cfg.MaxLeverage > 0 && l > e.cfg.MaxLeverage {
		return e.cfg.MaxLeverage
	}
	return l
}
