package usecase

import (
	"context"
	"fmt"

	"github.com/vitos/crypto_scalper/internal/domain"
	"go.uber.org/zap"
)

type RiskConfig struct {
	TakeProfitPct       float64 `yaml:"take_profit_pct"`
	StopLossPct         float64 `yaml:"stop_loss_pct"`
	ATRMultiplier       float64 `yaml:"atr_multiplier"`
	EnableTrailingStop  bool    `yaml:"enable_trailing_stop"`
	TrailingTriggerPct  float64 `yaml:"trailing_stop_trigger_pct"`
	TrailingDistancePct float64 `yaml:"trailing_stop_distance_pct"`
}

func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		TakeProfitPct:       25,
		StopLossPct:         15,
		ATRMultiplier:       2,
		EnableTrailingStop:  true,
		TrailingTriggerPct:  10,
		TrailingDistancePct: 5,
	}
}

// ExitRule names the rule that closed a position.
type ExitRule string

const (
	ExitTakeProfit   ExitRule = "take_profit"
	ExitTrailingStop ExitRule = "trailing_stop"
	ExitATRStop      ExitRule = "atr_stop_loss"
	ExitFallbackStop ExitRule = "fallback_stop_loss"
)

// RiskExit is one position closed by the sweep.
type RiskExit struct {
	Rule  ExitRule
	Event *domain.TradeEvent
}

// RiskManager closes positions on take-profit, trailing stop and static stop.
type RiskManager struct {
	cfg    RiskConfig
	logger *zap.Logger
}

func NewRiskManager(cfg RiskConfig, logger *zap.Logger) *RiskManager {
	return &RiskManager{cfg: cfg, logger: logger}
}

// Sweep checks every open position once. Errors are per symbol; one failing
// symbol never stops the others.
func (r *RiskManager) Sweep(ctx context.Context, exec domain.Executor, snapshots map[string]*domain.MarketSnapshot) ([]RiskExit, []error) {
	var exits []RiskExit
	var errs []error
	for _, pos := range exec.Positions() {
		snap := snapshots[pos.Symbol]
		if snap == nil {
			r.logger.Warn("No market data for TP/SL check, skipping", zap.String("symbol", pos.Symbol))
			continue
		}
		err := guard(func() error {
			exit, err := r.check(ctx, exec, pos, snap)
			if exit != nil {
				exits = append(exits, *exit)
			}
			return err
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("[%s] TP/SL check: %w", pos.Symbol, err))
		}
	}
	return exits, errs
}

func (r *RiskManager) check(ctx context.Context, exec domain.Executor, pos *domain.Position, snap *domain.MarketSnapshot) (*RiskExit, error) {
	if pos.Margin <= 0 || pos.EntryPrice <= 0 || snap.CurrentPrice <= 0 {
		return nil, nil
	}
	price := snap.CurrentPrice
	pnlPct := PnLOnMarginPct(PositionPnL(pos, price), pos.Margin)
	log := r.logger.With(zap.String("symbol", pos.Symbol), zap.Float64("pnl_pct", pnlPct))

	// 1. take profit
	if pnlPct >= r.cfg.TakeProfitPct {
		return r.close(ctx, exec, pos, snap, ExitTakeProfit,
			fmt.Sprintf("TAKE PROFIT triggered at %.2f%% (target %.2f%%)", pnlPct, r.cfg.TakeProfitPct))
	}

	// 2. trailing stop; the watermark moves every cycle, armed or not
	highest := exec.RaiseWatermark(pos.Symbol, pnlPct)
	armed := r.cfg.EnableTrailingStop && highest >= r.cfg.TrailingTriggerPct
	if armed {
		floor := highest - r.cfg.TrailingDistancePct
		log.Debug("Trailing stop armed", zap.Float64("highest", highest), zap.Float64("floor", floor))
		if pnlPct <= floor {
			return r.close(ctx, exec, pos, snap, ExitTrailingStop,
				fmt.Sprintf("TRAILING STOP LOSS triggered at %.2f%% (highest %.2f%%, floor %.2f%%)", pnlPct, highest, floor))
		}
		return nil, nil
	}

	// 3. static stop, superseded for good once trailing has armed
	if pos.ATRAtEntry > 0 {
		distance := pos.ATRAtEntry * r.cfg.ATRMultiplier
		if pos.Side == domain.SideLong {
			stop := pos.EntryPrice - distance
			if price <= stop {
				return r.close(ctx, exec, pos, snap, ExitATRStop,
					fmt.Sprintf("DYNAMIC (ATR) STOP LOSS triggered at %.4f (stop %.4f)", price, stop))
			}
		} else {
			stop := pos.EntryPrice + distance
			if price >= stop {
				return r.close(ctx, exec, pos, snap, ExitATRStop,
					fmt.Sprintf("DYNAMIC (ATR) STOP LOSS triggered at %.4f (stop %.4f)", price, stop))
			}
		}
		return nil, nil
	}

	if pnlPct <= -r.cfg.StopLossPct {
		return r.close(ctx, exec, pos, snap, ExitFallbackStop,
			fmt.Sprintf("FALLBACK STOP LOSS triggered at %.2f%% (limit -%.2f%%)", pnlPct, r.cfg.StopLossPct))
	}
	return nil, nil
}

func (r *RiskManager) close(ctx context.Context, exec domain.Executor, pos *domain.Position, snap *domain.MarketSnapshot, rule ExitRule, reason string) (*RiskExit, error) {
	r.logger.Info("Risk exit", zap.String("symbol", pos.Symbol), zap.String("rule", string(rule)), zap.String("reason", reason))
	event, err := exec.Close(ctx, pos.Symbol, snap.CurrentPrice, reason, snap)
	if event == nil {
		return nil, err
	}
	return &RiskExit{Rule: rule, Event: event}, err
}
