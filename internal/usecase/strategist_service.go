package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vitos/crypto_scalper/internal/domain"
	"go.uber.org/zap"
)

type StrategistOutcome string

const (
	OutcomeSkipped   StrategistOutcome = "skipped"
	OutcomeUnchanged StrategistOutcome = "unchanged"
	OutcomeApplied   StrategistOutcome = "applied"
	OutcomeRejected  StrategistOutcome = "rejected"
)

// DefaultTradeLogWindow is how much of the trade log tail the advisor sees.
const DefaultTradeLogWindow = 4096

type StrategistConfig struct {
	Symbols        []string
	TradeLogWindow int64
	SymbolPause    time.Duration
}

// StrategistService asks an advisor for a new strategy and applies it only
// if it passes the safety bounds.
type StrategistService struct {
	cfg        StrategistConfig
	strategies domain.StrategyRepository
	tradeLog   domain.TradeLogReader
	market     domain.MarketDataProvider
	advisor    domain.StrategyAdvisor
	logger     *zap.Logger
	onOutcome  func(StrategistOutcome)
}

func NewStrategistService(
	cfg StrategistConfig,
	strategies domain.StrategyRepository,
	tradeLog domain.TradeLogReader,
	market domain.MarketDataProvider,
	advisor domain.StrategyAdvisor,
	logger *zap.Logger,
) *StrategistService {
	if cfg.TradeLogWindow <= 0 {
		cfg.TradeLogWindow = DefaultTradeLogWindow
	}
	return &StrategistService{
		cfg:        cfg,
		strategies: strategies,
		tradeLog:   tradeLog,
		market:     market,
		advisor:    advisor,
		logger:     logger,
	}
}

// OnOutcome registers fn to be called after every cycle run by Run.
func (s *StrategistService) OnOutcome(fn func(StrategistOutcome)) {
	s.onOutcome = fn
}

// Run calls RunCycle now and then every interval until ctx is done.
func (s *StrategistService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		outcome, err := s.RunCycle(ctx)
		if err != nil {
			s.logger.Warn("Strategist cycle finished with error", zap.String("outcome", string(outcome)), zap.Error(err))
		}
		if s.onOutcome != nil {
			s.onOutcome(outcome)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunCycle is read → analyze → propose → validate → update.
func (s *StrategistService) RunCycle(ctx context.Context) (StrategistOutcome, error) {
	current, err := s.strategies.LoadRaw()
	if err != nil {
		return OutcomeSkipped, fmt.Errorf("read current strategy: %w", err)
	}

	tradeLog, err := s.tradeLog.Tail(s.cfg.TradeLogWindow)
	if err != nil {
		tradeLog = fmt.Sprintf("Error reading trade log: %v", err)
	}

	var analyses []*domain.MarketSnapshot
	for i, symbol := range s.cfg.Symbols {
		if i > 0 && s.cfg.SymbolPause > 0 {
			select {
			case <-ctx.Done():
				return OutcomeSkipped, ctx.Err()
			case <-time.After(s.cfg.SymbolPause):
			}
		}
		snap, err := s.market.Snapshot(ctx, symbol)
		if err != nil {
			s.logger.Warn("Market analysis failed", zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		analyses = append(analyses, snap)
	}
	if len(analyses) == 0 {
		return OutcomeSkipped, errors.New("no market analysis for any symbol")
	}

	s.logger.Info("Asking advisor for strategy changes", zap.Int("symbols", len(analyses)))
	proposal, err := s.advisor.ProposeStrategy(ctx, current, tradeLog, analyses)
	if err != nil {
		return OutcomeSkipped, fmt.Errorf("advisor: %w", err)
	}

	same, err := sameDocument(current, proposal)
	if err != nil {
		return OutcomeRejected, err
	}
	if same {
		s.logger.Info("Advisor decided no changes are needed")
		return OutcomeUnchanged, nil
	}

	next, err := ValidateStrategy(proposal)
	if err != nil {
		s.logger.Warn("Proposed strategy failed validation, discarding", zap.Error(err))
		return OutcomeRejected, err
	}

	pretty, err := json.MarshalIndent(json.RawMessage(proposal), "", "  ")
	if err != nil {
		return OutcomeRejected, fmt.Errorf("format proposal: %w", err)
	}
	if err := s.strategies.SaveRaw(pretty); err != nil {
		return OutcomeSkipped, fmt.Errorf("write strategy: %w", err)
	}
	s.logger.Info("Strategy updated", zap.String("comment", next.Comment))
	return OutcomeApplied, nil
}

// sameDocument compares two JSON documents ignoring formatting and key order.
func sameDocument(a, b []byte) (bool, error) {
	ca, err := canonicalJSON(a)
	if err != nil {
		return false, fmt.Errorf("current strategy: %w", err)
	}
	cb, err := canonicalJSON(b)
	if err != nil {
		return false, fmt.Errorf("proposed strategy: %w", err)
	}
	return bytes.Equal(ca, cb), nil
}

func canonicalJSON(doc []byte) ([]byte, error) {
	var v any
	if err := json.Unmarshal(doc, &v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}
