package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/vitos/crypto_scalper/internal/domain"
	"go.uber.org/zap"
)

type WorkerConfig struct {
	Symbols             []string
	Interval            time.Duration
	ErrorAlertThreshold int
	SummaryEveryCycles  int
}

// MarkedExecutor is an executor that can be re-priced from snapshots.
type MarkedExecutor interface {
	domain.Executor
	UpdateMarks(snapshots map[string]*domain.MarketSnapshot) error
	EquityHistory() []domain.EquitySample
}

// ScalperWorker runs the fetch → mark → risk → decide → execute cycle.
type ScalperWorker struct {
	cfg        WorkerConfig
	market     domain.MarketDataProvider
	strategies domain.StrategyRepository
	exchange   MarkedExecutor
	risk       *RiskManager
	engine     *DecisionEngine
	executor   *TradeExecutor
	cooldowns  *CooldownBook
	notifier   domain.Notifier
	board      *StatusBoard
	observers  []domain.CycleObserver
	logger     *zap.Logger

	cycle                  int
	accumulatedErrors      []string
	consecutiveErrorCycles int
	timeNow                func() time.Time
}

func NewScalperWorker(
	cfg WorkerConfig,
	market domain.MarketDataProvider,
	strategies domain.StrategyRepository,
	exchange MarkedExecutor,
	risk *RiskManager,
	executor *TradeExecutor,
	cooldowns *CooldownBook,
	notifier domain.Notifier,
	board *StatusBoard,
	logger *zap.Logger,
	observers ...domain.CycleObserver,
) *ScalperWorker {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.ErrorAlertThreshold <= 0 {
		cfg.ErrorAlertThreshold = 15
	}
	return &ScalperWorker{
		cfg:        cfg,
		market:     market,
		strategies: strategies,
		exchange:   exchange,
		risk:       risk,
		engine:     NewDecisionEngine(),
		executor:   executor,
		cooldowns:  cooldowns,
		notifier:   notifier,
		board:      board,
		observers:  observers,
		logger:     logger,
		timeNow:    time.Now,
	}
}

// Run executes a cycle immediately and then on every tick until ctx is done.
// Cycles run on this goroutine, so they never overlap.
func (w *ScalperWorker) Run(ctx context.Context) {
	w.logger.Info("Starting scalper worker",
		zap.Strings("symbols", w.cfg.Symbols),
		zap.Duration("interval", w.cfg.Interval))

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		w.RunCycle(ctx)
		select {
		case <-ctx.Done():
			w.logger.Info("Scalper worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// RunCycle performs one full cycle and returns its report.
func (w *ScalperWorker) RunCycle(ctx context.Context) (report domain.CycleReport) {
	w.cycle++
	start := w.timeNow()
	report = domain.CycleReport{
		Cycle:     w.cycle,
		StartedAt: start,
		Decisions: make(map[string]domain.Decision),
	}
	log := w.logger.With(zap.Int("cycle", w.cycle))
	log.Info("Cycle start")

	defer func() {
		report.Duration = w.timeNow().Sub(start)
		for _, o := range w.observers {
			o.ObserveCycle(report)
		}
	}()

	// Reloaded each cycle so strategist updates apply on the next run.
	strategy, err := w.strategies.LoadStrategy()
	if err != nil {
		log.Error("Halting cycle, strategy rules not loaded", zap.Error(err))
		report.Halted = true
		report.Errors = append(report.Errors, fmt.Sprintf("strategy: %v", err))
		w.account(ctx, report.Errors)
		return report
	}

	// 1. fetch every symbol once
	snapshots := make(map[string]*domain.MarketSnapshot, len(w.cfg.Symbols))
	for _, symbol := range w.cfg.Symbols {
		var snap *domain.MarketSnapshot
		err := guard(func() error {
			var err error
			snap, err = w.market.Snapshot(ctx, symbol)
			return err
		})
		if err != nil || snap == nil {
			if err == nil {
				err = domain.ErrSnapshotMissing
			}
			msg := fmt.Sprintf("[%s] could not get market summary, skipped this cycle: %v", symbol, err)
			log.Warn("Market data unavailable", zap.String("symbol", symbol), zap.Error(err))
			report.Errors = append(report.Errors, msg)
			continue
		}
		snapshots[symbol] = snap
	}
	if len(snapshots) == 0 {
		log.Error("No market data for any symbol, skipping cycle")
		report.Halted = true
		w.account(ctx, report.Errors)
		return report
	}

	// 2. marks
	if err := w.exchange.UpdateMarks(snapshots); err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("update marks: %v", err))
	}

	// 3. TP / SL / trailing
	exits, errs := w.risk.Sweep(ctx, w.exchange, snapshots)
	for _, ex := range exits {
		w.executor.RegisterExit(ex.Event)
		report.Exits = append(report.Exits, domain.ExitRecord{
			Symbol: ex.Event.Symbol,
			Side:   ex.Event.Side,
			Rule:   string(ex.Rule),
			PnL:    ex.Event.PnL,
		})
	}
	for _, err := range errs {
		report.Errors = append(report.Errors, err.Error())
	}

	// 4. one summary for every decision this cycle
	summary := w.exchange.Summary()

	// 5. decide and execute
	for _, symbol := range w.cfg.Symbols {
		snap, ok := snapshots[symbol]
		if !ok {
			continue
		}
		err := guard(func() error {
			pos, _ := w.exchange.Position(symbol)
			d := w.engine.Decide(strategy, DecisionInput{
				Snapshot: snap,
				Position: pos,
				Summary:  summary,
				Cooldown: w.cooldowns.Active(symbol),
			})
			report.Decisions[symbol] = d
			log.Info("Engine decision",
				zap.String("symbol", symbol),
				zap.String("command", d.String()),
				zap.String("reason", d.Reasoning))
			_, err := w.executor.Execute(ctx, symbol, d, snap)
			return err
		})
		if err != nil {
			log.Error("Symbol processing failed", zap.String("symbol", symbol), zap.Error(err))
			report.Errors = append(report.Errors, fmt.Sprintf("[%s] %v", symbol, err))
		}
	}

	report.Summary = w.exchange.Summary()
	w.board.Publish(Status{
		Cycle:         w.cycle,
		UpdatedAt:     w.timeNow(),
		StrategyName:  strategy.StrategyName,
		Summary:       report.Summary,
		Positions:     w.exchange.Positions(),
		EquityHistory: w.exchange.EquityHistory(),
		Decisions:     report.Decisions,
		Errors:        report.Errors,
	})

	w.account(ctx, report.Errors)
	if w.cfg.SummaryEveryCycles > 0 && w.cycle%w.cfg.SummaryEveryCycles == 0 {
		log.Info("Sending periodic summary")
		if err := w.notifier.SendSummary(ctx, report.Summary, w.exchange.Positions()); err != nil {
			log.Error("Failed to send summary", zap.Error(err))
		}
	}

	log.Info("Cycle end",
		zap.Float64("equity", report.Summary.TotalEquity),
		zap.Int("open_positions", report.Summary.OpenPositionsCount),
		zap.Int("errors", len(report.Errors)))
	return report
}

// account accumulates cycle errors and alerts once the threshold is crossed.
func (w *ScalperWorker) account(ctx context.Context, cycleErrors []string) {
	if len(cycleErrors) == 0 {
		if w.consecutiveErrorCycles > 0 {
			w.logger.Info("Cycle succeeded, resetting error count",
				zap.Int("consecutive_error_cycles", w.consecutiveErrorCycles))
		}
		w.consecutiveErrorCycles = 0
		w.accumulatedErrors = nil
		return
	}

	w.consecutiveErrorCycles++
	w.accumulatedErrors = append(w.accumulatedErrors, cycleErrors...)
	w.logger.Warn("Cycle finished with errors",
		zap.Int("errors", len(cycleErrors)),
		zap.Int("accumulated", len(w.accumulatedErrors)),
		zap.Int("consecutive_error_cycles", w.consecutiveErrorCycles))

	if len(w.accumulatedErrors) >= w.cfg.ErrorAlertThreshold {
		if err := w.notifier.SendErrorAlert(ctx, w.accumulatedErrors); err != nil {
			w.logger.Error("Failed to send error alert", zap.Error(err))
		}
		w.consecutiveErrorCycles = 0
		w.accumulatedErrors = nil
	}
}

// PendingErrors is the number of accumulated errors not yet alerted.
func (w *ScalperWorker) PendingErrors() int {
	return len(w.accumulatedErrors)
}

// guard turns a panic inside fn into an error so one symbol cannot abort the cycle.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
