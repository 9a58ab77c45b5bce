package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vitos/crypto_scalper/internal/config"
	"github.com/vitos/crypto_scalper/internal/infrastructure/exchange"
	"github.com/vitos/crypto_scalper/internal/infrastructure/logger"
	"github.com/vitos/crypto_scalper/internal/infrastructure/market"
	"github.com/vitos/crypto_scalper/internal/infrastructure/metrics"
	"github.com/vitos/crypto_scalper/internal/infrastructure/notifier"
	"github.com/vitos/crypto_scalper/internal/infrastructure/storage"
	"github.com/vitos/crypto_scalper/internal/infrastructure/tradelog"
	"github.com/vitos/crypto_scalper/internal/usecase"
	"github.com/vitos/crypto_scalper/internal/web"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	// 1. Load Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Init Logger
	var log *zap.Logger
	if cfg.Logging.File != "" {
		log, err = logger.NewFileLogger(cfg.Logging.File, cfg.Logging.Level)
	} else {
		log, err = logger.NewLogger(cfg.Logging.Level)
	}
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if !cfg.Simulation.Enabled {
		log.Fatal("Live trading is not supported, set simulation.enabled: true")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Init Exchange (Bybit market data)
	bybitAdapter := exchange.NewBybitAdapter(cfg.Exchange.RESTEndpoint, cfg.Exchange.Timeout)
	checkSymbols(ctx, bybitAdapter, cfg.Symbols, log)
	provider := market.NewProvider(bybitAdapter, cfg.Market, log)

	// 4. Init Storage
	journal, err := storage.NewSQLiteStore(cfg.Files.Journal)
	if err != nil {
		log.Fatal("Failed to init sqlite", zap.Error(err))
	}
	defer journal.Close()

	tradeLog := tradelog.New(cfg.Files.TradeLog, cfg.Files.TradeLogMaxSizeMB, cfg.Files.TradeLogBackups)
	defer tradeLog.Close()

	strategies := storage.NewStrategyFile(cfg.Files.Strategy)

	// 5. Init Services
	simExchange := usecase.NewSimulatedExchange(
		storage.NewStateFile(cfg.Files.State),
		cfg.Simulation.StartingBalance,
		cfg.Simulation.MaxEquityHistory,
		log.Named("exchange"),
		journal, tradeLog,
	)
	cooldowns := usecase.NewCooldownBook()
	executor := usecase.NewTradeExecutor(simExchange, cooldowns, cfg.Execution, log.Named("executor"))
	risk := usecase.NewRiskManager(cfg.Risk, log.Named("risk"))
	mailer := notifier.NewMailer(cfg.Notifications, log.Named("mailer"))
	board := usecase.NewStatusBoard()

	worker := usecase.NewScalperWorker(
		usecase.WorkerConfig{
			Symbols:             cfg.Symbols,
			Interval:            cfg.Worker.Interval,
			ErrorAlertThreshold: cfg.Worker.ErrorAlertThreshold,
			SummaryEveryCycles:  cfg.Worker.SummaryEveryCycles,
		},
		provider, strategies, simExchange, risk, executor, cooldowns, mailer, board,
		log.Named("worker"),
		metrics.NewObserver(),
	)

	// 6. Init Web Server
	server := web.NewServer(cfg.Server.Port, board, journal, tradeLog, log.Named("web"))
	go func() {
		if err := server.Start(); err != nil {
			log.Error("Server failed", zap.Error(err))
			stop()
		}
	}()

	// 7. Run until signalled
	worker.Run(ctx)

	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
}

// checkSymbols warns about configured symbols the exchange does not list as
// tradable. A failed lookup is not fatal; market data errors surface per cycle.
func checkSymbols(ctx context.Context, ex *exchange.BybitAdapter, symbols []string, log *zap.Logger) {
	instruments, err := ex.GetInstruments(ctx)
	if err != nil {
		log.Warn("Could not verify symbols", zap.Error(err))
		return
	}
	tradable := make(map[string]bool, len(instruments))
	for _, in := range instruments {
		tradable[in.Symbol] = in.Tradable()
	}
	for _, s := range symbols {
		if !tradable[s] {
			log.Warn("Symbol is not tradable on the exchange", zap.String("symbol", s))
		}
	}
}
