package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vitos/crypto_scalper/internal/config"
	"github.com/vitos/crypto_scalper/internal/infrastructure/exchange"
	"github.com/vitos/crypto_scalper/internal/infrastructure/llm"
	"github.com/vitos/crypto_scalper/internal/infrastructure/logger"
	"github.com/vitos/crypto_scalper/internal/infrastructure/market"
	"github.com/vitos/crypto_scalper/internal/infrastructure/metrics"
	"github.com/vitos/crypto_scalper/internal/infrastructure/storage"
	"github.com/vitos/crypto_scalper/internal/infrastructure/tradelog"
	"github.com/vitos/crypto_scalper/internal/usecase"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run a single cycle and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Logging.Level)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if cfg.LLM.APIKey == "" {
		log.Fatal("No API key for the language model, set OPENROUTER_API_KEY")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bybitAdapter := exchange.NewBybitAdapter(cfg.Exchange.RESTEndpoint, cfg.Exchange.Timeout)
	provider := market.NewProvider(bybitAdapter, cfg.Market, log)

	// Read-only use; the bot owns the writer and rotation.
	tradeLog := tradelog.New(cfg.Files.TradeLog, cfg.Files.TradeLogMaxSizeMB, cfg.Files.TradeLogBackups)

	svc := usecase.NewStrategistService(
		usecase.StrategistConfig{
			Symbols:        cfg.Symbols,
			TradeLogWindow: cfg.Strategist.TradeLogWindow,
			SymbolPause:    cfg.Strategist.SymbolPause,
		},
		storage.NewStrategyFile(cfg.Files.Strategy),
		tradeLog,
		provider,
		llm.NewChatClient(cfg.LLM),
		log.Named("strategist"),
	)

	if *once {
		outcome, err := svc.RunCycle(ctx)
		metrics.ObserveStrategist(string(outcome))
		if err != nil {
			log.Error("Strategist cycle failed", zap.String("outcome", string(outcome)), zap.Error(err))
			os.Exit(1)
		}
		log.Info("Strategist cycle finished", zap.String("outcome", string(outcome)))
		return
	}

	svc.OnOutcome(func(o usecase.StrategistOutcome) {
		metrics.ObserveStrategist(string(o))
	})
	log.Info("Starting strategist", zap.Duration("interval", cfg.Strategist.Interval))
	svc.Run(ctx, cfg.Strategist.Interval)
	log.Info("Strategist stopped")
}
