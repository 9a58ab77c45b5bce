package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/vitos/crypto_scalper/internal/infrastructure/exchange"
	"github.com/vitos/crypto_scalper/internal/infrastructure/llm"
	"github.com/vitos/crypto_scalper/internal/infrastructure/market"
	"github.com/vitos/crypto_scalper/internal/infrastructure/notifier"
	"github.com/vitos/crypto_scalper/internal/usecase"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Exchange struct {
		Name         string        `yaml:"name"`
		RESTEndpoint string        `yaml:"rest_endpoint"`
		Timeout      time.Duration `yaml:"timeout"`
	} `yaml:"exchange"`
	Symbols []string `yaml:"symbols"`
	Worker  struct {
		Interval            time.Duration `yaml:"interval"`
		ErrorAlertThreshold int           `yaml:"error_alert_threshold"`
		SummaryEveryCycles  int           `yaml:"summary_every_cycles"`
	} `yaml:"worker"`
	Simulation struct {
		Enabled          bool    `yaml:"enabled"`
		StartingBalance  float64 `yaml:"starting_balance"`
		MaxEquityHistory int     `yaml:"max_equity_history"`
	} `yaml:"simulation"`
	Execution usecase.ExecutionConfig `yaml:"execution"`
	Risk      usecase.RiskConfig      `yaml:"risk"`
	Market    market.Config           `yaml:"market"`
	Files     struct {
		State             string `yaml:"state"`
		Strategy          string `yaml:"strategy"`
		Journal           string `yaml:"journal"`
		TradeLog          string `yaml:"trade_log"`
		TradeLogMaxSizeMB int    `yaml:"trade_log_max_size_mb"`
		TradeLogBackups   int    `yaml:"trade_log_backups"`
	} `yaml:"files"`
	Notifications notifier.Config `yaml:"notifications"`
	LLM           llm.Config      `yaml:"llm"`
	Strategist    struct {
		Interval       time.Duration `yaml:"interval"`
		TradeLogWindow int64         `yaml:"trade_log_window"`
		SymbolPause    time.Duration `yaml:"symbol_pause"`
	} `yaml:"strategist"`
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Logging struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"logging"`
}

// Default is the configuration used for every key the file leaves out.
func Default() *Config {
	var c Config
	c.Exchange.Name = "bybit"
	c.Exchange.RESTEndpoint = exchange.BybitBaseURL
	c.Exchange.Timeout = 10 * time.Second
	c.Symbols = []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"}
	c.Worker.Interval = time.Minute
	c.Worker.ErrorAlertThreshold = 15
	c.Worker.SummaryEveryCycles = 120
	c.Simulation.Enabled = true
	c.Simulation.StartingBalance = 1000
	c.Simulation.MaxEquityHistory = usecase.DefaultMaxEquityHistory
	c.Execution = usecase.DefaultExecutionConfig()
	c.Risk = usecase.DefaultRiskConfig()
	c.Market = market.DefaultConfig()
	c.Files.State = "data/portfolio_state.json"
	c.Files.Strategy = "config/strategy.json"
	c.Files.Journal = "data/trades.db"
	c.Files.TradeLog = "data/trades.log"
	c.Files.TradeLogMaxSizeMB = 5
	c.Files.TradeLogBackups = 2
	c.Notifications.Port = 587
	c.LLM.BaseURL = llm.DefaultBaseURL
	c.LLM.Model = llm.DefaultModel
	c.LLM.Temperature = 0.5
	c.Strategist.Interval = 30 * time.Minute
	c.Strategist.TradeLogWindow = usecase.DefaultTradeLogWindow
	c.Strategist.SymbolPause = 2 * time.Second
	c.Server.Port = 8080
	c.Logging.Level = "info"
	return &c
}

// Load reads the YAML file over the defaults, applies environment overrides
// (a .env file next to the binary is honoured) and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	// .env is optional
	_ = godotenv.Load()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		c.Notifications.Password = v
	}
	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
}

// Validate rejects settings the bot cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Symbols) == 0 {
		errs = append(errs, errors.New("symbols: at least one symbol is required"))
	}
	if c.Worker.Interval <= 0 {
		errs = append(errs, errors.New("worker.interval must be positive"))
	}
	if c.Simulation.StartingBalance <= 0 {
		errs = append(errs, errors.New("simulation.starting_balance must be positive"))
	}
	if c.Execution.MinLeverage < 1 || c.Execution.MaxLeverage < c.Execution.MinLeverage {
		errs = append(errs, fmt.Errorf("execution: leverage range [%d,%d] is invalid",
			c.Execution.MinLeverage, c.Execution.MaxLeverage))
	}
	if c.Risk.TakeProfitPct <= 0 || c.Risk.StopLossPct <= 0 {
		errs = append(errs, errors.New("risk: take_profit_pct and stop_loss_pct must be positive"))
	}
	if c.Risk.EnableTrailingStop && c.Risk.TrailingDistancePct <= 0 {
		errs = append(errs, errors.New("risk: trailing_stop_distance_pct must be positive"))
	}
	if c.Market.Limit < c.Market.TrendPeriod {
		errs = append(errs, fmt.Errorf("market: limit %d is below trend_period %d",
			c.Market.Limit, c.Market.TrendPeriod))
	}
	if c.Files.State == "" || c.Files.Strategy == "" || c.Files.TradeLog == "" {
		errs = append(errs, errors.New("files: state, strategy and trade_log paths are required"))
	}
	return errors.Join(errs...)
}
