package market

import (
	"context"
	"fmt"
	"time"

	"github.com/vitos/crypto_scalper/internal/domain"
	"go.uber.org/zap"
)

const (
	rsiPeriod       = 14
	atrPeriod       = 14
	adxPeriod       = 14
	defaultADX      = 25
	volumePeriod    = 20
	bollingerPeriod = 20
	bollingerK      = 2.0
	squeezeLookback = 50
)

type Config struct {
	Interval       string `yaml:"interval"`
	Limit          int    `yaml:"limit"`
	TrendPeriod    int    `yaml:"trend_period"`
	HigherInterval string `yaml:"higher_interval"`
}

func DefaultConfig() Config {
	return Config{Interval: "3", Limit: 250, TrendPeriod: 200}
}

// Provider builds MarketSnapshots from exchange candles.
type Provider struct {
	source  domain.CandleSource
	cfg     Config
	logger  *zap.Logger
	timeNow func() time.Time
}

func NewProvider(source domain.CandleSource, cfg Config, logger *zap.Logger) *Provider {
	def := DefaultConfig()
	if cfg.Interval == "" {
		cfg.Interval = def.Interval
	}
	if cfg.Limit <= 0 {
		cfg.Limit = def.Limit
	}
	if cfg.TrendPeriod <= 0 {
		cfg.TrendPeriod = def.TrendPeriod
	}
	return &Provider{source: source, cfg: cfg, logger: logger, timeNow: time.Now}
}

func (p *Provider) Snapshot(ctx context.Context, symbol string) (*domain.MarketSnapshot, error) {
	candles, err := p.source.GetCandles(ctx, symbol, p.cfg.Interval, p.cfg.Limit)
	if err != nil {
		return nil, fmt.Errorf("candles %s: %w", symbol, err)
	}
	if len(candles) < p.cfg.TrendPeriod {
		return nil, fmt.Errorf("candles %s: need %d, got %d", symbol, p.cfg.TrendPeriod, len(candles))
	}

	closes := make([]float64, len(candles))
	volumes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		volumes[i] = c.Volume
	}
	last := candles[len(candles)-1]

	ema, _ := EMA(closes, p.cfg.TrendPeriod)
	rsi, ok := RSI(closes, rsiPeriod)
	if !ok {
		return nil, fmt.Errorf("rsi %s: not enough data", symbol)
	}
	atr, _ := ATR(candles, atrPeriod)
	volBase, _ := SMA(volumes, volumePeriod)
	adx, ok := ADX(candles, adxPeriod)
	if !ok {
		adx = defaultADX
	}
	bands, _ := Bollinger(closes, bollingerPeriod, bollingerK)

	price, err := p.source.GetCurrentPrice(ctx, symbol)
	if err != nil || price <= 0 {
		p.logger.Debug("Ticker unavailable, using last close", zap.String("symbol", symbol), zap.Error(err))
		price = last.Close
	}

	snap := &domain.MarketSnapshot{
		Symbol:         symbol,
		CurrentPrice:   price,
		TrendAverage:   ema,
		RSI:            rsi,
		ADX:            adx,
		ATR:            atr,
		Volume:         last.Volume,
		VolumeBaseline: volBase,
		BollingerLower: bands.Lower,
		BollingerUpper: bands.Upper,
		Bandwidth:      bands.Bandwidth,
		InSqueeze:      InSqueeze(closes, bollingerPeriod, bollingerK, squeezeLookback),
		MarketTrend:    trend(price, ema),
		FetchedAt:      p.timeNow(),
	}

	if p.cfg.HigherInterval != "" {
		if err := p.addHigherTimeframe(ctx, snap); err != nil {
			// the multi-timeframe rule holds on missing data, so this is not fatal
			p.logger.Warn("Higher timeframe unavailable", zap.String("symbol", symbol), zap.Error(err))
		}
	}
	return snap, nil
}

func (p *Provider) addHigherTimeframe(ctx context.Context, snap *domain.MarketSnapshot) error {
	candles, err := p.source.GetCandles(ctx, snap.Symbol, p.cfg.HigherInterval, p.cfg.Limit)
	if err != nil {
		return err
	}
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	ema, ok := EMA(closes, p.cfg.TrendPeriod)
	if !ok {
		return fmt.Errorf("need %d candles, got %d", p.cfg.TrendPeriod, len(candles))
	}
	snap.HigherPrice = closes[len(closes)-1]
	snap.HigherTrendAverage = ema
	return nil
}

func trend(price, ema float64) string {
	if price > ema {
		return "bullish"
	}
	return "bearish"
}
