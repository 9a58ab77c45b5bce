package domain

import "time"

type Candle struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// MarketSnapshot is the per-cycle indicator view of one symbol.
type MarketSnapshot struct {
	Symbol         string  `json:"symbol"`
	CurrentPrice   float64 `json:"current_price"`
	TrendAverage   float64 `json:"ema_200"`
	RSI            float64 `json:"rsi_14"`
	ADX            float64 `json:"adx_14"`
	ATR            float64 `json:"atr_14"`
	Volume         float64 `json:"volume"`
	VolumeBaseline float64 `json:"volume_sma_20"`
	BollingerLower float64 `json:"bollinger_lower"`
	BollingerUpper float64 `json:"bollinger_upper"`
	Bandwidth      float64 `json:"bollinger_bandwidth"`
	InSqueeze      bool    `json:"is_in_bollinger_squeeze"`
	MarketTrend    string  `json:"market_trend"`

	// Higher-timeframe trend, zero when not fetched.
	HigherPrice        float64 `json:"higher_tf_price,omitempty"`
	HigherTrendAverage float64 `json:"higher_tf_ema,omitempty"`

	FetchedAt time.Time `json:"fetched_at"`
}

// CooldownEntry suppresses entries in Side until ExpiresAt.
type CooldownEntry struct {
	Side      Side      `json:"side"`
	ExpiresAt time.Time `json:"expires_at"`
}
