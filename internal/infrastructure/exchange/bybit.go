package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/vitos/crypto_scalper/internal/domain"
)

const (
	BybitBaseURL  = "https://api.bybit.com"
	BybitCategory = "linear"
)

// BybitAdapter reads public market data from the Bybit v5 REST API.
type BybitAdapter struct {
	baseURL string
	client  *http.Client
}

func NewBybitAdapter(baseURL string, timeout time.Duration) *BybitAdapter {
	if baseURL == "" {
		baseURL = BybitBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &BybitAdapter{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type envelope struct {
	RetCode int             `json:"retCode"`
	RetMsg  string          `json:"retMsg"`
	Result  json.RawMessage `json:"result"`
}

func (b *BybitAdapter) get(ctx context.Context, path string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("API error: %s: %s", resp.Status, string(body))
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	if env.RetCode != 0 {
		return fmt.Errorf("bybit api error %d: %s", env.RetCode, env.RetMsg)
	}
	return json.Unmarshal(env.Result, out)
}

func (b *BybitAdapter) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	var result struct {
		List []struct {
			LastPrice string `json:"lastPrice"`
		} `json:"list"`
	}
	q := url.Values{"category": {BybitCategory}, "symbol": {symbol}}
	if err := b.get(ctx, "/v5/market/tickers", q, &result); err != nil {
		return 0, err
	}
	if len(result.List) == 0 {
		return 0, fmt.Errorf("symbol %s not found", symbol)
	}
	return strconv.ParseFloat(result.List[0].LastPrice, 64)
}

// GetCandles returns up to limit closed and forming candles, oldest first.
func (b *BybitAdapter) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error) {
	var result struct {
		List [][]string `json:"list"`
	}
	q := url.Values{
		"category": {BybitCategory},
		"symbol":   {symbol},
		"interval": {interval},
		"limit":    {strconv.Itoa(limit)},
	}
	if err := b.get(ctx, "/v5/market/kline", q, &result); err != nil {
		return nil, err
	}

	candles := make([]domain.Candle, 0, len(result.List))
	for _, raw := range result.List {
		// [startTime, open, high, low, close, volume, turnover]
		if len(raw) < 6 {
			continue
		}
		c, err := parseCandle(raw)
		if err != nil {
			return nil, fmt.Errorf("kline %s: %w", symbol, err)
		}
		candles = append(candles, c)
	}

	// Bybit returns newest first
	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}
	return candles, nil
}

func parseCandle(raw []string) (domain.Candle, error) {
	var c domain.Candle
	ts, err := strconv.ParseInt(raw[0], 10, 64)
	if err != nil {
		return c, err
	}
	c.Time = ts / 1000
	fields := []*float64{&c.Open, &c.High, &c.Low, &c.Close, &c.Volume}
	for i, dst := range fields {
		if *dst, err = strconv.ParseFloat(raw[i+1], 64); err != nil {
			return c, err
		}
	}
	return c, nil
}

func (b *BybitAdapter) GetInstruments(ctx context.Context) ([]domain.Instrument, error) {
	var result struct {
		List []struct {
			Symbol    string `json:"symbol"`
			BaseCoin  string `json:"baseCoin"`
			QuoteCoin string `json:"quoteCoin"`
			Status    string `json:"status"`
		} `json:"list"`
	}
	q := url.Values{"category": {BybitCategory}, "limit": {"1000"}}
	if err := b.get(ctx, "/v5/market/instruments-info", q, &result); err != nil {
		return nil, err
	}

	instruments := make([]domain.Instrument, 0, len(result.List))
	for _, item := range result.List {
		instruments = append(instruments, domain.Instrument{
			Symbol:    item.Symbol,
			BaseCoin:  item.BaseCoin,
			QuoteCoin: item.QuoteCoin,
			Status:    item.Status,
		})
	}
	return instruments, nil
}
