package tradelog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/vitos/crypto_scalper/internal/domain"
	"gopkg.in/natefinch/lumberjack.v2"
)

const separator = "--------------------------------------------------"

// NotFoundText is what Tail returns before the first trade is written.
const NotFoundText = "Trade log not found. No trades have been made yet."

// TradeLog is the human-readable trade history. It rotates by size and is
// read back in windows by the strategist.
type TradeLog struct {
	path string
	mu   sync.Mutex
	out  *lumberjack.Logger
}

func New(path string, maxSizeMB, maxBackups int) *TradeLog {
	if maxSizeMB <= 0 {
		maxSizeMB = 5
	}
	return &TradeLog{
		path: path,
		out: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
		},
	}
}

// RecordTrade appends one event block.
func (l *TradeLog) RecordTrade(ctx context.Context, ev *domain.TradeEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := io.WriteString(l.out, Format(ev))
	return err
}

// Tail returns at most numBytes from the end of the current file.
func (l *TradeLog) Tail(numBytes int64) (string, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return NotFoundText, nil
	}
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	offset := info.Size() - numBytes
	if offset < 0 || numBytes <= 0 {
		offset = 0
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return "", err
	}
	raw, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}
	// the window may start inside a multi-byte rune
	for offset > 0 && len(raw) > 0 && !utf8.RuneStart(raw[0]) {
		raw = raw[1:]
	}
	return string(raw), nil
}

func (l *TradeLog) Close() error {
	return l.out.Close()
}

// Format renders ev as a log block.
func Format(ev *domain.TradeEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "--- %s EVENT: %s | %s ---\n", ev.Action, ev.Symbol, ev.Time.UTC().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Reason: %s\n", ev.Reason)
	fmt.Fprintf(&b, "Position: %s | Qty: %.6f | Leverage: %dx | Margin: $%.2f\n",
		strings.ToUpper(string(ev.Side)), ev.Quantity, ev.Leverage, ev.Margin)
	if s := ev.Snapshot; s != nil {
		fmt.Fprintf(&b, "Signals: Price: %.4f | EMA200: %.4f | RSI: %.2f | Trend: %s\n",
			s.CurrentPrice, s.TrendAverage, s.RSI, trendLabel(s))
	}
	if ev.Action == domain.TradeActionClose {
		fmt.Fprintf(&b, "Entry: $%.4f | Exit: $%.4f\n", ev.EntryPrice, ev.ExitPrice)
		fmt.Fprintf(&b, "Result: PnL: $%.4f | PnL %% on Margin: %.2f%%\n", ev.PnL, ev.PnLPct)
	} else {
		fmt.Fprintf(&b, "Entry Price: $%.4f\n", ev.EntryPrice)
	}
	b.WriteString(separator)
	b.WriteString("\n\n")
	return b.String()
}

func trendLabel(s *domain.MarketSnapshot) string {
	if s.MarketTrend != "" {
		return s.MarketTrend
	}
	switch {
	case s.TrendAverage <= 0:
		return "unknown"
	case s.CurrentPrice > s.TrendAverage:
		return "bullish"
	case s.CurrentPrice < s.TrendAverage:
		return "bearish"
	}
	return "flat"
}
