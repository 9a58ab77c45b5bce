package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vitos/crypto_scalper/internal/domain"
	"github.com/vitos/crypto_scalper/internal/usecase"
	"go.uber.org/zap"
)

const epsilon = 1e-9

// memStore keeps the portfolio in memory.
type memStore struct {
	state   *domain.PortfolioState
	loadErr error
	saveErr error
	saves   int
}

func (m *memStore) Load() (*domain.PortfolioState, error) { return m.state, m.loadErr }
func (m *memStore) Save(s *domain.PortfolioState) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.state = s
	return nil
}

type recorderSpy struct {
	mu     sync.Mutex
	events []*domain.TradeEvent
	err    error
}

func (r *recorderSpy) RecordTrade(ctx context.Context, ev *domain.TradeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

type fakeMarket struct {
	snaps map[string]*domain.MarketSnapshot
	err   error
	panic bool
	calls int
}

func (f *fakeMarket) Snapshot(ctx context.Context, symbol string) (*domain.MarketSnapshot, error) {
	f.calls++
	if f.panic {
		panic("indicator blew up")
	}
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.snaps[symbol]
	if !ok {
		return nil, errors.New("unknown symbol " + symbol)
	}
	cp := *s
	return &cp, nil
}

type fakeStrategies struct {
	strategy *domain.Strategy
	raw      []byte
	err      error
	saved    [][]byte
}

func (f *fakeStrategies) LoadStrategy() (*domain.Strategy, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.strategy, nil
}

func (f *fakeStrategies) LoadRaw() ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.raw, nil
}

func (f *fakeStrategies) SaveRaw(doc []byte) error {
	f.saved = append(f.saved, doc)
	f.raw = doc
	return nil
}

type fakeNotifier struct {
	alerts    [][]string
	summaries int
}

func (f *fakeNotifier) SendErrorAlert(ctx context.Context, errs []string) error {
	f.alerts = append(f.alerts, append([]string(nil), errs...))
	return nil
}

func (f *fakeNotifier) SendSummary(ctx context.Context, s domain.PortfolioSummary, p []*domain.Position) error {
	f.summaries++
	return nil
}

func newExchange(t *testing.T, balance float64, recorders ...domain.TradeRecorder) (*usecase.SimulatedExchange, *memStore) {
	t.Helper()
	store := &memStore{}
	return usecase.NewSimulatedExchange(store, balance, 0, zap.NewNop(), recorders...), store
}

func openPosition(t *testing.T, ex *usecase.SimulatedExchange, symbol string, side domain.Side, price, qty, margin, atr float64) {
	t.Helper()
	ev, err := ex.Open(context.Background(), domain.OpenRequest{
		Symbol:    symbol,
		Side:      side,
		Quantity:  qty,
		Price:     price,
		Leverage:  int(qty * price / margin),
		MarginUSD: margin,
		Reason:    "test",
		Snapshot:  &domain.MarketSnapshot{Symbol: symbol, CurrentPrice: price, ATR: atr},
	})
	require.NoError(t, err)
	require.NotNil(t, ev)
}

// bullishSnapshot satisfies every long entry gate of the default strategy.
func bullishSnapshot(symbol string) *domain.MarketSnapshot {
	return &domain.MarketSnapshot{
		Symbol:         symbol,
		CurrentPrice:   105,
		TrendAverage:   100,
		RSI:            45,
		ADX:            30,
		Volume:         120,
		VolumeBaseline: 100,
	}
}

func defaultStrategyDoc(t *testing.T, mutate func(m map[string]any)) []byte {
	t.Helper()
	s := domain.DefaultStrategy()
	raw, err := json.Marshal(s)
	require.NoError(t, err)
	if mutate == nil {
		return raw
	}
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	mutate(m)
	out, err := json.Marshal(m)
	require.NoError(t, err)
	return out
}
