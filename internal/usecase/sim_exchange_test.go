package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/crypto_scalper/internal/domain"
	"github.com/vitos/crypto_scalper/internal/usecase"
	"go.uber.org/zap"
)

func TestSimulatedExchange_OpenDebitsMargin(t *testing.T) {
	rec := &recorderSpy{}
	ex, store := newExchange(t, 1000, rec)
	openPosition(t, ex, "BTCUSDT", domain.SideLong, 100, 2, 100, 1.5)

	sum := ex.Summary()
	assert.InDelta(t, 900.0, sum.AvailableBalance, epsilon)
	assert.InDelta(t, 1000.0, sum.TotalEquity, epsilon)
	assert.Equal(t, 1, sum.OpenPositionsCount)

	pos, ok := ex.Position("BTCUSDT")
	require.True(t, ok)
	assert.Equal(t, domain.SideLong, pos.Side)
	assert.InDelta(t, 1.5, pos.ATRAtEntry, epsilon)

	require.Len(t, rec.events, 1)
	assert.Equal(t, domain.TradeActionOpen, rec.events[0].Action)
	assert.NotEmpty(t, rec.events[0].ID)
	assert.Equal(t, 1, store.saves)
	assert.Contains(t, store.state.Positions, "BTCUSDT")
}

func TestSimulatedExchange_OpenNoOps(t *testing.T) {
	ctx := context.Background()
	ex, _ := newExchange(t, 1000)
	openPosition(t, ex, "BTCUSDT", domain.SideLong, 100, 1, 100, 0)

	tests := []struct {
		name string
		req  domain.OpenRequest
	}{
		{"duplicate symbol", domain.OpenRequest{Symbol: "BTCUSDT", Side: domain.SideShort, Quantity: 1, Price: 100, Leverage: 1, MarginUSD: 100}},
		{"insufficient balance", domain.OpenRequest{Symbol: "ETHUSDT", Side: domain.SideLong, Quantity: 1, Price: 100, Leverage: 1, MarginUSD: 5000}},
		{"zero quantity", domain.OpenRequest{Symbol: "ETHUSDT", Side: domain.SideLong, Quantity: 0, Price: 100, Leverage: 1, MarginUSD: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := ex.Open(ctx, tt.req)
			assert.NoError(t, err)
			assert.Nil(t, ev)
			assert.InDelta(t, 900.0, ex.Summary().AvailableBalance, epsilon)
			assert.Equal(t, 1, ex.Summary().OpenPositionsCount)
		})
	}
}

func TestSimulatedExchange_CloseWithoutPositionIsNoop(t *testing.T) {
	ex, store := newExchange(t, 1000)
	ev, err := ex.Close(context.Background(), "BTCUSDT", 100, "nothing", nil)
	assert.NoError(t, err)
	assert.Nil(t, ev)
	assert.InDelta(t, 1000.0, ex.Summary().AvailableBalance, epsilon)
	assert.Zero(t, store.saves)
}

func TestSimulatedExchange_ClosePnL(t *testing.T) {
	tests := []struct {
		name    string
		side    domain.Side
		exit    float64
		wantPnL float64
	}{
		{"long gain", domain.SideLong, 110, 20},
		{"long loss", domain.SideLong, 95, -10},
		{"short gain", domain.SideShort, 90, 20},
		{"short loss", domain.SideShort, 110, -20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex, _ := newExchange(t, 1000)
			openPosition(t, ex, "BTCUSDT", tt.side, 100, 2, 100, 0)

			ev, err := ex.Close(context.Background(), "BTCUSDT", tt.exit, "test", nil)
			require.NoError(t, err)
			require.NotNil(t, ev)
			assert.Equal(t, domain.TradeActionClose, ev.Action)
			assert.InDelta(t, tt.wantPnL, ev.PnL, epsilon)
			assert.InDelta(t, tt.wantPnL, ev.PnLPct, epsilon) // margin is 100
			assert.InDelta(t, 1000+tt.wantPnL, ex.Summary().AvailableBalance, epsilon)
			assert.Zero(t, ex.Summary().OpenPositionsCount)
		})
	}
}

func TestSimulatedExchange_EquityIdentity(t *testing.T) {
	ex, _ := newExchange(t, 1000)
	openPosition(t, ex, "BTCUSDT", domain.SideLong, 100, 2, 100, 0)
	openPosition(t, ex, "ETHUSDT", domain.SideShort, 50, 4, 50, 0)

	require.NoError(t, ex.UpdateMarks(map[string]*domain.MarketSnapshot{
		"BTCUSDT": {CurrentPrice: 105},
		"ETHUSDT": {CurrentPrice: 52},
	}))

	sum := ex.Summary()
	// BTC +10, ETH -8
	assert.InDelta(t, 2.0, sum.UnrealizedPnL, epsilon)
	assert.InDelta(t, 850.0, sum.AvailableBalance, epsilon)
	assert.InDelta(t, 850+150+2.0, sum.TotalEquity, epsilon)

	history := ex.EquityHistory()
	require.NotEmpty(t, history)
	assert.InDelta(t, sum.TotalEquity, history[len(history)-1].Equity, epsilon)
}

func TestSimulatedExchange_UpdateMarksSkipsMissingData(t *testing.T) {
	ex, store := newExchange(t, 1000)
	openPosition(t, ex, "BTCUSDT", domain.SideLong, 100, 1, 100, 0)
	saves := store.saves

	require.NoError(t, ex.UpdateMarks(map[string]*domain.MarketSnapshot{}))
	pos, _ := ex.Position("BTCUSDT")
	assert.InDelta(t, 100.0, pos.CurrentPrice, epsilon)
	assert.Equal(t, saves+1, store.saves)
}

func TestSimulatedExchange_HistoryDropsOldestFirst(t *testing.T) {
	store := &memStore{}
	ex := usecase.NewSimulatedExchange(store, 1000, 3, zap.NewNop())
	openPosition(t, ex, "BTCUSDT", domain.SideLong, 100, 1, 100, 0)

	// equity = 900 balance + 100 margin + (price - 100)
	for _, price := range []float64{101, 102, 103, 104, 105} {
		snaps := map[string]*domain.MarketSnapshot{"BTCUSDT": {Symbol: "BTCUSDT", CurrentPrice: price}}
		require.NoError(t, ex.UpdateMarks(snaps))
	}

	history := ex.EquityHistory()
	require.Len(t, history, 3)
	for i, want := range []float64{1003, 1004, 1005} {
		assert.InDelta(t, want, history[i].Equity, epsilon, "sample %d", i)
	}
	assert.False(t, history[1].Timestamp.Before(history[0].Timestamp))
	assert.False(t, history[2].Timestamp.Before(history[1].Timestamp))
	assert.Equal(t, history, store.state.EquityHistory)
}

func TestSimulatedExchange_RestoresSavedState(t *testing.T) {
	store := &memStore{}
	first := usecase.NewSimulatedExchange(store, 1000, 0, zap.NewNop())
	openPosition(t, first, "BTCUSDT", domain.SideShort, 100, 1, 25, 3)
	require.True(t, first.RaiseWatermark("BTCUSDT", 7) == 7)
	snaps := map[string]*domain.MarketSnapshot{"BTCUSDT": {Symbol: "BTCUSDT", CurrentPrice: 90}}
	require.NoError(t, first.UpdateMarks(snaps))
	require.InDelta(t, 10.0, first.Summary().UnrealizedPnL, epsilon)

	second := usecase.NewSimulatedExchange(store, 5000, 0, zap.NewNop())
	assert.Equal(t, first.Summary(), second.Summary())
	assert.Equal(t, first.EquityHistory(), second.EquityHistory())

	pos, ok := second.Position("BTCUSDT")
	require.True(t, ok)
	assert.Equal(t, domain.SideShort, pos.Side)
	assert.Equal(t, "BTCUSDT", pos.Symbol)
	assert.InDelta(t, 7.0, pos.HighestPnLPct, epsilon)
	assert.InDelta(t, 3.0, pos.ATRAtEntry, epsilon)
	assert.InDelta(t, 90.0, pos.CurrentPrice, epsilon)
}

func TestSimulatedExchange_UnreadableStateStartsFresh(t *testing.T) {
	store := &memStore{loadErr: errors.New("corrupt")}
	ex := usecase.NewSimulatedExchange(store, 1000, 0, zap.NewNop())
	assert.InDelta(t, 1000.0, ex.Summary().TotalEquity, epsilon)
	assert.Len(t, ex.EquityHistory(), 1)
}

func TestSimulatedExchange_SaveFailureIsReported(t *testing.T) {
	store := &memStore{saveErr: errors.New("disk full")}
	ex := usecase.NewSimulatedExchange(store, 1000, 0, zap.NewNop())
	_, err := ex.Open(context.Background(), domain.OpenRequest{
		Symbol: "BTCUSDT", Side: domain.SideLong, Quantity: 1, Price: 100, Leverage: 1, MarginUSD: 100,
	})
	require.Error(t, err)
	assert.ErrorContains(t, err, "persist state")
}

func TestSimulatedExchange_CloseIsRecordedWhenSaveFails(t *testing.T) {
	rec := &recorderSpy{}
	ex, store := newExchange(t, 1000, rec)
	openPosition(t, ex, "BTCUSDT", domain.SideLong, 100, 1, 100, 0)
	store.saveErr = errors.New("disk full")

	ev, err := ex.Close(context.Background(), "BTCUSDT", 95, "stop", nil)
	require.Error(t, err)
	require.NotNil(t, ev)
	assert.InDelta(t, -5.0, ev.PnL, epsilon)

	require.Len(t, rec.events, 2)
	assert.Equal(t, domain.TradeActionClose, rec.events[1].Action)
	_, open := ex.Position("BTCUSDT")
	assert.False(t, open)
}

func TestSimulatedExchange_RecorderFailureDoesNotFailTrade(t *testing.T) {
	rec := &recorderSpy{err: errors.New("journal down")}
	ex, _ := newExchange(t, 1000, rec)
	ev, err := ex.Open(context.Background(), domain.OpenRequest{
		Symbol: "BTCUSDT", Side: domain.SideLong, Quantity: 1, Price: 100, Leverage: 1, MarginUSD: 100,
	})
	require.NoError(t, err)
	assert.NotNil(t, ev)
}

func TestSimulatedExchange_PositionsAreCopies(t *testing.T) {
	ex, _ := newExchange(t, 1000)
	openPosition(t, ex, "ETHUSDT", domain.SideLong, 100, 1, 100, 0)
	openPosition(t, ex, "BTCUSDT", domain.SideLong, 100, 1, 100, 0)

	list := ex.Positions()
	require.Len(t, list, 2)
	assert.Equal(t, "BTCUSDT", list[0].Symbol)
	list[0].Margin = 0

	pos, _ := ex.Position("BTCUSDT")
	assert.InDelta(t, 100.0, pos.Margin, epsilon)
}
