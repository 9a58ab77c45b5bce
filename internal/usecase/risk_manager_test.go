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

func sweepAt(t *testing.T, rm *usecase.RiskManager, ex *usecase.SimulatedExchange, symbol string, price float64) []usecase.RiskExit {
	t.Helper()
	snaps := map[string]*domain.MarketSnapshot{symbol: {Symbol: symbol, CurrentPrice: price}}
	require.NoError(t, ex.UpdateMarks(snaps))
	exits, errs := rm.Sweep(context.Background(), ex, snaps)
	require.Empty(t, errs)
	return exits
}

func TestRiskManager_ATRStopLong(t *testing.T) {
	cfg := usecase.DefaultRiskConfig()
	cfg.EnableTrailingStop = false
	rm := usecase.NewRiskManager(cfg, zap.NewNop())
	ex, _ := newExchange(t, 1000)
	openPosition(t, ex, "BTCUSDT", domain.SideLong, 100, 1, 100, 2)

	assert.Empty(t, sweepAt(t, rm, ex, "BTCUSDT", 97))

	exits := sweepAt(t, rm, ex, "BTCUSDT", 95)
	require.Len(t, exits, 1)
	assert.Equal(t, usecase.ExitATRStop, exits[0].Rule)
	assert.Contains(t, exits[0].Event.Reason, "DYNAMIC (ATR) STOP LOSS")
	assert.InDelta(t, -5.0, exits[0].Event.PnL, epsilon)

	_, open := ex.Position("BTCUSDT")
	assert.False(t, open)
}

func TestRiskManager_ATRStopShort(t *testing.T) {
	cfg := usecase.DefaultRiskConfig()
	cfg.EnableTrailingStop = false
	rm := usecase.NewRiskManager(cfg, zap.NewNop())
	ex, _ := newExchange(t, 1000)
	openPosition(t, ex, "ETHUSDT", domain.SideShort, 100, 1, 100, 2)

	assert.Empty(t, sweepAt(t, rm, ex, "ETHUSDT", 103))
	exits := sweepAt(t, rm, ex, "ETHUSDT", 104)
	require.Len(t, exits, 1)
	assert.Equal(t, usecase.ExitATRStop, exits[0].Rule)
}

func TestRiskManager_TakeProfit(t *testing.T) {
	rm := usecase.NewRiskManager(usecase.DefaultRiskConfig(), zap.NewNop())
	ex, _ := newExchange(t, 1000)
	openPosition(t, ex, "BTCUSDT", domain.SideLong, 100, 1, 10, 2)

	exits := sweepAt(t, rm, ex, "BTCUSDT", 103)
	require.Len(t, exits, 1)
	assert.Equal(t, usecase.ExitTakeProfit, exits[0].Rule)
	assert.Contains(t, exits[0].Event.Reason, "TAKE PROFIT")
}

func TestRiskManager_FallbackStopWithoutATR(t *testing.T) {
	rm := usecase.NewRiskManager(usecase.DefaultRiskConfig(), zap.NewNop())
	ex, _ := newExchange(t, 1000)
	openPosition(t, ex, "BTCUSDT", domain.SideLong, 100, 1, 10, 0)

	assert.Empty(t, sweepAt(t, rm, ex, "BTCUSDT", 99))
	exits := sweepAt(t, rm, ex, "BTCUSDT", 98)
	require.Len(t, exits, 1)
	assert.Equal(t, usecase.ExitFallbackStop, exits[0].Rule)
}

func TestRiskManager_TrailingStop(t *testing.T) {
	rm := usecase.NewRiskManager(usecase.DefaultRiskConfig(), zap.NewNop())
	ex, _ := newExchange(t, 1000)
	openPosition(t, ex, "BTCUSDT", domain.SideLong, 100, 1, 10, 2)

	// +15% arms the trailing stop with a floor at +10%.
	assert.Empty(t, sweepAt(t, rm, ex, "BTCUSDT", 101.5))
	pos, ok := ex.Position("BTCUSDT")
	require.True(t, ok)
	assert.InDelta(t, 15.0, pos.HighestPnLPct, 1e-6)

	// A smaller gain never lowers the watermark.
	assert.Empty(t, sweepAt(t, rm, ex, "BTCUSDT", 101.2))
	pos, _ = ex.Position("BTCUSDT")
	assert.InDelta(t, 15.0, pos.HighestPnLPct, 1e-6)

	exits := sweepAt(t, rm, ex, "BTCUSDT", 100.9)
	require.Len(t, exits, 1)
	assert.Equal(t, usecase.ExitTrailingStop, exits[0].Rule)
}

func TestRiskManager_ArmedTrailingSupersedesStaticStop(t *testing.T) {
	cfg := usecase.DefaultRiskConfig()
	cfg.TrailingTriggerPct = 5
	cfg.TrailingDistancePct = 20
	cfg.ATRMultiplier = 2
	rm := usecase.NewRiskManager(cfg, zap.NewNop())
	ex, _ := newExchange(t, 1000)
	// ATR stop at 100 - 0.1*2 = 99.8; +10% arms trailing with a floor at -10%
	openPosition(t, ex, "BTCUSDT", domain.SideLong, 100, 1, 10, 0.1)

	assert.Empty(t, sweepAt(t, rm, ex, "BTCUSDT", 101))

	// -3% is below the ATR stop but above the trailing floor
	assert.Empty(t, sweepAt(t, rm, ex, "BTCUSDT", 99.7))
	_, open := ex.Position("BTCUSDT")
	assert.True(t, open)

	exits := sweepAt(t, rm, ex, "BTCUSDT", 98)
	require.Len(t, exits, 1)
	assert.Equal(t, usecase.ExitTrailingStop, exits[0].Rule)
}

func TestRiskManager_StaticStopWhenTrailingNotArmed(t *testing.T) {
	cfg := usecase.DefaultRiskConfig()
	cfg.TrailingTriggerPct = 5
	cfg.TrailingDistancePct = 20
	cfg.ATRMultiplier = 2
	rm := usecase.NewRiskManager(cfg, zap.NewNop())
	ex, _ := newExchange(t, 1000)
	openPosition(t, ex, "BTCUSDT", domain.SideLong, 100, 1, 10, 0.1)

	exits := sweepAt(t, rm, ex, "BTCUSDT", 99.7)
	require.Len(t, exits, 1)
	assert.Equal(t, usecase.ExitATRStop, exits[0].Rule)
}

func TestRiskManager_ExitReportedWhenSaveFails(t *testing.T) {
	cfg := usecase.DefaultRiskConfig()
	cfg.EnableTrailingStop = false
	rm := usecase.NewRiskManager(cfg, zap.NewNop())
	rec := &recorderSpy{}
	ex, store := newExchange(t, 1000, rec)
	openPosition(t, ex, "BTCUSDT", domain.SideLong, 100, 1, 100, 2)
	store.saveErr = errors.New("disk full")

	snaps := map[string]*domain.MarketSnapshot{"BTCUSDT": {Symbol: "BTCUSDT", CurrentPrice: 95}}
	exits, errs := rm.Sweep(context.Background(), ex, snaps)
	require.Len(t, exits, 1)
	assert.Equal(t, usecase.ExitATRStop, exits[0].Rule)
	assert.InDelta(t, -5.0, exits[0].Event.PnL, epsilon)
	require.Len(t, errs, 1)
	assert.ErrorContains(t, errs[0], "disk full")

	require.Len(t, rec.events, 2)
	assert.Equal(t, domain.TradeActionClose, rec.events[1].Action)
}

func TestRiskManager_WatermarkResetsForNewPosition(t *testing.T) {
	rm := usecase.NewRiskManager(usecase.DefaultRiskConfig(), zap.NewNop())
	ex, _ := newExchange(t, 1000)
	openPosition(t, ex, "BTCUSDT", domain.SideLong, 100, 1, 10, 2)
	assert.Empty(t, sweepAt(t, rm, ex, "BTCUSDT", 101.5))

	_, err := ex.Close(context.Background(), "BTCUSDT", 101.5, "manual", nil)
	require.NoError(t, err)
	openPosition(t, ex, "BTCUSDT", domain.SideLong, 101.5, 1, 10, 2)

	pos, ok := ex.Position("BTCUSDT")
	require.True(t, ok)
	assert.Zero(t, pos.HighestPnLPct)
}

func TestRiskManager_SkipsSymbolsWithoutData(t *testing.T) {
	rm := usecase.NewRiskManager(usecase.DefaultRiskConfig(), zap.NewNop())
	ex, _ := newExchange(t, 1000)
	openPosition(t, ex, "BTCUSDT", domain.SideLong, 100, 1, 10, 2)

	exits, errs := rm.Sweep(context.Background(), ex, map[string]*domain.MarketSnapshot{})
	assert.Empty(t, exits)
	assert.Empty(t, errs)
	_, open := ex.Position("BTCUSDT")
	assert.True(t, open)
}
