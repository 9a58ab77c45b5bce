package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/crypto_scalper/internal/domain"
	"github.com/vitos/crypto_scalper/internal/usecase"
	"go.uber.org/zap"
)

type stubTradeLog struct {
	text string
	err  error
}

func (s stubTradeLog) Tail(n int64) (string, error) { return s.text, s.err }

type stubAdvisor struct {
	proposal []byte
	err      error
	gotLog   string
	gotCount int
}

func (a *stubAdvisor) ProposeStrategy(ctx context.Context, current []byte, tradeLog string, analyses []*domain.MarketSnapshot) ([]byte, error) {
	a.gotLog = tradeLog
	a.gotCount = len(analyses)
	return a.proposal, a.err
}

func newStrategist(t *testing.T, repo *fakeStrategies, log stubTradeLog, advisor *stubAdvisor) *usecase.StrategistService {
	t.Helper()
	market := &fakeMarket{snaps: map[string]*domain.MarketSnapshot{
		"BTCUSDT": bullishSnapshot("BTCUSDT"),
		"ETHUSDT": bullishSnapshot("ETHUSDT"),
	}}
	cfg := usecase.StrategistConfig{Symbols: []string{"BTCUSDT", "ETHUSDT", "XRPUSDT"}}
	return usecase.NewStrategistService(cfg, repo, log, market, advisor, zap.NewNop())
}

func TestStrategist_AppliesValidProposal(t *testing.T) {
	repo := &fakeStrategies{raw: defaultStrategyDoc(t, nil)}
	proposal := defaultStrategyDoc(t, func(m map[string]any) {
		m["comment"] = "tighten size after losses"
		section(m, "trade_parameters")["trade_amount_pct_of_balance"] = 5
	})
	advisor := &stubAdvisor{proposal: proposal}

	outcome, err := newStrategist(t, repo, stubTradeLog{text: "--- CLOSE EVENT ---"}, advisor).RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, usecase.OutcomeApplied, outcome)
	require.Len(t, repo.saved, 1)
	assert.Equal(t, 2, advisor.gotCount)
	assert.Equal(t, "--- CLOSE EVENT ---", advisor.gotLog)

	s, err := usecase.ValidateStrategy(repo.saved[0])
	require.NoError(t, err)
	assert.InDelta(t, 5.0, s.TradeParameters.TradeAmountPctOfBalance, epsilon)
}

func TestStrategist_IdenticalProposalIsNoChange(t *testing.T) {
	current := defaultStrategyDoc(t, nil)
	repo := &fakeStrategies{raw: current}
	// same document, different formatting
	advisor := &stubAdvisor{proposal: append([]byte("  "), current...)}

	outcome, err := newStrategist(t, repo, stubTradeLog{}, advisor).RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, usecase.OutcomeUnchanged, outcome)
	assert.Empty(t, repo.saved)
}

func TestStrategist_RejectsUnsafeProposal(t *testing.T) {
	repo := &fakeStrategies{raw: defaultStrategyDoc(t, nil)}
	advisor := &stubAdvisor{proposal: defaultStrategyDoc(t, func(m map[string]any) {
		section(m, "trade_parameters")["default_leverage"] = 100
	})}

	outcome, err := newStrategist(t, repo, stubTradeLog{}, advisor).RunCycle(context.Background())
	assert.Equal(t, usecase.OutcomeRejected, outcome)
	var verr *usecase.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "default_leverage", verr.Param)
	assert.Empty(t, repo.saved)
}

func TestStrategist_AdvisorFailureSkips(t *testing.T) {
	repo := &fakeStrategies{raw: defaultStrategyDoc(t, nil)}
	advisor := &stubAdvisor{err: errors.New("rate limited")}

	outcome, err := newStrategist(t, repo, stubTradeLog{}, advisor).RunCycle(context.Background())
	assert.Error(t, err)
	assert.Equal(t, usecase.OutcomeSkipped, outcome)
	assert.Empty(t, repo.saved)
}

func TestStrategist_TradeLogErrorIsPassedAlong(t *testing.T) {
	repo := &fakeStrategies{raw: defaultStrategyDoc(t, nil)}
	advisor := &stubAdvisor{proposal: defaultStrategyDoc(t, nil)}

	_, err := newStrategist(t, repo, stubTradeLog{err: errors.New("gone")}, advisor).RunCycle(context.Background())
	require.NoError(t, err)
	assert.Contains(t, advisor.gotLog, "gone")
}

func TestStrategist_NoMarketDataSkips(t *testing.T) {
	repo := &fakeStrategies{raw: defaultStrategyDoc(t, nil)}
	advisor := &stubAdvisor{}
	svc := usecase.NewStrategistService(
		usecase.StrategistConfig{Symbols: []string{"BTCUSDT"}},
		repo, stubTradeLog{}, &fakeMarket{err: errors.New("offline")}, advisor, zap.NewNop())

	outcome, err := svc.RunCycle(context.Background())
	assert.Error(t, err)
	assert.Equal(t, usecase.OutcomeSkipped, outcome)
	assert.Zero(t, advisor.gotCount)
}

func TestStrategist_RunReportsOutcomeAndStops(t *testing.T) {
	repo := &fakeStrategies{raw: defaultStrategyDoc(t, nil)}
	advisor := &stubAdvisor{proposal: defaultStrategyDoc(t, nil)}
	svc := newStrategist(t, repo, stubTradeLog{}, advisor)

	var outcomes []usecase.StrategistOutcome
	svc.OnOutcome(func(o usecase.StrategistOutcome) { outcomes = append(outcomes, o) })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc.Run(ctx, time.Hour)

	assert.Equal(t, []usecase.StrategistOutcome{usecase.OutcomeUnchanged}, outcomes)
	assert.Empty(t, repo.saved)
}
