package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/vitos/crypto_scalper/internal/domain"
)

func TestObserver_ObserveCycle(t *testing.T) {
	o := NewObserver()
	longBefore := testutil.ToFloat64(Decisions.WithLabelValues("long"))
	exitsBefore := testutil.ToFloat64(Exits.WithLabelValues("take_profit", "short"))
	errorsBefore := testutil.ToFloat64(CycleErrors)

	o.ObserveCycle(domain.CycleReport{
		Cycle:    1,
		Duration: 250 * time.Millisecond,
		Summary:  domain.PortfolioSummary{TotalEquity: 1012.5, AvailableBalance: 900, OpenPositionsCount: 2},
		Decisions: map[string]domain.Decision{
			"BTCUSDT": {Command: domain.CommandLong},
			"ETHUSDT": {Command: domain.CommandHold},
		},
		Exits:  []domain.ExitRecord{{Symbol: "SOLUSDT", Side: domain.SideShort, Rule: "take_profit", PnL: 3}},
		Errors: []string{"[XRPUSDT] timeout"},
	})

	assert.Equal(t, 1012.5, testutil.ToFloat64(Equity))
	assert.Equal(t, 900.0, testutil.ToFloat64(Balance))
	assert.Equal(t, 2.0, testutil.ToFloat64(PositionsOpen))
	assert.Equal(t, longBefore+1, testutil.ToFloat64(Decisions.WithLabelValues("long")))
	assert.Equal(t, exitsBefore+1, testutil.ToFloat64(Exits.WithLabelValues("take_profit", "short")))
	assert.Equal(t, errorsBefore+1, testutil.ToFloat64(CycleErrors))
}

func TestObserver_HaltedCycleKeepsGauges(t *testing.T) {
	o := NewObserver()
	Equity.Set(500)
	o.ObserveCycle(domain.CycleReport{Halted: true, Errors: []string{"no data"}})
	assert.Equal(t, 500.0, testutil.ToFloat64(Equity))
}

func TestObserveStrategist(t *testing.T) {
	before := testutil.ToFloat64(StrategyUpdates.WithLabelValues("rejected"))
	ObserveStrategist("rejected")
	assert.Equal(t, before+1, testutil.ToFloat64(StrategyUpdates.WithLabelValues("rejected")))
}
