package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/vitos/crypto_scalper/internal/domain"
)

var (
	Equity = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scalper_equity_usd",
			Help: "Total equity of the simulated account.",
		},
	)

	Balance = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scalper_balance_usd",
			Help: "Available balance of the simulated account.",
		},
	)

	PositionsOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scalper_positions_open",
			Help: "Current number of open positions.",
		},
	)

	Decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scalper_decisions_total",
			Help: "Engine decisions by command.",
		},
		[]string{"command"},
	)

	// side is the side of the closed position
	Exits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scalper_exits_total",
			Help: "Risk-manager exits by rule and side.",
		},
		[]string{"rule", "side"},
	)

	CycleErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scalper_cycle_errors_total",
			Help: "Errors collected across all cycles.",
		},
	)

	Cycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scalper_cycles_total",
			Help: "Completed cycles, split by whether the cycle was halted.",
		},
		[]string{"halted"},
	)

	CycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scalper_cycle_duration_seconds",
			Help:    "Wall time of one worker cycle.",
			Buckets: prometheus.DefBuckets,
		},
	)

	StrategyUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scalper_strategy_updates_total",
			Help: "Strategist cycles by outcome (applied, unchanged, rejected, skipped).",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(Equity, Balance, PositionsOpen, Decisions, Exits,
		CycleErrors, Cycles, CycleDuration, StrategyUpdates)
}

// Observer feeds cycle reports into the collectors above.
type Observer struct{}

func NewObserver() *Observer {
	return &Observer{}
}

func (o *Observer) ObserveCycle(r domain.CycleReport) {
	halted := "false"
	if r.Halted {
		halted = "true"
	}
	Cycles.WithLabelValues(halted).Inc()
	CycleDuration.Observe(r.Duration.Seconds())
	CycleErrors.Add(float64(len(r.Errors)))

	for _, d := range r.Decisions {
		Decisions.WithLabelValues(string(d.Command)).Inc()
	}
	for _, ex := range r.Exits {
		Exits.WithLabelValues(ex.Rule, string(ex.Side)).Inc()
	}

	if r.Halted {
		return
	}
	Equity.Set(r.Summary.TotalEquity)
	Balance.Set(r.Summary.AvailableBalance)
	PositionsOpen.Set(float64(r.Summary.OpenPositionsCount))
}

// ObserveStrategist counts one strategist outcome.
func ObserveStrategist(result string) {
	StrategyUpdates.WithLabelValues(result).Inc()
}
