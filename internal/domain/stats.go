package domain

import "time"

// CycleReport summarizes one worker cycle for observers.
type CycleReport struct {
	Cycle     int
	StartedAt time.Time
	Duration  time.Duration
	Summary   PortfolioSummary
	Decisions map[string]Decision
	Exits     []ExitRecord
	Errors    []string
	Halted    bool
}

// ExitRecord is a risk-driven close.
type ExitRecord struct {
	Symbol string
	Side   Side
	Rule   string
	PnL    float64
}

// CycleObserver is told about every finished cycle.
type CycleObserver interface {
	ObserveCycle(report CycleReport)
}
