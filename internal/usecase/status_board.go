package usecase

import (
	"sync"
	"time"

	"github.com/vitos/crypto_scalper/internal/domain"
)

// Status is the read-only view published after every cycle.
type Status struct {
	Cycle         int                        `json:"cycle"`
	UpdatedAt     time.Time                  `json:"updated_at"`
	StrategyName  string                     `json:"strategy_name,omitempty"`
	Summary       domain.PortfolioSummary    `json:"portfolio_summary"`
	Positions     []*domain.Position         `json:"open_positions"`
	EquityHistory []domain.EquitySample      `json:"equity_history"`
	Decisions     map[string]domain.Decision `json:"decisions"`
	Errors        []string                   `json:"errors,omitempty"`
}

// StatusBoard hands the latest Status from the worker to HTTP readers. It is
// the only state shared across goroutines.
type StatusBoard struct {
	mu      sync.RWMutex
	current Status
	subs    map[chan Status]struct{}
}

func NewStatusBoard() *StatusBoard {
	return &StatusBoard{subs: make(map[chan Status]struct{})}
}

func (b *StatusBoard) Publish(s Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = s
	for ch := range b.subs {
		select {
		case ch <- s:
		default:
			// slow reader, it will pick up the next one
		}
	}
}

func (b *StatusBoard) Current() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.current
}

// Subscribe returns a channel of future statuses and a cancel func.
func (b *StatusBoard) Subscribe() (<-chan Status, func()) {
	ch := make(chan Status, 1)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}
