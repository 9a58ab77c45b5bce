package usecase

import (
	"time"

	"github.com/vitos/crypto_scalper/internal/domain"
)

// CooldownBook is a per-symbol TTL map of entry suppressions.
type CooldownBook struct {
	entries map[string]domain.CooldownEntry
	timeNow func() time.Time
}

func NewCooldownBook() *CooldownBook {
	return &CooldownBook{
		entries: make(map[string]domain.CooldownEntry),
		timeNow: time.Now,
	}
}

// Add suppresses entries in side for symbol for ttl. A newer entry replaces an older one.
func (c *CooldownBook) Add(symbol string, side domain.Side, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.entries[symbol] = domain.CooldownEntry{
		Side:      side,
		ExpiresAt: c.timeNow().Add(ttl),
	}
}

// Active evicts the symbol's entry if expired and returns the live one, or nil.
func (c *CooldownBook) Active(symbol string) *domain.CooldownEntry {
	e, ok := c.entries[symbol]
	if !ok {
		return nil
	}
	if !c.timeNow().Before(e.ExpiresAt) {
		delete(c.entries, symbol)
		return nil
	}
	return &e
}

func (c *CooldownBook) Len() int {
	return len(c.entries)
}
