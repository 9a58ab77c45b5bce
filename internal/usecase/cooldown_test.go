package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/crypto_scalper/internal/domain"
)

func TestCooldownBook(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	book := NewCooldownBook()
	book.timeNow = func() time.Time { return now }

	book.Add("BTCUSDT", domain.SideLong, 15*time.Minute)
	cd := book.Active("BTCUSDT")
	require.NotNil(t, cd)
	assert.Equal(t, domain.SideLong, cd.Side)
	assert.Nil(t, book.Active("ETHUSDT"))

	// replaced by the newer entry
	book.Add("BTCUSDT", domain.SideShort, 5*time.Minute)
	cd = book.Active("BTCUSDT")
	require.NotNil(t, cd)
	assert.Equal(t, domain.SideShort, cd.Side)

	now = now.Add(4 * time.Minute)
	assert.NotNil(t, book.Active("BTCUSDT"))

	// expiry is inclusive and evicts the entry
	now = now.Add(time.Minute)
	assert.Nil(t, book.Active("BTCUSDT"))
	assert.Zero(t, book.Len())
}

func TestCooldownBook_IgnoresNonPositiveTTL(t *testing.T) {
	book := NewCooldownBook()
	book.Add("BTCUSDT", domain.SideLong, 0)
	assert.Nil(t, book.Active("BTCUSDT"))
	assert.Zero(t, book.Len())
}
