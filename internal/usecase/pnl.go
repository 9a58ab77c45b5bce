package usecase

import "github.com/vitos/crypto_scalper/internal/domain"

// PositionPnL is the PnL of pos if it were marked at price.
func PositionPnL(pos *domain.Position, price float64) float64 {
	if pos == nil {
		return 0
	}
	return (price - pos.EntryPrice) * pos.Quantity * pos.Side.Sign()
}

// PnLOnMarginPct expresses pnl as a percentage of margin.
func PnLOnMarginPct(pnl, margin float64) float64 {
	if margin <= 0 {
		return 0
	}
	return pnl / margin * 100
}

// Summarize computes the portfolio summary:
// equity = balance + sum(margin) + sum(unrealized pnl).
func Summarize(balance float64, positions map[string]*domain.Position) domain.PortfolioSummary {
	var margin, unrealized float64
	for _, p := range positions {
		margin += p.Margin
		unrealized += p.UnrealizedPnL
	}
	return domain.PortfolioSummary{
		AvailableBalance:   balance,
		TotalEquity:        balance + margin + unrealized,
		UnrealizedPnL:      unrealized,
		OpenPositionsCount: len(positions),
	}
}
