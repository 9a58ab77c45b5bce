package usecase

import (
	"fmt"
	"math"

	"github.com/vitos/crypto_scalper/internal/domain"
)

// DecisionInput is everything the engine may look at for one symbol.
type DecisionInput struct {
	Snapshot *domain.MarketSnapshot
	Position *domain.Position // nil when flat
	Summary  domain.PortfolioSummary
	Cooldown *domain.CooldownEntry
}

// DecisionEngine maps market and account state to a trade command. It holds
// no state: identical inputs always yield identical decisions.
type DecisionEngine struct{}

func NewDecisionEngine() *DecisionEngine {
	return &DecisionEngine{}
}

func (e *DecisionEngine) Decide(s *domain.Strategy, in DecisionInput) domain.Decision {
	snap := in.Snapshot
	if s == nil || snap == nil {
		return domain.Hold("No strategy or market data.")
	}
	if in.Position != nil {
		return e.manage(s, snap, in.Position)
	}
	return e.seekEntry(s, snap, in)
}

// manage only ever holds or closes an open position.
func (e *DecisionEngine) manage(s *domain.Strategy, snap *domain.MarketSnapshot, pos *domain.Position) domain.Decision {
	price, avg, rsi := snap.CurrentPrice, snap.TrendAverage, snap.RSI

	if s.Filters.UseEMATrendFilter && avg > 0 {
		if pos.Side == domain.SideLong && price < avg {
			return domain.Close(fmt.Sprintf("Closing long: trend reversed (price %.4f < EMA200 %.4f).", price, avg))
		}
		if pos.Side == domain.SideShort && price > avg {
			return domain.Close(fmt.Sprintf("Closing short: trend reversed (price %.4f > EMA200 %.4f).", price, avg))
		}
	}

	if s.Filters.UseRSIPullback {
		if pos.Side == domain.SideLong && rsi > s.LongConditions.RSIExitExtreme {
			return domain.Close(fmt.Sprintf("Closing long: RSI overbought (%.1f > %.1f).", rsi, s.LongConditions.RSIExitExtreme))
		}
		if pos.Side == domain.SideShort && rsi < s.ShortConditions.RSIExitExtreme {
			return domain.Close(fmt.Sprintf("Closing short: RSI oversold (%.1f < %.1f).", rsi, s.ShortConditions.RSIExitExtreme))
		}
	}

	return domain.Hold(fmt.Sprintf("Holding existing %s position.", pos.Side))
}

func (e *DecisionEngine) seekEntry(s *domain.Strategy, snap *domain.MarketSnapshot, in DecisionInput) domain.Decision {
	price, avg := snap.CurrentPrice, snap.TrendAverage
	if price <= 0 {
		return domain.Hold("No current price.")
	}
	if !s.Filters.UseEMATrendFilter {
		return e.zoneEntry(s, snap, in)
	}
	if avg <= 0 {
		return domain.Hold("Trend average unavailable.")
	}

	trend := trendSide(price, avg)

	// 1. cooldown on the trend-aligned direction
	if blocked(in.Cooldown, trend) {
		return domain.Hold(fmt.Sprintf("Cooldown active for %s entries after a recent loss.", trend))
	}

	// 2. no-trade zone
	if inNoTradeZone(s, price, avg) {
		return domain.Hold(fmt.Sprintf("Price %.4f within %.2f%% no-trade zone of EMA200 %.4f; market directionless.",
			price, s.Filters.NoTradeZonePct, avg))
	}

	// 3. trend classification
	if trend == "" {
		return domain.Hold("Price equals EMA200; no trend direction.")
	}

	switch s.EffectiveVariant() {
	case domain.VariantMultiTimeframe:
		if snap.HigherTrendAverage <= 0 || snap.HigherPrice <= 0 {
			return domain.Hold("Higher-timeframe trend unavailable.")
		}
		higher := trendSide(snap.HigherPrice, snap.HigherTrendAverage)
		if higher != trend {
			return domain.Hold(fmt.Sprintf("Timeframes disagree: entry trend %s, higher-timeframe trend %s.",
				trendName(trend), trendName(higher)))
		}
		return e.pullback(s, snap, in.Summary, trend, "Multi-timeframe pullback")

	case domain.VariantHybridRegime:
		lo, hi := s.Regime.ADXRangeThreshold, s.Regime.ADXTrendThreshold
		switch {
		case snap.ADX < lo:
			return e.meanReversion(s, snap, in.Summary, trend)
		case snap.ADX > hi:
			return e.pullback(s, snap, in.Summary, trend, fmt.Sprintf("Trend pullback (ADX %.1f > %.0f)", snap.ADX, hi))
		default:
			return domain.Hold(fmt.Sprintf("Indecisive market (ADX %.1f between %.0f and %.0f).", snap.ADX, lo, hi))
		}

	default:
		return e.pullback(s, snap, in.Summary, trend, "Trend pullback")
	}
}

// pullback applies the oscillator-zone and volume gates in the trend direction.
func (e *DecisionEngine) pullback(s *domain.Strategy, snap *domain.MarketSnapshot, sum domain.PortfolioSummary, trend domain.Side, label string) domain.Decision {
	cond := s.LongConditions
	if trend == domain.SideShort {
		cond = s.ShortConditions
	}

	if s.Filters.UseRSIPullback && !inZone(snap.RSI, cond) {
		return domain.Hold(fmt.Sprintf("Trend is %s but RSI %.1f is outside the %s pullback zone (%.0f-%.0f).",
			trendName(trend), snap.RSI, trend, cond.RSIEntryMin, cond.RSIEntryMax))
	}
	if !volumeConfirmed(s, snap) {
		return domain.Hold(fmt.Sprintf("Volume not confirmed (%.2f <= baseline %.2f).", snap.Volume, snap.VolumeBaseline))
	}

	return enter(s, sum, trend, fmt.Sprintf("%s %s: trend %s, RSI %.1f in zone, volume confirmed.",
		label, upper(trend), trendName(trend), snap.RSI))
}

// meanReversion enters against a band extension while staying with the main trend.
func (e *DecisionEngine) meanReversion(s *domain.Strategy, snap *domain.MarketSnapshot, sum domain.PortfolioSummary, trend domain.Side) domain.Decision {
	price := snap.CurrentPrice
	if trend == domain.SideLong && snap.BollingerLower > 0 && price <= snap.BollingerLower {
		return enter(s, sum, domain.SideLong, fmt.Sprintf(
			"Mean reversion LONG: main trend bullish, price %.4f hit lower Bollinger band %.4f.", price, snap.BollingerLower))
	}
	if trend == domain.SideShort && snap.BollingerUpper > 0 && price >= snap.BollingerUpper {
		return enter(s, sum, domain.SideShort, fmt.Sprintf(
			"Mean reversion SHORT: main trend bearish, price %.4f hit upper Bollinger band %.4f.", price, snap.BollingerUpper))
	}
	return domain.Hold(fmt.Sprintf("Ranging market (ADX %.1f < %.0f) but no mean reversion signal.",
		snap.ADX, s.Regime.ADXRangeThreshold))
}

// zoneEntry picks the direction from the oscillator alone when the trend filter is off.
func (e *DecisionEngine) zoneEntry(s *domain.Strategy, snap *domain.MarketSnapshot, in DecisionInput) domain.Decision {
	if snap.TrendAverage > 0 && inNoTradeZone(s, snap.CurrentPrice, snap.TrendAverage) {
		return domain.Hold(fmt.Sprintf("Price within %.2f%% no-trade zone of EMA200; market directionless.", s.Filters.NoTradeZonePct))
	}

	var side domain.Side
	switch {
	case inZone(snap.RSI, s.LongConditions):
		side = domain.SideLong
	case inZone(snap.RSI, s.ShortConditions):
		side = domain.SideShort
	default:
		return domain.Hold(fmt.Sprintf("RSI %.1f outside both entry zones.", snap.RSI))
	}
	if blocked(in.Cooldown, side) {
		return domain.Hold(fmt.Sprintf("Cooldown active for %s entries after a recent loss.", side))
	}
	if !volumeConfirmed(s, snap) {
		return domain.Hold(fmt.Sprintf("Volume not confirmed (%.2f <= baseline %.2f).", snap.Volume, snap.VolumeBaseline))
	}
	return enter(s, in.Summary, side, fmt.Sprintf("RSI zone %s: RSI %.1f, volume confirmed.", upper(side), snap.RSI))
}

func enter(s *domain.Strategy, sum domain.PortfolioSummary, side domain.Side, reason string) domain.Decision {
	leverage := s.TradeParameters.DefaultLeverage
	if leverage < 1 {
		leverage = 1
	}
	amount := sum.AvailableBalance * s.TradeParameters.TradeAmountPctOfBalance / 100
	if amount <= 0 {
		return domain.Hold("Entry signal but no available balance.")
	}
	cmd := domain.CommandLong
	if side == domain.SideShort {
		cmd = domain.CommandShort
	}
	return domain.Decision{
		Command:        cmd,
		Leverage:       leverage,
		Reasoning:      reason,
		TradeAmountUSD: amount,
	}
}

func trendSide(price, avg float64) domain.Side {
	switch {
	case price > avg:
		return domain.SideLong
	case price < avg:
		return domain.SideShort
	}
	return ""
}

func trendName(side domain.Side) string {
	switch side {
	case domain.SideLong:
		return "bullish"
	case domain.SideShort:
		return "bearish"
	}
	return "flat"
}

func upper(side domain.Side) string {
	if side == domain.SideShort {
		return "SHORT"
	}
	return "LONG"
}

// inZone treats both bounds as exclusive.
func inZone(rsi float64, c domain.Conditions) bool {
	return c.RSIEntryMin < rsi && rsi < c.RSIEntryMax
}

func inNoTradeZone(s *domain.Strategy, price, avg float64) bool {
	if s.Filters.NoTradeZonePct <= 0 {
		return false
	}
	return math.Abs(price-avg)/avg*100 < s.Filters.NoTradeZonePct
}

func volumeConfirmed(s *domain.Strategy, snap *domain.MarketSnapshot) bool {
	return !s.Filters.UseVolumeConfirmation || snap.Volume > snap.VolumeBaseline
}

func blocked(cd *domain.CooldownEntry, side domain.Side) bool {
	return cd != nil && side != "" && cd.Side == side
}
