package market

import (
	"math"

	"github.com/vitos/crypto_scalper/internal/domain"
)

// EMA is seeded with the SMA of the first period values. ok is false when
// there are fewer than period values.
func EMA(values []float64, period int) (float64, bool) {
	if period <= 0 || len(values) < period {
		return 0, false
	}
	ema := mean(values[:period])
	alpha := 2 / float64(period+1)
	for _, v := range values[period:] {
		ema = alpha*v + (1-alpha)*ema
	}
	return ema, true
}

// SMA of the last period values.
func SMA(values []float64, period int) (float64, bool) {
	if period <= 0 || len(values) < period {
		return 0, false
	}
	return mean(values[len(values)-period:]), true
}

// RSI with Wilder smoothing.
func RSI(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) <= period {
		return 0, false
	}
	var gain, loss float64
	for i := 1; i <= period; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	gain /= float64(period)
	loss /= float64(period)
	for i := period + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		up, down := 0.0, 0.0
		if d > 0 {
			up = d
		} else {
			down = -d
		}
		gain = (gain*float64(period-1) + up) / float64(period)
		loss = (loss*float64(period-1) + down) / float64(period)
	}
	if loss == 0 {
		if gain == 0 {
			return 50, true
		}
		return 100, true
	}
	rs := gain / loss
	return 100 - 100/(1+rs), true
}

func trueRanges(candles []domain.Candle) []float64 {
	tr := make([]float64, len(candles))
	for i, c := range candles {
		if i == 0 {
			tr[i] = c.High - c.Low
			continue
		}
		prev := candles[i-1].Close
		tr[i] = math.Max(c.High-c.Low, math.Max(math.Abs(c.High-prev), math.Abs(c.Low-prev)))
	}
	return tr
}

// ATR with Wilder smoothing.
func ATR(candles []domain.Candle, period int) (float64, bool) {
	if period <= 0 || len(candles) <= period {
		return 0, false
	}
	tr := trueRanges(candles)[1:]
	atr := mean(tr[:period])
	for _, v := range tr[period:] {
		atr = (atr*float64(period-1) + v) / float64(period)
	}
	return atr, true
}

// ADX needs at least 2*period+1 candles.
func ADX(candles []domain.Candle, period int) (float64, bool) {
	if period <= 0 || len(candles) < 2*period+1 {
		return 0, false
	}
	n := len(candles)
	tr := trueRanges(candles)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		up := candles[i].High - candles[i-1].High
		down := candles[i-1].Low - candles[i].Low
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}

	var trS, plusS, minusS float64
	for i := 1; i <= period; i++ {
		trS += tr[i]
		plusS += plusDM[i]
		minusS += minusDM[i]
	}

	dx := func() float64 {
		if trS == 0 {
			return 0
		}
		plusDI := 100 * plusS / trS
		minusDI := 100 * minusS / trS
		if plusDI+minusDI == 0 {
			return 0
		}
		return 100 * math.Abs(plusDI-minusDI) / (plusDI + minusDI)
	}

	dxs := []float64{dx()}
	p := float64(period)
	for i := period + 1; i < n; i++ {
		trS = trS - trS/p + tr[i]
		plusS = plusS - plusS/p + plusDM[i]
		minusS = minusS - minusS/p + minusDM[i]
		dxs = append(dxs, dx())
	}

	adx := mean(dxs[:period])
	for _, v := range dxs[period:] {
		adx = (adx*(p-1) + v) / p
	}
	return adx, true
}

// Bands is one Bollinger reading.
type Bands struct {
	Lower, Middle, Upper float64
	// Bandwidth is (upper-lower)/close.
	Bandwidth float64
}

// Bollinger computes bands over closes ending at the last value.
func Bollinger(closes []float64, period int, k float64) (Bands, bool) {
	if period <= 0 || len(closes) < period {
		return Bands{}, false
	}
	window := closes[len(closes)-period:]
	mid := mean(window)
	var ss float64
	for _, v := range window {
		ss += (v - mid) * (v - mid)
	}
	sd := math.Sqrt(ss / float64(period))
	b := Bands{Lower: mid - k*sd, Middle: mid, Upper: mid + k*sd}
	if last := closes[len(closes)-1]; last != 0 {
		b.Bandwidth = (b.Upper - b.Lower) / last
	}
	return b, true
}

// InSqueeze reports whether the current bandwidth is within 10% of its
// minimum over the last lookback bars.
func InSqueeze(closes []float64, period int, k float64, lookback int) bool {
	if len(closes) <= lookback || len(closes) < period+lookback-1 {
		return false
	}
	minBW := math.Inf(1)
	var current float64
	for end := len(closes) - lookback + 1; end <= len(closes); end++ {
		b, ok := Bollinger(closes[:end], period, k)
		if !ok {
			return false
		}
		minBW = math.Min(minBW, b.Bandwidth)
		current = b.Bandwidth
	}
	return current <= minBW*1.1
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
