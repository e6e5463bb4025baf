// Package indicators provides technical analysis functions over price series.
//
// Every function degrades to a documented neutral value when the series is
// shorter than its warmup; none of them panics or returns NaN.
package indicators

import "math"

// RSI computes the relative strength index over the trailing period.
// Returns the neutral value 50 when fewer than period+1 prices are available.
func RSI(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return 50
	}

	var gain, loss float64
	for i := len(closes) - period; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gain += delta
		} else {
			loss -= delta
		}
	}
	gain /= float64(period)
	loss /= float64(period)

	if loss == 0 {
		if gain == 0 {
			return 50
		}
		return 100
	}
	rs := gain / loss
	return 100 - 100/(1+rs)
}

// EMA computes an exponential moving average series seeded with the first
// value, matching the usual span-based smoothing alpha = 2/(period+1).
func EMA(values []float64, period int) []float64 {
	if len(values) == 0 || period <= 0 {
		return nil
	}
	alpha := 2.0 / (float64(period) + 1)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// MACDHistogram returns the difference between the MACD line (fast EMA minus
// slow EMA) and its signal EMA, evaluated at the last price. The smoothing is
// seeded from the first value, so short series read as a damped version of
// the full indicator. Zero below two prices.
func MACDHistogram(closes []float64, fast, slow, sig int) float64 {
	if len(closes) < 2 || fast <= 0 || slow <= 0 || sig <= 0 {
		return 0
	}
	fastEMA := EMA(closes, fast)
	slowEMA := EMA(closes, slow)
	macd := make([]float64, len(closes))
	for i := range macd {
		macd[i] = fastEMA[i] - slowEMA[i]
	}
	signal := EMA(macd, sig)
	return macd[len(macd)-1] - signal[len(signal)-1]
}

// BollingerPosition locates the last price inside its Bollinger band on a
// [0,1] scale, clipped at the band edges. Neutral value 0.5 when fewer than
// period prices are available or the band has zero width.
func BollingerPosition(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period {
		return 0.5
	}
	window := closes[len(closes)-period:]
	mean := Mean(window)
	sd := StdDev(window)
	if sd == 0 {
		return 0.5
	}
	upper := mean + 2*sd
	lower := mean - 2*sd
	pos := (closes[len(closes)-1] - lower) / (upper - lower)
	return clamp01(pos)
}

// Momentum returns the percentage change of the last price against the price
// lookback steps earlier. Zero when the series is too short.
func Momentum(closes []float64, lookback int) float64 {
	if lookback <= 0 || len(closes) < lookback+1 {
		return 0
	}
	base := closes[len(closes)-1-lookback]
	if base == 0 {
		return 0
	}
	return (closes[len(closes)-1]/base - 1) * 100
}

// VolumeTrend returns the mean step-over-step percentage change of volume
// across the trailing window. Zero when the series is too short.
func VolumeTrend(volumes []float64, window int) float64 {
	if window <= 0 || len(volumes) < window+1 {
		return 0
	}
	var sum float64
	var n int
	for i := len(volumes) - window; i < len(volumes); i++ {
		if volumes[i-1] == 0 {
			continue
		}
		sum += volumes[i]/volumes[i-1] - 1
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Mean returns the arithmetic mean, zero for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the population standard deviation, zero for fewer than two
// values.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
