package signal

import (
	"math"

	"github.com/quantpipe/quantpipe/market"
	"github.com/quantpipe/quantpipe/market/indicators"
)

const (
	minMicroBars     = 10
	vpinMinBars      = 50
	vpinBuckets      = 50
	kyleMinBars      = 20
	kyleMinClean     = 10
	rollMinBars      = 10
	amihudMinBars    = 5
	amihudScale      = 1e6
	impactMinBars    = 20
	impactVolsWindow = 20
)

// ComputeMicroFeatures derives microstructure estimators from recent bars.
// Fewer than minMicroBars bars yields the zero value for every feature.
func ComputeMicroFeatures(bars []market.Bar) MicroFeatures {
	if len(bars) < minMicroBars {
		return MicroFeatures{}
	}

	var rangeSum float64
	for _, b := range bars {
		rangeSum += b.High - b.Low
	}

	return MicroFeatures{
		Spread:            rangeSum / float64(len(bars)),
		VolumeImbalance:   vpin(bars),
		KyleLambda:        kyleLambda(bars),
		RollSpread:        rollSpread(bars),
		AmihudIlliquidity: amihudIlliquidity(bars),
		PriceImpact:       priceImpact(bars),
	}
}

// vpin estimates the probability of informed trading from signed volume
// imbalance across equal-volume buckets.
func vpin(bars []market.Bar) float64 {
	if len(bars) < vpinMinBars {
		return 0
	}

	var totalVolume float64
	for _, b := range bars {
		totalVolume += b.Volume
	}
	if totalVolume <= 0 {
		return 0
	}
	bucketSize := totalVolume / vpinBuckets

	var values []float64
	var bucketVol, buyVol, sellVol float64
	for i := 1; i < len(bars); i++ {
		change := barReturn(bars[i-1], bars[i])
		bucketVol += bars[i].Volume
		if change > 0 {
			buyVol += bars[i].Volume
		} else if change < 0 {
			sellVol += bars[i].Volume
		}
		if bucketVol >= bucketSize {
			if buyVol+sellVol > 0 {
				values = append(values, math.Abs(buyVol-sellVol)/(buyVol+sellVol))
			}
			bucketVol, buyVol, sellVol = 0, 0, 0
		}
	}
	return indicators.Mean(values)
}

// kyleLambda regresses fractional price changes on signed volume.
func kyleLambda(bars []market.Bar) float64 {
	if len(bars) < kyleMinBars {
		return 0
	}

	var xs, ys []float64
	for i := 1; i < len(bars); i++ {
		change := barReturn(bars[i-1], bars[i])
		if change == 0 && bars[i].Volume == 0 {
			continue
		}
		xs = append(xs, bars[i].Volume*sign(change))
		ys = append(ys, change)
	}
	if len(xs) < kyleMinClean {
		return 0
	}

	meanX := indicators.Mean(xs)
	meanY := indicators.Mean(ys)
	var num, den float64
	for i := range xs {
		num += (xs[i] - meanX) * (ys[i] - meanY)
		den += (xs[i] - meanX) * (xs[i] - meanX)
	}
	if den < 1e-10 {
		return 0
	}
	return num / den
}

// rollSpread is Roll's implied spread: 2*sqrt(-cov) of lag-1 price change
// autocovariance, zero when the autocovariance is non-negative.
func rollSpread(bars []market.Bar) float64 {
	if len(bars) < rollMinBars {
		return 0
	}

	diffs := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		diffs = append(diffs, bars[i].Close-bars[i-1].Close)
	}
	if len(diffs) < 2 {
		return 0
	}

	cov := lag1Covariance(diffs)
	if cov >= 0 {
		return 0
	}
	return 2 * math.Sqrt(-cov)
}

// amihudIlliquidity averages |return| per dollar of traded volume, scaled.
func amihudIlliquidity(bars []market.Bar) float64 {
	if len(bars) < amihudMinBars {
		return 0
	}

	var sum float64
	var n int
	for i := 1; i < len(bars); i++ {
		dollarVol := bars[i].Close * bars[i].Volume
		if dollarVol <= 0 {
			continue
		}
		sum += math.Abs(barReturn(bars[i-1], bars[i])) / dollarVol
		n++
	}
	if n < amihudMinBars {
		return 0
	}
	return sum / float64(n) * amihudScale
}

// priceImpact correlates the volume ratio against its trailing mean with
// absolute price changes.
func priceImpact(bars []market.Bar) float64 {
	if len(bars) < impactMinBars {
		return 0
	}

	var xs, ys []float64
	for i := impactVolsWindow; i < len(bars); i++ {
		var windowSum float64
		for j := i - impactVolsWindow + 1; j <= i; j++ {
			windowSum += bars[j].Volume
		}
		meanVol := windowSum / impactVolsWindow
		if meanVol <= 0 {
			continue
		}
		xs = append(xs, bars[i].Volume/meanVol)
		ys = append(ys, math.Abs(barReturn(bars[i-1], bars[i])))
	}
	if len(xs) < kyleMinClean {
		return 0
	}

	corr := correlation(xs, ys)
	if math.IsNaN(corr) {
		return 0
	}
	return corr
}

func barReturn(prev, cur market.Bar) float64 {
	if prev.Close == 0 {
		return 0
	}
	return cur.Close/prev.Close - 1
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// lag1Covariance is the sample covariance between a series and its lag-1
// shift.
func lag1Covariance(values []float64) float64 {
	n := len(values) - 1
	if n < 2 {
		return 0
	}
	cur := values[1:]
	lag := values[:len(values)-1]
	meanCur := indicators.Mean(cur)
	meanLag := indicators.Mean(lag)
	var sum float64
	for i := 0; i < n; i++ {
		sum += (cur[i] - meanCur) * (lag[i] - meanLag)
	}
	return sum / float64(n-1)
}

func correlation(xs, ys []float64) float64 {
	sx := indicators.StdDev(xs)
	sy := indicators.StdDev(ys)
	if sx == 0 || sy == 0 {
		return math.NaN()
	}
	meanX := indicators.Mean(xs)
	meanY := indicators.Mean(ys)
	var sum float64
	for i := range xs {
		sum += (xs[i] - meanX) * (ys[i] - meanY)
	}
	return sum / float64(len(xs)) / (sx * sy)
}
