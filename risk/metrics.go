package risk

import (
	"math"

	"github.com/quantpipe/quantpipe/broker"
)

const (
	tradingDaysPerYear = 252

	// One-tailed normal quantiles for the parametric VaR figures.
	z95 = 1.645
	z99 = 2.326
	// Expected shortfall multiplier at the 99% level.
	zES = 2.665

	// correlationRiskPlaceholder stands in until cross-position return
	// history is tracked.
	correlationRiskPlaceholder = 0.5
)

// Metrics are portfolio risk figures recomputed from the current position
// snapshot each cycle. Only the latest value is retained.
type Metrics struct {
	VaR95             float64
	VaR99             float64
	ExpectedShortfall float64
	Leverage          float64
	Concentration     float64 // Herfindahl index over absolute weights
	CorrelationRisk   float64
}

// ComputeMetrics derives risk metrics from open positions and equity using a
// parametric model with the configured annual volatility.
func ComputeMetrics(positions []broker.Position, equity, annualVol float64) Metrics {
	if len(positions) == 0 {
		return Metrics{}
	}

	var gross float64
	values := make([]float64, 0, len(positions))
	for _, p := range positions {
		v := math.Abs(p.MarketValue)
		values = append(values, v)
		gross += v
	}

	var hhi float64
	if gross > 0 {
		for _, v := range values {
			w := v / gross
			hhi += w * w
		}
	}

	dailyVol := annualVol / math.Sqrt(tradingDaysPerYear)

	var leverage float64
	if equity > 0 {
		leverage = gross / equity
	}

	return Metrics{
		VaR95:             gross * z95 * dailyVol,
		VaR99:             gross * z99 * dailyVol,
		ExpectedShortfall: gross * zES * dailyVol,
		Leverage:          leverage,
		Concentration:     hhi,
		CorrelationRisk:   correlationRiskPlaceholder,
	}
}
