package risk

// Limits is the risk engine's policy. The leverage and concentration
// responses are heuristics, so their constants are configuration rather
// than hard invariants.
type Limits struct {
	// MaxPositionPct caps a single position at this fraction of equity.
	MaxPositionPct float64

	// MaxLeverage is the maximum allowed portfolio leverage. De-risking
	// starts at LeverageSoftRatio of it.
	MaxLeverage       float64
	LeverageSoftRatio float64

	// LeverageScaleFactor scales all proposed quantities down when the soft
	// leverage threshold is crossed.
	LeverageScaleFactor float64

	// MaxConcentration is the Herfindahl index above which the order list is
	// truncated to the ConcentrationTopN highest-conviction orders.
	MaxConcentration  float64
	ConcentrationTopN int

	// MinConfidence filters signals before sizing.
	MinConfidence float64

	// MinOrderNotional drops orders sized below this dollar floor.
	MinOrderNotional float64

	// BuyingPowerBuffer is the fraction of remaining buying power an order
	// may consume.
	BuyingPowerBuffer float64

	// KellyScale shrinks the raw Kelly fraction (quarter-Kelly by default);
	// RewardRiskRatio is the assumed win/loss payoff ratio.
	KellyScale      float64
	RewardRiskRatio float64

	// AnnualVolatility is the assumed portfolio volatility behind the
	// parametric VaR numbers.
	AnnualVolatility float64
}

// DefaultLimits returns the standard conservative policy.
func DefaultLimits() Limits {
	return Limits{
		MaxPositionPct:      0.10,
		MaxLeverage:         2.0,
		LeverageSoftRatio:   0.8,
		LeverageScaleFactor: 0.5,
		MaxConcentration:    0.3,
		ConcentrationTopN:   3,
		MinConfidence:       0.6,
		MinOrderNotional:    100,
		BuyingPowerBuffer:   0.9,
		KellyScale:          0.25,
		RewardRiskRatio:     2.0,
		AnnualVolatility:    0.15,
	}
}
