package risk

// KellyFraction returns the scaled Kelly position fraction for a signal.
// It is zero when the edge is non-positive (expected return <= 0 or win
// probability <= 0.5) and never exceeds the per-position cap.
func KellyFraction(expectedReturn, confidence float64, l Limits) float64 {
	if expectedReturn <= 0 || confidence <= 0.5 {
		return 0
	}

	// f = p - q/b with p the win probability and b the reward/risk ratio.
	kelly := confidence - (1-confidence)/l.RewardRiskRatio
	kelly *= l.KellyScale

	if kelly < 0 {
		return 0
	}
	if kelly > l.MaxPositionPct {
		return l.MaxPositionPct
	}
	return kelly
}
