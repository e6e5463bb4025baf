package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKellyFraction(t *testing.T) {
	t.Parallel()

	l := DefaultLimits()

	tests := []struct {
		name           string
		expectedReturn float64
		confidence     float64
		want           float64
	}{
		{"no edge", 0, 0.9, 0},
		{"negative edge", -0.01, 0.9, 0},
		{"coin flip boundary", 0.01, 0.5, 0},
		{"below coin flip", 0.01, 0.4, 0},
		// 0.7 - 0.3/2 = 0.55, quarter-Kelly 0.1375, capped at 0.10.
		{"capped at position limit", 0.014, 0.7, 0.10},
		// 0.6 - 0.4/2 = 0.40, quarter-Kelly 0.10 exactly at the cap.
		{"exactly at cap", 0.012, 0.6, 0.10},
		{"full confidence capped", 0.018, 1.0, 0.10},
		// 0.55 - 0.45/2 = 0.325, quarter-Kelly 0.08125.
		{"inside cap", 0.011, 0.55, 0.08125},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := KellyFraction(tt.expectedReturn, tt.confidence, l)
			assert.InDelta(t, tt.want, got, 1e-12)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, l.MaxPositionPct)
		})
	}
}

func TestKellyFractionSweepStaysBounded(t *testing.T) {
	t.Parallel()

	l := DefaultLimits()
	for conf := 0.0; conf <= 1.0; conf += 0.01 {
		for _, er := range []float64{-0.05, 0, 1e-9, 0.01, 0.5} {
			got := KellyFraction(er, conf, l)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, l.MaxPositionPct)
		}
	}
}
