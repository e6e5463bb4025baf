package signal

import (
	"github.com/quantpipe/quantpipe/market"
	"github.com/quantpipe/quantpipe/market/indicators"
)

const (
	minTechBars = 20

	rsiPeriod  = 14
	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9

	bollingerPeriod  = 20
	momentumLookback = 20
	volumeWindow     = 5
)

// ComputeTechFeatures derives technical indicator values from daily bars.
// Fewer than minTechBars bars yields each indicator's neutral value.
func ComputeTechFeatures(bars []market.Bar) TechFeatures {
	neutral := TechFeatures{RSI: 50, BandPosition: 0.5}
	if len(bars) < minTechBars {
		return neutral
	}

	closes := market.Closes(bars)
	volumes := market.Volumes(bars)

	return TechFeatures{
		RSI:          indicators.RSI(closes, rsiPeriod),
		MACDSignal:   indicators.MACDHistogram(closes, macdFast, macdSlow, macdSignal),
		BandPosition: indicators.BollingerPosition(closes, bollingerPeriod),
		VolumeTrend:  indicators.VolumeTrend(volumes, volumeWindow),
		Momentum:     indicators.Momentum(closes, momentumLookback),
	}
}
