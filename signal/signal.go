// Package signal computes per-instrument features and folds them into
// directional trading signals.
package signal

import (
	"time"

	"github.com/quantpipe/quantpipe/marketdata"
)

// Direction is the side a signal points to.
type Direction int

const (
	Short   Direction = -1
	Neutral Direction = 0
	Long    Direction = 1
)

func (d Direction) String() string {
	switch d {
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return "neutral"
	}
}

// MicroFeatures are microstructure estimators derived from recent bar data.
// Every field degrades to zero below its minimum sample size.
type MicroFeatures struct {
	Spread            float64 // mean high-low range
	VolumeImbalance   float64 // VPIN-style informed-trading estimate
	KyleLambda        float64 // price-impact regression coefficient
	RollSpread        float64 // implied spread from serial covariance
	AmihudIlliquidity float64 // |return| per dollar volume, scaled
	PriceImpact       float64 // volume-ratio / |price change| correlation
}

// TechFeatures are technical indicator values over daily bars.
type TechFeatures struct {
	RSI          float64 // neutral 50
	MACDSignal   float64 // MACD histogram, neutral 0
	BandPosition float64 // Bollinger position in [0,1], neutral 0.5
	VolumeTrend  float64
	Momentum     float64 // percent over the lookback horizon
}

// Features is the full snapshot a signal was scored from.
type Features struct {
	Micro     MicroFeatures
	Technical TechFeatures

	// Realtime is the market data engine's snapshot for the instrument at
	// scoring time, when one was available.
	Realtime *marketdata.Snapshot
}

// Signal is an immutable per-cycle trading signal for one instrument.
type Signal struct {
	Instrument     string
	Direction      Direction
	Confidence     float64 // in [0,1]
	ExpectedReturn float64 // signed fraction
	HoldingPeriod  string
	Price          float64 // last observed close, used downstream for sizing
	Features       Features
	Time           time.Time
}
