package market

import (
	"context"
	"time"
)

// Bar represents one OHLCV observation for an instrument.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Granularity is the time frame for bar requests.
type Granularity string

const (
	Minute Granularity = "1Min"
	Hour   Granularity = "1Hour"
	Day    Granularity = "1Day"
)

// BarSource provides historical bars, most recent last.
type BarSource interface {
	GetBars(ctx context.Context, instrument string, g Granularity, limit int) ([]Bar, error)
}

// Closes extracts the close series from a bar slice.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Volumes extracts the volume series from a bar slice.
func Volumes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Volume
	}
	return out
}
