package market

import (
	"context"
	"time"
)

// Tick is a single observed quote/trade for an instrument.
type Tick struct {
	Instrument string
	Time       time.Time
	Bid        float64
	Ask        float64
	Price      float64 // last trade price
	Volume     float64
}

// Mid returns the quote midpoint, or the last price when no quote is present.
func (t Tick) Mid() float64 {
	if t.Bid > 0 && t.Ask > 0 {
		return (t.Bid + t.Ask) / 2
	}
	return t.Price
}

// Spread returns the quoted bid-ask spread, zero when no quote is present.
func (t Tick) Spread() float64 {
	if t.Bid > 0 && t.Ask > 0 {
		return t.Ask - t.Bid
	}
	return 0
}

// TickSource provides the latest tick for an instrument.
type TickSource interface {
	GetTick(ctx context.Context, instrument string) (Tick, error)
}
