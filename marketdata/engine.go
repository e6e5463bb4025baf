// Package marketdata buffers incoming observations per instrument and
// derives rolling microstructure features from them.
package marketdata

import (
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/quantpipe/quantpipe/market"
	"github.com/quantpipe/quantpipe/market/indicators"
)

const (
	// DefaultCapacity bounds each instrument's tick buffer.
	DefaultCapacity = 10000

	// minFeatureTicks is the warmup below which Ingest returns a zero snapshot.
	minFeatureTicks = 10

	// tradingMinutesPerYear annualizes per-tick volatility assuming one tick
	// per minute over 252 trading days of 390 minutes.
	tradingMinutesPerYear = 252 * 390

	momentumLookback = 20
)

// Snapshot is the derived feature state for one instrument.
type Snapshot struct {
	Instrument       string
	Spread           float64
	Volatility       float64 // annualized realized volatility
	VolumeMean       float64
	VolumeTrend      float64
	VolumeVolatility float64
	Momentum         float64
	Liquidity        float64 // inverse Amihud-style ratio, higher is more liquid
	Ticks            int
	Time             time.Time
}

// Engine owns one tick buffer and feature cache per instrument.
type Engine struct {
	log      *zap.Logger
	capacity int

	mu       sync.RWMutex
	buffers  map[string]*TickBuffer
	features map[string]Snapshot
}

// NewEngine creates a market data engine with the given per-instrument
// buffer capacity (DefaultCapacity when zero).
func NewEngine(log *zap.Logger, capacity int) *Engine {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Engine{
		log:      log.Named("marketdata"),
		capacity: capacity,
		buffers:  make(map[string]*TickBuffer),
		features: make(map[string]Snapshot),
	}
}

// Ingest appends a tick to its instrument buffer and returns the refreshed
// feature snapshot for that instrument.
func (e *Engine) Ingest(t market.Tick) Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	buf, ok := e.buffers[t.Instrument]
	if !ok {
		buf = NewTickBuffer(e.capacity)
		e.buffers[t.Instrument] = buf
	}
	buf.Append(t)

	snap := deriveFeatures(t.Instrument, buf.Values())
	e.features[t.Instrument] = snap
	return snap
}

// Snapshot returns the cached feature snapshot for an instrument.
func (e *Engine) Snapshot(instrument string) (Snapshot, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.features[instrument]
	return s, ok
}

func deriveFeatures(instrument string, ticks []market.Tick) Snapshot {
	snap := Snapshot{Instrument: instrument, Ticks: len(ticks)}
	if len(ticks) > 0 {
		snap.Time = ticks[len(ticks)-1].Time
	}
	if len(ticks) < minFeatureTicks {
		return snap
	}

	prices := make([]float64, len(ticks))
	volumes := make([]float64, len(ticks))
	var spreadSum float64
	var spreadN int
	for i, t := range ticks {
		prices[i] = t.Price
		volumes[i] = t.Volume
		if s := t.Spread(); s > 0 {
			spreadSum += s
			spreadN++
		}
	}
	if spreadN > 0 {
		snap.Spread = spreadSum / float64(spreadN)
	}

	returns := pctChanges(prices)
	snap.Volatility = indicators.StdDev(returns) * math.Sqrt(tradingMinutesPerYear)
	snap.VolumeMean = indicators.Mean(volumes)
	snap.VolumeTrend = indicators.VolumeTrend(volumes, len(volumes)-1)
	snap.VolumeVolatility = indicators.StdDev(volumes)
	snap.Momentum = indicators.Momentum(prices, momentumLookback)
	snap.Liquidity = estimateLiquidity(returns, volumes)
	return snap
}

// estimateLiquidity inverts the mean absolute-return-per-volume ratio, so a
// higher value means a more liquid instrument.
func estimateLiquidity(returns, volumes []float64) float64 {
	var sum float64
	var n int
	for i, r := range returns {
		vol := volumes[i+1]
		if vol <= 0 {
			continue
		}
		sum += math.Abs(r) / vol
		n++
	}
	if n == 0 {
		return 0
	}
	return 1 / (sum/float64(n) + 1e-10)
}

// pctChanges returns fractional step-over-step price changes, skipping
// zero-price denominators.
func pctChanges(prices []float64) []float64 {
	out := make([]float64, 0, len(prices))
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			continue
		}
		out = append(out, prices[i]/prices[i-1]-1)
	}
	return out
}
