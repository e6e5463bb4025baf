package signal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/quantpipe/quantpipe/market"
	"github.com/quantpipe/quantpipe/marketdata"
)

const (
	microBarLimit = 100
	techBarLimit  = 100

	defaultWorkers = 4
	defaultHistory = 1000
)

// Engine generates signals for a universe of instruments. Per-instrument
// computation is independent; a failure for one instrument only omits that
// instrument from the batch.
type Engine struct {
	bars    market.BarSource
	scorer  Scorer
	md      *marketdata.Engine // optional realtime feature source
	log     *zap.Logger
	workers int

	mu      sync.Mutex
	history []Signal
	histCap int
}

// NewEngine creates a signal engine over the given bar source. md may be nil
// when no realtime market data engine is running.
func NewEngine(bars market.BarSource, scorer Scorer, md *marketdata.Engine, log *zap.Logger) *Engine {
	return &Engine{
		bars:    bars,
		scorer:  scorer,
		md:      md,
		log:     log.Named("signal"),
		workers: defaultWorkers,
		histCap: defaultHistory,
	}
}

// GenerateSignals computes a signal per instrument, fanning the universe out
// over a small worker pool. Instruments whose data fetch or feature
// computation fails are logged and omitted.
func (e *Engine) GenerateSignals(ctx context.Context, universe []string) map[string]Signal {
	type result struct {
		sig Signal
		err error
		ins string
	}

	jobs := make(chan string)
	results := make(chan result, len(universe))

	workers := e.workers
	if workers > len(universe) {
		workers = len(universe)
	}
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for instrument := range jobs {
				sig, err := e.generateOne(ctx, instrument)
				results <- result{sig: sig, err: err, ins: instrument}
			}
		}()
	}

	for _, instrument := range universe {
		jobs <- instrument
	}
	close(jobs)
	wg.Wait()
	close(results)

	signals := make(map[string]Signal, len(universe))
	for r := range results {
		if r.err != nil {
			e.log.Error("signal generation failed",
				zap.String("instrument", r.ins), zap.Error(r.err))
			continue
		}
		signals[r.ins] = r.sig
		e.remember(r.sig)
	}
	return signals
}

func (e *Engine) generateOne(ctx context.Context, instrument string) (Signal, error) {
	minuteBars, err := e.bars.GetBars(ctx, instrument, market.Minute, microBarLimit)
	if err != nil {
		return Signal{}, fmt.Errorf("fetch minute bars: %w", err)
	}
	dailyBars, err := e.bars.GetBars(ctx, instrument, market.Day, techBarLimit)
	if err != nil {
		return Signal{}, fmt.Errorf("fetch daily bars: %w", err)
	}

	features := Features{
		Micro:     ComputeMicroFeatures(minuteBars),
		Technical: ComputeTechFeatures(dailyBars),
	}
	if e.md != nil {
		if snap, ok := e.md.Snapshot(instrument); ok {
			features.Realtime = &snap
		}
	}

	price := lastClose(minuteBars)
	if price == 0 {
		price = lastClose(dailyBars)
	}
	if price == 0 {
		return Signal{}, fmt.Errorf("no price data for %s", instrument)
	}

	p := e.scorer.Score(features)
	return Signal{
		Instrument:     instrument,
		Direction:      p.Direction,
		Confidence:     p.Confidence,
		ExpectedReturn: p.ExpectedReturn,
		HoldingPeriod:  p.HoldingPeriod,
		Price:          price,
		Features:       features,
		Time:           time.Now().UTC(),
	}, nil
}

// remember appends to the bounded signal history, evicting the oldest.
func (e *Engine) remember(s Signal) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = append(e.history, s)
	if len(e.history) > e.histCap {
		e.history = e.history[len(e.history)-e.histCap:]
	}
}

// History returns a copy of the retained signal history, oldest first.
func (e *Engine) History() []Signal {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Signal, len(e.history))
	copy(out, e.history)
	return out
}

func lastClose(bars []market.Bar) float64 {
	if len(bars) == 0 {
		return 0
	}
	return bars[len(bars)-1].Close
}
