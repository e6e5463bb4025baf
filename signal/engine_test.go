package signal

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quantpipe/quantpipe/market"
)

type stubBars struct {
	mu     sync.Mutex
	minute map[string][]market.Bar
	daily  map[string][]market.Bar
	errs   map[string]error
}

func (s *stubBars) GetBars(ctx context.Context, instrument string, g market.Granularity, limit int) ([]market.Bar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs[instrument]; err != nil {
		return nil, err
	}
	if g == market.Day {
		return s.daily[instrument], nil
	}
	return s.minute[instrument], nil
}

func TestGenerateSignalsIsolatesFailures(t *testing.T) {
	t.Parallel()

	rising := syntheticBars(60, func(i int) float64 { return 100 + float64(i) }, func(i int) float64 { return 1000 })
	src := &stubBars{
		minute: map[string][]market.Bar{"GOOD": rising, "ALSO": rising},
		daily:  map[string][]market.Bar{"GOOD": rising, "ALSO": rising},
		errs:   map[string]error{"BAD": errors.New("feed down")},
	}

	e := NewEngine(src, HeuristicScorer{}, nil, zap.NewNop())
	signals := e.GenerateSignals(context.Background(), []string{"GOOD", "BAD", "ALSO"})

	require.Len(t, signals, 2)
	assert.Contains(t, signals, "GOOD")
	assert.Contains(t, signals, "ALSO")
	assert.NotContains(t, signals, "BAD")

	sig := signals["GOOD"]
	assert.Equal(t, "GOOD", sig.Instrument)
	assert.InDelta(t, 159.0, sig.Price, 1e-9)
	assert.GreaterOrEqual(t, sig.Confidence, 0.0)
	assert.LessOrEqual(t, sig.Confidence, 1.0)
}

func TestGenerateSignalsOmitsPricelessInstrument(t *testing.T) {
	t.Parallel()

	src := &stubBars{
		minute: map[string][]market.Bar{},
		daily:  map[string][]market.Bar{},
		errs:   map[string]error{},
	}
	e := NewEngine(src, HeuristicScorer{}, nil, zap.NewNop())

	signals := e.GenerateSignals(context.Background(), []string{"EMPTY"})
	assert.Empty(t, signals)
}

func TestHistoryIsBounded(t *testing.T) {
	t.Parallel()

	rising := syntheticBars(30, func(i int) float64 { return 100 + float64(i) }, func(i int) float64 { return 1000 })
	src := &stubBars{
		minute: map[string][]market.Bar{"X": rising},
		daily:  map[string][]market.Bar{"X": rising},
	}
	e := NewEngine(src, HeuristicScorer{}, nil, zap.NewNop())
	e.histCap = 10

	for i := 0; i < 25; i++ {
		e.GenerateSignals(context.Background(), []string{"X"})
	}

	hist := e.History()
	assert.Len(t, hist, 10)
}
