package risk

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quantpipe/quantpipe/broker"
	"github.com/quantpipe/quantpipe/broker/sim"
	"github.com/quantpipe/quantpipe/signal"
)

func testSignal(instrument string, dir signal.Direction, confidence, price float64) signal.Signal {
	return signal.Signal{
		Instrument:     instrument,
		Direction:      dir,
		Confidence:     confidence,
		ExpectedReturn: float64(dir) * confidence * 0.02,
		HoldingPeriod:  "1D",
		Price:          price,
		Time:           time.Now().UTC(),
	}
}

func newAccount(equity, buyingPower float64) broker.Account {
	return broker.Account{ID: "acct-1", Equity: equity, Cash: equity, BuyingPower: buyingPower}
}

func TestOptimizePortfolioSizesWithinCaps(t *testing.T) {
	t.Parallel()

	b := sim.New(newAccount(100000, 100000))
	e := NewEngine(b, DefaultLimits(), zap.NewNop())

	signals := map[string]signal.Signal{
		"AAPL": testSignal("AAPL", signal.Long, 0.9, 200),
	}
	orders, err := e.OptimizePortfolio(context.Background(), signals)
	require.NoError(t, err)
	require.Len(t, orders, 1)

	o := orders[0]
	assert.Equal(t, "AAPL", o.Instrument)
	assert.Equal(t, broker.Buy, o.Side)
	assert.Positive(t, o.Quantity)
	assert.NotEmpty(t, o.ID)

	// quantity*price must respect both the per-position cap and buying power.
	notional := float64(o.Quantity) * o.Signal.Price
	assert.LessOrEqual(t, notional, 0.10*100000+1e-9)
	assert.LessOrEqual(t, notional, 100000*0.9+1e-9)
}

func TestOptimizePortfolioFiltersLowConfidenceAndNeutral(t *testing.T) {
	t.Parallel()

	b := sim.New(newAccount(100000, 100000))
	e := NewEngine(b, DefaultLimits(), zap.NewNop())

	signals := map[string]signal.Signal{
		"WEAK":    testSignal("WEAK", signal.Long, 0.55, 100),
		"NEUTRAL": testSignal("NEUTRAL", signal.Neutral, 0.9, 100),
		"SHORT":   testSignal("SHORT", signal.Short, 0.9, 100),
		"GOOD":    testSignal("GOOD", signal.Long, 0.9, 100),
	}
	orders, err := e.OptimizePortfolio(context.Background(), signals)
	require.NoError(t, err)

	instruments := map[string]broker.Side{}
	for _, o := range orders {
		instruments[o.Instrument] = o.Side
	}
	assert.NotContains(t, instruments, "WEAK")
	assert.NotContains(t, instruments, "NEUTRAL")
	// A short signal has negative expected return, so Kelly sizes it to zero.
	assert.NotContains(t, instruments, "SHORT")
	assert.Equal(t, broker.Buy, instruments["GOOD"])
}

func TestOptimizePortfolioDropsSubNotionalOrders(t *testing.T) {
	t.Parallel()

	// Tiny equity makes every sized order fall under the notional floor.
	b := sim.New(newAccount(900, 900))
	e := NewEngine(b, DefaultLimits(), zap.NewNop())

	orders, err := e.OptimizePortfolio(context.Background(), map[string]signal.Signal{
		"AAPL": testSignal("AAPL", signal.Long, 0.9, 200),
	})
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestLeverageResponseScalesQuantitiesDown(t *testing.T) {
	t.Parallel()

	b := sim.New(newAccount(100000, 100000))
	// Gross exposure 170k on 100k equity: leverage 1.7 > 0.8 * 2.0.
	b.SetPosition(broker.Position{Instrument: "NVDA", MarketValue: 170000, Quantity: 100})

	limits := DefaultLimits()
	e := NewEngine(b, limits, zap.NewNop())

	signals := map[string]signal.Signal{
		"AAPL": testSignal("AAPL", signal.Long, 0.9, 100),
		"MSFT": testSignal("MSFT", signal.Long, 0.85, 100),
	}

	unscaled := NewEngine(sim.New(newAccount(100000, 100000)), limits, zap.NewNop())
	baseline, err := unscaled.OptimizePortfolio(context.Background(), signals)
	require.NoError(t, err)
	require.NotEmpty(t, baseline)
	base := map[string]int64{}
	for _, o := range baseline {
		base[o.Instrument] = o.Quantity
	}

	scaled, err := e.OptimizePortfolio(context.Background(), signals)
	require.NoError(t, err)
	require.NotEmpty(t, scaled)
	for _, o := range scaled {
		assert.Less(t, o.Quantity, base[o.Instrument],
			"scaled quantity must be strictly below the unscaled one")
	}
}

func TestConcentrationResponseTruncatesToTopConviction(t *testing.T) {
	t.Parallel()

	b := sim.New(newAccount(1000000, 1000000))
	// A single dominant position pushes HHI to 1.0 > 0.3.
	b.SetPosition(broker.Position{Instrument: "NVDA", MarketValue: 50000, Quantity: 100})

	e := NewEngine(b, DefaultLimits(), zap.NewNop())

	signals := map[string]signal.Signal{
		"A": testSignal("A", signal.Long, 0.65, 50),
		"B": testSignal("B", signal.Long, 0.9, 50),
		"C": testSignal("C", signal.Long, 0.7, 50),
		"D": testSignal("D", signal.Long, 0.85, 50),
		"E": testSignal("E", signal.Long, 0.8, 50),
	}
	orders, err := e.OptimizePortfolio(context.Background(), signals)
	require.NoError(t, err)

	require.LessOrEqual(t, len(orders), 3)
	got := make([]string, 0, len(orders))
	for _, o := range orders {
		got = append(got, o.Instrument)
	}
	// Highest-conviction three: B (0.9), D (0.85), E (0.8).
	assert.ElementsMatch(t, []string{"B", "D", "E"}, got)
}

func TestSnapshotFailureIsCycleFatal(t *testing.T) {
	t.Parallel()

	b := sim.New(newAccount(100000, 100000))
	b.AccountErr = errors.New("brokerage unreachable")
	e := NewEngine(b, DefaultLimits(), zap.NewNop())

	_, err := e.OptimizePortfolio(context.Background(), map[string]signal.Signal{
		"AAPL": testSignal("AAPL", signal.Long, 0.9, 100),
	})
	require.Error(t, err)
	assert.ErrorContains(t, err, "fetch account")
}

func TestBuyingPowerDepletesAcrossOrders(t *testing.T) {
	t.Parallel()

	// Equity large, buying power small: the second order must fit into what
	// the first one left over.
	b := sim.New(newAccount(500000, 12000))
	e := NewEngine(b, DefaultLimits(), zap.NewNop())

	orders, err := e.OptimizePortfolio(context.Background(), map[string]signal.Signal{
		"A": testSignal("A", signal.Long, 0.9, 100),
		"B": testSignal("B", signal.Long, 0.9, 100),
	})
	require.NoError(t, err)

	var total float64
	for _, o := range orders {
		total += float64(o.Quantity) * o.Signal.Price
	}
	assert.LessOrEqual(t, total, 12000.0)
}
