// Package risk sizes signals into orders under per-position and
// portfolio-level constraints.
package risk

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/quantpipe/quantpipe/broker"
	"github.com/quantpipe/quantpipe/signal"
	"github.com/quantpipe/quantpipe/trade"
)

// Engine converts signals into sized orders. A brokerage snapshot failure is
// cycle-fatal: positions are never guessed.
type Engine struct {
	broker broker.Broker
	limits Limits
	log    *zap.Logger

	mu            sync.Mutex
	last          Metrics
	lastAccount   broker.Account
	lastPositions int
}

// NewEngine creates a risk engine with the given policy.
func NewEngine(b broker.Broker, limits Limits, log *zap.Logger) *Engine {
	return &Engine{broker: b, limits: limits, log: log.Named("risk")}
}

// LastMetrics returns the metrics computed on the most recent cycle.
func (e *Engine) LastMetrics() Metrics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// LastSnapshot returns the account and open-position count from the most
// recent successful brokerage fetch. Zero values before the first fetch;
// never fabricated.
func (e *Engine) LastSnapshot() (broker.Account, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastAccount, e.lastPositions
}

// Metrics recomputes portfolio risk metrics from a fresh position snapshot.
func (e *Engine) Metrics(ctx context.Context) (Metrics, error) {
	account, err := e.broker.GetAccount(ctx)
	if err != nil {
		return Metrics{}, fmt.Errorf("fetch account: %w", err)
	}
	positions, err := e.broker.GetAllPositions(ctx)
	if err != nil {
		return Metrics{}, fmt.Errorf("fetch positions: %w", err)
	}

	m := ComputeMetrics(positions, account.Equity, e.limits.AnnualVolatility)
	e.mu.Lock()
	e.last = m
	e.lastAccount = account
	e.lastPositions = len(positions)
	e.mu.Unlock()
	return m, nil
}

// OptimizePortfolio sizes high-conviction signals into orders, then applies
// the portfolio-level leverage and concentration responses. The returned
// orders are sorted by instrument for deterministic downstream processing.
func (e *Engine) OptimizePortfolio(ctx context.Context, signals map[string]signal.Signal) ([]trade.Order, error) {
	account, err := e.broker.GetAccount(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch account: %w", err)
	}
	positions, err := e.broker.GetAllPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch positions: %w", err)
	}

	metrics := ComputeMetrics(positions, account.Equity, e.limits.AnnualVolatility)
	e.mu.Lock()
	e.last = metrics
	e.lastAccount = account
	e.lastPositions = len(positions)
	e.mu.Unlock()

	instruments := make([]string, 0, len(signals))
	for instrument := range signals {
		instruments = append(instruments, instrument)
	}
	sort.Strings(instruments)

	remainingBP := account.BuyingPower
	var orders []trade.Order
	for _, instrument := range instruments {
		sig := signals[instrument]
		if sig.Direction == signal.Neutral || sig.Confidence <= e.limits.MinConfidence {
			continue
		}
		if sig.Price <= 0 {
			e.log.Warn("skipping signal without a price",
				zap.String("instrument", instrument))
			continue
		}

		fraction := KellyFraction(sig.ExpectedReturn, sig.Confidence, e.limits)
		if fraction == 0 {
			continue
		}

		size := math.Min(fraction*account.Equity, e.limits.MaxPositionPct*account.Equity)
		size = math.Min(size, remainingBP*e.limits.BuyingPowerBuffer)
		if size < e.limits.MinOrderNotional {
			continue
		}

		quantity := int64(size / sig.Price)
		if quantity <= 0 {
			continue
		}
		remainingBP -= float64(quantity) * sig.Price

		side := broker.Buy
		if sig.Direction == signal.Short {
			side = broker.Sell
		}
		orders = append(orders, trade.Order{
			ID:          trade.NewOrderID(),
			Instrument:  instrument,
			Quantity:    quantity,
			Side:        side,
			Kind:        broker.Limit,
			TimeInForce: broker.Day,
			Signal:      sig,
			Created:     time.Now().UTC(),
		})
	}

	orders = e.applyConstraints(orders, metrics)

	e.log.Info("portfolio optimized",
		zap.Int("signals", len(signals)),
		zap.Int("orders", len(orders)),
		zap.Float64("leverage", metrics.Leverage),
		zap.Float64("concentration", metrics.Concentration))
	return orders, nil
}

// applyConstraints is the portfolio-level de-risking response: proportional
// scale-down near the leverage ceiling, and truncation to the top
// highest-conviction orders under heavy concentration.
func (e *Engine) applyConstraints(orders []trade.Order, metrics Metrics) []trade.Order {
	if metrics.Leverage > e.limits.MaxLeverage*e.limits.LeverageSoftRatio {
		e.log.Warn("leverage near ceiling, scaling orders down",
			zap.Float64("leverage", metrics.Leverage),
			zap.Float64("factor", e.limits.LeverageScaleFactor))
		for i := range orders {
			orders[i].Quantity = int64(float64(orders[i].Quantity) * e.limits.LeverageScaleFactor)
		}
	}

	if metrics.Concentration > e.limits.MaxConcentration && len(orders) > e.limits.ConcentrationTopN {
		sort.SliceStable(orders, func(i, j int) bool {
			return orders[i].Signal.Confidence > orders[j].Signal.Confidence
		})
		e.log.Warn("concentration above limit, truncating order list",
			zap.Float64("hhi", metrics.Concentration),
			zap.Int("kept", e.limits.ConcentrationTopN))
		orders = orders[:e.limits.ConcentrationTopN]
	}

	kept := orders[:0]
	for _, o := range orders {
		if o.Quantity > 0 {
			kept = append(kept, o)
		}
	}
	return kept
}
