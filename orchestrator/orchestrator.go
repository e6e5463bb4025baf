// Package orchestrator wires the signal, risk, compliance, and execution
// engines into the trading cycle and drives it on a market-hours schedule.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/quantpipe/quantpipe/compliance"
	"github.com/quantpipe/quantpipe/execution"
	"github.com/quantpipe/quantpipe/internal/obs"
	"github.com/quantpipe/quantpipe/market"
	"github.com/quantpipe/quantpipe/marketdata"
	"github.com/quantpipe/quantpipe/risk"
	"github.com/quantpipe/quantpipe/signal"
	"github.com/quantpipe/quantpipe/trade"
)

// Config tunes the cycle schedule.
type Config struct {
	// Universe is the instrument set scanned each cycle.
	Universe []string

	// OpenInterval and ClosedInterval are the pauses between cycles while
	// the market is open or closed.
	OpenInterval   time.Duration
	ClosedInterval time.Duration

	// Hours is the session used for scheduling. Extended hours by default
	// so pre- and post-market cycles run at the faster cadence.
	Hours market.Hours
}

// DefaultConfig returns the standard schedule.
func DefaultConfig() Config {
	return Config{
		OpenInterval:   time.Minute,
		ClosedInterval: 5 * time.Minute,
		Hours:          market.ExtendedUS(),
	}
}

// Status is a point-in-time view of the pipeline. Equity, buying power, and
// the position count come from the most recent successful brokerage fetch;
// they read zero before it and are never fabricated.
type Status struct {
	Running        bool
	TradingEnabled bool
	Cycles         int64
	LastCycle      time.Time
	LastError      string
	SignalCount    int
	MarketOpen     bool
	Universe       []string
	Equity         float64
	BuyingPower    float64
	PositionCount  int
}

// Orchestrator owns the trading loop. Engines are injected; it holds no
// trading logic of its own beyond sequencing and gating.
type Orchestrator struct {
	cfg        Config
	signals    *signal.Engine
	risk       *risk.Engine
	compliance *compliance.Engine
	execution  *execution.Engine
	md         *marketdata.Engine
	metrics    *obs.Metrics
	log        *zap.Logger

	now func() time.Time

	mu             sync.Mutex
	running        bool
	tradingEnabled bool
	universe       []string
	cycles         int64
	lastCycle      time.Time
	lastErr        string
	lastSignals    map[string]signal.Signal

	stop chan struct{}
	done chan struct{}
}

// New creates an orchestrator with trading disabled. Call EnableTrading to
// arm live submission; until then cycles run end to end but log intents
// instead of executing them.
func New(cfg Config, sig *signal.Engine, rsk *risk.Engine, cmp *compliance.Engine, exe *execution.Engine, md *marketdata.Engine, metrics *obs.Metrics, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		signals:    sig,
		risk:       rsk,
		compliance: cmp,
		execution:  exe,
		md:         md,
		metrics:    metrics,
		log:        log.Named("orchestrator"),
		now:        func() time.Time { return time.Now() },
		universe:   append([]string(nil), cfg.Universe...),
	}
}

// Start launches the cycle loop. It is an error to start twice.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return fmt.Errorf("orchestrator already running")
	}
	o.running = true
	o.stop = make(chan struct{})
	o.done = make(chan struct{})
	o.mu.Unlock()

	o.log.Info("starting", zap.Strings("universe", o.Universe()))
	go o.loop(ctx)
	return nil
}

// Stop requests shutdown and blocks until the loop exits. A cycle in flight
// finishes first; the loop never stops mid-cycle.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	stop, done := o.stop, o.done
	o.mu.Unlock()

	close(stop)
	<-done

	o.mu.Lock()
	o.running = false
	o.mu.Unlock()
	o.log.Info("stopped")
}

// EnableTrading arms or disarms live order submission.
func (o *Orchestrator) EnableTrading(enabled bool) {
	o.mu.Lock()
	o.tradingEnabled = enabled
	o.mu.Unlock()
	o.log.Info("trading gate changed", zap.Bool("enabled", enabled))
}

// SetUniverse replaces the instrument set scanned on subsequent cycles.
func (o *Orchestrator) SetUniverse(universe []string) {
	o.mu.Lock()
	o.universe = append([]string(nil), universe...)
	o.mu.Unlock()
}

// Universe returns a copy of the current instrument set.
func (o *Orchestrator) Universe() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.universe...)
}

// IngestTick feeds a real-time tick into the market data engine and counts
// any anomalies the refreshed buffer reveals.
func (o *Orchestrator) IngestTick(t market.Tick) marketdata.Snapshot {
	snap := o.md.Ingest(t)
	for _, a := range o.md.DetectAnomalies(t.Instrument) {
		o.metrics.AnomaliesTotal.WithLabelValues(a.Type).Inc()
	}
	return snap
}

// StartTickPolling feeds the market data engine from src at the given
// cadence, for every instrument in the universe, while the market is open.
// It returns immediately; polling stops when ctx is cancelled.
func (o *Orchestrator) StartTickPolling(ctx context.Context, src market.TickSource, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			if !o.cfg.Hours.Contains(o.now()) {
				continue
			}
			for _, instrument := range o.Universe() {
				tick, err := src.GetTick(ctx, instrument)
				if err != nil {
					o.log.Debug("tick fetch failed",
						zap.String("instrument", instrument), zap.Error(err))
					continue
				}
				o.IngestTick(tick)
			}
		}
	}()
}

// CurrentSignals returns the signals from the most recent cycle.
func (o *Orchestrator) CurrentSignals() map[string]signal.Signal {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[string]signal.Signal, len(o.lastSignals))
	for k, v := range o.lastSignals {
		out[k] = v
	}
	return out
}

// RiskMetrics returns the last computed portfolio risk metrics.
func (o *Orchestrator) RiskMetrics() risk.Metrics {
	return o.risk.LastMetrics()
}

// Status reports the current pipeline state.
func (o *Orchestrator) Status() Status {
	account, positions := o.risk.LastSnapshot()

	o.mu.Lock()
	defer o.mu.Unlock()
	return Status{
		Running:        o.running,
		TradingEnabled: o.tradingEnabled,
		Cycles:         o.cycles,
		LastCycle:      o.lastCycle,
		LastError:      o.lastErr,
		SignalCount:    len(o.lastSignals),
		MarketOpen:     o.cfg.Hours.Contains(o.now()),
		Universe:       append([]string(nil), o.universe...),
		Equity:         account.Equity,
		BuyingPower:    account.BuyingPower,
		PositionCount:  positions,
	}
}

func (o *Orchestrator) loop(ctx context.Context) {
	defer close(o.done)

	for {
		// Cycles only run inside the trading window; outside it the loop
		// just waits and re-checks.
		interval := o.cfg.ClosedInterval
		if o.cfg.Hours.Contains(o.now()) {
			if err := o.RunCycle(ctx); err != nil {
				o.log.Error("cycle failed", zap.Error(err))
			}
			interval = o.cfg.OpenInterval
		}

		timer := time.NewTimer(interval)
		select {
		case <-o.stop:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// RunCycle executes one pass of the pipeline: signals, portfolio
// optimization, per-order compliance, execution, surveillance. A portfolio
// optimization failure aborts the cycle; per-order failures do not.
func (o *Orchestrator) RunCycle(ctx context.Context) error {
	start := o.now()
	o.metrics.CyclesTotal.Inc()
	defer func() {
		o.metrics.CycleDuration.Observe(time.Since(start).Seconds())
	}()

	universe := o.Universe()
	signals := o.signals.GenerateSignals(ctx, universe)
	for _, s := range signals {
		o.metrics.SignalsTotal.WithLabelValues(s.Direction.String()).Inc()
	}

	o.mu.Lock()
	o.cycles++
	o.lastCycle = start
	o.lastSignals = signals
	o.mu.Unlock()

	orders, err := o.risk.OptimizePortfolio(ctx, signals)
	if err != nil {
		o.metrics.CycleErrors.Inc()
		o.setErr(err)
		return fmt.Errorf("portfolio optimization: %w", err)
	}
	o.metrics.OrdersProposed.Add(float64(len(orders)))

	for _, order := range orders {
		o.processOrder(ctx, order)
	}

	o.setErr(nil)
	o.log.Debug("cycle complete",
		zap.Int("signals", len(signals)),
		zap.Int("orders", len(orders)),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (o *Orchestrator) processOrder(ctx context.Context, order trade.Order) {
	ok, violations := o.compliance.PreTradeCheck(ctx, order)
	if !ok {
		for _, v := range violations {
			o.metrics.OrdersSkipped.WithLabelValues(v.Code).Inc()
		}
		return
	}

	if !o.armed() {
		o.log.Info("trading disabled, simulated intent",
			zap.String("order_id", order.ID),
			zap.String("instrument", order.Instrument),
			zap.String("side", string(order.Side)),
			zap.Int64("quantity", order.Quantity))
		return
	}

	res := o.execution.Execute(ctx, order)
	if res.OK() {
		o.metrics.OrdersSubmitted.Inc()
	} else {
		o.metrics.OrdersFailed.Inc()
	}
	o.compliance.PostTradeSurveillance(ctx, res)
}

func (o *Orchestrator) armed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.tradingEnabled
}

func (o *Orchestrator) setErr(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err == nil {
		o.lastErr = ""
		return
	}
	o.lastErr = err.Error()
}
