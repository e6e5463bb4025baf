// Package execution routes sized orders to the broker, picking an execution
// strategy per order. Execution failures never propagate as errors; every
// attempt yields a terminal Result.
package execution

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/quantpipe/quantpipe/broker"
	"github.com/quantpipe/quantpipe/signal"
	"github.com/quantpipe/quantpipe/trade"
)

// Config tunes strategy selection and adaptive slicing.
type Config struct {
	// AggressiveConfidence is the signal confidence above which an order
	// goes straight to market.
	AggressiveConfidence float64

	// PassiveSizeThreshold is the quantity above which an order rests as a
	// favorable limit instead.
	PassiveSizeThreshold int64

	// AdaptiveChunks is the number of fragments adaptive execution splits
	// an order into.
	AdaptiveChunks int

	// ChunkDelay is the pause between adaptive fragments.
	ChunkDelay time.Duration

	// PassiveOffsetBps offsets the passive limit price from the signal
	// price, favorable to the order side.
	PassiveOffsetBps float64
}

// DefaultConfig returns the standard execution tuning.
func DefaultConfig() Config {
	return Config{
		AggressiveConfidence: 0.8,
		PassiveSizeThreshold: 1000,
		AdaptiveChunks:       5,
		ChunkDelay:           2 * time.Second,
		PassiveOffsetBps:     1,
	}
}

// Engine submits orders through the brokerage port.
type Engine struct {
	broker broker.Broker
	cfg    Config
	log    *zap.Logger

	// sleep is the inter-chunk pause, cancellable through ctx.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewEngine creates an execution engine.
func NewEngine(b broker.Broker, cfg Config, log *zap.Logger) *Engine {
	return &Engine{
		broker: b,
		cfg:    cfg,
		log:    log.Named("execution"),
		sleep:  sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Execute routes one order. The returned Result is always terminal; broker
// rejections and cancellations surface as a failed Result, never an error.
func (e *Engine) Execute(ctx context.Context, o trade.Order) trade.Result {
	strategy := e.selectStrategy(o)
	e.log.Info("executing order",
		zap.String("order_id", o.ID),
		zap.String("instrument", o.Instrument),
		zap.String("side", string(o.Side)),
		zap.Int64("quantity", o.Quantity),
		zap.String("strategy", string(strategy)))

	var res trade.Result
	switch strategy {
	case trade.Aggressive:
		res = e.executeAggressive(ctx, o)
	case trade.Passive:
		res = e.executePassive(ctx, o)
	default:
		res = e.executeAdaptive(ctx, o)
	}

	if !res.OK() {
		e.log.Warn("execution failed",
			zap.String("order_id", o.ID),
			zap.String("instrument", o.Instrument),
			zap.String("error", res.Error))
	}
	return res
}

// selectStrategy picks aggressive for high-conviction signals, passive for
// large orders, adaptive otherwise. Conviction wins when both apply.
func (e *Engine) selectStrategy(o trade.Order) trade.Strategy {
	if o.Signal.Confidence > e.cfg.AggressiveConfidence {
		return trade.Aggressive
	}
	if o.Quantity > e.cfg.PassiveSizeThreshold {
		return trade.Passive
	}
	return trade.Adaptive
}

func (e *Engine) executeAggressive(ctx context.Context, o trade.Order) trade.Result {
	res := trade.Result{
		OrderID:    o.ID,
		Instrument: o.Instrument,
		Side:       o.Side,
		Quantity:   o.Quantity,
		Strategy:   trade.Aggressive,
		Time:       time.Now().UTC(),
	}

	id, err := e.broker.SubmitOrder(ctx, broker.OrderRequest{
		Instrument:  o.Instrument,
		Quantity:    o.Quantity,
		Side:        o.Side,
		Kind:        broker.Market,
		TimeInForce: broker.Day,
	})
	if err != nil {
		res.Status = trade.Failed
		res.Error = err.Error()
		return res
	}
	res.Status = trade.Submitted
	res.BrokerOrderID = id
	return res
}

// executePassive rests a limit order one offset inside the signal price in
// the order's favor: below for buys, above for sells.
func (e *Engine) executePassive(ctx context.Context, o trade.Order) trade.Result {
	res := trade.Result{
		OrderID:    o.ID,
		Instrument: o.Instrument,
		Side:       o.Side,
		Quantity:   o.Quantity,
		Strategy:   trade.Passive,
		Time:       time.Now().UTC(),
	}

	limit := passiveLimit(o.Signal, o.Side, e.cfg.PassiveOffsetBps)
	if limit <= 0 {
		res.Status = trade.Failed
		res.Error = "no reference price for passive limit"
		return res
	}
	res.LimitPrice = limit

	id, err := e.broker.SubmitOrder(ctx, broker.OrderRequest{
		Instrument:  o.Instrument,
		Quantity:    o.Quantity,
		Side:        o.Side,
		Kind:        broker.Limit,
		TimeInForce: broker.Day,
		LimitPrice:  &limit,
	})
	if err != nil {
		res.Status = trade.Failed
		res.Error = err.Error()
		return res
	}
	res.Status = trade.Submitted
	res.BrokerOrderID = id
	return res
}

func passiveLimit(sig signal.Signal, side broker.Side, offsetBps float64) float64 {
	offset := sig.Price * offsetBps / 10000
	if side == broker.Buy {
		return sig.Price - offset
	}
	return sig.Price + offset
}

// executeAdaptive splits the order into fragments submitted with a pause
// between them, alternating aggressive and passive child executions. A
// cancelled pause fails the remaining fragments but keeps the children
// already submitted.
func (e *Engine) executeAdaptive(ctx context.Context, o trade.Order) trade.Result {
	res := trade.Result{
		OrderID:    o.ID,
		Instrument: o.Instrument,
		Side:       o.Side,
		Quantity:   o.Quantity,
		Strategy:   trade.Adaptive,
		Time:       time.Now().UTC(),
	}

	sizes := chunkSizes(o.Quantity, e.cfg.AdaptiveChunks)
	res.Chunks = len(sizes)

	for i, size := range sizes {
		child := o
		child.Quantity = size
		child.ID = fmt.Sprintf("%s-%d", o.ID, i+1)

		var childRes trade.Result
		if i%2 == 0 {
			childRes = e.executeAggressive(ctx, child)
		} else {
			childRes = e.executePassive(ctx, child)
		}
		res.Children = append(res.Children, childRes)
		if !childRes.OK() {
			res.Status = trade.Failed
			res.Error = childRes.Error
			return res
		}

		if i < len(sizes)-1 {
			if err := e.sleep(ctx, e.cfg.ChunkDelay); err != nil {
				res.Status = trade.Failed
				res.Error = err.Error()
				return res
			}
		}
	}

	res.Status = trade.Submitted
	return res
}

// chunkSizes splits qty into at most n fragments of ceil(qty/n) shares,
// the last taking whatever is left. Orders smaller than n collapse into
// fewer single-share fragments.
func chunkSizes(qty int64, n int) []int64 {
	if n < 1 {
		n = 1
	}
	base := (qty + int64(n) - 1) / int64(n)
	if base < 1 {
		base = 1
	}

	var sizes []int64
	remaining := qty
	for remaining > 0 && len(sizes) < n-1 {
		size := base
		if size > remaining {
			size = remaining
		}
		sizes = append(sizes, size)
		remaining -= size
	}
	if remaining > 0 {
		sizes = append(sizes, remaining)
	}
	return sizes
}
