// Package trade holds the order-intent and execution-result types shared by
// the risk, compliance, and execution engines.
package trade

import (
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/quantpipe/quantpipe/broker"
	"github.com/quantpipe/quantpipe/signal"
)

// Order is a sized order intent. It is immutable once the risk engine has
// produced it; adaptive execution derives child fragments instead of
// mutating it.
type Order struct {
	ID          string
	Instrument  string
	Quantity    int64 // always > 0
	Side        broker.Side
	Kind        broker.OrderKind
	TimeInForce broker.TimeInForce
	Signal      signal.Signal
	Created     time.Time
}

// NewOrderID returns a time-sortable ULID for an order intent.
func NewOrderID() string {
	return ulid.Make().String()
}

// Strategy names the execution strategy applied to an order.
type Strategy string

const (
	Aggressive Strategy = "aggressive"
	Passive    Strategy = "passive"
	Adaptive   Strategy = "adaptive"
)

// Status is the terminal state of an execution attempt.
type Status string

const (
	Submitted Status = "submitted"
	Failed    Status = "failed"
)

// Result reports the outcome of executing one order or order fragment.
type Result struct {
	OrderID       string
	Instrument    string
	Side          broker.Side
	Quantity      int64
	Status        Status
	Strategy      Strategy
	BrokerOrderID string  // present iff submitted
	LimitPrice    float64 // set for passive executions
	Error         string  // set iff failed
	Chunks        int     // total fragments for adaptive execution
	Children      []Result
	Time          time.Time
}

// OK reports whether the execution reached the broker.
func (r Result) OK() bool { return r.Status == Submitted }
