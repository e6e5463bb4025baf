// Package broker defines the brokerage port the trading pipeline submits
// orders through. Implementations live in subpackages.
package broker

import (
	"context"
	"errors"
)

// ErrPositionNotFound is returned by GetPosition when the account holds no
// position in the instrument.
var ErrPositionNotFound = errors.New("position not found")

// Side is the order side.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// OrderKind is the broker order type.
type OrderKind string

const (
	Market OrderKind = "market"
	Limit  OrderKind = "limit"
)

// TimeInForce controls how long an order rests.
type TimeInForce string

const (
	Day TimeInForce = "day"
	GTC TimeInForce = "gtc"
)

// Account is a read-only snapshot of the brokerage account. It is re-fetched
// every cycle and never mutated locally.
type Account struct {
	ID               string
	Equity           float64
	Cash             float64
	BuyingPower      float64
	PatternDayTrader bool
}

// Position is one open position record.
type Position struct {
	Instrument   string
	Quantity     float64
	MarketValue  float64
	CostBasis    float64
	CurrentPrice float64
}

// OrderRequest is a broker order submission. LimitPrice is required for
// limit orders and must be nil otherwise.
type OrderRequest struct {
	Instrument  string
	Quantity    int64
	Side        Side
	Kind        OrderKind
	TimeInForce TimeInForce
	LimitPrice  *float64
}

// Broker is the brokerage port.
type Broker interface {
	GetAccount(ctx context.Context) (Account, error)
	GetAllPositions(ctx context.Context) ([]Position, error)
	GetPosition(ctx context.Context, instrument string) (Position, error)
	// SubmitOrder places an order and returns the broker's order id.
	SubmitOrder(ctx context.Context, req OrderRequest) (string, error)
}
