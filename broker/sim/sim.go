// Package sim provides an in-memory paper broker implementing the brokerage
// and bar-source ports, used for paper trading and tests.
package sim

import (
	"context"
	"fmt"
	"sync"

	"github.com/quantpipe/quantpipe/broker"
	"github.com/quantpipe/quantpipe/market"
)

// Broker is a thread-safe in-memory brokerage. The zero value is not usable;
// construct with New.
type Broker struct {
	mu        sync.Mutex
	account   broker.Account
	positions map[string]broker.Position
	bars      map[string]map[market.Granularity][]market.Bar
	submitted []broker.OrderRequest
	nextID    int

	// SubmitErr, AccountErr, and PositionsErr, when set, make the matching
	// call fail. Used to inject collaborator failures in tests.
	SubmitErr    error
	AccountErr   error
	PositionsErr error
}

// New creates a paper broker with the given starting account.
func New(account broker.Account) *Broker {
	return &Broker{
		account:   account,
		positions: make(map[string]broker.Position),
		bars:      make(map[string]map[market.Granularity][]market.Bar),
	}
}

// SetPosition installs or replaces an open position.
func (b *Broker) SetPosition(p broker.Position) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.positions[p.Instrument] = p
}

// SetBars installs the bar history served for an instrument and granularity.
func (b *Broker) SetBars(instrument string, g market.Granularity, bars []market.Bar) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bars[instrument] == nil {
		b.bars[instrument] = make(map[market.Granularity][]market.Bar)
	}
	b.bars[instrument][g] = bars
}

// Submitted returns a copy of all order requests accepted so far.
func (b *Broker) Submitted() []broker.OrderRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]broker.OrderRequest, len(b.submitted))
	copy(out, b.submitted)
	return out
}

func (b *Broker) GetAccount(ctx context.Context) (broker.Account, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.AccountErr != nil {
		return broker.Account{}, b.AccountErr
	}
	return b.account, nil
}

func (b *Broker) GetAllPositions(ctx context.Context) ([]broker.Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.PositionsErr != nil {
		return nil, b.PositionsErr
	}
	out := make([]broker.Position, 0, len(b.positions))
	for _, p := range b.positions {
		out = append(out, p)
	}
	return out, nil
}

func (b *Broker) GetPosition(ctx context.Context, instrument string) (broker.Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.positions[instrument]
	if !ok {
		return broker.Position{}, broker.ErrPositionNotFound
	}
	return p, nil
}

func (b *Broker) SubmitOrder(ctx context.Context, req broker.OrderRequest) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.SubmitErr != nil {
		return "", b.SubmitErr
	}
	b.nextID++
	b.submitted = append(b.submitted, req)
	return fmt.Sprintf("sim-%06d", b.nextID), nil
}

// GetTick implements market.TickSource from the most recent minute bar.
func (b *Broker) GetTick(ctx context.Context, instrument string) (market.Tick, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	bars := b.bars[instrument][market.Minute]
	if len(bars) == 0 {
		return market.Tick{}, fmt.Errorf("no tick data for %s", instrument)
	}
	last := bars[len(bars)-1]
	return market.Tick{
		Instrument: instrument,
		Time:       last.Time,
		Price:      last.Close,
		Volume:     last.Volume,
	}, nil
}

// GetBars implements market.BarSource. Unknown instruments return an empty
// history, not an error.
func (b *Broker) GetBars(ctx context.Context, instrument string, g market.Granularity, limit int) ([]market.Bar, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	bars := b.bars[instrument][g]
	if limit > 0 && len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	out := make([]market.Bar, len(bars))
	copy(out, bars)
	return out, nil
}
