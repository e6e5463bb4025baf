package marketdata

import "github.com/quantpipe/quantpipe/market"

// TickBuffer is a fixed-capacity ring of observed ticks. Once full, each
// append evicts the oldest tick.
type TickBuffer struct {
	ticks []market.Tick
	head  int
	size  int
}

// NewTickBuffer creates a buffer holding at most capacity ticks.
func NewTickBuffer(capacity int) *TickBuffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &TickBuffer{ticks: make([]market.Tick, capacity)}
}

// Append adds a tick, evicting the oldest when the buffer is full.
func (b *TickBuffer) Append(t market.Tick) {
	b.ticks[(b.head+b.size)%len(b.ticks)] = t
	if b.size < len(b.ticks) {
		b.size++
	} else {
		b.head = (b.head + 1) % len(b.ticks)
	}
}

// Len returns the number of buffered ticks.
func (b *TickBuffer) Len() int { return b.size }

// Values returns the buffered ticks in chronological order. The returned
// slice is a copy; the buffer is never shared by reference.
func (b *TickBuffer) Values() []market.Tick {
	out := make([]market.Tick, b.size)
	for i := 0; i < b.size; i++ {
		out[i] = b.ticks[(b.head+i)%len(b.ticks)]
	}
	return out
}
