// Package events is a minimal stand-in for the server's internal event
// subsystem (spec §1, out of scope), narrowed to the single transition the
// driver needs to report: a discovery rule's state flipping from
// NOTSUPPORTED to NORMAL (spec §4.7 step 7).
package events

import (
	"context"
	"sync"
)

// Event is one pending state-change notification.
type Event struct {
	Source   string
	Object   string
	ObjectID uint64
	Ts       int64
	NewState int
}

// Bus collects events for later flushing. Add is called as state changes
// are discovered; Process delivers everything collected so far and Clear
// drops anything not yet processed. The driver calls Add then Process; it
// does not call Clear.
type Bus interface {
	Add(ev Event)
	Process(ctx context.Context) error
	Clear()
}

// Sink receives events flushed by Process, e.g. for delivery to a real
// event pipeline. Tests can supply a Sink that records calls.
type Sink func(ctx context.Context, events []Event) error

// MemoryBus is a Bus backed by an in-memory slice, flushed through an
// injected Sink.
type MemoryBus struct {
	mu      sync.Mutex
	pending []Event
	sink    Sink
}

// NewMemoryBus returns a Bus that hands flushed events to sink. A nil sink
// is treated as a no-op, useful for tests that only care about Add/Clear
// bookkeeping.
func NewMemoryBus(sink Sink) *MemoryBus {
	return &MemoryBus{sink: sink}
}

func (b *MemoryBus) Add(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, ev)
}

func (b *MemoryBus) Process(ctx context.Context) error {
	b.mu.Lock()
	pending := b.pending
	b.pending = nil
	b.mu.Unlock()

	if len(pending) == 0 || b.sink == nil {
		return nil
	}
	return b.sink(ctx, pending)
}

func (b *MemoryBus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = nil
}
