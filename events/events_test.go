package events_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasgurus/discoveryd/events"
)

func TestMemoryBus_ProcessFlushesPending(t *testing.T) {
	var flushed []events.Event
	bus := events.NewMemoryBus(func(ctx context.Context, evs []events.Event) error {
		flushed = append(flushed, evs...)
		return nil
	})

	bus.Add(events.Event{Source: "INTERNAL", Object: "LLD_RULE", ObjectID: 7, Ts: 100, NewState: 0})
	require.NoError(t, bus.Process(context.Background()))

	require.Len(t, flushed, 1)
	assert.Equal(t, uint64(7), flushed[0].ObjectID)
}

func TestMemoryBus_ProcessIsIdempotentOnEmptyQueue(t *testing.T) {
	calls := 0
	bus := events.NewMemoryBus(func(ctx context.Context, evs []events.Event) error {
		calls++
		return nil
	})
	require.NoError(t, bus.Process(context.Background()))
	assert.Zero(t, calls)
}

func TestMemoryBus_ClearDropsPending(t *testing.T) {
	calls := 0
	bus := events.NewMemoryBus(func(ctx context.Context, evs []events.Event) error {
		calls++
		return nil
	})
	bus.Add(events.Event{ObjectID: 1})
	bus.Clear()
	require.NoError(t, bus.Process(context.Background()))
	assert.Zero(t, calls)
}
