package source_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consentgate/source"
)

func TestMemorySource(t *testing.T) {
	ctx := context.Background()

	t.Run("not ready until marked", func(t *testing.T) {
		src := source.NewMemory()
		assert.False(t, src.Ready())

		require.NoError(t, src.SetReady(ctx))
		assert.True(t, src.Ready())
	})

	t.Run("grants report false before readiness", func(t *testing.T) {
		src := source.NewMemory()
		require.NoError(t, src.SetGrant(ctx, "svc", true))
		assert.False(t, src.Granted("svc"))

		require.NoError(t, src.SetReady(ctx))
		assert.True(t, src.Granted("svc"))
	})

	t.Run("unknown identifiers report false", func(t *testing.T) {
		src := source.NewMemory()
		require.NoError(t, src.SetReady(ctx))
		assert.False(t, src.Granted("never-seen"))
	})

	t.Run("ready notification fires subscribers once each", func(t *testing.T) {
		src := source.NewMemory()
		calls := 0
		src.Subscribe(source.EventReady, func() { calls++ })

		require.NoError(t, src.SetReady(ctx))
		assert.Equal(t, 1, calls)
	})

	t.Run("changed notification fires on every grant write", func(t *testing.T) {
		src := source.NewMemory()
		calls := 0
		src.Subscribe(source.EventChanged, func() { calls++ })

		require.NoError(t, src.SetGrant(ctx, "a", true))
		require.NoError(t, src.SetGrant(ctx, "a", false))
		assert.Equal(t, 2, calls)
	})

	t.Run("canceled subscription never fires again", func(t *testing.T) {
		src := source.NewMemory()
		calls := 0
		cancel := src.Subscribe(source.EventChanged, func() { calls++ })

		require.NoError(t, src.SetGrant(ctx, "a", true))
		cancel()
		cancel() // idempotent
		require.NoError(t, src.SetGrant(ctx, "a", false))
		assert.Equal(t, 1, calls)
	})

	t.Run("events are independently subscribable", func(t *testing.T) {
		src := source.NewMemory()
		readyCalls, changedCalls := 0, 0
		src.Subscribe(source.EventReady, func() { readyCalls++ })
		src.Subscribe(source.EventChanged, func() { changedCalls++ })

		require.NoError(t, src.SetGrant(ctx, "a", true))
		assert.Equal(t, 0, readyCalls)
		assert.Equal(t, 1, changedCalls)
	})
}

// TestMemoryNotificationsSerialized verifies delivery happens one dispatch
// at a time even when writers race: no two subscriber callbacks may ever
// execute concurrently.
func TestMemoryNotificationsSerialized(t *testing.T) {
	ctx := context.Background()
	src := source.NewMemory()

	var inFlight atomic.Int32
	var overlapped atomic.Bool
	src.Subscribe(source.EventChanged, func() {
		if inFlight.Add(1) > 1 {
			overlapped.Store(true)
		}
		time.Sleep(time.Millisecond)
		inFlight.Add(-1)
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(granted bool) {
			defer wg.Done()
			assert.NoError(t, src.SetGrant(ctx, "svc", granted))
		}(i%2 == 0)
	}
	wg.Wait()

	assert.False(t, overlapped.Load(), "two callbacks ran concurrently")
}
