//go:build integration

package source_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consentgate/pkg/testutil/containers"
	"consentgate/source"
)

func TestRedisSource(t *testing.T) {
	ctx := context.Background()
	rc := containers.NewRedisContainer(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	src, err := source.NewRedis(rc.Client, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })

	t.Run("starts not ready with no grants", func(t *testing.T) {
		assert.False(t, src.Ready())
		assert.False(t, src.Granted("error-reporting"))
	})

	t.Run("readiness round-trips and notifies", func(t *testing.T) {
		ready := make(chan struct{}, 1)
		cancel := src.Subscribe(source.EventReady, func() {
			select {
			case ready <- struct{}{}:
			default:
			}
		})
		defer cancel()

		require.NoError(t, src.SetReady(ctx))
		assert.True(t, src.Ready())

		select {
		case <-ready:
		case <-time.After(5 * time.Second):
			t.Fatal("ready notification never arrived over pub/sub")
		}
	})

	t.Run("grants round-trip and notify", func(t *testing.T) {
		changed := make(chan struct{}, 4)
		cancel := src.Subscribe(source.EventChanged, func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
		defer cancel()

		require.NoError(t, src.SetGrant(ctx, "error-reporting", true))
		require.Eventually(t, func() bool {
			return src.Granted("error-reporting")
		}, 5*time.Second, 50*time.Millisecond)

		select {
		case <-changed:
		case <-time.After(5 * time.Second):
			t.Fatal("change notification never arrived over pub/sub")
		}

		require.NoError(t, src.SetGrant(ctx, "error-reporting", false))
		require.Eventually(t, func() bool {
			return !src.Granted("error-reporting")
		}, 5*time.Second, 50*time.Millisecond)
	})

	t.Run("cancelled subscription stops receiving", func(t *testing.T) {
		fired := make(chan struct{}, 1)
		cancel := src.Subscribe(source.EventChanged, func() {
			select {
			case fired <- struct{}{}:
			default:
			}
		})
		cancel()

		require.NoError(t, src.SetGrant(ctx, "product-analytics", true))
		select {
		case <-fired:
			t.Fatal("cancelled subscriber was notified")
		case <-time.After(500 * time.Millisecond):
		}
	})

	t.Run("close is idempotent", func(t *testing.T) {
		other, err := source.NewRedis(rc.Client, logger)
		require.NoError(t, err)
		require.NoError(t, other.Close())
		require.NoError(t, other.Close())
	})
}
