//go:build integration

package audit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consentgate/internal/audit"
	"consentgate/pkg/testutil/containers"
	"consentgate/purpose"
)

func TestPostgresStore(t *testing.T) {
	ctx := context.Background()
	pc := containers.NewPostgresContainer(t)

	store := audit.NewPostgresStore(pc.DB)
	require.NoError(t, store.EnsureSchema(ctx))
	require.NoError(t, store.EnsureSchema(ctx), "schema creation is idempotent")

	t.Run("append and list round-trip", func(t *testing.T) {
		require.NoError(t, pc.TruncateTables(ctx, "consent_audit"))

		first := audit.Event{
			Timestamp: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
			Action:    audit.ActionGateTransition,
			State:     "granted",
			Snapshot:  purpose.Snapshot{Functional: true, Preferences: true},
		}
		second := audit.Event{
			Timestamp: time.Date(2026, 2, 1, 9, 1, 0, 0, time.UTC),
			Action:    audit.ActionQueueFlush,
			Snapshot:  purpose.Snapshot{Functional: true, Preferences: true},
			Count:     7,
			Detail:    "first resolution",
		}
		require.NoError(t, store.Append(ctx, first))
		require.NoError(t, store.Append(ctx, second))

		events, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, events, 2)

		assert.Equal(t, audit.ActionGateTransition, events[0].Action)
		assert.Equal(t, "granted", events[0].State)
		assert.True(t, events[0].Snapshot.Functional)
		assert.True(t, events[0].Snapshot.Preferences)
		assert.False(t, events[0].Snapshot.Marketing)
		assert.NotEmpty(t, events[0].ID, "store assigns an id when missing")

		assert.Equal(t, audit.ActionQueueFlush, events[1].Action)
		assert.Equal(t, 7, events[1].Count)
		assert.Equal(t, "first resolution", events[1].Detail)
	})

	t.Run("listing is ordered by recording time", func(t *testing.T) {
		require.NoError(t, pc.TruncateTables(ctx, "consent_audit"))

		// Append out of order; List must sort by recorded_at.
		late := audit.Event{Timestamp: time.Date(2026, 2, 2, 12, 0, 0, 0, time.UTC), Action: audit.ActionReconcile}
		early := audit.Event{Timestamp: time.Date(2026, 2, 2, 11, 0, 0, 0, time.UTC), Action: audit.ActionReadyWarning}
		require.NoError(t, store.Append(ctx, late))
		require.NoError(t, store.Append(ctx, early))

		events, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, audit.ActionReadyWarning, events[0].Action)
		assert.Equal(t, audit.ActionReconcile, events[1].Action)
	})
}
