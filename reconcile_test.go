package consentgate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consentgate/purpose"
	"consentgate/telemetry"
)

func newTestClient() *telemetry.MemoryClient {
	return telemetry.NewMemoryClient(telemetry.Options{
		Enabled:                  true,
		SampleRate:               0.5,
		MaxBreadcrumbs:           42,
		AttachStacktrace:         true,
		TracesSampleRate:         0.2,
		ProfilesSampleRate:       0.1,
		ReplaysSessionSampleRate: 0.3,
		ReplaysOnErrorSampleRate: 0.9,
		SendDefaultPII:           true,
	})
}

func allGranted() purpose.Snapshot {
	return purpose.Snapshot{Functional: true, Analytics: true, Marketing: true, Preferences: true}
}

func TestReconcilerFunctional(t *testing.T) {
	t.Run("denial disables the client and suppresses sends", func(t *testing.T) {
		client := newTestClient()
		r := newReconciler(client, discardLogger())

		snap := allGranted()
		snap.Functional = false
		r.Apply(snap)

		opts := client.Options()
		assert.False(t, opts.Enabled)
		assert.Zero(t, opts.SampleRate)
		require.NotNil(t, opts.BeforeSend)
		assert.Nil(t, opts.BeforeSend(&telemetry.Event{}, nil), "suppressor drops every event")
	})

	t.Run("grant restores the captured baseline", func(t *testing.T) {
		client := newTestClient()
		hookRan := false
		client.Options().BeforeSend = func(ev *telemetry.Event, _ *telemetry.Hint) *telemetry.Event {
			hookRan = true
			return ev
		}
		r := newReconciler(client, discardLogger())

		snap := allGranted()
		snap.Functional = false
		r.Apply(snap)
		r.Apply(allGranted())

		opts := client.Options()
		assert.True(t, opts.Enabled)
		assert.Equal(t, 0.5, opts.SampleRate)
		require.NotNil(t, opts.BeforeSend)
		opts.BeforeSend(&telemetry.Event{}, nil)
		assert.True(t, hookRan, "original send filter restored")
	})
}

func TestReconcilerAnalytics(t *testing.T) {
	client := newTestClient()
	r := newReconciler(client, discardLogger())

	snap := allGranted()
	snap.Analytics = false
	r.Apply(snap)

	opts := client.Options()
	assert.Zero(t, opts.MaxBreadcrumbs)
	assert.False(t, opts.AttachStacktrace)
	assert.Zero(t, opts.TracesSampleRate)
	assert.Zero(t, opts.ProfilesSampleRate)
	require.NotNil(t, opts.BeforeBreadcrumb)
	assert.Nil(t, opts.BeforeBreadcrumb(&telemetry.Breadcrumb{}))
	require.NotNil(t, opts.BeforeSendTransaction)
	assert.Nil(t, opts.BeforeSendTransaction(&telemetry.Event{}, nil))

	// Functional-derived fields are untouched.
	assert.True(t, opts.Enabled)
	assert.Equal(t, 0.5, opts.SampleRate)

	r.Apply(allGranted())
	assert.Equal(t, 42, opts.MaxBreadcrumbs)
	assert.True(t, opts.AttachStacktrace)
	assert.Equal(t, 0.2, opts.TracesSampleRate)
	assert.Equal(t, 0.1, opts.ProfilesSampleRate)
}

func TestReconcilerPreferences(t *testing.T) {
	client := newTestClient()
	r := newReconciler(client, discardLogger())

	snap := allGranted()
	snap.Preferences = false
	r.Apply(snap)

	opts := client.Options()
	assert.False(t, opts.SendDefaultPII)
	assert.Zero(t, opts.ReplaysSessionSampleRate)
	assert.Zero(t, opts.ReplaysOnErrorSampleRate)

	r.Apply(allGranted())
	assert.True(t, opts.SendDefaultPII)
	assert.Equal(t, 0.3, opts.ReplaysSessionSampleRate)
	assert.Equal(t, 0.9, opts.ReplaysOnErrorSampleRate)
}

// TestReconcilerIdempotent verifies applying the same snapshot twice yields
// the identical configuration both times.
func TestReconcilerIdempotent(t *testing.T) {
	client := newTestClient()
	r := newReconciler(client, discardLogger())

	snap := purpose.Snapshot{Functional: true, Analytics: false, Preferences: true}
	r.Apply(snap)
	first := *client.Options()
	r.Apply(snap)
	second := *client.Options()

	assert.Equal(t, first.Enabled, second.Enabled)
	assert.Equal(t, first.SampleRate, second.SampleRate)
	assert.Equal(t, first.MaxBreadcrumbs, second.MaxBreadcrumbs)
	assert.Equal(t, first.AttachStacktrace, second.AttachStacktrace)
	assert.Equal(t, first.TracesSampleRate, second.TracesSampleRate)
	assert.Equal(t, first.ProfilesSampleRate, second.ProfilesSampleRate)
	assert.Equal(t, first.ReplaysSessionSampleRate, second.ReplaysSessionSampleRate)
	assert.Equal(t, first.ReplaysOnErrorSampleRate, second.ReplaysOnErrorSampleRate)
	assert.Equal(t, first.SendDefaultPII, second.SendDefaultPII)
}

func TestReconcilerMissingClient(t *testing.T) {
	r := newReconciler(nil, discardLogger())
	// Must not panic; reconciliation is skipped.
	r.Apply(allGranted())
}

func TestScopeUpdate(t *testing.T) {
	setupScope := func(client *telemetry.MemoryClient) {
		scope := client.Scope()
		scope.SetUser(telemetry.User{ID: "u1", Email: "u1@example.com"})
		scope.SetTag("team", "platform")
		scope.SetTag("region", "eu")
		scope.SetContext("marketing", map[string]any{"campaign": "x"})
		scope.SetContext("device", map[string]any{"model": "demo"})
	}

	t.Run("marketing denial clears identity, tags and contexts", func(t *testing.T) {
		client := newTestClient()
		setupScope(client)
		r := newReconciler(client, discardLogger())

		snap := allGranted()
		snap.Marketing = false
		r.Apply(snap)

		scope := client.Scope().(*telemetry.MemoryScope)
		_, ok := scope.User()
		assert.False(t, ok)
		assert.Empty(t, scope.Tags(), "tag keys removed outright, not blanked")
		assert.Empty(t, scope.Contexts())
	})

	t.Run("re-grant restores the setup-time capture", func(t *testing.T) {
		client := newTestClient()
		setupScope(client)
		r := newReconciler(client, discardLogger())

		snap := allGranted()
		snap.Marketing = false
		r.Apply(snap)
		r.Apply(allGranted())

		scope := client.Scope().(*telemetry.MemoryScope)
		u, ok := scope.User()
		require.True(t, ok)
		assert.Equal(t, "u1", u.ID)
		assert.Equal(t, map[string]string{"team": "platform", "region": "eu"}, scope.Tags())
		assert.Contains(t, scope.Contexts(), "marketing")
		assert.Contains(t, scope.Contexts(), "device")
	})

	t.Run("only setup-time keys are known to the baseline", func(t *testing.T) {
		client := newTestClient()
		setupScope(client)
		r := newReconciler(client, discardLogger())

		client.Scope().SetTag("late", "value")

		snap := allGranted()
		snap.Marketing = false
		r.Apply(snap)

		scope := client.Scope().(*telemetry.MemoryScope)
		tags := scope.Tags()
		assert.Contains(t, tags, "late", "keys added after setup survive a denial")
		assert.NotContains(t, tags, "team")

		r.Apply(allGranted())
		assert.Contains(t, scope.Tags(), "team", "setup-time keys come back on re-grant")
	})
}
