package telemetry_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consentgate/telemetry"
)

func TestMemoryClientCapture(t *testing.T) {
	t.Run("capture exception records an error-shaped event", func(t *testing.T) {
		client := telemetry.NewMemoryClient(telemetry.DefaultOptions())
		id := client.CaptureException(errors.New("boom"), nil)
		require.NotEmpty(t, id)

		sent := client.SentEvents()
		require.Len(t, sent, 1)
		assert.Equal(t, telemetry.KindError, sent[0].Kind)
		assert.Equal(t, "boom", sent[0].Message)
		assert.Error(t, sent[0].Err)
	})

	t.Run("capture message records a message-shaped event", func(t *testing.T) {
		client := telemetry.NewMemoryClient(telemetry.DefaultOptions())
		id := client.CaptureMessage("hello", nil)
		require.NotEmpty(t, id)

		sent := client.SentEvents()
		require.Len(t, sent, 1)
		assert.Equal(t, telemetry.KindMessage, sent[0].Kind)
	})

	t.Run("nil error and empty message are dropped", func(t *testing.T) {
		client := telemetry.NewMemoryClient(telemetry.DefaultOptions())
		assert.Empty(t, client.CaptureException(nil, nil))
		assert.Empty(t, client.CaptureMessage("", nil))
		assert.Empty(t, client.SentEvents())
	})

	t.Run("disabled client sends nothing", func(t *testing.T) {
		opts := telemetry.DefaultOptions()
		opts.Enabled = false
		client := telemetry.NewMemoryClient(opts)

		assert.Empty(t, client.CaptureMessage("suppressed", nil))
		assert.Empty(t, client.SentEvents())
	})

	t.Run("processors run before before-send and can drop", func(t *testing.T) {
		client := telemetry.NewMemoryClient(telemetry.DefaultOptions())
		var order []string
		client.Options().BeforeSend = func(ev *telemetry.Event, _ *telemetry.Hint) *telemetry.Event {
			order = append(order, "before_send")
			return ev
		}
		client.AddEventProcessor(func(ev *telemetry.Event, _ *telemetry.Hint) *telemetry.Event {
			order = append(order, "processor")
			return ev
		})

		require.NotEmpty(t, client.CaptureMessage("ok", nil))
		assert.Equal(t, []string{"processor", "before_send"}, order)

		client.AddEventProcessor(func(*telemetry.Event, *telemetry.Hint) *telemetry.Event { return nil })
		assert.Empty(t, client.CaptureMessage("dropped", nil))
		assert.Len(t, client.SentEvents(), 1)
	})

	t.Run("before-send returning nil drops the event", func(t *testing.T) {
		opts := telemetry.DefaultOptions()
		opts.BeforeSend = func(*telemetry.Event, *telemetry.Hint) *telemetry.Event { return nil }
		client := telemetry.NewMemoryClient(opts)

		assert.Empty(t, client.CaptureMessage("dropped", nil))
		assert.Empty(t, client.SentEvents())
	})
}

func TestMemoryClientBreadcrumbs(t *testing.T) {
	t.Run("retention cap keeps the newest crumbs", func(t *testing.T) {
		opts := telemetry.DefaultOptions()
		opts.MaxBreadcrumbs = 2
		client := telemetry.NewMemoryClient(opts)

		for i := 0; i < 4; i++ {
			client.AddBreadcrumb(telemetry.Breadcrumb{Message: fmt.Sprintf("crumb-%d", i)})
		}
		crumbs := client.Breadcrumbs()
		require.Len(t, crumbs, 2)
		assert.Equal(t, "crumb-2", crumbs[0].Message)
		assert.Equal(t, "crumb-3", crumbs[1].Message)
	})

	t.Run("zero retention drops everything", func(t *testing.T) {
		opts := telemetry.DefaultOptions()
		opts.MaxBreadcrumbs = 0
		client := telemetry.NewMemoryClient(opts)

		client.AddBreadcrumb(telemetry.Breadcrumb{Message: "gone"})
		assert.Empty(t, client.Breadcrumbs())
	})

	t.Run("before-breadcrumb hook can drop", func(t *testing.T) {
		opts := telemetry.DefaultOptions()
		opts.BeforeBreadcrumb = func(*telemetry.Breadcrumb) *telemetry.Breadcrumb { return nil }
		client := telemetry.NewMemoryClient(opts)

		client.AddBreadcrumb(telemetry.Breadcrumb{Message: "gone"})
		assert.Empty(t, client.Breadcrumbs())
	})
}

func TestMemoryScopeReadBack(t *testing.T) {
	scope := telemetry.NewMemoryScope()

	_, ok := scope.User()
	assert.False(t, ok)

	scope.SetUser(telemetry.User{ID: "u1"})
	scope.SetTag("env", "test")
	scope.SetContext("marketing", map[string]any{"campaign": "x"})

	u, ok := scope.User()
	require.True(t, ok)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, map[string]string{"env": "test"}, scope.Tags())
	assert.Contains(t, scope.Contexts(), "marketing")

	scope.ClearUser()
	scope.RemoveTag("env")
	scope.RemoveContext("marketing")

	_, ok = scope.User()
	assert.False(t, ok)
	assert.Empty(t, scope.Tags())
	assert.Empty(t, scope.Contexts())
}
