package telemetry

// Options is the client's mutable configuration object. The gating engine
// overwrites the consent-gated fields in full on every reconciliation; a
// field per knob (rather than an open map) keeps that overwrite exhaustive.
type Options struct {
	// Enabled is the master kill-switch. When false the client must send
	// nothing, regardless of the other fields.
	Enabled bool

	// SampleRate is the capture sampling rate for error events, in [0, 1].
	SampleRate float64

	// MaxBreadcrumbs caps breadcrumb retention; zero retains none.
	MaxBreadcrumbs int

	// AttachStacktrace attaches stack traces to message captures.
	AttachStacktrace bool

	TracesSampleRate   float64
	ProfilesSampleRate float64

	ReplaysSessionSampleRate float64
	ReplaysOnErrorSampleRate float64

	// SendDefaultPII includes request/user PII on outbound events.
	SendDefaultPII bool

	// BeforeSend runs before an event leaves the client; returning nil
	// drops the event.
	BeforeSend func(event *Event, hint *Hint) *Event

	// BeforeBreadcrumb runs before a breadcrumb is recorded; returning nil
	// drops the breadcrumb.
	BeforeBreadcrumb func(breadcrumb *Breadcrumb) *Breadcrumb

	// BeforeSendTransaction runs before a transaction leaves the client;
	// returning nil drops it.
	BeforeSendTransaction func(event *Event, hint *Hint) *Event
}

// Default values applied when no original configuration was captured at
// setup time.
const (
	DefaultMaxBreadcrumbs   = 100
	DefaultSampleRate       = 1.0
	DefaultAttachStacktrace = false
	DefaultSendDefaultPII   = false
)

// DefaultOptions returns the documented fallback configuration.
func DefaultOptions() Options {
	return Options{
		Enabled:          true,
		SampleRate:       DefaultSampleRate,
		MaxBreadcrumbs:   DefaultMaxBreadcrumbs,
		AttachStacktrace: DefaultAttachStacktrace,
		SendDefaultPII:   DefaultSendDefaultPII,
	}
}
