package telemetry

// EventProcessor inspects or rewrites an event before the client's hooks
// run. Returning nil drops the event.
type EventProcessor func(event *Event, hint *Hint) *Event

// Client is the telemetry client surface consumed by the gating engine: a
// live configuration object, a contextual scope, and capture operations for
// error-shaped, message-shaped, and generic payloads.
//
// Capture methods return the empty EventID when the event was dropped
// (disabled client, processor, or hook).
type Client interface {
	// Options returns the live, mutable configuration object. The gating
	// engine patches it in place.
	Options() *Options

	// Scope returns the client's contextual scope.
	Scope() Scope

	// AddEventProcessor registers a processor on the capture path.
	AddEventProcessor(processor EventProcessor)

	CaptureException(err error, hint *Hint) EventID
	CaptureMessage(message string, hint *Hint) EventID
	CaptureEvent(event *Event, hint *Hint) EventID
}
