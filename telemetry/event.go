// Package telemetry defines the contracts this module consumes from a
// telemetry/error-reporting client: capture operations, a mutable
// configuration object, and a mutable contextual scope. It also ships an
// in-memory client used by tests and the demo service.
package telemetry

import (
	"time"

	"github.com/google/uuid"
)

// EventID uniquely identifies a captured event.
type EventID string

// NewEventID returns a fresh random event ID.
func NewEventID() EventID {
	return EventID(uuid.New().String())
}

// Kind classifies the capture shape of an event. Re-submission after a
// deferred admission reconstructs a best-effort equivalent capture based on
// this kind; anything unrecognized is passed through opaquely.
type Kind string

const (
	KindError   Kind = "error"
	KindMessage Kind = "message"
	KindGeneric Kind = "event"
)

// Event is an outbound telemetry payload.
type Event struct {
	ID        EventID           `json:"id"`
	Kind      Kind              `json:"kind"`
	Message   string            `json:"message,omitempty"`
	Level     string            `json:"level,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Tags      map[string]string `json:"tags,omitempty"`
	Extra     map[string]any    `json:"extra,omitempty"`

	// Err carries the original error for error-shaped events so a deferred
	// event can be re-raised through the error capture path.
	Err error `json:"-"`
}

// Hint carries capture-time context alongside an event, opaque to the
// gating engine.
type Hint struct {
	Data any
}

// User identifies the person or principal associated with the scope.
type User struct {
	ID        string `json:"id,omitempty"`
	Email     string `json:"email,omitempty"`
	Username  string `json:"username,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
}

// Breadcrumb records a step leading up to an event.
type Breadcrumb struct {
	Type      string         `json:"type,omitempty"`
	Category  string         `json:"category,omitempty"`
	Message   string         `json:"message,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
