// Package source defines the consent source contract consumed by the gating
// engine, plus in-memory and Redis-backed implementations. A source reports
// per-identifier grant state and emits two distinct notifications: one when
// the source itself becomes ready, one when the user changes their choices.
package source

//go:generate mockgen -source=source.go -destination=mocks/source_mock.go -package=mocks Source

// Event names a notification emitted by a consent source. Both events must
// be individually subscribable and removable.
type Event string

const (
	// EventReady fires once when the source becomes available.
	EventReady Event = "consent_ready"
	// EventChanged fires whenever the user changes their consent choices.
	EventChanged Event = "consent_changed"
)

// Source is the external consent signal provider. Implementations must
// tolerate lookups before readiness (Granted reports false) and must deliver
// notifications one at a time per subscriber.
type Source interface {
	// Ready reports whether the source is available to answer lookups.
	Ready() bool

	// Granted reports whether a single service identifier is currently
	// granted. Unknown identifiers and unavailable sources report false.
	Granted(identifier string) bool

	// Subscribe registers fn for the named event and returns a cancel
	// function that removes the subscription. Cancel is idempotent.
	Subscribe(event Event, fn func()) (cancel func())
}
