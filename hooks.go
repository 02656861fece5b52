package consentgate

import (
	"time"

	"consentgate/purpose"
)

// Hooks receives lifecycle notifications from the integration. Every field
// is optional; nil hooks are skipped. Hooks must be fast and must not call
// back into the integration synchronously.
//
// The demo service bridges these to Prometheus metrics and the audit trail,
// keeping the library itself free of those dependencies.
type Hooks struct {
	// OnAdmit fires for every event evaluated by the admission gate.
	OnAdmit func(decision Decision)

	// OnStateChange fires after every gating transition, including the
	// first resolution.
	OnStateChange func(state GatingState, snapshot purpose.Snapshot)

	// OnReconcile fires after every configuration reconciliation.
	OnReconcile func(snapshot purpose.Snapshot)

	// OnQueueFlush fires once per drained batch that was re-submitted.
	OnQueueFlush func(count int)

	// OnQueueDiscard fires once per drained batch that was discarded.
	OnQueueDiscard func(count int)

	// OnQueueDrop fires when a deferred event is lost to the queue cap.
	OnQueueDrop func()

	// OnReadyWarning fires when the consent source is still not ready at
	// the warning threshold. Diagnostic only; no state change.
	OnReadyWarning func(waited time.Duration)
}
