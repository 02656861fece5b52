// Package audit records consent-gating decisions for later inspection. It is
// append-only and transport-agnostic so stores and sinks can fan out.
package audit

import (
	"time"

	"consentgate/purpose"
)

// Action names what happened.
type Action string

const (
	ActionGateTransition Action = "gate_transition"
	ActionQueueFlush     Action = "queue_flush"
	ActionQueueDiscard   Action = "queue_discard"
	ActionReconcile      Action = "reconcile"
	ActionReadyWarning   Action = "ready_warning"
)

// Event is one audit record. The snapshot is carried whole so consumers can
// reconstruct the consent state that produced a decision.
type Event struct {
	ID        string           `json:"id"`
	Timestamp time.Time        `json:"timestamp"`
	Action    Action           `json:"action"`
	State     string           `json:"state,omitempty"`
	Snapshot  purpose.Snapshot `json:"snapshot"`
	Count     int              `json:"count,omitempty"`
	Detail    string           `json:"detail,omitempty"`
}
