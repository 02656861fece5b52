package consentgate

import (
	"log/slog"
	"sync"

	"consentgate/telemetry"
)

// GatingState is the admission state machine. GateNotReady is initial; the
// transition to a ready state happens exactly once, via first resolution or
// fallback-timeout expiry. GateGranted and GateDenied may alternate
// afterwards on consent changes; the state never re-enters GateNotReady.
type GatingState int

const (
	GateNotReady GatingState = iota
	GateGranted
	GateDenied
)

func (s GatingState) String() string {
	switch s {
	case GateNotReady:
		return "not_ready"
	case GateGranted:
		return "granted"
	case GateDenied:
		return "denied"
	}
	return "unknown"
}

// Decision classifies a single admitted event.
type Decision int

const (
	// DecisionDefer means gating is undetermined; the event was queued and
	// the caller must suppress it for now.
	DecisionDefer Decision = iota
	// DecisionAllow lets the event through.
	DecisionAllow
	// DecisionBlock suppresses the event permanently.
	DecisionBlock
)

func (d Decision) String() string {
	switch d {
	case DecisionDefer:
		return "defer"
	case DecisionAllow:
		return "allow"
	case DecisionBlock:
		return "block"
	}
	return "unknown"
}

// gate owns the admission state and the deferred-event queue. All state is
// guarded by a single mutex; Admit and Transition never run concurrently
// against it. Admit returns synchronously in O(1) beyond the queue append.
type gate struct {
	mu    sync.Mutex
	state GatingState
	queue eventQueue

	logger *slog.Logger
	hooks  Hooks

	// submit re-captures one flushed event through the client's normal
	// capture path. Invoked only from the detached flush goroutine.
	submit func(item queuedEvent)
}

func newGate(maxQueue int, logger *slog.Logger, hooks Hooks, submit func(queuedEvent)) *gate {
	return &gate{
		state:  GateNotReady,
		queue:  eventQueue{max: maxQueue},
		logger: logger,
		hooks:  hooks,
		submit: submit,
	}
}

// Admit classifies an event against the current gating state. While gating
// is undetermined the event is queued in arrival order; past the defensive
// cap the incoming event is dropped but still reported as deferred.
func (g *gate) Admit(event *telemetry.Event, hint *telemetry.Hint) Decision {
	g.mu.Lock()
	var d Decision
	dropped := false
	switch g.state {
	case GateNotReady:
		d = DecisionDefer
		dropped = !g.queue.push(queuedEvent{event: event, hint: hint})
	case GateGranted:
		d = DecisionAllow
	default:
		d = DecisionBlock
	}
	g.mu.Unlock()

	if dropped {
		g.logger.Warn("deferred event dropped, queue at capacity", "queue_max", g.queue.max)
		if g.hooks.OnQueueDrop != nil {
			g.hooks.OnQueueDrop()
		}
	}
	if g.hooks.OnAdmit != nil {
		g.hooks.OnAdmit(d)
	}
	return d
}

// Transition moves the gate to granted or denied and empties the queue
// exactly once: re-submission on grant, discard on denial. The live queue is
// cleared before iteration so captures triggered by re-submission are
// evaluated against the new state rather than joining the drained batch.
// Re-submission runs on a detached goroutine; Transition never waits for it.
func (g *gate) Transition(granted bool) {
	g.mu.Lock()
	prev := g.state
	if granted {
		g.state = GateGranted
	} else {
		g.state = GateDenied
	}
	next := g.state
	batch := g.queue.drain()
	g.mu.Unlock()

	if prev == next && len(batch) == 0 {
		return
	}
	g.logger.Debug("gating state transition", "from", prev.String(), "to", next.String(), "queued", len(batch))

	if len(batch) == 0 {
		return
	}
	if !granted {
		g.logger.Debug("discarding deferred events", "count", len(batch))
		if g.hooks.OnQueueDiscard != nil {
			g.hooks.OnQueueDiscard(len(batch))
		}
		return
	}
	go g.flush(batch)
}

// flush re-submits a drained batch in original arrival order, best-effort
// per event: a failure on one item must not abort the remaining items.
func (g *gate) flush(batch []queuedEvent) {
	for _, item := range batch {
		g.resubmit(item)
	}
	if g.hooks.OnQueueFlush != nil {
		g.hooks.OnQueueFlush(len(batch))
	}
}

func (g *gate) resubmit(item queuedEvent) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Warn("re-submission of deferred event failed", "panic", r)
		}
	}()
	g.submit(item)
}

// State reports the current gating state.
func (g *gate) State() GatingState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// QueueDepth reports the number of deferred events currently held.
func (g *gate) QueueDepth() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.queue.len()
}
