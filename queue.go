package consentgate

import "consentgate/telemetry"

// queuedEvent holds one captured event plus its hint while gating is
// undetermined. Each entry is consumed exactly once, at the moment the gate
// leaves its initial state.
type queuedEvent struct {
	event *telemetry.Event
	hint  *telemetry.Hint
}

// eventQueue is a bounded FIFO of deferred events. Not safe for concurrent
// use on its own; the gate's mutex guards it.
type eventQueue struct {
	items []queuedEvent
	max   int
}

// push appends in arrival order. Returns false when the queue is at
// capacity and the item was not stored.
func (q *eventQueue) push(item queuedEvent) bool {
	if q.max > 0 && len(q.items) >= q.max {
		return false
	}
	q.items = append(q.items, item)
	return true
}

// drain returns a stable copy of the held items and clears the live queue,
// so events enqueued during iteration never join the drained batch.
func (q *eventQueue) drain() []queuedEvent {
	out := q.items
	q.items = nil
	return out
}

func (q *eventQueue) len() int {
	return len(q.items)
}
