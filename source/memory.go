package source

import (
	"context"
	"sync"
)

// Memory is an in-memory consent source for tests and local demos. Grant
// state and readiness are toggled explicitly; notifications fire
// synchronously on the calling goroutine, one dispatch at a time.
type Memory struct {
	mu     sync.Mutex
	ready  bool
	grants map[string]bool
	subs   map[Event]map[int]func()
	nextID int

	// dispatchMu serializes notification delivery, so concurrent writers
	// never run two subscriber callbacks at once. Held only during dispatch,
	// never while reading state, so callbacks may call Ready/Granted freely.
	dispatchMu sync.Mutex
}

// NewMemory returns an empty, not-yet-ready source.
func NewMemory() *Memory {
	return &Memory{
		grants: make(map[string]bool),
		subs:   make(map[Event]map[int]func()),
	}
}

// Ready reports whether SetReady has been called.
func (s *Memory) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Granted reports the stored grant state for an identifier.
func (s *Memory) Granted(identifier string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready && s.grants[identifier]
}

// Subscribe registers fn for the named event.
func (s *Memory) Subscribe(event Event, fn func()) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subs[event] == nil {
		s.subs[event] = make(map[int]func())
	}
	id := s.nextID
	s.nextID++
	s.subs[event][id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs[event], id)
	}
}

// SetReady marks the source available and fires EventReady. The context
// parameter keeps the signature aligned with remote-backed sources.
func (s *Memory) SetReady(_ context.Context) error {
	s.mu.Lock()
	s.ready = true
	s.mu.Unlock()
	s.notify(EventReady)
	return nil
}

// SetGrant stores a grant decision for an identifier and fires EventChanged.
func (s *Memory) SetGrant(_ context.Context, identifier string, granted bool) error {
	s.mu.Lock()
	s.grants[identifier] = granted
	s.mu.Unlock()
	s.notify(EventChanged)
	return nil
}

// notify snapshots the subscriber set before invoking callbacks so a
// callback that subscribes or cancels does not mutate the iteration. The
// dispatch mutex delivers notifications one at a time per the Source
// contract, matching the Redis source's single dispatch goroutine.
func (s *Memory) notify(event Event) {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.subs[event]))
	for _, fn := range s.subs[event] {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
