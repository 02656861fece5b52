package telemetry

import (
	"sync"
	"time"
)

// MemoryClient is an in-process telemetry client that records sent events
// instead of shipping them anywhere. It implements the full Client contract
// (live options, scope, processors, hooks) so the gating engine can be
// exercised end to end in tests and the demo service.
type MemoryClient struct {
	mu          sync.Mutex
	opts        Options
	scope       *MemoryScope
	processors  []EventProcessor
	sent        []*Event
	breadcrumbs []Breadcrumb
}

// NewMemoryClient builds a client with the given initial configuration.
func NewMemoryClient(opts Options) *MemoryClient {
	return &MemoryClient{
		opts:  opts,
		scope: NewMemoryScope(),
	}
}

// Options returns the live configuration object.
func (c *MemoryClient) Options() *Options {
	return &c.opts
}

// Scope returns the client's contextual scope.
func (c *MemoryClient) Scope() Scope {
	return c.scope
}

// AddEventProcessor registers a processor on the capture path.
func (c *MemoryClient) AddEventProcessor(processor EventProcessor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.processors = append(c.processors, processor)
}

// CaptureException records an error-shaped event.
func (c *MemoryClient) CaptureException(err error, hint *Hint) EventID {
	if err == nil {
		return ""
	}
	return c.CaptureEvent(&Event{
		Kind:    KindError,
		Message: err.Error(),
		Level:   "error",
		Err:     err,
	}, hint)
}

// CaptureMessage records a message-shaped event.
func (c *MemoryClient) CaptureMessage(message string, hint *Hint) EventID {
	if message == "" {
		return ""
	}
	return c.CaptureEvent(&Event{
		Kind:    KindMessage,
		Message: message,
		Level:   "info",
	}, hint)
}

// CaptureEvent runs an event through processors and hooks, then records it.
func (c *MemoryClient) CaptureEvent(event *Event, hint *Hint) EventID {
	if event == nil {
		return ""
	}
	if event.ID == "" {
		event.ID = NewEventID()
	}
	if event.Kind == "" {
		event.Kind = KindGeneric
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	c.mu.Lock()
	enabled := c.opts.Enabled
	processors := append([]EventProcessor(nil), c.processors...)
	beforeSend := c.opts.BeforeSend
	c.mu.Unlock()

	if !enabled {
		return ""
	}
	for _, p := range processors {
		if event = p(event, hint); event == nil {
			return ""
		}
	}
	if beforeSend != nil {
		if event = beforeSend(event, hint); event == nil {
			return ""
		}
	}

	c.mu.Lock()
	c.sent = append(c.sent, event)
	c.mu.Unlock()
	return event.ID
}

// AddBreadcrumb records a breadcrumb, honoring the retention cap and the
// BeforeBreadcrumb hook.
func (c *MemoryClient) AddBreadcrumb(crumb Breadcrumb) {
	c.mu.Lock()
	max := c.opts.MaxBreadcrumbs
	before := c.opts.BeforeBreadcrumb
	c.mu.Unlock()

	if max <= 0 {
		return
	}
	if before != nil {
		b := before(&crumb)
		if b == nil {
			return
		}
		crumb = *b
	}
	if crumb.Timestamp.IsZero() {
		crumb.Timestamp = time.Now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.breadcrumbs = append(c.breadcrumbs, crumb)
	if len(c.breadcrumbs) > max {
		c.breadcrumbs = c.breadcrumbs[len(c.breadcrumbs)-max:]
	}
}

// SentEvents returns a copy of everything the client actually sent.
func (c *MemoryClient) SentEvents() []*Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Event(nil), c.sent...)
}

// Breadcrumbs returns a copy of the retained breadcrumbs.
func (c *MemoryClient) Breadcrumbs() []Breadcrumb {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Breadcrumb(nil), c.breadcrumbs...)
}

// MemoryScope is an in-memory Scope with read-back support, so the gating
// engine can capture and restore the setup-time baseline.
type MemoryScope struct {
	mu       sync.Mutex
	user     *User
	tags     map[string]string
	contexts map[string]map[string]any
}

// NewMemoryScope returns an empty scope.
func NewMemoryScope() *MemoryScope {
	return &MemoryScope{
		tags:     make(map[string]string),
		contexts: make(map[string]map[string]any),
	}
}

func (s *MemoryScope) SetUser(user User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = &user
}

func (s *MemoryScope) ClearUser() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
}

func (s *MemoryScope) SetTag(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tags[key] = value
}

func (s *MemoryScope) RemoveTag(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tags, key)
}

func (s *MemoryScope) SetContext(key string, value map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contexts[key] = value
}

func (s *MemoryScope) RemoveContext(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.contexts, key)
}

// User reports the current user association, if any.
func (s *MemoryScope) User() (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

// Tags returns a copy of the current tags.
func (s *MemoryScope) Tags() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.tags))
	for k, v := range s.tags {
		out[k] = v
	}
	return out
}

// Contexts returns a copy of the current context blocks.
func (s *MemoryScope) Contexts() map[string]map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]map[string]any, len(s.contexts))
	for k, v := range s.contexts {
		inner := make(map[string]any, len(v))
		for ik, iv := range v {
			inner[ik] = iv
		}
		out[k] = inner
	}
	return out
}
