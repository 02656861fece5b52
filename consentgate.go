// Package consentgate mediates between an asynchronous, purpose-scoped
// consent source and a telemetry client whose behavior must be gated by that
// consent. For every outbound event it decides allow, block, or defer;
// deferred events are buffered and flushed or discarded exactly once consent
// first resolves; every resolution and subsequent change re-derives the
// client configuration and contextual scope from the consent snapshot.
//
// All state lives inside an Integration instance with an explicit lifecycle
// (New, Setup, ProcessEvent/notifications, Close); independent instances do
// not share anything.
package consentgate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"consentgate/purpose"
	"consentgate/source"
	"consentgate/telemetry"
)

const (
	// DefaultReadyTimeout is the deadline for the consent source to become
	// ready before gating falls back to denied.
	DefaultReadyTimeout = 30 * time.Second

	// DefaultMaxQueue caps the deferred-event queue defensively.
	DefaultMaxQueue = 128
)

// Config parameterizes a new integration. Mapping is required; everything
// else has a usable default.
type Config struct {
	// Mapping binds purposes to consent-source identifiers or fixed
	// decisions. Cloned at construction; later mutation has no effect.
	Mapping purpose.Mapping

	// Source is the external consent signal provider. A nil source never
	// becomes ready, so gating degrades to denied at the fallback deadline.
	Source source.Source

	// Debug enables verbose logging of gating decisions.
	Debug bool

	// ReadyTimeout bounds the wait for source readiness. A diagnostic
	// warning fires at two thirds of the deadline; at the deadline gating
	// is forced to denied. Defaults to DefaultReadyTimeout.
	ReadyTimeout time.Duration

	// MaxQueue caps the deferred-event queue. Defaults to DefaultMaxQueue.
	MaxQueue int

	Logger *slog.Logger
	Hooks  Hooks
}

// Integration is the consent-gated event admission and configuration
// adjustment engine grafted onto one telemetry client.
type Integration struct {
	mapping      purpose.Mapping
	src          source.Source
	logger       *slog.Logger
	debug        bool
	hooks        Hooks
	tracer       trace.Tracer
	readyTimeout time.Duration

	gate     *gate
	recon    *reconciler
	client   telemetry.Client
	clientMu sync.RWMutex

	mu            sync.Mutex
	started       bool
	resolved      bool
	closed        bool
	snapshot      purpose.Snapshot
	warnTimer     *time.Timer
	fallbackTimer *time.Timer
	cancelReady   func()
	cancelChanged func()
}

// New validates the configuration and builds an integration. Setup must be
// called before the integration does anything.
func New(cfg Config) (*Integration, error) {
	if len(cfg.Mapping) == 0 {
		return nil, fmt.Errorf("purpose mapping is required")
	}
	for p := range cfg.Mapping {
		if !p.IsValid() {
			return nil, fmt.Errorf("unrecognized purpose %q in mapping", p)
		}
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = DefaultReadyTimeout
	}
	if cfg.MaxQueue <= 0 {
		cfg.MaxQueue = DefaultMaxQueue
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	i := &Integration{
		mapping:      cfg.Mapping.Clone(),
		src:          cfg.Source,
		logger:       cfg.Logger,
		debug:        cfg.Debug,
		hooks:        cfg.Hooks,
		tracer:       otel.Tracer("consentgate"),
		readyTimeout: cfg.ReadyTimeout,
	}
	i.gate = newGate(cfg.MaxQueue, cfg.Logger, cfg.Hooks, i.resubmit)
	return i, nil
}

// Name identifies the integration to the host telemetry client.
func (i *Integration) Name() string {
	return "ConsentGate"
}

// Setup hooks the integration into the client: it captures the restore
// baseline, registers the per-event processor, and either resolves consent
// immediately (source already ready) or arms the bounded wait. Setup never
// lets a consent problem escape as an error; only misuse is reported.
func (i *Integration) Setup(client telemetry.Client) error {
	if client == nil {
		return fmt.Errorf("telemetry client is required")
	}

	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return fmt.Errorf("integration is closed")
	}
	if i.started {
		i.mu.Unlock()
		return fmt.Errorf("integration already set up")
	}
	i.started = true
	i.mu.Unlock()

	i.clientMu.Lock()
	i.client = client
	i.recon = newReconciler(client, i.logger)
	i.clientMu.Unlock()

	client.AddEventProcessor(i.ProcessEvent)

	if i.src != nil && i.src.Ready() {
		i.resolveFirst(false)
		return nil
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.src != nil {
		i.cancelReady = i.src.Subscribe(source.EventReady, i.onReady)
	}
	warnAfter := i.readyTimeout * 2 / 3
	i.warnTimer = time.AfterFunc(warnAfter, func() { i.onWarn(warnAfter) })
	i.fallbackTimer = time.AfterFunc(i.readyTimeout, i.onFallback)
	if i.debug {
		i.logger.Info("waiting for consent source readiness",
			"warn_after", warnAfter, "fallback_after", i.readyTimeout)
	}
	return nil
}

// ProcessEvent is the per-event processing hook, called synchronously by the
// client for every captured event. Deferred and blocked events are dropped
// from the caller's perspective; deferred ones are queued for a possible
// flush at first resolution.
func (i *Integration) ProcessEvent(event *telemetry.Event, hint *telemetry.Hint) *telemetry.Event {
	d := i.gate.Admit(event, hint)
	if i.debug {
		i.logger.Info("event admission", "decision", d.String(), "event_id", string(event.ID))
	}
	if d == DecisionAllow {
		return event
	}
	return nil
}

// State reports the current gating state.
func (i *Integration) State() GatingState {
	return i.gate.State()
}

// Snapshot reports the most recently resolved consent snapshot. The zero
// snapshot is returned before first resolution.
func (i *Integration) Snapshot() purpose.Snapshot {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.snapshot
}

// QueueDepth reports the number of deferred events currently held.
func (i *Integration) QueueDepth() int {
	return i.gate.QueueDepth()
}

// Close cancels timers and subscriptions. Safe to call more than once.
func (i *Integration) Close() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return
	}
	i.closed = true
	i.stopWaitLocked()
	if i.cancelChanged != nil {
		i.cancelChanged()
		i.cancelChanged = nil
	}
}

// stopWaitLocked cancels the readiness timers and subscription. Must hold
// i.mu. Cancellation here is mandatory: a stopped timer that already fired
// is neutralized by the resolved check in its callback.
func (i *Integration) stopWaitLocked() {
	if i.warnTimer != nil {
		i.warnTimer.Stop()
		i.warnTimer = nil
	}
	if i.fallbackTimer != nil {
		i.fallbackTimer.Stop()
		i.fallbackTimer = nil
	}
	if i.cancelReady != nil {
		i.cancelReady()
		i.cancelReady = nil
	}
}

// onReady handles the source-became-ready notification. After a fallback
// denial has already resolved gating, late readiness is treated as a change
// notification instead of a second first-resolution.
func (i *Integration) onReady() {
	i.mu.Lock()
	resolved := i.resolved
	i.mu.Unlock()
	if resolved {
		i.onChange()
		return
	}
	i.resolveFirst(false)
}

func (i *Integration) onWarn(waited time.Duration) {
	i.mu.Lock()
	stale := i.resolved || i.closed
	i.mu.Unlock()
	if stale {
		return
	}
	i.logger.Warn("consent source still not ready", "waited", waited)
	if i.hooks.OnReadyWarning != nil {
		i.hooks.OnReadyWarning(waited)
	}
}

// onFallback forces gating to denied when the source never became ready in
// time. Safe to run even if the source became ready concurrently: the
// resolved check inside resolveFirst makes a superseded fallback a no-op.
func (i *Integration) onFallback() {
	i.mu.Lock()
	stale := i.resolved || i.closed
	i.mu.Unlock()
	if stale {
		return
	}
	i.logger.Warn("consent source not ready before deadline, telemetry denied", "deadline", i.readyTimeout)
	i.resolveFirst(true)
}

// resolveFirst performs the one-time transition out of the not-ready state:
// it resolves a snapshot, gates admission on functional consent, empties the
// queue, reconciles the configuration, and only then subscribes to change
// notifications. forceDenied implements the fallback-timeout path.
func (i *Integration) resolveFirst(forceDenied bool) {
	i.mu.Lock()
	if i.resolved || i.closed {
		i.mu.Unlock()
		return
	}
	i.resolved = true
	i.stopWaitLocked()
	snap := purpose.Resolve(i.mapping, i.src)
	if forceDenied {
		snap.Functional = false
	}
	i.snapshot = snap
	if i.src != nil {
		i.cancelChanged = i.src.Subscribe(source.EventChanged, i.onChange)
		if forceDenied {
			// Keep listening for readiness so a source that shows up after
			// the deadline can still lift the denial via the change path.
			i.cancelReady = i.src.Subscribe(source.EventReady, i.onReady)
		}
	}
	i.mu.Unlock()

	i.applySnapshot(snap, "consentgate.resolve")
}

// onChange handles user-changed-choices notifications after first
// resolution. Structurally identical snapshots are suppressed so spurious
// notifications trigger no reconciliation.
func (i *Integration) onChange() {
	i.mu.Lock()
	if !i.resolved || i.closed {
		i.mu.Unlock()
		return
	}
	snap := purpose.Resolve(i.mapping, i.src)
	if snap.Equal(i.snapshot) {
		i.mu.Unlock()
		return
	}
	i.snapshot = snap
	i.mu.Unlock()

	i.applySnapshot(snap, "consentgate.change")
}

// applySnapshot runs the shared tail of the resolution protocol: gate
// transition (with its queue flush or discard) followed by configuration
// reconciliation. The gate transition never waits for the flush.
func (i *Integration) applySnapshot(snap purpose.Snapshot, spanName string) {
	_, span := i.tracer.Start(context.Background(), spanName, trace.WithAttributes(
		attribute.Bool("consent.functional", snap.Functional),
		attribute.Bool("consent.analytics", snap.Analytics),
		attribute.Bool("consent.marketing", snap.Marketing),
		attribute.Bool("consent.preferences", snap.Preferences),
	))
	defer span.End()

	i.gate.Transition(snap.Functional)
	i.recon.Apply(snap)

	if i.hooks.OnStateChange != nil {
		i.hooks.OnStateChange(i.gate.State(), snap)
	}
	if i.hooks.OnReconcile != nil {
		i.hooks.OnReconcile(snap)
	}
}

// resubmit reconstructs a best-effort equivalent capture for one deferred
// event: errors re-raise through the exception path, messages through the
// message path, anything else passes through opaquely.
func (i *Integration) resubmit(item queuedEvent) {
	i.clientMu.RLock()
	client := i.client
	i.clientMu.RUnlock()
	if client == nil || item.event == nil {
		return
	}
	switch {
	case item.event.Err != nil:
		client.CaptureException(item.event.Err, item.hint)
	case item.event.Kind == telemetry.KindMessage:
		client.CaptureMessage(item.event.Message, item.hint)
	default:
		client.CaptureEvent(item.event, item.hint)
	}
}
