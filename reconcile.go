package consentgate

import (
	"log/slog"

	"consentgate/purpose"
	"consentgate/telemetry"
)

// baseline is the telemetry client's pre-gating configuration, captured once
// at setup and never mutated afterwards. It is the "restore to" source for
// every field a reconciliation can overwrite; when no configuration was
// available at setup the documented defaults stand in.
type baseline struct {
	sampleRate               float64
	maxBreadcrumbs           int
	attachStacktrace         bool
	tracesSampleRate         float64
	profilesSampleRate       float64
	replaysSessionSampleRate float64
	replaysOnErrorSampleRate float64
	sendDefaultPII           bool

	beforeSend            func(*telemetry.Event, *telemetry.Hint) *telemetry.Event
	beforeBreadcrumb      func(*telemetry.Breadcrumb) *telemetry.Breadcrumb
	beforeSendTransaction func(*telemetry.Event, *telemetry.Hint) *telemetry.Event
}

func captureBaseline(opts *telemetry.Options) baseline {
	if opts == nil {
		d := telemetry.DefaultOptions()
		opts = &d
	}
	return baseline{
		sampleRate:               opts.SampleRate,
		maxBreadcrumbs:           opts.MaxBreadcrumbs,
		attachStacktrace:         opts.AttachStacktrace,
		tracesSampleRate:         opts.TracesSampleRate,
		profilesSampleRate:       opts.ProfilesSampleRate,
		replaysSessionSampleRate: opts.ReplaysSessionSampleRate,
		replaysOnErrorSampleRate: opts.ReplaysOnErrorSampleRate,
		sendDefaultPII:           opts.SendDefaultPII,
		beforeSend:               opts.BeforeSend,
		beforeBreadcrumb:         opts.BeforeBreadcrumb,
		beforeSendTransaction:    opts.BeforeSendTransaction,
	}
}

// reconciler derives a configuration patch from the baseline and a consent
// snapshot and applies it as a full overwrite of the gated fields on the
// client's live configuration. Applying the same snapshot twice produces the
// identical configuration both times.
type reconciler struct {
	client telemetry.Client
	logger *slog.Logger
	base   baseline
	scope  scopeBaseline
}

func newReconciler(client telemetry.Client, logger *slog.Logger) *reconciler {
	r := &reconciler{client: client, logger: logger}
	if client != nil {
		r.base = captureBaseline(client.Options())
		r.scope = captureScopeBaseline(client.Scope())
	} else {
		r.base = captureBaseline(nil)
	}
	return r
}

// Apply reconciles the client configuration and scope to a snapshot. A
// missing client or configuration is logged and skipped, never an error:
// nothing here may disrupt the host application.
func (r *reconciler) Apply(snap purpose.Snapshot) {
	if r.client == nil {
		r.logger.Warn("telemetry client missing, skipping configuration reconciliation")
		return
	}
	opts := r.client.Options()
	if opts == nil {
		r.logger.Warn("telemetry configuration missing, skipping reconciliation")
		return
	}

	r.applyFunctional(opts, snap.Functional)
	r.applyAnalytics(opts, snap.Analytics)
	r.applyPreferences(opts, snap.Preferences)
	r.updateScope(snap.Marketing)

	r.logger.Debug("telemetry configuration reconciled",
		"functional", snap.Functional,
		"analytics", snap.Analytics,
		"marketing", snap.Marketing,
		"preferences", snap.Preferences,
	)
}

// applyFunctional is the master kill-switch: denied disables the client,
// zeroes capture sampling, and suppresses every outbound event at the client
// level, as defense in depth alongside the admission gate.
func (r *reconciler) applyFunctional(opts *telemetry.Options, granted bool) {
	if granted {
		opts.Enabled = true
		opts.SampleRate = r.base.sampleRate
		opts.BeforeSend = r.base.beforeSend
		return
	}
	opts.Enabled = false
	opts.SampleRate = 0
	opts.BeforeSend = suppressEvent
}

func (r *reconciler) applyAnalytics(opts *telemetry.Options, granted bool) {
	if granted {
		opts.MaxBreadcrumbs = r.base.maxBreadcrumbs
		opts.AttachStacktrace = r.base.attachStacktrace
		opts.TracesSampleRate = r.base.tracesSampleRate
		opts.ProfilesSampleRate = r.base.profilesSampleRate
		opts.BeforeBreadcrumb = r.base.beforeBreadcrumb
		opts.BeforeSendTransaction = r.base.beforeSendTransaction
		return
	}
	opts.MaxBreadcrumbs = 0
	opts.AttachStacktrace = false
	opts.TracesSampleRate = 0
	opts.ProfilesSampleRate = 0
	opts.BeforeBreadcrumb = suppressBreadcrumb
	opts.BeforeSendTransaction = suppressEvent
}

func (r *reconciler) applyPreferences(opts *telemetry.Options, granted bool) {
	if granted {
		opts.SendDefaultPII = r.base.sendDefaultPII
		opts.ReplaysSessionSampleRate = r.base.replaysSessionSampleRate
		opts.ReplaysOnErrorSampleRate = r.base.replaysOnErrorSampleRate
		return
	}
	opts.SendDefaultPII = false
	opts.ReplaysSessionSampleRate = 0
	opts.ReplaysOnErrorSampleRate = 0
}

func suppressEvent(*telemetry.Event, *telemetry.Hint) *telemetry.Event {
	return nil
}

func suppressBreadcrumb(*telemetry.Breadcrumb) *telemetry.Breadcrumb {
	return nil
}
