// Package metrics exposes Prometheus instrumentation for the demo service's
// gating pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	EventsAdmitted  *prometheus.CounterVec
	QueueDepth      prometheus.Gauge
	QueueFlushed    prometheus.Counter
	QueueDiscarded  prometheus.Counter
	QueueDropped    prometheus.Counter
	Reconciliations prometheus.Counter
	GatingState     prometheus.Gauge
}

// New registers the gating metrics with the given registerer. Taking the
// registerer as a parameter keeps independent instances from colliding in
// tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EventsAdmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "consentgate_events_admitted_total",
			Help: "Total events evaluated by the admission gate, by decision",
		}, []string{"decision"}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "consentgate_queue_depth",
			Help: "Deferred events currently held pending consent resolution",
		}),
		QueueFlushed: factory.NewCounter(prometheus.CounterOpts{
			Name: "consentgate_queue_flushed_total",
			Help: "Deferred events re-submitted after consent was granted",
		}),
		QueueDiscarded: factory.NewCounter(prometheus.CounterOpts{
			Name: "consentgate_queue_discarded_total",
			Help: "Deferred events discarded after consent was denied",
		}),
		QueueDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "consentgate_queue_dropped_total",
			Help: "Deferred events lost to the defensive queue cap",
		}),
		Reconciliations: factory.NewCounter(prometheus.CounterOpts{
			Name: "consentgate_reconciliations_total",
			Help: "Configuration reconciliations applied to the telemetry client",
		}),
		GatingState: factory.NewGauge(prometheus.GaugeOpts{
			Name: "consentgate_gating_state",
			Help: "Current gating state (0 not ready, 1 granted, 2 denied)",
		}),
	}
}

func (m *Metrics) ObserveAdmission(decision string) {
	m.EventsAdmitted.WithLabelValues(decision).Inc()
}

func (m *Metrics) SetQueueDepth(depth int) {
	m.QueueDepth.Set(float64(depth))
}

func (m *Metrics) SetGatingState(state int) {
	m.GatingState.Set(float64(state))
}
