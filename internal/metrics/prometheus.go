// Package metrics provides MetricsCollector implementations.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/piperia-salata-create/Medy-App-sub001/types"
)

// PrometheusCollector implements types.MetricsCollector backed by Prometheus.
//
// Collectors are created and registered lazily on first use, so constructing
// one never panics on a registry that is not used yet. Heartbeat counters are
// labelled by outcome only; subject IDs are left out to keep cardinality flat.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	stateTransitions *prometheus.CounterVec
	currentState     prometheus.Gauge
	heartbeats       *prometheus.CounterVec
	presenceEvents   *prometheus.CounterVec
	reconcileLatency prometheus.Histogram
	reconcilePasses  *prometheus.CounterVec
	listSize         prometheus.Gauge
	refetchFailures  prometheus.Counter
	coalesced        *prometheus.CounterVec
}

var _ types.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheus creates a Prometheus-backed metrics collector.
//
// Parameters:
//   - reg: Registerer to use (prometheus.DefaultRegisterer if nil)
//   - namespace: Metric namespace (defaults to "medy" if empty)
//
// Returns:
//   - *PrometheusCollector: Collector ready to pass to WithMetrics
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "medy"
	}

	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.stateTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "session",
			Name:      "state_transitions_total",
			Help:      "Session state transitions by source and target state.",
		}, []string{"from", "to"})

		p.currentState = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "session",
			Name:      "state",
			Help:      "Current session state (0=idle, 1=active, 2=denied, 3=closed).",
		})

		p.heartbeats = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "heartbeat",
			Name:      "ticks_total",
			Help:      "Heartbeat ticks by outcome.",
		}, []string{"outcome"})

		p.presenceEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "presence",
			Name:      "events_total",
			Help:      "Presence mirror updates by kind.",
		}, []string{"kind"})

		p.reconcileLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "requests",
			Name:      "reconcile_duration_seconds",
			Help:      "Duration of fetch-and-reconcile passes.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms .. ~2s
		})

		p.reconcilePasses = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "requests",
			Name:      "reconcile_passes_total",
			Help:      "Reconcile passes by whether the published list changed.",
		}, []string{"changed"})

		p.listSize = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "requests",
			Name:      "list_size",
			Help:      "Number of eligible incoming requests after the last pass.",
		})

		p.refetchFailures = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "requests",
			Name:      "refetch_failures_total",
			Help:      "Failed candidate fetches.",
		})

		p.coalesced = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "debounce",
			Name:      "coalesced_total",
			Help:      "Refresh triggers absorbed into an already pending run.",
		}, []string{"name"})

		p.reg.MustRegister(p.stateTransitions)
		p.reg.MustRegister(p.currentState)
		p.reg.MustRegister(p.heartbeats)
		p.reg.MustRegister(p.presenceEvents)
		p.reg.MustRegister(p.reconcileLatency)
		p.reg.MustRegister(p.reconcilePasses)
		p.reg.MustRegister(p.listSize)
		p.reg.MustRegister(p.refetchFailures)
		p.reg.MustRegister(p.coalesced)
	})
}

// SessionMetrics implementation

// RecordStateTransition counts the transition and updates the state gauge.
func (p *PrometheusCollector) RecordStateTransition(from, to types.State) {
	p.ensureRegistered()
	p.stateTransitions.WithLabelValues(from.String(), to.String()).Inc()
	p.currentState.Set(float64(to))
}

// HeartbeatMetrics implementation

// RecordHeartbeat counts one tick outcome.
func (p *PrometheusCollector) RecordHeartbeat(_ /* subjectID */ string, outcome string) {
	p.ensureRegistered()
	p.heartbeats.WithLabelValues(outcome).Inc()
}

// PresenceMetrics implementation

// RecordPresenceEvent counts one mirror update.
func (p *PrometheusCollector) RecordPresenceEvent(kind string) {
	p.ensureRegistered()
	p.presenceEvents.WithLabelValues(kind).Inc()
}

// ReconcileMetrics implementation

// RecordReconcile observes one completed pass.
func (p *PrometheusCollector) RecordReconcile(duration float64, size int, changed bool) {
	p.ensureRegistered()
	p.reconcileLatency.Observe(duration)
	p.listSize.Set(float64(size))
	if changed {
		p.reconcilePasses.WithLabelValues("true").Inc()
	} else {
		p.reconcilePasses.WithLabelValues("false").Inc()
	}
}

// RecordRefetchFailure counts one failed fetch.
func (p *PrometheusCollector) RecordRefetchFailure() {
	p.ensureRegistered()
	p.refetchFailures.Inc()
}

// DebounceMetrics implementation

// RecordDebounceCoalesced counts one absorbed trigger for the named refresher.
func (p *PrometheusCollector) RecordDebounceCoalesced(name string) {
	p.ensureRegistered()
	p.coalesced.WithLabelValues(name).Inc()
}
