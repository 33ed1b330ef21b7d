package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the registry-wide Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Mutations         *prometheus.CounterVec
	CascadeFailures   *prometheus.CounterVec
	Entities          *prometheus.GaugeVec
	SMLHookDuration   *prometheus.HistogramVec
	BackendConnection prometheus.Gauge
	StartupDuration   prometheus.Histogram
}

// New registers all collectors on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Mutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "smp_mutations_total",
			Help: "Registry mutations by object type, action and outcome",
		}, []string{"object_type", "action", "outcome"}),
		CascadeFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "smp_cascade_failures_total",
			Help: "Swallowed failures of dependent deletes after a service group delete",
		}, []string{"target"}),
		Entities: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "smp_entities",
			Help: "Number of stored entities per object type",
		}, []string{"object_type"}),
		SMLHookDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "smp_sml_hook_duration_seconds",
			Help:    "Duration of SML registration hook calls",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"operation", "outcome"}),
		BackendConnection: f.NewGauge(prometheus.GaugeOpts{
			Name: "smp_backend_connection_state",
			Help: "Backend connection tri-state: -1 undefined, 0 down, 1 up",
		}),
		StartupDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "smp_startup_duration_seconds",
			Help:    "Duration of application initialization",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// IncMutation records a mutation attempt.
func (m *Metrics) IncMutation(objectType, action, outcome string) {
	if m == nil {
		return
	}
	m.Mutations.WithLabelValues(objectType, action, outcome).Inc()
}

// IncCascadeFailure records a swallowed cascade failure.
func (m *Metrics) IncCascadeFailure(target string) {
	if m == nil {
		return
	}
	m.CascadeFailures.WithLabelValues(target).Inc()
}

// SetEntities sets the current entity count of objectType.
func (m *Metrics) SetEntities(objectType string, n int) {
	if m == nil {
		return
	}
	m.Entities.WithLabelValues(objectType).Set(float64(n))
}

// ObserveSMLHook records the duration of an SML hook call.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveSMLHook(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.SMLHookDuration.WithLabelValues(operation, outcome).Observe(time.Since(start).Seconds())
}

// SetBackendConnection publishes the tri-state as -1, 0 or 1.
func (m *Metrics) SetBackendConnection(v float64) {
	if m == nil {
		return
	}
	m.BackendConnection.Set(v)
}

// ObserveStartup records how long initialization took.
func (m *Metrics) ObserveStartup(start time.Time) {
	if m == nil {
		return
	}
	m.StartupDuration.Observe(time.Since(start).Seconds())
}
