package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// RunCounter tracks gate invocations by job and outcome.
	RunCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jobgate_runs_total",
		Help: "Total number of gate invocations by outcome",
	}, []string{"job", "outcome"})
	// StoreErrorCounter tracks lease store failures by operation.
	StoreErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jobgate_store_errors_total",
		Help: "Total number of lease store failures",
	}, []string{"job", "op"})
	// WorkDuration observes how long granted work bodies run.
	WorkDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "jobgate_work_duration_seconds",
		Help:    "Duration of work executed under a lease",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
	}, []string{"job"})
	// RunningGauge reports the number of work bodies currently running.
	RunningGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "jobgate_running",
		Help: "Current number of work bodies running under a lease",
	}, []string{"job"})
)

// NewRegistry creates a new Prometheus registry.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// RegisterGateMetrics registers the gate metrics on the provided registry.
func RegisterGateMetrics(reg prometheus.Registerer) {
	reg.MustRegister(RunCounter, StoreErrorCounter, WorkDuration, RunningGauge)
}
