// Package metrics holds the Prometheus collectors for stratus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "stratus"

// Registry is the registry served on /metrics.
var Registry = prometheus.NewRegistry()

var (
	// Lifecycle metrics
	transitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "transitions_total",
			Help:      "Total number of cluster status transitions by source and target status",
		},
		[]string{"from", "to"},
	)

	phaseDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "phase_duration_seconds",
			Help:      "Duration of provisioning phases in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12), // 500ms to ~17min
		},
		[]string{"operation", "phase"},
	)

	phaseFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "phase_failures_total",
			Help:      "Total number of failed provisioning phases",
		},
		[]string{"operation", "phase"},
	)

	// Dispatcher metrics
	tasksInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "tasks_in_flight",
			Help:      "Number of background tasks currently running",
		},
	)

	tasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "tasks_total",
			Help:      "Total number of background tasks by result",
		},
		[]string{"result"},
	)

	leaseRejectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "lease_rejections_total",
			Help:      "Total number of rejected lease acquisitions because the key was busy",
		},
	)

	// Substrate API metrics
	substrateCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "substrate",
			Name:      "api_calls_total",
			Help:      "Total number of substrate API calls by provider, operation and result",
		},
		[]string{"provider", "operation", "result"},
	)

	substrateLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "substrate",
			Name:      "api_latency_seconds",
			Help:      "Latency of substrate API calls in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 8), // 100ms to ~25s
		},
		[]string{"provider", "operation"},
	)

	// HTTP metrics
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route, method and status code",
		},
		[]string{"route", "method", "code"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		transitionsTotal,
		phaseDuration,
		phaseFailuresTotal,
		tasksInFlight,
		tasksTotal,
		leaseRejectionsTotal,
		substrateCallsTotal,
		substrateLatency,
		httpRequestsTotal,
	)
}

// RecordTransition records a cluster status change.
func RecordTransition(from, to string) {
	if from == "" {
		from = "New"
	}
	transitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordPhase records the duration and outcome of a provisioning phase.
func RecordPhase(operation, phase string, duration float64, err error) {
	phaseDuration.WithLabelValues(operation, phase).Observe(duration)
	if err != nil {
		phaseFailuresTotal.WithLabelValues(operation, phase).Inc()
	}
}

// TaskStarted increments the in-flight gauge.
func TaskStarted() {
	tasksInFlight.Inc()
}

// TaskFinished decrements the in-flight gauge and counts the result
// ("success", "error" or "panic").
func TaskFinished(result string) {
	tasksInFlight.Dec()
	tasksTotal.WithLabelValues(result).Inc()
}

// RecordLeaseRejection counts a busy-key rejection.
func RecordLeaseRejection() {
	leaseRejectionsTotal.Inc()
}

// RecordSubstrateCall records a substrate API call.
func RecordSubstrateCall(provider, operation string, latency float64, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	substrateCallsTotal.WithLabelValues(provider, operation, result).Inc()
	substrateLatency.WithLabelValues(provider, operation).Observe(latency)
}

// RecordHTTPRequest records a served HTTP request.
func RecordHTTPRequest(route, method, code string) {
	httpRequestsTotal.WithLabelValues(route, method, code).Inc()
}
