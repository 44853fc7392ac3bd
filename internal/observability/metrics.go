package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce         sync.Once
	attemptsStartedTotal prometheus.Counter
	attemptsFinalized    *prometheus.CounterVec
	sweepRunsTotal       *prometheus.CounterVec
	sweepDurationSeconds prometheus.Histogram
	httpRequestsTotal    *prometheus.CounterVec
	httpLatencySeconds   *prometheus.HistogramVec
)

// RegisterMetrics initialises the Prometheus collectors of the exam engine.
func RegisterMetrics() {
	registerOnce.Do(func() {
		attemptsStartedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "exam_attempts_started_total",
			Help: "Total number of exam attempts started.",
		})

		attemptsFinalized = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exam_attempts_finalized_total",
			Help: "Total number of exam attempts finalized, by terminal status.",
		}, []string{"status"})

		sweepRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exam_sweep_runs_total",
			Help: "Total number of expired-attempt sweeps, by outcome.",
		}, []string{"outcome"})

		sweepDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "exam_sweep_duration_seconds",
			Help:    "Duration of expired-attempt sweeps.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		})

		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latency distribution of HTTP requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		prometheus.MustRegister(attemptsStartedTotal, attemptsFinalized, sweepRunsTotal,
			sweepDurationSeconds, httpRequestsTotal, httpLatencySeconds)
	})
}

// AttemptsStarted exposes the counter of started attempts.
func AttemptsStarted() prometheus.Counter {
	RegisterMetrics()
	return attemptsStartedTotal
}

// AttemptsFinalized exposes the counter of finalized attempts.
func AttemptsFinalized() *prometheus.CounterVec {
	RegisterMetrics()
	return attemptsFinalized
}

// SweepRuns exposes the counter of sweep runs.
func SweepRuns() *prometheus.CounterVec {
	RegisterMetrics()
	return sweepRunsTotal
}

// SweepDuration exposes the sweep duration histogram.
func SweepDuration() prometheus.Histogram {
	RegisterMetrics()
	return sweepDurationSeconds
}

// HTTPRequests exposes the counter of HTTP requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the HTTP latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}
