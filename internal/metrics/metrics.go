// Package metrics exposes orchestration measurements to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// Namespace is the namespace for all PostLane metrics.
	Namespace = "postlane"
)

// breakerStateValue maps a breaker state name to its gauge value.
var breakerStateValue = map[string]float64{
	"closed":    0,
	"half_open": 1,
	"open":      2,
}

// Metrics holds all Prometheus collectors of the service. It implements biz.Metrics.
type Metrics struct {
	registry *prometheus.Registry

	// Breaker metrics
	BreakerState       *prometheus.GaugeVec
	BreakerTransitions *prometheus.CounterVec

	// Content metrics
	ContentTransitions *prometheus.CounterVec
	PublishOutcomes    *prometheus.CounterVec

	// Job metrics
	JobExecutions      *prometheus.CounterVec
	JobDurationSeconds *prometheus.HistogramVec
	JobSkips           *prometheus.CounterVec

	// Detector metrics
	SilentFailures *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors on a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)
	m := &Metrics{registry: reg}

	m.initBreakerMetrics(factory)
	m.initContentMetrics(factory)
	m.initJobMetrics(factory)

	return m
}

func (m *Metrics) initBreakerMetrics(factory promauto.Factory) {
	m.BreakerState = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "breaker",
			Name:      "state",
			Help:      "Current circuit state per dependency (0=closed, 1=half_open, 2=open)",
		},
		[]string{"dependency"},
	)

	m.BreakerTransitions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "breaker",
			Name:      "transitions_total",
			Help:      "Total number of circuit state transitions",
		},
		[]string{"dependency", "from", "to"},
	)
}

func (m *Metrics) initContentMetrics(factory promauto.Factory) {
	m.ContentTransitions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "content",
			Name:      "transitions_total",
			Help:      "Total number of content lifecycle transitions",
		},
		[]string{"from", "to"},
	)

	m.PublishOutcomes = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "content",
			Name:      "publish_outcomes_total",
			Help:      "Total number of publish attempts by platform and outcome",
		},
		[]string{"platform", "outcome"},
	)
}

func (m *Metrics) initJobMetrics(factory promauto.Factory) {
	m.JobExecutions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "job",
			Name:      "executions_total",
			Help:      "Total number of job executions by final status",
		},
		[]string{"job", "status"},
	)

	m.JobDurationSeconds = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "job",
			Name:      "duration_seconds",
			Help:      "Duration of job execution in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 13), // 0.1s to ~7min
		},
		[]string{"job"},
	)

	m.JobSkips = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "job",
			Name:      "skips_total",
			Help:      "Total number of job triggers skipped by the gate or the run-lock",
		},
		[]string{"job", "reason"},
	)

	m.SilentFailures = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "detector",
			Name:      "silent_failures_total",
			Help:      "Total number of scheduled runs reported as missing",
		},
		[]string{"job"},
	)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// BreakerStateChanged records a circuit transition. An empty from only
// publishes the initial state.
func (m *Metrics) BreakerStateChanged(dependency, from, to string) {
	if from != "" {
		m.BreakerTransitions.WithLabelValues(dependency, from, to).Inc()
	}
	if v, ok := breakerStateValue[to]; ok {
		m.BreakerState.WithLabelValues(dependency).Set(v)
	}
}

// ContentTransition records a lifecycle move.
func (m *Metrics) ContentTransition(from, to string) {
	m.ContentTransitions.WithLabelValues(from, to).Inc()
}

// JobExecution records a completed job run.
func (m *Metrics) JobExecution(jobName, status string, duration time.Duration) {
	m.JobExecutions.WithLabelValues(jobName, status).Inc()
	m.JobDurationSeconds.WithLabelValues(jobName).Observe(duration.Seconds())
}

// JobSkipped records a trigger that did not run.
func (m *Metrics) JobSkipped(jobName, reason string) {
	m.JobSkips.WithLabelValues(jobName, reason).Inc()
}

// PublishOutcome records one publish attempt.
func (m *Metrics) PublishOutcome(platform, outcome string) {
	m.PublishOutcomes.WithLabelValues(platform, outcome).Inc()
}

// SilentFailure records a newly detected missed run.
func (m *Metrics) SilentFailure(jobName string) {
	m.SilentFailures.WithLabelValues(jobName).Inc()
}
