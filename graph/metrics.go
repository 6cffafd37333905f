package graph

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics collects session execution metrics.
//
// Metrics exposed (all namespaced with "postgraph_"):
//
//  1. step_latency_ms (histogram): node execution duration.
//     Labels: node_id, status (success/error).
//  2. interrupts_total (counter): suspensions handed to callers.
//     Labels: kind (post/image).
//  3. sessions_completed_total (counter): sessions that reached the end.
//  4. busy_rejections_total (counter): calls refused because the session
//     was already in flight.
//  5. active_sessions (gauge): sessions started and not yet finished or
//     deleted.
//  6. publish_total (counter): publish attempts by platform and result
//     (success/failure).
//
// Session IDs are never used as labels.
//
// Usage:
//
//	registry := prometheus.NewRegistry()
//	metrics := graph.NewPrometheusMetrics(registry)
//	engine, _ := graph.New(g, st, graph.WithMetrics(metrics))
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
//
// All methods are safe on a nil receiver, which records nothing.
type PrometheusMetrics struct {
	stepLatency       *prometheus.HistogramVec
	interrupts        *prometheus.CounterVec
	sessionsCompleted prometheus.Counter
	busyRejections    prometheus.Counter
	activeSessions    prometheus.Gauge
	publishes         *prometheus.CounterVec

	mu      sync.RWMutex
	enabled bool
}

// NewPrometheusMetrics creates and registers all metrics with registry. A
// nil registry means prometheus.DefaultRegisterer.
func NewPrometheusMetrics(registry prometheus.Registerer) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &PrometheusMetrics{
		enabled: true,
		stepLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "postgraph",
			Name:      "step_latency_ms",
			Help:      "Node execution duration in milliseconds",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 30000}, // LLM calls run long
		}, []string{"node_id", "status"}),
		interrupts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "postgraph",
			Name:      "interrupts_total",
			Help:      "Session suspensions returned to callers for human review",
		}, []string{"kind"}),
		sessionsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "postgraph",
			Name:      "sessions_completed_total",
			Help:      "Sessions that reached the end of the graph",
		}),
		busyRejections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "postgraph",
			Name:      "busy_rejections_total",
			Help:      "Calls rejected because another call held the session",
		}),
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "postgraph",
			Name:      "active_sessions",
			Help:      "Sessions started and not yet completed or deleted",
		}),
		publishes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "postgraph",
			Name:      "publish_total",
			Help:      "Publish attempts by platform and result",
		}, []string{"platform", "result"}),
	}
}

func (pm *PrometheusMetrics) on() bool {
	if pm == nil {
		return false
	}
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.enabled
}

// RecordStepLatency observes one node execution.
func (pm *PrometheusMetrics) RecordStepLatency(nodeID string, latency time.Duration, status string) {
	if !pm.on() {
		return
	}
	pm.stepLatency.WithLabelValues(nodeID, status).Observe(float64(latency.Milliseconds()))
}

// IncrementInterrupts counts a suspension of the given kind.
func (pm *PrometheusMetrics) IncrementInterrupts(kind string) {
	if !pm.on() {
		return
	}
	pm.interrupts.WithLabelValues(kind).Inc()
}

// IncrementBusyRejections counts a call refused with SessionBusyError.
func (pm *PrometheusMetrics) IncrementBusyRejections() {
	if !pm.on() {
		return
	}
	pm.busyRejections.Inc()
}

// SessionStarted increments active_sessions.
func (pm *PrometheusMetrics) SessionStarted() {
	if !pm.on() {
		return
	}
	pm.activeSessions.Inc()
}

// SessionCompleted counts a completion and decrements active_sessions.
func (pm *PrometheusMetrics) SessionCompleted() {
	if !pm.on() {
		return
	}
	pm.sessionsCompleted.Inc()
	pm.activeSessions.Dec()
}

// SessionAbandoned decrements active_sessions for a session deleted before
// it completed.
func (pm *PrometheusMetrics) SessionAbandoned() {
	if !pm.on() {
		return
	}
	pm.activeSessions.Dec()
}

// RecordPublish counts a publish attempt.
func (pm *PrometheusMetrics) RecordPublish(platform string, success bool) {
	if !pm.on() {
		return
	}
	result := "failure"
	if success {
		result = "success"
	}
	pm.publishes.WithLabelValues(platform, result).Inc()
}

// Disable temporarily disables metric recording.
func (pm *PrometheusMetrics) Disable() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.enabled = false
}

// Enable re-enables metric recording after Disable.
func (pm *PrometheusMetrics) Enable() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.enabled = true
}

// Reset zeroes the active_sessions gauge. Counters and histograms are
// cumulative and are left alone.
func (pm *PrometheusMetrics) Reset() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.activeSessions.Set(0)
}
