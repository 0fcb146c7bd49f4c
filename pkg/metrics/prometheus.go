// Package metrics provides Prometheus metrics for the wardline coordinator.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the wardline service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// World metrics - what the coordinator is doing.
	tasksSpawned  *prometheus.CounterVec
	tasksExpired  *prometheus.CounterVec
	resolutions   *prometheus.CounterVec
	claims        *prometheus.CounterVec
	broadcasts    prometheus.Counter
	broadcastSize prometheus.Histogram

	// Live state gauges.
	openTasks     prometheus.Gauge
	activePlayers prometheus.Gauge
	wsSessions    prometheus.Gauge
	teamScore     prometheus.Gauge

	// HTTP sidecar metrics.
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "wardline",
		subsystem:        "world",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	factory := func(name, help string) prometheus.CounterOpts {
		return prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.metricPrefix + name,
			Help:        help,
			ConstLabels: prometheus.Labels(m.customLabels),
		}
	}
	gaugeOpts := func(name, help string) prometheus.GaugeOpts {
		return prometheus.GaugeOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.metricPrefix + name,
			Help:        help,
			ConstLabels: prometheus.Labels(m.customLabels),
		}
	}

	m.tasksSpawned = prometheus.NewCounterVec(factory("tasks_spawned_total", "Tasks spawned by the generator, by urgency tier."), []string{"tier"})
	m.tasksExpired = prometheus.NewCounterVec(factory("tasks_expired_total", "Tasks that hit their TTL unresolved, by urgency tier."), []string{"tier"})
	m.resolutions = prometheus.NewCounterVec(factory("resolutions_total", "Task resolution attempts, by outcome (correct, wrong, stale, denied)."), []string{"outcome"})
	m.claims = prometheus.NewCounterVec(factory("claims_total", "Claim attempts, by outcome (granted, denied, idempotent)."), []string{"outcome"})
	m.broadcasts = prometheus.NewCounter(factory("broadcasts_total", "World snapshot broadcasts sent to all sessions."))
	m.broadcastSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.metricPrefix + "broadcast_size_bytes",
		Help:        "Encoded snapshot size in bytes.",
		Buckets:     prometheus.ExponentialBuckets(256, 4, 8),
		ConstLabels: prometheus.Labels(m.customLabels),
	})

	m.openTasks = prometheus.NewGauge(gaugeOpts("open_tasks", "Currently open tasks."))
	m.activePlayers = prometheus.NewGauge(gaugeOpts("active_players", "Registered participants."))
	m.wsSessions = prometheus.NewGauge(gaugeOpts("ws_sessions", "Connected websocket sessions."))
	m.teamScore = prometheus.NewGauge(gaugeOpts("team_score", "Current shared team score."))

	m.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        m.metricPrefix + "requests_total",
		Help:        "HTTP requests by endpoint, method and status code.",
		ConstLabels: prometheus.Labels(m.customLabels),
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        m.metricPrefix + "request_duration_ms",
		Help:        "HTTP request duration in milliseconds.",
		Buckets:     m.histogramBuckets,
		ConstLabels: prometheus.Labels(m.customLabels),
	}, []string{"endpoint", "method", "status_code"})

	m.systemMemoryUsage = prometheus.NewGauge(gaugeOpts("system_memory_bytes", "Process heap allocation in bytes."))
	m.systemGoroutineCount = prometheus.NewGauge(gaugeOpts("system_goroutines", "Current goroutine count."))
	m.systemGCPauseTime = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.metricPrefix + "system_gc_pause_ms",
		Help:        "Average GC pause time in milliseconds.",
		Buckets:     m.histogramBuckets,
		ConstLabels: prometheus.Labels(m.customLabels),
	})

	if !m.enabled {
		return
	}
	m.registry.MustRegister(
		m.tasksSpawned, m.tasksExpired, m.resolutions, m.claims,
		m.broadcasts, m.broadcastSize,
		m.openTasks, m.activePlayers, m.wsSessions, m.teamScore,
		m.httpRequests, m.httpRequestDuration,
		m.systemMemoryUsage, m.systemGoroutineCount, m.systemGCPauseTime,
	)
}

// RecordTaskSpawned increments the spawn counter for an urgency tier.
func RecordTaskSpawned(tier string) {
	globalManager.tasksSpawned.WithLabelValues(tier).Inc()
}

// RecordTaskExpired increments the expiry counter for an urgency tier.
func RecordTaskExpired(tier string) {
	globalManager.tasksExpired.WithLabelValues(tier).Inc()
}

// RecordResolution increments the resolution counter for an outcome.
func RecordResolution(outcome string) {
	globalManager.resolutions.WithLabelValues(outcome).Inc()
}

// RecordClaim increments the claim counter for an outcome.
func RecordClaim(outcome string) {
	globalManager.claims.WithLabelValues(outcome).Inc()
}

// RecordBroadcast counts one full-world broadcast of the given encoded size.
func RecordBroadcast(sizeBytes int) {
	globalManager.broadcasts.Inc()
	globalManager.broadcastSize.Observe(float64(sizeBytes))
}

// UpdateOpenTasks sets the open task gauge.
func UpdateOpenTasks(n int) {
	globalManager.openTasks.Set(float64(n))
}

// UpdateActivePlayers sets the registered participant gauge.
func UpdateActivePlayers(n int) {
	globalManager.activePlayers.Set(float64(n))
}

// UpdateWSSessions sets the connected session gauge.
func UpdateWSSessions(n int) {
	globalManager.wsSessions.Set(float64(n))
}

// UpdateTeamScore sets the shared team score gauge.
func UpdateTeamScore(score int) {
	globalManager.teamScore.Set(float64(score))
}

// RecordHTTPRequest counts one HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration observes an HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateSystemMemoryUsage sets the heap allocation gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime observes an average GC pause in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by the service.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
