// Package metrics provides Prometheus metrics for the VMS allocation coordinator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the coordinator.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Allocation
	submissions       *prometheus.CounterVec
	submittedMembers  *prometheus.CounterVec
	localRejections   *prometheus.CounterVec
	submitLatency     prometheus.Histogram
	selectionsPending prometheus.Gauge

	// Tracker / sessions
	busyMembers     prometheus.Gauge
	trackedMessages prometheus.Gauge
	activeSessions  prometheus.Gauge

	// Backend
	backendRequests *prometheus.CounterVec
	backendLatency  *prometheus.HistogramVec

	// Capacity cache
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter

	// Outcome queue / publisher
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueEnqueued    prometheus.Counter
	queueDropped     prometheus.Counter
	published        prometheus.Counter
	publishErrors    prometheus.Counter
	publisherWorkers prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByType      *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "vms",
		subsystem:        "allocation",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.submissions = m.counterVec("submissions_total",
		"Backend preference writes by verb (create/update) and outcome", "verb", "outcome")
	m.submittedMembers = m.counterVec("submitted_members_total",
		"Members carried by backend preference writes, by verb and outcome", "verb", "outcome")
	m.localRejections = m.counterVec("local_rejections_total",
		"Selections rejected before any network call, by reason", "reason")
	m.submitLatency = m.histogram("submit_latency_milliseconds",
		"End-to-end latency of one Submit call in milliseconds", m.histogramBuckets)
	m.selectionsPending = m.gauge("selections_pending",
		"Pending selections across all sessions")

	m.busyMembers = m.gauge("busy_members", "Members with an in-flight submission")
	m.trackedMessages = m.gauge("tracked_messages", "Per-member feedback messages not yet expired")
	m.activeSessions = m.gauge("active_sessions", "Coordinator sessions held in memory")

	m.backendRequests = m.counterVec("backend_requests_total",
		"Calls to the preference backend by operation and status", "operation", "status")
	m.backendLatency = m.histogramVec("backend_latency_milliseconds",
		"Latency of calls to the preference backend in milliseconds", "operation")

	m.cacheHits = m.counter("capacity_cache_hits_total", "Capacity snapshots served from Redis")
	m.cacheMisses = m.counter("capacity_cache_misses_total", "Capacity snapshots fetched from the backend")

	m.queueSize = m.gauge("outcome_queue_size", "Outcome events waiting to be published")
	m.queueCapacity = m.gauge("outcome_queue_capacity", "Maximum outcome queue capacity")
	m.queueEnqueued = m.counter("outcome_queue_enqueued_total", "Outcome events enqueued")
	m.queueDropped = m.counter("outcome_queue_dropped_total", "Outcome events dropped on a full or closed queue")
	m.published = m.counter("outcome_published_total", "Outcome events published to the broker")
	m.publishErrors = m.counter("outcome_publish_errors_total", "Outcome events the broker refused")
	m.publisherWorkers = m.gauge("outcome_publisher_workers", "Running outcome publisher workers")

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_by_component_total",
		"Errors by component and type", "component", "error_type")
	m.errorsByType = m.counterVec("errors_by_type_total",
		"Errors by type and severity", "error_type", "severity")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total",
		"Errors by endpoint, method and type", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordSubmission counts one backend write carrying members members.
func RecordSubmission(verb, outcome string, members int) {
	globalManager.submissions.WithLabelValues(verb, outcome).Inc()
	globalManager.submittedMembers.WithLabelValues(verb, outcome).Add(float64(members))
}

// RecordLocalRejection counts a selection refused before any network call.
func RecordLocalRejection(reason string) {
	globalManager.localRejections.WithLabelValues(reason).Inc()
}

// RecordSubmitLatency records the duration of one Submit call.
func RecordSubmitLatency(latencyMs float64) {
	globalManager.submitLatency.Observe(latencyMs)
}

// AddSelectionsPending moves the pending selections gauge by delta.
func AddSelectionsPending(delta int) {
	globalManager.selectionsPending.Add(float64(delta))
}

// AddBusyMembers moves the busy members gauge by delta.
func AddBusyMembers(delta int) {
	globalManager.busyMembers.Add(float64(delta))
}

// AddTrackedMessages moves the tracked messages gauge by delta.
func AddTrackedMessages(delta int) {
	globalManager.trackedMessages.Add(float64(delta))
}

// UpdateActiveSessions sets the number of sessions in memory.
func UpdateActiveSessions(count int) {
	globalManager.activeSessions.Set(float64(count))
}

// RecordBackendRequest records one call to the preference backend.
func RecordBackendRequest(operation, status string, latencyMs float64) {
	globalManager.backendRequests.WithLabelValues(operation, status).Inc()
	globalManager.backendLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordCacheHit increments the capacity cache hit counter.
func RecordCacheHit() {
	globalManager.cacheHits.Inc()
}

// RecordCacheMiss increments the capacity cache miss counter.
func RecordCacheMiss() {
	globalManager.cacheMisses.Inc()
}

// UpdateQueueSize sets the current outcome queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum outcome queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDrop increments the dropped event counter.
func RecordQueueDrop() {
	globalManager.queueDropped.Inc()
}

// RecordPublished increments the published outcome counter.
func RecordPublished() {
	globalManager.published.Inc()
}

// RecordPublishError increments the publish error counter.
func RecordPublishError() {
	globalManager.publishErrors.Inc()
}

// UpdatePublisherWorkers sets the number of running publisher workers.
func UpdatePublisherWorkers(count int) {
	globalManager.publisherWorkers.Set(float64(count))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorsByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
