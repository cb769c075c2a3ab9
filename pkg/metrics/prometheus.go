// Package metrics provides Prometheus metrics for the vigil proctoring engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Tick latency buckets in milliseconds. A tick should finish well inside
// the 700ms cadence.
var tickBuckets = []float64{5, 10, 25, 50, 100, 200, 350, 500, 700, 1000, 2000} //nolint:gochecknoglobals // bucket table

// Manager manages all Prometheus metrics for the vigil service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Violation pipeline
	violationsDetected  *prometheus.CounterVec
	violationsThrottled *prometheus.CounterVec
	violationsDropped   *prometheus.CounterVec
	snapshotErrors      prometheus.Counter

	// Delivery
	deliveries      *prometheus.CounterVec
	deliveryErrors  *prometheus.CounterVec
	deliveryLatency *prometheus.HistogramVec

	// Sampling
	ticks        prometheus.Counter
	ticksSkipped *prometheus.CounterVec
	tickDuration prometheus.Histogram

	// Operational
	sessionsActive prometheus.Gauge
	queueSize      prometheus.Gauge
	queueCapacity  prometheus.Gauge
	workerCount    prometheus.Gauge
	streamMessages *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec
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
		namespace:        "vigil",
		subsystem:        "proctor",
		histogramBuckets: prometheus.DefBuckets,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.violationsDetected = auto.NewCounterVec(
		m.counterOpts("violations_detected_total", "Violations dispatched to observer and delivery, by kind"),
		[]string{"kind"},
	)
	m.violationsThrottled = auto.NewCounterVec(
		m.counterOpts("violations_throttled_total", "Violations suppressed by the per-kind throttle"),
		[]string{"kind"},
	)
	m.violationsDropped = auto.NewCounterVec(
		m.counterOpts("violations_dropped_total", "Violations dropped before delivery, by reason"),
		[]string{"reason"},
	)
	m.snapshotErrors = auto.NewCounter(
		m.counterOpts("snapshot_errors_total", "Snapshot captures that failed"),
	)

	m.deliveries = auto.NewCounterVec(
		m.counterOpts("violations_delivered_total", "Violations accepted by a transport sink"),
		[]string{"sink"},
	)
	m.deliveryErrors = auto.NewCounterVec(
		m.counterOpts("delivery_errors_total", "Transport submissions that failed"),
		[]string{"sink"},
	)
	m.deliveryLatency = auto.NewHistogramVec(
		m.histogramOpts("delivery_latency_milliseconds", "Transport submission latency in milliseconds", m.histogramBuckets),
		[]string{"sink"},
	)

	m.ticks = auto.NewCounter(
		m.counterOpts("ticks_total", "Detection ticks that ran to completion"),
	)
	m.ticksSkipped = auto.NewCounterVec(
		m.counterOpts("ticks_skipped_total", "Detection ticks skipped, by reason"),
		[]string{"reason"},
	)
	m.tickDuration = auto.NewHistogram(
		m.histogramOpts("tick_duration_milliseconds", "Detection tick latency in milliseconds", tickBuckets),
	)

	m.sessionsActive = auto.NewGauge(m.gaugeOpts("sessions_active", "Sessions currently registered"))
	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Violations waiting for delivery"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Delivery queue capacity"))
	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Delivery workers running"))
	m.streamMessages = auto.NewCounterVec(
		m.counterOpts("stream_messages_total", "Browser stream messages received, by type"),
		[]string{"type"},
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorsByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Errors by component and error type"),
		[]string{"component", "error_type"},
	)
}

// RecordViolationDetected counts a dispatched violation.
func RecordViolationDetected(kind string) {
	globalManager.violationsDetected.WithLabelValues(kind).Inc()
}

// RecordViolationThrottled counts a throttled violation.
func RecordViolationThrottled(kind string) {
	globalManager.violationsThrottled.WithLabelValues(kind).Inc()
}

// RecordViolationDropped counts a violation dropped for reason.
func RecordViolationDropped(reason string) {
	globalManager.violationsDropped.WithLabelValues(reason).Inc()
}

// RecordSnapshotError counts a failed snapshot capture.
func RecordSnapshotError() {
	globalManager.snapshotErrors.Inc()
}

// RecordDelivery counts a successful submission to sink.
func RecordDelivery(sink string) {
	globalManager.deliveries.WithLabelValues(sink).Inc()
}

// RecordDeliveryError counts a failed submission to sink.
func RecordDeliveryError(sink string) {
	globalManager.deliveryErrors.WithLabelValues(sink).Inc()
}

// RecordDeliveryLatency records submission latency to sink in milliseconds.
func RecordDeliveryLatency(sink string, latencyMs float64) {
	globalManager.deliveryLatency.WithLabelValues(sink).Observe(latencyMs)
}

// RecordTick records a completed tick and its latency in milliseconds.
func RecordTick(latencyMs float64) {
	globalManager.ticks.Inc()
	globalManager.tickDuration.Observe(latencyMs)
}

// RecordTickSkipped counts a skipped tick.
func RecordTickSkipped(reason string) {
	globalManager.ticksSkipped.WithLabelValues(reason).Inc()
}

// UpdateSessionsActive sets the number of registered sessions.
func UpdateSessionsActive(count int) {
	globalManager.sessionsActive.Set(float64(count))
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordStreamMessage counts a browser stream message of the given type.
func RecordStreamMessage(msgType string) {
	globalManager.streamMessages.WithLabelValues(msgType).Inc()
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

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
