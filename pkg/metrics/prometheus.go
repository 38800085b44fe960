// Package metrics provides Prometheus metrics for the body tracking service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector the service exports.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Sensor ingest
	framesReceived    prometheus.Counter
	framesDropped     *prometheus.CounterVec
	frameDecodeErrors prometheus.Counter
	frameApplyLatency prometheus.Histogram
	sensorAvailable   prometheus.Gauge
	queueSize         prometheus.Gauge
	queueCapacity     prometheus.Gauge
	queueUtilization  prometheus.Gauge

	// Body lifecycle
	bodiesLive      prometheus.Gauge
	bodiesTracked   prometheus.Gauge
	bodiesCreated   prometheus.Counter
	bodiesRemoved   prometheus.Counter
	bodyTransitions *prometheus.CounterVec

	// Frame pacing
	ticks              prometheus.Counter
	targetFramerate    prometheus.Gauge
	achievedFramerate  prometheus.Gauge
	smoothedFrameTime  prometheus.Gauge
	renderLatency      prometheus.Histogram
	framerateReduction prometheus.Counter

	// Selection and rendering
	selectionToggles *prometheus.CounterVec
	renderClients    prometheus.Gauge
	renderPrimitives prometheus.Gauge
	renderErrors     *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go collectors out

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "bodytrack",
		subsystem:        "scene",
		histogramBuckets: []float64{0.5, 1, 2, 4, 8, 16, 33, 66, 100, 250, 500},
		constLabels:      map[string]string{},
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

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.framesReceived = m.counter("sensor_frames_received_total", "Skeleton frames delivered by the sensor source")
	m.framesDropped = m.counterVec("sensor_frames_dropped_total", "Skeleton frames dropped before reaching the tracker", "reason")
	m.frameDecodeErrors = m.counter("sensor_frame_decode_errors_total", "Bridge messages that could not be decoded into a frame")
	m.frameApplyLatency = m.histogram("sensor_frame_apply_latency_milliseconds", "Time from frame delivery to tracker update", m.histogramBuckets)
	m.sensorAvailable = m.gauge("sensor_available", "1 when the sensor source started, 0 in degraded mode")
	m.queueSize = m.gauge("frame_queue_size", "Frames waiting for the ingest worker")
	m.queueCapacity = m.gauge("frame_queue_capacity", "Capacity of the frame queue")
	m.queueUtilization = m.gauge("frame_queue_utilization_ratio", "Frame queue size divided by capacity")

	m.bodiesLive = m.gauge("bodies_live", "Bodies currently live and rendered")
	m.bodiesTracked = m.gauge("bodies_tracked", "Bodies held by the lifecycle manager, live or not")
	m.bodiesCreated = m.counter("bodies_created_total", "Bodies created for a newly tracked slot")
	m.bodiesRemoved = m.counter("bodies_removed_total", "Stale bodies removed by the sweep")
	m.bodyTransitions = m.counterVec("body_presence_transitions_total", "Transitions between zero and non-zero live bodies", "direction")

	m.ticks = m.counter("pacing_ticks_total", "Render ticks issued by the pacing loop")
	m.targetFramerate = m.gauge("pacing_target_framerate", "Current target frame rate")
	m.achievedFramerate = m.gauge("pacing_achieved_framerate", "Frame rate derived from the smoothed frame time")
	m.smoothedFrameTime = m.gauge("pacing_frame_time_milliseconds", "Exponentially smoothed frame time")
	m.renderLatency = m.histogram("pacing_render_latency_milliseconds", "Render round trip including render-thread dispatch", m.histogramBuckets)
	m.framerateReduction = m.counter("pacing_framerate_reductions_total", "Times the target frame rate was lowered")

	m.selectionToggles = m.counterVec("selection_toggles_total", "Selection target state changes", "target", "state")
	m.renderClients = m.gauge("render_clients", "Connected render stream subscribers")
	m.renderPrimitives = m.gauge("render_primitives", "Primitives in the last presented scene")
	m.renderErrors = m.counterVec("render_errors_total", "Render sink failures", "kind")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: "http_request_duration_milliseconds",
		Help: "HTTP request duration in milliseconds", ConstLabels: m.constLabels, Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "HTTP errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap memory in use")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "Average GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100})
}

// RecordFrameReceived counts a delivered sensor frame.
func RecordFrameReceived() { globalManager.framesReceived.Inc() }

// RecordFrameDropped counts a frame that never reached the tracker.
func RecordFrameDropped(reason string) { globalManager.framesDropped.WithLabelValues(reason).Inc() }

// RecordFrameDecodeError counts an undecodable bridge message.
func RecordFrameDecodeError() { globalManager.frameDecodeErrors.Inc() }

// RecordFrameApplyLatency records delivery-to-apply latency in milliseconds.
func RecordFrameApplyLatency(latencyMs float64) { globalManager.frameApplyLatency.Observe(latencyMs) }

// UpdateSensorAvailable flags whether the sensor started.
func UpdateSensorAvailable(ok bool) {
	if ok {
		globalManager.sensorAvailable.Set(1)
		return
	}
	globalManager.sensorAvailable.Set(0)
}

// UpdateQueueSize sets the current frame queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the frame queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// UpdateQueueUtilization sets the frame queue utilization ratio.
func UpdateQueueUtilization(ratio float64) { globalManager.queueUtilization.Set(ratio) }

// UpdateBodies sets the live and tracked body gauges.
func UpdateBodies(live, tracked int) {
	globalManager.bodiesLive.Set(float64(live))
	globalManager.bodiesTracked.Set(float64(tracked))
}

// RecordBodyCreated counts a new body.
func RecordBodyCreated() { globalManager.bodiesCreated.Inc() }

// RecordBodiesRemoved counts bodies removed by a sweep.
func RecordBodiesRemoved(n int) { globalManager.bodiesRemoved.Add(float64(n)) }

// RecordBodyTransition counts a presence transition ("appeared" or "vanished").
func RecordBodyTransition(direction string) { globalManager.bodyTransitions.WithLabelValues(direction).Inc() }

// RecordTick counts one pacing tick.
func RecordTick() { globalManager.ticks.Inc() }

// UpdatePacing publishes the pacing state.
func UpdatePacing(targetRate, smoothedMs float64) {
	globalManager.targetFramerate.Set(targetRate)
	globalManager.smoothedFrameTime.Set(smoothedMs)
	if smoothedMs > 0 {
		globalManager.achievedFramerate.Set(1000 / smoothedMs)
	}
}

// RecordRenderLatency records a render round trip in milliseconds.
func RecordRenderLatency(latencyMs float64) { globalManager.renderLatency.Observe(latencyMs) }

// RecordFramerateReduction counts a target rate reduction.
func RecordFramerateReduction() { globalManager.framerateReduction.Inc() }

// RecordSelectionToggle counts a selection state change.
func RecordSelectionToggle(target string, selected bool) {
	state := "unselected"
	if selected {
		state = "selected"
	}
	globalManager.selectionToggles.WithLabelValues(target, state).Inc()
}

// UpdateRenderClients sets the number of render stream subscribers.
func UpdateRenderClients(n int) { globalManager.renderClients.Set(float64(n)) }

// UpdateRenderPrimitives sets the primitive count of the last scene.
func UpdateRenderPrimitives(n int) { globalManager.renderPrimitives.Set(float64(n)) }

// RecordRenderError counts a render sink failure.
func RecordRenderError(kind string) { globalManager.renderErrors.WithLabelValues(kind).Inc() }

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint counts an HTTP error.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// RecordSystemGCPauseTime records the average GC pause in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.systemGCPauseTime.Observe(pauseMs) }

// GetRegistry returns the registry the global manager writes to.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
