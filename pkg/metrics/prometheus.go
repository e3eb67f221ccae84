// Package metrics provides Prometheus metrics for the rehab chat service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the chat service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Chat turns
	turns       *prometheus.CounterVec
	turnLatency prometheus.Histogram

	// Parsing
	parseLatency     *prometheus.HistogramVec
	parseCacheHits   prometheus.Counter
	parseCacheMisses prometheus.Counter

	// Interpretation
	queries          *prometheus.CounterVec
	interpretLatency *prometheus.HistogramVec

	// Fallback
	fallbackAttempts *prometheus.CounterVec
	fallbackLatency  prometheus.Histogram
	fallbackUploads  prometheus.Counter

	// Table
	tableRows             prometheus.Gauge
	tableUnparseableDates prometheus.Gauge
	tableInvalidCells     prometheus.Gauge
	tableQueryLatency     prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

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
		namespace:        "rehab",
		subsystem:        "chat",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
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
		Name:        m.metricPrefix + name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.metricPrefix + name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.metricPrefix + name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.turns = auto.NewCounterVec(
		m.counterOpts("turns_total", "Chat turns answered, by response type"),
		[]string{"type"},
	)
	m.turnLatency = auto.NewHistogram(
		m.histogramOpts("turn_latency_milliseconds", "End-to-end latency of a chat turn", m.histogramBuckets),
	)

	m.parseLatency = auto.NewHistogramVec(
		m.histogramOpts("parse_latency_milliseconds", "Latency of question parsing by backend", m.histogramBuckets),
		[]string{"backend"},
	)
	m.parseCacheHits = auto.NewCounter(
		m.counterOpts("parse_cache_hits_total", "Parsed questions served from the cache"),
	)
	m.parseCacheMisses = auto.NewCounter(
		m.counterOpts("parse_cache_misses_total", "Parsed questions that required a parser call"),
	)

	m.queries = auto.NewCounterVec(
		m.counterOpts("queries_total", "Interpreted queries by query type and outcome"),
		[]string{"query_type", "outcome"},
	)
	m.interpretLatency = auto.NewHistogramVec(
		m.histogramOpts("interpret_latency_milliseconds", "Latency of descriptor interpretation",
			[]float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100}),
		[]string{"query_type"},
	)

	m.fallbackAttempts = auto.NewCounterVec(
		m.counterOpts("fallback_total", "Code-execution fallback attempts by outcome"),
		[]string{"outcome"},
	)
	m.fallbackLatency = auto.NewHistogram(
		m.histogramOpts("fallback_latency_milliseconds", "Latency of code-execution fallback calls", m.histogramBuckets),
	)
	m.fallbackUploads = auto.NewCounter(
		m.counterOpts("fallback_uploads_total", "Dataset uploads made for the fallback"),
	)

	m.tableRows = auto.NewGauge(m.gaugeOpts("table_rows", "Rows loaded into the metrics table"))
	m.tableUnparseableDates = auto.NewGauge(
		m.gaugeOpts("table_unparseable_dates", "Rows whose date could not be parsed"),
	)
	m.tableInvalidCells = auto.NewGauge(
		m.gaugeOpts("table_invalid_cells", "Metric cells that were empty, non-numeric or non-finite"),
	)
	m.tableQueryLatency = auto.NewHistogram(
		m.histogramOpts("table_query_latency_milliseconds", "Latency of table scans",
			[]float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25}),
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_seconds", "HTTP request duration in seconds", prometheus.DefBuckets),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Total number of errors by component"),
		[]string{"component", "error_type"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Total number of errors by endpoint"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(
		m.histogramOpts("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
			[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}),
	)
}

// Chat turn metrics.

// RecordTurn counts a finished chat turn by its response type.
func RecordTurn(responseType string) {
	globalManager.turns.WithLabelValues(responseType).Inc()
}

// RecordTurnLatency records the end-to-end latency of a turn in milliseconds.
func RecordTurnLatency(latencyMs float64) {
	globalManager.turnLatency.Observe(latencyMs)
}

// Parser metrics.

// RecordParseLatency records parser latency in milliseconds.
func RecordParseLatency(backend string, latencyMs float64) {
	globalManager.parseLatency.WithLabelValues(backend).Observe(latencyMs)
}

// RecordParseCacheHit increments the parse cache hit counter.
func RecordParseCacheHit() {
	globalManager.parseCacheHits.Inc()
}

// RecordParseCacheMiss increments the parse cache miss counter.
func RecordParseCacheMiss() {
	globalManager.parseCacheMisses.Inc()
}

// Interpreter metrics.

// RecordQuery counts an interpreted query; outcome is "ok" or an error kind.
func RecordQuery(queryType, outcome string) {
	globalManager.queries.WithLabelValues(queryType, outcome).Inc()
}

// RecordInterpretLatency records interpretation latency in milliseconds.
func RecordInterpretLatency(queryType string, latencyMs float64) {
	globalManager.interpretLatency.WithLabelValues(queryType).Observe(latencyMs)
}

// Fallback metrics.

// RecordFallback counts a fallback attempt by outcome.
func RecordFallback(outcome string) {
	globalManager.fallbackAttempts.WithLabelValues(outcome).Inc()
}

// RecordFallbackLatency records fallback latency in milliseconds.
func RecordFallbackLatency(latencyMs float64) {
	globalManager.fallbackLatency.Observe(latencyMs)
}

// RecordFallbackUpload counts a dataset upload.
func RecordFallbackUpload() {
	globalManager.fallbackUploads.Inc()
}

// Table metrics.

// UpdateTableRows sets the number of loaded rows.
func UpdateTableRows(count int) {
	globalManager.tableRows.Set(float64(count))
}

// UpdateTableUnparseableDates sets the number of rows without a usable date.
func UpdateTableUnparseableDates(count int) {
	globalManager.tableUnparseableDates.Set(float64(count))
}

// UpdateTableInvalidCells sets the number of invalid metric cells.
func UpdateTableInvalidCells(count int) {
	globalManager.tableInvalidCells.Set(float64(count))
}

// RecordTableQueryLatency records table scan latency in milliseconds.
func RecordTableQueryLatency(latencyMs float64) {
	globalManager.tableQueryLatency.Observe(latencyMs)
}

// HTTP metrics.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error metrics.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System metrics.

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

// Configure replaces the global manager with one built from opts on a fresh
// registry. It must run before any handler or recorder is in use; values
// recorded earlier are dropped.
func Configure(opts ...Option) {
	registry := prometheus.NewRegistry()
	globalManager = NewManager(append(opts, WithPrometheusRegistry(registry))...)
	customRegistry = registry
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
