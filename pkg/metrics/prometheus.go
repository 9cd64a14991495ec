// Package metrics provides Prometheus metrics for the buzz ranking service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Job outcomes used as label values.
const (
	OutcomeCompleted = "completed"
	OutcomePartial   = "partial"
	OutcomeEmpty     = "empty"
	OutcomeFailed    = "failed"
)

// Manager manages all Prometheus metrics for the buzz service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	jobBuckets       []float64
	registry         prometheus.Registerer

	// Recalculation job
	jobRuns      *prometheus.CounterVec
	jobDuration  prometheus.Histogram
	jobProgress  prometheus.Gauge
	tweetsScored prometheus.Counter
	batchErrors  prometheus.Counter

	// Leaderboard store
	leaderboardWrites  prometheus.Counter
	leaderboardSkips   prometheus.Counter
	leaderboardTrims   prometheus.Counter
	leaderboardLatency *prometheus.HistogramVec

	// Job queue
	queueJobs          *prometheus.GaugeVec
	queueEnqueued      prometheus.Counter
	queueEnqueueErrors *prometheus.CounterVec
	workerRetries      prometheus.Counter

	// Read path
	readerRequests  *prometheus.CounterVec
	readerLatency   *prometheus.HistogramVec
	readerEmpty     *prometheus.CounterVec
	hydrationState  prometheus.Gauge
	hydrationErrors prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "buzz",
		subsystem:        "explore",
		histogramBuckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		jobBuckets:       []float64{100, 500, 1000, 5000, 15000, 60000, 300000, 900000},
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
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets,
	}, labels)
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	m.jobRuns = m.counterVec("job_runs_total", "Recalculation job runs by outcome", "outcome")
	m.jobDuration = m.histogram("job_duration_milliseconds", "Recalculation job wall time in milliseconds", m.jobBuckets)
	m.jobProgress = m.gauge("job_progress_percent", "Progress of the running recalculation job")
	m.tweetsScored = m.counter("tweets_scored_total", "Tweets scored by recalculation jobs")
	m.batchErrors = m.counter("batch_errors_total", "Recalculation pages that failed and were skipped")

	m.leaderboardWrites = m.counter("leaderboard_writes_total", "Category leaderboard member writes")
	m.leaderboardSkips = m.counter("leaderboard_skips_total", "Member writes skipped below the score threshold")
	m.leaderboardTrims = m.counter("leaderboard_trims_total", "Category leaderboards trimmed and refreshed")
	m.leaderboardLatency = m.histogramVec("leaderboard_latency_milliseconds", "Leaderboard store round trip latency", m.histogramBuckets, "op")

	m.queueJobs = promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "queue_jobs", Help: "Jobs in the recalculation queue by state",
	}, []string{"state"})
	m.queueEnqueued = m.counter("queue_enqueued_total", "Jobs accepted by the queue")
	m.queueEnqueueErrors = m.counterVec("queue_enqueue_errors_total", "Jobs rejected by the queue", "reason")
	m.workerRetries = m.counter("worker_retries_total", "Job attempts rescheduled after a failure")

	m.readerRequests = m.counterVec("reader_requests_total", "Ranking reads by view", "view")
	m.readerLatency = m.histogramVec("reader_latency_milliseconds", "Ranking read latency by view", m.histogramBuckets, "view")
	m.readerEmpty = m.counterVec("reader_empty_total", "Ranking reads that returned nothing", "view")
	m.hydrationState = m.gauge("hydration_breaker_state", "Content hydration breaker state (0 closed, 1 half-open, 2 open)")
	m.hydrationErrors = m.counter("hydration_errors_total", "Failed content hydration calls")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets, "endpoint", "method", "status_code")

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")
	m.errorRateByType = m.counterVec("errors_by_type_total", "Errors by type and severity", "error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds", "Average GC pause in milliseconds", []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10})
}

// Job Metrics Functions.

// RecordJobRun records a finished recalculation job.
func RecordJobRun(outcome string, durationMs float64) {
	globalManager.jobRuns.WithLabelValues(outcome).Inc()
	globalManager.jobDuration.Observe(durationMs)
}

// UpdateJobProgress sets the progress gauge of the running job.
func UpdateJobProgress(percent int) {
	globalManager.jobProgress.Set(float64(percent))
}

// RecordTweetsScored adds n scored tweets.
func RecordTweetsScored(n int) {
	globalManager.tweetsScored.Add(float64(n))
}

// RecordBatchError increments the failed-page counter.
func RecordBatchError() {
	globalManager.batchErrors.Inc()
}

// Leaderboard Metrics Functions.

// RecordLeaderboardWrites records member writes and threshold skips of one batch.
func RecordLeaderboardWrites(written, skipped int) {
	globalManager.leaderboardWrites.Add(float64(written))
	globalManager.leaderboardSkips.Add(float64(skipped))
}

// RecordLeaderboardTrims records trimmed categories.
func RecordLeaderboardTrims(n int) {
	globalManager.leaderboardTrims.Add(float64(n))
}

// RecordLeaderboardLatency records a store round trip.
func RecordLeaderboardLatency(op string, latencyMs float64) {
	globalManager.leaderboardLatency.WithLabelValues(op).Observe(latencyMs)
}

// Queue Metrics Functions.

// UpdateQueueJobs sets the number of jobs in a given state.
func UpdateQueueJobs(state string, count int) {
	globalManager.queueJobs.WithLabelValues(state).Set(float64(count))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueEnqueueError records a rejected enqueue.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// RecordWorkerRetry increments the retry counter.
func RecordWorkerRetry() {
	globalManager.workerRetries.Inc()
}

// Read Path Metrics Functions.

// RecordReaderRequest records a ranking read.
func RecordReaderRequest(view string, latencyMs float64, empty bool) {
	globalManager.readerRequests.WithLabelValues(view).Inc()
	globalManager.readerLatency.WithLabelValues(view).Observe(latencyMs)
	if empty {
		globalManager.readerEmpty.WithLabelValues(view).Inc()
	}
}

// UpdateHydrationBreakerState sets the breaker state gauge.
func UpdateHydrationBreakerState(state int) {
	globalManager.hydrationState.Set(float64(state))
}

// RecordHydrationError increments the hydration failure counter.
func RecordHydrationError() {
	globalManager.hydrationErrors.Inc()
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records an HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System Performance Metrics Functions.

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
