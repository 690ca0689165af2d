// Package metrics provides Prometheus metrics for the slate coordination service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the slate service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Dispatch metrics: the event -> worker -> event loop.
	eventsDispatched prometheus.Counter
	eventsEmitted    prometheus.Counter
	eventsInert      prometheus.Counter
	eventsMalformed  prometheus.Counter
	eventsLate       prometheus.Counter
	dispatchLatency  prometheus.Histogram

	// Worker invocation metrics.
	workerInvocations *prometheus.CounterVec
	workerFailures    *prometheus.CounterVec
	workerTimeouts    *prometheus.CounterVec
	workerRetries     prometheus.Counter
	workerLatency     prometheus.Histogram

	// Task lifecycle metrics.
	tasksCreated   prometheus.Counter
	tasksCompleted prometheus.Counter
	tasksFailed    *prometheus.CounterVec
	tasksActive    prometheus.Gauge

	// Board metrics.
	boardWrites        prometheus.Counter
	boardStaleWrites   prometheus.Counter
	boardRevokedWrites prometheus.Counter
	boardReads         prometheus.Counter
	boardEntries       prometheus.Gauge

	// Submission metrics.
	submissions *prometheus.CounterVec

	// Intake queue metrics.
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueErrors prometheus.Counter

	// Broadcast metrics.
	broadcastObservers prometheus.Gauge
	broadcastPublished prometheus.Counter
	broadcastDropped   prometheus.Counter

	// HTTP metrics.
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System metrics.
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

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
		namespace:        "slate",
		subsystem:        "coordination",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.eventsDispatched = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_dispatched_total",
		Help:      "Total number of events consumed by the dispatcher",
	})
	m.eventsEmitted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_emitted_total",
		Help:      "Total number of follow-up events emitted by workers",
	})
	m.eventsInert = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_inert_total",
		Help:      "Total number of events with no resolved subscribers",
	})
	m.eventsMalformed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_malformed_total",
		Help:      "Total number of worker-emitted events violating the structural contract",
	})
	m.eventsLate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_late_total",
		Help:      "Total number of events dropped because their task was already terminal",
	})
	m.dispatchLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "dispatch_latency_milliseconds",
		Help:      "Histogram of per-event dispatch latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.workerInvocations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_invocations_total",
		Help:      "Total number of worker invocations by worker id",
	}, []string{"worker"})
	m.workerFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_failures_total",
		Help:      "Total number of worker failure outcomes by worker id",
	}, []string{"worker"})
	m.workerTimeouts = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_timeouts_total",
		Help:      "Total number of worker invocations cut off at their deadline",
	}, []string{"worker"})
	m.workerRetries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_retries_total",
		Help:      "Total number of retried worker invocations",
	})
	m.workerLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_latency_milliseconds",
		Help:      "Histogram of worker invocation latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.tasksCreated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tasks_created_total",
		Help:      "Total number of tasks created",
	})
	m.tasksCompleted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tasks_completed_total",
		Help:      "Total number of tasks reaching the completed phase",
	})
	m.tasksFailed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tasks_failed_total",
		Help:      "Total number of tasks reaching the failed phase by reason",
	}, []string{"reason"})
	m.tasksActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tasks_active",
		Help:      "Number of tasks in a non-terminal phase",
	})

	m.boardWrites = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "board_writes_total",
		Help:      "Total number of board entry versions written",
	})
	m.boardStaleWrites = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "board_stale_writes_total",
		Help:      "Total number of writes rejected because the task was terminal",
	})
	m.boardRevokedWrites = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "board_revoked_writes_total",
		Help:      "Total number of writes rejected because the invocation was cancelled",
	})
	m.boardReads = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "board_reads_total",
		Help:      "Total number of board reads and snapshots",
	})
	m.boardEntries = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "board_entries",
		Help:      "Number of board entry versions currently held",
	})

	m.submissions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "submissions_total",
		Help:      "Total number of task submissions by result",
	}, []string{"result"})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_size",
		Help:      "Current number of events in the intake queue",
	})
	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_capacity",
		Help:      "Configured capacity of the intake queue",
	})
	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_utilization",
		Help:      "Intake queue utilization ratio (0.0 to 1.0)",
	})
	m.queueEnqueueErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueue_errors_total",
		Help:      "Total number of rejected enqueue attempts",
	})

	m.broadcastObservers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "broadcast_observers",
		Help:      "Number of connected live observers",
	})
	m.broadcastPublished = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "broadcast_published_total",
		Help:      "Total number of messages published to the broadcast hub",
	})
	m.broadcastDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "broadcast_dropped_total",
		Help:      "Total number of messages dropped for slow observers",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by endpoint, method, and status",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "Histogram of HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "Current heap memory usage in bytes",
	})
	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutines",
		Help:      "Current number of goroutines",
	})
	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_milliseconds",
		Help:      "Histogram of average GC pause time in milliseconds",
		Buckets:   m.histogramBuckets,
	})
}

// RecordEventDispatched increments the dispatched events counter.
func RecordEventDispatched() {
	globalManager.eventsDispatched.Inc()
}

// RecordEventEmitted increments the emitted events counter.
func RecordEventEmitted() {
	globalManager.eventsEmitted.Inc()
}

// RecordEventInert increments the inert events counter.
func RecordEventInert() {
	globalManager.eventsInert.Inc()
}

// RecordEventMalformed increments the malformed events counter.
func RecordEventMalformed() {
	globalManager.eventsMalformed.Inc()
}

// RecordEventLate increments the late events counter.
func RecordEventLate() {
	globalManager.eventsLate.Inc()
}

// RecordDispatchLatency records per-event dispatch latency in milliseconds.
func RecordDispatchLatency(latencyMs float64) {
	globalManager.dispatchLatency.Observe(latencyMs)
}

// RecordWorkerInvocation increments the invocation counter for a worker.
func RecordWorkerInvocation(worker string) {
	globalManager.workerInvocations.WithLabelValues(worker).Inc()
}

// RecordWorkerFailure increments the failure counter for a worker.
func RecordWorkerFailure(worker string) {
	globalManager.workerFailures.WithLabelValues(worker).Inc()
}

// RecordWorkerTimeout increments the timeout counter for a worker.
func RecordWorkerTimeout(worker string) {
	globalManager.workerTimeouts.WithLabelValues(worker).Inc()
}

// RecordWorkerRetry increments the retry counter.
func RecordWorkerRetry() {
	globalManager.workerRetries.Inc()
}

// RecordWorkerLatency records worker invocation latency in milliseconds.
func RecordWorkerLatency(latencyMs float64) {
	globalManager.workerLatency.Observe(latencyMs)
}

// RecordTaskCreated increments the created tasks counter.
func RecordTaskCreated() {
	globalManager.tasksCreated.Inc()
}

// RecordTaskCompleted increments the completed tasks counter.
func RecordTaskCompleted() {
	globalManager.tasksCompleted.Inc()
}

// RecordTaskFailed increments the failed tasks counter for a reason.
func RecordTaskFailed(reason string) {
	globalManager.tasksFailed.WithLabelValues(reason).Inc()
}

// UpdateTasksActive sets the active tasks gauge.
func UpdateTasksActive(count int) {
	globalManager.tasksActive.Set(float64(count))
}

// RecordBoardWrite increments the board writes counter.
func RecordBoardWrite() {
	globalManager.boardWrites.Inc()
}

// RecordBoardStaleWrite increments the stale write rejections counter.
func RecordBoardStaleWrite() {
	globalManager.boardStaleWrites.Inc()
}

// RecordBoardRevokedWrite increments the revoked write rejections counter.
func RecordBoardRevokedWrite() {
	globalManager.boardRevokedWrites.Inc()
}

// RecordBoardRead increments the board reads counter.
func RecordBoardRead() {
	globalManager.boardReads.Inc()
}

// UpdateBoardEntries sets the board entries gauge.
func UpdateBoardEntries(count int) {
	globalManager.boardEntries.Set(float64(count))
}

// UpdateQueueSize sets the intake queue size gauge.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the intake queue capacity gauge.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the intake queue utilization gauge.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordSubmission increments the submissions counter for one result:
// accepted, duplicate, or rejected.
func RecordSubmission(result string) {
	globalManager.submissions.WithLabelValues(result).Inc()
}

// RecordQueueEnqueueError increments the rejected enqueue counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateBroadcastObservers sets the connected observers gauge.
func UpdateBroadcastObservers(count int) {
	globalManager.broadcastObservers.Set(float64(count))
}

// RecordBroadcastPublished increments the published messages counter.
func RecordBroadcastPublished() {
	globalManager.broadcastPublished.Inc()
}

// RecordBroadcastDropped increments the dropped messages counter.
func RecordBroadcastDropped() {
	globalManager.broadcastDropped.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateSystemMemoryUsage sets the heap memory usage gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records average GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
