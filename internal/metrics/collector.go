package metrics

import (
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/restoraworks/reportflow/types"
	"go.uber.org/zap"
)

// Collector bundles the service's Prometheus metrics.
type Collector struct {
	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Workflow engine metrics
	pollsTotal          *prometheus.CounterVec
	pollBatchSize       prometheus.Histogram
	taskExecutionsTotal *prometheus.CounterVec
	taskDuration        *prometheus.HistogramVec
	workflowTransitions *prometheus.CounterVec

	// Database pool metrics
	dbConnectionsOpen prometheus.Gauge
	dbConnectionsIdle prometheus.Gauge

	logger *zap.Logger
}

// NewCollector registers all metrics under the given namespace.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.pollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_polls_total",
			Help:      "Total number of execute poll steps",
		},
		[]string{"status"},
	)

	c.pollBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workflow_poll_batch_size",
			Help:      "Number of tasks dispatched per poll step",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32},
		},
	)

	c.taskExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_task_executions_total",
			Help:      "Total number of task executions",
		},
		[]string{"agent", "status"},
	)

	c.taskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workflow_task_duration_seconds",
			Help:      "Task execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"agent"},
	)

	c.workflowTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_status_transitions_total",
			Help:      "Workflow status transitions by target status",
		},
		[]string{"status"},
	)

	c.dbConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_open",
			Help:      "Open database connections",
		},
	)

	c.dbConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_idle",
			Help:      "Idle database connections",
		},
	)

	return c
}

// RecordHTTPRequest records one HTTP request observation.
func (c *Collector) RecordHTTPRequest(method, path, status string, seconds float64) {
	c.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(seconds)
}

// ObservePoll implements workflow.Metrics.
func (c *Collector) ObservePoll(status types.WorkflowStatus, tasksExecuted int) {
	c.pollsTotal.WithLabelValues(string(status)).Inc()
	c.pollBatchSize.Observe(float64(tasksExecuted))
}

// ObserveTaskExecution implements workflow.Metrics.
func (c *Collector) ObserveTaskExecution(agentSlug string, status types.TaskStatus, seconds float64) {
	c.taskExecutionsTotal.WithLabelValues(agentSlug, string(status)).Inc()
	c.taskDuration.WithLabelValues(agentSlug).Observe(seconds)
}

// ObserveWorkflowTransition implements workflow.Metrics.
func (c *Collector) ObserveWorkflowTransition(to types.WorkflowStatus) {
	c.workflowTransitions.WithLabelValues(string(to)).Inc()
}

// RecordDBStats publishes pool gauges from sql.DBStats.
func (c *Collector) RecordDBStats(stats sql.DBStats) {
	c.dbConnectionsOpen.Set(float64(stats.OpenConnections))
	c.dbConnectionsIdle.Set(float64(stats.Idle))
}
