package metrics

import (
	"database/sql"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/restoraworks/reportflow/types"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

// promauto registers against the default registry, so each test gets its
// own namespace to keep collectors from colliding.

func TestRecordHTTPRequest(t *testing.T) {
	c := NewCollector("rf_http_test", zaptest.NewLogger(t))

	c.RecordHTTPRequest("POST", "/api/v1/workflows", "201", 0.042)
	c.RecordHTTPRequest("POST", "/api/v1/workflows", "201", 0.017)
	c.RecordHTTPRequest("GET", "/api/v1/workflows/:id", "404", 0.003)

	assert.Equal(t, float64(2),
		testutil.ToFloat64(c.httpRequestsTotal.WithLabelValues("POST", "/api/v1/workflows", "201")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(c.httpRequestsTotal.WithLabelValues("GET", "/api/v1/workflows/:id", "404")))
}

func TestObservePollAndTransitions(t *testing.T) {
	c := NewCollector("rf_poll_test", zaptest.NewLogger(t))

	c.ObservePoll(types.WorkflowStatusRunning, 3)
	c.ObservePoll(types.WorkflowStatusRunning, 0)
	c.ObservePoll(types.WorkflowStatusCompleted, 1)
	c.ObserveWorkflowTransition(types.WorkflowStatusPaused)

	assert.Equal(t, float64(2),
		testutil.ToFloat64(c.pollsTotal.WithLabelValues(string(types.WorkflowStatusRunning))))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(c.pollsTotal.WithLabelValues(string(types.WorkflowStatusCompleted))))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(c.workflowTransitions.WithLabelValues(string(types.WorkflowStatusPaused))))
}

func TestObserveTaskExecution(t *testing.T) {
	c := NewCollector("rf_task_test", zaptest.NewLogger(t))

	c.ObserveTaskExecution("scope-intake", types.TaskStatusCompleted, 1.2)
	c.ObserveTaskExecution("scope-intake", types.TaskStatusCompleted, 0.8)
	c.ObserveTaskExecution("cost-estimate", types.TaskStatusFailed, 4.5)

	assert.Equal(t, float64(2),
		testutil.ToFloat64(c.taskExecutionsTotal.WithLabelValues("scope-intake", string(types.TaskStatusCompleted))))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(c.taskExecutionsTotal.WithLabelValues("cost-estimate", string(types.TaskStatusFailed))))
}

func TestRecordDBStats(t *testing.T) {
	c := NewCollector("rf_db_test", zaptest.NewLogger(t))

	c.RecordDBStats(sql.DBStats{OpenConnections: 7, Idle: 3})

	assert.Equal(t, float64(7), testutil.ToFloat64(c.dbConnectionsOpen))
	assert.Equal(t, float64(3), testutil.ToFloat64(c.dbConnectionsIdle))
}
