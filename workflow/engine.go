package workflow

import (
	"context"
	"time"

	"github.com/restoraworks/reportflow/agent"
	"github.com/restoraworks/reportflow/persistence"
	"github.com/restoraworks/reportflow/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// PollLocker serializes execute polls per workflow. Acquire returns
// ok=false when another poll currently holds the lock; release must be
// called when the poll finishes. A nil locker means the store-level
// compare-and-set claims are the only double-dispatch guard.
type PollLocker interface {
	Acquire(ctx context.Context, workflowID string) (release func(), ok bool, err error)
}

// Metrics receives engine-level observations. internal/metrics.Collector
// implements it; a nil Metrics disables recording.
type Metrics interface {
	ObservePoll(status types.WorkflowStatus, tasksExecuted int)
	ObserveTaskExecution(agentSlug string, status types.TaskStatus, seconds float64)
	ObserveWorkflowTransition(to types.WorkflowStatus)
}

// Engine orchestrates workflows against a Store and an agent Registry.
// It holds no execution state of its own; every operation is a stateless
// unit of work over the store.
type Engine struct {
	store    persistence.Store
	registry *agent.Registry
	logger   *zap.Logger
	tracer   trace.Tracer
	metrics  Metrics
	locker   PollLocker

	// maxConcurrency bounds how many agents run at once within one batch
	maxConcurrency int64

	// agentTimeout bounds a single agent execution; zero means unbounded
	agentTimeout time.Duration
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithMaxConcurrency bounds the batch executor's parallelism.
func WithMaxConcurrency(n int64) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxConcurrency = n
		}
	}
}

// WithAgentTimeout bounds a single agent execution. The bound is
// cooperative: executors observe it through their context. Zero leaves
// executions unbounded.
func WithAgentTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.agentTimeout = d
		}
	}
}

// WithPollLocker installs a per-workflow poll lock.
func WithPollLocker(l PollLocker) EngineOption {
	return func(e *Engine) { e.locker = l }
}

// WithMetrics installs an engine metrics sink.
func WithMetrics(m Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates a workflow engine. The registry is injected by
// reference; nothing is registered implicitly.
func NewEngine(store persistence.Store, registry *agent.Registry, logger *zap.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		store:          store,
		registry:       registry,
		logger:         logger.With(zap.String("component", "workflow_engine")),
		tracer:         otel.Tracer("reportflow/workflow"),
		maxConcurrency: 4,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Get returns a workflow and its tasks, scoped to the owner.
func (e *Engine) Get(ctx context.Context, userID, workflowID string) (*types.Workflow, []*types.Task, error) {
	wf, err := e.store.GetWorkflowForUser(ctx, workflowID, userID)
	if err != nil {
		return nil, nil, err
	}
	tasks, err := e.store.ListTasks(ctx, wf.ID)
	if err != nil {
		return nil, nil, err
	}
	return wf, tasks, nil
}

// Agents returns the registered agent catalog in slug order.
func (e *Engine) Agents() []types.AgentDefinition {
	return e.registry.All()
}

func (e *Engine) observePoll(status types.WorkflowStatus, tasksExecuted int) {
	if e.metrics != nil {
		e.metrics.ObservePoll(status, tasksExecuted)
	}
}

func (e *Engine) observeTransition(to types.WorkflowStatus) {
	if e.metrics != nil {
		e.metrics.ObserveWorkflowTransition(to)
	}
}
