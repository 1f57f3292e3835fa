package types

import "time"

// WorkflowStatus represents the lifecycle status of a workflow.
type WorkflowStatus string

const (
	// WorkflowStatusPending indicates the workflow has been created but not started
	WorkflowStatusPending WorkflowStatus = "PENDING"

	// WorkflowStatusRunning indicates the workflow has tasks left to execute
	WorkflowStatusRunning WorkflowStatus = "RUNNING"

	// WorkflowStatusCompleted indicates every task completed successfully
	WorkflowStatusCompleted WorkflowStatus = "COMPLETED"

	// WorkflowStatusFailed indicates every task reached a terminal state and all failed
	WorkflowStatusFailed WorkflowStatus = "FAILED"

	// WorkflowStatusPartiallyFailed indicates every task reached a terminal state
	// with a mix of completed and failed tasks
	WorkflowStatusPartiallyFailed WorkflowStatus = "PARTIALLY_FAILED"

	// WorkflowStatusPaused indicates the workflow was paused by its owner
	WorkflowStatusPaused WorkflowStatus = "PAUSED"

	// WorkflowStatusCancelled indicates the workflow was cancelled; terminal
	WorkflowStatusCancelled WorkflowStatus = "CANCELLED"
)

// IsTerminal returns true if no further execution is possible.
// FAILED and PARTIALLY_FAILED are terminal for the poll loop but remain
// resumable; CANCELLED and COMPLETED are immutable.
func (s WorkflowStatus) IsTerminal() bool {
	switch s {
	case WorkflowStatusCompleted, WorkflowStatusFailed, WorkflowStatusPartiallyFailed, WorkflowStatusCancelled:
		return true
	default:
		return false
	}
}

// IsResumable returns true if the workflow may be re-armed via resume.
func (s WorkflowStatus) IsResumable() bool {
	switch s {
	case WorkflowStatusFailed, WorkflowStatusPartiallyFailed, WorkflowStatusPaused:
		return true
	default:
		return false
	}
}

// TaskStatus represents the lifecycle status of a single task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task is waiting on unfinished dependencies
	TaskStatusPending TaskStatus = "PENDING"

	// TaskStatusReady indicates every dependency completed and the task is dispatchable
	TaskStatusReady TaskStatus = "READY"

	// TaskStatusRunning indicates the task is currently executing
	TaskStatusRunning TaskStatus = "RUNNING"

	// TaskStatusCompleted indicates the task completed successfully
	TaskStatusCompleted TaskStatus = "COMPLETED"

	// TaskStatusFailed indicates the task failed; resettable to READY via resume
	TaskStatusFailed TaskStatus = "FAILED"
)

// IsTerminal returns true if the status is a terminal state.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// Workflow is one instantiated run of an agent's transitive dependency
// closure. Counters are denormalized and kept consistent with the task set
// by the orchestrator's transactional updates.
type Workflow struct {
	// ID is the unique workflow identifier
	ID string `json:"id"`

	// UserID is the owning user; all access is scoped to the owner
	UserID string `json:"user_id"`

	// RootAgent is the slug the workflow was created from
	RootAgent string `json:"root_agent"`

	// Status is the current workflow status
	Status WorkflowStatus `json:"status"`

	// Parameters are the original creation parameters, passed to every agent
	Parameters map[string]any `json:"parameters,omitempty"`

	// TotalTasks is the number of tasks in the workflow
	TotalTasks int `json:"total_tasks"`

	// CompletedTasks counts tasks in COMPLETED status
	CompletedTasks int `json:"completed_tasks"`

	// FailedTasks counts tasks in FAILED status
	FailedTasks int `json:"failed_tasks"`

	// CreatedAt is when the workflow was created
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the workflow was last mutated
	UpdatedAt time.Time `json:"updated_at"`
}

// Task is one agent's execution instance within a workflow.
type Task struct {
	// ID is the unique task identifier
	ID string `json:"id"`

	// WorkflowID is the owning workflow
	WorkflowID string `json:"workflow_id"`

	// AgentSlug names the registered agent executed by this task
	AgentSlug string `json:"agent_slug"`

	// Status is the current task status
	Status TaskStatus `json:"status"`

	// DependsOn lists sibling task IDs that must complete first
	DependsOn []string `json:"depends_on,omitempty"`

	// Output is the opaque result payload once COMPLETED
	Output map[string]any `json:"output,omitempty"`

	// Error is the failure message when FAILED
	Error string `json:"error,omitempty"`

	// Attempts counts how many times the task has been dispatched
	Attempts int `json:"attempts"`

	// StartedAt is when the task last entered RUNNING
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when the task reached a terminal state
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// CreatedAt is when the task row was created
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the task was last mutated
	UpdatedAt time.Time `json:"updated_at"`
}

// Duration returns the task duration, or time since start if still running.
func (t *Task) Duration() time.Duration {
	if t.StartedAt == nil {
		return 0
	}
	if t.CompletedAt != nil {
		return t.CompletedAt.Sub(*t.StartedAt)
	}
	return time.Since(*t.StartedAt)
}

// ExecutionResult is the per-task outcome of one batch run.
type ExecutionResult struct {
	// TaskID is the executed task
	TaskID string `json:"task_id"`

	// AgentSlug is the agent that ran
	AgentSlug string `json:"agent_slug"`

	// Status is COMPLETED or FAILED
	Status TaskStatus `json:"status"`

	// Output is the agent output on success
	Output map[string]any `json:"output,omitempty"`

	// Error is the failure message on failure
	Error string `json:"error,omitempty"`

	// Duration is how long the agent invocation took
	Duration time.Duration `json:"duration"`
}

// WorkflowContext maps agent slugs to the outputs of their COMPLETED tasks.
// It is the only channel by which one task's result reaches a dependent
// task's executor.
type WorkflowContext map[string]map[string]any
