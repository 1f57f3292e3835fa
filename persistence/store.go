package persistence

import (
	"context"

	"github.com/restoraworks/reportflow/types"
)

// Store is the durable state the orchestrator operates on. Every mutation
// is atomic per task/workflow; CAS-style operations report whether the
// transition was applied so two concurrent polls can never double-dispatch
// the same READY task.
type Store interface {
	// CreateWorkflow atomically persists a workflow and its initial task set.
	CreateWorkflow(ctx context.Context, wf *types.Workflow, tasks []*types.Task) error

	// GetWorkflow retrieves a workflow by ID regardless of owner.
	GetWorkflow(ctx context.Context, id string) (*types.Workflow, error)

	// GetWorkflowForUser retrieves a workflow scoped to its owner.
	// A foreign or absent workflow fails with NOT_FOUND either way.
	GetWorkflowForUser(ctx context.Context, id, userID string) (*types.Workflow, error)

	// ListTasks returns every task of a workflow.
	ListTasks(ctx context.Context, workflowID string) ([]*types.Task, error)

	// ListTasksByStatus returns the workflow's tasks in the given status.
	ListTasksByStatus(ctx context.Context, workflowID string, status types.TaskStatus) ([]*types.Task, error)

	// PromoteTask transitions PENDING -> READY. Returns false when the task
	// was not PENDING.
	PromoteTask(ctx context.Context, taskID string) (bool, error)

	// ClaimTask transitions READY -> RUNNING, stamping the start time and
	// incrementing the attempt counter. Returns false when the task was not
	// READY (already claimed by a concurrent poll).
	ClaimTask(ctx context.Context, taskID string) (bool, error)

	// CompleteTask transitions RUNNING -> COMPLETED, records the output, and
	// increments the workflow's completed counter, all in one transaction.
	// The transaction re-reads the workflow; when it is no longer RUNNING
	// (cancelled mid-flight) nothing is mutated and false is returned.
	CompleteTask(ctx context.Context, workflowID, taskID string, output map[string]any) (bool, error)

	// FailTask transitions RUNNING -> FAILED, records the error message, and
	// increments the workflow's failed counter. Same cancellation semantics
	// as CompleteTask.
	FailTask(ctx context.Context, workflowID, taskID, errMsg string) (bool, error)

	// UpdateWorkflowStatus compare-and-sets the workflow status. With no
	// from statuses the update is unconditional. Returns false when the
	// current status did not match any from status.
	UpdateWorkflowStatus(ctx context.Context, workflowID string, to types.WorkflowStatus, from ...types.WorkflowStatus) (bool, error)

	// ResumeWorkflow compare-and-sets a FAILED, PARTIALLY_FAILED, or PAUSED
	// workflow back to RUNNING and, in the same transaction, resets every
	// FAILED task to READY with its error cleared and the failed counter
	// reconciled. Returns the number of tasks reset and whether the status
	// transition applied; an absent or non-resumable workflow reports
	// false with no task mutated.
	ResumeWorkflow(ctx context.Context, workflowID string) (int, bool, error)

	// UpsertAgentDefinitions idempotently mirrors registry definitions.
	UpsertAgentDefinitions(ctx context.Context, defs []types.AgentDefinition) error

	// ListAgentDefinitions returns synced definitions in slug order.
	ListAgentDefinitions(ctx context.Context) ([]types.AgentDefinition, error)
}
