package workflow

import (
	"context"

	"github.com/restoraworks/reportflow/types"
	"go.uber.org/zap"
)

// Advance promotes every PENDING task whose dependencies have all
// COMPLETED to READY, then re-evaluates the workflow's terminal status.
// Calling it repeatedly with no intervening execution is a no-op; tasks
// already READY, RUNNING, COMPLETED, or FAILED are never touched.
func (e *Engine) Advance(ctx context.Context, workflowID string) error {
	tasks, err := e.store.ListTasks(ctx, workflowID)
	if err != nil {
		return err
	}

	completed := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		if t.Status == types.TaskStatusCompleted {
			completed[t.ID] = true
		}
	}

	for _, t := range tasks {
		if t.Status != types.TaskStatusPending {
			continue
		}
		eligible := true
		for _, dep := range t.DependsOn {
			if !completed[dep] {
				eligible = false
				break
			}
		}
		if !eligible {
			continue
		}
		promoted, err := e.store.PromoteTask(ctx, t.ID)
		if err != nil {
			return err
		}
		if promoted {
			e.logger.Debug("task promoted to ready",
				zap.String("workflow_id", workflowID),
				zap.String("task_id", t.ID),
				zap.String("agent", t.AgentSlug),
			)
		}
	}

	return e.evaluateTerminal(ctx, workflowID, tasks)
}

// evaluateTerminal settles the workflow status once every task is
// terminal: COMPLETED when all completed, FAILED when all failed,
// PARTIALLY_FAILED on a mix. Only a RUNNING workflow is settled, so
// paused or cancelled workflows keep their status.
func (e *Engine) evaluateTerminal(ctx context.Context, workflowID string, tasks []*types.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	var completed, failed int
	for _, t := range tasks {
		switch t.Status {
		case types.TaskStatusCompleted:
			completed++
		case types.TaskStatusFailed:
			failed++
		default:
			return nil
		}
	}

	var status types.WorkflowStatus
	switch {
	case failed == 0:
		status = types.WorkflowStatusCompleted
	case completed == 0:
		status = types.WorkflowStatusFailed
	default:
		status = types.WorkflowStatusPartiallyFailed
	}

	settled, err := e.store.UpdateWorkflowStatus(ctx, workflowID, status, types.WorkflowStatusRunning)
	if err != nil {
		return err
	}
	if settled {
		e.observeTransition(status)
		e.logger.Info("workflow settled",
			zap.String("workflow_id", workflowID),
			zap.String("status", string(status)),
			zap.Int("completed", completed),
			zap.Int("failed", failed),
		)
	}
	return nil
}

// refreshTerminal re-reads the task set and runs terminal evaluation.
// Called after every batch so a caller immediately observes
// COMPLETED/FAILED/PARTIALLY_FAILED without an extra poll cycle.
func (e *Engine) refreshTerminal(ctx context.Context, workflowID string) error {
	tasks, err := e.store.ListTasks(ctx, workflowID)
	if err != nil {
		return err
	}
	return e.evaluateTerminal(ctx, workflowID, tasks)
}

// ExecutableTasks returns the workflow's READY tasks. Pure read; the
// returned ordering is stable within one call.
func (e *Engine) ExecutableTasks(ctx context.Context, workflowID string) ([]*types.Task, error) {
	return e.store.ListTasksByStatus(ctx, workflowID, types.TaskStatusReady)
}

// Context assembles the accumulated outputs of COMPLETED tasks, keyed by
// agent slug. This mapping is the only channel between tasks.
func (e *Engine) Context(ctx context.Context, workflowID string) (types.WorkflowContext, error) {
	tasks, err := e.store.ListTasksByStatus(ctx, workflowID, types.TaskStatusCompleted)
	if err != nil {
		return nil, err
	}
	wfCtx := make(types.WorkflowContext, len(tasks))
	for _, t := range tasks {
		wfCtx[t.AgentSlug] = t.Output
	}
	return wfCtx, nil
}
