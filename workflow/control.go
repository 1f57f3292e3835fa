package workflow

import (
	"context"

	"github.com/restoraworks/reportflow/types"
	"go.uber.org/zap"
)

// Resume re-arms a FAILED, PARTIALLY_FAILED, or PAUSED workflow: every
// FAILED task is reset to READY with its error cleared, the failed
// counter is reconciled, and the workflow returns to RUNNING. The status
// change and the task reset land in one store transaction, so a
// concurrent poll never sees RUNNING over a still-terminal task set.
// Nothing is executed here; the next execute poll performs the actual
// run. Returns the number of tasks retried.
func (e *Engine) Resume(ctx context.Context, userID, workflowID string) (int, *types.Workflow, error) {
	wf, err := e.store.GetWorkflowForUser(ctx, workflowID, userID)
	if err != nil {
		return 0, nil, err
	}

	retried, resumed, err := e.store.ResumeWorkflow(ctx, workflowID)
	if err != nil {
		return 0, nil, err
	}
	if !resumed {
		// Re-read for an accurate current status in the error message.
		current, readErr := e.store.GetWorkflow(ctx, workflowID)
		status := wf.Status
		if readErr == nil {
			status = current.Status
		}
		return 0, nil, types.NewInvalidTransitionError("resume", status)
	}

	e.observeTransition(types.WorkflowStatusRunning)
	e.logger.Info("workflow resumed",
		zap.String("workflow_id", workflowID),
		zap.Int("retried_tasks", retried),
	)

	updated, err := e.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return retried, nil, err
	}
	return retried, updated, nil
}

// Pause suspends a RUNNING workflow. Paused workflows are skipped by the
// execute poll and return to RUNNING via Resume.
func (e *Engine) Pause(ctx context.Context, userID, workflowID string) (*types.Workflow, error) {
	wf, err := e.store.GetWorkflowForUser(ctx, workflowID, userID)
	if err != nil {
		return nil, err
	}

	paused, err := e.store.UpdateWorkflowStatus(ctx, workflowID, types.WorkflowStatusPaused,
		types.WorkflowStatusRunning)
	if err != nil {
		return nil, err
	}
	if !paused {
		return nil, types.NewInvalidTransitionError("pause", wf.Status)
	}

	e.observeTransition(types.WorkflowStatusPaused)
	e.logger.Info("workflow paused", zap.String("workflow_id", workflowID))
	return e.store.GetWorkflow(ctx, workflowID)
}

// Cancel terminates a workflow early. Re-cancelling is an idempotent
// no-op; COMPLETED, FAILED, and PARTIALLY_FAILED workflows cannot be
// cancelled. Results of tasks still in flight when cancellation lands are
// discarded by the store's result-apply guard; such tasks remain RUNNING
// in the task detail.
func (e *Engine) Cancel(ctx context.Context, userID, workflowID string) (*types.Workflow, error) {
	wf, err := e.store.GetWorkflowForUser(ctx, workflowID, userID)
	if err != nil {
		return nil, err
	}

	if wf.Status == types.WorkflowStatusCancelled {
		return wf, nil
	}

	cancelled, err := e.store.UpdateWorkflowStatus(ctx, workflowID, types.WorkflowStatusCancelled,
		types.WorkflowStatusPending, types.WorkflowStatusRunning, types.WorkflowStatusPaused)
	if err != nil {
		return nil, err
	}
	if !cancelled {
		current, readErr := e.store.GetWorkflow(ctx, workflowID)
		status := wf.Status
		if readErr == nil {
			status = current.Status
		}
		if status == types.WorkflowStatusCancelled {
			return current, nil
		}
		return nil, types.NewInvalidTransitionError("cancel", status)
	}

	e.observeTransition(types.WorkflowStatusCancelled)
	e.logger.Info("workflow cancelled", zap.String("workflow_id", workflowID))
	return e.store.GetWorkflow(ctx, workflowID)
}
