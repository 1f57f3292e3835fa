package workflow

import (
	"context"

	"github.com/restoraworks/reportflow/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// PollResult is the snapshot returned by one execute poll.
type PollResult struct {
	// Status is the workflow status after this poll
	Status types.WorkflowStatus `json:"status"`

	// TasksExecuted is how many tasks were dispatched by this poll
	TasksExecuted int `json:"tasks_executed"`

	// Results holds one entry per executed task; order is not significant
	Results []types.ExecutionResult `json:"results"`

	// Counters after this poll
	CompletedTasks int `json:"completed_tasks"`
	FailedTasks    int `json:"failed_tasks"`
	TotalTasks     int `json:"total_tasks"`
}

func snapshot(wf *types.Workflow, results []types.ExecutionResult) *PollResult {
	return &PollResult{
		Status:         wf.Status,
		TasksExecuted:  len(results),
		Results:        results,
		CompletedTasks: wf.CompletedTasks,
		FailedTasks:    wf.FailedTasks,
		TotalTasks:     wf.TotalTasks,
	}
}

// ExecuteStep performs one poll-driven execution step:
//
//  1. Terminal workflows return their snapshot immediately, no side effects.
//  2. Advance promotes eligible PENDING tasks to READY.
//  3. The READY set is selected; an empty set is a valid steady state
//     (dependencies still in flight) and returns with tasksExecuted = 0.
//  4. The dependency context is built and the batch executed; the returned
//     snapshot reflects the post-batch counters and terminal evaluation.
//
// Clients poll this until the status is terminal. Calls are stateless;
// nothing waits in-process between polls.
func (e *Engine) ExecuteStep(ctx context.Context, userID, workflowID string) (*PollResult, error) {
	ctx, span := e.tracer.Start(ctx, "workflow.execute_step",
		trace.WithAttributes(attribute.String("workflow.id", workflowID)),
	)
	defer span.End()

	wf, err := e.store.GetWorkflowForUser(ctx, workflowID, userID)
	if err != nil {
		return nil, err
	}

	if wf.Status.IsTerminal() || wf.Status == types.WorkflowStatusPaused {
		e.observePoll(wf.Status, 0)
		return snapshot(wf, nil), nil
	}

	if e.locker != nil {
		release, ok, err := e.locker.Acquire(ctx, workflowID)
		if err != nil {
			return nil, types.NewError(types.ErrInternalError, "poll lock unavailable").WithCause(err)
		}
		if !ok {
			// Another poll is in progress; report the current snapshot.
			e.logger.Debug("poll lock held elsewhere", zap.String("workflow_id", workflowID))
			e.observePoll(wf.Status, 0)
			return snapshot(wf, nil), nil
		}
		defer release()
	}

	if err := e.Advance(ctx, workflowID); err != nil {
		return nil, err
	}

	ready, err := e.ExecutableTasks(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if len(ready) == 0 {
		current, err := e.store.GetWorkflow(ctx, workflowID)
		if err != nil {
			return nil, err
		}
		e.observePoll(current.Status, 0)
		return snapshot(current, nil), nil
	}

	wfCtx, err := e.Context(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	results, err := e.ExecuteBatch(ctx, wf, ready, wfCtx)
	if err != nil {
		return nil, err
	}

	current, err := e.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	e.observePoll(current.Status, len(results))
	e.logger.Info("poll step executed",
		zap.String("workflow_id", workflowID),
		zap.Int("tasks_executed", len(results)),
		zap.String("status", string(current.Status)),
	)
	return snapshot(current, results), nil
}
