package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/restoraworks/reportflow/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// ExecuteBatch dispatches the given READY tasks concurrently, bounded by
// the engine's concurrency limit. Each task is claimed with a
// compare-and-set before its agent runs, so a task raced away by a
// concurrent poll is skipped rather than run twice.
//
// All tasks run to completion independently: an agent error is captured
// on its task as AGENT_EXECUTION and never cancels siblings. One result
// is returned per claimed task; order is not significant.
func (e *Engine) ExecuteBatch(ctx context.Context, wf *types.Workflow, tasks []*types.Task, wfCtx types.WorkflowContext) ([]types.ExecutionResult, error) {
	if len(tasks) == 0 {
		return nil, nil
	}

	sem := semaphore.NewWeighted(e.maxConcurrency)
	results := make(chan types.ExecutionResult, len(tasks))
	var wg sync.WaitGroup

	for _, t := range tasks {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(task *types.Task) {
			defer wg.Done()
			defer sem.Release(1)

			res, ok := e.executeTask(ctx, wf, task, wfCtx)
			if ok {
				results <- res
			}
		}(t)
	}

	wg.Wait()
	close(results)

	out := make([]types.ExecutionResult, 0, len(tasks))
	for res := range results {
		out = append(out, res)
	}

	if err := e.refreshTerminal(ctx, wf.ID); err != nil {
		return out, err
	}
	return out, nil
}

// executeTask claims and runs one task. Returns ok=false when the task
// could not be claimed (already dispatched by a concurrent poll).
func (e *Engine) executeTask(ctx context.Context, wf *types.Workflow, task *types.Task, wfCtx types.WorkflowContext) (types.ExecutionResult, bool) {
	claimed, err := e.store.ClaimTask(ctx, task.ID)
	if err != nil || !claimed {
		if err != nil {
			e.logger.Error("task claim failed",
				zap.String("task_id", task.ID),
				zap.Error(err),
			)
		}
		return types.ExecutionResult{}, false
	}

	ctx, span := e.tracer.Start(ctx, "workflow.task",
		trace.WithAttributes(
			attribute.String("workflow.id", wf.ID),
			attribute.String("task.id", task.ID),
			attribute.String("agent.slug", task.AgentSlug),
		),
	)
	defer span.End()

	start := time.Now()
	output, execErr := e.invokeAgent(ctx, task.AgentSlug, wfCtx, wf.Parameters)
	duration := time.Since(start)

	res := types.ExecutionResult{
		TaskID:    task.ID,
		AgentSlug: task.AgentSlug,
		Duration:  duration,
	}

	if execErr != nil {
		wrapped := types.NewAgentExecutionError(task.AgentSlug, execErr)
		res.Status = types.TaskStatusFailed
		res.Error = wrapped.Error()

		if _, err := e.store.FailTask(ctx, wf.ID, task.ID, wrapped.Error()); err != nil {
			e.logger.Error("failed to record task failure",
				zap.String("task_id", task.ID),
				zap.Error(err),
			)
		}
		e.logger.Warn("task failed",
			zap.String("workflow_id", wf.ID),
			zap.String("task_id", task.ID),
			zap.String("agent", task.AgentSlug),
			zap.Duration("duration", duration),
			zap.Error(execErr),
		)
	} else {
		res.Status = types.TaskStatusCompleted
		res.Output = output

		if _, err := e.store.CompleteTask(ctx, wf.ID, task.ID, output); err != nil {
			e.logger.Error("failed to record task completion",
				zap.String("task_id", task.ID),
				zap.Error(err),
			)
		}
		e.logger.Info("task completed",
			zap.String("workflow_id", wf.ID),
			zap.String("task_id", task.ID),
			zap.String("agent", task.AgentSlug),
			zap.Duration("duration", duration),
		)
	}

	if e.metrics != nil {
		e.metrics.ObserveTaskExecution(task.AgentSlug, res.Status, duration.Seconds())
	}
	return res, true
}

// invokeAgent runs the registered executor, converting panics into errors
// so a misbehaving agent cannot take down the poll call. When the engine
// carries an agent timeout, the executor's context expires after it.
func (e *Engine) invokeAgent(ctx context.Context, slug string, wfCtx types.WorkflowContext, params map[string]any) (output map[string]any, err error) {
	a, lookupErr := e.registry.Get(slug)
	if lookupErr != nil {
		return nil, lookupErr
	}

	if e.agentTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.agentTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("agent panic: %v", r)
		}
	}()
	return a.Executor.Execute(ctx, wfCtx, params)
}
