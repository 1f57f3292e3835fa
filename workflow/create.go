package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/restoraworks/reportflow/types"
	"go.uber.org/zap"
)

// CreateWorkflow resolves the root agent's transitive dependency closure
// and materializes one task per resolved agent. Tasks without dependencies
// start READY; the rest start PENDING. The workflow itself starts RUNNING.
//
// Closure resolution fails with UNKNOWN_AGENT or CYCLIC_DEPENDENCY before
// any row is written.
func (e *Engine) CreateWorkflow(ctx context.Context, userID, rootSlug string, params map[string]any) (*types.Workflow, error) {
	defs, err := e.registry.ResolveClosure(rootSlug)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	wf := &types.Workflow{
		ID:         uuid.NewString(),
		UserID:     userID,
		RootAgent:  rootSlug,
		Status:     types.WorkflowStatusRunning,
		Parameters: params,
		TotalTasks: len(defs),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	// Agent dependencies are declared by slug; task dependencies reference
	// sibling task IDs, so map slugs to the IDs minted here.
	taskIDs := make(map[string]string, len(defs))
	for _, def := range defs {
		taskIDs[def.Slug] = uuid.NewString()
	}

	tasks := make([]*types.Task, 0, len(defs))
	for i, def := range defs {
		status := types.TaskStatusPending
		if len(def.DependsOn) == 0 {
			status = types.TaskStatusReady
		}
		deps := make([]string, 0, len(def.DependsOn))
		for _, depSlug := range def.DependsOn {
			deps = append(deps, taskIDs[depSlug])
		}
		tasks = append(tasks, &types.Task{
			ID:         taskIDs[def.Slug],
			WorkflowID: wf.ID,
			AgentSlug:  def.Slug,
			Status:     status,
			DependsOn:  deps,
			CreatedAt:  now.Add(time.Duration(i) * time.Microsecond),
			UpdatedAt:  now,
		})
	}

	if err := e.store.CreateWorkflow(ctx, wf, tasks); err != nil {
		return nil, types.NewError(types.ErrInternalError, "failed to create workflow").WithCause(err)
	}

	e.observeTransition(types.WorkflowStatusRunning)
	e.logger.Info("workflow created",
		zap.String("workflow_id", wf.ID),
		zap.String("root_agent", rootSlug),
		zap.Int("total_tasks", wf.TotalTasks),
	)
	return wf, nil
}
