package agent

import (
	"context"

	"github.com/restoraworks/reportflow/types"
)

// Executor is the single contract every registered agent implements.
// Given the accumulated outputs of the agent's dependencies and the
// workflow's original parameters, it returns an opaque output payload.
// Executors may call external AI providers; those calls are opaque to
// the orchestrator.
type Executor interface {
	Execute(ctx context.Context, wfCtx types.WorkflowContext, params map[string]any) (map[string]any, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, wfCtx types.WorkflowContext, params map[string]any) (map[string]any, error)

// Execute implements Executor.
func (f ExecutorFunc) Execute(ctx context.Context, wfCtx types.WorkflowContext, params map[string]any) (map[string]any, error) {
	return f(ctx, wfCtx, params)
}

// Agent pairs a definition with its executor.
type Agent struct {
	Definition types.AgentDefinition
	Executor   Executor
}
