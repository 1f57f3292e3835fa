package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/restoraworks/reportflow/agent"
	"github.com/restoraworks/reportflow/types"
	"go.uber.org/zap/zaptest"
)

// Def builds a minimal agent definition for tests.
func Def(slug string, deps ...string) types.AgentDefinition {
	return types.AgentDefinition{
		Slug:      slug,
		Name:      slug,
		Version:   "1.0.0",
		DependsOn: deps,
	}
}

// StaticExecutor returns the given output on every call.
func StaticExecutor(output map[string]any) agent.Executor {
	return agent.ExecutorFunc(func(ctx context.Context, wfCtx types.WorkflowContext, params map[string]any) (map[string]any, error) {
		return output, nil
	})
}

// EchoExecutor returns an output naming the slug, so tests can assert
// which agents contributed to a workflow context.
func EchoExecutor(slug string) agent.Executor {
	return agent.ExecutorFunc(func(ctx context.Context, wfCtx types.WorkflowContext, params map[string]any) (map[string]any, error) {
		return map[string]any{"agent": slug}, nil
	})
}

// FailingExecutor always fails with the given message.
func FailingExecutor(msg string) agent.Executor {
	return agent.ExecutorFunc(func(ctx context.Context, wfCtx types.WorkflowContext, params map[string]any) (map[string]any, error) {
		return nil, fmt.Errorf("%s", msg)
	})
}

// PanickingExecutor always panics, for testing batch isolation.
func PanickingExecutor(msg string) agent.Executor {
	return agent.ExecutorFunc(func(ctx context.Context, wfCtx types.WorkflowContext, params map[string]any) (map[string]any, error) {
		panic(msg)
	})
}

// NewRegistry returns an empty registry logging through the test.
func NewRegistry(t *testing.T, opts ...agent.Option) *agent.Registry {
	t.Helper()
	return agent.NewRegistry(zaptest.NewLogger(t), opts...)
}

// MustRegister registers def with executor, failing the test on error.
func MustRegister(t *testing.T, reg *agent.Registry, def types.AgentDefinition, executor agent.Executor) {
	t.Helper()
	if err := reg.Register(def, executor); err != nil {
		t.Fatalf("register %s: %v", def.Slug, err)
	}
}

// LinearRegistry builds a three-agent chain: intake <- survey <- report.
func LinearRegistry(t *testing.T) *agent.Registry {
	t.Helper()
	reg := NewRegistry(t)
	MustRegister(t, reg, Def("intake"), EchoExecutor("intake"))
	MustRegister(t, reg, Def("survey", "intake"), EchoExecutor("survey"))
	MustRegister(t, reg, Def("report", "survey"), EchoExecutor("report"))
	return reg
}

// DiamondRegistry builds a diamond: intake at the root, survey and
// estimate in parallel, report joining both.
func DiamondRegistry(t *testing.T) *agent.Registry {
	t.Helper()
	reg := NewRegistry(t)
	MustRegister(t, reg, Def("intake"), EchoExecutor("intake"))
	MustRegister(t, reg, Def("survey", "intake"), EchoExecutor("survey"))
	MustRegister(t, reg, Def("estimate", "intake"), EchoExecutor("estimate"))
	MustRegister(t, reg, Def("report", "survey", "estimate"), EchoExecutor("report"))
	return reg
}
