package catalog_test

import (
	"context"
	"testing"

	"github.com/restoraworks/reportflow/agent"
	"github.com/restoraworks/reportflow/agent/catalog"
	"github.com/restoraworks/reportflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestRegister_InstallsValidCatalog(t *testing.T) {
	reg := agent.NewRegistry(zaptest.NewLogger(t))
	require.NoError(t, catalog.Register(reg))

	assert.Equal(t, 7, reg.Len())

	closure, err := reg.ResolveClosure("report-assembly")
	require.NoError(t, err)
	require.Len(t, closure, 7)
	assert.Equal(t, "scope-intake", closure[0].Slug)
	assert.Equal(t, "report-assembly", closure[6].Slug)
}

// Executes the catalog agents in dependency order, feeding each output back
// into the workflow context the way the batch executor does.
func TestCatalog_ExecutesEndToEnd(t *testing.T) {
	reg := agent.NewRegistry(zaptest.NewLogger(t))
	require.NoError(t, catalog.Register(reg))

	closure, err := reg.ResolveClosure("report-assembly")
	require.NoError(t, err)

	ctx := context.Background()
	wfCtx := types.WorkflowContext{}
	params := map[string]any{
		"description":    "burst pipe, second floor",
		"loss_type":      "water",
		"affected_areas": []string{"kitchen", "hallway"},
	}

	for _, def := range closure {
		a, err := reg.Get(def.Slug)
		require.NoError(t, err)
		out, err := a.Executor.Execute(ctx, wfCtx, params)
		require.NoError(t, err, "agent %s", def.Slug)
		require.NotNil(t, out, "agent %s", def.Slug)
		wfCtx[def.Slug] = out
	}

	final := wfCtx["report-assembly"]
	assert.Equal(t, true, final["final"])
	assert.Contains(t, wfCtx["scope-intake"]["scope"], "burst pipe")
}

func TestCatalog_AgentsFailWithoutUpstreamContext(t *testing.T) {
	reg := agent.NewRegistry(zaptest.NewLogger(t))
	require.NoError(t, catalog.Register(reg))

	a, err := reg.Get("moisture-survey")
	require.NoError(t, err)

	_, err = a.Executor.Execute(context.Background(), types.WorkflowContext{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scope-intake")
}
