package agent_test

import (
	"context"
	"testing"

	"github.com/restoraworks/reportflow/persistence"
	"github.com/restoraworks/reportflow/testutil"
	"github.com/restoraworks/reportflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveClosure_TopologicalOrder(t *testing.T) {
	reg := testutil.DiamondRegistry(t)

	closure, err := reg.ResolveClosure("report")
	require.NoError(t, err)
	require.Len(t, closure, 4)

	position := make(map[string]int, len(closure))
	for i, def := range closure {
		position[def.Slug] = i
	}
	for _, def := range closure {
		for _, dep := range def.DependsOn {
			assert.Less(t, position[dep], position[def.Slug],
				"%s must sort before %s", dep, def.Slug)
		}
	}
	assert.Equal(t, "intake", closure[0].Slug)
	assert.Equal(t, "report", closure[3].Slug)
}

func TestResolveClosure_OnlyReachableAgents(t *testing.T) {
	reg := testutil.DiamondRegistry(t)
	testutil.MustRegister(t, reg, testutil.Def("unrelated"), testutil.EchoExecutor("unrelated"))

	closure, err := reg.ResolveClosure("survey")
	require.NoError(t, err)
	require.Len(t, closure, 2)
	assert.Equal(t, "intake", closure[0].Slug)
	assert.Equal(t, "survey", closure[1].Slug)
}

func TestResolveClosure_UnknownRoot(t *testing.T) {
	reg := testutil.LinearRegistry(t)

	_, err := reg.ResolveClosure("missing")
	assert.Equal(t, types.ErrUnknownAgent, types.GetErrorCode(err))
}

func TestResolveClosure_DanglingDependency(t *testing.T) {
	reg := testutil.NewRegistry(t)
	testutil.MustRegister(t, reg, testutil.Def("report", "survey"), testutil.EchoExecutor("report"))

	_, err := reg.ResolveClosure("report")
	assert.Equal(t, types.ErrUnknownAgent, types.GetErrorCode(err))
}

func TestResolveClosure_DetectsCycle(t *testing.T) {
	reg := testutil.NewRegistry(t)
	testutil.MustRegister(t, reg, testutil.Def("x", "y"), testutil.EchoExecutor("x"))
	testutil.MustRegister(t, reg, testutil.Def("y", "z"), testutil.EchoExecutor("y"))
	testutil.MustRegister(t, reg, testutil.Def("z", "x"), testutil.EchoExecutor("z"))

	_, err := reg.ResolveClosure("x")
	assert.Equal(t, types.ErrCyclicDependency, types.GetErrorCode(err))
}

func TestValidate_SurfacesBrokenGraphAtStartup(t *testing.T) {
	reg := testutil.LinearRegistry(t)
	require.NoError(t, reg.Validate())

	testutil.MustRegister(t, reg, testutil.Def("audit", "nowhere"), testutil.EchoExecutor("audit"))
	err := reg.Validate()
	assert.Equal(t, types.ErrUnknownAgent, types.GetErrorCode(err))
}

func TestSyncToDatabase_Idempotent(t *testing.T) {
	reg := testutil.LinearRegistry(t)
	store := persistence.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, reg.SyncToDatabase(ctx, store))
	require.NoError(t, reg.SyncToDatabase(ctx, store))

	defs, err := store.ListAgentDefinitions(ctx)
	require.NoError(t, err)
	require.Len(t, defs, 3)
	assert.Equal(t, "intake", defs[0].Slug)
}
