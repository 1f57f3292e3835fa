package workflow

import (
	"testing"

	"github.com/restoraworks/reportflow/agent"
	"github.com/restoraworks/reportflow/persistence"
	"github.com/restoraworks/reportflow/testutil"
	"github.com/restoraworks/reportflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testUser = "user-1"

func newTestEngine(t *testing.T, reg *agent.Registry, opts ...EngineOption) (*Engine, *persistence.MemoryStore) {
	t.Helper()
	store := persistence.NewMemoryStore()
	return NewEngine(store, reg, zaptest.NewLogger(t), opts...), store
}

func TestCreateWorkflow_MaterializesClosure(t *testing.T) {
	reg := testutil.DiamondRegistry(t)
	e, store := newTestEngine(t, reg)
	ctx := testutil.TestContext(t)

	wf, err := e.CreateWorkflow(ctx, testUser, "report", map[string]any{"job": "42"})
	require.NoError(t, err)

	assert.Equal(t, types.WorkflowStatusRunning, wf.Status)
	assert.Equal(t, 4, wf.TotalTasks)
	assert.Equal(t, 0, wf.CompletedTasks)
	assert.Equal(t, 0, wf.FailedTasks)
	assert.Equal(t, "report", wf.RootAgent)

	tasks, err := store.ListTasks(ctx, wf.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 4)

	bysSlug := make(map[string]*types.Task, len(tasks))
	idToSlug := make(map[string]string, len(tasks))
	for _, task := range tasks {
		bysSlug[task.AgentSlug] = task
		idToSlug[task.ID] = task.AgentSlug
	}

	// Only the dependency-free root of the DAG starts READY.
	assert.Equal(t, types.TaskStatusReady, bysSlug["intake"].Status)
	assert.Equal(t, types.TaskStatusPending, bysSlug["survey"].Status)
	assert.Equal(t, types.TaskStatusPending, bysSlug["estimate"].Status)
	assert.Equal(t, types.TaskStatusPending, bysSlug["report"].Status)

	// Task dependencies reference sibling task IDs, not agent slugs.
	var reportDeps []string
	for _, dep := range bysSlug["report"].DependsOn {
		reportDeps = append(reportDeps, idToSlug[dep])
	}
	assert.ElementsMatch(t, []string{"survey", "estimate"}, reportDeps)
}

func TestCreateWorkflow_UnknownAgent(t *testing.T) {
	reg := testutil.LinearRegistry(t)
	e, _ := newTestEngine(t, reg)

	_, err := e.CreateWorkflow(testutil.TestContext(t), testUser, "no-such-agent", nil)
	require.Error(t, err)
	assert.Equal(t, types.ErrUnknownAgent, types.GetErrorCode(err))
}

func TestCreateWorkflow_CyclicDependency(t *testing.T) {
	reg := testutil.NewRegistry(t)
	testutil.MustRegister(t, reg, testutil.Def("x", "y"), testutil.EchoExecutor("x"))
	testutil.MustRegister(t, reg, testutil.Def("y", "z"), testutil.EchoExecutor("y"))
	testutil.MustRegister(t, reg, testutil.Def("z", "x"), testutil.EchoExecutor("z"))

	e, store := newTestEngine(t, reg)
	ctx := testutil.TestContext(t)

	_, err := e.CreateWorkflow(ctx, testUser, "x", nil)
	require.Error(t, err)
	assert.Equal(t, types.ErrCyclicDependency, types.GetErrorCode(err))

	// Resolution failed before any row was written.
	defs, err := store.ListAgentDefinitions(ctx)
	require.NoError(t, err)
	assert.Empty(t, defs)
}

func TestGet_ScopedToOwner(t *testing.T) {
	reg := testutil.LinearRegistry(t)
	e, _ := newTestEngine(t, reg)
	ctx := testutil.TestContext(t)

	wf, err := e.CreateWorkflow(ctx, testUser, "report", nil)
	require.NoError(t, err)

	got, tasks, err := e.Get(ctx, testUser, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, wf.ID, got.ID)
	assert.Len(t, tasks, 3)

	// Another caller sees not-found, never forbidden.
	_, _, err = e.Get(ctx, "someone-else", wf.ID)
	require.Error(t, err)
	assert.Equal(t, types.ErrNotFound, types.GetErrorCode(err))
}

func TestAgents_ReturnsCatalogInSlugOrder(t *testing.T) {
	reg := testutil.DiamondRegistry(t)
	e, _ := newTestEngine(t, reg)

	defs := e.Agents()
	require.Len(t, defs, 4)
	for i := 1; i < len(defs); i++ {
		assert.Less(t, defs[i-1].Slug, defs[i].Slug)
	}
}
