package workflow

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/restoraworks/reportflow/agent"
	"github.com/restoraworks/reportflow/persistence"
	"github.com/restoraworks/reportflow/testutil"
	"github.com/restoraworks/reportflow/types"
	"go.uber.org/zap"
)

// buildRandomDAG registers size agents where agent i may depend on any
// subset of agents 0..i-1, so the graph is acyclic by construction.
// Roughly one agent in five fails.
func buildRandomDAG(size int, seed int64) (*agent.Registry, string) {
	rng := rand.New(rand.NewSource(seed))
	reg := agent.NewRegistry(zap.NewNop())

	slugs := make([]string, size)
	for i := 0; i < size; i++ {
		slugs[i] = fmt.Sprintf("agent-%d", i)
		var deps []string
		for j := 0; j < i; j++ {
			if rng.Float64() < 0.4 {
				deps = append(deps, slugs[j])
			}
		}
		var exec agent.Executor
		if rng.Float64() < 0.2 {
			exec = testutil.FailingExecutor("induced failure")
		} else {
			exec = testutil.EchoExecutor(slugs[i])
		}
		if err := reg.Register(testutil.Def(slugs[i], deps...), exec); err != nil {
			panic(err)
		}
	}
	return reg, slugs[size-1]
}

func readySet(tasks []*types.Task) map[string]bool {
	set := make(map[string]bool)
	for _, t := range tasks {
		if t.Status == types.TaskStatusReady {
			set[t.ID] = true
		}
	}
	return set
}

func equalSets(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

func TestProperty_AdvanceInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("advance is idempotent and never promotes prematurely", prop.ForAll(
		func(size int, seed int64) bool {
			reg, root := buildRandomDAG(size, seed)
			store := persistence.NewMemoryStore()
			e := NewEngine(store, reg, zap.NewNop())

			bg := context.Background()
			wf, err := e.CreateWorkflow(bg, "prop-user", root, nil)
			if err != nil {
				t.Logf("create failed: %v", err)
				return false
			}

			for iter := 0; iter < 2*size+2; iter++ {
				// P1: a second advance with no intervening execution
				// yields the same READY set.
				if err := e.Advance(bg, wf.ID); err != nil {
					return false
				}
				first, err := store.ListTasks(bg, wf.ID)
				if err != nil {
					return false
				}
				if err := e.Advance(bg, wf.ID); err != nil {
					return false
				}
				second, err := store.ListTasks(bg, wf.ID)
				if err != nil {
					return false
				}
				if !equalSets(readySet(first), readySet(second)) {
					t.Log("advance was not idempotent")
					return false
				}

				// P2: READY implies every dependency COMPLETED.
				byID := make(map[string]types.TaskStatus, len(second))
				for _, task := range second {
					byID[task.ID] = task.Status
				}
				for _, task := range second {
					if task.Status != types.TaskStatusReady {
						continue
					}
					for _, dep := range task.DependsOn {
						if byID[dep] != types.TaskStatusCompleted {
							t.Logf("task %s READY with incomplete dependency", task.ID)
							return false
						}
					}
				}

				res, err := e.ExecuteStep(bg, "prop-user", wf.ID)
				if err != nil {
					return false
				}
				if res.Status.IsTerminal() || res.TasksExecuted == 0 {
					break
				}
			}

			// P3: counters mirror terminal task rows at every stop point.
			current, err := store.GetWorkflow(bg, wf.ID)
			if err != nil {
				return false
			}
			tasks, err := store.ListTasks(bg, wf.ID)
			if err != nil {
				return false
			}
			var completed, failed int
			for _, task := range tasks {
				switch task.Status {
				case types.TaskStatusCompleted:
					completed++
				case types.TaskStatusFailed:
					failed++
				}
			}
			if current.CompletedTasks != completed || current.FailedTasks != failed {
				t.Logf("counter drift: %d/%d vs rows %d/%d",
					current.CompletedTasks, current.FailedTasks, completed, failed)
				return false
			}
			return current.CompletedTasks+current.FailedTasks <= current.TotalTasks
		},
		gen.IntRange(2, 7),
		gen.Int64(),
	))

	properties.TestingRun(t)
}
