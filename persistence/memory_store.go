package persistence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/restoraworks/reportflow/types"
)

// MemoryStore is an in-memory Store used by unit tests and local
// development. It mirrors the transactional semantics of GormStore under a
// single mutex.
type MemoryStore struct {
	workflows map[string]*types.Workflow
	tasks     map[string]*types.Task
	agents    map[string]types.AgentDefinition
	mu        sync.Mutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		workflows: make(map[string]*types.Workflow),
		tasks:     make(map[string]*types.Task),
		agents:    make(map[string]types.AgentDefinition),
	}
}

func copyWorkflow(wf *types.Workflow) *types.Workflow {
	cp := *wf
	cp.Parameters = cloneMap(wf.Parameters)
	return &cp
}

func copyTask(t *types.Task) *types.Task {
	cp := *t
	cp.DependsOn = append([]string(nil), t.DependsOn...)
	cp.Output = cloneMap(t.Output)
	return &cp
}

// cloneMap deep-copies nested maps and slices so callers never alias
// store state. GormStore gets the same isolation from its JSON round-trip.
func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// CreateWorkflow stores the workflow and its tasks.
func (s *MemoryStore) CreateWorkflow(ctx context.Context, wf *types.Workflow, tasks []*types.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.workflows[wf.ID] = copyWorkflow(wf)
	for _, t := range tasks {
		s.tasks[t.ID] = copyTask(t)
	}
	return nil
}

// GetWorkflow retrieves a workflow by ID.
func (s *MemoryStore) GetWorkflow(ctx context.Context, id string) (*types.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wf, ok := s.workflows[id]
	if !ok {
		return nil, types.NewNotFoundError("workflow not found")
	}
	return copyWorkflow(wf), nil
}

// GetWorkflowForUser retrieves a workflow scoped to its owner.
func (s *MemoryStore) GetWorkflowForUser(ctx context.Context, id, userID string) (*types.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wf, ok := s.workflows[id]
	if !ok || wf.UserID != userID {
		return nil, types.NewNotFoundError("workflow not found")
	}
	return copyWorkflow(wf), nil
}

func (s *MemoryStore) tasksOf(workflowID string) []*types.Task {
	var out []*types.Task
	for _, t := range s.tasks {
		if t.WorkflowID == workflowID {
			out = append(out, copyTask(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// ListTasks returns every task of a workflow, oldest first.
func (s *MemoryStore) ListTasks(ctx context.Context, workflowID string) ([]*types.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasksOf(workflowID), nil
}

// ListTasksByStatus returns the workflow's tasks in the given status.
func (s *MemoryStore) ListTasksByStatus(ctx context.Context, workflowID string, status types.TaskStatus) ([]*types.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*types.Task
	for _, t := range s.tasksOf(workflowID) {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out, nil
}

// PromoteTask compare-and-sets PENDING -> READY.
func (s *MemoryStore) PromoteTask(ctx context.Context, taskID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[taskID]
	if !ok || t.Status != types.TaskStatusPending {
		return false, nil
	}
	t.Status = types.TaskStatusReady
	t.UpdatedAt = time.Now()
	return true, nil
}

// ClaimTask compare-and-sets READY -> RUNNING.
func (s *MemoryStore) ClaimTask(ctx context.Context, taskID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[taskID]
	if !ok || t.Status != types.TaskStatusReady {
		return false, nil
	}
	now := time.Now()
	t.Status = types.TaskStatusRunning
	t.StartedAt = &now
	t.Attempts++
	t.UpdatedAt = now
	return true, nil
}

// CompleteTask applies a success result unless the workflow left RUNNING.
func (s *MemoryStore) CompleteTask(ctx context.Context, workflowID, taskID string, output map[string]any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wf, ok := s.workflows[workflowID]
	if !ok || wf.Status != types.WorkflowStatusRunning {
		return false, nil
	}
	t, ok := s.tasks[taskID]
	if !ok || t.Status != types.TaskStatusRunning {
		return false, nil
	}
	now := time.Now()
	t.Status = types.TaskStatusCompleted
	t.Output = cloneMap(output)
	t.Error = ""
	t.CompletedAt = &now
	t.UpdatedAt = now
	wf.CompletedTasks++
	wf.UpdatedAt = now
	return true, nil
}

// FailTask applies a failure result unless the workflow left RUNNING.
func (s *MemoryStore) FailTask(ctx context.Context, workflowID, taskID, errMsg string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wf, ok := s.workflows[workflowID]
	if !ok || wf.Status != types.WorkflowStatusRunning {
		return false, nil
	}
	t, ok := s.tasks[taskID]
	if !ok || t.Status != types.TaskStatusRunning {
		return false, nil
	}
	now := time.Now()
	t.Status = types.TaskStatusFailed
	t.Error = errMsg
	t.CompletedAt = &now
	t.UpdatedAt = now
	wf.FailedTasks++
	wf.UpdatedAt = now
	return true, nil
}

// UpdateWorkflowStatus compare-and-sets the workflow status.
func (s *MemoryStore) UpdateWorkflowStatus(ctx context.Context, workflowID string, to types.WorkflowStatus, from ...types.WorkflowStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wf, ok := s.workflows[workflowID]
	if !ok {
		return false, nil
	}
	if len(from) > 0 {
		matched := false
		for _, f := range from {
			if wf.Status == f {
				matched = true
				break
			}
		}
		if !matched {
			return false, nil
		}
	}
	wf.Status = to
	wf.UpdatedAt = time.Now()
	return true, nil
}

// ResumeWorkflow returns a resumable workflow to RUNNING and re-arms its
// FAILED tasks under one lock hold, matching GormStore's single
// transaction.
func (s *MemoryStore) ResumeWorkflow(ctx context.Context, workflowID string) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wf, ok := s.workflows[workflowID]
	if !ok || !wf.Status.IsResumable() {
		return 0, false, nil
	}

	now := time.Now()
	wf.Status = types.WorkflowStatusRunning
	wf.UpdatedAt = now

	reset := 0
	for _, t := range s.tasks {
		if t.WorkflowID != workflowID || t.Status != types.TaskStatusFailed {
			continue
		}
		t.Status = types.TaskStatusReady
		t.Error = ""
		t.CompletedAt = nil
		t.UpdatedAt = now
		reset++
	}
	wf.FailedTasks -= reset
	return reset, true, nil
}

// UpsertAgentDefinitions mirrors registry definitions.
func (s *MemoryStore) UpsertAgentDefinitions(ctx context.Context, defs []types.AgentDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range defs {
		s.agents[d.Slug] = d
	}
	return nil
}

// ListAgentDefinitions returns synced definitions in slug order.
func (s *MemoryStore) ListAgentDefinitions(ctx context.Context) ([]types.AgentDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	defs := make([]types.AgentDefinition, 0, len(s.agents))
	for _, d := range s.agents {
		defs = append(defs, d)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Slug < defs[j].Slug })
	return defs, nil
}
