package persistence

import (
	"encoding/json"
	"time"

	"github.com/restoraworks/reportflow/types"
)

// WorkflowRecord is the gorm row for a workflow. JSON-typed fields are
// stored as serialized text so the schema works on both PostgreSQL and
// SQLite.
type WorkflowRecord struct {
	ID             string `gorm:"primaryKey;size:36"`
	UserID         string `gorm:"size:64;index:idx_workflows_user"`
	RootAgent      string `gorm:"size:128"`
	Status         string `gorm:"size:24;index:idx_workflows_status"`
	Parameters     []byte
	TotalTasks     int
	CompletedTasks int
	FailedTasks    int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName overrides the gorm default.
func (WorkflowRecord) TableName() string { return "workflows" }

// TaskRecord is the gorm row for a task.
type TaskRecord struct {
	ID          string `gorm:"primaryKey;size:36"`
	WorkflowID  string `gorm:"size:36;index:idx_tasks_workflow"`
	AgentSlug   string `gorm:"size:128"`
	Status      string `gorm:"size:16;index:idx_tasks_status"`
	DependsOn   []byte
	Output      []byte
	Error       string
	Attempts    int
	StartedAt   *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName overrides the gorm default.
func (TaskRecord) TableName() string { return "tasks" }

// AgentDefinitionRecord is the synced registry row, discoverability only.
type AgentDefinitionRecord struct {
	Slug            string `gorm:"primaryKey;size:128"`
	Name            string `gorm:"size:128"`
	Description     string
	Version         string `gorm:"size:32"`
	Capabilities    []byte
	DefaultProvider string `gorm:"size:32"`
	DependsOn       []byte
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TableName overrides the gorm default.
func (AgentDefinitionRecord) TableName() string { return "agent_definitions" }

func marshalJSON(v any) []byte {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

func unmarshalMap(b []byte) map[string]any {
	if len(b) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil
	}
	return m
}

func unmarshalStrings(b []byte) []string {
	if len(b) == 0 {
		return nil
	}
	var s []string
	if err := json.Unmarshal(b, &s); err != nil {
		return nil
	}
	return s
}

func toWorkflowRecord(wf *types.Workflow) *WorkflowRecord {
	return &WorkflowRecord{
		ID:             wf.ID,
		UserID:         wf.UserID,
		RootAgent:      wf.RootAgent,
		Status:         string(wf.Status),
		Parameters:     marshalJSON(wf.Parameters),
		TotalTasks:     wf.TotalTasks,
		CompletedTasks: wf.CompletedTasks,
		FailedTasks:    wf.FailedTasks,
		CreatedAt:      wf.CreatedAt,
		UpdatedAt:      wf.UpdatedAt,
	}
}

func (r *WorkflowRecord) toWorkflow() *types.Workflow {
	return &types.Workflow{
		ID:             r.ID,
		UserID:         r.UserID,
		RootAgent:      r.RootAgent,
		Status:         types.WorkflowStatus(r.Status),
		Parameters:     unmarshalMap(r.Parameters),
		TotalTasks:     r.TotalTasks,
		CompletedTasks: r.CompletedTasks,
		FailedTasks:    r.FailedTasks,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func toTaskRecord(t *types.Task) *TaskRecord {
	return &TaskRecord{
		ID:          t.ID,
		WorkflowID:  t.WorkflowID,
		AgentSlug:   t.AgentSlug,
		Status:      string(t.Status),
		DependsOn:   marshalJSON(t.DependsOn),
		Output:      marshalJSON(t.Output),
		Error:       t.Error,
		Attempts:    t.Attempts,
		StartedAt:   t.StartedAt,
		CompletedAt: t.CompletedAt,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func (r *TaskRecord) toTask() *types.Task {
	return &types.Task{
		ID:          r.ID,
		WorkflowID:  r.WorkflowID,
		AgentSlug:   r.AgentSlug,
		Status:      types.TaskStatus(r.Status),
		DependsOn:   unmarshalStrings(r.DependsOn),
		Output:      unmarshalMap(r.Output),
		Error:       r.Error,
		Attempts:    r.Attempts,
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func toDefinitionRecord(d types.AgentDefinition) *AgentDefinitionRecord {
	return &AgentDefinitionRecord{
		Slug:            d.Slug,
		Name:            d.Name,
		Description:     d.Description,
		Version:         d.Version,
		Capabilities:    marshalJSON(d.Capabilities),
		DefaultProvider: string(d.DefaultProvider),
		DependsOn:       marshalJSON(d.DependsOn),
	}
}

func (r *AgentDefinitionRecord) toDefinition() types.AgentDefinition {
	return types.AgentDefinition{
		Slug:            r.Slug,
		Name:            r.Name,
		Description:     r.Description,
		Version:         r.Version,
		Capabilities:    unmarshalStrings(r.Capabilities),
		DefaultProvider: types.Provider(r.DefaultProvider),
		DependsOn:       unmarshalStrings(r.DependsOn),
		RegisteredAt:    r.UpdatedAt,
	}
}
