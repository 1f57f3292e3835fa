package api

import (
	"time"

	"github.com/restoraworks/reportflow/types"
)

// CreateWorkflowRequest starts a workflow rooted at an agent slug.
type CreateWorkflowRequest struct {
	RootAgent  string         `json:"root_agent"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// TaskView is the API shape of one task.
type TaskView struct {
	ID          string         `json:"id"`
	AgentSlug   string         `json:"agent_slug"`
	Status      string         `json:"status"`
	DependsOn   []string       `json:"depends_on,omitempty"`
	Output      map[string]any `json:"output,omitempty"`
	Error       string         `json:"error,omitempty"`
	Attempts    int            `json:"attempts"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	DurationMS  int64          `json:"duration_ms,omitempty"`
}

// WorkflowView is the API shape of a workflow, optionally with its
// task detail.
type WorkflowView struct {
	ID             string         `json:"id"`
	RootAgent      string         `json:"root_agent"`
	Status         string         `json:"status"`
	Parameters     map[string]any `json:"parameters,omitempty"`
	TotalTasks     int            `json:"total_tasks"`
	CompletedTasks int            `json:"completed_tasks"`
	FailedTasks    int            `json:"failed_tasks"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	Tasks          []TaskView     `json:"tasks,omitempty"`
}

// ResumeView reports the outcome of a resume request.
type ResumeView struct {
	TasksRetried int          `json:"tasks_retried"`
	Workflow     WorkflowView `json:"workflow"`
}

// AgentView is the API shape of a registered agent definition.
type AgentView struct {
	Slug            string   `json:"slug"`
	Name            string   `json:"name"`
	Description     string   `json:"description,omitempty"`
	Version         string   `json:"version"`
	Capabilities    []string `json:"capabilities,omitempty"`
	DefaultProvider string   `json:"default_provider,omitempty"`
	DependsOn       []string `json:"depends_on,omitempty"`
}

// ToTaskView converts a task to its API shape.
func ToTaskView(t *types.Task) TaskView {
	v := TaskView{
		ID:          t.ID,
		AgentSlug:   t.AgentSlug,
		Status:      string(t.Status),
		DependsOn:   t.DependsOn,
		Output:      t.Output,
		Error:       t.Error,
		Attempts:    t.Attempts,
		StartedAt:   t.StartedAt,
		CompletedAt: t.CompletedAt,
	}
	if d := t.Duration(); d > 0 {
		v.DurationMS = d.Milliseconds()
	}
	return v
}

// ToWorkflowView converts a workflow and its tasks to the API shape.
// tasks may be nil for list-style summaries.
func ToWorkflowView(wf *types.Workflow, tasks []*types.Task) WorkflowView {
	v := WorkflowView{
		ID:             wf.ID,
		RootAgent:      wf.RootAgent,
		Status:         string(wf.Status),
		Parameters:     wf.Parameters,
		TotalTasks:     wf.TotalTasks,
		CompletedTasks: wf.CompletedTasks,
		FailedTasks:    wf.FailedTasks,
		CreatedAt:      wf.CreatedAt,
		UpdatedAt:      wf.UpdatedAt,
	}
	if len(tasks) > 0 {
		v.Tasks = make([]TaskView, 0, len(tasks))
		for _, t := range tasks {
			v.Tasks = append(v.Tasks, ToTaskView(t))
		}
	}
	return v
}

// ToAgentView converts an agent definition to the API shape.
func ToAgentView(d types.AgentDefinition) AgentView {
	return AgentView{
		Slug:            d.Slug,
		Name:            d.Name,
		Description:     d.Description,
		Version:         d.Version,
		Capabilities:    d.Capabilities,
		DefaultProvider: string(d.DefaultProvider),
		DependsOn:       d.DependsOn,
	}
}
