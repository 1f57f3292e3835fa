package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWorkflowStatus_IsTerminal(t *testing.T) {
	terminal := []WorkflowStatus{
		WorkflowStatusCompleted,
		WorkflowStatusFailed,
		WorkflowStatusPartiallyFailed,
		WorkflowStatusCancelled,
	}
	for _, s := range terminal {
		assert.True(t, s.IsTerminal(), string(s))
	}

	live := []WorkflowStatus{
		WorkflowStatusPending,
		WorkflowStatusRunning,
		WorkflowStatusPaused,
	}
	for _, s := range live {
		assert.False(t, s.IsTerminal(), string(s))
	}
}

func TestWorkflowStatus_IsResumable(t *testing.T) {
	resumable := []WorkflowStatus{
		WorkflowStatusFailed,
		WorkflowStatusPartiallyFailed,
		WorkflowStatusPaused,
	}
	for _, s := range resumable {
		assert.True(t, s.IsResumable(), string(s))
	}

	assert.False(t, WorkflowStatusRunning.IsResumable())
	assert.False(t, WorkflowStatusCompleted.IsResumable())
	assert.False(t, WorkflowStatusCancelled.IsResumable())
}

func TestTaskStatus_IsTerminal(t *testing.T) {
	assert.True(t, TaskStatusCompleted.IsTerminal())
	assert.True(t, TaskStatusFailed.IsTerminal())
	assert.False(t, TaskStatusPending.IsTerminal())
	assert.False(t, TaskStatusReady.IsTerminal())
	assert.False(t, TaskStatusRunning.IsTerminal())
}

func TestTask_Duration(t *testing.T) {
	var task Task
	assert.Zero(t, task.Duration(), "never started")

	start := time.Now().Add(-3 * time.Second)
	end := start.Add(2 * time.Second)
	task.StartedAt = &start
	task.CompletedAt = &end
	assert.Equal(t, 2*time.Second, task.Duration())

	task.CompletedAt = nil
	assert.GreaterOrEqual(t, task.Duration(), 3*time.Second, "running tasks report elapsed time")
}

func TestAgentDefinition_DependencyFingerprint(t *testing.T) {
	a := AgentDefinition{Slug: "x", DependsOn: []string{"a", "b"}}
	b := AgentDefinition{Slug: "x", DependsOn: []string{"a", "b"}}
	c := AgentDefinition{Slug: "x", DependsOn: []string{"a"}}

	assert.Equal(t, a.DependencyFingerprint(), b.DependencyFingerprint())
	assert.NotEqual(t, a.DependencyFingerprint(), c.DependencyFingerprint())
}
