package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_MessageIncludesCodeAndCause(t *testing.T) {
	plain := NewError(ErrInvalidRequest, "root_agent is required")
	assert.Equal(t, "[INVALID_REQUEST] root_agent is required", plain.Error())

	cause := errors.New("dial tcp: connection refused")
	wrapped := NewError(ErrInternalError, "store unavailable").WithCause(cause)
	assert.Contains(t, wrapped.Error(), "connection refused")
	assert.ErrorIs(t, wrapped, cause)
}

func TestError_ErrorsAsThroughWrapping(t *testing.T) {
	inner := NewNotFoundError("workflow not found")
	outer := fmt.Errorf("handling request: %w", inner)

	var apiErr *Error
	assert.True(t, errors.As(outer, &apiErr))
	assert.Equal(t, ErrNotFound, apiErr.Code)
	assert.Equal(t, 404, apiErr.HTTPStatus)
}

func TestErrorConstructors(t *testing.T) {
	unknown := NewUnknownAgentError("mystery-agent")
	assert.Equal(t, ErrUnknownAgent, unknown.Code)
	assert.Contains(t, unknown.Message, "mystery-agent")

	cyclic := NewCyclicDependencyError("a -> b -> a")
	assert.Equal(t, ErrCyclicDependency, cyclic.Code)

	transition := NewInvalidTransitionError("pause", WorkflowStatusCompleted)
	assert.Equal(t, ErrInvalidTransition, transition.Code)
	assert.Contains(t, transition.Message, "COMPLETED")

	execErr := NewAgentExecutionError("cost-estimate", errors.New("timeout"))
	assert.Equal(t, ErrAgentExecution, execErr.Code)
	assert.True(t, execErr.Retryable)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewAgentExecutionError("x", errors.New("boom"))))
	assert.False(t, IsRetryable(NewError(ErrInvalidRequest, "nope")))
	assert.True(t, IsRetryable(NewError(ErrInternalError, "later").WithRetryable(true)))
	assert.False(t, IsRetryable(errors.New("plain")))
	assert.False(t, IsRetryable(nil))
}

func TestGetErrorCode(t *testing.T) {
	assert.Equal(t, ErrNotFound, GetErrorCode(NewNotFoundError("gone")))
	assert.Equal(t, ErrorCode(""), GetErrorCode(errors.New("plain")))
}
