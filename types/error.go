package types

import "fmt"

// ErrorCode represents a unified error code across the service.
type ErrorCode string

// Request and authorization error codes
const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrUnauthorized   ErrorCode = "UNAUTHORIZED"
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrRateLimited    ErrorCode = "RATE_LIMITED"
	ErrInternalError  ErrorCode = "INTERNAL_ERROR"
)

// Orchestrator error codes
const (
	ErrUnknownAgent      ErrorCode = "UNKNOWN_AGENT"
	ErrCyclicDependency  ErrorCode = "CYCLIC_DEPENDENCY"
	ErrDuplicateAgent    ErrorCode = "DUPLICATE_AGENT"
	ErrInvalidTransition ErrorCode = "INVALID_TRANSITION"
	ErrAgentExecution    ErrorCode = "AGENT_EXECUTION"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewNotFoundError creates a NOT_FOUND error. Ownership misses use this
// code as well so callers cannot distinguish foreign rows from absent ones.
func NewNotFoundError(message string) *Error {
	return &Error{Code: ErrNotFound, Message: message, HTTPStatus: 404}
}

// NewUnknownAgentError creates an UNKNOWN_AGENT error for a slug that is
// not present in the registry.
func NewUnknownAgentError(slug string) *Error {
	return &Error{Code: ErrUnknownAgent, Message: fmt.Sprintf("unknown agent: %s", slug)}
}

// NewCyclicDependencyError creates a CYCLIC_DEPENDENCY error.
func NewCyclicDependencyError(detail string) *Error {
	return &Error{Code: ErrCyclicDependency, Message: fmt.Sprintf("cyclic agent dependency: %s", detail)}
}

// NewInvalidTransitionError creates an INVALID_TRANSITION error carrying
// the current status so API clients can see why the operation was refused.
func NewInvalidTransitionError(op string, current WorkflowStatus) *Error {
	return &Error{
		Code:    ErrInvalidTransition,
		Message: fmt.Sprintf("cannot %s workflow in status %s", op, current),
	}
}

// NewAgentExecutionError wraps an error raised by an individual agent
// executor. It is recorded on the task and never propagated to the caller.
func NewAgentExecutionError(slug string, cause error) *Error {
	return &Error{
		Code:      ErrAgentExecution,
		Message:   fmt.Sprintf("agent %s failed", slug),
		Retryable: true,
		Cause:     cause,
	}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}
