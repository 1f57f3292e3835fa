// Package types defines the shared data structures of ReportFlow:
// the unified error type with its error codes, agent definitions,
// and the workflow/task state machine used across the orchestrator,
// persistence, and API layers.
package types
