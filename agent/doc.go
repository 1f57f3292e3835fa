// Package agent provides the agent registry: a constructed, injectable
// catalog of named, versioned task executors with declared capabilities
// and dependencies on other agents' outputs.
//
// The registry is explicit state: it is built at process start and passed
// to the orchestrator by reference; nothing registers itself at module load.
// Dependency closures are resolved with a topological sort so cycles are
// rejected before any workflow task is created.
package agent
