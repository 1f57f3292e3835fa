// Package testutil provides shared helpers and fixtures for tests:
// bounded test contexts, canned agent registries, and deterministic
// executors with controllable failure behavior.
package testutil
