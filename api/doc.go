// Package api defines the HTTP surface of the workflow service:
// request and response payloads plus the handlers that bind them to
// the workflow engine.
package api
