// Package handlers implements the HTTP handlers for workflow and
// agent endpoints, plus shared response and error plumbing.
package handlers
