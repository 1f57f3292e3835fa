// Package metrics provides the service's Prometheus collectors: HTTP
// request metrics recorded by middleware, workflow engine observations
// (polls, task executions, status transitions), and database pool gauges.
// This package is internal and should not be imported by external
// projects.
package metrics
