// Package telemetry wraps OpenTelemetry SDK initialization for traces and
// metrics. When telemetry is disabled, no exporters are created and the
// global providers remain noop.
package telemetry
