// Package observe provides telemetry for outbound API calls: structured
// logging, OpenTelemetry tracing, and metrics for attempts, circuit-breaker
// transitions, and token refreshes.
package observe
