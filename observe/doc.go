// Package observe provides structured logging, metrics, and tracing for
// the site core: cache lookups, artifact generation, progress writes,
// and maintenance sweeps.
//
// Telemetry is built on OpenTelemetry with pluggable exporters
// (stdout, otlp, prometheus). Logging is JSON to a configurable writer.
package observe
