// Package observability provides a Prometheus metrics extension for
// stepflow. The MetricsExtension implements lifecycle hooks to record
// run and step counters, run durations and the number of runs in flight.
//
// For per-step tracing and OpenTelemetry metrics, see the middleware
// package: middleware.Tracing() and middleware.Metrics().
package observability
