// Package layer provides operational layers for view chains: request IDs,
// access logging, rate limiting, Prometheus metrics and OpenTelemetry tracing.
package layer
