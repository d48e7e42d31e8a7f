// Package app wires the tank event service together and manages its lifecycle.
//
// New builds, in order: output directories, OpenTelemetry providers, the
// websocket hub, the run and health services, and a chi router carrying the
// request ID, tracing, logging, recovery, CORS and rate limiting middleware.
// The /ws and /metrics routes sit outside the middleware group.
//
// Run serves until SIGINT or SIGTERM, then shuts down the HTTP server, waits
// for a running report (cancelling it once the shutdown timeout expires),
// stops the hub and flushes telemetry.
package app
