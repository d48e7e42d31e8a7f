// Package http implements the HTTP handlers of the tank event service.
//
// Handlers stay thin: they decode and validate requests, call the run and
// health services and render the result. Failures are rendered as RFC 7807
// problem documents through errors.ErrorHandler.
//
// # Endpoints
//
//	POST   /api/runs              start a run for a date, optionally from an input CSV
//	GET    /api/runs              list active and recent runs
//	GET    /api/runs/{id}         status of one run
//	DELETE /api/runs/{id}         cancel a running run
//	POST   /api/runs/{id}/cancel  same as DELETE
//	GET    /api/reports/latest    records of the last successful run
//	GET    /api/tanks             the tank roster
//	GET    /api/health            liveness summary
//	GET    /api/health/ready      readiness of run service, output directory and hub
//	GET    /api/health/live       process runtime information
//	GET    /api/version           build information
//
// Run progress is pushed over the /ws websocket as operation snapshots.
package http
