// Package operations runs the daily batch as an ordered set of steps.
//
// A run executes three steps:
//
//   - extract: loads the wide table for the run date, from the historian or from a CSV export
//   - transform: runs the event pipeline over every rostered tank
//   - export: writes the Daily Results CSV, the GCAS density summary and the workbook
//
// Core Components:
//
// Manager: executes runs, either synchronously or in the background, keeps the state of
// active and recent runs, and remembers the latest completed report.
//
// Registry: holds the registered steps and orders them by dependency with Kahn's algorithm.
//
// StatusBroadcaster: owns the snapshot of every run and publishes it to the WebSocket hub
// whenever a step changes.
//
// Config: per-step timeouts, the retry policy for retryable step errors, and whether a failed
// step stops the run.
package operations
