// Package services sits between the HTTP handlers and the run machinery.
//
// RunService loads the tank roster and tag mapping once, wires the extract,
// transform and export steps into an operations.Manager and exposes run
// lifecycle calls. HealthService backs the health endpoints.
package services
