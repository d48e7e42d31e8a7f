// Package websocket pushes run snapshots to browser clients.
//
// The Hub satisfies operations.WebSocketHub: every status change of a run is
// marshaled once and fanned out to connected clients. Clients never send
// commands; inbound frames only keep the connection alive.
package websocket
