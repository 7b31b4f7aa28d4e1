// Package api implements the HTTP REST API and WebSocket server for Lumen.
//
// This package provides:
//   - REST endpoints for the show document, runtime state, DMX diagnostics,
//     network interfaces and client administration
//   - WebSocket hub that keeps every connected client in sync with the
//     runtime state and authorises mutations per role
//   - Middleware stack (request ID, logging, recovery, CORS, caller identity)
//   - Prometheus exposition and the static UI
//
// # Identity
//
// Clients identify themselves with an opaque client id: the "clientId" field
// of the WebSocket auth message, or the X-Client-ID header on REST calls.
// The id is a pseudonym, not a secret. Requests from the loopback interface
// always act as editor.
//
// # WebSocket protocol
//
// Messages are JSON objects with a "type" field. Clients send auth, update,
// requestAccess and ping. The server sends state after every change,
// authResult, roleUpdate, dashboardRoleUpdate, activeClients, the denial
// notices and error. A slow session whose send buffer fills is dropped
// rather than allowed to hold up the others.
package api
