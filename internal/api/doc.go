// Package api exposes the daemon's HTTP gateway: manual control routes and
// the live mode stream for remote displays.
//
// Separation of Concerns
//
// The api package defines public JSON types (decoupled from core), maps
// store snapshots and the mode table to JSON, and hosts an HTTP server with
// minimal middleware. The core package remains unaware of HTTP or JSON.
//
// Versioning
//
// All routes are versioned under /v1. Non-breaking additions extend types,
// while breaking changes require a new prefix (/v2).
//
// Server
//
// NewServer wires handlers onto a ServeMux and configures timeouts. Start()
// binds the listener synchronously and serves in a goroutine; Stop()
// performs graceful shutdown and closes the broadcaster so open streams end.
// Middleware sets JSON content type and logs method/path/duration.
//
// Streaming
//
// GET /v1/events (Server-Sent Events) and GET /v1/ws (WebSocket) each
// register one broadcaster subscriber. The first message is the current
// mode, then one message per broadcast, in order. Both handlers clear the
// server read/write deadlines for their connection and bound each frame
// write instead. A subscriber that falls behind is dropped by the
// broadcaster and its stream ends.
//
// Error Model
//
// APIError uses a string message and a timestamp in RFC3339. Handlers validate
// methods and respond with 405 where appropriate. An unknown mode key is 400.
//
// Current Endpoints
//
// - GET  /v1/healthz: basic liveness/readiness
// - GET  /v1/status: current mode, do-not-disturb flag, subscriber count
// - GET  /v1/modes: configured mode table in cycle order
// - POST /v1/mode/{key}: manual override, 204 or 400
// - POST /v1/dnd: toggle do-not-disturb (applies on next collector cycle)
// - POST /v1/cycle: advance to the next mode
// - GET  /v1/events: SSE mode stream
// - GET  /v1/ws: WebSocket mode stream
package api
