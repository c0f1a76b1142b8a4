// Package mcp implements the Model Context Protocol endpoint of the gateway.
//
// # Overview
//
// MCP (Model Context Protocol) is a standard for AI tool integration. This
// package provides an MCP-compatible HTTP server exposing the
// business-intelligence analysis tools to external AI clients (Claude
// Desktop, other LLM hosts, or custom applications).
//
// # Protocol
//
// The server implements the Streamable HTTP transport: JSON-RPC 2.0 over
// HTTP POST, with an optional SSE stream for server-initiated messages.
//
//   - POST /mcp - JSON-RPC requests (initialize, tools/list, tools/call, ping)
//   - GET /mcp - SSE stream bound to an existing session
//   - DELETE /mcp - session teardown (idempotent)
//
// Sessions are correlated through the Mcp-Session-Id header. The server
// assigns the identifier on initialize; the client echoes it on every
// subsequent request.
//
// # Request classification
//
// Every POST is classified before any other processing:
//
//   - discovery: no session, no credential, and a discovery-safe method
//     (initialize, tools/list, ping). Admitted without authorization so
//     clients can inspect the tool catalog before signing up.
//   - bootstrap: initialize carrying a credential. Authorized, metered,
//     and answered with a fresh session.
//   - continuation: any request carrying a session identifier.
//
// Anything else is rejected as an invalid request.
//
// # Authorization and metering
//
// Credentials are API keys or OAuth bearer tokens (resolved through the
// oauth bridge). tools/call always requires a credential, even on a
// session created for discovery, and every accepted call records one
// usage event against the key's monthly quota. Authorization is re-run
// per call, so tier upgrades and quota exhaustion take effect
// mid-session.
//
// # Error codes
//
// Beyond the standard JSON-RPC codes, the server uses:
//
//   - -32001 missing credential (nothing was presented)
//   - -32002 authorization failed (unknown key, malformed key, or quota)
//   - -32003 unknown session (client must re-initialize)
//
// Denials for missing or invalid credentials also carry a
// WWW-Authenticate challenge pointing at the OAuth resource metadata.
package mcp
