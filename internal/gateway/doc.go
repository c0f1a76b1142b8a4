// Package gateway wires the bi-gateway components into one HTTP server.
//
// # Overview
//
// The Gateway owns the component lifecycle: the SQLite-backed account
// store, the OAuth authorization bridge, the tool registry with its
// collaborators, the MCP server, and the administrative API. All of it
// is mounted on a single chi router:
//
//   - /mcp - MCP Streamable HTTP endpoint (POST, GET, DELETE)
//   - /oauth/authorize, /oauth/token - authorization-code + PKCE bridge
//   - /.well-known/oauth-protected-resource - resource metadata
//   - /api/signup, /api/provision, /api/upgrade, /api/usage - admin API
//   - /health - liveness and session count
//
// # Lifecycle
//
// New builds everything from a validated config without listening.
// Run(ctx) serves until the context is canceled, then drains in-flight
// requests, closes all live MCP sessions, stops the OAuth bridge's
// expiry sweep, and closes the store.
package gateway
