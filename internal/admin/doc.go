// Package admin provides the administrative JSON API of the gateway.
//
// Four endpoints are exposed:
//
//   - POST /api/signup - open self-service signup at the free tier.
//     Signing up an already-registered email returns the existing
//     account's key instead of an error, so losing a key is recoverable
//     without operator involvement.
//   - POST /api/provision - create an account at any tier. Privileged.
//   - POST /api/upgrade - change an account's tier. Privileged.
//   - GET /api/usage?key=... - current month's usage for a key.
//
// Privileged endpoints require the X-Admin-Secret header. The secret is
// never stored; the configuration carries only its bcrypt hash, and the
// `bi-gateway secret` subcommand produces one. When no hash is
// configured the privileged endpoints are disabled entirely.
package admin
