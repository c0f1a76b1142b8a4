// Package auth provides credential authorization for the gateway.
//
// # Credentials
//
// A credential is either a raw API key or an OAuth access token minted
// by the bridge. Tokens are resolved to their underlying key before
// authorization, so both paths share one decision surface.
//
// Credentials are accepted from several carriers with a fixed
// precedence (see ExtractCredential): dedicated API-key header,
// alternate API-key header, query-string parameters, then the standard
// Authorization bearer header. Exactly one resolved value is used per
// request.
//
// # Decisions
//
// Authorize returns a Decision rather than an error: either valid with
// the resolved tier and display name, or a typed denial
// (missing, unknown, malformed credential, or quota exceeded). Quota
// is enforced here for both session bootstrap and every tool
// invocation; nothing in the gateway caches tier or usage between
// requests.
package auth
