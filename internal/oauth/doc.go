// Package oauth bridges the authorization-code + PKCE flow onto the
// gateway's API-key authorization.
//
// # State Machine
//
// Each authorization attempt moves through an explicit state machine:
//
//	stateStarted -> stateCodeIssued -> stateExchanged (terminal)
//	                               \-> stateExpired   (terminal)
//	                               \-> stateDenied    (terminal)
//
// BeginAuthorization creates a request in stateStarted and returns a
// signed state token. CompleteAuthorization binds the caller's API key
// and issues a one-time code (stateCodeIssued). ExchangeCode verifies
// the PKCE verifier and mints an opaque access token (stateExchanged);
// the code can never be exchanged again.
//
// # Failure Semantics
//
// Replayed codes, expired codes, and verifier mismatches all surface as
// the same ErrInvalidGrant, deliberately undifferentiated so the token
// endpoint cannot be used as an oracle for which check failed.
//
// # Artifacts
//
// Authorization requests, codes, and access tokens are in-memory and
// short-lived. Expiry is enforced lazily at resolution time; a
// background sweep removes expired artifacts to bound memory. Access
// tokens resolve to their underlying API key via ResolveToken, which
// the Authorizer consults so bearer tokens and raw keys authorize
// through the same store reads.
package oauth
