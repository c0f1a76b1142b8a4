// ABOUTME: Credential authorization against the tiered key store
// ABOUTME: Produces a Decision with a typed denial reason and re-reads quota on every call

package auth

import (
	"context"
	"errors"
	"log/slog"
	"unicode"

	"github.com/sjcripps/mcp-business-intelligence/internal/store"
)

// DenialReason identifies why a credential was rejected.
type DenialReason string

// Denial reasons
const (
	ReasonMissingCredential   DenialReason = "missing_credential"
	ReasonUnknownCredential   DenialReason = "unknown_credential"
	ReasonQuotaExceeded       DenialReason = "quota_exceeded"
	ReasonMalformedCredential DenialReason = "malformed_credential"
	ReasonInternal            DenialReason = "internal"
)

// maxCredentialLength bounds the accepted credential size. Anything
// longer is malformed, not merely unknown.
const maxCredentialLength = 512

// Decision is the transient result of authorizing one credential.
// It is never persisted or cached across requests.
type Decision struct {
	Valid  bool
	Tier   store.Tier
	Name   string
	Reason DenialReason
}

// TokenResolver resolves an OAuth bearer token to its underlying API
// key. Implemented by the OAuth bridge.
type TokenResolver interface {
	ResolveToken(token string) (key string, ok bool)
}

// Authorizer validates presented credentials against the key store.
// Tier and usage are re-read from the store on every call so a
// long-lived session cannot outrun a quota boundary.
type Authorizer struct {
	store    store.Store
	resolver TokenResolver
	logger   *slog.Logger
}

// NewAuthorizer creates an Authorizer backed by the given store.
// The resolver may be nil when no OAuth bridge is configured.
func NewAuthorizer(s store.Store, resolver TokenResolver, logger *slog.Logger) *Authorizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authorizer{
		store:    s,
		resolver: resolver,
		logger:   logger.With("component", "auth"),
	}
}

// Authorize validates a single credential and returns a Decision.
// An empty credential denies with ReasonMissingCredential. Bearer
// tokens minted by the OAuth bridge are resolved to their underlying
// key first, so tokens and raw keys authorize identically.
func (a *Authorizer) Authorize(ctx context.Context, credential string) Decision {
	if credential == "" {
		return Decision{Valid: false, Reason: ReasonMissingCredential}
	}

	if !wellFormed(credential) {
		return Decision{Valid: false, Reason: ReasonMalformedCredential}
	}

	key := credential
	if a.resolver != nil {
		if resolved, ok := a.resolver.ResolveToken(credential); ok {
			key = resolved
		}
	}

	account, err := a.store.GetAccountByKey(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Decision{Valid: false, Reason: ReasonUnknownCredential}
		}
		a.logger.Error("account lookup failed", "error", err)
		return Decision{Valid: false, Reason: ReasonInternal}
	}

	snap, err := a.store.UsageSnapshot(ctx, key)
	if err != nil {
		a.logger.Error("usage lookup failed", "error", err)
		return Decision{Valid: false, Reason: ReasonInternal}
	}

	if snap.Exhausted() {
		return Decision{
			Valid:  false,
			Tier:   account.Tier,
			Name:   account.Name,
			Reason: ReasonQuotaExceeded,
		}
	}

	return Decision{Valid: true, Tier: account.Tier, Name: account.Name}
}

// ResolveKey maps a credential to the API key charged for usage. A
// bearer token resolves through the OAuth bridge; anything else is
// already a key and passes through unchanged.
func (a *Authorizer) ResolveKey(credential string) string {
	if a.resolver != nil {
		if resolved, ok := a.resolver.ResolveToken(credential); ok {
			return resolved
		}
	}
	return credential
}

// wellFormed rejects credentials containing whitespace or control
// characters, and credentials beyond the accepted length.
func wellFormed(credential string) bool {
	if len(credential) > maxCredentialLength {
		return false
	}
	for _, r := range credential {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return false
		}
	}
	return true
}
