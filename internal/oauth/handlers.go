// ABOUTME: HTTP endpoints for the OAuth bridge: authorize, token, and resource metadata
// ABOUTME: Completes the PKCE dance against credentials validated by the Authorizer

package oauth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sjcripps/mcp-business-intelligence/internal/auth"
)

// Well-known endpoint paths.
const (
	AuthorizePath = "/oauth/authorize"
	TokenPath     = "/oauth/token"
	MetadataPath  = "/.well-known/oauth-protected-resource"
)

// Handlers serves the OAuth endpoints over HTTP.
type Handlers struct {
	bridge     *Bridge
	authorizer *auth.Authorizer
	logger     *slog.Logger
}

// NewHandlers creates the OAuth HTTP surface.
func NewHandlers(bridge *Bridge, authorizer *auth.Authorizer, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		bridge:     bridge,
		authorizer: authorizer,
		logger:     logger.With("component", "oauth"),
	}
}

// RegisterRoutes registers the OAuth endpoints on the given router.
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Get(AuthorizePath, h.handleAuthorize)
	r.Post(TokenPath, h.handleToken)
	r.Get(MetadataPath, h.handleMetadata)
}

// Challenge writes the WWW-Authenticate header directing OAuth-capable
// clients at the resource metadata. Attached to 401-class denials so a
// client can self-initiate the flow.
func Challenge(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer resource_metadata="`+MetadataPath+`"`)
}

// handleAuthorize runs the authorization step. The caller proves its
// identity with an API key (any accepted carrier); the resolved key is
// what the eventual access token will map back to.
func (h *Handlers) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	redirectURI := q.Get("redirect_uri")
	challenge := q.Get("code_challenge")
	method := q.Get("code_challenge_method")
	if method == "" {
		method = challengeMethodS256
	}

	stateToken, err := h.bridge.BeginAuthorization(redirectURI, challenge, method, q.Get("scope"), q.Get("state"))
	if err != nil {
		if errors.Is(err, ErrUnsupportedChallengeMethod) {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "unsupported code_challenge_method")
			return
		}
		h.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	// An anonymous caller gets the challenge so it can come back with
	// a key; the pending request just ages out.
	credential := auth.ExtractCredential(r)
	if credential == "" {
		Challenge(w)
		h.writeError(w, http.StatusUnauthorized, "access_denied", "valid API key required to authorize")
		return
	}

	decision := h.authorizer.Authorize(r.Context(), credential)
	if !decision.Valid {
		// A presented-but-rejected key is a completed authorization
		// attempt with a negative outcome: terminate the request and
		// tell the client on its own redirect.
		redirect, err := h.bridge.DenyAuthorization(stateToken)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "authorization could not be completed")
			return
		}
		h.logger.Info("authorization rejected", "reason", decision.Reason)
		http.Redirect(w, r, redirect, http.StatusFound)
		return
	}

	// The presented key is the authenticated identity; bind it and
	// issue the one-time code in the same exchange.
	key := credential
	if resolved, ok := h.bridge.ResolveToken(credential); ok {
		key = resolved
	}

	redirect, err := h.bridge.CompleteAuthorization(stateToken, key)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "authorization could not be completed")
		return
	}

	http.Redirect(w, r, redirect, http.StatusFound)
}

// tokenResponse is the success body of the token endpoint.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// handleToken exchanges a one-time code plus PKCE verifier for an
// access token. Every grant failure is reported as invalid_grant.
func (h *Handlers) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}

	if grantType := r.PostFormValue("grant_type"); grantType != "authorization_code" {
		h.writeError(w, http.StatusBadRequest, "unsupported_grant_type", "only authorization_code is supported")
		return
	}

	token, expiresIn, err := h.bridge.ExchangeCode(r.PostFormValue("code"), r.PostFormValue("code_verifier"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_grant", "")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(tokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   expiresIn,
	}); err != nil {
		h.logger.Warn("failed to encode token response", "error", err)
	}
}

// handleMetadata serves protected-resource metadata so clients can
// discover the authorization endpoints after a 401 challenge.
func (h *Handlers) handleMetadata(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"resource":               "/mcp",
		"authorization_endpoint": AuthorizePath,
		"token_endpoint":         TokenPath,
		"code_challenge_methods_supported": []string{
			challengeMethodS256,
		},
	})
}

// writeError writes an OAuth-style JSON error body.
func (h *Handlers) writeError(w http.ResponseWriter, status int, code, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	body := map[string]string{"error": code}
	if description != "" {
		body["error_description"] = description
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn("failed to encode error response", "error", err)
	}
}
