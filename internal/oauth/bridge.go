// ABOUTME: OAuth authorization-code + PKCE bridge resolving tokens to API keys
// ABOUTME: Implements the four-state authorization machine with one-time codes and expiry

package oauth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Bridge errors
var (
	// ErrUnsupportedChallengeMethod is returned when a client requests a
	// PKCE transform other than S256.
	ErrUnsupportedChallengeMethod = errors.New("unsupported code challenge method")

	// ErrInvalidState is returned for unknown, expired, or already-consumed
	// state tokens on the authorization step.
	ErrInvalidState = errors.New("invalid or expired state token")

	// ErrInvalidGrant covers every terminal-state violation on the token
	// exchange: replayed codes, expired codes, and verifier mismatches all
	// collapse to this one error so a caller cannot tell which check failed.
	ErrInvalidGrant = errors.New("invalid_grant")
)

// challengeMethodS256 is the only supported PKCE transform.
const challengeMethodS256 = "S256"

// Default lifetimes for the bridge's short-lived artifacts.
const (
	defaultRequestTTL = 10 * time.Minute
	defaultCodeTTL    = 5 * time.Minute
	defaultTokenTTL   = 30 * 24 * time.Hour
	sweepInterval     = time.Minute
)

// authState tracks one authorization attempt through its lifecycle:
//
//	stateStarted -> stateCodeIssued -> stateExchanged (terminal)
//	                               \-> stateExpired   (terminal)
//	                               \-> stateDenied    (terminal)
type authState int

const (
	stateStarted authState = iota
	stateCodeIssued
	stateExchanged
	stateExpired
	stateDenied
)

// authRequest is one pending authorization attempt.
type authRequest struct {
	id          string
	redirectURI string
	challenge   string
	scope       string
	clientState string // client-supplied state, echoed on the redirect
	key         string // resolved API key, set on completion
	state       authState
	createdAt   time.Time
}

// authCode binds a one-time code to its authorization request.
type authCode struct {
	requestID string
	key       string
	challenge string
	issuedAt  time.Time
}

// accessToken is an opaque bearer token bound 1:1 to an API key.
type accessToken struct {
	key       string
	expiresAt time.Time
}

// Config holds configuration for the OAuth bridge.
type Config struct {
	StateSecret []byte        // HMAC secret for signed state tokens (required)
	RequestTTL  time.Duration // lifetime of a pending authorization request
	CodeTTL     time.Duration // lifetime of an unexchanged authorization code
	TokenTTL    time.Duration // lifetime of an access token
	Logger      *slog.Logger
}

// Bridge implements the authorization-code + PKCE flow on top of the
// key store's identity model. All artifacts are in-memory and expire
// after their stated window whether or not they are ever consumed;
// expiry is checked lazily at resolution and a background sweep bounds
// memory.
type Bridge struct {
	mu       sync.RWMutex
	requests map[string]*authRequest
	codes    map[string]*authCode
	tokens   map[string]*accessToken

	signer     *stateSigner
	requestTTL time.Duration
	codeTTL    time.Duration
	tokenTTL   time.Duration
	logger     *slog.Logger

	done   chan struct{}
	closed bool
}

// NewBridge creates an OAuth bridge and starts its expiry sweep.
func NewBridge(cfg Config) (*Bridge, error) {
	if len(cfg.StateSecret) == 0 {
		return nil, errors.New("state secret is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	requestTTL := cfg.RequestTTL
	if requestTTL <= 0 {
		requestTTL = defaultRequestTTL
	}
	codeTTL := cfg.CodeTTL
	if codeTTL <= 0 {
		codeTTL = defaultCodeTTL
	}
	tokenTTL := cfg.TokenTTL
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}

	b := &Bridge{
		requests:   make(map[string]*authRequest),
		codes:      make(map[string]*authCode),
		tokens:     make(map[string]*accessToken),
		signer:     newStateSigner(cfg.StateSecret, requestTTL),
		requestTTL: requestTTL,
		codeTTL:    codeTTL,
		tokenTTL:   tokenTTL,
		logger:     logger.With("component", "oauth"),
		done:       make(chan struct{}),
	}
	go b.sweep()
	return b, nil
}

// BeginAuthorization validates the authorization request parameters and
// creates a pending record in stateStarted. Returns a signed state
// token that must be presented to CompleteAuthorization.
func (b *Bridge) BeginAuthorization(redirectURI, challenge, method, scope, clientState string) (string, error) {
	u, err := url.Parse(redirectURI)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("invalid redirect_uri %q", redirectURI)
	}
	if challenge == "" {
		return "", errors.New("code_challenge is required")
	}
	if method != challengeMethodS256 {
		return "", ErrUnsupportedChallengeMethod
	}

	req := &authRequest{
		id:          uuid.New().String(),
		redirectURI: redirectURI,
		challenge:   challenge,
		scope:       scope,
		clientState: clientState,
		state:       stateStarted,
		createdAt:   time.Now(),
	}

	stateToken, err := b.signer.Sign(req.id)
	if err != nil {
		return "", fmt.Errorf("signing state token: %w", err)
	}

	b.mu.Lock()
	b.requests[req.id] = req
	b.mu.Unlock()

	b.logger.Debug("authorization started", "request_id", req.id, "scope", scope)
	return stateToken, nil
}

// CompleteAuthorization binds the resolved identity to the pending
// request, issues a one-time code, and returns the redirect target
// carrying it. Transitions the request to stateCodeIssued.
func (b *Bridge) CompleteAuthorization(stateToken, key string) (string, error) {
	requestID, err := b.signer.Verify(stateToken)
	if err != nil {
		return "", ErrInvalidState
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	req, ok := b.requests[requestID]
	if !ok || req.state != stateStarted {
		return "", ErrInvalidState
	}
	if time.Since(req.createdAt) > b.requestTTL {
		req.state = stateExpired
		return "", ErrInvalidState
	}

	code, err := randomToken("bic_")
	if err != nil {
		return "", fmt.Errorf("generating code: %w", err)
	}

	req.key = key
	req.state = stateCodeIssued
	b.codes[code] = &authCode{
		requestID: requestID,
		key:       key,
		challenge: req.challenge,
		issuedAt:  time.Now(),
	}

	target, err := url.Parse(req.redirectURI)
	if err != nil {
		return "", fmt.Errorf("parsing redirect_uri: %w", err)
	}
	q := target.Query()
	q.Set("code", code)
	if req.clientState != "" {
		q.Set("state", req.clientState)
	}
	target.RawQuery = q.Encode()

	b.logger.Info("authorization code issued", "request_id", requestID)
	return target.String(), nil
}

// DenyAuthorization terminates a pending request without issuing a
// code, transitioning it to stateDenied. Returns the redirect target
// carrying the access_denied error so the client learns the outcome.
// The state token is consumed either way.
func (b *Bridge) DenyAuthorization(stateToken string) (string, error) {
	requestID, err := b.signer.Verify(stateToken)
	if err != nil {
		return "", ErrInvalidState
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	req, ok := b.requests[requestID]
	if !ok || req.state != stateStarted {
		return "", ErrInvalidState
	}
	req.state = stateDenied

	target, err := url.Parse(req.redirectURI)
	if err != nil {
		return "", fmt.Errorf("parsing redirect_uri: %w", err)
	}
	q := target.Query()
	q.Set("error", "access_denied")
	if req.clientState != "" {
		q.Set("state", req.clientState)
	}
	target.RawQuery = q.Encode()

	b.logger.Info("authorization denied", "request_id", requestID)
	return target.String(), nil
}

// ExchangeCode verifies the PKCE verifier against the stored challenge
// and mints an access token bound to the code's API key. The code
// becomes permanently unusable on success; every failure mode returns
// ErrInvalidGrant.
func (b *Bridge) ExchangeCode(code, verifier string) (token string, expiresIn int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ac, ok := b.codes[code]
	if !ok {
		return "", 0, ErrInvalidGrant
	}

	req, ok := b.requests[ac.requestID]
	if !ok || req.state != stateCodeIssued {
		return "", 0, ErrInvalidGrant
	}

	if time.Since(ac.issuedAt) > b.codeTTL {
		req.state = stateExpired
		delete(b.codes, code)
		return "", 0, ErrInvalidGrant
	}

	if !verifierMatches(ac.challenge, verifier) {
		return "", 0, ErrInvalidGrant
	}

	tok, err := randomToken("biat_")
	if err != nil {
		return "", 0, fmt.Errorf("generating token: %w", err)
	}

	req.state = stateExchanged
	delete(b.codes, code)
	b.tokens[tok] = &accessToken{
		key:       ac.key,
		expiresAt: time.Now().Add(b.tokenTTL),
	}

	b.logger.Info("access token minted", "request_id", ac.requestID)
	return tok, int(b.tokenTTL.Seconds()), nil
}

// ResolveToken maps an access token back to its underlying API key.
// Expired tokens resolve as not-found, indistinguishable from tokens
// that never existed.
func (b *Bridge) ResolveToken(token string) (string, bool) {
	b.mu.RLock()
	at, ok := b.tokens[token]
	b.mu.RUnlock()

	if !ok {
		return "", false
	}
	if time.Now().After(at.expiresAt) {
		b.mu.Lock()
		delete(b.tokens, token)
		b.mu.Unlock()
		return "", false
	}
	return at.key, true
}

// verifierMatches recomputes the S256 transform over the verifier and
// compares it to the stored challenge in constant time.
func verifierMatches(challenge, verifier string) bool {
	if verifier == "" {
		return false
	}
	sum := sha256.Sum256([]byte(verifier))
	computed := base64.RawURLEncoding.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(computed), []byte(challenge)) == 1
}

// randomToken generates an opaque token with the given prefix.
func randomToken(prefix string) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return prefix + base64.RawURLEncoding.EncodeToString(buf), nil
}

// sweep runs in a background goroutine, periodically removing expired
// requests, codes, and tokens. Lazy expiry at resolution time is the
// correctness mechanism; the sweep only bounds memory.
func (b *Bridge) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.removeExpired()
		case <-b.done:
			return
		}
	}
}

// removeExpired drops every artifact past its window.
func (b *Bridge) removeExpired() {
	now := time.Now()

	b.mu.Lock()
	defer b.mu.Unlock()

	for id, req := range b.requests {
		if now.Sub(req.createdAt) > b.requestTTL+b.codeTTL {
			delete(b.requests, id)
		}
	}
	for code, ac := range b.codes {
		if now.Sub(ac.issuedAt) > b.codeTTL {
			if req, ok := b.requests[ac.requestID]; ok && req.state == stateCodeIssued {
				req.state = stateExpired
			}
			delete(b.codes, code)
		}
	}
	for tok, at := range b.tokens {
		if now.After(at.expiresAt) {
			delete(b.tokens, tok)
		}
	}
}

// Close stops the background sweep. Safe to call multiple times.
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.done)
	}
}
