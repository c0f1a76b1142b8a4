// ABOUTME: Administrative JSON API for account signup, provisioning, and usage.
// ABOUTME: Privileged operations verify X-Admin-Secret against a bcrypt hash.

package admin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/sjcripps/mcp-business-intelligence/internal/store"
)

// HeaderAdminSecret carries the shared admin secret on privileged calls.
const HeaderAdminSecret = "X-Admin-Secret"

// Handlers serves the administrative API.
type Handlers struct {
	store      store.Store
	secretHash []byte // bcrypt hash of the admin secret; empty disables privileged routes
	logger     *slog.Logger
}

// NewHandlers creates the admin API handlers. secretHash is the bcrypt
// hash of the admin secret; when empty, provision and upgrade are
// disabled and answer 403.
func NewHandlers(s store.Store, secretHash string, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		store:      s,
		secretHash: []byte(secretHash),
		logger:     logger.With("component", "admin"),
	}
}

// RegisterRoutes mounts the admin API on the router.
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Post("/api/signup", h.handleSignup)
	r.Post("/api/provision", h.handleProvision)
	r.Post("/api/upgrade", h.handleUpgrade)
	r.Get("/api/usage", h.handleUsage)
}

// accountResponse is the JSON shape returned for account operations.
type accountResponse struct {
	Key   string `json:"key"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Tier  string `json:"tier"`
}

type signupRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// handleSignup creates a free-tier account. Signing up an email that
// already has an account returns that account's existing key with 200,
// so a client that lost its key can recover it by signing up again.
func (h *Handlers) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" || req.Email == "" {
		h.sendError(w, http.StatusBadRequest, "name and email are required")
		return
	}

	account, err := h.store.CreateAccount(r.Context(), req.Name, store.TierFree, req.Email)
	if errors.Is(err, store.ErrDuplicateEmail) {
		account, err = h.store.GetAccountByEmail(r.Context(), req.Email)
	}
	if err != nil {
		h.logger.Warn("signup failed", "email", req.Email, "error", err)
		h.sendError(w, http.StatusInternalServerError, "signup failed")
		return
	}

	h.logger.Info("signup", "email", req.Email, "tier", account.Tier)
	h.sendAccount(w, http.StatusOK, account)
}

type provisionRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Tier  string `json:"tier"`
}

// handleProvision creates an account at any tier. Admin-gated.
func (h *Handlers) handleProvision(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		h.sendError(w, http.StatusForbidden, "invalid admin secret")
		return
	}

	var req provisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" || req.Email == "" {
		h.sendError(w, http.StatusBadRequest, "name and email are required")
		return
	}
	tier, err := store.ParseTier(req.Tier)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	account, err := h.store.CreateAccount(r.Context(), req.Name, tier, req.Email)
	if errors.Is(err, store.ErrDuplicateEmail) {
		account, err = h.store.GetAccountByEmail(r.Context(), req.Email)
	}
	if err != nil {
		h.logger.Warn("provision failed", "email", req.Email, "error", err)
		h.sendError(w, http.StatusInternalServerError, "provision failed")
		return
	}

	h.logger.Info("account provisioned", "email", req.Email, "tier", account.Tier)
	h.sendAccount(w, http.StatusOK, account)
}

type upgradeRequest struct {
	Email string `json:"email"`
	Tier  string `json:"tier"`
}

// handleUpgrade changes an account's tier. Admin-gated; billing
// integration is expected to sit in front of this endpoint.
func (h *Handlers) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		h.sendError(w, http.StatusForbidden, "invalid admin secret")
		return
	}

	var req upgradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	tier, err := store.ParseTier(req.Tier)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.UpgradeTier(r.Context(), req.Email, tier); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.sendError(w, http.StatusNotFound, "no account for that email")
			return
		}
		h.logger.Warn("upgrade failed", "email", req.Email, "error", err)
		h.sendError(w, http.StatusInternalServerError, "upgrade failed")
		return
	}

	account, err := h.store.GetAccountByEmail(r.Context(), req.Email)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, "upgrade failed")
		return
	}

	h.logger.Info("tier upgraded", "email", req.Email, "tier", tier)
	h.sendAccount(w, http.StatusOK, account)
}

// usageResponse is the JSON shape for the usage endpoint.
type usageResponse struct {
	Tier  string `json:"tier"`
	Limit int    `json:"limit"`
	Used  int    `json:"used"`
}

// handleUsage reports the current month's usage for a key. The key
// itself is the credential here; no admin secret required.
func (h *Handlers) handleUsage(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		h.sendError(w, http.StatusBadRequest, "key query parameter is required")
		return
	}

	snap, err := h.store.UsageSnapshot(r.Context(), key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.sendError(w, http.StatusNotFound, "unknown key")
			return
		}
		h.logger.Warn("usage lookup failed", "error", err)
		h.sendError(w, http.StatusInternalServerError, "usage lookup failed")
		return
	}

	h.sendJSON(w, http.StatusOK, usageResponse{
		Tier:  string(snap.Tier),
		Limit: snap.Limit,
		Used:  snap.Used,
	})
}

// authorized checks the admin secret header against the bcrypt hash.
func (h *Handlers) authorized(r *http.Request) bool {
	if len(h.secretHash) == 0 {
		return false
	}
	secret := r.Header.Get(HeaderAdminSecret)
	if secret == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(h.secretHash, []byte(secret)) == nil
}

func (h *Handlers) sendAccount(w http.ResponseWriter, status int, account *store.Account) {
	h.sendJSON(w, status, accountResponse{
		Key:   account.Key,
		Name:  account.Name,
		Email: account.Email,
		Tier:  string(account.Tier),
	})
}

func (h *Handlers) sendJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn("failed to encode response", "error", err)
	}
}

func (h *Handlers) sendError(w http.ResponseWriter, status int, message string) {
	h.sendJSON(w, status, map[string]string{"error": message})
}
