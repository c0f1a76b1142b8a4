// ABOUTME: Tests for the Authorizer decision surface
// ABOUTME: Covers the denial taxonomy, token resolution, and quota enforcement

package auth

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sjcripps/mcp-business-intelligence/internal/store"
)

// setupTestStore creates a temporary SQLite store for authorizer tests.
func setupTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// mapResolver is a TokenResolver backed by a plain map.
type mapResolver map[string]string

func (m mapResolver) ResolveToken(token string) (string, bool) {
	key, ok := m[token]
	return key, ok
}

func TestAuthorize_MissingCredential(t *testing.T) {
	a := NewAuthorizer(setupTestStore(t), nil, nil)

	decision := a.Authorize(context.Background(), "")
	assert.False(t, decision.Valid)
	assert.Equal(t, ReasonMissingCredential, decision.Reason)
}

func TestAuthorize_UnknownCredential(t *testing.T) {
	a := NewAuthorizer(setupTestStore(t), nil, nil)

	decision := a.Authorize(context.Background(), "bi_nope")
	assert.False(t, decision.Valid)
	assert.Equal(t, ReasonUnknownCredential, decision.Reason)
}

func TestAuthorize_MalformedCredential(t *testing.T) {
	a := NewAuthorizer(setupTestStore(t), nil, nil)

	for _, cred := range []string{
		"has space",
		"tab\there",
		strings.Repeat("x", maxCredentialLength+1),
	} {
		decision := a.Authorize(context.Background(), cred)
		assert.False(t, decision.Valid)
		assert.Equal(t, ReasonMalformedCredential, decision.Reason, "credential %q", cred)
	}
}

func TestAuthorize_Valid(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	account, err := s.CreateAccount(ctx, "Alice", store.TierPro, "alice@example.com")
	require.NoError(t, err)

	a := NewAuthorizer(s, nil, nil)
	decision := a.Authorize(ctx, account.Key)
	assert.True(t, decision.Valid)
	assert.Equal(t, store.TierPro, decision.Tier)
	assert.Equal(t, "Alice", decision.Name)
}

func TestAuthorize_QuotaExceeded(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	account, err := s.CreateAccount(ctx, "Alice", store.TierFree, "alice@example.com")
	require.NoError(t, err)

	for i := 0; i < store.TierFree.MonthlyLimit(); i++ {
		require.NoError(t, s.RecordUsage(ctx, account.Key))
	}

	a := NewAuthorizer(s, nil, nil)
	decision := a.Authorize(ctx, account.Key)
	assert.False(t, decision.Valid)
	assert.Equal(t, ReasonQuotaExceeded, decision.Reason)
	assert.Equal(t, store.TierFree, decision.Tier)
}

func TestAuthorize_QuotaLiftedAfterUpgrade(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	account, err := s.CreateAccount(ctx, "Alice", store.TierFree, "alice@example.com")
	require.NoError(t, err)

	for i := 0; i < store.TierFree.MonthlyLimit(); i++ {
		require.NoError(t, s.RecordUsage(ctx, account.Key))
	}

	a := NewAuthorizer(s, nil, nil)
	require.Equal(t, ReasonQuotaExceeded, a.Authorize(ctx, account.Key).Reason)

	// Upgrading lifts the quota without any cache invalidation: the
	// authorizer re-reads current state on every decision.
	require.NoError(t, s.UpgradeTier(ctx, "alice@example.com", store.TierPro))

	decision := a.Authorize(ctx, account.Key)
	assert.True(t, decision.Valid)
	assert.Equal(t, store.TierPro, decision.Tier)
}

func TestAuthorize_TokenResolution(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	account, err := s.CreateAccount(ctx, "Alice", store.TierStarter, "alice@example.com")
	require.NoError(t, err)

	resolver := mapResolver{"opaque-token": account.Key}
	a := NewAuthorizer(s, resolver, nil)

	// Token and raw key produce the same decision
	byToken := a.Authorize(ctx, "opaque-token")
	byKey := a.Authorize(ctx, account.Key)
	assert.Equal(t, byKey, byToken)

	// A token the resolver does not know falls through as a raw key
	decision := a.Authorize(ctx, "some-other-token")
	assert.False(t, decision.Valid)
	assert.Equal(t, ReasonUnknownCredential, decision.Reason)
}

// faultyStore wraps a real store and fails selected lookups with an
// error that is not ErrNotFound.
type faultyStore struct {
	store.Store
	failAccounts bool
}

var errStoreDown = errors.New("database is locked")

func (f *faultyStore) GetAccountByKey(ctx context.Context, key string) (*store.Account, error) {
	if f.failAccounts {
		return nil, errStoreDown
	}
	return f.Store.GetAccountByKey(ctx, key)
}

func (f *faultyStore) UsageSnapshot(ctx context.Context, key string) (*store.UsageSnapshot, error) {
	return nil, errStoreDown
}

func TestAuthorize_StoreFailure(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	account, err := s.CreateAccount(ctx, "Alice", store.TierPro, "alice@example.com")
	require.NoError(t, err)

	// A broken store is an internal fault, not an unknown credential:
	// the caller must not treat a transient outage as a bad key.
	t.Run("account lookup fails", func(t *testing.T) {
		a := NewAuthorizer(&faultyStore{Store: s, failAccounts: true}, nil, nil)
		decision := a.Authorize(ctx, account.Key)
		assert.False(t, decision.Valid)
		assert.Equal(t, ReasonInternal, decision.Reason)
	})

	t.Run("usage lookup fails", func(t *testing.T) {
		a := NewAuthorizer(&faultyStore{Store: s}, nil, nil)
		decision := a.Authorize(ctx, account.Key)
		assert.False(t, decision.Valid)
		assert.Equal(t, ReasonInternal, decision.Reason)
	})
}
