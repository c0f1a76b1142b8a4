// ABOUTME: Tests for credential carrier extraction and precedence
// ABOUTME: Verifies carrier-transparency: one credential value regardless of carrier

package auth

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sjcripps/mcp-business-intelligence/internal/store"
)

func TestExtractCredential_Carriers(t *testing.T) {
	t.Run("primary header", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/mcp", nil)
		r.Header.Set("X-API-Key", "bi_abc")
		assert.Equal(t, "bi_abc", ExtractCredential(r))
	})

	t.Run("alternate header", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/mcp", nil)
		r.Header.Set("Api-Key", "bi_abc")
		assert.Equal(t, "bi_abc", ExtractCredential(r))
	})

	t.Run("query parameters", func(t *testing.T) {
		for _, param := range []string{"key", "api_key", "apikey"} {
			r := httptest.NewRequest("POST", "/mcp?"+param+"=bi_abc", nil)
			assert.Equal(t, "bi_abc", ExtractCredential(r), "param %s", param)
		}
	})

	t.Run("bearer token", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/mcp", nil)
		r.Header.Set("Authorization", "Bearer bi_abc")
		assert.Equal(t, "bi_abc", ExtractCredential(r))
	})

	t.Run("no carrier", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/mcp", nil)
		assert.Equal(t, "", ExtractCredential(r))
	})

	t.Run("malformed authorization header ignored", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/mcp", nil)
		r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		assert.Equal(t, "", ExtractCredential(r))
	})
}

func TestExtractCredential_Precedence(t *testing.T) {
	// Header beats query beats bearer; first match wins
	r := httptest.NewRequest("POST", "/mcp?key=from-query", nil)
	r.Header.Set("X-API-Key", "from-primary")
	r.Header.Set("Api-Key", "from-alternate")
	r.Header.Set("Authorization", "Bearer from-bearer")
	assert.Equal(t, "from-primary", ExtractCredential(r))

	r.Header.Del("X-API-Key")
	assert.Equal(t, "from-alternate", ExtractCredential(r))

	r.Header.Del("Api-Key")
	assert.Equal(t, "from-query", ExtractCredential(r))

	r = httptest.NewRequest("POST", "/mcp", nil)
	r.Header.Set("Authorization", "Bearer from-bearer")
	assert.Equal(t, "from-bearer", ExtractCredential(r))
}

func TestCarrierTransparency(t *testing.T) {
	// The same key presented via any carrier yields the same decision
	s := setupTestStore(t)
	ctx := context.Background()

	account, err := s.CreateAccount(ctx, "Alice", store.TierPro, "alice@example.com")
	require.NoError(t, err)

	a := NewAuthorizer(s, nil, nil)

	requests := map[string]string{}
	{
		r := httptest.NewRequest("POST", "/mcp", nil)
		r.Header.Set("X-API-Key", account.Key)
		requests["header"] = ExtractCredential(r)
	}
	{
		r := httptest.NewRequest("POST", "/mcp?api_key="+account.Key, nil)
		requests["query"] = ExtractCredential(r)
	}
	{
		r := httptest.NewRequest("POST", "/mcp", nil)
		r.Header.Set("Authorization", "Bearer "+account.Key)
		requests["bearer"] = ExtractCredential(r)
	}

	var first *Decision
	for carrier, cred := range requests {
		decision := a.Authorize(ctx, cred)
		assert.True(t, decision.Valid, "carrier %s", carrier)
		if first == nil {
			first = &decision
		} else {
			assert.Equal(t, *first, decision, "carrier %s", carrier)
		}
	}
}
