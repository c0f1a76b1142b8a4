// ABOUTME: Credential extraction from HTTP requests with a fixed carrier precedence
// ABOUTME: Supports API-key headers, query parameters, and the Authorization bearer header

package auth

import (
	"net/http"
	"strings"
)

// Credential carriers, in precedence order. The first carrier with a
// non-empty value wins; later carriers are not consulted.
//
//  1. X-API-Key header
//  2. Api-Key header
//  3. key / api_key / apikey query parameters (first non-empty)
//  4. Authorization: Bearer <token>
const (
	HeaderAPIKey    = "X-API-Key"
	HeaderAPIKeyAlt = "Api-Key"
)

// queryKeyParams are the accepted query-parameter spellings, checked in order.
var queryKeyParams = []string{"key", "api_key", "apikey"}

// ExtractCredential pulls exactly one credential value from the
// request according to the documented precedence. Returns the empty
// string when no carrier holds a value.
func ExtractCredential(r *http.Request) string {
	if v := r.Header.Get(HeaderAPIKey); v != "" {
		return v
	}
	if v := r.Header.Get(HeaderAPIKeyAlt); v != "" {
		return v
	}

	query := r.URL.Query()
	for _, param := range queryKeyParams {
		if v := query.Get(param); v != "" {
			return v
		}
	}

	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		if token := strings.TrimPrefix(authHeader, "Bearer "); token != authHeader && token != "" {
			return token
		}
	}

	return ""
}
