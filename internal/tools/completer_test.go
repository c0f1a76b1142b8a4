// ABOUTME: Tests for the OpenAI-compatible HTTP completer
// ABOUTME: Uses a local httptest server standing in for the completion endpoint

package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPCompleter_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 1)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "generated report"}},
			},
		})
	}))
	defer srv.Close()

	c := NewHTTPCompleter(srv.URL, "test-model", "sk-test", 5*time.Second)
	out, err := c.Complete(context.Background(), "write a report")
	require.NoError(t, err)
	assert.Equal(t, "generated report", out)
}

func TestHTTPCompleter_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": "rate limited"},
		})
	}))
	defer srv.Close()

	c := NewHTTPCompleter(srv.URL, "test-model", "", 5*time.Second)
	_, err := c.Complete(context.Background(), "write a report")
	assert.ErrorContains(t, err, "rate limited")
}

func TestHTTPCompleter_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	c := NewHTTPCompleter(srv.URL, "test-model", "", 5*time.Second)
	_, err := c.Complete(context.Background(), "write a report")
	assert.ErrorContains(t, err, "no choices")
}

func TestHTTPCompleter_Unconfigured(t *testing.T) {
	c := NewHTTPCompleter("", "model", "", 0)
	_, err := c.Complete(context.Background(), "prompt")
	assert.ErrorContains(t, err, "not configured")
}
