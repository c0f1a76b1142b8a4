// ABOUTME: Tests for the HTTP search collaborator.
// ABOUTME: Uses httptest servers standing in for a SearxNG endpoint.

package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPSearcher_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "acme corp financials", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[
			{"title":"Acme Corp 10-K","url":"https://example.com/10k","content":"Annual report"},
			{"title":"Acme revenue","url":"https://example.com/rev","content":"Revenue grew"},
			{"title":"Third","url":"https://example.com/3","content":"More"}
		]}`))
	}))
	defer srv.Close()

	searcher := NewHTTPSearcher(srv.URL, time.Second)

	results, err := searcher.Search(context.Background(), "acme corp financials", 2)
	require.NoError(t, err)
	require.Len(t, results, 2, "limit should cap the results")
	assert.Equal(t, "Acme Corp 10-K", results[0].Title)
	assert.Equal(t, "https://example.com/10k", results[0].URL)
	assert.Equal(t, "Annual report", results[0].Snippet)
}

func TestHTTPSearcher_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	searcher := NewHTTPSearcher(srv.URL, time.Second)

	_, err := searcher.Search(context.Background(), "anything", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestHTTPSearcher_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	searcher := NewHTTPSearcher(srv.URL, time.Second)

	_, err := searcher.Search(context.Background(), "anything", 5)
	require.Error(t, err)
}
