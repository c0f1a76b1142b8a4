// ABOUTME: Tests for the report tools
// ABOUTME: Covers input validation, prompt assembly, and search enrichment

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingCompleter captures the prompt and returns a fixed report.
type recordingCompleter struct {
	prompt string
	err    error
}

func (c *recordingCompleter) Complete(_ context.Context, prompt string) (string, error) {
	c.prompt = prompt
	if c.err != nil {
		return "", c.err
	}
	return "the report", nil
}

// staticSearcher returns fixed results.
type staticSearcher struct {
	results []SearchResult
	err     error
}

func (s *staticSearcher) Search(_ context.Context, _ string, _ int) ([]SearchResult, error) {
	return s.results, s.err
}

// staticFetcher records the requested URL and returns a fixed page.
type staticFetcher struct {
	url  string
	page string
	err  error
}

func (f *staticFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.url = url
	return f.page, f.err
}

func setupReports(t *testing.T, deps Deps) (*Registry, *recordingCompleter) {
	t.Helper()
	completer := &recordingCompleter{}
	if deps.Completer == nil {
		deps.Completer = completer
	}
	r := NewRegistry(nil)
	require.NoError(t, RegisterReportTools(r, deps))
	return r, completer
}

func TestRegisterReportTools_RequiresCompleter(t *testing.T) {
	err := RegisterReportTools(NewRegistry(nil), Deps{})
	assert.Error(t, err)
}

func TestRegisterReportTools_RegistersAll(t *testing.T) {
	r, _ := setupReports(t, Deps{})

	names := make([]string, 0)
	for _, tool := range r.List() {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{"company_profile", "market_research", "competitor_analysis", "swot_analysis"}, names)
}

func TestCompanyProfile(t *testing.T) {
	r, completer := setupReports(t, Deps{})

	out, err := r.Dispatch(context.Background(), "company_profile",
		json.RawMessage(`{"company":"Acme Corp","region":"EMEA","focus":"financials"}`))
	require.NoError(t, err)
	assert.Equal(t, "the report", out)
	assert.Contains(t, completer.prompt, "Acme Corp")
	assert.Contains(t, completer.prompt, "EMEA")
	assert.Contains(t, completer.prompt, "financials")
}

func TestCompanyProfile_Validation(t *testing.T) {
	r, _ := setupReports(t, Deps{})

	_, err := r.Dispatch(context.Background(), "company_profile", json.RawMessage(`{}`))
	assert.ErrorContains(t, err, "company is required")

	_, err = r.Dispatch(context.Background(), "company_profile",
		json.RawMessage(`{"company":"Acme","focus":"astrology"}`))
	assert.ErrorContains(t, err, "invalid focus")

	_, err = r.Dispatch(context.Background(), "company_profile", json.RawMessage(`not json`))
	assert.ErrorContains(t, err, "invalid input")
}

func TestMarketResearch_DefaultHorizon(t *testing.T) {
	r, completer := setupReports(t, Deps{})

	_, err := r.Dispatch(context.Background(), "market_research",
		json.RawMessage(`{"industry":"robotics"}`))
	require.NoError(t, err)
	assert.Contains(t, completer.prompt, "5 years")

	_, err = r.Dispatch(context.Background(), "market_research",
		json.RawMessage(`{"industry":"robotics","horizon_years":11}`))
	assert.ErrorContains(t, err, "horizon_years")
}

func TestCompetitorAnalysis(t *testing.T) {
	r, completer := setupReports(t, Deps{})

	_, err := r.Dispatch(context.Background(), "competitor_analysis",
		json.RawMessage(`{"company":"Acme","competitors":["Globex","Initech"],"criteria":["pricing"]}`))
	require.NoError(t, err)
	assert.Contains(t, completer.prompt, "Globex, Initech")
	assert.Contains(t, completer.prompt, "pricing")

	// Without named competitors the prompt asks for discovery
	_, err = r.Dispatch(context.Background(), "competitor_analysis",
		json.RawMessage(`{"company":"Acme"}`))
	require.NoError(t, err)
	assert.Contains(t, completer.prompt, "Identify their main competitors")

	_, err = r.Dispatch(context.Background(), "competitor_analysis",
		json.RawMessage(`{"company":"Acme","competitors":[" "]}`))
	assert.ErrorContains(t, err, "empty names")
}

func TestSWOTAnalysis(t *testing.T) {
	r, completer := setupReports(t, Deps{})

	_, err := r.Dispatch(context.Background(), "swot_analysis",
		json.RawMessage(`{"company":"Acme","context":"entering the APAC market"}`))
	require.NoError(t, err)
	assert.Contains(t, completer.prompt, "SWOT")
	assert.Contains(t, completer.prompt, "APAC")
}

func TestSearchEnrichment(t *testing.T) {
	searcher := &staticSearcher{results: []SearchResult{
		{Title: "Acme 10-K", URL: "https://example.com/10k", Snippet: "annual report"},
	}}
	r, completer := setupReports(t, Deps{Searcher: searcher})

	_, err := r.Dispatch(context.Background(), "company_profile",
		json.RawMessage(`{"company":"Acme"}`))
	require.NoError(t, err)
	assert.Contains(t, completer.prompt, "Acme 10-K")
	assert.Contains(t, completer.prompt, "Supporting material")
}

func TestSearchFailureIsNonFatal(t *testing.T) {
	searcher := &staticSearcher{err: errors.New("search backend down")}
	r, completer := setupReports(t, Deps{Searcher: searcher})

	out, err := r.Dispatch(context.Background(), "company_profile",
		json.RawMessage(`{"company":"Acme"}`))
	require.NoError(t, err)
	assert.Equal(t, "the report", out)
	assert.NotContains(t, completer.prompt, "Supporting material")
}

func TestFetchEnrichment(t *testing.T) {
	searcher := &staticSearcher{results: []SearchResult{
		{Title: "Acme 10-K", URL: "https://example.com/10k", Snippet: "annual report"},
		{Title: "Acme news", URL: "https://example.com/news", Snippet: "press"},
	}}
	fetcher := &staticFetcher{page: "Acme reported record revenue this year."}
	r, completer := setupReports(t, Deps{Searcher: searcher, Fetcher: fetcher})

	_, err := r.Dispatch(context.Background(), "company_profile",
		json.RawMessage(`{"company":"Acme"}`))
	require.NoError(t, err)

	// Only the top hit is fetched
	assert.Equal(t, "https://example.com/10k", fetcher.url)
	assert.Contains(t, completer.prompt, "Excerpt from https://example.com/10k")
	assert.Contains(t, completer.prompt, "record revenue")
}

func TestFetchFailureIsNonFatal(t *testing.T) {
	searcher := &staticSearcher{results: []SearchResult{
		{Title: "Acme 10-K", URL: "https://example.com/10k", Snippet: "annual report"},
	}}
	fetcher := &staticFetcher{err: errors.New("page unreachable")}
	r, completer := setupReports(t, Deps{Searcher: searcher, Fetcher: fetcher})

	out, err := r.Dispatch(context.Background(), "company_profile",
		json.RawMessage(`{"company":"Acme"}`))
	require.NoError(t, err)
	assert.Equal(t, "the report", out)

	// Search hits still made it in; the excerpt did not
	assert.Contains(t, completer.prompt, "Supporting material")
	assert.NotContains(t, completer.prompt, "Excerpt from")
}

func TestFetchExcerptTruncated(t *testing.T) {
	searcher := &staticSearcher{results: []SearchResult{
		{Title: "Acme 10-K", URL: "https://example.com/10k", Snippet: "annual report"},
	}}
	fetcher := &staticFetcher{page: strings.Repeat("x", fetchExcerptLimit+500)}
	r, completer := setupReports(t, Deps{Searcher: searcher, Fetcher: fetcher})

	_, err := r.Dispatch(context.Background(), "company_profile",
		json.RawMessage(`{"company":"Acme"}`))
	require.NoError(t, err)

	excerpt := completer.prompt[strings.Index(completer.prompt, "Excerpt from"):]
	assert.LessOrEqual(t, strings.Count(excerpt, "x"), fetchExcerptLimit)
}

func TestCompleterFailurePropagates(t *testing.T) {
	completer := &recordingCompleter{err: errors.New("model overloaded")}
	r, _ := setupReports(t, Deps{Completer: completer})

	_, err := r.Dispatch(context.Background(), "company_profile",
		json.RawMessage(`{"company":"Acme"}`))
	assert.ErrorContains(t, err, "completion")
}
