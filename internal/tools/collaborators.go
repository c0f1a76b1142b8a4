// ABOUTME: Interfaces for the external collaborators the report tools call.
// ABOUTME: Search, page fetch, and LLM completion are consumed here, not implemented.

package tools

import "context"

// SearchResult is one hit from a web search.
type SearchResult struct {
	Title   string
	URL     string
	Snippet string
}

// Searcher performs a web search for supporting material.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

// Fetcher retrieves the readable text of a web page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Completer produces an LLM completion for a prompt. This is the
// long-running call; it must never run under a gateway lock.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Deps bundles the collaborators the report tools use. Searcher and
// Fetcher are optional; tools degrade to completion-only research when
// they are nil. Completer is required.
type Deps struct {
	Searcher  Searcher
	Fetcher   Fetcher
	Completer Completer
}
