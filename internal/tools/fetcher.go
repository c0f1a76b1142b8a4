// ABOUTME: HTTP Fetcher implementation pulling the readable text of a web page.
// ABOUTME: Fetching is best-effort; callers degrade gracefully when it fails.

package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// defaultFetchTimeout bounds one page fetch.
const defaultFetchTimeout = 15 * time.Second

// maxFetchResponse caps the fetched page size (1MB).
const maxFetchResponse = 1 << 20

// HTTPFetcher retrieves a page over HTTP and reduces it to visible text.
type HTTPFetcher struct {
	httpClient *http.Client
}

// NewHTTPFetcher creates a Fetcher with the given timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &HTTPFetcher{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch retrieves one page and returns its text content with markup
// stripped and whitespace collapsed.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("building fetch request: %w", err)
	}
	req.Header.Set("Accept", "text/html, text/plain")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchResponse))
	if err != nil {
		return "", fmt.Errorf("reading page: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("page returned %d", resp.StatusCode)
	}

	return stripMarkup(string(body)), nil
}

// stripMarkup reduces an HTML document to its visible text: script and
// style blocks are dropped whole, other tags become spaces, and runs of
// whitespace collapse to one space. Plain-text input passes through.
func stripMarkup(s string) string {
	lower := strings.ToLower(s)

	var sb strings.Builder
	for i := 0; i < len(s); {
		if s[i] != '<' {
			sb.WriteByte(s[i])
			i++
			continue
		}

		closing := ""
		if strings.HasPrefix(lower[i:], "<script") {
			closing = "</script>"
		} else if strings.HasPrefix(lower[i:], "<style") {
			closing = "</style>"
		}
		if closing != "" {
			end := strings.Index(lower[i:], closing)
			if end < 0 {
				break
			}
			i += end + len(closing)
			continue
		}

		end := strings.IndexByte(s[i:], '>')
		if end < 0 {
			break
		}
		i += end + 1
		sb.WriteByte(' ')
	}

	return strings.Join(strings.Fields(sb.String()), " ")
}
