package ingestion

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	defaultSourceURL = "https://celestrak.org/NORAD/elements/gp.php?GROUP=active&FORMAT=tle"
	maxResponseBytes = 50 << 20 // 50 MB, well above the full active catalog in TLE text form.
)

// Fetcher retrieves raw TLE text from a primary upstream source, plus any
// number of extra supplementary sources (e.g. a specific object of interest
// not covered by the primary group query). Extra source failures are
// logged and skipped; only the primary source failing fails the fetch.
type Fetcher struct {
	sourceURL  string
	extraURLs  []string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewFetcher creates a Fetcher for sourceURL (falling back to the Celestrak
// active-catalog group query when empty), with zero or more extra URLs
// whose bodies are concatenated onto the primary response.
func NewFetcher(sourceURL string, logger *slog.Logger, extraURLs ...string) *Fetcher {
	if sourceURL == "" {
		sourceURL = defaultSourceURL
	}
	return &Fetcher{
		sourceURL: sourceURL,
		extraURLs: extraURLs,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// SourceURL returns the configured primary source URL.
func (f *Fetcher) SourceURL() string {
	return f.sourceURL
}

// Fetch retrieves the primary source and appends every extra source that
// succeeds, returning the concatenated raw TLE text.
func (f *Fetcher) Fetch(ctx context.Context) ([]byte, error) {
	body, err := f.fetchOne(ctx, f.sourceURL)
	if err != nil {
		return nil, err
	}

	for _, url := range f.extraURLs {
		extra, err := f.fetchOne(ctx, url)
		if err != nil {
			if f.logger != nil {
				f.logger.Warn("extra TLE source fetch failed, continuing without it", "url", url, "error", err)
			}
			continue
		}
		if len(body) > 0 && body[len(body)-1] != '\n' {
			body = append(body, '\n')
		}
		body = append(body, extra...)
	}

	return body, nil
}

func (f *Fetcher) fetchOne(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching TLE data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, url)
	}

	limited := io.LimitReader(resp.Body, maxResponseBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if len(body) > maxResponseBytes {
		return nil, fmt.Errorf("response from %s exceeded the %d byte limit", url, maxResponseBytes)
	}

	return body, nil
}
