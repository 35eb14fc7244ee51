// Package fetcher retrieves raw job postings from configured sources.
//
// Two source kinds are supported: RSS/Atom feeds and HTML pages scraped
// with configurable CSS selectors. Fetchers hold no persistent state and
// never abort a scan: network and parse failures surface as FetchFailure
// values so remaining sources proceed independently.
package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"jobmonitor/internal/models"
)

// userAgent identifies the monitor to scraped sites.
const userAgent = "Mozilla/5.0 (compatible; JobMonitorBot/1.0)"

// sourceFetcher is the per-kind fetch strategy shared by RSS and HTML.
type sourceFetcher interface {
	fetch(ctx context.Context, src models.SourceConfig) ([]models.JobPosting, error)
}

// Fetcher dispatches fetches to the strategy matching each source's type.
type Fetcher struct {
	rss  sourceFetcher
	html sourceFetcher
}

// New creates a Fetcher whose HTTP requests time out after the given
// duration. A timeout of zero falls back to the default.
func New(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = models.DefaultFetchTimeout
	}
	client := &http.Client{Timeout: timeout}
	return &Fetcher{
		rss:  &rssFetcher{client: client},
		html: &htmlFetcher{client: client},
	}
}

// Fetch retrieves all postings from one source. The returned error is the
// cause only; callers wrap it into a FetchFailure with the source name.
func (f *Fetcher) Fetch(ctx context.Context, src models.SourceConfig) ([]models.JobPosting, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	switch src.Type {
	case models.SourceTypeRSS:
		return f.rss.fetch(ctx, src)
	case models.SourceTypeHTML:
		return f.html.fetch(ctx, src)
	default:
		return nil, models.ErrInvalidSourceType
	}
}

// FetchAll fetches every source with at most concurrency in flight.
// Per-source failures are collected, not raised; the posting slice holds
// the union of all successful fetches in no particular order.
func (f *Fetcher) FetchAll(ctx context.Context, sources []models.SourceConfig, concurrency int) ([]models.JobPosting, []models.FetchFailure) {
	if concurrency <= 0 {
		concurrency = models.DefaultFetchConcurrency
	}

	var (
		mu       sync.Mutex
		postings []models.JobPosting
		failures []models.FetchFailure
		wg       sync.WaitGroup
		sem      = make(chan struct{}, concurrency)
	)

	for _, src := range sources {
		wg.Add(1)
		go func(src models.SourceConfig) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			fetched, err := f.Fetch(ctx, src)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				slog.Error("source fetch failed", "source", src.Name, "error", err)
				failures = append(failures, models.FetchFailure{SourceName: src.Name, Cause: err})
				return
			}
			slog.Info("source fetched", "source", src.Name, "postings", len(fetched))
			postings = append(postings, fetched...)
		}(src)
	}
	wg.Wait()

	return postings, failures
}

// get performs an HTTP GET with the monitor's user agent and validates
// the response status.
func get(ctx context.Context, client *http.Client, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return resp, nil
}
