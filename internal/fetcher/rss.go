package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"jobmonitor/internal/models"
)

// rssFetcher parses RSS and Atom feeds into postings.
type rssFetcher struct {
	client *http.Client
}

func (f *rssFetcher) fetch(ctx context.Context, src models.SourceConfig) ([]models.JobPosting, error) {
	resp, err := get(ctx, f.client, src.URL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}

	now := time.Now()
	postings := make([]models.JobPosting, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item.Title == "" && item.Link == "" {
			slog.Debug("skipping feed entry without title and link", "source", src.Name)
			continue
		}
		postings = append(postings, models.JobPosting{
			SourceName:  src.Name,
			Title:       item.Title,
			Link:        item.Link,
			Description: item.Description,
			Tags:        item.Categories,
			PublishedAt: item.PublishedParsed,
			FetchedAt:   now,
		})
	}
	return postings, nil
}
