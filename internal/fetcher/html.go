package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"jobmonitor/internal/models"
)

// htmlFetcher scrapes a page with the selector map configured per source.
// The selectors are data: container marks the repeated posting element,
// the rest are resolved relative to each container.
type htmlFetcher struct {
	client *http.Client
}

func (f *htmlFetcher) fetch(ctx context.Context, src models.SourceConfig) ([]models.JobPosting, error) {
	resp, err := get(ctx, f.client, src.URL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}

	base, err := url.Parse(src.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing source url: %w", err)
	}

	now := time.Now()
	var postings []models.JobPosting
	doc.Find(src.Selectors[models.SelectorContainer]).Each(func(i int, container *goquery.Selection) {
		title := selectText(container, src.Selectors[models.SelectorTitle])
		link := selectHref(container, src.Selectors[models.SelectorLink])
		if title == "" || link == "" {
			// A container without title or link is not a posting; skip it
			// rather than failing the source.
			slog.Debug("skipping container without title or link", "source", src.Name, "index", i)
			return
		}
		postings = append(postings, models.JobPosting{
			SourceName:  src.Name,
			Title:       title,
			Link:        resolveLink(base, link),
			Company:     selectText(container, src.Selectors[models.SelectorCompany]),
			Location:    selectText(container, src.Selectors[models.SelectorLocation]),
			Description: selectText(container, src.Selectors[models.SelectorDescription]),
			FetchedAt:   now,
		})
	})

	slog.Debug("html source scraped", "source", src.Name, "postings", len(postings))
	return postings, nil
}

// selectText returns the trimmed text of the first element matching the
// selector, or "" when the selector is absent or matches nothing.
func selectText(container *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.TrimSpace(container.Find(selector).First().Text())
}

// selectHref returns the href of the first element matching the selector.
func selectHref(container *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	href, _ := container.Find(selector).First().Attr("href")
	return strings.TrimSpace(href)
}

// resolveLink makes relative hrefs absolute against the page URL.
func resolveLink(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
