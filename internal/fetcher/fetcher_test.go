package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"jobmonitor/internal/models"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Example Jobs</title>
  <link>https://jobs.example</link>
  <item>
    <title>Go Developer</title>
    <link>https://jobs.example/go-dev</link>
    <description>Backend role, remote friendly</description>
    <category>go</category>
    <category>backend</category>
    <pubDate>Mon, 02 Mar 2026 10:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Python Developer</title>
    <link>https://jobs.example/py-dev</link>
    <description>Django and friends</description>
  </item>
</channel>
</rss>`

const samplePage = `<!DOCTYPE html>
<html><body>
<div class="vacancy">
  <div class="title"><a class="vt" href="/jobs/1">Go Developer</a></div>
  <div class="company">Acme</div>
  <span class="cities">Gdansk</span>
  <div class="sh-info">Build things in Go</div>
</div>
<div class="vacancy">
  <div class="title"><a class="vt" href="https://other.example/jobs/2">Python Developer</a></div>
  <span class="cities">Remote</span>
</div>
<div class="vacancy">
  <div class="company">No title here</div>
</div>
</body></html>`

func htmlSource(name, url string) models.SourceConfig {
	return models.SourceConfig{
		Name: name,
		Type: models.SourceTypeHTML,
		URL:  url,
		Selectors: map[string]string{
			"container":   ".vacancy",
			"title":       "div.title a.vt",
			"link":        "div.title a.vt",
			"company":     "div.company",
			"location":    "span.cities",
			"description": "div.sh-info",
		},
	}
}

func TestFetchRSS(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(sampleRSS))
	}))
	t.Cleanup(srv.Close)

	f := New(5 * time.Second)
	postings, err := f.Fetch(context.Background(), models.SourceConfig{
		Name: "Example", Type: models.SourceTypeRSS, URL: srv.URL,
	})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(postings) != 2 {
		t.Fatalf("expected 2 postings, got %d", len(postings))
	}

	first := postings[0]
	if first.SourceName != "Example" {
		t.Errorf("wrong source name: %q", first.SourceName)
	}
	if first.Title != "Go Developer" || first.Link != "https://jobs.example/go-dev" {
		t.Errorf("wrong title/link: %q %q", first.Title, first.Link)
	}
	if len(first.Tags) != 2 || first.Tags[0] != "go" {
		t.Errorf("wrong tags: %v", first.Tags)
	}
	if first.PublishedAt == nil {
		t.Error("expected published time from pubDate")
	}
	if postings[1].PublishedAt != nil {
		t.Error("entry without pubDate must have nil published time")
	}
	if first.FetchedAt.IsZero() {
		t.Error("fetched_at must be set")
	}
}

func TestFetchHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(samplePage))
	}))
	t.Cleanup(srv.Close)

	f := New(5 * time.Second)
	postings, err := f.Fetch(context.Background(), htmlSource("DOU", srv.URL))
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	// The third container has no title/link and must be skipped.
	if len(postings) != 2 {
		t.Fatalf("expected 2 postings, got %d", len(postings))
	}

	first := postings[0]
	if first.Title != "Go Developer" {
		t.Errorf("wrong title: %q", first.Title)
	}
	if first.Link != srv.URL+"/jobs/1" {
		t.Errorf("relative link not resolved: %q", first.Link)
	}
	if first.Company != "Acme" || first.Location != "Gdansk" || first.Description != "Build things in Go" {
		t.Errorf("optional fields wrong: %+v", first)
	}

	second := postings[1]
	if second.Link != "https://other.example/jobs/2" {
		t.Errorf("absolute link must pass through unchanged: %q", second.Link)
	}
	if second.Company != "" || second.Description != "" {
		t.Errorf("missing optional selectors must yield empty fields: %+v", second)
	}
}

func TestFetchNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	f := New(5 * time.Second)
	_, err := f.Fetch(context.Background(), models.SourceConfig{
		Name: "Broken", Type: models.SourceTypeRSS, URL: srv.URL,
	})
	if err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestFetchInvalidSourceConfig(t *testing.T) {
	f := New(5 * time.Second)

	_, err := f.Fetch(context.Background(), models.SourceConfig{
		Name: "NoSelectors", Type: models.SourceTypeHTML, URL: "https://example.com",
	})
	if err == nil {
		t.Fatal("expected validation error for html source without selectors")
	}

	_, err = f.Fetch(context.Background(), models.SourceConfig{
		Name: "Weird", Type: "soap", URL: "https://example.com",
	})
	if err == nil {
		t.Fatal("expected validation error for unknown source type")
	}
}

func TestFetchAllCollectsPartialFailures(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleRSS))
	}))
	t.Cleanup(good.Close)
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(bad.Close)

	f := New(5 * time.Second)
	postings, failures := f.FetchAll(context.Background(), []models.SourceConfig{
		{Name: "Good", Type: models.SourceTypeRSS, URL: good.URL},
		{Name: "Bad", Type: models.SourceTypeRSS, URL: bad.URL},
	}, 2)

	if len(postings) != 2 {
		t.Errorf("expected 2 postings from the healthy source, got %d", len(postings))
	}
	if len(failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(failures))
	}
	if failures[0].SourceName != "Bad" {
		t.Errorf("wrong failing source: %q", failures[0].SourceName)
	}
}

func TestFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	t.Cleanup(srv.Close)

	f := New(50 * time.Millisecond)
	start := time.Now()
	_, err := f.Fetch(context.Background(), models.SourceConfig{
		Name: "Slow", Type: models.SourceTypeRSS, URL: srv.URL,
	})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("fetch did not respect timeout, took %v", elapsed)
	}
}
