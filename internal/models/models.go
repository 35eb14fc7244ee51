// Package models defines the core data structures for jobmonitor.
//
// It includes types for job postings, scan results and source configuration,
// which are shared across modules.
package models

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// SourceType selects the fetch strategy for a configured source.
type SourceType string

const (
	// SourceTypeRSS fetches and parses an RSS/Atom feed.
	SourceTypeRSS SourceType = "rss"
	// SourceTypeHTML fetches a page and extracts postings with CSS selectors.
	SourceTypeHTML SourceType = "html"
)

// Selector keys used by HTML sources.
const (
	SelectorContainer   = "container"
	SelectorTitle       = "title"
	SelectorLink        = "link"
	SelectorCompany     = "company"
	SelectorLocation    = "location"
	SelectorDescription = "description"
)

// Error variables for better error handling and testability.
var (
	ErrEmptySourceName    = errors.New("source name cannot be empty")
	ErrEmptySourceURL     = errors.New("source url cannot be empty")
	ErrInvalidSourceType  = errors.New("invalid source type")
	ErrMissingSelector    = errors.New("html source is missing a required selector")
	ErrScanAlreadyRunning = errors.New("a scan run is already in progress")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// IsValidSourceType checks if the given source type is supported.
func IsValidSourceType(st SourceType) bool {
	switch st {
	case SourceTypeRSS, SourceTypeHTML:
		return true
	default:
		return false
	}
}

// SourceConfig describes one configured posting source.
type SourceConfig struct {
	Name      string            `json:"name"`
	Type      SourceType        `json:"type"`
	URL       string            `json:"url"`
	Selectors map[string]string `json:"selectors,omitempty"`
}

// Validate checks that a source descriptor is complete enough to fetch.
// HTML sources must carry container, title and link selectors.
func (c *SourceConfig) Validate() error {
	if c.Name == "" {
		return ErrEmptySourceName
	}
	if c.URL == "" {
		return ErrEmptySourceURL
	}
	if !IsValidSourceType(c.Type) {
		return ErrInvalidSourceType
	}
	if c.Type == SourceTypeHTML {
		for _, key := range []string{SelectorContainer, SelectorTitle, SelectorLink} {
			if c.Selectors[key] == "" {
				return fmt.Errorf("%w: %s", ErrMissingSelector, key)
			}
		}
	}
	return nil
}

// JobPosting is a candidate record produced by a source fetcher.
// The (Title, Link, SourceName) triple identifies a logical posting.
type JobPosting struct {
	SourceName  string     `json:"source_name"`
	Title       string     `json:"title"`
	Link        string     `json:"link"`
	Company     string     `json:"company,omitempty"`
	Location    string     `json:"location,omitempty"`
	Description string     `json:"description,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	FetchedAt   time.Time  `json:"fetched_at"`
}

// DedupHash returns the deterministic fingerprint of a posting identity,
// used by the store to collapse repeated fetches of the same posting.
func DedupHash(p JobPosting) string {
	sum := sha256.Sum256([]byte(p.Title + "|" + p.Link + "|" + p.SourceName))
	return hex.EncodeToString(sum[:])
}

// StoredPosting is the persisted form of a posting, owned by the store.
// FirstSeenAt is set once at insertion; Sent flips false to true exactly
// once, after a digest containing the posting was fully delivered.
type StoredPosting struct {
	ID          int64
	DedupHash   string
	FirstSeenAt time.Time
	Sent        bool
	JobPosting
}

// ScanResult summarizes one scan run.
type ScanResult struct {
	ScannedCount  int
	NewCount      int
	DigestCount   int
	RunTimestamp  time.Time
	PerSource     map[string]int
	FetchFailures []FetchFailure
}

// StoreStats holds counts reported by the store without a fresh scan.
type StoreStats struct {
	Total     int
	NewSince  int
	Unsent    int
	PerSource map[string]int
}

// DigestMessage is an ordered sequence of text parts, each within the
// delivery size limit and valid to send independently.
type DigestMessage struct {
	Parts []string
}

// FetchFailure records a per-source fetch error. It never aborts a scan;
// other sources proceed independently.
type FetchFailure struct {
	SourceName string
	Cause      error
}

func (f FetchFailure) Error() string {
	return fmt.Sprintf("fetching %s: %v", f.SourceName, f.Cause)
}

func (f FetchFailure) Unwrap() error {
	return f.Cause
}

// DeliveryError records a transport failure on one digest part.
type DeliveryError struct {
	Part  int
	Parts int
	Cause error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivering digest part %d/%d: %v", e.Part, e.Parts, e.Cause)
}

func (e *DeliveryError) Unwrap() error {
	return e.Cause
}
