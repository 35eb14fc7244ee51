// Package store provides storage backends for jobmonitor.
//
// It persists deduplicated job postings in SQLite or PostgreSQL, selected
// by DSN at startup. Uniqueness of the (title, link, source) fingerprint is
// enforced by the storage layer, so concurrent scans cannot double-insert.
package store

import (
	"time"

	"jobmonitor/internal/models"
)

// PostingRepo defines the posting persistence interface implemented by
// both SQLite and PostgreSQL stores.
type PostingRepo interface {
	// UpsertAndDetectNew inserts the postings that have not been seen
	// before and returns their stored form. Postings whose dedup hash
	// already exists are skipped. Insertion is atomic per posting.
	UpsertAndDetectNew(postings []models.JobPosting) ([]models.StoredPosting, error)

	// MarkSent flips sent to true for the given posting ids. Idempotent;
	// unknown or already-sent ids are a no-op.
	MarkSent(ids []int64) error

	// UnsentPostings returns all postings never included in a delivered
	// digest, newest first.
	UnsentPostings() ([]models.StoredPosting, error)

	// Cleanup deletes postings older than maxAge, then trims each source
	// to maxPerSource records oldest-first. Returns the number deleted.
	Cleanup(maxAge time.Duration, maxPerSource int) (int, error)

	// RecentStats returns counts for reporting without a fresh scan.
	RecentStats(since time.Time) (models.StoreStats, error)

	// Close releases the underlying database handle.
	Close() error
}
