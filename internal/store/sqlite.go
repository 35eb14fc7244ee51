// Package store provides storage backends for jobmonitor.
//
// This file implements the SQLite-backed posting store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"

	"jobmonitor/internal/models"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// Compile-time check that SQLiteStore implements PostingRepo.
var _ PostingRepo = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, storageErr("sqlite ping", err)
	}

	// Run migrations to ensure the postings table exists.
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) UpsertAndDetectNew(postings []models.JobPosting) ([]models.StoredPosting, error) {
	now := time.Now()
	var inserted []models.StoredPosting
	for _, p := range postings {
		hash := models.DedupHash(p)

		// The UNIQUE constraint on dedup_hash makes the insert atomic per
		// posting; a concurrent insert of the same hash is ignored here.
		res, err := s.db.Exec(
			`INSERT OR IGNORE INTO postings
			 (dedup_hash, source_name, title, link, company, location, description, tags, published_at, fetched_at, first_seen_at, sent)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`,
			hash, p.SourceName, p.Title, p.Link,
			nilIfEmpty(p.Company), nilIfEmpty(p.Location), nilIfEmpty(p.Description),
			encodeTags(p.Tags), p.PublishedAt, p.FetchedAt, now,
		)
		if err != nil {
			return nil, storageErr("upsert posting", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, storageErr("upsert posting rows affected", err)
		}
		if n == 0 {
			slog.Debug("SQLiteStore.UpsertAndDetectNew: duplicate skipped", "source", p.SourceName, "title", p.Title)
			continue
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, storageErr("upsert posting id", err)
		}
		inserted = append(inserted, models.StoredPosting{
			ID:          id,
			DedupHash:   hash,
			FirstSeenAt: now,
			Sent:        false,
			JobPosting:  p,
		})
	}
	slog.Debug("SQLiteStore.UpsertAndDetectNew", "scanned", len(postings), "new", len(inserted))
	return inserted, nil
}

func (s *SQLiteStore) MarkSent(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	// One statement per id keeps this idempotent and trivially correct;
	// digests stay small enough that batching is not worth the SQL plumbing.
	for _, id := range ids {
		if _, err := s.db.Exec(`UPDATE postings SET sent = 1 WHERE id = ?`, id); err != nil {
			return storageErr("mark sent", err)
		}
	}
	slog.Debug("SQLiteStore.MarkSent", "count", len(ids))
	return nil
}

func (s *SQLiteStore) UnsentPostings() ([]models.StoredPosting, error) {
	rows, err := s.db.Query(
		`SELECT ` + postingColumns + ` FROM postings WHERE sent = 0 ORDER BY first_seen_at DESC, id DESC`,
	)
	if err != nil {
		return nil, storageErr("unsent postings query", err)
	}
	defer rows.Close()

	var postings []models.StoredPosting
	for rows.Next() {
		p, err := scanPosting(rows)
		if err != nil {
			return nil, storageErr("unsent postings scan", err)
		}
		postings = append(postings, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("unsent postings iteration", err)
	}
	return postings, nil
}

func (s *SQLiteStore) Cleanup(maxAge time.Duration, maxPerSource int) (int, error) {
	deleted := 0
	cutoff := time.Now().Add(-maxAge)

	res, err := s.db.Exec(`DELETE FROM postings WHERE first_seen_at < ?`, cutoff)
	if err != nil {
		return 0, storageErr("cleanup by age", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		deleted += int(n)
	}

	if maxPerSource > 0 {
		// Trim each source to the cap, oldest first.
		res, err = s.db.Exec(
			`DELETE FROM postings WHERE id IN (
				SELECT id FROM postings p WHERE (
					SELECT COUNT(*) FROM postings q
					WHERE q.source_name = p.source_name
					  AND (q.first_seen_at > p.first_seen_at OR (q.first_seen_at = p.first_seen_at AND q.id > p.id))
				) >= ?
			)`, maxPerSource)
		if err != nil {
			return deleted, storageErr("cleanup by source cap", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			deleted += int(n)
		}
	}

	if deleted > 0 {
		slog.Info("SQLiteStore.Cleanup", "deleted", deleted, "cutoff", cutoff, "max_per_source", maxPerSource)
	}
	return deleted, nil
}

func (s *SQLiteStore) RecentStats(since time.Time) (models.StoreStats, error) {
	stats := models.StoreStats{PerSource: make(map[string]int)}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM postings`).Scan(&stats.Total); err != nil {
		return stats, storageErr("stats total", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM postings WHERE first_seen_at > ?`, since).Scan(&stats.NewSince); err != nil {
		return stats, storageErr("stats new since", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM postings WHERE sent = 0`).Scan(&stats.Unsent); err != nil {
		return stats, storageErr("stats unsent", err)
	}

	rows, err := s.db.Query(`SELECT source_name, COUNT(*) FROM postings WHERE first_seen_at > ? GROUP BY source_name`, since)
	if err != nil {
		return stats, storageErr("stats per source", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var count int
		if err := rows.Scan(&name, &count); err != nil {
			return stats, storageErr("stats per source scan", err)
		}
		stats.PerSource[name] = count
	}
	if err := rows.Err(); err != nil {
		return stats, storageErr("stats per source iteration", err)
	}
	return stats, nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	return s.db.Close()
}
