// Package store provides storage backends for jobmonitor.
//
// This file implements the PostgreSQL-backed posting store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	_ "github.com/lib/pq"

	"jobmonitor/internal/models"
)

// Database connection pool configuration constants.
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database.
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool.
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused.
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements PostingRepo.
var _ PostingRepo = (*PostgresStore)(nil)

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, storageErr("postgres ping", err)
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) UpsertAndDetectNew(postings []models.JobPosting) ([]models.StoredPosting, error) {
	now := time.Now()
	var inserted []models.StoredPosting
	for _, p := range postings {
		hash := models.DedupHash(p)

		// ON CONFLICT DO NOTHING returns no row for duplicates, so the
		// unique index arbitrates concurrent inserts of the same hash.
		var id int64
		err := s.db.QueryRow(
			`INSERT INTO postings
			 (dedup_hash, source_name, title, link, company, location, description, tags, published_at, fetched_at, first_seen_at, sent)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, FALSE)
			 ON CONFLICT (dedup_hash) DO NOTHING
			 RETURNING id`,
			hash, p.SourceName, p.Title, p.Link,
			nilIfEmpty(p.Company), nilIfEmpty(p.Location), nilIfEmpty(p.Description),
			encodeTags(p.Tags), p.PublishedAt, p.FetchedAt, now,
		).Scan(&id)
		if err == sql.ErrNoRows {
			slog.Debug("PostgresStore.UpsertAndDetectNew: duplicate skipped", "source", p.SourceName, "title", p.Title)
			continue
		}
		if err != nil {
			return nil, storageErr("upsert posting", err)
		}
		inserted = append(inserted, models.StoredPosting{
			ID:          id,
			DedupHash:   hash,
			FirstSeenAt: now,
			Sent:        false,
			JobPosting:  p,
		})
	}
	slog.Debug("PostgresStore.UpsertAndDetectNew", "scanned", len(postings), "new", len(inserted))
	return inserted, nil
}

func (s *PostgresStore) MarkSent(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := `UPDATE postings SET sent = TRUE WHERE id IN (` + placeholders(1, len(ids)) + `)`
	if _, err := s.db.Exec(query, args...); err != nil {
		return storageErr("mark sent", err)
	}
	slog.Debug("PostgresStore.MarkSent", "count", len(ids))
	return nil
}

func (s *PostgresStore) UnsentPostings() ([]models.StoredPosting, error) {
	rows, err := s.db.Query(
		`SELECT ` + postingColumns + ` FROM postings WHERE sent = FALSE ORDER BY first_seen_at DESC, id DESC`,
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

func (s *PostgresStore) Cleanup(maxAge time.Duration, maxPerSource int) (int, error) {
	deleted := 0
	cutoff := time.Now().Add(-maxAge)

	res, err := s.db.Exec(`DELETE FROM postings WHERE first_seen_at < $1`, cutoff)
	if err != nil {
		return 0, storageErr("cleanup by age", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		deleted += int(n)
	}

	if maxPerSource > 0 {
		res, err = s.db.Exec(
			`DELETE FROM postings WHERE id IN (
				SELECT id FROM (
					SELECT id, ROW_NUMBER() OVER (
						PARTITION BY source_name ORDER BY first_seen_at DESC, id DESC
					) AS rank FROM postings
				) ranked WHERE ranked.rank > $1
			)`, maxPerSource)
		if err != nil {
			return deleted, storageErr("cleanup by source cap", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			deleted += int(n)
		}
	}

	if deleted > 0 {
		slog.Info("PostgresStore.Cleanup", "deleted", deleted, "cutoff", cutoff, "max_per_source", maxPerSource)
	}
	return deleted, nil
}

func (s *PostgresStore) RecentStats(since time.Time) (models.StoreStats, error) {
	stats := models.StoreStats{PerSource: make(map[string]int)}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM postings`).Scan(&stats.Total); err != nil {
		return stats, storageErr("stats total", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM postings WHERE first_seen_at > $1`, since).Scan(&stats.NewSince); err != nil {
		return stats, storageErr("stats new since", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM postings WHERE sent = FALSE`).Scan(&stats.Unsent); err != nil {
		return stats, storageErr("stats unsent", err)
	}

	rows, err := s.db.Query(`SELECT source_name, COUNT(*) FROM postings WHERE first_seen_at > $1 GROUP BY source_name`, since)
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

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres database connection")
	return s.db.Close()
}
