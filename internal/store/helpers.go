package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"jobmonitor/internal/models"
)

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// encodeTags serializes a tag list for the tags text column.
func encodeTags(tags []string) interface{} {
	if len(tags) == 0 {
		return nil
	}
	b, err := json.Marshal(tags)
	if err != nil {
		slog.Error("store: tag encoding failed", "error", err)
		return nil
	}
	return string(b)
}

// decodeTags restores a tag list from the tags text column.
func decodeTags(raw string) []string {
	if raw == "" {
		return nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		slog.Error("store: tag decoding failed", "error", err, "raw", raw)
		return nil
	}
	return tags
}

// scanPosting scans a StoredPosting from sql.Rows. The column order must
// match postingColumns.
func scanPosting(rows *sql.Rows) (models.StoredPosting, error) {
	var p models.StoredPosting
	var company, location, description, tags sql.NullString
	var publishedAt sql.NullTime
	err := rows.Scan(
		&p.ID, &p.DedupHash, &p.SourceName, &p.Title, &p.Link,
		&company, &location, &description, &tags,
		&publishedAt, &p.FetchedAt, &p.FirstSeenAt, &p.Sent,
	)
	if err != nil {
		return p, fmt.Errorf("scan posting failed: %w", err)
	}
	p.Company = company.String
	p.Location = location.String
	p.Description = description.String
	p.Tags = decodeTags(tags.String)
	if publishedAt.Valid {
		t := publishedAt.Time
		p.PublishedAt = &t
	}
	return p, nil
}

// postingColumns is the SELECT list matching scanPosting.
const postingColumns = "id, dedup_hash, source_name, title, link, company, location, description, tags, published_at, fetched_at, first_seen_at, sent"

// storageErr wraps a driver error so callers can detect storage failure
// with errors.Is(err, models.ErrStorageUnavailable).
func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, models.ErrStorageUnavailable, err)
}

// placeholders renders "$from, $from+1, ..." for Postgres IN clauses.
func placeholders(from, n int) string {
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = fmt.Sprintf("$%d", from+i)
	}
	return strings.Join(parts, ", ")
}
