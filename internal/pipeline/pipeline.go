// Package pipeline coordinates one end-to-end monitoring run: fetch all
// sources, persist and deduplicate, filter, assemble the digest and
// deliver it. The coordinator owns the ordering and the sent-state
// bookkeeping; the stages themselves live in their own packages.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"jobmonitor/internal/digest"
	"jobmonitor/internal/filter"
	"jobmonitor/internal/messaging"
	"jobmonitor/internal/models"
	"jobmonitor/internal/store"
)

// Fetcher is the source-retrieval dependency of the coordinator.
type Fetcher interface {
	FetchAll(ctx context.Context, sources []models.SourceConfig, concurrency int) ([]models.JobPosting, []models.FetchFailure)
}

// Deps bundles the collaborators a Coordinator needs.
type Deps struct {
	Fetcher   Fetcher
	Repo      store.PostingRepo
	Messenger messaging.Service
	Assembler *digest.Assembler
	Keywords  *filter.Keywords
	Locations *filter.Locations
	Sources   []models.SourceConfig
	Settings  models.Settings
}

// Coordinator runs scans and reports. At most one scan runs at a time;
// an overlapping trigger returns ErrScanAlreadyRunning instead of
// queueing.
type Coordinator struct {
	deps Deps
	mu   sync.Mutex
}

// NewCoordinator creates a Coordinator from its dependencies.
func NewCoordinator(deps Deps) *Coordinator {
	return &Coordinator{deps: deps}
}

// RunScan performs one full scan cycle and returns its summary.
//
// Postings are marked sent only after every digest part was delivered,
// so a mid-delivery failure leaves them eligible for the next run.
// Delivering some parts twice is the accepted trade-off; losing
// postings is not.
func (c *Coordinator) RunScan(ctx context.Context) (models.ScanResult, error) {
	if !c.mu.TryLock() {
		slog.Warn("scan trigger ignored, previous scan still running")
		return models.ScanResult{}, models.ErrScanAlreadyRunning
	}
	defer c.mu.Unlock()

	start := time.Now()
	slog.Info("scan started", "sources", len(c.deps.Sources))

	fetched, failures := c.deps.Fetcher.FetchAll(ctx, c.deps.Sources, c.deps.Settings.FetchConcurrency)
	for _, f := range failures {
		slog.Warn("source skipped this run", "source", f.SourceName, "error", f.Cause)
	}

	newPostings, err := c.deps.Repo.UpsertAndDetectNew(fetched)
	if err != nil {
		return models.ScanResult{}, fmt.Errorf("recording postings: %w", err)
	}

	unsent, err := c.deps.Repo.UnsentPostings()
	if err != nil {
		return models.ScanResult{}, fmt.Errorf("loading unsent postings: %w", err)
	}
	accepted := c.applyFilters(unsent)

	result := models.ScanResult{
		ScannedCount:  len(fetched),
		NewCount:      len(newPostings),
		RunTimestamp:  start,
		PerSource:     countBySource(newPostings),
		FetchFailures: failures,
	}

	msg, included := c.deps.Assembler.Assemble(accepted, sourceNames(c.deps.Sources), result)
	result.DigestCount = len(included)

	// Retention runs whether or not delivery succeeds; a broken
	// transport must not stall cleanup indefinitely.
	deliverErr := c.deliver(ctx, msg)
	if deliverErr == nil && len(included) > 0 {
		if err := c.deps.Repo.MarkSent(included); err != nil {
			// The digest went out; a failed flag update means these
			// postings may be re-sent next run. Surface it loudly.
			slog.Error("failed to mark postings sent", "error", err, "count", len(included))
			c.cleanup()
			return result, fmt.Errorf("marking postings sent: %w", err)
		}
	}
	c.cleanup()
	if deliverErr != nil {
		return result, deliverErr
	}

	slog.Info("scan finished",
		"scanned", result.ScannedCount,
		"new", result.NewCount,
		"digest", result.DigestCount,
		"failed_sources", len(failures),
		"elapsed", time.Since(start))
	return result, nil
}

// RunReport sends the daily summary built from store counts. It does not
// fetch; a report reflects only what past scans recorded.
func (c *Coordinator) RunReport(ctx context.Context) error {
	now := time.Now()
	since := now.Add(-24 * time.Hour)

	stats, err := c.deps.Repo.RecentStats(since)
	if err != nil {
		return fmt.Errorf("collecting report stats: %w", err)
	}

	text := c.deps.Assembler.Report(stats, since, now)
	if err := c.deps.Messenger.SendMessage(ctx, text); err != nil {
		return fmt.Errorf("sending report: %w", err)
	}
	slog.Info("report sent", "total", stats.Total, "new", stats.NewSince)
	return nil
}

// NotifyError reports a failed run through the delivery channel, best
// effort. Used by daemon mode so the operator hears about breakage
// without tailing logs.
func (c *Coordinator) NotifyError(ctx context.Context, runErr error) {
	text := fmt.Sprintf("⚠️ Monitoring run failed: %v", runErr)
	if err := c.deps.Messenger.SendMessage(ctx, text); err != nil {
		slog.Error("failed to deliver error notification", "error", err)
	}
}

func (c *Coordinator) applyFilters(postings []models.StoredPosting) []models.StoredPosting {
	accepted := make([]models.StoredPosting, 0, len(postings))
	for _, p := range postings {
		if !c.deps.Keywords.Matches(p.JobPosting) {
			continue
		}
		if !c.deps.Locations.Allows(p.JobPosting) {
			continue
		}
		accepted = append(accepted, p)
	}
	slog.Debug("filters applied", "candidates", len(postings), "accepted", len(accepted))
	return accepted
}

// deliver sends each digest part in order, pausing between parts so the
// transport's rate limits are respected.
func (c *Coordinator) deliver(ctx context.Context, msg models.DigestMessage) error {
	for i, part := range msg.Parts {
		if i > 0 && c.deps.Settings.PartDelay > 0 {
			select {
			case <-ctx.Done():
				return &models.DeliveryError{Part: i + 1, Parts: len(msg.Parts), Cause: ctx.Err()}
			case <-time.After(c.deps.Settings.PartDelay):
			}
		}
		if err := c.deps.Messenger.SendMessage(ctx, part); err != nil {
			return &models.DeliveryError{Part: i + 1, Parts: len(msg.Parts), Cause: err}
		}
		slog.Debug("digest part delivered", "part", i+1, "parts", len(msg.Parts))
	}
	return nil
}

// cleanup prunes old and over-cap postings. Retention failures never
// fail a scan that already delivered its digest.
func (c *Coordinator) cleanup() {
	maxAge := time.Duration(c.deps.Settings.CleanupDays) * 24 * time.Hour
	deleted, err := c.deps.Repo.Cleanup(maxAge, c.deps.Settings.MaxStoredPerSource)
	if err != nil {
		slog.Error("retention cleanup failed", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("retention cleanup done", "deleted", deleted)
	}
}

func countBySource(postings []models.StoredPosting) map[string]int {
	if len(postings) == 0 {
		return nil
	}
	counts := make(map[string]int)
	for _, p := range postings {
		counts[p.SourceName]++
	}
	return counts
}

func sourceNames(sources []models.SourceConfig) []string {
	names := make([]string, 0, len(sources))
	for _, src := range sources {
		names = append(names, src.Name)
	}
	return names
}
