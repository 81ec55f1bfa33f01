// Package cleanup implements the retention pass: old location history is
// deleted, expired items lose their uploaded files and are deactivated.
package cleanup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/erazemk/sledilnik/internal/media"
	"github.com/erazemk/sledilnik/internal/metrics"
	"github.com/erazemk/sledilnik/internal/store"
)

// DefaultRetention is how long location events are kept.
const DefaultRetention = 60 * time.Hour

// Report counts what one pass changed.
type Report struct {
	LocationsDeleted int64 `json:"locations_deleted"`
	ItemsDeactivated int64 `json:"items_deactivated"`
	FilesRemoved     int64 `json:"files_removed"`
}

func (r Report) String() string {
	return fmt.Sprintf("deleted %d location(s), removed %d file(s), deactivated %d item(s)",
		r.LocationsDeleted, r.FilesRemoved, r.ItemsDeactivated)
}

// Cleaner runs retention passes. It is safe for concurrent use; overlapping
// passes split the work and each reports only its own changes.
type Cleaner struct {
	DB        *sql.DB
	Files     *media.Store
	Now       func() time.Time
	Retention time.Duration
}

// Run performs one pass. Each step is attempted even if an earlier one
// failed; the returned error joins every step failure. Per-file removal
// failures are logged and never fail the pass.
func (c *Cleaner) Run(ctx context.Context) (Report, error) {
	start := time.Now()
	now := time.Now()
	if c.Now != nil {
		now = c.Now()
	}
	retention := c.Retention
	if retention <= 0 {
		retention = DefaultRetention
	}

	var report Report
	var errs []error

	n, err := store.DeleteLocationsBefore(ctx, c.DB, now.Add(-retention))
	if err != nil {
		errs = append(errs, fmt.Errorf("deleting old locations: %w", err))
	}
	report.LocationsDeleted = n

	report.FilesRemoved, err = c.removeExpiredFiles(ctx, now)
	if err != nil {
		errs = append(errs, err)
	}

	n, err = store.DeactivateExpiredItems(ctx, c.DB, now)
	if err != nil {
		errs = append(errs, fmt.Errorf("deactivating expired items: %w", err))
	}
	report.ItemsDeactivated = n

	metrics.CleanupDuration.Observe(time.Since(start).Seconds())
	metrics.CleanupAffected.WithLabelValues("locations_deleted").Add(float64(report.LocationsDeleted))
	metrics.CleanupAffected.WithLabelValues("items_deactivated").Add(float64(report.ItemsDeactivated))
	metrics.CleanupAffected.WithLabelValues("files_removed").Add(float64(report.FilesRemoved))

	if err := errors.Join(errs...); err != nil {
		metrics.CleanupRuns.WithLabelValues("error").Inc()
		slog.Error("cleanup finished with errors", "error", err,
			"locations_deleted", report.LocationsDeleted,
			"files_removed", report.FilesRemoved,
			"items_deactivated", report.ItemsDeactivated)
		return report, err
	}

	metrics.CleanupRuns.WithLabelValues("ok").Inc()
	metrics.CleanupLastSuccess.SetToCurrentTime()
	slog.Info("cleanup finished",
		"locations_deleted", report.LocationsDeleted,
		"files_removed", report.FilesRemoved,
		"items_deactivated", report.ItemsDeactivated,
		"duration", time.Since(start).Round(time.Millisecond))
	return report, nil
}

// removeExpiredFiles deletes the uploaded files of items that are expired
// but still active, counting only files that were actually removed.
func (c *Cleaner) removeExpiredFiles(ctx context.Context, now time.Time) (int64, error) {
	items, err := store.ListExpiredActiveItems(ctx, c.DB, now)
	if err != nil {
		return 0, fmt.Errorf("listing expired items: %w", err)
	}
	if c.Files == nil {
		return 0, nil
	}

	var removed int64
	for _, item := range items {
		if item.FilePath == "" {
			continue
		}
		ok, err := c.Files.Remove(item.FilePath)
		if err != nil {
			slog.Warn("failed to remove expired item file", "slug", item.Slug, "path", item.FilePath, "error", err)
			continue
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}
