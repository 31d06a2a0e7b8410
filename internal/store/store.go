// Package store persists shortlist runs, vendor records, health check
// results, and the scrape cache. Two backends are provided: Postgres
// (pgx) for deployments and SQLite (modernc, pure Go) for local use.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/sells-group/shortlist-cli/internal/model"
)

// Store is the persistence interface shared by both backends.
type Store interface {
	// Migrate creates or updates the schema. Safe to call on every start.
	Migrate(ctx context.Context) error

	// CreateRun inserts a new shortlist run in pending status.
	CreateRun(ctx context.Context, need string, reqs []model.Requirement) (*model.ShortlistRun, error)

	// UpdateRunStatus moves a run to a new status. Runs already in a
	// terminal status (completed, failed) are never modified.
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error

	// FailRun marks a run failed with a user-facing message.
	FailRun(ctx context.Context, runID, message string) error

	// CompleteRun marks a run completed and records its elapsed time.
	CompleteRun(ctx context.Context, runID string, processingMs int64) error

	// InsertVendors stores the analyzed vendors for a run.
	InsertVendors(ctx context.Context, runID string, vendors []model.VendorRecord) error

	// GetRun returns a run with its vendors, or nil when absent.
	GetRun(ctx context.Context, runID string) (*model.ShortlistRun, error)

	// ListRecentCompleted returns the most recent completed runs, newest
	// first, with vendors loaded in descending score order.
	ListRecentCompleted(ctx context.Context, limit int) ([]model.ShortlistRun, error)

	// InsertHealthCheck records the outcome of a single service probe.
	InsertHealthCheck(ctx context.Context, hc model.ServiceHealth) error

	// GetCachedPage returns a previously scraped page, or nil when the
	// cache has no fresh entry for the URL.
	GetCachedPage(ctx context.Context, url string) (*model.ScrapedPage, error)

	// PutCachedPage caches a scraped page for ttl.
	PutCachedPage(ctx context.Context, page *model.ScrapedPage, ttl time.Duration) error

	// Ping verifies connectivity.
	Ping(ctx context.Context) error

	Close() error
}

// hashURL keys the scrape cache. URLs can exceed index size limits, so
// both backends store a fixed-width digest instead.
func hashURL(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}
