// Package pipeline orchestrates a shortlist run: search for candidate
// vendors, scrape their sites, analyze the content, persist the result.
package pipeline

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/shortlist-cli/internal/config"
	"github.com/sells-group/shortlist-cli/internal/model"
	"github.com/sells-group/shortlist-cli/internal/search"
	"github.com/sells-group/shortlist-cli/internal/store"
)

var (
	// ErrNoResults means the search provider returned nothing usable.
	ErrNoResults = eris.New("pipeline: no search results")
	// ErrNoContent means every scrape attempt failed.
	ErrNoContent = eris.New("pipeline: no scrapeable content")
)

// User-facing failure messages persisted on the run.
const (
	msgNoResults     = "No vendors found for this search"
	msgNoContent     = "Failed to scrape vendor websites"
	msgQuotaExceeded = "Search quota exceeded. Please try again later."
	msgSearchFailed  = "Vendor search failed"
	msgAnalyzeFailed = "Vendor analysis failed"
)

// Scraper fetches a batch of vendor pages, dropping failures.
type Scraper interface {
	ScrapeAll(ctx context.Context, urls []string, maxConcurrent int) []model.ScrapedPage
}

// VendorAnalyzer turns scraped pages into scored vendor records.
type VendorAnalyzer interface {
	Analyze(ctx context.Context, need string, reqs []model.Requirement, pages []model.ScrapedPage) ([]model.VendorRecord, error)
}

// Orchestrator runs the search -> scrape -> analyze -> persist pipeline.
type Orchestrator struct {
	store    store.Store
	provider search.Provider
	scraper  Scraper
	analyzer VendorAnalyzer
	cfg      config.PipelineConfig
}

func New(st store.Store, provider search.Provider, sc Scraper, an VendorAnalyzer, cfg config.PipelineConfig) *Orchestrator {
	return &Orchestrator{store: st, provider: provider, scraper: sc, analyzer: an, cfg: cfg}
}

// Run executes one shortlist run end to end. The returned run carries
// the final status and, on success, vendors in descending score order.
// Failures are recorded on the run before the error is returned, so a
// caller that only has the run ID can still see what went wrong.
func (o *Orchestrator) Run(ctx context.Context, need string, reqs []model.Requirement) (*model.ShortlistRun, error) {
	start := time.Now()

	run, err := o.store.CreateRun(ctx, need, reqs)
	if err != nil {
		return nil, err
	}
	log := zap.L().With(zap.String("run_id", run.ID))
	log.Info("pipeline started", zap.String("need", need), zap.Int("requirements", len(reqs)))

	if err := o.store.UpdateRunStatus(ctx, run.ID, model.RunStatusProcessing); err != nil {
		return nil, err
	}
	run.Status = model.RunStatusProcessing

	if o.provider == nil {
		o.fail(ctx, run, msgSearchFailed, log)
		return run, eris.Wrap(search.ErrNotConfigured, "pipeline: no search provider")
	}

	query := search.VendorQuery(need)
	results, err := o.provider.Search(ctx, query, o.cfg.SearchCount)
	if err != nil {
		msg := msgSearchFailed
		if eris.Is(err, search.ErrQuotaExceeded) {
			msg = msgQuotaExceeded
		}
		o.fail(ctx, run, msg, log)
		return run, err
	}
	if len(results) == 0 {
		o.fail(ctx, run, msgNoResults, log)
		return run, eris.Wrapf(ErrNoResults, "query %q", query)
	}
	log.Info("search complete", zap.String("provider", o.provider.Name()), zap.Int("results", len(results)))

	urls := topURLs(results, o.cfg.ScrapeTop)
	pages := o.scraper.ScrapeAll(ctx, urls, o.cfg.ScrapeTop)
	if len(pages) == 0 {
		o.fail(ctx, run, msgNoContent, log)
		return run, eris.Wrapf(ErrNoContent, "%d urls attempted", len(urls))
	}
	log.Info("scrape complete", zap.Int("attempted", len(urls)), zap.Int("scraped", len(pages)))

	vendors, err := o.analyzer.Analyze(ctx, need, reqs, pages)
	if err != nil {
		o.fail(ctx, run, msgAnalyzeFailed, log)
		return run, err
	}
	sort.SliceStable(vendors, func(i, j int) bool {
		return vendors[i].OverallScore > vendors[j].OverallScore
	})

	if err := o.store.InsertVendors(ctx, run.ID, vendors); err != nil {
		o.fail(ctx, run, "Failed to save results", log)
		return run, err
	}

	elapsed := time.Since(start).Milliseconds()
	if err := o.store.CompleteRun(ctx, run.ID, elapsed); err != nil {
		return run, err
	}
	run.Status = model.RunStatusCompleted
	run.Vendors = vendors
	run.ProcessingMs = elapsed
	log.Info("pipeline complete", zap.Int("vendors", len(vendors)), zap.Int64("elapsed_ms", elapsed))
	return run, nil
}

// fail records a terminal failure on the run. Persisting the failure is
// best effort: the pipeline error matters more than the bookkeeping.
func (o *Orchestrator) fail(ctx context.Context, run *model.ShortlistRun, message string, log *zap.Logger) {
	run.Status = model.RunStatusFailed
	run.ErrorMessage = message
	if err := o.store.FailRun(ctx, run.ID, message); err != nil {
		log.Warn("could not record run failure", zap.String("message", message), zap.Error(err))
		return
	}
	log.Warn("pipeline failed", zap.String("message", message))
}

// topURLs returns the first n distinct result URLs in rank order.
func topURLs(results []model.SearchResult, n int) []string {
	seen := make(map[string]struct{}, n)
	urls := make([]string, 0, n)
	for _, r := range results {
		if r.URL == "" {
			continue
		}
		if _, ok := seen[r.URL]; ok {
			continue
		}
		seen[r.URL] = struct{}{}
		urls = append(urls, r.URL)
		if len(urls) == n {
			break
		}
	}
	return urls
}
