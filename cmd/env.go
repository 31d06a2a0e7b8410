package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/shortlist-cli/internal/analyzer"
	"github.com/sells-group/shortlist-cli/internal/health"
	"github.com/sells-group/shortlist-cli/internal/pipeline"
	"github.com/sells-group/shortlist-cli/internal/scraper"
	"github.com/sells-group/shortlist-cli/internal/search"
	"github.com/sells-group/shortlist-cli/internal/store"
	anthropicpkg "github.com/sells-group/shortlist-cli/pkg/anthropic"
)

// pipelineEnv holds the initialized store, clients, and orchestrator
// shared by the run/serve/health commands.
type pipelineEnv struct {
	Store        store.Store
	Provider     search.Provider
	Analyzer     *analyzer.Analyzer
	Orchestrator *pipeline.Orchestrator
	Checker      *health.Checker
}

func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "shortlist.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, store.PoolConfig{})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initPipeline sets up the store, search provider, scraper, and analyzer,
// and builds the orchestrator. Callers should defer env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	// A missing credential is not fatal here: the env comes up with the
	// provider unset and the health checker reports the service as down.
	// Commands that need a working pipeline gate on cfg.Validate("run").
	provider, err := search.New(cfg.Search)
	if err != nil {
		if !eris.Is(err, search.ErrNotConfigured) {
			_ = st.Close()
			return nil, err
		}
		zap.L().Warn("search provider not configured", zap.Error(err))
		provider = nil
	}

	if cfg.Anthropic.Key == "" {
		zap.L().Warn("anthropic key not set; analysis requests will fail")
	}
	an := analyzer.New(anthropicpkg.NewClient(cfg.Anthropic.Key), cfg.Anthropic)

	sc := scraper.New(
		scraper.WithTimeout(time.Duration(cfg.Scrape.TimeoutSecs)*time.Second),
		scraper.WithMaxBodyBytes(cfg.Scrape.MaxBodyBytes),
		scraper.WithRateLimit(cfg.Scrape.RatePerSec),
		scraper.WithCache(st, time.Duration(cfg.Scrape.CacheTTLHours)*time.Hour),
	)

	return &pipelineEnv{
		Store:        st,
		Provider:     provider,
		Analyzer:     an,
		Orchestrator: pipeline.New(st, provider, sc, an, cfg.Pipeline),
		Checker:      health.New(st, an, provider),
	}, nil
}
