package search

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/shortlist-cli/internal/config"
	"github.com/sells-group/shortlist-cli/pkg/brave"
	"github.com/sells-group/shortlist-cli/pkg/googlecse"
	"github.com/sells-group/shortlist-cli/pkg/serpapi"
)

// New builds the Provider named by cfg.Provider. Missing credentials for
// the selected provider fail here, not on first use.
func New(cfg config.SearchConfig) (Provider, error) {
	switch cfg.Provider {
	case "serpapi":
		if cfg.SerpAPI.Key == "" {
			return nil, eris.Wrap(ErrNotConfigured, "serpapi key missing")
		}
		var opts []serpapi.Option
		if cfg.SerpAPI.BaseURL != "" {
			opts = append(opts, serpapi.WithBaseURL(cfg.SerpAPI.BaseURL))
		}
		return NewSerpAPI(serpapi.NewClient(cfg.SerpAPI.Key, opts...)), nil

	case "brave":
		if cfg.Brave.Key == "" {
			return nil, eris.Wrap(ErrNotConfigured, "brave key missing")
		}
		var opts []brave.Option
		if cfg.Brave.BaseURL != "" {
			opts = append(opts, brave.WithBaseURL(cfg.Brave.BaseURL))
		}
		return NewBrave(brave.NewClient(cfg.Brave.Key, opts...)), nil

	case "google_cse":
		if cfg.GoogleCSE.Key == "" || cfg.GoogleCSE.EngineID == "" {
			return nil, eris.Wrap(ErrNotConfigured, "google_cse key or engine_id missing")
		}
		var opts []googlecse.Option
		if cfg.GoogleCSE.BaseURL != "" {
			opts = append(opts, googlecse.WithBaseURL(cfg.GoogleCSE.BaseURL))
		}
		return NewGoogleCSE(googlecse.NewClient(cfg.GoogleCSE.Key, cfg.GoogleCSE.EngineID, opts...)), nil

	default:
		return nil, eris.Errorf("search: unknown provider %q", cfg.Provider)
	}
}
