package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Search    SearchConfig    `yaml:"search" mapstructure:"search"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Notion    NotionConfig    `yaml:"notion" mapstructure:"notion"`
	Scrape    ScrapeConfig    `yaml:"scrape" mapstructure:"scrape"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// SearchConfig selects and configures the web search provider.
type SearchConfig struct {
	Provider  string          `yaml:"provider" mapstructure:"provider"`
	SerpAPI   SerpAPIConfig   `yaml:"serpapi" mapstructure:"serpapi"`
	Brave     BraveConfig     `yaml:"brave" mapstructure:"brave"`
	GoogleCSE GoogleCSEConfig `yaml:"google_cse" mapstructure:"google_cse"`
}

// SerpAPIConfig holds SerpAPI credentials.
type SerpAPIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// BraveConfig holds Brave Search API credentials.
type BraveConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// GoogleCSEConfig holds Google Custom Search credentials.
type GoogleCSEConfig struct {
	Key      string `yaml:"key" mapstructure:"key"`
	EngineID string `yaml:"engine_id" mapstructure:"engine_id"`
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// NotionConfig holds Notion API credentials for shortlist export.
type NotionConfig struct {
	Token    string `yaml:"token" mapstructure:"token"`
	VendorDB string `yaml:"vendor_db" mapstructure:"vendor_db"`
}

// ScrapeConfig configures vendor page scraping.
type ScrapeConfig struct {
	TimeoutSecs   int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxBodyBytes  int64   `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RatePerSec    float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	CacheTTLHours int     `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
}

// PipelineConfig configures shortlist runs.
type PipelineConfig struct {
	SearchCount int `yaml:"search_count" mapstructure:"search_count"`
	ScrapeTop   int `yaml:"scrape_top" mapstructure:"scrape_top"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SHORTLIST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("search.provider", "serpapi")
	v.SetDefault("search.serpapi.base_url", "https://serpapi.com")
	v.SetDefault("search.brave.base_url", "https://api.search.brave.com")
	v.SetDefault("search.google_cse.base_url", "https://www.googleapis.com")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("scrape.timeout_secs", 10)
	v.SetDefault("scrape.max_body_bytes", 512*1024)
	v.SetDefault("scrape.rate_per_sec", 4)
	v.SetDefault("scrape.cache_ttl_hours", 24)
	v.SetDefault("pipeline.search_count", 10)
	v.SetDefault("pipeline.scrape_top", 6)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the configuration is usable for the given mode.
// Modes: "run" (full pipeline), "serve" (HTTP server), "export" (notion/xlsx).
//
// Serve mode does not require provider credentials: the server starts
// without them and reports the affected services as down on /health,
// so a missing key is a per-request error rather than a crash loop.
func (c *Config) Validate(mode string) error {
	var missing []string

	checkStore := func() {
		if c.Store.DatabaseURL == "" && c.Store.Driver != "sqlite" {
			missing = append(missing, "store.database_url is required")
		}
	}

	checkProviderName := func() {
		switch c.Search.Provider {
		case "serpapi", "brave", "google_cse":
		default:
			missing = append(missing, "search.provider must be one of serpapi, brave, google_cse")
		}
	}

	checkCredentials := func() {
		if c.Anthropic.Key == "" {
			missing = append(missing, "anthropic.key is required")
		}
		switch c.Search.Provider {
		case "serpapi":
			if c.Search.SerpAPI.Key == "" {
				missing = append(missing, "search.serpapi.key is required")
			}
		case "brave":
			if c.Search.Brave.Key == "" {
				missing = append(missing, "search.brave.key is required")
			}
		case "google_cse":
			if c.Search.GoogleCSE.Key == "" {
				missing = append(missing, "search.google_cse.key is required")
			}
			if c.Search.GoogleCSE.EngineID == "" {
				missing = append(missing, "search.google_cse.engine_id is required")
			}
		}
	}

	switch mode {
	case "run":
		checkStore()
		checkProviderName()
		checkCredentials()
	case "serve":
		checkStore()
		checkProviderName()
		if c.Server.Port <= 0 {
			missing = append(missing, "server.port must be > 0")
		}
	case "export":
		checkStore()
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Pipeline.SearchCount <= 0 {
		missing = append(missing, "pipeline.search_count must be > 0")
	}
	if c.Pipeline.ScrapeTop <= 0 {
		missing = append(missing, "pipeline.scrape_top must be > 0")
	}

	if len(missing) > 0 {
		return eris.Errorf("config: %s", strings.Join(missing, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
