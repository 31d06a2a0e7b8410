// Package analyzer turns scraped vendor pages into scored vendor records
// using a single LLM comparison call.
package analyzer

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/shortlist-cli/internal/config"
	"github.com/sells-group/shortlist-cli/internal/model"
	"github.com/sells-group/shortlist-cli/pkg/anthropic"
)

// ErrNotConfigured indicates the Anthropic API key is missing.
var ErrNotConfigured = eris.New("analyzer: anthropic key not configured")

// ErrUnparsableAnalysis indicates the model reply was not a JSON array.
var ErrUnparsableAnalysis = eris.New("analyzer: response is not a JSON array")

// Analyzer compares scraped vendor pages against buyer requirements.
type Analyzer struct {
	client anthropic.Client
	cfg    config.AnthropicConfig
}

// New creates an Analyzer backed by the given Anthropic client.
func New(client anthropic.Client, cfg config.AnthropicConfig) *Analyzer {
	return &Analyzer{client: client, cfg: cfg}
}

// Analyze sends one comparison request covering every scraped page and
// returns the parsed vendor records. Scores are clamped to 0-100 and
// missing fields are defaulted; a reply that is not a JSON array is an
// ErrUnparsableAnalysis.
func (a *Analyzer) Analyze(ctx context.Context, need string, reqs []model.Requirement, pages []model.ScrapedPage) ([]model.VendorRecord, error) {
	if a.cfg.Key == "" {
		return nil, ErrNotConfigured
	}
	prompt := buildAnalysisPrompt(need, reqs, pages)

	resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     a.cfg.Model,
		MaxTokens: int64(a.cfg.MaxTokens),
		Messages: []anthropic.Message{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "analyzer: analysis request")
	}
	resp.Usage.LogCost(a.cfg.Model, "analyze")

	vendors, err := parseVendorAnalysis(extractText(resp))
	if err != nil {
		return nil, err
	}

	zap.L().Info("analyzer: analysis complete",
		zap.Int("pages", len(pages)),
		zap.Int("vendors", len(vendors)),
	)
	return vendors, nil
}

// SuggestVendors asks the model for 5-8 well-known vendor names for a need.
// Failures degrade to an empty list.
func (a *Analyzer) SuggestVendors(ctx context.Context, need string) ([]string, error) {
	if a.cfg.Key == "" {
		return nil, nil
	}
	resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     a.cfg.Model,
		MaxTokens: int64(a.cfg.MaxTokens),
		Messages: []anthropic.Message{
			{Role: "user", Content: buildSuggestionPrompt(need)},
		},
	})
	if err != nil {
		zap.L().Warn("analyzer: vendor suggestion failed", zap.Error(err))
		return nil, nil
	}
	resp.Usage.LogCost(a.cfg.Model, "suggest")

	names, err := parseStringArray(extractText(resp))
	if err != nil {
		zap.L().Warn("analyzer: vendor suggestion unparsable", zap.Error(err))
		return nil, nil
	}
	return names, nil
}

// Ping issues a minimal request to verify API reachability.
func (a *Analyzer) Ping(ctx context.Context, timeout time.Duration) error {
	if a.cfg.Key == "" {
		return ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     a.cfg.Model,
		MaxTokens: 8,
		Messages: []anthropic.Message{
			{Role: "user", Content: "ping"},
		},
	})
	if err != nil {
		return eris.Wrap(err, "analyzer: ping")
	}
	return nil
}

func extractText(resp *anthropic.MessageResponse) string {
	if resp == nil {
		return ""
	}
	var parts []string
	for _, block := range resp.Content {
		if block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}
