package search

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/sells-group/shortlist-cli/internal/model"
	"github.com/sells-group/shortlist-cli/pkg/brave"
)

// braveProvider adapts the Brave Search client to the Provider interface.
type braveProvider struct {
	client brave.Client
}

// NewBrave wraps a Brave Search client as a search Provider.
func NewBrave(client brave.Client) Provider {
	return &braveProvider{client: client}
}

func (p *braveProvider) Name() string { return "brave" }

func (p *braveProvider) Search(ctx context.Context, query string, count int) ([]model.SearchResult, error) {
	resp, err := p.client.WebSearch(ctx, query, count)
	if err != nil {
		if errors.Is(err, brave.ErrQuotaExceeded) {
			return nil, eris.Wrapf(ErrQuotaExceeded, "brave: %v", err)
		}
		return nil, eris.Wrap(err, "search: brave")
	}

	results := make([]model.SearchResult, 0, len(resp.Web.Results))
	for i, r := range resp.Web.Results {
		results = append(results, model.SearchResult{
			Title:     r.Title,
			URL:       r.URL,
			Snippet:   r.Description,
			Relevance: float64(i + 1),
		})
	}
	return results, nil
}
