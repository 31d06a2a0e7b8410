package search

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/sells-group/shortlist-cli/internal/model"
	"github.com/sells-group/shortlist-cli/pkg/serpapi"
)

// serpapiProvider adapts the SerpAPI client to the Provider interface.
type serpapiProvider struct {
	client serpapi.Client
}

// NewSerpAPI wraps a SerpAPI client as a search Provider.
func NewSerpAPI(client serpapi.Client) Provider {
	return &serpapiProvider{client: client}
}

func (p *serpapiProvider) Name() string { return "serpapi" }

func (p *serpapiProvider) Search(ctx context.Context, query string, count int) ([]model.SearchResult, error) {
	resp, err := p.client.Search(ctx, query, count)
	if err != nil {
		if errors.Is(err, serpapi.ErrQuotaExceeded) {
			return nil, eris.Wrapf(ErrQuotaExceeded, "serpapi: %v", err)
		}
		return nil, eris.Wrap(err, "search: serpapi")
	}

	results := make([]model.SearchResult, 0, len(resp.OrganicResults))
	for _, r := range resp.OrganicResults {
		results = append(results, model.SearchResult{
			Title:     r.Title,
			URL:       r.Link,
			Snippet:   r.Snippet,
			Relevance: float64(r.Position),
		})
	}
	return results, nil
}
