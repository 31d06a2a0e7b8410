package search

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/sells-group/shortlist-cli/internal/model"
	"github.com/sells-group/shortlist-cli/pkg/googlecse"
)

// cseProvider adapts the Google Custom Search client to the Provider interface.
type cseProvider struct {
	client googlecse.Client
}

// NewGoogleCSE wraps a Google Custom Search client as a search Provider.
func NewGoogleCSE(client googlecse.Client) Provider {
	return &cseProvider{client: client}
}

func (p *cseProvider) Name() string { return "google_cse" }

func (p *cseProvider) Search(ctx context.Context, query string, count int) ([]model.SearchResult, error) {
	resp, err := p.client.Search(ctx, query, count)
	if err != nil {
		if errors.Is(err, googlecse.ErrQuotaExceeded) {
			return nil, eris.Wrapf(ErrQuotaExceeded, "google_cse: %v", err)
		}
		return nil, eris.Wrap(err, "search: google_cse")
	}

	results := make([]model.SearchResult, 0, len(resp.Items))
	for i, r := range resp.Items {
		results = append(results, model.SearchResult{
			Title:     r.Title,
			URL:       r.Link,
			Snippet:   r.Snippet,
			Relevance: float64(i + 1),
		})
	}
	return results, nil
}
