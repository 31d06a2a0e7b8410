// Package search selects and adapts web search providers for vendor discovery.
package search

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/shortlist-cli/internal/model"
)

// Provider performs a web search and returns normalized results.
type Provider interface {
	// Search returns up to count results for the query. An empty slice with
	// a nil error means the query legitimately matched nothing.
	Search(ctx context.Context, query string, count int) ([]model.SearchResult, error)
	// Name identifies the provider for logging and health reporting.
	Name() string
}

// ErrNotConfigured indicates the selected provider is missing credentials.
var ErrNotConfigured = eris.New("search: provider not configured")

// ErrQuotaExceeded indicates the provider's plan ran out of searches.
// The message carries the provider's own explanation for surfacing to users.
var ErrQuotaExceeded = eris.New("search: quota exceeded")

// VendorQuery builds the discovery query for a buyer need.
func VendorQuery(need string) string {
	return need + " vendors pricing features comparison"
}

// PricingQuery builds a follow-up query about a vendor's pricing.
func PricingQuery(vendor string) string {
	return vendor + " pricing plans cost"
}

// FeatureQuery builds a follow-up query about a vendor's capabilities.
func FeatureQuery(vendor string) string {
	return vendor + " features capabilities specifications"
}

// ReviewQuery builds a follow-up query about a vendor's known problems.
func ReviewQuery(vendor string) string {
	return vendor + " reviews limitations problems issues"
}
