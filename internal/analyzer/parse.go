package analyzer

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"golang.org/x/text/currency"

	"github.com/sells-group/shortlist-cli/internal/model"
)

// parseVendorAnalysis decodes the model reply into vendor records.
// Missing fields are defaulted rather than rejected; only a reply that
// fails to decode as a JSON array is an error.
func parseVendorAnalysis(text string) ([]model.VendorRecord, error) {
	cleaned := cleanJSONArray(text)

	var raw []map[string]any
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, eris.Wrapf(ErrUnparsableAnalysis, "%v", err)
	}

	vendors := make([]model.VendorRecord, 0, len(raw))
	for _, v := range raw {
		vendors = append(vendors, model.VendorRecord{
			ID:                  uuid.New().String(),
			Name:                stringOr(v["name"], "Unknown Vendor"),
			Website:             stringOr(v["website"], ""),
			Description:         stringOr(v["description"], ""),
			PriceRange:          stringOr(v["priceRange"], "Contact Sales"),
			PricingModel:        stringOr(v["pricingModel"], "Contact Sales"),
			Currency:            currencyOr(v["currency"], "USD"),
			OverallScore:        model.ClampScore(floatOr(v["overallScore"])),
			RequirementMatch:    model.ClampScore(floatOr(v["requirementMatch"])),
			MatchedRequirements: matchedRequirements(v["matchedRequirements"]),
			KeyFeatures:         stringSlice(v["keyFeatures"]),
			EvidenceLinks:       evidenceLinks(v["evidenceLinks"]),
			Risks:               stringSlice(v["risks"]),
		})
	}
	return vendors, nil
}

// parseStringArray decodes a bare JSON array of strings.
func parseStringArray(text string) ([]string, error) {
	cleaned := cleanJSONArray(text)

	var out []string
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return nil, eris.Wrapf(ErrUnparsableAnalysis, "%v", err)
	}
	return out, nil
}

// cleanJSONArray strips markdown fences and isolates the outermost array.
func cleanJSONArray(text string) string {
	text = strings.TrimSpace(text)

	// Strip markdown code fences.
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	// Find first [ and last ].
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

func stringOr(v any, fallback string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return fallback
}

// currencyOr validates a currency code against ISO 4217.
func currencyOr(v any, fallback string) string {
	s, ok := v.(string)
	if !ok || s == "" {
		return fallback
	}
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(s)))
	if err != nil {
		return fallback
	}
	return unit.String()
}

func floatOr(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func matchedRequirements(v any) []model.MatchedRequirement {
	items, ok := v.([]any)
	if !ok {
		return []model.MatchedRequirement{}
	}
	out := make([]model.MatchedRequirement, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		met, _ := m["met"].(bool)
		out = append(out, model.MatchedRequirement{
			Requirement: stringOr(m["requirement"], ""),
			Met:         met,
			Evidence:    stringOr(m["evidence"], ""),
		})
	}
	return out
}

func evidenceLinks(v any) []model.EvidenceLink {
	items, ok := v.([]any)
	if !ok {
		return []model.EvidenceLink{}
	}
	out := make([]model.EvidenceLink, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, model.EvidenceLink{
			URL:       stringOr(m["url"], ""),
			Snippet:   stringOr(m["snippet"], ""),
			Relevance: stringOr(m["relevance"], ""),
			Timestamp: stringOr(m["timestamp"], ""),
		})
	}
	return out
}
