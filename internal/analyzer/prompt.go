package analyzer

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sells-group/shortlist-cli/internal/model"
)

const analysisPrompt = `You are a vendor analysis expert. Analyze these vendors for the following need and requirements.

NEED: %s

REQUIREMENTS:
%s

VENDOR DATA:
%s

Your task:
1. For each vendor, analyze how well they meet the requirements
2. Extract pricing information (range, model, currency)
3. Identify key features that match the requirements
4. Note any risks, limitations, or concerns
5. Provide evidence (quotes from the content) for your analysis
6. Score each vendor (0-100) based on requirement match

Return your analysis as a JSON array with this EXACT structure:
[
  {
    "name": "Vendor Name",
    "website": "https://...",
    "description": "Brief description",
    "priceRange": "$10-50/month or Contact Sales",
    "pricingModel": "Per User/Monthly/Annual/Usage-based/Freemium",
    "currency": "USD",
    "keyFeatures": ["feature1", "feature2", "feature3"],
    "matchedRequirements": [
      {
        "requirement": "requirement description",
        "met": true,
        "evidence": "Quote from content showing this"
      }
    ],
    "risks": ["risk1", "risk2"],
    "evidenceLinks": [
      {
        "url": "source url",
        "snippet": "relevant quote",
        "relevance": "high",
        "timestamp": "%s"
      }
    ],
    "overallScore": 85,
    "requirementMatch": 90
  }
]

IMPORTANT:
- Only include vendors that are clearly relevant to the need
- Be honest about limitations and risks
- Use actual quotes from the content as evidence
- If pricing is not found, use "Contact Sales"
- Scores should be realistic (50-95 range)
- Return ONLY valid JSON, no markdown formatting, no backticks, no explanation`

const suggestionPrompt = `Given this need: "%s"

Suggest 5-8 well-known vendors/services that could fulfill this need.
Return ONLY a JSON array of vendor names, nothing else.

Example format: ["Vendor1", "Vendor2", "Vendor3"]`

// vendorContentLimit caps per-vendor page content in the prompt.
const vendorContentLimit = 2000

func buildAnalysisPrompt(need string, reqs []model.Requirement, pages []model.ScrapedPage) string {
	return fmt.Sprintf(analysisPrompt,
		need,
		formatRequirements(reqs),
		formatVendorData(pages),
		time.Now().UTC().Format(time.RFC3339),
	)
}

func buildSuggestionPrompt(need string) string {
	return fmt.Sprintf(suggestionPrompt, need)
}

func formatRequirements(reqs []model.Requirement) string {
	lines := make([]string, 0, len(reqs))
	for i, req := range reqs {
		weight := req.Weight
		if weight == 0 {
			weight = 5
		}
		lines = append(lines, fmt.Sprintf("%d. [%s] %s (Weight: %d/10)",
			i+1, strings.ToUpper(string(req.Priority)), req.Description, weight))
	}
	return strings.Join(lines, "\n")
}

// truncate cuts s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

func formatVendorData(pages []model.ScrapedPage) string {
	blocks := make([]string, 0, len(pages))
	for i, page := range pages {
		content := truncate(page.Content, vendorContentLimit)

		var b strings.Builder
		fmt.Fprintf(&b, "=== VENDOR %d: %s ===\n", i+1, page.Title)
		fmt.Fprintf(&b, "Website: %s\n", page.URL)
		fmt.Fprintf(&b, "Content: %s\n", content)
		if page.Pricing != nil {
			if raw, err := json.Marshal(page.Pricing); err == nil {
				fmt.Fprintf(&b, "Pricing: %s\n", raw)
			}
		}
		if len(page.Features) > 0 {
			fmt.Fprintf(&b, "Features: %s\n", strings.Join(page.Features, ", "))
		}
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n")
}
