package analyzer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVendorAnalysis(t *testing.T) {
	t.Parallel()

	text := `[
		{
			"name": "Acme CRM",
			"website": "https://acme.example",
			"description": "CRM platform",
			"priceRange": "$49-$199/month",
			"pricingModel": "Per User",
			"currency": "USD",
			"keyFeatures": ["API", "SSO"],
			"matchedRequirements": [
				{"requirement": "Must integrate with Slack", "met": true, "evidence": "Native Slack app"}
			],
			"risks": ["No on-prem"],
			"evidenceLinks": [
				{"url": "https://acme.example/pricing", "snippet": "Starts at $49", "relevance": "high"}
			],
			"overallScore": 87,
			"requirementMatch": 92
		}
	]`

	vendors, err := parseVendorAnalysis(text)
	require.NoError(t, err)
	require.Len(t, vendors, 1)

	v := vendors[0]
	assert.NotEmpty(t, v.ID)
	assert.Equal(t, "Acme CRM", v.Name)
	assert.Equal(t, "https://acme.example", v.Website)
	assert.Equal(t, "$49-$199/month", v.PriceRange)
	assert.Equal(t, "Per User", v.PricingModel)
	assert.Equal(t, "USD", v.Currency)
	assert.Equal(t, 87.0, v.OverallScore)
	assert.Equal(t, 92.0, v.RequirementMatch)
	assert.Equal(t, []string{"API", "SSO"}, v.KeyFeatures)
	require.Len(t, v.MatchedRequirements, 1)
	assert.True(t, v.MatchedRequirements[0].Met)
	assert.Equal(t, "Native Slack app", v.MatchedRequirements[0].Evidence)
	require.Len(t, v.EvidenceLinks, 1)
	assert.Equal(t, "https://acme.example/pricing", v.EvidenceLinks[0].URL)
	assert.Equal(t, []string{"No on-prem"}, v.Risks)
}

func TestParseVendorAnalysisFenced(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
	}{
		{"json fence", "```json\n[{\"name\":\"Acme\"}]\n```"},
		{"bare fence", "```\n[{\"name\":\"Acme\"}]\n```"},
		{"leading prose", "Here is the analysis:\n[{\"name\":\"Acme\"}]\nDone."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			vendors, err := parseVendorAnalysis(tt.text)
			require.NoError(t, err)
			require.Len(t, vendors, 1)
			assert.Equal(t, "Acme", vendors[0].Name)
		})
	}
}

func TestParseVendorAnalysisDefaults(t *testing.T) {
	t.Parallel()

	vendors, err := parseVendorAnalysis(`[{}]`)
	require.NoError(t, err)
	require.Len(t, vendors, 1)

	v := vendors[0]
	assert.Equal(t, "Unknown Vendor", v.Name)
	assert.Empty(t, v.Website)
	assert.Empty(t, v.Description)
	assert.Equal(t, "Contact Sales", v.PriceRange)
	assert.Equal(t, "Contact Sales", v.PricingModel)
	assert.Equal(t, "USD", v.Currency)
	assert.Zero(t, v.OverallScore)
	assert.Zero(t, v.RequirementMatch)
	assert.Empty(t, v.KeyFeatures)
	assert.Empty(t, v.MatchedRequirements)
	assert.Empty(t, v.EvidenceLinks)
	assert.Empty(t, v.Risks)
}

func TestParseVendorAnalysisClampsScores(t *testing.T) {
	t.Parallel()

	vendors, err := parseVendorAnalysis(`[{"overallScore": 140, "requirementMatch": -10}]`)
	require.NoError(t, err)
	require.Len(t, vendors, 1)
	assert.Equal(t, 100.0, vendors[0].OverallScore)
	assert.Equal(t, 0.0, vendors[0].RequirementMatch)
}

func TestParseVendorAnalysisCurrency(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{`"EUR"`, "EUR"},
		{`"eur"`, "EUR"},
		{`"DOLLARS"`, "USD"},
		{`""`, "USD"},
		{`123`, "USD"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			vendors, err := parseVendorAnalysis(`[{"currency": ` + tt.in + `}]`)
			require.NoError(t, err)
			assert.Equal(t, tt.want, vendors[0].Currency)
		})
	}
}

func TestParseVendorAnalysisNotArray(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
	}{
		{"object", `{"name":"Acme"}`},
		{"prose", "I could not find any vendors."},
		{"empty", ""},
		{"broken json", `[{"name": "Acme"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := parseVendorAnalysis(tt.text)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnparsableAnalysis))
		})
	}
}

func TestParseVendorAnalysisEmptyArray(t *testing.T) {
	t.Parallel()

	vendors, err := parseVendorAnalysis(`[]`)
	require.NoError(t, err)
	assert.Empty(t, vendors)
}

func TestParseStringArray(t *testing.T) {
	t.Parallel()

	names, err := parseStringArray("```json\n[\"Asana\", \"Linear\"]\n```")
	require.NoError(t, err)
	assert.Equal(t, []string{"Asana", "Linear"}, names)

	_, err = parseStringArray("no list here")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnparsableAnalysis))
}
