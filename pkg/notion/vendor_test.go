package notion

import (
	"context"
	"strings"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/shortlist-cli/internal/model"
)

// fakeClient records the last page create request.
type fakeClient struct {
	lastReq *notionapi.PageCreateRequest
	err     error
}

func (f *fakeClient) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &notionapi.Page{ID: "page-1"}, nil
}

func TestExportVendor(t *testing.T) {
	fake := &fakeClient{}
	v := model.VendorRecord{
		Name:             "Acme CRM",
		Website:          "https://acme.example",
		Description:      "CRM for mid-market teams",
		PriceRange:       "$49 - $199",
		PricingModel:     "Per User",
		Currency:         "USD",
		OverallScore:     87,
		RequirementMatch: 92,
		KeyFeatures:      []string{"API access", "SSO"},
		Risks:            []string{"No on-prem option"},
	}

	page, err := ExportVendor(context.Background(), fake, "db-1", v)
	require.NoError(t, err)
	assert.Equal(t, notionapi.ObjectID("page-1"), page.ID)

	require.NotNil(t, fake.lastReq)
	assert.Equal(t, notionapi.DatabaseID("db-1"), fake.lastReq.Parent.DatabaseID)

	title := fake.lastReq.Properties["Name"].(notionapi.TitleProperty)
	require.Len(t, title.Title, 1)
	assert.Equal(t, "Acme CRM", title.Title[0].Text.Content)

	score := fake.lastReq.Properties["Overall Score"].(notionapi.NumberProperty)
	assert.Equal(t, 87.0, score.Number)

	features := fake.lastReq.Properties["Key Features"].(notionapi.RichTextProperty)
	assert.Equal(t, "API access, SSO", features.RichText[0].Text.Content)
}

func TestExportVendorTruncatesLongText(t *testing.T) {
	fake := &fakeClient{}
	v := model.VendorRecord{
		Name:        "Acme",
		Description: strings.Repeat("x", 5000),
	}

	_, err := ExportVendor(context.Background(), fake, "db-1", v)
	require.NoError(t, err)

	desc := fake.lastReq.Properties["Description"].(notionapi.RichTextProperty)
	assert.Len(t, desc.RichText[0].Text.Content, 2000)
}
