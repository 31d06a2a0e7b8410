package notion

import (
	"context"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"

	"github.com/sells-group/shortlist-cli/internal/model"
)

// ExportVendor creates one page in the vendor database for an analyzed vendor.
func ExportVendor(ctx context.Context, c Client, dbID string, v model.VendorRecord) (*notionapi.Page, error) {
	req := &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(dbID),
		},
		Properties: vendorProperties(v),
	}

	page, err := c.CreatePage(ctx, req)
	if err != nil {
		return nil, eris.Wrapf(err, "notion: export vendor %s", v.Name)
	}
	return page, nil
}

func vendorProperties(v model.VendorRecord) notionapi.Properties {
	props := notionapi.Properties{
		"Name": notionapi.TitleProperty{
			Title: richText(v.Name),
		},
		"Website": notionapi.URLProperty{
			URL: v.Website,
		},
		"Description": notionapi.RichTextProperty{
			RichText: richText(v.Description),
		},
		"Price Range": notionapi.RichTextProperty{
			RichText: richText(v.PriceRange),
		},
		"Pricing Model": notionapi.SelectProperty{
			Select: notionapi.Option{Name: v.PricingModel},
		},
		"Currency": notionapi.SelectProperty{
			Select: notionapi.Option{Name: v.Currency},
		},
		"Overall Score": notionapi.NumberProperty{
			Number: v.OverallScore,
		},
		"Requirement Match": notionapi.NumberProperty{
			Number: v.RequirementMatch,
		},
	}

	if len(v.KeyFeatures) > 0 {
		props["Key Features"] = notionapi.RichTextProperty{
			RichText: richText(strings.Join(v.KeyFeatures, ", ")),
		}
	}
	if len(v.Risks) > 0 {
		props["Risks"] = notionapi.RichTextProperty{
			RichText: richText(strings.Join(v.Risks, "; ")),
		}
	}

	return props
}

func richText(s string) []notionapi.RichText {
	// Notion rejects rich text blocks over 2000 chars.
	if len(s) > 2000 {
		s = s[:2000]
	}
	return []notionapi.RichText{
		{Text: &notionapi.Text{Content: s}},
	}
}
