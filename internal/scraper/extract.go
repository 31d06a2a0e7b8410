package scraper

import (
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/sells-group/shortlist-cli/internal/model"
)

// contentSelectors are tried in order; the first non-empty match wins.
var contentSelectors = []string{
	"main",
	"article",
	`[role="main"]`,
	".content",
	"#content",
	".main-content",
	"body",
}

var pricingKeywords = []string{
	"pricing", "price", "plan", "cost", "$", "€", "£", "free", "paid",
}

var priceRe = regexp.MustCompile(`\$\d+(?:,\d{3})*(?:\.\d{2})?`)

var whitespaceRe = regexp.MustCompile(`\s+`)

const maxContentLen = 5000

// extractPage parses vendor page HTML into a ScrapedPage.
func extractPage(pageURL string, r io.Reader) (*model.ScrapedPage, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, eris.Wrapf(err, "scraper: parse html %s", pageURL)
	}

	doc.Find("script, style, nav, footer, header").Remove()

	page := &model.ScrapedPage{
		URL:      pageURL,
		Title:    extractTitle(doc),
		Content:  extractContent(doc),
		Pricing:  extractPricing(doc),
		Features: extractFeatures(doc),
	}
	return page, nil
}

func extractTitle(doc *goquery.Document) string {
	if t := strings.TrimSpace(doc.Find("title").Text()); t != "" {
		return t
	}
	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}
	return "Untitled"
}

func extractContent(doc *goquery.Document) string {
	for _, sel := range contentSelectors {
		el := doc.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		if text := collapse(el.Text()); text != "" {
			return text
		}
	}
	return collapse(doc.Find("body").Text())
}

func extractPricing(doc *goquery.Document) *model.PricingGuess {
	var text string
	doc.Find("*").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		lower := strings.ToLower(s.Text())
		for _, kw := range pricingKeywords {
			if strings.Contains(lower, kw) {
				text = whitespaceRe.ReplaceAllString(strings.TrimSpace(s.Text()), " ")
				return false
			}
		}
		return true
	})
	if text == "" {
		return nil
	}

	priceRange := "See website"
	if matches := priceRe.FindAllString(text, -1); matches != nil {
		priceRange = strings.Join(matches, " - ")
	}

	return &model.PricingGuess{
		Model:    classifyPricingModel(text),
		Range:    priceRange,
		Currency: "USD",
	}
}

func classifyPricingModel(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "per user") || strings.Contains(lower, "per seat"):
		return "Per User"
	case strings.Contains(lower, "per month"):
		return "Monthly"
	case strings.Contains(lower, "per year") || strings.Contains(lower, "annual"):
		return "Annual"
	case strings.Contains(lower, "usage") || strings.Contains(lower, "pay as you go"):
		return "Usage-based"
	case strings.Contains(lower, "free"):
		return "Freemium"
	case strings.Contains(lower, "tier"):
		return "Tiered"
	default:
		return "Contact Sales"
	}
}

func extractFeatures(doc *goquery.Document) []string {
	var features []string
	doc.Find("ul, ol").Each(func(_ int, list *goquery.Selection) {
		lower := strings.ToLower(list.Text())
		if !strings.Contains(lower, "feature") &&
			!strings.Contains(lower, "include") &&
			!strings.Contains(lower, "capability") {
			return
		}
		list.Find("li").Each(func(_ int, item *goquery.Selection) {
			f := strings.TrimSpace(item.Text())
			if f == "" || len(f) >= 200 || strings.Contains(strings.ToLower(f), "learn more") {
				return
			}
			features = append(features, f)
		})
	})
	if len(features) > 10 {
		features = features[:10]
	}
	return features
}

// collapse trims, squeezes whitespace, and caps content length.
func collapse(s string) string {
	s = whitespaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
	return truncate(s, maxContentLen)
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
