package sites

import (
	"strings"

	"github.com/Saeid202/product-importer/internal/browser"
)

// NewAliExpress returns the AliExpress listing and product page scraper.
func NewAliExpress(b *browser.Browser) Scraper {
	return New(b, Profile{
		Site:     "AliExpress",
		BaseURL:  "https://www.aliexpress.com",
		Currency: "USD",
		IsSearchPage: func(url string) bool {
			return strings.Contains(url, "/wholesale") || strings.Contains(url, "/search") || strings.Contains(url, "SearchText=")
		},
		ItemSelectors: []string{
			".list--gallery--C2f2tvm",
			"[data-product-id]",
			".gallery-offer-card",
			".list-item",
		},
		ItemTitleSelectors: []string{
			"h1",
			"h3",
			`[class*="title"]`,
			"a",
		},
		ItemPriceSelectors: []string{
			".price-current",
			`[class*="price"]`,
		},
		TitleSelectors: []string{
			"h1.product-title-text",
			"h1",
		},
		PriceSelectors: []string{
			".notranslate",
			".price-current",
		},
		DescriptionSelectors: []string{
			".product-description",
			`[class*="description"]`,
		},
		ImageSelectors: []string{
			".images-view-item img",
			".magnifier-image",
		},
		RatingSelectors: []string{
			".overview-rating-average",
		},
		ReviewCountSelectors: []string{
			".product-reviewer-reviews",
		},
	})
}
