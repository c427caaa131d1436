package sites

import (
	"strings"

	"github.com/Saeid202/product-importer/internal/browser"
)

// NewAmazon returns the Amazon listing and product page scraper.
func NewAmazon(b *browser.Browser) Scraper {
	return New(b, Profile{
		Site:     "Amazon",
		BaseURL:  "https://www.amazon.com",
		Currency: "USD",
		IsSearchPage: func(url string) bool {
			return strings.Contains(url, "s?") || strings.Contains(url, "/s/")
		},
		ItemSelectors: []string{
			`[data-component-type="s-search-result"]`,
			".s-result-item",
			"[data-asin]",
			".s-card-container",
		},
		ItemTitleSelectors: []string{
			"h2 a",
			".s-title-instructions-style a",
		},
		ItemPriceSelectors: []string{
			".a-price .a-offscreen",
			".a-price-whole",
		},
		TitleSelectors: []string{
			"#productTitle",
			"h1.a-size-large",
		},
		PriceSelectors: []string{
			".a-price .a-offscreen",
			"#priceblock_ourprice",
			"#priceblock_dealprice",
			".a-price-whole",
			`[data-a-color="price"] .a-offscreen`,
		},
		DescriptionSelectors: []string{
			"#productDescription",
			"#feature-bullets",
		},
		ImageSelectors: []string{
			"#landingImage",
			"#imgBlkFront",
			".a-dynamic-image",
		},
		RatingSelectors: []string{
			"#acrPopover .a-icon-alt",
			".a-icon-star .a-icon-alt",
			".a-icon-alt",
		},
		ReviewCountSelectors: []string{
			"#acrCustomerReviewText",
			"#acrCustomerReviewLink",
		},
		AvailabilitySelectors: []string{
			"#availability span",
		},
	})
}
