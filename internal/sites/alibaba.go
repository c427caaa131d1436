package sites

import (
	"github.com/Saeid202/product-importer/internal/browser"
)

// NewAlibaba returns the Alibaba listing scraper. Alibaba URLs are always
// treated as listing pages.
func NewAlibaba(b *browser.Browser) Scraper {
	return New(b, Profile{
		Site:    "Alibaba",
		BaseURL: "https://www.alibaba.com",
		ItemSelectors: []string{
			".organic-gallery-offer-card",
			".gallery-offer-card",
			`[data-content="product"]`,
			".offer-card",
			".product-card",
		},
		ItemTitleSelectors: []string{
			".element-title-normal_content",
			".element-title",
			".title",
			"h2",
			"h3",
			`[class*="title"]`,
		},
		ItemPriceSelectors: []string{
			".element-offer-price-normal_price",
			".price",
			`[class*="price"]`,
			`[class*="Price"]`,
		},
	})
}
