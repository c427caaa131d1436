package sites

import (
	"strings"

	"github.com/Saeid202/product-importer/internal/browser"
)

// NewEbay returns the eBay listing and product page scraper.
func NewEbay(b *browser.Browser) Scraper {
	return New(b, Profile{
		Site:     "eBay",
		BaseURL:  "https://www.ebay.com",
		Currency: "USD",
		IsSearchPage: func(url string) bool {
			return strings.Contains(url, "/sch/") || strings.Contains(url, "/b/") || strings.Contains(url, "nkw=")
		},
		ItemSelectors: []string{
			".s-item",
			"[data-view]",
			".srp-results .s-item",
		},
		ItemTitleSelectors: []string{
			"h3 a",
			".s-item__title a",
			".s-item__link",
		},
		ItemPriceSelectors: []string{
			".s-item__price",
			".s-item__detail--primary",
		},
		TitleSelectors: []string{
			"#x-item-title-label",
			"h1.it-ttl",
		},
		PriceSelectors: []string{
			"#prcIsum",
			".notranslate",
			"#mm-saleDscPrc",
		},
		DescriptionSelectors: []string{
			"#desc_wrapper_ctr",
			".u-flL.condText",
		},
		ImageSelectors: []string{
			"#vi_main_img_fs img",
			"#icImg",
		},
		AvailabilitySelectors: []string{
			"#qtySubTxt",
			".u-flL.condText",
		},
	})
}
