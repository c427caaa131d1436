package sites

import (
	"github.com/Saeid202/product-importer/internal/browser"
)

// ForURL picks the scraper for a product listing URL. Unknown sites get the
// generic scraper.
func ForURL(b *browser.Browser, url string) Scraper {
	return ForSite(b, DetectSite(url))
}

// ForSite returns the scraper for a canonical site name.
func ForSite(b *browser.Browser, site string) Scraper {
	switch site {
	case "Amazon":
		return NewAmazon(b)
	case "eBay":
		return NewEbay(b)
	case "Alibaba":
		return NewAlibaba(b)
	case "AliExpress":
		return NewAliExpress(b)
	default:
		return NewGeneric(b)
	}
}
