package sites

import (
	"net/url"
	"sort"
	"strings"
)

// domainMapping maps e-commerce domains to canonical site names.
var domainMapping = map[string]string{
	"amazon.com":    "Amazon",
	"amazon.co.uk":  "Amazon",
	"amazon.de":     "Amazon",
	"amazon.fr":     "Amazon",
	"amazon.it":     "Amazon",
	"amazon.es":     "Amazon",
	"amazon.ca":     "Amazon",
	"amazon.com.au": "Amazon",
	"amazon.in":     "Amazon",
	"amazon.jp":     "Amazon",
	"amazon.com.mx": "Amazon",
	"amazon.com.br": "Amazon",

	"ebay.com":    "eBay",
	"ebay.co.uk":  "eBay",
	"ebay.de":     "eBay",
	"ebay.fr":     "eBay",
	"ebay.it":     "eBay",
	"ebay.es":     "eBay",
	"ebay.ca":     "eBay",
	"ebay.com.au": "eBay",

	"alibaba.com":    "Alibaba",
	"aliexpress.com": "AliExpress",
	"aliexpress.us":  "AliExpress",

	"walmart.com":   "Walmart",
	"target.com":    "Target",
	"bestbuy.com":   "Best Buy",
	"etsy.com":      "Etsy",
	"shopify.com":   "Shopify",
	"shopify.store": "Shopify",
}

// DetectSite returns the canonical site name for a product URL, or "" when
// the site is unknown.
func DetectSite(rawURL string) string {
	domain := Domain(rawURL)
	if domain == "" {
		return ""
	}

	if site, ok := domainMapping[domain]; ok {
		return site
	}

	for known, site := range domainMapping {
		if strings.Contains(domain, known) {
			return site
		}
	}

	// Subdomains like shop.example.com: try the registrable part.
	parts := strings.Split(domain, ".")
	if len(parts) >= 2 {
		base := strings.Join(parts[len(parts)-2:], ".")
		if site, ok := domainMapping[base]; ok {
			return site
		}
	}

	return ""
}

// Domain extracts the lowercased host from a URL, without a www. prefix.
func Domain(rawURL string) string {
	if rawURL == "" {
		return ""
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	domain := strings.ToLower(parsed.Hostname())
	return strings.TrimPrefix(domain, "www.")
}

// IsSupported reports whether a URL belongs to a known e-commerce site.
func IsSupported(rawURL string) bool {
	return DetectSite(rawURL) != ""
}

// Supported returns the sorted list of unique supported site names.
func Supported() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, site := range domainMapping {
		if _, ok := seen[site]; ok {
			continue
		}
		seen[site] = struct{}{}
		names = append(names, site)
	}
	sort.Strings(names)
	return names
}
