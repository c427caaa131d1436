package sites

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectSite(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{name: "amazon com", url: "https://www.amazon.com/s?k=widgets", expected: "Amazon"},
		{name: "amazon de", url: "https://amazon.de/dp/B000000000", expected: "Amazon"},
		{name: "ebay search", url: "https://www.ebay.com/sch/i.html?_nkw=gadget", expected: "eBay"},
		{name: "alibaba", url: "https://www.alibaba.com/trade/search?SearchText=bolts", expected: "Alibaba"},
		{name: "aliexpress us", url: "https://aliexpress.us/item/123.html", expected: "AliExpress"},
		{name: "walmart", url: "https://www.walmart.com/browse/toys", expected: "Walmart"},
		{name: "subdomain", url: "https://smile.amazon.com/gp/product/B01", expected: "Amazon"},
		{name: "unknown site", url: "https://example.com/shop", expected: ""},
		{name: "empty url", url: "", expected: ""},
		{name: "not a url", url: "://///", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectSite(tt.url))
		})
	}
}

func TestDomain(t *testing.T) {
	assert.Equal(t, "amazon.com", Domain("https://www.amazon.com/s?k=widgets"))
	assert.Equal(t, "shop.example.com", Domain("https://shop.example.com/items"))
	assert.Equal(t, "", Domain(""))
}

func TestIsSupported(t *testing.T) {
	assert.True(t, IsSupported("https://www.etsy.com/listing/1"))
	assert.False(t, IsSupported("https://example.org/products"))
}

func TestSupported(t *testing.T) {
	names := Supported()
	assert.Contains(t, names, "Amazon")
	assert.Contains(t, names, "eBay")
	assert.Contains(t, names, "Shopify")

	// Sorted and unique.
	seen := make(map[string]int)
	for _, n := range names {
		seen[n]++
	}
	for n, c := range seen {
		assert.Equal(t, 1, c, "duplicate site name %s", n)
	}
}

func TestForSite(t *testing.T) {
	assert.Equal(t, "Amazon", ForSite(nil, "Amazon").Site())
	assert.Equal(t, "eBay", ForSite(nil, "eBay").Site())
	assert.Equal(t, "Alibaba", ForSite(nil, "Alibaba").Site())
	assert.Equal(t, "AliExpress", ForSite(nil, "AliExpress").Site())
	assert.Equal(t, "Generic", ForSite(nil, "Walmart").Site())
	assert.Equal(t, "Generic", ForSite(nil, "").Site())
}
