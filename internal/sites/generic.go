package sites

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Saeid202/product-importer/internal/browser"
	"github.com/Saeid202/product-importer/internal/models"
	"github.com/Saeid202/product-importer/internal/normalize"
)

// genericProfile covers the selector conventions most storefronts share.
var genericProfile = Profile{
	Site: "Generic",
	ItemSelectors: []string{
		"[data-product-id]",
		"[data-product]",
		".product",
		".product-item",
		".product-card",
		".item",
		`[class*="product"]`,
		`[class*="card"]`,
		"article",
		".goods",
		".listing",
	},
	ItemTitleSelectors: []string{
		"h1", "h2", "h3", "h4",
		".title", ".product-title", ".item-title",
		`[class*="title"]`, `[class*="name"]`,
		"a",
	},
	ItemPriceSelectors: []string{
		".price", ".product-price", ".item-price",
		`[class*="price"]`, `[class*="cost"]`, `[class*="amount"]`,
	},
}

// genericScraper handles unknown storefronts: the common selector profile
// first, then a static HTML pass over product-looking links when the live
// selectors find nothing.
type genericScraper struct {
	browser *browser.Browser
	inner   *siteScraper
	logger  *slog.Logger
}

// NewGeneric returns the fallback scraper for unrecognized sites.
func NewGeneric(b *browser.Browser) Scraper {
	return &genericScraper{
		browser: b,
		inner:   newSiteScraper(b, genericProfile),
		logger:  slog.Default().With("component", "site_scraper", "site", "Generic"),
	}
}

func (g *genericScraper) Site() string {
	return "Generic"
}

func (g *genericScraper) Scrape(ctx context.Context, pageURL string, maxResults int) ([]*models.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if maxResults <= 0 {
		maxResults = 10
	}

	page, err := g.browser.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()

	if err := g.browser.NavigateWithRetry(page, pageURL, 3); err != nil {
		return nil, fmt.Errorf("failed to navigate: %w", err)
	}

	blocked, err := g.browser.IsBlocked(page)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, ErrBlocked
	}

	var products []*models.Product

	items, _ := g.inner.findItems(page)
	if len(items) == 0 {
		g.browser.ScrollForLazyContent(page)
		items, _ = g.inner.findItems(page)
	}

	// A generic selector matching hundreds of nodes hit navigation chrome,
	// not products.
	if len(items) > 0 && len(items) <= 100 {
		if len(items) > maxResults {
			items = items[:maxResults]
		}
		for _, item := range items {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if p := g.inner.extractItem(item, pageURL); p != nil {
				products = append(products, p)
			}
		}
	}

	if len(products) == 0 {
		g.logger.Debug("selector pass found nothing, parsing static html")
		html, err := page.Content()
		if err != nil {
			return nil, fmt.Errorf("failed to get page content: %w", err)
		}
		products, err = ExtractFromHTML(html, pageURL, maxResults)
		if err != nil {
			return nil, err
		}
	}

	site := DetectSite(pageURL)
	for _, p := range products {
		if site != "" {
			p.Source = site
		} else if p.Source == "" {
			p.Source = "Generic"
		}
		normalize.Product(p)
	}

	g.logger.Info("scrape finished", "url", pageURL, "products", len(products))
	return products, nil
}

// ExtractFromHTML mines product-looking links out of rendered page HTML.
// It is the last resort for pages whose markup matches none of the known
// container selectors.
func ExtractFromHTML(html, baseURL string, maxResults int) ([]*models.Product, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	if maxResults <= 0 {
		maxResults = 10
	}

	var products []*models.Product
	seen := make(map[string]struct{})

	candidates := doc.Find(`a[href*="product"], a[href*="item"], a[href*="detail"], a[href*="goods"]`)
	if candidates.Length() == 0 {
		candidates = doc.Find("a[href]")
	}

	candidates.EachWithBreak(func(_ int, link *goquery.Selection) bool {
		href, ok := link.Attr("href")
		if !ok || skipHref(href) {
			return true
		}

		text := strings.TrimSpace(link.Text())
		hasImage := link.Find("img").Length() > 0
		if len(text) <= 3 || (!hasImage && len(text) <= 10) {
			return true
		}
		if skipNavText(text) {
			return true
		}

		productURL := resolveURL(baseURL, "", href)
		if _, dup := seen[productURL]; dup {
			return true
		}
		seen[productURL] = struct{}{}

		p := &models.Product{
			Title:  firstLine(text),
			URL:    productURL,
			Source: "Generic",
			Images: []string{},
		}
		if src, ok := link.Find("img").First().Attr("src"); ok && strings.Contains(src, "http") {
			p.AddImage(src)
		}

		products = append(products, p)
		return len(products) < maxResults
	})

	return products, nil
}

func skipHref(href string) bool {
	lower := strings.ToLower(href)
	for _, prefix := range []string{"#", "javascript:", "mailto:", "tel:"} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

func skipNavText(text string) bool {
	lower := strings.ToLower(text)
	for _, word := range []string{"home", "about", "contact", "login", "register", "cart", "search"} {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}
