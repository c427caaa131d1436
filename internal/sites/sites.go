package sites

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/Saeid202/product-importer/internal/browser"
	"github.com/Saeid202/product-importer/internal/models"
	"github.com/Saeid202/product-importer/internal/normalize"
)

var (
	ErrBlocked    = errors.New("blocked by captcha or robot check")
	ErrNoProducts = errors.New("no products found on page")
)

// Scraper extracts products from one e-commerce site.
type Scraper interface {
	Site() string
	Scrape(ctx context.Context, url string, maxResults int) ([]*models.Product, error)
}

// Profile declares the selectors and URL shapes for one site. The shared
// scraping flow is the same everywhere; only the profile differs.
type Profile struct {
	Site     string
	BaseURL  string
	Currency string

	// IsSearchPage decides between listing extraction and single-product
	// extraction. Nil means every URL is treated as a listing page.
	IsSearchPage func(url string) bool

	// Search result selectors: item containers and per-item fields.
	ItemSelectors      []string
	ItemTitleSelectors []string
	ItemPriceSelectors []string

	// Product page selectors.
	TitleSelectors        []string
	PriceSelectors        []string
	DescriptionSelectors  []string
	ImageSelectors        []string
	RatingSelectors       []string
	ReviewCountSelectors  []string
	AvailabilitySelectors []string
}

type siteScraper struct {
	browser *browser.Browser
	profile Profile
	logger  *slog.Logger
}

// New builds a scraper for the given profile.
func New(b *browser.Browser, profile Profile) Scraper {
	return newSiteScraper(b, profile)
}

func newSiteScraper(b *browser.Browser, profile Profile) *siteScraper {
	return &siteScraper{
		browser: b,
		profile: profile,
		logger:  slog.Default().With("component", "site_scraper", "site", profile.Site),
	}
}

func (s *siteScraper) Site() string {
	return s.profile.Site
}

// Scrape opens the URL and extracts up to maxResults products. A captcha or
// robot interstitial aborts with ErrBlocked rather than returning garbage.
func (s *siteScraper) Scrape(ctx context.Context, pageURL string, maxResults int) ([]*models.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if maxResults <= 0 {
		maxResults = 10
	}

	page, err := s.browser.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()

	if err := s.browser.NavigateWithRetry(page, pageURL, 3); err != nil {
		return nil, fmt.Errorf("failed to navigate: %w", err)
	}

	blocked, err := s.browser.IsBlocked(page)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, ErrBlocked
	}

	s.browser.HumanizeInteraction(page)

	var products []*models.Product
	if s.profile.IsSearchPage == nil || s.profile.IsSearchPage(pageURL) {
		products, err = s.scrapeSearchResults(ctx, page, pageURL, maxResults)
	} else {
		var p *models.Product
		p, err = s.scrapeProductPage(page, pageURL)
		if p != nil {
			products = []*models.Product{p}
		}
	}
	if err != nil {
		return nil, err
	}

	for _, p := range products {
		if p.Currency == "" {
			p.Currency = s.profile.Currency
		}
		normalize.Product(p)
	}

	s.logger.Info("scrape finished", "url", pageURL, "products", len(products))
	return products, nil
}

func (s *siteScraper) scrapeSearchResults(ctx context.Context, page playwright.Page, baseURL string, maxResults int) ([]*models.Product, error) {
	items, err := s.findItems(page)
	if err != nil {
		return nil, err
	}

	// Lazily rendered listings often need a scroll before anything shows up.
	if len(items) == 0 {
		s.browser.ScrollForLazyContent(page)
		items, err = s.findItems(page)
		if err != nil {
			return nil, err
		}
	}

	if len(items) == 0 {
		return nil, ErrNoProducts
	}

	if len(items) > maxResults {
		items = items[:maxResults]
	}

	var products []*models.Product
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := s.extractItem(item, baseURL)
		if p != nil {
			products = append(products, p)
		}
	}

	return products, nil
}

func (s *siteScraper) findItems(page playwright.Page) ([]playwright.Locator, error) {
	for _, selector := range s.profile.ItemSelectors {
		_, err := page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
			Timeout: playwright.Float(10000),
			State:   playwright.WaitForSelectorStateVisible,
		})
		if err != nil {
			continue
		}

		items, err := page.Locator(selector).All()
		if err != nil {
			continue
		}
		if len(items) > 0 {
			s.logger.Debug("found listing items", "selector", selector, "count", len(items))
			return items, nil
		}
	}
	return nil, nil
}

// extractItem pulls one product out of a search result container. Items
// without a title are dropped.
func (s *siteScraper) extractItem(item playwright.Locator, baseURL string) *models.Product {
	p := &models.Product{
		URL:    baseURL,
		Source: s.profile.Site,
		Images: []string{},
	}

	for _, selector := range s.profile.ItemTitleSelectors {
		link := item.Locator(selector).First()
		title, err := link.TextContent(playwright.LocatorTextContentOptions{Timeout: playwright.Float(2000)})
		if err != nil || strings.TrimSpace(title) == "" {
			continue
		}
		p.Title = strings.TrimSpace(title)

		if href, err := link.GetAttribute("href"); err == nil && href != "" {
			p.URL = resolveURL(baseURL, s.profile.BaseURL, href)
		}
		break
	}

	for _, selector := range s.profile.ItemPriceSelectors {
		price, err := item.Locator(selector).First().TextContent(playwright.LocatorTextContentOptions{Timeout: playwright.Float(2000)})
		if err != nil || strings.TrimSpace(price) == "" {
			continue
		}
		p.Price = normalize.Price(price)
		break
	}

	if img, err := item.Locator("img").First().GetAttribute("src"); err == nil && strings.Contains(img, "http") {
		p.AddImage(img)
	}

	if len(s.profile.RatingSelectors) > 0 {
		if text := firstText(item, s.profile.RatingSelectors); text != "" {
			p.Rating = normalize.Rating(text)
		}
	}
	if len(s.profile.ReviewCountSelectors) > 0 {
		if text := firstText(item, s.profile.ReviewCountSelectors); text != "" {
			p.ReviewCount = normalize.ReviewCount(text)
		}
	}

	if p.Title == "" {
		return nil
	}
	return p
}

func (s *siteScraper) scrapeProductPage(page playwright.Page, pageURL string) (*models.Product, error) {
	p := &models.Product{
		URL:    pageURL,
		Source: s.profile.Site,
		Images: []string{},
	}

	p.Title = strings.TrimSpace(firstPageText(page, s.profile.TitleSelectors))
	if price := firstPageText(page, s.profile.PriceSelectors); price != "" {
		p.Price = normalize.Price(price)
	}
	if desc := firstPageText(page, s.profile.DescriptionSelectors); desc != "" {
		p.Description = strings.TrimSpace(desc)
	}

	for _, selector := range s.profile.ImageSelectors {
		images, err := page.Locator(selector).All()
		if err != nil {
			continue
		}
		for i, img := range images {
			if i == 5 {
				break
			}
			if src, err := img.GetAttribute("src"); err == nil && strings.Contains(src, "http") {
				p.AddImage(src)
			}
		}
		if len(p.Images) > 0 {
			break
		}
	}

	if text := firstPageText(page, s.profile.RatingSelectors); text != "" {
		p.Rating = normalize.Rating(text)
	}
	if text := firstPageText(page, s.profile.ReviewCountSelectors); text != "" {
		p.ReviewCount = normalize.ReviewCount(text)
	}
	if text := firstPageText(page, s.profile.AvailabilitySelectors); text != "" {
		p.Availability = strings.TrimSpace(text)
	}

	if p.Title == "" {
		return nil, nil
	}
	return p, nil
}

func firstText(item playwright.Locator, selectors []string) string {
	for _, selector := range selectors {
		text, err := item.Locator(selector).First().TextContent(playwright.LocatorTextContentOptions{Timeout: playwright.Float(2000)})
		if err == nil && strings.TrimSpace(text) != "" {
			return text
		}
	}
	return ""
}

func firstPageText(page playwright.Page, selectors []string) string {
	for _, selector := range selectors {
		text, err := page.Locator(selector).First().TextContent(playwright.LocatorTextContentOptions{Timeout: playwright.Float(2000)})
		if err == nil && strings.TrimSpace(text) != "" {
			return text
		}
	}
	return ""
}

// resolveURL turns a possibly relative href into an absolute product URL.
func resolveURL(pageURL, siteBase, href string) string {
	if strings.HasPrefix(href, "http") {
		return href
	}

	base := pageURL
	if siteBase != "" && strings.HasPrefix(href, "/") {
		base = siteBase
	}

	parsed, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return parsed.ResolveReference(ref).String()
}
