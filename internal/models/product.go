package models

import (
	"strings"
	"time"
)

// ProductStatus is the review lifecycle state of an imported product.
type ProductStatus string

const (
	StatusPending  ProductStatus = "pending"
	StatusApproved ProductStatus = "approved"
	StatusRejected ProductStatus = "rejected"
)

// Product is the common schema every import source (site scraper, PDF text,
// PDF table, PDF OCR) normalizes into.
type Product struct {
	ID           string        `json:"id,omitempty"`
	Title        string        `json:"title"`
	Price        string        `json:"price"`
	Description  string        `json:"description,omitempty"`
	Images       []string      `json:"images,omitempty"`
	Rating       *float64      `json:"rating,omitempty"`
	ReviewCount  *int          `json:"review_count,omitempty"`
	Availability string        `json:"availability,omitempty"`
	URL          string        `json:"url,omitempty"`
	Source       string        `json:"source"`
	PageNumber   int           `json:"page_number,omitempty"`
	Currency     string        `json:"currency,omitempty"`
	PDFSource    string        `json:"pdf_source,omitempty"`
	ExtractedAt  time.Time     `json:"extracted_at,omitempty"`
	Status       ProductStatus `json:"status,omitempty"`
}

// HasTitle reports whether the product carries a usable title.
func (p *Product) HasTitle() bool {
	return len(strings.TrimSpace(p.Title)) > 2
}

// HasPrice reports whether the product carries a non-empty price.
func (p *Product) HasPrice() bool {
	return len(strings.TrimSpace(p.Price)) > 0
}

// AddImage appends an image reference, suppressing duplicates and
// preserving discovery order.
func (p *Product) AddImage(img string) {
	for _, existing := range p.Images {
		if existing == img {
			return
		}
	}
	p.Images = append(p.Images, img)
}

// DashboardPayload is the wire shape accepted by the dashboard backend.
// Empty-equivalent fields are omitted before transmission.
type DashboardPayload struct {
	Name         string   `json:"name"`
	Price        string   `json:"price"`
	Source       string   `json:"source"`
	Description  string   `json:"description,omitempty"`
	Images       []string `json:"images,omitempty"`
	ProductURL   string   `json:"product_url,omitempty"`
	Currency     string   `json:"currency,omitempty"`
	Rating       *float64 `json:"rating,omitempty"`
	ReviewCount  *int     `json:"review_count,omitempty"`
	Availability string   `json:"availability,omitempty"`
	PDFSource    string   `json:"pdf_source,omitempty"`
	ExtractedAt  string   `json:"extracted_at,omitempty"`
	Status       string   `json:"status,omitempty"`
}

// ToDashboard maps a product onto the backend wire contract.
func (p *Product) ToDashboard() DashboardPayload {
	payload := DashboardPayload{
		Name:         p.Title,
		Price:        p.Price,
		Source:       p.Source,
		Description:  p.Description,
		Images:       p.Images,
		ProductURL:   p.URL,
		Currency:     p.Currency,
		Rating:       p.Rating,
		ReviewCount:  p.ReviewCount,
		Availability: p.Availability,
		PDFSource:    p.PDFSource,
		Status:       string(p.Status),
	}
	if !p.ExtractedAt.IsZero() {
		payload.ExtractedAt = p.ExtractedAt.Format(time.RFC3339)
	}
	return payload
}
