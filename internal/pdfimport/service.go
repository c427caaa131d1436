package pdfimport

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Saeid202/product-importer/internal/models"
)

// Metadata describes one processed document.
type Metadata struct {
	Filename    string    `json:"filename"`
	ProcessedAt time.Time `json:"processed_at"`
	PageCount   int       `json:"page_count"`
}

// Result is the outcome of processing one document. Errors holds one
// human-readable string per failed page or stage; a non-empty Errors list
// still comes with whatever products the surviving pages produced.
type Result struct {
	Products []*models.Product `json:"products"`
	Metadata Metadata          `json:"metadata"`
	Errors   []string          `json:"errors"`
}

// Service orchestrates document import: per-page extraction, the three
// detection strategies, merging, image association and field defaulting.
type Service struct {
	open     ContentOpener
	detector *Detector
	logger   *slog.Logger
}

func NewService(open ContentOpener, detector *Detector, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		open:     open,
		detector: detector,
		logger:   logger.With("component", "pdf_service"),
	}
}

// Process imports products from the document at path. Failing to open the
// document is fatal and returns an error with no partial result. Every
// other failure is per-page: recorded in Result.Errors, never aborting the
// remaining pages.
func (s *Service) Process(ctx context.Context, path, filename string) (*Result, error) {
	source, err := s.open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer source.Close()

	result := &Result{
		Metadata: Metadata{
			Filename:    filename,
			ProcessedAt: time.Now(),
			PageCount:   source.PageCount(),
		},
	}

	var textProducts, tableProducts, imageProducts []*models.Product
	imagesByPage := make(map[int][]ImageData)

	for page := 1; page <= result.Metadata.PageCount; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		content, err := source.Page(page)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("page %d extraction: %v", page, err))
		}
		if content == nil {
			continue
		}

		if content.Text != "" {
			textProducts = append(textProducts, s.detector.DetectFromText(content.Text, page)...)
		}
		if len(content.Tables) > 0 {
			tableProducts = append(tableProducts, s.detector.DetectFromTables(content.Tables, page)...)
		}
		if len(content.Images) > 0 {
			imagesByPage[page] = content.Images
			imageProducts = append(imageProducts, s.detector.DetectFromImages(content.Images, page)...)
		}
	}

	result.Products = s.detector.Combine(textProducts, tableProducts, imageProducts)

	s.associateImages(result.Products, imagesByPage)
	s.finalize(result.Products, filename)

	s.logger.Info("document processed",
		"filename", filename,
		"pages", result.Metadata.PageCount,
		"products", len(result.Products),
		"errors", len(result.Errors),
	)

	return result, nil
}

// associateImages attaches page images to products that came out of
// detection without any, matching on page number.
func (s *Service) associateImages(products []*models.Product, imagesByPage map[int][]ImageData) {
	for _, p := range products {
		if len(p.Images) > 0 || p.PageNumber == 0 {
			continue
		}
		for _, img := range imagesByPage[p.PageNumber] {
			p.AddImage(img.DataURI())
		}
	}
}

// finalize stamps provenance and fills defaults so every emitted product
// satisfies the persistence contract.
func (s *Service) finalize(products []*models.Product, filename string) {
	now := time.Now()
	for _, p := range products {
		p.PDFSource = filename
		p.ExtractedAt = now
		p.Status = models.StatusPending
		if p.Title == "" {
			p.Title = "Unknown Product"
		}
		if p.Images == nil {
			p.Images = []string{}
		}
		if p.Source == "" {
			p.Source = "PDF"
		}
	}
}
