package pdfimport

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"

	"github.com/gen2brain/go-fitz"
)

// DefaultRenderDPI balances OCR quality against payload size for page
// renders.
const DefaultRenderDPI = 150

// FitzSource is the MuPDF-backed ContentSource. Text comes from the
// embedded text layer, tables are recovered from the text's whitespace
// layout, and each page is rendered to a PNG for OCR and image association.
type FitzSource struct {
	doc *fitz.Document
	dpi float64
}

// Open opens a document and returns its content source. An unreadable
// document is fatal for the whole import; there is no partial result here.
func Open(path string) (ContentSource, error) {
	return OpenWithDPI(path, DefaultRenderDPI)
}

func OpenWithDPI(path string, dpi float64) (ContentSource, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	if dpi <= 0 {
		dpi = DefaultRenderDPI
	}
	return &FitzSource{doc: doc, dpi: dpi}, nil
}

func (s *FitzSource) PageCount() int {
	return s.doc.NumPage()
}

// Page extracts text, tables and a page render for one page (1-indexed).
// Stage failures are joined into the returned error; the content carries
// whatever stages succeeded.
func (s *FitzSource) Page(number int) (*PageContent, error) {
	idx := number - 1
	if idx < 0 || idx >= s.doc.NumPage() {
		return nil, fmt.Errorf("page %d out of range (1-%d)", number, s.doc.NumPage())
	}

	content := &PageContent{}
	var errs []error

	text, err := s.doc.Text(idx)
	if err != nil {
		errs = append(errs, fmt.Errorf("text extraction: %w", err))
	} else {
		content.Text = text
		content.Tables = RecoverTables(text)
	}

	img, err := s.renderPage(idx)
	if err != nil {
		errs = append(errs, fmt.Errorf("page render: %w", err))
	} else {
		content.Images = append(content.Images, img)
	}

	return content, errors.Join(errs...)
}

func (s *FitzSource) renderPage(idx int) (ImageData, error) {
	img, err := s.doc.ImageDPI(idx, s.dpi)
	if err != nil {
		return ImageData{}, fmt.Errorf("failed to render page: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return ImageData{}, fmt.Errorf("failed to encode page image: %w", err)
	}

	bounds := img.Bounds()
	return ImageData{
		Data:   base64.StdEncoding.EncodeToString(buf.Bytes()),
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Format: "PNG",
	}, nil
}

func (s *FitzSource) Close() error {
	return s.doc.Close()
}
