package pdfimport

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Saeid202/product-importer/internal/models"
)

// fakeSource serves canned page content keyed by page number.
type fakeSource struct {
	count  int
	pages  map[int]*PageContent
	errs   map[int]error
	closed bool
}

func (f *fakeSource) PageCount() int { return f.count }

func (f *fakeSource) Page(number int) (*PageContent, error) {
	if err, ok := f.errs[number]; ok {
		return f.pages[number], err
	}
	return f.pages[number], nil
}

func (f *fakeSource) Close() error {
	f.closed = true
	return nil
}

func openerFor(source *fakeSource) ContentOpener {
	return func(path string) (ContentSource, error) {
		return source, nil
	}
}

func TestProcessEndToEnd(t *testing.T) {
	source := &fakeSource{
		count: 2,
		pages: map[int]*PageContent{
			1: {Text: "Blue Widget\n$19.99\nDurable plastic casing."},
			2: {Tables: [][][]string{
				{
					{"Product", "Price"},
					{"Red Gadget", "$5.00"},
				},
			}},
		},
	}

	service := NewService(openerFor(source), newTestDetector(nil), nil)

	result, err := service.Process(context.Background(), "/tmp/catalog.pdf", "catalog.pdf")
	require.NoError(t, err)
	require.Len(t, result.Products, 2)
	assert.Empty(t, result.Errors)

	assert.Equal(t, "catalog.pdf", result.Metadata.Filename)
	assert.Equal(t, 2, result.Metadata.PageCount)
	assert.False(t, result.Metadata.ProcessedAt.IsZero())

	blue := result.Products[0]
	assert.Equal(t, "Blue Widget", blue.Title)
	assert.Equal(t, "$19.99", blue.Price)
	assert.Equal(t, SourceText, blue.Source)
	assert.Equal(t, 1, blue.PageNumber)

	red := result.Products[1]
	assert.Equal(t, "Red Gadget", red.Title)
	assert.Equal(t, "$5.00", red.Price)
	assert.Equal(t, SourceTable, red.Source)
	assert.Equal(t, 2, red.PageNumber)

	for _, p := range result.Products {
		assert.Equal(t, models.StatusPending, p.Status)
		assert.Equal(t, "catalog.pdf", p.PDFSource)
		assert.False(t, p.ExtractedAt.IsZero())
		assert.NotNil(t, p.Images)
	}

	assert.True(t, source.closed)
}

func TestProcessOpenFailureIsFatal(t *testing.T) {
	opener := func(path string) (ContentSource, error) {
		return nil, errors.New("not a pdf")
	}
	service := NewService(opener, newTestDetector(nil), nil)

	result, err := service.Process(context.Background(), "/tmp/bad.pdf", "bad.pdf")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "bad.pdf")
}

func TestProcessPageErrorsAreIsolated(t *testing.T) {
	source := &fakeSource{
		count: 2,
		pages: map[int]*PageContent{
			1: {Text: "Blue Widget\n$19.99\nDurable plastic casing."},
		},
		errs: map[int]error{
			2: errors.New("corrupt page stream"),
		},
	}

	service := NewService(openerFor(source), newTestDetector(nil), nil)

	result, err := service.Process(context.Background(), "/tmp/catalog.pdf", "catalog.pdf")
	require.NoError(t, err)

	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "page 2")
	assert.Contains(t, result.Errors[0], "corrupt page stream")

	require.Len(t, result.Products, 1)
	assert.Equal(t, "Blue Widget", result.Products[0].Title)
}

func TestProcessUsesPartialPageContent(t *testing.T) {
	// A page can fail one extraction stage and still deliver the others.
	source := &fakeSource{
		count: 1,
		pages: map[int]*PageContent{
			1: {Text: "Blue Widget\n$19.99\nDurable plastic casing."},
		},
		errs: map[int]error{
			1: errors.New("page render: out of memory"),
		},
	}

	service := NewService(openerFor(source), newTestDetector(nil), nil)

	result, err := service.Process(context.Background(), "/tmp/catalog.pdf", "catalog.pdf")
	require.NoError(t, err)

	require.Len(t, result.Errors, 1)
	require.Len(t, result.Products, 1)
	assert.Equal(t, "Blue Widget", result.Products[0].Title)
}

func TestProcessAssociatesPageImages(t *testing.T) {
	image := ImageData{Data: "aW1n", Format: "PNG"}
	source := &fakeSource{
		count: 1,
		pages: map[int]*PageContent{
			1: {
				Text:   "Blue Widget\n$19.99\nDurable plastic casing.",
				Images: []ImageData{image},
			},
		},
	}

	// OCR disabled, so the image cannot produce its own product and instead
	// attaches to the text product from the same page.
	service := NewService(openerFor(source), newTestDetector(nil), nil)

	result, err := service.Process(context.Background(), "/tmp/catalog.pdf", "catalog.pdf")
	require.NoError(t, err)
	require.Len(t, result.Products, 1)

	require.Len(t, result.Products[0].Images, 1)
	assert.Equal(t, image.DataURI(), result.Products[0].Images[0])
}

func TestProcessCancelledContext(t *testing.T) {
	source := &fakeSource{
		count: 1,
		pages: map[int]*PageContent{
			1: {Text: "Blue Widget\n$19.99\nDurable plastic casing."},
		},
	}
	service := NewService(openerFor(source), newTestDetector(nil), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := service.Process(ctx, "/tmp/catalog.pdf", "catalog.pdf")
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
}

func TestProcessDefaultsUnknownTitle(t *testing.T) {
	source := &fakeSource{
		count: 1,
		pages: map[int]*PageContent{
			1: {Tables: [][][]string{
				{
					{"Product", "Price"},
					{"", "$3.50"},
				},
			}},
		},
	}
	service := NewService(openerFor(source), newTestDetector(nil), nil)

	result, err := service.Process(context.Background(), "/tmp/catalog.pdf", "catalog.pdf")
	require.NoError(t, err)
	require.Len(t, result.Products, 1)
	assert.Equal(t, "Unknown Product", result.Products[0].Title)
	assert.Equal(t, "$3.50", result.Products[0].Price)
}
