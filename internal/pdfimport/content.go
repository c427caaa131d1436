package pdfimport

// ImageData is one raster image pulled out of a document page. Data is the
// base64-encoded image payload without a data-URI prefix.
type ImageData struct {
	Data   string `json:"data"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
}

// DataURI returns the image as a data URI, ready to attach to a product.
func (img ImageData) DataURI() string {
	return "data:image/png;base64," + img.Data
}

// PageContent is everything extracted from a single document page.
// Tables are row-major: each table is a slice of rows, each row a slice of
// cell strings.
type PageContent struct {
	Text   string
	Tables [][][]string
	Images []ImageData
}

// ContentSource yields per-page content from an open document. The source
// holds an open document handle; callers must Close it on every exit path.
type ContentSource interface {
	// PageCount returns the number of pages in the document.
	PageCount() int

	// Page extracts the content of one page (1-indexed).
	Page(number int) (*PageContent, error)

	// Close releases the document handle.
	Close() error
}

// ContentOpener opens a document by path and returns its content source.
// The fitz-backed implementation is the default; tests substitute fakes.
type ContentOpener func(path string) (ContentSource, error)
