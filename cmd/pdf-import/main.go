package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Saeid202/product-importer/internal/pdfimport"
)

// One-shot document import: extract products from a PDF and print the
// result as JSON. Useful for inspecting catalogs before uploading them.
func main() {
	var (
		file    = flag.String("file", "", "path to the PDF to import")
		ocr     = flag.Bool("ocr", false, "run OCR over page images")
		lang    = flag.String("lang", "eng", "tesseract language codes, e.g. eng+deu")
		dpi     = flag.Float64("dpi", pdfimport.DefaultRenderDPI, "render DPI for page images")
		verbose = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: pdf-import -file catalog.pdf [-ocr] [-lang eng] [-dpi 150]")
		os.Exit(2)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	var recognizer pdfimport.Recognizer
	if *ocr {
		client, err := pdfimport.NewTesseractOCR(*lang)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to initialize OCR: %v\n", err)
			os.Exit(1)
		}
		defer client.Close()
		recognizer = client.Recognizer()
	}

	detector := pdfimport.NewDetector(recognizer, logger)
	opener := func(path string) (pdfimport.ContentSource, error) {
		return pdfimport.OpenWithDPI(path, *dpi)
	}
	service := pdfimport.NewService(opener, detector, logger)

	result, err := service.Process(context.Background(), *file, filepath.Base(*file))
	if err != nil {
		fmt.Fprintf(os.Stderr, "import failed: %v\n", err)
		os.Exit(1)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode result: %v\n", err)
		os.Exit(1)
	}

	if len(result.Errors) > 0 {
		os.Exit(3)
	}
}
