package pdfimport

import (
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// TesseractOCR wraps the Tesseract engine behind the Recognizer capability.
// Construction is optional: when OCR is disabled by configuration the
// pipeline simply runs with a nil Recognizer.
type TesseractOCR struct {
	client *gosseract.Client
}

// NewTesseractOCR creates an OCR client. language is a "+"-separated
// Tesseract language string ("eng", "eng+deu"); empty means the engine
// default. Close must be called to release engine resources.
func NewTesseractOCR(language string) (*TesseractOCR, error) {
	client := gosseract.NewClient()

	if language != "" {
		if err := client.SetLanguage(strings.Split(language, "+")...); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set ocr language: %w", err)
		}
	}

	// PSM 6 assumes a uniform block of text, which fits product labels and
	// catalog pages better than full auto segmentation.
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}

	return &TesseractOCR{client: client}, nil
}

// Recognize runs OCR over raw image bytes and returns the trimmed text.
func (t *TesseractOCR) Recognize(image []byte) (string, error) {
	if err := t.client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := t.client.Text()
	if err != nil {
		return "", fmt.Errorf("ocr failed: %w", err)
	}

	return strings.TrimSpace(text), nil
}

// Recognizer adapts the client to the capability type the detector expects.
func (t *TesseractOCR) Recognizer() Recognizer {
	return t.Recognize
}

// Close releases the underlying Tesseract client.
func (t *TesseractOCR) Close() error {
	if t.client != nil {
		return t.client.Close()
	}
	return nil
}
