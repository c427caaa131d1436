package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Saeid202/product-importer/internal/models"
)

var (
	numberPattern   = regexp.MustCompile(`\d+\.?\d*`)
	nonDigitPattern = regexp.MustCompile(`[^\d]`)
	spacePattern    = regexp.MustCompile(`\s+`)
)

// Price cleans up a raw price string. It does not parse the amount, it only
// collapses whitespace; currency symbols and free text are kept verbatim.
// Empty input yields "".
func Price(text string) string {
	return spacePattern.ReplaceAllString(strings.TrimSpace(text), " ")
}

// Rating extracts the first numeric token from a raw rating string and maps
// it onto the 0–5 scale. Values in (5, 10] are assumed to be out of 10 and
// halved. The result is clamped to [0, 5]. Non-numeric input yields nil.
func Rating(text string) *float64 {
	if text == "" {
		return nil
	}

	match := numberPattern.FindString(text)
	if match == "" {
		return nil
	}

	rating, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return nil
	}

	// "8 out of 10" style ratings come in on a 10-point scale.
	if rating > 5 && rating <= 10 {
		rating = rating / 2
	}
	if rating < 0 {
		rating = 0
	}
	if rating > 5 {
		rating = 5
	}

	return &rating
}

// ReviewCount strips every non-digit character ("1,234 reviews" -> 1234)
// and parses the remainder. Input without digits yields nil.
func ReviewCount(text string) *int {
	if text == "" {
		return nil
	}

	digits := nonDigitPattern.ReplaceAllString(text, "")
	if digits == "" {
		return nil
	}

	count, err := strconv.Atoi(digits)
	if err != nil {
		return nil
	}

	return &count
}

// Image is one raw image reference as delivered by a scraper or extractor:
// either a plain string or a record carrying base64 data.
type Image struct {
	Value string
	Data  string
}

// Images filters raw image references down to usable ones: HTTP(S) URLs and
// data:image URIs pass through, bare strings long enough to be base64
// payloads are wrapped with a PNG data-URI prefix, anything else is dropped.
// Duplicates are suppressed; first occurrence wins, order is preserved.
func Images(images []Image) []string {
	var normalized []string
	seen := make(map[string]bool)

	keep := func(img string) {
		if !seen[img] {
			seen[img] = true
			normalized = append(normalized, img)
		}
	}

	for _, img := range images {
		switch {
		case img.Data != "":
			if strings.HasPrefix(img.Data, "data:image") {
				keep(img.Data)
			} else {
				keep("data:image/png;base64," + img.Data)
			}
		case strings.HasPrefix(img.Value, "http") || strings.HasPrefix(img.Value, "data:image"):
			keep(img.Value)
		case len(img.Value) > 100:
			// Bare strings this long are assumed to be raw base64.
			keep("data:image/png;base64," + img.Value)
		}
	}

	return normalized
}

// ImageStrings is Images for the common case of plain string references.
func ImageStrings(images []string) []string {
	raw := make([]Image, len(images))
	for i, img := range images {
		raw[i] = Image{Value: img}
	}
	return Images(raw)
}

// Product normalizes every field of a scraped product in place: trimmed
// strings, filtered images, clamped rating, integer review count.
func Product(p *models.Product) {
	p.Title = strings.TrimSpace(p.Title)
	p.Price = Price(p.Price)
	p.Description = strings.TrimSpace(p.Description)
	p.Availability = strings.TrimSpace(p.Availability)
	p.URL = strings.TrimSpace(p.URL)
	p.Currency = strings.TrimSpace(p.Currency)
	p.Images = ImageStrings(p.Images)
	if p.Source == "" {
		p.Source = "Unknown"
	}
}
