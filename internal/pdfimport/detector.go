package pdfimport

import (
	"encoding/base64"
	"log/slog"
	"regexp"
	"strings"

	"github.com/Saeid202/product-importer/internal/models"
	"github.com/Saeid202/product-importer/internal/normalize"
)

const (
	SourceText  = "PDF Text"
	SourceTable = "PDF Table"
	SourceOCR   = "PDF Image (OCR)"

	maxTitleLen       = 200
	maxDescriptionLen = 500
	keyTitleLen       = 50
	keyPriceLen       = 20
)

// Price patterns in priority order; the first match in a line wins. The bare
// numeric pattern is last on purpose: it only fires when nothing
// currency-tagged matched.
var pricePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\$[\d,]+\.?\d*`),
	regexp.MustCompile(`(?i)USD\s*[\d,]+\.?\d*`),
	regexp.MustCompile(`(?i)EUR\s*[\d,]+\.?\d*`),
	regexp.MustCompile(`(?i)GBP\s*[\d,]+\.?\d*`),
	regexp.MustCompile(`(?i)CNY\s*[\d,]+\.?\d*`),
	regexp.MustCompile(`(?i)[\d,]+\.?\d*\s*(USD|EUR|GBP|JPY|CNY|RMB)`),
	regexp.MustCompile(`(?i)Price[:\s]+[\d,]+\.?\d*`),
	regexp.MustCompile(`(?i)Cost[:\s]+[\d,]+\.?\d*`),
	regexp.MustCompile(`(?i)Amount[:\s]+[\d,]+\.?\d*`),
	regexp.MustCompile(`[\d,]+\.?\d*`),
}

// Structural separators between product sections, in priority order.
var sectionSeparators = []*regexp.Regexp{
	regexp.MustCompile(`\n\s*\n`),
	regexp.MustCompile(`\n\s*[-=]{3,}`),
	regexp.MustCompile(`\n\s*\d+\.\s+`),
	regexp.MustCompile(`\n\s*[•·▪▫]\s+`),
}

// Labeled product-name lines ("Product: Acme Widget").
var titleIndicators = []*regexp.Regexp{
	regexp.MustCompile(`(?is)Product[:\s]+(.+?)(?:\n|$|Price|Cost|Amount)`),
	regexp.MustCompile(`(?is)Item[:\s]+(.+?)(?:\n|$|Price|Cost|Amount)`),
	regexp.MustCompile(`(?is)Name[:\s]+(.+?)(?:\n|$|Price|Cost|Amount)`),
	regexp.MustCompile(`(?is)Description[:\s]+(.+?)(?:\n|$|Price|Cost|Amount)`),
	regexp.MustCompile(`(?is)Model[:\s]+(.+?)(?:\n|$|Price|Cost|Amount)`),
	regexp.MustCompile(`(?is)SKU[:\s]+(.+?)(?:\n|$|Price|Cost|Amount)`),
	regexp.MustCompile(`(?is)Part[:\s]+(.+?)(?:\n|$|Price|Cost|Amount)`),
}

var (
	// Lines made up entirely of digits, currency punctuation and whitespace.
	numericLine = regexp.MustCompile(`^[\d$,\s.]+$`)

	titlePrefix  = regexp.MustCompile(`(?i)^(Product|Item|Name|Model|SKU)[:\s]+`)
	alphaRun     = regexp.MustCompile(`[a-zA-Z]{3,}`)
	digitRun     = regexp.MustCompile(`\d+`)
	anyDigit     = regexp.MustCompile(`\d`)
	spaceCollapse = regexp.MustCompile(`\s+`)
)

// Table header keywords per semantic role.
var (
	titleColumnKeywords = []string{"name", "product", "item", "title", "description", "model", "part", "sku"}
	priceColumnKeywords = []string{"price", "cost", "amount", "usd", "eur", "gbp", "value", "total"}
	descColumnKeywords  = []string{"description", "desc", "details", "spec", "specification", "note", "remark"}
)

// Recognizer turns raw image bytes into recognized text. A nil Recognizer
// means OCR is disabled for this runtime; the image stage is then skipped.
type Recognizer func(image []byte) (string, error)

// Detector proposes candidate products from document content using three
// independent strategies: free text, tables, and OCR over images.
type Detector struct {
	ocr    Recognizer
	logger *slog.Logger
}

func NewDetector(ocr Recognizer, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{
		ocr:    ocr,
		logger: logger.With("component", "detector"),
	}
}

// DetectFromText extracts candidate products from a page's text. Strategies
// run in order until one yields at least one valid product: separator split,
// line-sequential scan, paragraph fallback.
func (d *Detector) DetectFromText(text string, pageNumber int) []*models.Product {
	if len(strings.TrimSpace(text)) < 10 {
		return nil
	}

	var products []*models.Product
	for _, section := range splitIntoSections(text) {
		p := d.extractFromSection(section, pageNumber)
		if p != nil && isValid(p) {
			products = append(products, p)
		}
	}

	if len(products) == 0 {
		products = d.detectFromLines(text, pageNumber)
	}

	if len(products) == 0 {
		products = d.detectFromParagraphs(text, pageNumber)
	}

	return products
}

// splitIntoSections splits page text into candidate product sections using
// the first separator pattern that produces more than one part. Parts of 20
// characters or fewer are noise and dropped.
func splitIntoSections(text string) []string {
	var sections []string

	for _, sep := range sectionSeparators {
		parts := sep.Split(text, -1)
		if len(parts) > 1 {
			for _, p := range parts {
				if trimmed := strings.TrimSpace(p); len(trimmed) > 20 {
					sections = append(sections, trimmed)
				}
			}
			break
		}
	}

	if sections == nil {
		for _, p := range strings.Split(text, "\n\n") {
			if trimmed := strings.TrimSpace(p); len(trimmed) > 20 {
				sections = append(sections, trimmed)
			}
		}
	}

	return sections
}

// extractFromSection treats one section as a single product: first plausible
// line becomes the title, the first price-looking token the price, the rest
// the description.
func (d *Detector) extractFromSection(section string, pageNumber int) *models.Product {
	lines := nonEmptyLines(section)
	if len(lines) == 0 {
		return nil
	}

	p := &models.Product{
		Source:     SourceText,
		PageNumber: pageNumber,
	}

	if first := lines[0]; !numericLine.MatchString(first) && len(first) > 3 {
		p.Title = truncate(first, maxTitleLen)
	}

	for _, line := range lines {
		if price := extractPrice(line); price != "" {
			p.Price = price
			break
		}
	}

	if len(lines) > 1 {
		var descLines []string
		for _, line := range lines[1:] {
			if !numericLine.MatchString(line) {
				descLines = append(descLines, line)
			}
			if len(descLines) == 5 {
				break
			}
		}
		p.Description = truncate(strings.Join(descLines, " "), maxDescriptionLen)
	}

	return p
}

// detectFromLines walks lines sequentially accumulating title, then price;
// when both are present a product is emitted and the accumulator resets.
func (d *Detector) detectFromLines(text string, pageNumber int) []*models.Product {
	var products []*models.Product
	lines := nonEmptyLines(text)

	current := &models.Product{}
	for i, line := range lines {
		if current.Title == "" {
			if title := extractTitle(line); len(title) > 3 {
				current.Title = title
				continue
			}
		}

		if current.Price == "" {
			if price := extractPrice(line); price != "" {
				current.Price = price
				if current.Title != "" {
					start := i - 2
					if start < 0 {
						start = 0
					}
					current.Description = truncate(strings.Join(lines[start:i], " "), 300)
					current.PageNumber = pageNumber
					current.Source = SourceText
					if isValid(current) {
						products = append(products, current)
						current = &models.Product{}
					}
				}
				continue
			}
		}

		// Between title and price, plausible prose lines accumulate as
		// description.
		if current.Title != "" && current.Price == "" {
			if len(line) > 10 && !numericLine.MatchString(line) {
				if current.Description == "" {
					current.Description = line
				} else {
					current.Description += " " + line
				}
				current.Description = truncate(current.Description, maxDescriptionLen)
			}
		}
	}

	if (current.Title != "" || current.Price != "") && isValid(current) {
		current.PageNumber = pageNumber
		current.Source = SourceText
		products = append(products, current)
	}

	return products
}

// detectFromParagraphs is the last-resort text strategy: paragraphs that mix
// words and numbers are scanned for a title and price in their first three
// lines.
func (d *Detector) detectFromParagraphs(text string, pageNumber int) []*models.Product {
	var products []*models.Product

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if len(para) <= 20 {
			continue
		}
		if !alphaRun.MatchString(para) || !digitRun.MatchString(para) {
			continue
		}

		lines := nonEmptyLines(para)
		p := &models.Product{}

		head := lines
		if len(head) > 3 {
			head = head[:3]
		}
		for _, line := range head {
			if p.Title == "" {
				p.Title = extractTitle(line)
			}
			if p.Price == "" {
				p.Price = extractPrice(line)
			}
		}

		if !isValid(p) {
			continue
		}

		var descLines []string
		if len(lines) > 3 {
			descLines = lines[3:min(6, len(lines))]
		} else if len(lines) > 1 {
			descLines = lines[1:min(4, len(lines))]
		}
		var kept []string
		for _, line := range descLines {
			if !numericLine.MatchString(line) {
				kept = append(kept, line)
			}
		}
		if len(kept) > 0 {
			p.Description = truncate(strings.Join(kept, " "), maxDescriptionLen)
		}

		p.PageNumber = pageNumber
		p.Source = SourceText
		products = append(products, p)
	}

	return products
}

// DetectFromTables extracts one candidate product per data row. The header
// row is the first row with any non-empty cell; its cells are classified
// into title/price/description columns by keyword containment.
func (d *Detector) DetectFromTables(tables [][][]string, pageNumber int) []*models.Product {
	var products []*models.Product

	for _, table := range tables {
		if len(table) < 2 {
			continue
		}

		headerIdx := -1
		var header []string
		for i, row := range table {
			if rowHasContent(row) {
				headerIdx = i
				header = trimCells(row)
				break
			}
		}
		if headerIdx == -1 {
			continue
		}

		columns := classifyColumns(header)

		for _, row := range table[headerIdx+1:] {
			if len(row) < len(header) {
				continue
			}
			cells := trimCells(row)
			if !rowHasContent(cells) {
				continue
			}

			p := &models.Product{
				Source:     SourceTable,
				PageNumber: pageNumber,
			}

			if idx, ok := columns["title"]; ok && idx < len(cells) && cells[idx] != "" {
				p.Title = truncate(cells[idx], maxTitleLen)
			}
			if idx, ok := columns["price"]; ok && idx < len(cells) && cells[idx] != "" {
				p.Price = normalize.Price(cells[idx])
			}
			if idx, ok := columns["description"]; ok && idx < len(cells) && cells[idx] != "" {
				p.Description = truncate(cells[idx], maxDescriptionLen)
			}

			// No description column: synthesize one from the leftover cells.
			if p.Description == "" && len(cells) > 1 {
				var parts []string
				for i, cell := range cells {
					if i == columnIndex(columns, "title") || i == columnIndex(columns, "price") {
						continue
					}
					if len(cell) > 5 {
						parts = append(parts, cell)
					}
					if len(parts) == 3 {
						break
					}
				}
				if len(parts) > 0 {
					p.Description = truncate(strings.Join(parts, " "), maxDescriptionLen)
				}
			}

			if p.Title != "" || p.Price != "" {
				products = append(products, p)
			}
		}
	}

	return products
}

// classifyColumns maps header cells onto semantic roles. A column claims at
// most one role and the first matching column wins each role.
func classifyColumns(header []string) map[string]int {
	columns := make(map[string]int)

	for idx, cell := range header {
		h := strings.ToLower(cell)
		h = strings.ReplaceAll(h, "_", " ")
		h = strings.ReplaceAll(h, "-", " ")

		switch {
		case containsAny(h, titleColumnKeywords):
			if _, ok := columns["title"]; !ok {
				columns["title"] = idx
			}
		case containsAny(h, priceColumnKeywords):
			if _, ok := columns["price"]; !ok {
				columns["price"] = idx
			}
		case containsAny(h, descColumnKeywords):
			if _, ok := columns["description"]; !ok {
				columns["description"] = idx
			}
		}
	}

	return columns
}

// DetectFromImages runs OCR over page images and feeds the recognized text
// back through the text strategies. Every product found this way carries its
// originating image. A malformed image skips that image only; a missing
// Recognizer skips the whole stage.
func (d *Detector) DetectFromImages(images []ImageData, pageNumber int) []*models.Product {
	if d.ocr == nil {
		return nil
	}

	var products []*models.Product
	for _, img := range images {
		raw, err := base64.StdEncoding.DecodeString(img.Data)
		if err != nil {
			d.logger.Warn("skipping malformed image data", "page", pageNumber, "error", err)
			continue
		}

		text, err := d.ocr(raw)
		if err != nil {
			d.logger.Warn("ocr failed for image", "page", pageNumber, "error", err)
			continue
		}

		for _, p := range d.DetectFromText(text, pageNumber) {
			p.Images = []string{img.DataURI()}
			p.Source = SourceOCR
			products = append(products, p)
		}
	}

	return products
}

// Combine merges per-strategy candidate lists into one deduplicated list.
// First occurrence of a key is canonical and keeps insertion order;
// duplicates only backfill description, price and images the canonical
// record lacks.
func (d *Detector) Combine(lists ...[]*models.Product) []*models.Product {
	var combined []*models.Product
	byKey := make(map[string]*models.Product)

	for _, list := range lists {
		for _, p := range list {
			key := productKey(p)
			canonical, seen := byKey[key]
			if !seen {
				byKey[key] = p
				combined = append(combined, p)
				continue
			}
			if canonical.Description == "" && p.Description != "" {
				canonical.Description = p.Description
			}
			if canonical.Price == "" && p.Price != "" {
				canonical.Price = p.Price
			}
			if len(canonical.Images) == 0 && len(p.Images) > 0 {
				canonical.Images = p.Images
			}
		}
	}

	return combined
}

// productKey derives the dedup key: lowercased title prefix plus price
// prefix. The 50/20 truncation is the established contract; it can falsely
// merge distinct products sharing a long title prefix and the same price.
func productKey(p *models.Product) string {
	title := truncate(strings.ToLower(strings.TrimSpace(p.Title)), keyTitleLen)
	title = spaceCollapse.ReplaceAllString(title, " ")
	price := truncate(strings.TrimSpace(p.Price), keyPriceLen)
	return title + "|" + price
}

// extractTitle pulls a product title out of a single line: labeled
// indicators first, then any plausible free-form name line.
func extractTitle(line string) string {
	for _, pattern := range titleIndicators {
		if m := pattern.FindStringSubmatch(line); m != nil {
			title := spaceCollapse.ReplaceAllString(strings.TrimSpace(m[1]), " ")
			if len(title) >= 3 && len(title) <= maxTitleLen {
				return title
			}
		}
	}

	clean := strings.TrimSpace(line)
	if len(clean) < 5 || len(clean) > maxTitleLen {
		return ""
	}
	if numericLine.MatchString(clean) {
		return ""
	}
	lower := strings.ToLower(clean)
	for _, prefix := range []string{"price", "cost", "amount", "total", "description"} {
		if strings.HasPrefix(lower, prefix) {
			return ""
		}
	}
	return strings.TrimSpace(titlePrefix.ReplaceAllString(clean, ""))
}

// extractPrice returns the first price-looking token in the line, or "".
// A match must contain at least one digit.
func extractPrice(line string) string {
	for _, pattern := range pricePatterns {
		if m := pattern.FindString(line); m != "" {
			price := strings.TrimSpace(m)
			if anyDigit.MatchString(price) {
				return price
			}
		}
	}
	return ""
}

// isValid applies the minimum-fields rule: a title of more than two
// characters or a non-empty price, and the title must not itself look like
// a price.
func isValid(p *models.Product) bool {
	if !p.HasTitle() && !p.HasPrice() {
		return false
	}
	if p.Title != "" && numericLine.MatchString(p.Title) {
		return false
	}
	return true
}

func nonEmptyLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

func trimCells(row []string) []string {
	cells := make([]string, len(row))
	for i, cell := range row {
		cells[i] = strings.TrimSpace(cell)
	}
	return cells
}

func rowHasContent(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return true
		}
	}
	return false
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func columnIndex(columns map[string]int, role string) int {
	if idx, ok := columns[role]; ok {
		return idx
	}
	return -1
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
