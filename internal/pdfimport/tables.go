package pdfimport

import (
	"regexp"
	"strings"
)

// Cell boundaries in text-layer tables show up as tabs or runs of two or
// more spaces.
var cellSeparator = regexp.MustCompile(`\t+|\s{2,}`)

// RecoverTables reconstructs tabular data from a page's text layer. Lines
// that split into two or more cells are grouped into blocks; a block of at
// least two consecutive multi-cell lines is treated as one table (header
// plus data rows). Rows are padded to the block width so ragged extraction
// does not drop trailing cells.
func RecoverTables(text string) [][][]string {
	var tables [][][]string
	var block [][]string

	flush := func() {
		if len(block) >= 2 {
			tables = append(tables, padRows(block))
		}
		block = nil
	}

	for _, line := range strings.Split(text, "\n") {
		cells := splitCells(line)
		if len(cells) >= 2 {
			block = append(block, cells)
			continue
		}
		flush()
	}
	flush()

	return tables
}

func splitCells(line string) []string {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	var cells []string
	for _, cell := range cellSeparator.Split(line, -1) {
		if cell = strings.TrimSpace(cell); cell != "" {
			cells = append(cells, cell)
		}
	}
	return cells
}

func padRows(rows [][]string) [][]string {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	padded := make([][]string, len(rows))
	for i, row := range rows {
		if len(row) == width {
			padded[i] = row
			continue
		}
		p := make([]string, width)
		copy(p, row)
		padded[i] = p
	}
	return padded
}
