package extract

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/vapl/orderdocs/internal/schema"
)

// headerScanLimit bounds how deep we look for a header row; real order
// spreadsheets carry at most a few banner rows above it.
const headerScanLimit = 10

// SpreadsheetRows reads the first sheet of an XLSX/XLS workbook, locates the
// header row by fuzzy-matching header cells against the target columns, and
// emits one RawRow per data row keyed by the matched column keys. The header
// cell text is recorded as provenance.
func SpreadsheetRows(data []byte, cols []schema.Column, logger *slog.Logger) ([]schema.RawRow, error) {
	if logger == nil {
		logger = slog.Default()
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			logger.Warn("extract.spreadsheet.close_error", "error", cerr)
		}
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	matrix, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	headerIdx, colByIndex := locateHeader(matrix, cols)
	if headerIdx < 0 {
		logger.Warn("extract.spreadsheet.no_header", "sheet", sheets[0], "rows", len(matrix))
		return nil, nil
	}
	header := matrix[headerIdx]

	rows := make([]schema.RawRow, 0, len(matrix)-headerIdx-1)
	for _, cells := range matrix[headerIdx+1:] {
		row := schema.RawRow{
			Fields:  make(map[string]any, len(colByIndex)),
			Sources: make(map[string]string, len(colByIndex)),
		}
		filled := false
		for ci, key := range colByIndex {
			if ci >= len(cells) {
				continue
			}
			val := strings.TrimSpace(cells[ci])
			row.Fields[key] = val
			if val != "" {
				row.Sources[key] = strings.TrimSpace(header[ci])
				filled = true
			}
		}
		if filled {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// locateHeader returns the index of the first row where at least one cell
// fuzzy-matches a column identifier, plus the cell-index -> column-key map.
func locateHeader(matrix [][]string, cols []schema.Column) (int, map[int]string) {
	limit := len(matrix)
	if limit > headerScanLimit {
		limit = headerScanLimit
	}
	for ri := 0; ri < limit; ri++ {
		mapping := matchHeaderRow(matrix[ri], cols)
		if len(mapping) > 0 {
			return ri, mapping
		}
	}
	return -1, nil
}

func matchHeaderRow(cells []string, cols []schema.Column) map[int]string {
	mapping := make(map[int]string)
	taken := make(map[string]struct{}, len(cols))
	for ci, cell := range cells {
		norm := schema.NormalizeToken(cell)
		if norm == "" {
			continue
		}
		for _, c := range cols {
			if _, ok := taken[c.Key]; ok {
				continue
			}
			if headerMatches(norm, c) {
				mapping[ci] = c.Key
				taken[c.Key] = struct{}{}
				break
			}
		}
	}
	return mapping
}

// headerMatches accepts exact normalized equality with any column identifier
// or containment either way, so "Qty." matches a "quantity" column and
// "Profile system" matches "system".
func headerMatches(normCell string, c schema.Column) bool {
	for _, id := range c.Identifiers() {
		normID := schema.NormalizeToken(id)
		if normID == "" {
			continue
		}
		if normCell == normID ||
			strings.Contains(normCell, normID) ||
			strings.Contains(normID, normCell) {
			return true
		}
	}
	return false
}
