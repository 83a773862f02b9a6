// Package export renders parsed order rows back into an XLSX workbook, the
// shape most downstream ERP imports expect.
package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/vapl/orderdocs/internal/schema"
)

const sheetName = "Order items"

// Workbook builds an XLSX file with one header row of column labels and one
// row per parsed item. Multi-select values are joined with ", ".
func Workbook(cols []schema.Column, rows []schema.ParsedRow) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	header := make([]any, len(cols))
	for i, c := range cols {
		label := c.Label
		if label == "" {
			label = c.Key
		}
		header[i] = label
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for ri, row := range rows {
		cells := make([]any, len(cols))
		for ci, c := range cols {
			cells[ci] = cellValue(row.Values[c.Key])
		}
		addr, err := excelize.CoordinatesToCellName(1, ri+2)
		if err != nil {
			return nil, fmt.Errorf("cell address: %w", err)
		}
		if err := f.SetSheetRow(sheetName, addr, &cells); err != nil {
			return nil, fmt.Errorf("write row %d: %w", ri, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func cellValue(v any) any {
	switch t := v.(type) {
	case nil:
		return ""
	case []string:
		return strings.Join(t, ", ")
	default:
		return t
	}
}
