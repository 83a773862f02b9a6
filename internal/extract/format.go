package extract

import (
	"path/filepath"
	"strings"
)

// Format classifies an attachment into the two source families the cascade
// understands.
type Format string

const (
	FormatSpreadsheet Format = "SPREADSHEET"
	FormatPDF         Format = "PDF"
	FormatUnknown     Format = ""
)

// DetectFormat decides the format from the file name and declared mime type.
// No side effects; unrecognized combinations are rejected by the caller.
func DetectFormat(fileName, mimeType string) Format {
	ext := strings.ToLower(filepath.Ext(fileName))
	mime := strings.ToLower(mimeType)

	switch {
	case ext == ".xlsx" || ext == ".xls",
		strings.Contains(mime, "spreadsheet"),
		strings.Contains(mime, "excel"):
		return FormatSpreadsheet
	case ext == ".pdf", strings.Contains(mime, "pdf"):
		return FormatPDF
	default:
		return FormatUnknown
	}
}
