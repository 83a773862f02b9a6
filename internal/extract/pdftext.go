package extract

import (
	"bytes"
	"log/slog"

	"github.com/ledongthuc/pdf"
)

// PDFText extracts the embedded text layer of a PDF, best effort: any
// failure, including a panic inside the reader on malformed files, yields an
// empty string. Scanned drawings without a text layer also come back empty;
// the caller falls through to the AI tier in that case.
func PDFText(data []byte, logger *slog.Logger) (text string) {
	if logger == nil {
		logger = slog.Default()
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("extract.pdftext.panic", "recovered", r)
			text = ""
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		logger.Warn("extract.pdftext.open_failed", "error", err)
		return ""
	}

	var b bytes.Buffer
	for pageIndex := 1; pageIndex <= r.NumPage(); pageIndex++ {
		p := r.Page(pageIndex)
		if p.V.IsNull() {
			continue
		}
		rows, err := p.GetTextByRow()
		if err != nil {
			continue
		}
		for _, row := range rows {
			for wi, word := range row.Content {
				if wi > 0 {
					b.WriteString(" ")
				}
				b.WriteString(word.S)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}
