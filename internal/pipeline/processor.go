package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/vapl/orderdocs/internal/common"
	"github.com/vapl/orderdocs/internal/extract"
	"github.com/vapl/orderdocs/internal/normalize"
	"github.com/vapl/orderdocs/internal/parser"
	"github.com/vapl/orderdocs/internal/schema"
)

const rawTextPreviewLimit = 300

// clipPreview bounds the raw-text preview, backing up to a rune boundary so
// the clipped tail stays valid UTF-8.
func clipPreview(s string) string {
	if len(s) <= rawTextPreviewLimit {
		return s
	}
	cut := rawTextPreviewLimit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// ParseRequest is one attachment plus the target column schema. Identity,
// authorization and attachment resolution happen upstream; by the time this
// runs the byte stream and schema are settled.
type ParseRequest struct {
	FileName string
	MimeType string
	Data     []byte
	Columns  []schema.Column
}

// ParseResult is the full response contract: rows, per-column mapping
// diagnostics, the tier/model audit trail, and a clipped raw-text preview.
type ParseResult struct {
	Rows           []schema.ParsedRow     `json:"rows"`
	Mapping        []schema.ColumnMapping `json:"mapping"`
	DetectedRows   int                    `json:"detected_rows"`
	ParserModel    string                 `json:"parser_model"`
	RawTextPreview string                 `json:"raw_text_preview"`
}

// Processor drives one parse request through the cascade: format
// classification, the spreadsheet or PDF path, anchor sanitizing, and
// normalization. A structurally valid request never errors out of here for
// extraction reasons; only invalid input and a failed AI upload do.
type Processor struct {
	Logger       *slog.Logger
	Orchestrator *Orchestrator // nil disables the AI tier
}

func NewProcessor(logger *slog.Logger, orch *Orchestrator) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{Logger: logger, Orchestrator: orch}
}

func (p *Processor) Parse(ctx context.Context, req ParseRequest) (ParseResult, error) {
	start := time.Now()
	cols, err := schema.ValidateColumns(req.Columns)
	if err != nil {
		return ParseResult{}, fmt.Errorf("validate columns: %v: %w", err, common.ErrInvalidInput)
	}
	if len(req.Data) == 0 {
		return ParseResult{}, fmt.Errorf("attachment is empty: %w", common.ErrInvalidInput)
	}

	format := extract.DetectFormat(req.FileName, req.MimeType)
	p.Logger.Info("parse.start",
		"req_id", common.RequestIDFromContext(ctx),
		"file", req.FileName,
		"format", string(format),
		"bytes", len(req.Data),
		"columns", len(cols),
	)

	var (
		raw     []schema.RawRow
		model   string
		rawText string
	)

	switch format {
	case extract.FormatSpreadsheet:
		raw, err = extract.SpreadsheetRows(req.Data, cols, p.Logger)
		if err != nil {
			// Best effort: an unreadable workbook yields an empty result,
			// not a failure.
			p.Logger.Warn("parse.spreadsheet_failed", "file", req.FileName, "error", err)
			raw = nil
		}
		model = "spreadsheet"

	case extract.FormatPDF:
		rawText = extract.PDFText(req.Data, p.Logger)
		if blocks := parser.ParseStructured(rawText); len(blocks) > 0 {
			raw = parser.RowsFromBlocks(blocks, cols)
		}
		if len(raw) > 0 {
			model = "heuristic"
			break
		}
		if p.Orchestrator == nil {
			raw = parser.ParseGeneric(rawText, cols)
			model = "heuristic"
			break
		}
		res, aerr := p.Orchestrator.Run(ctx, Document{
			Name:     req.FileName,
			MimeType: req.MimeType,
			Data:     req.Data,
		}, rawText, cols)
		if aerr != nil {
			return ParseResult{}, fmt.Errorf("ai extraction: %w", aerr)
		}
		raw, model = res.Rows, res.Model
		rawText = longest(rawText, res.RawText)
		if res.FromModel {
			// Trust but verify: ground model-produced position labels
			// against anchors in the document text.
			parser.SanitizePositions(rawText, cols, raw)
		}

	default:
		return ParseResult{}, fmt.Errorf("unsupported attachment %q (%s): %w", req.FileName, req.MimeType, common.ErrInvalidInput)
	}

	rows, mapping := normalize.Rows(raw, cols)
	preview := clipPreview(rawText)

	p.Logger.Info("parse.ok",
		"req_id", common.RequestIDFromContext(ctx),
		"file", req.FileName,
		"model", model,
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return ParseResult{
		Rows:           rows,
		Mapping:        mapping,
		DetectedRows:   len(rows),
		ParserModel:    model,
		RawTextPreview: preview,
	}, nil
}
