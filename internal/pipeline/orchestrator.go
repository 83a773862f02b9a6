package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/vapl/orderdocs/internal/llm"
	"github.com/vapl/orderdocs/internal/parser"
	"github.com/vapl/orderdocs/internal/schema"
)

// Document is the raw attachment handed to the AI tier.
type Document struct {
	Name     string
	MimeType string
	Data     []byte
}

// AIResult is whatever the orchestrator could obtain within the deadline.
// Rows may be empty; RawText is the most informative text seen across all
// attempts, kept for caller-side diagnostics. FromModel distinguishes rows
// taken straight from a model's structured answer (which the anchor
// sanitizer verifies) from rows the heuristic tiers re-derived from text.
type AIResult struct {
	Rows      []schema.RawRow
	Model     string
	RawText   string
	FromModel bool
}

// Orchestrator runs the AI extraction cascade: heuristics on any local text,
// file upload, schema-constrained completions per candidate model, OCR-text
// fallback, all under one wall-clock deadline, with guaranteed remote-file
// cleanup.
type Orchestrator struct {
	Client      llm.Client
	Logger      *slog.Logger
	Model       string
	Fallbacks   []string
	Temperature float32
	Deadline    time.Duration

	// Now is a clock hook for deadline tests; nil means time.Now.
	Now func() time.Time
}

func NewOrchestrator(client llm.Client, logger *slog.Logger, model string, fallbacks []string, deadline time.Duration) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if deadline <= 0 {
		deadline = 90 * time.Second
	}
	return &Orchestrator{
		Client:    client,
		Logger:    logger,
		Model:     model,
		Fallbacks: fallbacks,
		Deadline:  deadline,
	}
}

// budget is the single reusable deadline guard checked before every major
// cascade step.
type budget struct {
	deadline time.Time
	now      func() time.Time
}

func (b budget) exceeded() bool { return b.now().After(b.deadline) }

func (o *Orchestrator) newBudget() budget {
	now := o.Now
	if now == nil {
		now = time.Now
	}
	return budget{deadline: now().Add(o.Deadline), now: now}
}

// candidates returns the preferred model followed by the fallback list with
// the preferred model removed.
func (o *Orchestrator) candidates() []string {
	out := []string{o.Model}
	for _, m := range o.Fallbacks {
		if m != o.Model {
			out = append(out, m)
		}
	}
	return out
}

// Run executes the cascade. It never reports extraction failure as an error:
// exhaustion yields an empty row list plus the best text seen. Only a failed
// file upload (the entry ticket to every model attempt) aborts with an
// error.
func (o *Orchestrator) Run(ctx context.Context, doc Document, text string, cols []schema.Column) (AIResult, error) {
	b := o.newBudget()
	best := text

	// Tier 1+2 on locally extracted text, no network involved.
	if strings.TrimSpace(text) != "" {
		if rows, tier := tryHeuristics(text, cols); len(rows) > 0 {
			o.Logger.Info("orchestrator.local_text_ok", "tier", tier, "rows", len(rows))
			return AIResult{Rows: rows, Model: "heuristic", RawText: text}, nil
		}
	}

	if b.exceeded() {
		o.Logger.Warn("orchestrator.deadline_exceeded", "step", "upload")
		return AIResult{RawText: best, Model: "deadline"}, nil
	}

	ref, err := o.Client.UploadFile(ctx, doc.Name, doc.MimeType, doc.Data)
	if err != nil {
		return AIResult{RawText: best}, err
	}
	defer func() {
		// Cleanup runs on every exit path and must survive an expired parent
		// context; its failure never masks the primary result.
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
		defer cancel()
		if derr := o.Client.DeleteFile(cctx, ref); derr != nil {
			o.Logger.Warn("orchestrator.cleanup_failed", "file_id", ref.ID, "error", derr)
		}
	}()

	rowsSchema := llm.BuildRowsJSONSchema(cols)
	system := llm.BuildExtractionSystemPrompt(cols)
	var attempted []string

	for _, model := range o.candidates() {
		if b.exceeded() {
			o.Logger.Warn("orchestrator.deadline_exceeded", "step", "completion", "attempted", attempted)
			break
		}
		attempted = append(attempted, model)

		res, err := o.Client.Complete(ctx, llm.CompletionRequest{
			Model:       model,
			System:      system,
			User:        llm.BuildExtractionUserPrompt(best),
			FileID:      ref.ID,
			Schema:      rowsSchema,
			SchemaName:  "order_rows",
			Temperature: o.Temperature,
		})
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			// Failures inside the cascade are absorbed; the next candidate
			// gets its chance.
			o.Logger.Warn("orchestrator.model_failed", "model", model, "error", err)
			continue
		}

		if len(res.Rows) > 0 {
			return AIResult{
				Rows:      rawRows(res.Rows),
				Model:     trail(model, attempted),
				RawText:   longest(best, res.Text),
				FromModel: true,
			}, nil
		}
		if res.Text != "" {
			best = longest(best, res.Text)
			if rows, tier := tryHeuristics(res.Text, cols); len(rows) > 0 {
				o.Logger.Info("orchestrator.model_text_heuristic_ok", "model", model, "tier", tier, "rows", len(rows))
				return AIResult{Rows: rows, Model: trail(model+" heuristic", attempted), RawText: best}, nil
			}
		}

		if b.exceeded() {
			o.Logger.Warn("orchestrator.deadline_exceeded", "step", "ocr", "attempted", attempted)
			break
		}
		ocr, err := o.Client.Complete(ctx, llm.CompletionRequest{
			Model:       model,
			System:      "You transcribe documents.",
			User:        llm.BuildOCRPrompt(),
			FileID:      ref.ID,
			Temperature: o.Temperature,
		})
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			o.Logger.Warn("orchestrator.ocr_failed", "model", model, "error", err)
			continue
		}
		if ocr.Text != "" {
			best = longest(best, ocr.Text)
			if rows, tier := tryHeuristics(ocr.Text, cols); len(rows) > 0 {
				o.Logger.Info("orchestrator.ocr_text_heuristic_ok", "model", model, "tier", tier, "rows", len(rows))
				return AIResult{Rows: rows, Model: trail(model+" heuristic", attempted), RawText: best}, nil
			}
		}
	}

	return AIResult{Model: trail("exhausted", attempted), RawText: best}, nil
}

// tryHeuristics runs the structured tier then the generic tier against text.
func tryHeuristics(text string, cols []schema.Column) ([]schema.RawRow, string) {
	if blocks := parser.ParseStructured(text); len(blocks) > 0 {
		if rows := parser.RowsFromBlocks(blocks, cols); len(rows) > 0 {
			return rows, "structured"
		}
	}
	if rows := parser.ParseGeneric(text, cols); len(rows) > 0 {
		return rows, "generic"
	}
	return nil, ""
}

func rawRows(in []map[string]any) []schema.RawRow {
	out := make([]schema.RawRow, 0, len(in))
	for _, m := range in {
		out = append(out, schema.RawRow{Fields: m})
	}
	return out
}

// trail renders the audit string, e.g. "gpt-4.1 heuristic (gpt-4o -> gpt-4.1)".
func trail(winner string, attempted []string) string {
	if len(attempted) <= 1 {
		return winner
	}
	return winner + " (" + strings.Join(attempted, " -> ") + ")"
}

func longest(a, b string) string {
	if len(b) > len(a) {
		return b
	}
	return a
}
