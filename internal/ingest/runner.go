package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/vapl/orderdocs/internal/pipeline"
	"github.com/vapl/orderdocs/internal/schema"
)

// Result pairs one discovered attachment with its parse outcome.
type Result struct {
	Path         string
	HashHex      string
	Deduplicated bool
	Parsed       pipeline.ParseResult
	Err          error
}

// Runner consumes watcher events and pushes each attachment through the
// pipeline. Files are deduplicated by content hash for the lifetime of the
// runner, so a rename or a touched mtime does not trigger a second parse.
type Runner struct {
	Processor *pipeline.Processor
	Columns   []schema.Column
	Logger    *slog.Logger

	seen map[string]struct{}
}

func NewRunner(proc *pipeline.Processor, cols []schema.Column, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		Processor: proc,
		Columns:   cols,
		Logger:    logger,
		seen:      make(map[string]struct{}),
	}
}

// Run processes paths until the channel closes or ctx is cancelled, calling
// sink for every parsed attachment. Per-file failures are reported through
// the sink and never stop the loop.
func (r *Runner) Run(ctx context.Context, paths <-chan string, sink func(Result)) {
	for {
		select {
		case <-ctx.Done():
			return
		case path, ok := <-paths:
			if !ok {
				return
			}
			res := r.ProcessPath(ctx, path)
			if res.Deduplicated {
				continue
			}
			sink(res)
		}
	}
}

// ProcessPath reads, hashes and parses a single attachment.
func (r *Runner) ProcessPath(ctx context.Context, path string) Result {
	start := time.Now()
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{Path: path, Err: err}
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	if _, dup := r.seen[hash]; dup {
		r.Logger.Info("ingest.deduplicated", "path", path, "hash", hash[:12])
		return Result{Path: path, HashHex: hash, Deduplicated: true}
	}
	r.seen[hash] = struct{}{}

	parsed, err := r.Processor.Parse(ctx, pipeline.ParseRequest{
		FileName: filepath.Base(path),
		MimeType: mime.TypeByExtension(filepath.Ext(path)),
		Data:     data,
		Columns:  r.Columns,
	})
	if err != nil {
		r.Logger.Warn("ingest.parse_failed", "path", path, "error", err)
		return Result{Path: path, HashHex: hash, Err: err}
	}

	r.Logger.Info("ingest.parsed",
		"path", path,
		"rows", parsed.DetectedRows,
		"model", parsed.ParserModel,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return Result{Path: path, HashHex: hash, Parsed: parsed}
}
