package llm

import "context"

// FileRef identifies a document uploaded to the AI service for the duration
// of one parse request.
type FileRef struct {
	ID   string
	Name string
}

// CompletionRequest is one model attempt. When Schema is set the completion
// is JSON-schema constrained; otherwise the model may answer with free text
// (used for the OCR-style fallback).
type CompletionRequest struct {
	Model       string
	System      string
	User        string
	FileID      string
	Schema      map[string]any
	SchemaName  string
	Temperature float32
}

// CompletionResult carries whichever the model produced: structured rows, or
// free text. A malformed body is reported as empty rows with the raw text,
// never as an error.
type CompletionResult struct {
	Rows []map[string]any
	Text string
}

// Client is the AI extraction service surface the orchestrator depends on.
type Client interface {
	UploadFile(ctx context.Context, name, mimeType string, data []byte) (FileRef, error)
	Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error)
	DeleteFile(ctx context.Context, ref FileRef) error
}
