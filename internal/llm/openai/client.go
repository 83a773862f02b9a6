package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vapl/orderdocs/internal/common"
	"github.com/vapl/orderdocs/internal/llm"
)

func isRetryable(status int) bool {
	switch status {
	case http.StatusRequestTimeout, http.StatusConflict, http.StatusTooManyRequests:
		return true
	}
	return status >= 500
}

// UploadFile implements llm.Client. The upload gets its own, longer per-call
// timeout; retryable statuses are re-attempted with linear backoff.
func (c *Client) UploadFile(ctx context.Context, name, mimeType string, data []byte) (llm.FileRef, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("purpose", "user_data"); err != nil {
		return llm.FileRef{}, fmt.Errorf("write purpose field: %w", err)
	}
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return llm.FileRef{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return llm.FileRef{}, fmt.Errorf("write file part: %w", err)
	}
	if err := w.Close(); err != nil {
		return llm.FileRef{}, fmt.Errorf("close multipart writer: %w", err)
	}
	body := buf.Bytes()

	raw, err := c.do(ctx, "llm.upload", c.cfg.UploadTimeout, func(callCtx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.cfg.BaseURL+"/files", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", w.FormDataContentType())
		return req, nil
	})
	if err != nil {
		return llm.FileRef{}, err
	}

	var out struct {
		ID       string `json:"id"`
		Filename string `json:"filename"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return llm.FileRef{}, fmt.Errorf("decode upload response: %w", err)
	}
	if out.ID == "" {
		return llm.FileRef{}, fmt.Errorf("upload response missing file id: %w", common.ErrUpstream)
	}
	return llm.FileRef{ID: out.ID, Name: out.Filename}, nil
}

// Complete implements llm.Client. A schema-constrained request returns rows
// when the body validates; a malformed body comes back as plain text, never
// as an error.
func (c *Client) Complete(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResult, error) {
	var userContent any = req.User
	if req.FileID != "" {
		userContent = []map[string]any{
			{"type": "file", "file": map[string]any{"file_id": req.FileID}},
			{"type": "text", "text": req.User},
		}
	}
	body := map[string]any{
		"model":       req.Model,
		"temperature": req.Temperature,
		"messages": []map[string]any{
			{"role": "system", "content": req.System},
			{"role": "user", "content": userContent},
		},
	}
	if req.Schema != nil {
		name := req.SchemaName
		if name == "" {
			name = "order_rows"
		}
		body["response_format"] = map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   name,
				"strict": true,
				"schema": req.Schema,
			},
		}
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return llm.CompletionResult{}, fmt.Errorf("encode completion request: %w", err)
	}

	raw, err := c.do(ctx, "llm.complete", c.cfg.CallTimeout, func(callCtx context.Context) (*http.Request, error) {
		httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		return httpReq, nil
	})
	if err != nil {
		return llm.CompletionResult{}, err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil || len(cc.Choices) == 0 {
		c.log.Warn("llm.complete.malformed_body", "model", req.Model, "bytes", len(raw))
		return llm.CompletionResult{}, nil
	}
	content := strings.TrimSpace(cc.Choices[0].Message.Content)

	res := llm.CompletionResult{Text: content}
	if req.Schema != nil {
		res.Rows = llm.DecodeRows([]byte(content), req.Schema)
		if res.Rows == nil && content != "" {
			c.log.Warn("llm.complete.schema_mismatch", "model", req.Model, "content_len", len(content))
		}
	}
	return res, nil
}

// DeleteFile implements llm.Client. Best effort; callers swallow the error.
func (c *Client) DeleteFile(ctx context.Context, ref llm.FileRef) error {
	if ref.ID == "" {
		return nil
	}
	_, err := c.do(ctx, "llm.delete", c.cfg.CallTimeout, func(callCtx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(callCtx, http.MethodDelete, c.cfg.BaseURL+"/files/"+ref.ID, nil)
	})
	return err
}

// do runs one API call with per-call timeout, bearer auth, and bounded
// retries. Retries fire only for the fixed retryable-status set; a call
// aborted by its own timeout or by the parent context never retries, so the
// caller's deadline check can short-circuit the cascade.
func (c *Client) do(ctx context.Context, event string, timeout time.Duration, build func(context.Context) (*http.Request, error)) ([]byte, error) {
	reqID := uuid.New().String()

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * c.cfg.BackoffStep
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, fmt.Errorf("%s aborted during backoff: %w", event, ctx.Err())
			}
		}

		start := time.Now()
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		req, err := build(callCtx)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("%s build request: %w", event, err)
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

		resp, err := c.http.Do(req)
		if err != nil {
			cancel()
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%s cancelled: %w", event, ctx.Err())
			}
			if errors.Is(err, context.DeadlineExceeded) {
				c.log.Warn(event+".timeout", "req_id", reqID, "attempt", attempt, "elapsed_ms", time.Since(start).Milliseconds())
				return nil, fmt.Errorf("%s: %w", event, common.ErrUpstreamTimeout)
			}
			return nil, fmt.Errorf("%s: %v: %w", event, err, common.ErrUpstream)
		}

		raw, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		cancel()
		if readErr != nil {
			return nil, fmt.Errorf("%s read body: %v: %w", event, readErr, common.ErrUpstream)
		}

		c.log.Info(event+".response",
			"req_id", reqID,
			"attempt", attempt,
			"status", resp.StatusCode,
			"bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)

		if resp.StatusCode/100 == 2 {
			return raw, nil
		}
		if isRetryable(resp.StatusCode) && attempt < c.cfg.MaxRetries {
			c.log.Warn(event+".retry", "req_id", reqID, "status", resp.StatusCode, "attempt", attempt)
			continue
		}
		return nil, fmt.Errorf("%s status %d: %w", event, resp.StatusCode, common.ErrUpstream)
	}
}
