package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vapl/orderdocs/internal/llm"
	"github.com/vapl/orderdocs/internal/schema"
)

var orderColumns = []schema.Column{
	{Key: "position", Label: "Position"},
	{Key: "system", Label: "System"},
	{Key: "quantity", Label: "Quantity", FieldType: schema.FieldTypeNumber},
}

const structuredText = "Pos. A1 Aluminium System 70\nQuantity: 4\n"

// text no heuristic tier can turn into rows
const opaqueText = "lorem ipsum dolor sit amet"

type fakeClient struct {
	uploadErr  error
	completeFn func(req llm.CompletionRequest) (llm.CompletionResult, error)

	uploads   int
	completes []llm.CompletionRequest
	deletes   []llm.FileRef
}

func (f *fakeClient) UploadFile(ctx context.Context, name, mimeType string, data []byte) (llm.FileRef, error) {
	f.uploads++
	if f.uploadErr != nil {
		return llm.FileRef{}, f.uploadErr
	}
	return llm.FileRef{ID: "file-1", Name: name}, nil
}

func (f *fakeClient) Complete(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResult, error) {
	f.completes = append(f.completes, req)
	if f.completeFn == nil {
		return llm.CompletionResult{}, nil
	}
	return f.completeFn(req)
}

func (f *fakeClient) DeleteFile(ctx context.Context, ref llm.FileRef) error {
	f.deletes = append(f.deletes, ref)
	return nil
}

func newTestOrchestrator(c llm.Client) *Orchestrator {
	return NewOrchestrator(c, nil, "gpt-4o", []string{"gpt-4o", "gpt-4.1"}, time.Minute)
}

func TestRunLocalTextShortCircuitsBeforeAnyNetworkCall(t *testing.T) {
	fc := &fakeClient{}
	o := newTestOrchestrator(fc)

	res, err := o.Run(context.Background(), Document{Name: "a.pdf"}, structuredText, orderColumns)
	require.NoError(t, err)
	assert.Equal(t, "heuristic", res.Model)
	assert.False(t, res.FromModel)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "A1", res.Rows[0].Fields["position"])
	assert.Zero(t, fc.uploads)
	assert.Empty(t, fc.completes)
	assert.Empty(t, fc.deletes)
}

func TestRunFirstModelReturnsRows(t *testing.T) {
	fc := &fakeClient{
		completeFn: func(req llm.CompletionRequest) (llm.CompletionResult, error) {
			return llm.CompletionResult{Rows: []map[string]any{
				{"position": "A1", "system": "System 70", "quantity": "4"},
			}}, nil
		},
	}
	o := newTestOrchestrator(fc)

	res, err := o.Run(context.Background(), Document{Name: "a.pdf"}, opaqueText, orderColumns)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", res.Model)
	assert.True(t, res.FromModel)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "A1", res.Rows[0].Fields["position"])

	require.Len(t, fc.deletes, 1, "remote file is always cleaned up")
	assert.Equal(t, "file-1", fc.deletes[0].ID)
	require.Len(t, fc.completes, 1)
	assert.Equal(t, "file-1", fc.completes[0].FileID)
	assert.NotNil(t, fc.completes[0].Schema)
}

func TestRunModelFreeTextFallsBackToHeuristics(t *testing.T) {
	fc := &fakeClient{
		completeFn: func(req llm.CompletionRequest) (llm.CompletionResult, error) {
			if req.Schema != nil {
				// schema-constrained attempt yields prose instead of rows
				return llm.CompletionResult{Text: structuredText}, nil
			}
			t.Fatal("heuristics on the model's text should win before OCR")
			return llm.CompletionResult{}, nil
		},
	}
	o := newTestOrchestrator(fc)

	res, err := o.Run(context.Background(), Document{Name: "a.pdf"}, "", orderColumns)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o heuristic", res.Model)
	assert.False(t, res.FromModel)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "4", res.Rows[0].Fields["quantity"])
	assert.Len(t, fc.deletes, 1)
}

func TestRunOCRFallbackAndTrail(t *testing.T) {
	fc := &fakeClient{
		completeFn: func(req llm.CompletionRequest) (llm.CompletionResult, error) {
			if req.Schema != nil {
				return llm.CompletionResult{}, nil
			}
			// OCR transcription of the uploaded file
			if req.Model == "gpt-4.1" {
				return llm.CompletionResult{Text: structuredText}, nil
			}
			return llm.CompletionResult{Text: opaqueText}, nil
		},
	}
	o := newTestOrchestrator(fc)

	res, err := o.Run(context.Background(), Document{Name: "a.pdf"}, "", orderColumns)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4.1 heuristic (gpt-4o -> gpt-4.1)", res.Model)
	require.Len(t, res.Rows, 1)
	assert.Len(t, fc.deletes, 1)
}

func TestRunAbsorbsModelFailuresAndAdvances(t *testing.T) {
	fc := &fakeClient{
		completeFn: func(req llm.CompletionRequest) (llm.CompletionResult, error) {
			if req.Model == "gpt-4o" {
				return llm.CompletionResult{}, errors.New("boom")
			}
			return llm.CompletionResult{Rows: []map[string]any{{"position": "B2"}}}, nil
		},
	}
	o := newTestOrchestrator(fc)

	res, err := o.Run(context.Background(), Document{Name: "a.pdf"}, "", orderColumns)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4.1 (gpt-4o -> gpt-4.1)", res.Model)
	assert.True(t, res.FromModel)
	assert.Len(t, fc.deletes, 1)
}

func TestRunExhaustionIsNotAnError(t *testing.T) {
	fc := &fakeClient{
		completeFn: func(req llm.CompletionRequest) (llm.CompletionResult, error) {
			return llm.CompletionResult{Text: opaqueText}, nil
		},
	}
	o := newTestOrchestrator(fc)

	res, err := o.Run(context.Background(), Document{Name: "a.pdf"}, "", orderColumns)
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
	assert.Equal(t, "exhausted (gpt-4o -> gpt-4.1)", res.Model)
	assert.Equal(t, opaqueText, res.RawText, "best text seen is kept for diagnostics")
	assert.Len(t, fc.deletes, 1)
}

func TestRunUploadFailureAborts(t *testing.T) {
	fc := &fakeClient{uploadErr: errors.New("upstream down")}
	o := newTestOrchestrator(fc)

	_, err := o.Run(context.Background(), Document{Name: "a.pdf"}, opaqueText, orderColumns)
	require.Error(t, err)
	assert.Empty(t, fc.completes)
	assert.Empty(t, fc.deletes, "nothing to clean up when the upload never landed")
}

func TestRunDeadlineBeforeUploadMakesNoNetworkCalls(t *testing.T) {
	fc := &fakeClient{}
	o := newTestOrchestrator(fc)
	o.Deadline = 2 * time.Second

	base := time.Now()
	calls := 0
	o.Now = func() time.Time {
		calls++
		// first call establishes the budget, every later call is past it
		if calls == 1 {
			return base
		}
		return base.Add(5 * time.Second)
	}

	res, err := o.Run(context.Background(), Document{Name: "a.pdf"}, opaqueText, orderColumns)
	require.NoError(t, err)
	assert.Equal(t, "deadline", res.Model)
	assert.Empty(t, res.Rows)
	assert.Zero(t, fc.uploads)
	assert.Empty(t, fc.completes)
}

func TestRunDeadlineAfterUploadStopsCascadeAndCleansUp(t *testing.T) {
	fc := &fakeClient{}
	o := newTestOrchestrator(fc)
	o.Deadline = 2 * time.Second

	base := time.Now()
	calls := 0
	o.Now = func() time.Time {
		calls++
		// budget setup and the pre-upload check fit, the first completion
		// check does not
		t := base.Add(time.Duration(calls-1) * 1500 * time.Millisecond)
		return t
	}

	res, err := o.Run(context.Background(), Document{Name: "a.pdf"}, opaqueText, orderColumns)
	require.NoError(t, err)
	assert.Equal(t, "exhausted", res.Model)
	assert.Equal(t, 1, fc.uploads)
	assert.Empty(t, fc.completes, "no completion is issued once the budget is spent")
	assert.Len(t, fc.deletes, 1)
}

func TestRunCancelledContextStopsBetweenModels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fc := &fakeClient{
		completeFn: func(req llm.CompletionRequest) (llm.CompletionResult, error) {
			cancel()
			return llm.CompletionResult{}, ctx.Err()
		},
	}
	o := newTestOrchestrator(fc)

	res, err := o.Run(ctx, Document{Name: "a.pdf"}, "", orderColumns)
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
	assert.Len(t, fc.completes, 1, "cancellation is terminal, not absorbed")
	assert.Len(t, fc.deletes, 1)
}
