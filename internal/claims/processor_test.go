package claims

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/kentandrian/vertexai-demos/internal/document"
	"github.com/kentandrian/vertexai-demos/internal/vertex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorderSpy implements RunRecorder and records every call.
type recorderSpy struct {
	mu        sync.Mutex
	started   []RunInfo
	outputs   []string
	items     []EnrichedItem
	succeeded []RunSummary
	failed    []error

	StartRunFunc func(ctx context.Context, run RunInfo) error
}

func (r *recorderSpy) StartRun(ctx context.Context, run RunInfo) error {
	r.mu.Lock()
	r.started = append(r.started, run)
	r.mu.Unlock()
	if r.StartRunFunc != nil {
		return r.StartRunFunc(ctx, run)
	}
	return nil
}

func (r *recorderSpy) RecordModelOutput(_ context.Context, _, _, raw string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outputs = append(r.outputs, raw)
	return nil
}

func (r *recorderSpy) InsertClaimItems(_ context.Context, _ string, items []EnrichedItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, items...)
	return nil
}

func (r *recorderSpy) MarkRunSucceeded(_ context.Context, _ string, s RunSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.succeeded = append(r.succeeded, s)
	return nil
}

func (r *recorderSpy) MarkRunFailed(_ context.Context, _ string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, err)
}

func TestProcessor_GarudaFlight(t *testing.T) {
	table := testTable(t)
	model := &fakeModel{
		GenerateFunc: func(ctx context.Context, req vertex.Request) (*vertex.Response, error) {
			if isExtraction(req) {
				return &vertex.Response{Text: garudaExtraction}, nil
			}
			prompt := promptText(req)
			assert.Contains(t, prompt, `"CGK"`)
			return &vertex.Response{Text: "Business-Travel_Travel-Overseas-Flight"}, nil
		},
	}
	rec := &recorderSpy{}

	res, err := NewProcessor(model, table, Options{Model: "m", Workers: 10, Recorder: rec}).
		Process(context.Background(), Input{Document: pdfDoc(), SourceURI: "gs://b/claim.pdf"})
	require.NoError(t, err)

	require.Len(t, res.Items, 1)
	assert.Empty(t, res.Failures)
	item := res.Items[0]
	assert.Equal(t, "Business Travel", item.CategoryClaim)
	assert.Equal(t, "Travel - Overseas - Flight", item.SubCategory)
	assert.Equal(t, "508001", item.COA)
	assert.Equal(t, "Budi Santoso", item.EmployeeName)
	assert.Equal(t, "Garuda Indonesia", item.Merchant)
	assert.NotEmpty(t, res.RunID)
	assert.JSONEq(t, garudaExtraction, string(res.RawExtraction))
	assert.False(t, res.FinishedAt.Before(res.StartedAt))

	require.Len(t, rec.started, 1)
	assert.Equal(t, res.RunID, rec.started[0].RunID)
	assert.Equal(t, "gs://b/claim.pdf", rec.started[0].SourceURI)
	assert.Len(t, rec.outputs, 1)
	assert.Len(t, rec.items, 1)
	assert.Equal(t, []RunSummary{{Items: 1, Failures: 0}}, rec.succeeded)
	assert.Empty(t, rec.failed)
}

func TestProcessor_GarbageKeyFallsBack(t *testing.T) {
	model := &fakeModel{
		GenerateFunc: func(ctx context.Context, req vertex.Request) (*vertex.Response, error) {
			if isExtraction(req) {
				return &vertex.Response{Text: garudaExtraction}, nil
			}
			return &vertex.Response{Text: "garbage_key"}, nil
		},
	}

	res, err := NewProcessor(model, testTable(t), Options{Model: "m"}).Process(context.Background(), Input{Document: pdfDoc()})
	require.NoError(t, err)

	require.Len(t, res.Items, 1)
	assert.Equal(t, "Uncategorized", res.Items[0].CategoryClaim)
	assert.Equal(t, "999999", res.Items[0].COA)
	assert.Equal(t, ClassificationKey("Default_Uncategorized"), res.Items[0].ClassificationKey)
	assert.Equal(t, "garbage_key", res.Items[0].ModelKey)
}

func TestProcessor_ApologyIsFatal(t *testing.T) {
	calls := 0
	model := &fakeModel{
		GenerateFunc: func(ctx context.Context, req vertex.Request) (*vertex.Response, error) {
			calls++
			return &vertex.Response{Text: "I'm sorry, I can't help with that document."}, nil
		},
	}
	rec := &recorderSpy{}

	res, err := NewProcessor(model, testTable(t), Options{Model: "m", Recorder: rec}).Process(context.Background(), Input{Document: pdfDoc()})
	assert.Nil(t, res)

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, ParseInvalidJSON, perr.Kind)
	assert.Equal(t, 1, calls, "no classification calls after a failed extraction")

	assert.Len(t, rec.failed, 1)
	assert.Empty(t, rec.succeeded)
	assert.Equal(t, []string{"I'm sorry, I can't help with that document."}, rec.outputs)
}

func TestProcessor_PartialFailures(t *testing.T) {
	const n = 5
	var b strings.Builder
	b.WriteString(`{"global_context": {"employee_id": "E1"}, "items": [`)
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `{"merchant": "m%d", "description": "expense %d", "original_amount": %d}`, i, i, (i+1)*100)
	}
	b.WriteString("]}")
	extraction := b.String()

	errNetwork := errors.New("dial tcp: connection refused")
	model := &fakeModel{
		GenerateFunc: func(ctx context.Context, req vertex.Request) (*vertex.Response, error) {
			if isExtraction(req) {
				return &vertex.Response{Text: extraction}, nil
			}
			if itemDescription(promptText(req)) == "expense 3" {
				return nil, errNetwork
			}
			return &vertex.Response{Text: "Food-Beverage_Food-and-beverages"}, nil
		},
	}
	rec := &recorderSpy{}

	res, err := NewProcessor(model, testTable(t), Options{Model: "m", Workers: 2, Recorder: rec}).Process(context.Background(), Input{Document: pdfDoc()})
	require.NoError(t, err)

	assert.Len(t, res.Items, 4)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "expense 3", res.Failures[0].Description)
	assert.Equal(t, 3, res.Failures[0].Index)
	assert.ErrorIs(t, res.Failures[0].Err, errNetwork)
	assert.Equal(t, n, res.Attempted())
	for _, item := range res.Items {
		assert.NotEqual(t, "expense 3", item.Description)
		assert.Equal(t, "E1", item.EmployeeID)
	}
	assert.Equal(t, []RunSummary{{Items: 4, Failures: 1}}, rec.succeeded)
}

func TestProcessor_NoItemsSkipsClassification(t *testing.T) {
	calls := 0
	model := &fakeModel{
		GenerateFunc: func(ctx context.Context, req vertex.Request) (*vertex.Response, error) {
			calls++
			return &vertex.Response{Text: `{"global_context": {"summary": "nothing"}, "items": []}`}, nil
		},
	}

	res, err := NewProcessor(model, testTable(t), Options{Model: "m"}).Process(context.Background(), Input{Document: pdfDoc()})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.NotNil(t, res.Items)
	assert.NotNil(t, res.Failures)
	assert.Empty(t, res.Items)
	assert.Equal(t, "nothing", res.GlobalContext.Summary)
}

func TestProcessor_InvalidDocument(t *testing.T) {
	model := &fakeModel{
		GenerateFunc: func(ctx context.Context, req vertex.Request) (*vertex.Response, error) {
			t.Error("model must not be called")
			return nil, nil
		},
	}

	_, err := NewProcessor(model, testTable(t), Options{Model: "m"}).
		Process(context.Background(), Input{Document: document.Document{Name: "a.txt", MIMEType: "text/plain", Data: []byte("x")}})
	assert.ErrorIs(t, err, ErrUnsupportedMediaType)
}

func TestProcessor_RecorderErrorsAreIgnored(t *testing.T) {
	model := &fakeModel{
		GenerateFunc: func(ctx context.Context, req vertex.Request) (*vertex.Response, error) {
			if isExtraction(req) {
				return &vertex.Response{Text: garudaExtraction}, nil
			}
			return &vertex.Response{Text: "Business-Travel_Travel-Overseas-Flight"}, nil
		},
	}
	rec := &recorderSpy{
		StartRunFunc: func(ctx context.Context, run RunInfo) error {
			return errors.New("bigquery unavailable")
		},
	}

	res, err := NewProcessor(model, testTable(t), Options{Model: "m", Recorder: rec}).
		Process(context.Background(), Input{Document: pdfDoc(), RunID: "run-fixed"})
	require.NoError(t, err)
	assert.Equal(t, "run-fixed", res.RunID)
	assert.Len(t, res.Items, 1)
}
