package claims

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kentandrian/vertexai-demos/internal/vertex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  ClassificationKey
	}{
		{"bare", "Training_Training-employee", "Training_Training-employee"},
		{"whitespace", "  Training_Training-employee \n", "Training_Training-employee"},
		{"backticks", "`Training_Training-employee`", "Training_Training-employee"},
		{"quoted with period", `"Training_Training-employee".`, "Training_Training-employee"},
		{"bold", "**Training_Training-employee**", "Training_Training-employee"},
		{"fenced", "```\nTraining_Training-employee\n```", "Training_Training-employee"},
		{"first line wins", "\nTraining_Training-employee\nBecause it is a course.", "Training_Training-employee"},
		{"empty", " \n ", ""},
		{"only fence", "```\n```", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeKey(tt.reply))
		})
	}
}

func TestClassificationPrompt(t *testing.T) {
	table := testTable(t)
	item := RawLineItem{Merchant: "Garuda Indonesia", Description: "Flight ticket CGK - SIN", OriginalCurrency: "IDR", OriginalAmount: 99}
	gc := GlobalContext{ReportTitle: "Business trip", KeyLocations: []string{"SIN"}}

	prompt, err := ClassificationPrompt(gc, item, table.Options())
	require.NoError(t, err)

	assert.Contains(t, prompt, "\"report_title\": \"Business trip\"")
	assert.Contains(t, prompt, "\"description\": \"Flight ticket CGK - SIN\"")
	assert.Contains(t, prompt, "- Business-Travel_Travel-Overseas-Flight: Business Travel / Travel - Overseas - Flight")
	// Only the three classification fields of the item are shown.
	assert.NotContains(t, prompt, "original_amount")
	assert.Equal(t, "Flight ticket CGK - SIN", itemDescription(prompt))
}

func TestClassifier_Classify(t *testing.T) {
	table := testTable(t)
	items := []RawLineItem{
		{Description: "Flight ticket CGK - SIN"},
		{Description: "Hotel Marina"},
		{Description: "Taxi"},
	}
	keys := map[string]string{
		"Flight ticket CGK - SIN": "Business-Travel_Travel-Overseas-Flight",
		"Hotel Marina":            "`Business-Travel_Travel-Overseas-Accom`",
		"Taxi":                    "",
	}

	model := &fakeModel{
		GenerateFunc: func(ctx context.Context, req vertex.Request) (*vertex.Response, error) {
			assert.Equal(t, "gemini-test", req.Model)
			assert.Len(t, req.Parts, 1)
			if assert.NotNil(t, req.Params.Temperature) {
				assert.Zero(t, *req.Params.Temperature)
			}
			return &vertex.Response{Text: keys[itemDescription(promptText(req))]}, nil
		},
	}

	classified, failures := NewClassifier(model, "gemini-test", table, 2).Classify(context.Background(), GlobalContext{}, items)

	require.Len(t, classified, 2)
	assert.Equal(t, 0, classified[0].Index)
	assert.Equal(t, ClassificationKey("Business-Travel_Travel-Overseas-Flight"), classified[0].Key)
	assert.Equal(t, 1, classified[1].Index)
	assert.Equal(t, ClassificationKey("Business-Travel_Travel-Overseas-Accom"), classified[1].Key)

	require.Len(t, failures, 1)
	assert.Equal(t, 2, failures[0].Index)
	assert.Equal(t, "Taxi", failures[0].Description)
	assert.ErrorIs(t, failures[0].Err, ErrEmptyKey)
}

func TestClassifier_BoundedConcurrency(t *testing.T) {
	const (
		items   = 25
		workers = 4
	)
	table := testTable(t)

	var (
		inFlight    int32
		maxInFlight int32
		mu          sync.Mutex
		attempts    = make(map[string]int)
	)
	model := &fakeModel{
		GenerateFunc: func(ctx context.Context, req vertex.Request) (*vertex.Response, error) {
			n := atomic.AddInt32(&inFlight, 1)
			defer atomic.AddInt32(&inFlight, -1)
			for {
				cur := atomic.LoadInt32(&maxInFlight)
				if n <= cur || atomic.CompareAndSwapInt32(&maxInFlight, cur, n) {
					break
				}
			}

			mu.Lock()
			attempts[itemDescription(promptText(req))]++
			mu.Unlock()

			time.Sleep(5 * time.Millisecond)
			return &vertex.Response{Text: "Training_Training-employee"}, nil
		},
	}

	list := make([]RawLineItem, items)
	for i := range list {
		list[i] = RawLineItem{Description: fmt.Sprintf("item-%02d", i)}
	}

	classified, failures := NewClassifier(model, "m", table, workers).Classify(context.Background(), GlobalContext{}, list)

	assert.Len(t, classified, items)
	assert.Empty(t, failures)
	assert.LessOrEqual(t, atomic.LoadInt32(&maxInFlight), int32(workers))
	assert.Len(t, attempts, items)
	for desc, n := range attempts {
		assert.Equal(t, 1, n, "item %s attempted %d times", desc, n)
	}
	for i, c := range classified {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, list[i], c.Item)
	}
}

func TestClassifier_FailureDoesNotCancelSiblings(t *testing.T) {
	table := testTable(t)
	errNetwork := errors.New("connection reset")

	var calls int32
	model := &fakeModel{
		GenerateFunc: func(ctx context.Context, req vertex.Request) (*vertex.Response, error) {
			atomic.AddInt32(&calls, 1)
			if itemDescription(promptText(req)) == "item-0" {
				return nil, errNetwork
			}
			time.Sleep(2 * time.Millisecond)
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return &vertex.Response{Text: "Taxi_Unknown"}, nil
		},
	}

	list := []RawLineItem{{Description: "item-0"}, {Description: "item-1"}, {Description: "item-2"}}
	classified, failures := NewClassifier(model, "m", table, 1).Classify(context.Background(), GlobalContext{}, list)

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Len(t, classified, 2)
	require.Len(t, failures, 1)
	assert.ErrorIs(t, failures[0].Err, errNetwork)
	assert.Equal(t, "item-0", failures[0].Description)
}

func TestNewClassifier_DefaultWorkers(t *testing.T) {
	c := NewClassifier(&fakeModel{}, "m", testTable(t), 0)
	assert.Equal(t, DefaultWorkers, c.workers)
}
