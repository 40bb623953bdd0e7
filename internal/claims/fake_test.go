package claims

import (
	"context"
	"strings"
	"testing"

	"github.com/kentandrian/vertexai-demos/internal/document"
	"github.com/kentandrian/vertexai-demos/internal/vertex"
	"github.com/stretchr/testify/require"
)

// fakeModel implements vertex.Model for tests.
type fakeModel struct {
	GenerateFunc func(ctx context.Context, req vertex.Request) (*vertex.Response, error)
}

func (f *fakeModel) Generate(ctx context.Context, req vertex.Request) (*vertex.Response, error) {
	return f.GenerateFunc(ctx, req)
}

// isExtraction reports whether req is the Stage-1 call, which carries the document as a second part.
func isExtraction(req vertex.Request) bool {
	return len(req.Parts) > 1
}

// promptText returns the text of the first part of req.
func promptText(req vertex.Request) string {
	if len(req.Parts) == 0 || req.Parts[0] == nil {
		return ""
	}
	return req.Parts[0].Text
}

// itemDescription pulls the item description back out of a Stage-2 prompt.
func itemDescription(prompt string) string {
	const marker = `"description": "`
	i := strings.LastIndex(prompt, marker)
	if i == -1 {
		return ""
	}
	rest := prompt[i+len(marker):]
	return rest[:strings.Index(rest, `"`)]
}

func testTable(t *testing.T) *CategoryTable {
	t.Helper()
	table, err := LoadDefaultCategories()
	require.NoError(t, err)
	return table
}

func pdfDoc() document.Document {
	return document.Document{Name: "claim.pdf", MIMEType: document.MIMEPDF, Data: []byte("%PDF-1.7 test")}
}

const garudaExtraction = `{
  "global_context": {
    "report_title": "EMP001, ID01, SS, CC100, Business trip to SG 24 - 27 Mar 2025, 5400000",
    "employee_id": "EMP001",
    "employee_name": "Budi Santoso",
    "entity": "ID01",
    "profit_center": "SS",
    "cost_center": "CC100",
    "travel_event_start_date": "2025-03-24",
    "travel_event_end_date": "2025-03-27",
    "summary": "Partner meeting in Singapore",
    "key_locations": ["SG", "Singapore", "CGK", "SIN", "Jakarta"]
  },
  "items": [
    {
      "merchant": "Garuda Indonesia",
      "description": "Flight ticket CGK - SIN",
      "original_currency": "IDR",
      "original_amount": 5400000,
      "entity_currency": "IDR",
      "entity_amount": 5400000,
      "transaction_date": "2025-03-24",
      "transaction_time": "07:30"
    }
  ]
}`
