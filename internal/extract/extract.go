// Package extract holds the single-call document extractors: multilingual
// invoices, Indonesian e-Bupot withholding slips and one-shot claim summaries.
package extract

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kentandrian/vertexai-demos/internal/document"
	"github.com/kentandrian/vertexai-demos/internal/logger"
	"github.com/kentandrian/vertexai-demos/internal/vertex"
	"github.com/rotisserie/eris"
	"google.golang.org/genai"
)

//go:embed prompts/*.txt
var promptFS embed.FS

// Kind selects an extractor.
type Kind string

const (
	KindInvoice Kind = "invoice"
	KindEBupot  Kind = "ebupot"
	KindClaim   Kind = "claim"
)

// ErrUnknownKind is returned for a kind that has no extractor.
var ErrUnknownKind = errors.New("unknown extraction kind")

type kindConfig struct {
	prompt    string
	maxTokens int32
	safety    func() []*genai.SafetySetting
	accepts   []string
}

var kinds = map[Kind]kindConfig{
	KindInvoice: {
		prompt:    mustPrompt("invoice.txt"),
		maxTokens: 1024,
		safety:    vertex.SafetyOff,
		accepts:   document.DefaultTypes,
	},
	KindEBupot: {
		prompt:    mustPrompt("ebupot.txt"),
		maxTokens: 1024,
		safety:    vertex.SafetyOff,
		accepts:   []string{document.MIMEPDF},
	},
	KindClaim: {
		prompt:    mustPrompt("claim.txt"),
		maxTokens: 2048,
		safety:    vertex.SafetyBlockNone,
		accepts:   document.DefaultTypes,
	},
}

func mustPrompt(name string) string {
	b, err := promptFS.ReadFile("prompts/" + name)
	if err != nil {
		panic(err)
	}
	return string(b)
}

// Kinds lists the available kinds in display order.
func Kinds() []Kind {
	return []Kind{KindInvoice, KindEBupot, KindClaim}
}

// ParseKind maps a name such as "e-bupot" or "Invoice" to a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "-", "")))
	if _, ok := kinds[k]; !ok {
		return "", eris.Wrapf(ErrUnknownKind, "%q", s)
	}
	return k, nil
}

// Accepts returns the media types the kind accepts.
func (k Kind) Accepts() []string {
	return kinds[k].accepts
}

// InvalidJSONError is returned when the model reply does not parse as JSON.
// Text carries the reply so it can still be shown.
type InvalidJSONError struct {
	Kind Kind
	Text string
	Err  error
}

func (e *InvalidJSONError) Error() string {
	return fmt.Sprintf("%s extraction: reply is not valid JSON: %v", e.Kind, e.Err)
}

func (e *InvalidJSONError) Unwrap() error {
	return e.Err
}

// Models names the model used per kind.
type Models struct {
	Invoice string
	EBupot  string
	Claim   string
}

func (m Models) forKind(k Kind) string {
	switch k {
	case KindInvoice:
		return m.Invoice
	case KindEBupot:
		return m.EBupot
	default:
		return m.Claim
	}
}

// Result is a successful extraction.
type Result struct {
	Kind    Kind            `json:"kind"`
	Data    json.RawMessage `json:"data"`
	Elapsed time.Duration   `json:"elapsed_ns"`
}

// Extractor sends one document per call with the kind's fixed prompt.
type Extractor struct {
	model  vertex.Model
	models Models
}

// NewExtractor creates an Extractor.
func NewExtractor(model vertex.Model, models Models) *Extractor {
	return &Extractor{model: model, models: models}
}

// Extract runs the extractor for kind on doc.
func (e *Extractor) Extract(ctx context.Context, kind Kind, doc document.Document) (*Result, error) {
	kc, ok := kinds[kind]
	if !ok {
		return nil, eris.Wrapf(ErrUnknownKind, "%q", kind)
	}
	if err := doc.Validate(kc.accepts...); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := e.model.Generate(ctx, vertex.Request{
		Model: e.models.forKind(kind),
		Parts: []*genai.Part{
			genai.NewPartFromText(kc.prompt),
			genai.NewPartFromBytes(doc.Data, document.NormalizeMIMEType(doc.MIMEType)),
		},
		Params: vertex.Params{
			Temperature:      vertex.Float(0.2),
			TopP:             vertex.Float(0.8),
			MaxOutputTokens:  kc.maxTokens,
			ResponseMIMEType: "application/json",
			Safety:           kc.safety(),
		},
	})
	if err != nil {
		return nil, eris.Wrapf(err, "Extract: %s model call", kind)
	}
	elapsed := time.Since(start)

	cleaned := vertex.CleanJSON(resp.Text)
	var parsed interface{}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, &InvalidJSONError{Kind: kind, Text: resp.Text, Err: err}
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("kind", string(kind)).
		Str("document", doc.Name).
		Dur("elapsed", elapsed).
		Msg("Document extracted")
	return &Result{Kind: kind, Data: json.RawMessage(cleaned), Elapsed: elapsed}, nil
}
