package claims

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/kentandrian/vertexai-demos/internal/document"
	"github.com/kentandrian/vertexai-demos/internal/logger"
	"github.com/kentandrian/vertexai-demos/internal/vertex"
	"github.com/rotisserie/eris"
	"google.golang.org/genai"
)

// Extraction is a validated Stage-1 reply.
type Extraction struct {
	GlobalContext GlobalContext
	Items         []RawLineItem
	// Raw is the cleaned JSON the model returned.
	Raw json.RawMessage
}

// Extractor runs Stage 1: one model call that turns a document into the
// global context and the list of unclassified items.
type Extractor struct {
	model     vertex.Model
	modelName string
}

// NewExtractor creates an Extractor calling modelName through model.
func NewExtractor(model vertex.Model, modelName string) *Extractor {
	return &Extractor{model: model, modelName: modelName}
}

func extractionParams() vertex.Params {
	return vertex.Params{
		Temperature:      vertex.Float(0.2),
		TopP:             vertex.Float(0.8),
		MaxOutputTokens:  8192,
		ResponseMIMEType: "application/json",
		Safety:           vertex.SafetyBlockNone(),
	}
}

// Extract validates doc, calls the model once and parses the reply.
// A malformed reply is returned as *ParseError.
func (e *Extractor) Extract(ctx context.Context, doc document.Document) (*Extraction, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	log.Debug().
		Str("document", doc.Name).
		Str("mime_type", doc.MIMEType).
		Int("bytes", len(doc.Data)).
		Msg("Starting extraction")

	resp, err := e.model.Generate(ctx, vertex.Request{
		Model: e.modelName,
		Parts: []*genai.Part{
			genai.NewPartFromText(ExtractionPrompt()),
			genai.NewPartFromBytes(doc.Data, document.NormalizeMIMEType(doc.MIMEType)),
		},
		Params: extractionParams(),
	})
	if err != nil {
		return nil, eris.Wrap(err, "Extract: stage 1 model call")
	}

	ext, err := ParseExtraction(resp.Text)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("document", doc.Name).
		Int("items", len(ext.Items)).
		Int32("prompt_tokens", resp.PromptTokens).
		Int32("output_tokens", resp.OutputTokens).
		Msg("Extraction completed")
	return ext, nil
}

// ParseExtraction validates a Stage-1 reply. Code fences and surrounding
// whitespace are removed first. Top-level keys match case-insensitively.
// An empty items array is valid; a missing or null one is not.
func ParseExtraction(text string) (*Extraction, error) {
	cleaned := vertex.StripFences(text)
	if cleaned == "" || !json.Valid([]byte(cleaned)) {
		return nil, &ParseError{Kind: ParseInvalidJSON, Raw: text, Err: errors.New("reply is not valid JSON")}
	}

	var root map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &root); err != nil {
		return nil, &ParseError{Kind: ParseNotObject, Raw: text, Err: err}
	}
	fields := make(map[string]json.RawMessage, len(root))
	for k, v := range root {
		fields[strings.ToLower(strings.TrimSpace(k))] = v
	}

	gcRaw, ok := present(fields, "global_context")
	if !ok {
		return nil, &ParseError{Kind: ParseMissingField, Field: "global_context", Raw: text}
	}
	var gc GlobalContext
	if err := json.Unmarshal(scalarsToText(gcRaw, contextTextKeys), &gc); err != nil {
		return nil, &ParseError{Kind: ParseInvalidField, Field: fieldPath("global_context", err), Raw: text, Err: err}
	}

	itemsRaw, ok := present(fields, "items")
	if !ok {
		return nil, &ParseError{Kind: ParseMissingField, Field: "items", Raw: text}
	}
	var rawItems []json.RawMessage
	if err := json.Unmarshal(itemsRaw, &rawItems); err != nil {
		return nil, &ParseError{Kind: ParseInvalidField, Field: "items", Raw: text, Err: err}
	}
	items := make([]RawLineItem, 0, len(rawItems))
	for i, r := range rawItems {
		var item RawLineItem
		if err := json.Unmarshal(scalarsToText(r, itemTextKeys), &item); err != nil {
			return nil, &ParseError{Kind: ParseInvalidField, Field: fieldPath(fmt.Sprintf("items[%d]", i), err), Raw: text, Err: err}
		}
		items = append(items, item)
	}

	return &Extraction{
		GlobalContext: gc,
		Items:         items,
		Raw:           json.RawMessage(cleaned),
	}, nil
}

var (
	contextTextKeys = []string{
		"report_title", "employee_id", "employee_name", "entity", "profit_center",
		"cost_center", "travel_event_start_date", "travel_event_end_date", "summary",
	}
	itemTextKeys = []string{
		"merchant", "description", "original_currency", "entity_currency",
		"transaction_date", "transaction_time",
	}
)

// scalarsToText rewrites number and boolean values of the named text keys as
// JSON strings, so "employee_id": 10234 decodes as "10234". Anything that is
// not an object is returned unchanged for the decoder to report.
func scalarsToText(raw json.RawMessage, keys []string) json.RawMessage {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return raw
	}
	changed := false
	for k, v := range obj {
		name := strings.ToLower(strings.TrimSpace(k))
		if !slices.Contains(keys, name) {
			continue
		}
		t := bytes.TrimSpace(v)
		if len(t) == 0 || t[0] == '"' || t[0] == '{' || t[0] == '[' || bytes.Equal(t, []byte("null")) {
			continue
		}
		quoted, err := json.Marshal(string(t))
		if err != nil {
			continue
		}
		obj[k] = quoted
		changed = true
	}
	if !changed {
		return raw
	}
	out, err := json.Marshal(obj)
	if err != nil {
		return raw
	}
	return out
}

func present(fields map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	v, ok := fields[key]
	if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		return nil, false
	}
	return v, true
}

func fieldPath(prefix string, err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return prefix + "." + typeErr.Field
	}
	return prefix
}
