package vertex

import (
	"context"
	"errors"
	"time"

	"github.com/kentandrian/vertexai-demos/internal/logger"
	"github.com/rotisserie/eris"
	"google.golang.org/genai"
)

// DefaultTimeout bounds a single model request when no timeout is configured.
const DefaultTimeout = 2 * time.Minute

// ErrEmptyResponse is returned when the model answers with neither text nor function calls.
var ErrEmptyResponse = errors.New("vertex: empty response from model")

// Generator is the subset of the genai Models service used by this package.
// *genai.Models satisfies it.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Model is the call surface the demos depend on. *Client implements it.
type Model interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// Config selects the Vertex AI project and region.
type Config struct {
	ProjectID string
	Location  string
	Timeout   time.Duration
}

// Client is a shared, concurrency-safe handle to Gemini on Vertex AI.
// Build it once per process and pass it to every demo.
type Client struct {
	gen     Generator
	timeout time.Duration
}

// NewClient creates the underlying genai client for the Vertex AI backend.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		Backend:     genai.BackendVertexAI,
		Project:     cfg.ProjectID,
		Location:    cfg.Location,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, eris.Wrap(err, "NewClient: create genai client")
	}
	return NewClientWithGenerator(gc.Models, cfg.Timeout), nil
}

// NewClientWithGenerator wraps an existing Generator. A non-positive timeout uses DefaultTimeout.
func NewClientWithGenerator(gen Generator, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{gen: gen, timeout: timeout}
}

// Request is one call to the model.
type Request struct {
	Model string
	// History holds earlier turns, oldest first. It is sent before Parts.
	History []*genai.Content
	// Parts form the new user turn.
	Parts  []*genai.Part
	Params Params
}

// Source is a grounding reference returned with an answer.
type Source struct {
	URI   string `json:"uri"`
	Title string `json:"title,omitempty"`
}

// Response is the flattened first candidate of a model reply.
type Response struct {
	Text          string
	FunctionCalls []*genai.FunctionCall
	// Content is the raw model turn, kept so callers can append it to a history.
	Content      *genai.Content
	Sources      []Source
	FinishReason string
	PromptTokens int32
	OutputTokens int32
}

// Generate sends the request and waits for the reply, bounded by the client timeout.
// A request that exceeds the timeout fails with an error wrapping context.DeadlineExceeded.
func (c *Client) Generate(ctx context.Context, req Request) (*Response, error) {
	if req.Model == "" {
		return nil, eris.New("Generate: model is required")
	}
	contents := make([]*genai.Content, 0, len(req.History)+1)
	contents = append(contents, req.History...)
	if len(req.Parts) > 0 {
		contents = append(contents, genai.NewContentFromParts(req.Parts, genai.RoleUser))
	}
	if len(contents) == 0 {
		return nil, eris.New("Generate: no content to send")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.gen.GenerateContent(ctx, req.Model, contents, req.Params.config())
	if err != nil {
		return nil, eris.Wrapf(err, "Generate: generate content with %s", req.Model)
	}

	out := flatten(resp)
	if out.Text == "" && len(out.FunctionCalls) == 0 {
		log := logger.FromContext(ctx)
		log.Warn().
			Str("model", req.Model).
			Str("finish_reason", out.FinishReason).
			Msg("Model returned no content")
		return nil, ErrEmptyResponse
	}
	return out, nil
}

func flatten(resp *genai.GenerateContentResponse) *Response {
	out := &Response{}
	if resp == nil {
		return out
	}
	if resp.UsageMetadata != nil {
		out.PromptTokens = resp.UsageMetadata.PromptTokenCount
		out.OutputTokens = resp.UsageMetadata.CandidatesTokenCount
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return out
	}

	cand := resp.Candidates[0]
	out.Content = cand.Content
	out.FinishReason = string(cand.FinishReason)
	out.FunctionCalls = resp.FunctionCalls()
	if cand.Content != nil {
		for _, p := range cand.Content.Parts {
			if p != nil && p.Text != "" && !p.Thought {
				out.Text += p.Text
			}
		}
	}
	out.Sources = groundingSources(cand.GroundingMetadata)
	return out
}

func groundingSources(meta *genai.GroundingMetadata) []Source {
	if meta == nil {
		return nil
	}
	seen := make(map[string]bool)
	var sources []Source
	for _, chunk := range meta.GroundingChunks {
		if chunk == nil {
			continue
		}
		var src Source
		switch {
		case chunk.RetrievedContext != nil:
			src = Source{URI: chunk.RetrievedContext.URI, Title: chunk.RetrievedContext.Title}
		case chunk.Web != nil:
			src = Source{URI: chunk.Web.URI, Title: chunk.Web.Title}
		default:
			continue
		}
		if src.URI == "" || seen[src.URI] {
			continue
		}
		seen[src.URI] = true
		sources = append(sources, src)
	}
	return sources
}

var _ Model = (*Client)(nil)
