package exchange

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/kentandrian/vertexai-demos/internal/logger"
	"github.com/kentandrian/vertexai-demos/internal/vertex"
	"github.com/rotisserie/eris"
	"google.golang.org/genai"
)

// DefaultMaxRounds caps the model turns in one Ask.
const DefaultMaxRounds = 5

const toolName = "get_exchange_rate"

// ErrTooManyRounds is returned when the model keeps calling tools past the round limit.
var ErrTooManyRounds = errors.New("agent exceeded tool call rounds")

// RateSource fetches exchange rates. *Frankfurter implements it.
type RateSource interface {
	Rate(ctx context.Context, from, to, date string) (*Rates, error)
}

// Answer is the agent reply.
type Answer struct {
	Text      string        `json:"output"`
	ToolCalls int           `json:"tool_calls"`
	Elapsed   time.Duration `json:"elapsed_ns"`
}

// Agent answers conversion questions, calling get_exchange_rate as needed.
type Agent struct {
	model     vertex.Model
	modelName string
	rates     RateSource
	maxRounds int
}

// NewAgent creates an Agent. maxRounds <= 0 uses DefaultMaxRounds.
func NewAgent(model vertex.Model, modelName string, rates RateSource, maxRounds int) *Agent {
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}
	return &Agent{model: model, modelName: modelName, rates: rates, maxRounds: maxRounds}
}

func rateTool() *genai.Tool {
	return &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{{
			Name: toolName,
			Description: "Retrieves the exchange rate between two currencies on a specified date. " +
				"Uses the Frankfurter API to obtain exchange rate data.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"currency_from": {Type: genai.TypeString, Description: "The base currency (3-letter currency code). Defaults to USD."},
					"currency_to":   {Type: genai.TypeString, Description: "The target currency (3-letter currency code). Defaults to EUR."},
					"currency_date": {Type: genai.TypeString, Description: "YYYY-MM-DD for historical rates, or \"latest\" for the most recent rates."},
				},
			},
		}},
	}
}

func agentParams() vertex.Params {
	return vertex.Params{
		Temperature:     vertex.Float(0.28),
		TopP:            vertex.Float(0.95),
		TopK:            vertex.Float(40),
		MaxOutputTokens: 1000,
		Safety:          vertex.SafetyAgent(),
		Tools:           []*genai.Tool{rateTool()},
	}
}

// Ask validates the query and runs the function-calling loop until the model
// answers in text.
func (a *Agent) Ask(ctx context.Context, q Query, today time.Time) (*Answer, error) {
	if err := q.Validate(civil.DateOf(today)); err != nil {
		return nil, err
	}
	return a.AskText(ctx, q.Question())
}

// AskText sends a free-form question to the agent.
func (a *Agent) AskText(ctx context.Context, question string) (*Answer, error) {
	log := logger.FromContext(ctx)
	start := time.Now()

	history := []*genai.Content{genai.NewContentFromText(question, genai.RoleUser)}
	calls := 0
	for round := 0; round < a.maxRounds; round++ {
		resp, err := a.model.Generate(ctx, vertex.Request{Model: a.modelName, History: history, Params: agentParams()})
		if err != nil {
			return nil, eris.Wrapf(err, "AskText: round %d", round+1)
		}
		if len(resp.FunctionCalls) == 0 {
			ans := &Answer{Text: resp.Text, ToolCalls: calls, Elapsed: time.Since(start)}
			log.Info().Int("rounds", round+1).Int("tool_calls", calls).Dur("elapsed", ans.Elapsed).Msg("Exchange agent answered")
			return ans, nil
		}

		history = append(history, modelTurn(resp))
		parts := make([]*genai.Part, 0, len(resp.FunctionCalls))
		for _, fc := range resp.FunctionCalls {
			calls++
			parts = append(parts, a.callTool(ctx, fc))
		}
		history = append(history, genai.NewContentFromParts(parts, genai.RoleUser))
	}
	return nil, eris.Wrapf(ErrTooManyRounds, "AskText: %d rounds", a.maxRounds)
}

func modelTurn(resp *vertex.Response) *genai.Content {
	if resp.Content != nil {
		return resp.Content
	}
	parts := make([]*genai.Part, 0, len(resp.FunctionCalls))
	for _, fc := range resp.FunctionCalls {
		parts = append(parts, &genai.Part{FunctionCall: fc})
	}
	return genai.NewContentFromParts(parts, genai.RoleModel)
}

// callTool runs one function call. Failures go back to the model as an error
// payload so it can explain them.
func (a *Agent) callTool(ctx context.Context, fc *genai.FunctionCall) *genai.Part {
	log := logger.FromContext(ctx)
	if fc.Name != toolName {
		return genai.NewPartFromFunctionResponse(fc.Name, map[string]any{"error": "unknown function " + fc.Name})
	}

	from := stringArg(fc.Args, "currency_from", "USD")
	to := stringArg(fc.Args, "currency_to", "EUR")
	date := stringArg(fc.Args, "currency_date", Latest)

	rates, err := a.rates.Rate(ctx, from, to, date)
	if err != nil {
		log.Warn().Err(err).Str("from", from).Str("to", to).Str("date", date).Msg("Exchange rate lookup failed")
		return genai.NewPartFromFunctionResponse(fc.Name, map[string]any{"error": err.Error()})
	}
	log.Debug().Str("from", from).Str("to", to).Str("date", rates.Date).Msg("Exchange rate fetched")

	rateMap := make(map[string]any, len(rates.Rates))
	for k, v := range rates.Rates {
		rateMap[k] = v
	}
	return genai.NewPartFromFunctionResponse(fc.Name, map[string]any{
		"amount": rates.Amount,
		"base":   rates.Base,
		"date":   rates.Date,
		"rates":  rateMap,
	})
}

func stringArg(args map[string]any, key, def string) string {
	v, ok := args[key]
	if !ok || v == nil {
		return def
	}
	s := fmt.Sprint(v)
	if s == "" {
		return def
	}
	return s
}
