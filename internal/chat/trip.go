package chat

import (
	"context"
	"embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/kentandrian/vertexai-demos/internal/logger"
	"github.com/kentandrian/vertexai-demos/internal/vertex"
	"github.com/rotisserie/eris"
	"google.golang.org/genai"
)

//go:embed prompts
var promptFS embed.FS

var tripPrompt = template.Must(template.ParseFS(promptFS, "prompts/trip.tmpl"))

const (
	// TripGreeting opens every trip planner conversation.
	TripGreeting = "Hello, I am Gemini, your travel assistant. Where are you traveling to?"
	// DefaultWeather is used when no forecast is configured.
	DefaultWeather = "29 C with 5% precipitation"
)

// Reply is one assistant answer.
type Reply struct {
	Text    string          `json:"text"`
	Sources []vertex.Source `json:"sources,omitempty"`
	Elapsed time.Duration   `json:"elapsed_ns"`
}

// TripPlanner answers "where are you going" with an HTML trip plan.
type TripPlanner struct {
	model     vertex.Model
	modelName string
	weather   string
}

// NewTripPlanner creates a TripPlanner. An empty weather uses DefaultWeather.
func NewTripPlanner(model vertex.Model, modelName, weather string) *TripPlanner {
	if weather == "" {
		weather = DefaultWeather
	}
	return &TripPlanner{model: model, modelName: modelName, weather: weather}
}

// Plan answers one turn. The returned conversation has the user message, the
// reply and a duration note appended.
func (p *TripPlanner) Plan(ctx context.Context, conv Conversation, location string) (Conversation, *Reply, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return conv, nil, eris.New("Plan: location is required")
	}

	var b strings.Builder
	if err := tripPrompt.ExecuteTemplate(&b, "trip.tmpl", map[string]string{
		"Location": location,
		"Weather":  p.weather,
	}); err != nil {
		return conv, nil, eris.Wrap(err, "Plan: render prompt")
	}

	start := time.Now()
	resp, err := p.model.Generate(ctx, vertex.Request{
		Model:  p.modelName,
		Parts:  []*genai.Part{genai.NewPartFromText(b.String())},
		Params: vertex.Params{MaxOutputTokens: 2048},
	})
	if err != nil {
		return conv, nil, eris.Wrap(err, "Plan: model call")
	}
	reply := &Reply{Text: resp.Text, Elapsed: time.Since(start)}

	log := logger.FromContext(ctx)
	log.Info().
		Str("conversation_id", conv.ID).
		Str("location", location).
		Dur("elapsed", reply.Elapsed).
		Msg("Trip plan generated")

	return conv.Append(
		Message{Role: RoleUser, Content: location},
		Message{Role: RoleAssistant, Content: reply.Text},
		Message{Role: RoleDuration, Content: durationNote(reply.Elapsed)},
	), reply, nil
}

func durationNote(d time.Duration) string {
	return fmt.Sprintf("Gemini replied in %.3fs.", d.Seconds())
}
