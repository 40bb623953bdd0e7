package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kentandrian/vertexai-demos/internal/logger"
	"github.com/kentandrian/vertexai-demos/internal/vertex"
	"github.com/rotisserie/eris"
	"google.golang.org/genai"
)

// TaxGreeting opens every TanyaPajak conversation.
const TaxGreeting = "Halo, saya Pajo dan saya akan membantu Anda mencari informasi pajak. " +
	"Apakah ada yang bisa saya bantu?"

var taxPersona = mustReadPrompt("prompts/tax_system.txt")

func mustReadPrompt(name string) string {
	b, err := promptFS.ReadFile(name)
	if err != nil {
		panic(err)
	}
	return string(b)
}

// DataStore identifies a Vertex AI Search datastore.
type DataStore struct {
	ProjectID string
	Location  string
	ID        string
}

// Name returns the datastore resource name.
func (d DataStore) Name() string {
	loc := d.Location
	if loc == "" {
		loc = "global"
	}
	return fmt.Sprintf("projects/%s/locations/%s/collections/default_collection/dataStores/%s", d.ProjectID, loc, d.ID)
}

// TaxAssistant answers Indonesian tax questions grounded on a datastore.
type TaxAssistant struct {
	model     vertex.Model
	modelName string
	store     DataStore
}

// NewTaxAssistant creates a TaxAssistant.
func NewTaxAssistant(model vertex.Model, modelName string, store DataStore) (*TaxAssistant, error) {
	if store.ProjectID == "" || store.ID == "" {
		return nil, eris.New("NewTaxAssistant: project id and data store id are required")
	}
	return &TaxAssistant{model: model, modelName: modelName, store: store}, nil
}

func (a *TaxAssistant) params() vertex.Params {
	return vertex.Params{
		SystemInstruction: taxPersona,
		Tools: []*genai.Tool{{
			Retrieval: &genai.Retrieval{
				VertexAISearch: &genai.VertexAISearch{Datastore: a.store.Name()},
			},
		}},
	}
}

// Ask answers question in the context of conv. The returned conversation has
// the question and the answer with its sources appended.
func (a *TaxAssistant) Ask(ctx context.Context, conv Conversation, question string) (Conversation, *Reply, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return conv, nil, eris.New("Ask: question is required")
	}

	start := time.Now()
	resp, err := a.model.Generate(ctx, vertex.Request{
		Model:   a.modelName,
		History: conv.History(),
		Parts:   []*genai.Part{genai.NewPartFromText(question)},
		Params:  a.params(),
	})
	if err != nil {
		return conv, nil, eris.Wrap(err, "Ask: model call")
	}
	reply := &Reply{Text: resp.Text, Sources: resp.Sources, Elapsed: time.Since(start)}

	log := logger.FromContext(ctx)
	log.Info().
		Str("conversation_id", conv.ID).
		Int("sources", len(reply.Sources)).
		Dur("elapsed", reply.Elapsed).
		Msg("Tax question answered")

	return conv.Append(
		Message{Role: RoleUser, Content: question},
		Message{Role: RoleAssistant, Content: FormatWithSources(reply.Text, reply.Sources)},
	), reply, nil
}

// FormatWithSources appends the "Sumber" block listing source URIs.
func FormatWithSources(answer string, sources []vertex.Source) string {
	if len(sources) == 0 {
		return answer
	}
	var b strings.Builder
	b.WriteString(answer)
	b.WriteString("\n\nSumber:  \n```")
	for _, s := range sources {
		b.WriteString(s.URI)
		b.WriteString("  \n")
	}
	b.WriteString("```")
	return b.String()
}
