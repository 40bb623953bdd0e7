package chat

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/kentandrian/vertexai-demos/internal/vertex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeModel struct {
	requests     []vertex.Request
	GenerateFunc func(ctx context.Context, req vertex.Request) (*vertex.Response, error)
}

func (f *fakeModel) Generate(ctx context.Context, req vertex.Request) (*vertex.Response, error) {
	f.requests = append(f.requests, req)
	return f.GenerateFunc(ctx, req)
}

func textModel(text string, sources ...vertex.Source) *fakeModel {
	return &fakeModel{GenerateFunc: func(ctx context.Context, req vertex.Request) (*vertex.Response, error) {
		return &vertex.Response{Text: text, Sources: sources}, nil
	}}
}

func TestConversation_AppendDoesNotMutate(t *testing.T) {
	c := NewConversation("hi")
	require.Len(t, c.Messages, 1)
	assert.NotEmpty(t, c.ID)

	next := c.Append(Message{Role: RoleUser, Content: "Bali"})

	assert.Len(t, c.Messages, 1)
	assert.Len(t, next.Messages, 2)
	assert.Equal(t, c.ID, next.ID)

	next.Messages[0].Content = "changed"
	assert.Equal(t, "hi", c.Messages[0].Content)
}

func TestConversation_History(t *testing.T) {
	c := NewConversation(TaxGreeting).Append(
		Message{Role: RoleUser, Content: "Apa itu PPh 21?"},
		Message{Role: RoleAssistant, Content: "Pajak penghasilan."},
		Message{Role: RoleDuration, Content: "Gemini replied in 1.000s."},
	)

	h := c.History()
	require.Len(t, h, 2)
	assert.Equal(t, genai.RoleUser, h[0].Role)
	assert.Equal(t, "Apa itu PPh 21?", h[0].Parts[0].Text)
	assert.Equal(t, genai.RoleModel, h[1].Role)
}

func TestSessionStore(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore()

	c := s.Start(ctx, TripGreeting)
	got, err := s.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c, got)

	s.Save(ctx, c.Append(Message{Role: RoleUser, Content: "Kyoto"}))
	got, err = s.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, got.Messages, 2)

	s.End(ctx, c.ID)
	_, err = s.Get(ctx, c.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 0, s.Len())
}

func TestSessionStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := s.Start(ctx, "hi")
			_, err := s.Get(ctx, c.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, s.Len())
}

func TestSessionStore_TurnsAreSerialised(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore()
	c := s.Start(ctx, TripGreeting)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Turn(ctx, c.ID, func(conv Conversation) (Conversation, error) {
				return conv.Append(Message{Role: RoleUser, Content: "Bali"}), nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, got.Messages, 21)
}

func TestSessionStore_EndDuringTurn(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore()
	c := s.Start(ctx, TripGreeting)

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := s.Turn(ctx, c.ID, func(conv Conversation) (Conversation, error) {
			close(entered)
			<-release
			return conv.Append(Message{Role: RoleUser, Content: "Bali"}), nil
		})
		done <- err
	}()

	<-entered
	s.End(ctx, c.ID)
	close(release)

	assert.ErrorIs(t, <-done, ErrSessionNotFound)
	_, err := s.Get(ctx, c.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 0, s.Len())
}

func TestSessionStore_TurnError(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore()
	c := s.Start(ctx, TripGreeting)

	errModel := errors.New("model unavailable")
	_, err := s.Turn(ctx, c.ID, func(conv Conversation) (Conversation, error) {
		return conv.Append(Message{Role: RoleUser, Content: "lost"}), errModel
	})
	assert.ErrorIs(t, err, errModel)

	got, err := s.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, got.Messages, 1)

	_, err = s.Turn(ctx, "missing", func(conv Conversation) (Conversation, error) {
		t.Error("fn must not run for an unknown session")
		return conv, nil
	})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestTripPlanner_Plan(t *testing.T) {
	model := textModel(`<div class="planner-wrapper"><h5>Kyoto</h5></div>`)
	p := NewTripPlanner(model, "gemini-test", "")

	conv := NewConversation(TripGreeting)
	next, reply, err := p.Plan(context.Background(), conv, " Kyoto ")
	require.NoError(t, err)

	assert.Contains(t, reply.Text, "planner-wrapper")
	require.Len(t, model.requests, 1)
	prompt := model.requests[0].Parts[0].Text
	assert.Contains(t, prompt, "plan the trip about 'Kyoto' and weather is '29 C with 5% precipitation'")
	assert.Equal(t, int32(2048), model.requests[0].Params.MaxOutputTokens)

	require.Len(t, next.Messages, 4)
	assert.Equal(t, Message{Role: RoleUser, Content: "Kyoto"}, next.Messages[1])
	assert.Equal(t, RoleAssistant, next.Messages[2].Role)
	assert.Equal(t, RoleDuration, next.Messages[3].Role)
	assert.Contains(t, next.Messages[3].Content, "Gemini replied in")
	assert.Len(t, conv.Messages, 1)
}

func TestTripPlanner_Errors(t *testing.T) {
	conv := NewConversation(TripGreeting)

	_, _, err := NewTripPlanner(textModel("x"), "m", "").Plan(context.Background(), conv, "  ")
	assert.Error(t, err)

	errDown := errors.New("unavailable")
	model := &fakeModel{GenerateFunc: func(ctx context.Context, req vertex.Request) (*vertex.Response, error) {
		return nil, errDown
	}}
	same, _, err := NewTripPlanner(model, "m", "31 C").Plan(context.Background(), conv, "Bali")
	assert.ErrorIs(t, err, errDown)
	assert.Equal(t, conv, same)
}

func TestTaxAssistant_Ask(t *testing.T) {
	store := DataStore{ProjectID: "p1", ID: "pajak-ds"}
	model := textModel("PPh 21 adalah pajak atas penghasilan.",
		vertex.Source{URI: "gs://docs/pph21.pdf"}, vertex.Source{URI: "gs://docs/uu-hpp.pdf"})

	a, err := NewTaxAssistant(model, "gemini-test", store)
	require.NoError(t, err)

	conv := NewConversation(TaxGreeting).Append(
		Message{Role: RoleUser, Content: "Halo"},
		Message{Role: RoleAssistant, Content: "Halo juga"},
	)
	next, reply, err := a.Ask(context.Background(), conv, "Apa itu PPh 21?")
	require.NoError(t, err)

	assert.Len(t, reply.Sources, 2)
	req := model.requests[0]
	assert.Len(t, req.History, 2)
	assert.Equal(t, "Apa itu PPh 21?", req.Parts[0].Text)
	assert.Contains(t, req.Params.SystemInstruction, "Namamu Sari")
	require.Len(t, req.Params.Tools, 1)
	assert.Equal(t,
		"projects/p1/locations/global/collections/default_collection/dataStores/pajak-ds",
		req.Params.Tools[0].Retrieval.VertexAISearch.Datastore)

	last := next.Messages[len(next.Messages)-1]
	assert.Equal(t, "PPh 21 adalah pajak atas penghasilan.\n\nSumber:  \n```gs://docs/pph21.pdf  \ngs://docs/uu-hpp.pdf  \n```", last.Content)
}

func TestNewTaxAssistant_RequiresDataStore(t *testing.T) {
	_, err := NewTaxAssistant(textModel("x"), "m", DataStore{ProjectID: "p1"})
	assert.Error(t, err)
}

func TestFormatWithSources_NoSources(t *testing.T) {
	assert.Equal(t, "jawaban", FormatWithSources("jawaban", nil))
}
