package exchange

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/kentandrian/vertexai-demos/internal/vertex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeModel struct {
	requests     []vertex.Request
	GenerateFunc func(ctx context.Context, req vertex.Request, round int) (*vertex.Response, error)
}

func (f *fakeModel) Generate(ctx context.Context, req vertex.Request) (*vertex.Response, error) {
	f.requests = append(f.requests, req)
	return f.GenerateFunc(ctx, req, len(f.requests))
}

type fakeRates struct {
	calls    int
	RateFunc func(ctx context.Context, from, to, date string) (*Rates, error)
}

func (f *fakeRates) Rate(ctx context.Context, from, to, date string) (*Rates, error) {
	f.calls++
	return f.RateFunc(ctx, from, to, date)
}

func rateCall(args map[string]any) *vertex.Response {
	fc := &genai.FunctionCall{Name: toolName, Args: args}
	return &vertex.Response{
		FunctionCalls: []*genai.FunctionCall{fc},
		Content:       genai.NewContentFromParts([]*genai.Part{{FunctionCall: fc}}, genai.RoleModel),
	}
}

func TestCurrencies(t *testing.T) {
	list := Currencies()
	require.Len(t, list, 31)
	assert.Equal(t, "USD", list[0].Code)
	assert.Equal(t, "ZAR", list[30].Code)

	c, ok := LookupCurrency(" idr ")
	require.True(t, ok)
	assert.Equal(t, "IDR (Rupiah)", c.Label())

	c, ok = LookupCurrency("eur")
	require.True(t, ok)
	assert.Equal(t, "Euro", c.Name)

	_, ok = LookupCurrency("XAU")
	assert.False(t, ok)

	list[0].Code = "XXX"
	assert.Equal(t, "USD", Currencies()[0].Code)
}

func TestQuery_Validate(t *testing.T) {
	today := civil.Date{Year: 2025, Month: time.March, Day: 10}

	tests := []struct {
		name    string
		q       Query
		wantErr error
	}{
		{"ok", Query{From: "USD", To: "IDR", Date: today}, nil},
		{"first date", Query{From: "usd", To: "jpy", Date: FirstRateDate}, nil},
		{"euro", Query{From: "USD", To: "EUR", Date: today}, nil},
		{"unsupported", Query{From: "XAU", To: "IDR", Date: today}, ErrUnsupportedCurrency},
		{"same", Query{From: "SGD", To: "sgd", Date: today}, ErrSameCurrency},
		{"too early", Query{From: "USD", To: "IDR", Date: civil.Date{Year: 1999, Month: time.January, Day: 3}}, ErrDateOutOfRange},
		{"future", Query{From: "USD", To: "IDR", Date: today.AddDays(1)}, ErrDateOutOfRange},
		{"zero date", Query{From: "USD", To: "IDR"}, ErrDateOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.q.Validate(today)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestQuery_Question(t *testing.T) {
	q := Query{From: "usd", To: "IDR", Date: civil.Date{Year: 2024, Month: time.May, Day: 2}}
	assert.Equal(t, "What is the exchange rate from USD to IDR currency as of 2024-05-02?", q.Question())
}

func TestFrankfurter_Rate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2024-05-02", r.URL.Path)
		assert.Equal(t, "USD", r.URL.Query().Get("from"))
		assert.Equal(t, "IDR", r.URL.Query().Get("to"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"amount":1.0,"base":"USD","date":"2024-05-02","rates":{"IDR":16178.0}}`))
	}))
	defer srv.Close()

	rates, err := NewFrankfurter(srv.URL+"/", time.Second).Rate(context.Background(), "usd", "idr", "2024-05-02")
	require.NoError(t, err)
	assert.Equal(t, "USD", rates.Base)
	assert.Equal(t, 16178.0, rates.Rates["IDR"])
}

func TestFrankfurter_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/latest":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"not found"}`))
		default:
			_, _ = w.Write([]byte(`<html>`))
		}
	}))
	defer srv.Close()

	f := NewFrankfurter(srv.URL, time.Second)

	_, err := f.Rate(context.Background(), "USD", "XXX", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404: not found")

	_, err = f.Rate(context.Background(), "USD", "IDR", "2020-01-01")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestAgent_Ask(t *testing.T) {
	rates := &fakeRates{RateFunc: func(ctx context.Context, from, to, date string) (*Rates, error) {
		assert.Equal(t, "USD", from)
		assert.Equal(t, "IDR", to)
		assert.Equal(t, "2024-05-02", date)
		return &Rates{Amount: 1, Base: "USD", Date: date, Rates: map[string]float64{"IDR": 16178}}, nil
	}}
	model := &fakeModel{GenerateFunc: func(ctx context.Context, req vertex.Request, round int) (*vertex.Response, error) {
		if round == 1 {
			return rateCall(map[string]any{"currency_from": "USD", "currency_to": "IDR", "currency_date": "2024-05-02"}), nil
		}
		return &vertex.Response{Text: "1 USD was 16,178 IDR on 2024-05-02."}, nil
	}}

	q := Query{From: "USD", To: "IDR", Date: civil.Date{Year: 2024, Month: time.May, Day: 2}}
	ans, err := NewAgent(model, "gemini-test", rates, 0).Ask(context.Background(), q, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, "1 USD was 16,178 IDR on 2024-05-02.", ans.Text)
	assert.Equal(t, 1, ans.ToolCalls)
	assert.Equal(t, 1, rates.calls)
	require.Len(t, model.requests, 2)

	first := model.requests[0]
	assert.Equal(t, "gemini-test", first.Model)
	require.Len(t, first.History, 1)
	assert.Contains(t, first.History[0].Parts[0].Text, "from USD to IDR")
	assert.Equal(t, float32(0.28), *first.Params.Temperature)
	assert.Equal(t, float32(40), *first.Params.TopK)
	assert.Equal(t, int32(1000), first.Params.MaxOutputTokens)
	require.Len(t, first.Params.Tools, 1)
	assert.Equal(t, toolName, first.Params.Tools[0].FunctionDeclarations[0].Name)

	second := model.requests[1]
	require.Len(t, second.History, 3)
	assert.Equal(t, genai.RoleModel, second.History[1].Role)
	resp := second.History[2].Parts[0].FunctionResponse
	require.NotNil(t, resp)
	assert.Equal(t, toolName, resp.Name)
	assert.Equal(t, "USD", resp.Response["base"])
}

func TestAgent_ToolFailureGoesBackToModel(t *testing.T) {
	rates := &fakeRates{RateFunc: func(ctx context.Context, from, to, date string) (*Rates, error) {
		assert.Equal(t, "USD", from)
		assert.Equal(t, "EUR", to)
		assert.Equal(t, Latest, date)
		return nil, errors.New("connection refused")
	}}
	model := &fakeModel{GenerateFunc: func(ctx context.Context, req vertex.Request, round int) (*vertex.Response, error) {
		if round == 1 {
			return rateCall(nil), nil
		}
		resp := req.History[len(req.History)-1].Parts[0].FunctionResponse
		assert.Equal(t, "connection refused", resp.Response["error"])
		return &vertex.Response{Text: "The rate service is unavailable."}, nil
	}}

	ans, err := NewAgent(model, "m", rates, 3).AskText(context.Background(), "USD to EUR?")
	require.NoError(t, err)
	assert.Equal(t, "The rate service is unavailable.", ans.Text)
}

func TestAgent_TooManyRounds(t *testing.T) {
	rates := &fakeRates{RateFunc: func(ctx context.Context, from, to, date string) (*Rates, error) {
		return &Rates{Base: from, Rates: map[string]float64{to: 1}}, nil
	}}
	model := &fakeModel{GenerateFunc: func(ctx context.Context, req vertex.Request, round int) (*vertex.Response, error) {
		return rateCall(map[string]any{"currency_from": "USD", "currency_to": "JPY"}), nil
	}}

	_, err := NewAgent(model, "m", rates, 0).AskText(context.Background(), "loop")
	assert.ErrorIs(t, err, ErrTooManyRounds)
	assert.Len(t, model.requests, DefaultMaxRounds)
	assert.Equal(t, DefaultMaxRounds, rates.calls)
}

func TestAgent_InvalidQuery(t *testing.T) {
	model := &fakeModel{GenerateFunc: func(ctx context.Context, req vertex.Request, round int) (*vertex.Response, error) {
		t.Error("model must not be called")
		return nil, nil
	}}
	q := Query{From: "USD", To: "USD", Date: civil.Date{Year: 2024, Month: time.May, Day: 2}}
	_, err := NewAgent(model, "m", &fakeRates{}, 0).Ask(context.Background(), q, time.Now())
	assert.ErrorIs(t, err, ErrSameCurrency)
}
