package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/kentandrian/vertexai-demos/internal/api/middleware"
	"github.com/kentandrian/vertexai-demos/internal/exchange"
)

// RateAgent answers currency conversion questions.
type RateAgent interface {
	Ask(ctx context.Context, q exchange.Query, today time.Time) (*exchange.Answer, error)
	AskText(ctx context.Context, question string) (*exchange.Answer, error)
}

// ExchangeHandler serves the exchange rate agent.
type ExchangeHandler struct {
	agent RateAgent
	now   func() time.Time
}

// NewExchangeHandler creates an exchange handler.
func NewExchangeHandler(agent RateAgent) *ExchangeHandler {
	return &ExchangeHandler{agent: agent, now: time.Now}
}

type exchangeRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
	// Date is YYYY-MM-DD; empty means today.
	Date string `json:"date"`
	// Question bypasses the form fields and is sent as typed.
	Question string `json:"question"`
}

// Currencies handles GET /api/exchange/currencies
func (h *ExchangeHandler) Currencies(w http.ResponseWriter, r *http.Request) {
	list := exchange.Currencies()
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"currencies":      list,
		"count":           len(list),
		"first_rate_date": exchange.FirstRateDate.String(),
	})
}

// Ask handles POST /api/exchange-rate
func (h *ExchangeHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req exchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "Invalid request body")
		return
	}

	if q := strings.TrimSpace(req.Question); q != "" {
		answer, err := h.agent.AskText(r.Context(), q)
		if err != nil {
			writeErr(w, r, err, "Failed to answer question")
			return
		}
		middleware.WriteJSON(w, http.StatusOK, answer)
		return
	}

	if req.From == "" || req.To == "" {
		badRequest(w, "from and to are required")
		return
	}

	now := h.now()
	date := civil.DateOf(now)
	if req.Date != "" {
		d, err := civil.ParseDate(req.Date)
		if err != nil {
			badRequest(w, "date must be YYYY-MM-DD")
			return
		}
		date = d
	}

	answer, err := h.agent.Ask(r.Context(), exchange.Query{From: req.From, To: req.To, Date: date}, now)
	if err != nil {
		writeErr(w, r, err, "Failed to get exchange rate")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, answer)
}
