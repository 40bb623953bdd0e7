package handlers

import (
	"errors"
	"net/http"

	"github.com/kentandrian/vertexai-demos/internal/api/middleware"
	"github.com/kentandrian/vertexai-demos/internal/chat"
	"github.com/kentandrian/vertexai-demos/internal/claims"
	"github.com/kentandrian/vertexai-demos/internal/document"
	"github.com/kentandrian/vertexai-demos/internal/exchange"
	"github.com/kentandrian/vertexai-demos/internal/extract"
	"github.com/kentandrian/vertexai-demos/internal/gcs"
	"github.com/kentandrian/vertexai-demos/internal/jobs"
)

// errorBody is the JSON error payload. Raw carries a model reply that could
// not be parsed.
type errorBody struct {
	Error string `json:"error"`
	Raw   string `json:"raw,omitempty"`
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var (
		maxBytes   *http.MaxBytesError
		parseErr   *claims.ParseError
		invalidErr *extract.InvalidJSONError
	)
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, document.ErrEmpty),
		errors.Is(err, extract.ErrUnknownKind),
		errors.Is(err, exchange.ErrUnsupportedCurrency),
		errors.Is(err, exchange.ErrSameCurrency),
		errors.Is(err, exchange.ErrDateOutOfRange),
		errors.Is(err, gcs.ErrInvalidURI):
		return http.StatusBadRequest
	case errors.Is(err, document.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, jobs.ErrJobNotFound), errors.Is(err, chat.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, jobs.ErrQueueClosed):
		return http.StatusServiceUnavailable
	case errors.As(err, &parseErr), errors.As(err, &invalidErr), errors.Is(err, exchange.ErrTooManyRounds):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeErr logs err and writes the mapped status. Server errors get a generic
// message; client errors carry err's text.
func writeErr(w http.ResponseWriter, r *http.Request, err error, msg string) {
	status := statusFor(err)
	body := errorBody{Error: msg}
	if status < http.StatusInternalServerError || status == http.StatusBadGateway || status == http.StatusServiceUnavailable {
		body.Error = msg + ": " + err.Error()
	}

	var (
		parseErr   *claims.ParseError
		invalidErr *extract.InvalidJSONError
	)
	switch {
	case errors.As(err, &parseErr):
		body.Raw = parseErr.Raw
	case errors.As(err, &invalidErr):
		body.Raw = invalidErr.Text
	}

	log := loggerFor(r)
	ev := log.Warn()
	if status >= http.StatusInternalServerError {
		ev = log.Error()
	}
	ev.Err(err).Int("status", status).Msg(msg)

	middleware.WriteJSON(w, status, body)
}

func badRequest(w http.ResponseWriter, msg string) {
	middleware.WriteError(w, http.StatusBadRequest, msg)
}
