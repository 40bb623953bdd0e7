// Package api wires the demo HTTP handlers into a chi router.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kentandrian/vertexai-demos/internal/api/handlers"
	"github.com/kentandrian/vertexai-demos/internal/api/middleware"
	"github.com/rs/zerolog"
)

// Handlers groups the endpoint handlers. A nil handler leaves its routes unmounted.
type Handlers struct {
	Claims    *handlers.ClaimsHandler
	Jobs      *handlers.JobsHandler
	Runs      *handlers.RunsHandler
	Extract   *handlers.ExtractHandler
	Exchange  *handlers.ExchangeHandler
	HotelTags *handlers.HotelTagsHandler
	Trip      *handlers.ChatHandler
	Tax       *handlers.ChatHandler
}

// NewRouter builds the HTTP handler with the middleware chain
// Recovery, RequestID, Logger and CORS.
func NewRouter(h Handlers, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(middleware.CORS())

	r.Get("/health", handlers.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/demos", handlers.Demos)

		if h.Claims != nil {
			r.Post("/claims", h.Claims.Process)
			r.Post("/claims/jobs", h.Claims.SubmitJob)
			r.Get("/claims/categories", h.Claims.Categories)
		}
		if h.Jobs != nil {
			r.Get("/jobs", h.Jobs.ListJobs)
			r.Get("/jobs/{id}", h.Jobs.GetJob)
		}
		if h.Runs != nil {
			r.Get("/runs", h.Runs.ListRuns)
			r.Get("/runs/{id}/items", h.Runs.ListItems)
		}
		if h.Extract != nil {
			r.Post("/extract/{kind}", h.Extract.Extract)
		}
		if h.Exchange != nil {
			r.Get("/exchange/currencies", h.Exchange.Currencies)
			r.Post("/exchange-rate", h.Exchange.Ask)
		}
		if h.HotelTags != nil {
			r.Post("/hotel-tags", h.HotelTags.Generate)
		}
		if h.Trip != nil {
			mountChat(r, "/trip", h.Trip)
		}
		if h.Tax != nil {
			mountChat(r, "/tax-chat", h.Tax)
		}
	})

	return r
}

func mountChat(r chi.Router, prefix string, h *handlers.ChatHandler) {
	r.Route(prefix, func(r chi.Router) {
		r.Post("/", h.Start)
		r.Get("/{id}", h.Get)
		r.Post("/{id}", h.Send)
		r.Delete("/{id}", h.End)
	})
}
