// Package app builds the demo services from configuration. The CLI and the
// HTTP service share it so both construct the same object graph.
package app

import (
	"context"
	"time"

	"github.com/kentandrian/vertexai-demos/internal/chat"
	"github.com/kentandrian/vertexai-demos/internal/claims"
	"github.com/kentandrian/vertexai-demos/internal/config"
	"github.com/kentandrian/vertexai-demos/internal/exchange"
	"github.com/kentandrian/vertexai-demos/internal/extract"
	"github.com/kentandrian/vertexai-demos/internal/gcs"
	"github.com/kentandrian/vertexai-demos/internal/hoteltags"
	infraBQ "github.com/kentandrian/vertexai-demos/internal/infra/bigquery"
	"github.com/kentandrian/vertexai-demos/internal/logger"
	"github.com/kentandrian/vertexai-demos/internal/vertex"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// App holds the long-lived clients. Build it once with New and Close it on exit.
type App struct {
	Config  *config.Config
	Model   vertex.Model
	Storage gcs.StorageService
	// Repo is nil when BigQuery recording is disabled.
	Repo *infraBQ.Repository

	closers []func() error
}

// Option customises New.
type Option func(*options)

type options struct {
	model   vertex.Model
	storage gcs.StorageService
	noRepo  bool
}

// WithModel replaces the Vertex AI client.
func WithModel(m vertex.Model) Option {
	return func(o *options) { o.model = m }
}

// WithStorage replaces the Cloud Storage service.
func WithStorage(s gcs.StorageService) Option {
	return func(o *options) { o.storage = s }
}

// WithoutRecording skips BigQuery even when a dataset is configured.
func WithoutRecording() Option {
	return func(o *options) { o.noRepo = true }
}

// New creates the Vertex AI, Cloud Storage and (optionally) BigQuery clients.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: cfg, Model: o.model, Storage: o.storage}

	if a.Model == nil {
		if err := cfg.RequireProject(); err != nil {
			return nil, err
		}
		client, err := vertex.NewClient(ctx, vertex.Config{
			ProjectID: cfg.Vertex.ProjectID,
			Location:  cfg.Vertex.Location,
			Timeout:   cfg.Vertex.Timeout(),
		})
		if err != nil {
			return nil, eris.Wrap(err, "New: vertex client")
		}
		a.Model = client
	}

	if a.Storage == nil {
		svc, err := gcs.NewService(ctx, cfg.Claims.MaxUploadBytes())
		if err != nil {
			return nil, eris.Wrap(err, "New: storage service")
		}
		a.Storage = svc
		a.closers = append(a.closers, svc.Close)
	}

	if cfg.BigQuery.Enabled() && !o.noRepo {
		repo, err := infraBQ.NewRepository(ctx, cfg.Vertex.ProjectID, cfg.BigQuery.Dataset, cfg.Vertex.Location)
		if err != nil {
			a.Close()
			return nil, eris.Wrap(err, "New: bigquery repository")
		}
		a.Repo = repo
		a.closers = append(a.closers, repo.Close)
	}

	log := logger.FromContext(ctx)
	log.Debug().
		Str("project", cfg.Vertex.ProjectID).
		Str("location", cfg.Vertex.Location).
		Bool("recording", a.Repo != nil).
		Msg("Services initialized")
	return a, nil
}

// Close releases every client New opened.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

// Recorder returns the BigQuery run recorder, or a no-op when recording is off.
func (a *App) Recorder() claims.RunRecorder {
	if a.Repo == nil {
		return claims.NopRecorder{}
	}
	return infraBQ.NewRecorder(a.Repo, a.Config.Models.Claim)
}

// ClaimProcessor builds the two-stage claim pipeline with the embedded category table.
func (a *App) ClaimProcessor() (*claims.Processor, error) {
	table, err := claims.LoadDefaultCategories()
	if err != nil {
		return nil, eris.Wrap(err, "ClaimProcessor: load categories")
	}
	return claims.NewProcessor(a.Model, table, claims.Options{
		Model:    a.Config.Models.Claim,
		Workers:  a.Config.Claims.Workers,
		Recorder: a.Recorder(),
	}), nil
}

// Extractor builds the single-call document extractors.
func (a *App) Extractor() *extract.Extractor {
	return extract.NewExtractor(a.Model, extract.Models{
		Invoice: a.Config.Models.Invoice,
		EBupot:  a.Config.Models.EBupot,
		Claim:   a.Config.Models.Claim,
	})
}

// ExchangeAgent builds the rate agent over the Frankfurter API.
func (a *App) ExchangeAgent() *exchange.Agent {
	ec := a.Config.Exchange
	rates := exchange.NewFrankfurter(ec.BaseURL, time.Duration(ec.TimeoutSecs)*time.Second)
	return exchange.NewAgent(a.Model, a.Config.Models.Exchange, rates, ec.MaxRounds)
}

// HotelScraper builds the hotel page scraper.
func (a *App) HotelScraper() *hoteltags.Scraper {
	hc := a.Config.Hotel
	return hoteltags.NewScraper(hoteltags.ScraperOptions{
		UserAgent: hc.UserAgent,
		Referer:   hc.Referer,
		MaxImages: hc.MaxImages,
		Limiter:   rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
	})
}

// HotelTagger builds the hotel tag generator.
func (a *App) HotelTagger() *hoteltags.Tagger {
	return hoteltags.NewTagger(a.Model, a.Config.Models.HotelTags)
}

// TripPlanner builds the trip planner chat.
func (a *App) TripPlanner() *chat.TripPlanner {
	return chat.NewTripPlanner(a.Model, a.Config.Models.Trip, a.Config.Trip.Weather)
}

// TaxAssistant builds the grounded tax chat. It fails when no datastore is configured.
func (a *App) TaxAssistant() (*chat.TaxAssistant, error) {
	return chat.NewTaxAssistant(a.Model, a.Config.Models.Tax, chat.DataStore{
		ProjectID: a.Config.Vertex.ProjectID,
		Location:  a.Config.Search.Location,
		ID:        a.Config.Search.DataStoreID,
	})
}
