package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/kentandrian/vertexai-demos/internal/api"
	"github.com/kentandrian/vertexai-demos/internal/api/handlers"
	"github.com/kentandrian/vertexai-demos/internal/app"
	"github.com/kentandrian/vertexai-demos/internal/chat"
	"github.com/kentandrian/vertexai-demos/internal/config"
	"github.com/kentandrian/vertexai-demos/internal/jobs/inmemory"
	"github.com/kentandrian/vertexai-demos/internal/logger"
)

func main() {
	port := flag.Int("port", 0, "HTTP server port (overrides server.port)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logger.NewFromConfig(cfg.Log.Level, cfg.Log.Format)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	ctx := logger.WithContext(context.Background(), log)

	services, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Close()

	processor, err := services.ClaimProcessor()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build claim processor")
	}

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.Server.QueueSize, cfg.Server.JobWorkers, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	log.Info().Int("workers", cfg.Server.JobWorkers).Msg("Starting job workers")
	if err := jobQueue.Start(workerCtx, app.ClaimJobHandler(processor, services.Storage)); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job workers")
	}

	maxUpload := cfg.Claims.MaxUploadBytes()
	h := api.Handlers{
		Claims:    handlers.NewClaimsHandler(processor, jobQueue, maxUpload),
		Jobs:      handlers.NewJobsHandler(jobStore),
		Extract:   handlers.NewExtractHandler(services.Extractor(), maxUpload),
		Exchange:  handlers.NewExchangeHandler(services.ExchangeAgent()),
		HotelTags: handlers.NewHotelTagsHandler(services.HotelScraper(), services.HotelTagger()),
		Trip:      handlers.NewChatHandler(chat.TripGreeting, services.TripPlanner().Plan, chat.NewSessionStore()),
	}
	var runs handlers.RunLister
	if services.Repo != nil {
		runs = services.Repo
	}
	h.Runs = handlers.NewRunsHandler(runs)
	if tax, err := services.TaxAssistant(); err != nil {
		log.Warn().Err(err).Msg("Tax assistant disabled")
	} else {
		h.Tax = handlers.NewChatHandler(chat.TaxGreeting, tax.Ask, chat.NewSessionStore())
	}

	server := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Server.Port),
		Handler:           api.NewRouter(h, log),
		ReadHeaderTimeout: 15 * time.Second,
		// Claim processing holds the request open for every model call.
		WriteTimeout: cfg.Vertex.Timeout() + 60*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}
