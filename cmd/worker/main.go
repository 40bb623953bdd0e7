// Command worker processes a batch of claim documents from Cloud Storage
// through the in-memory job queue and prints one line per document.
//
// URIs are taken from the arguments, or read one per line from stdin.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/kentandrian/vertexai-demos/internal/app"
	"github.com/kentandrian/vertexai-demos/internal/config"
	"github.com/kentandrian/vertexai-demos/internal/gcs"
	"github.com/kentandrian/vertexai-demos/internal/jobs"
	"github.com/kentandrian/vertexai-demos/internal/jobs/inmemory"
	"github.com/kentandrian/vertexai-demos/internal/logger"
)

func main() {
	workers := flag.Int("workers", 0, "concurrent documents (default server.job_workers)")
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
	if *workers < 1 {
		*workers = cfg.Server.JobWorkers
	}

	uris := flag.Args()
	if len(uris) == 0 {
		if uris, err = readURIs(os.Stdin); err != nil {
			log.Fatal().Err(err).Msg("Failed to read URIs")
		}
	}
	if len(uris) == 0 {
		log.Fatal().Msg("No gs:// URIs given")
	}

	// Create context that cancels on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	services, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Close()

	processor, err := services.ClaimProcessor()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build claim processor")
	}

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(len(uris), *workers, jobStore)

	log.Info().Int("documents", len(uris)).Int("workers", *workers).Msg("Starting batch")
	created, err := runBatch(ctx, jobQueue, jobQueue, app.ClaimJobHandler(processor, services.Storage), uris)
	if err != nil {
		log.Error().Err(err).Msg("Batch interrupted")
	}

	// Stop the queue and wait for in-flight jobs
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	failed := report(ctx, os.Stdout, jobStore, created)
	log.Info().Int("documents", len(created)).Int("failed", failed).Msg("Batch finished")
	if failed > 0 || err != nil {
		os.Exit(1)
	}
}

// readURIs returns the non-blank, non-comment lines of r.
func readURIs(r io.Reader) ([]string, error) {
	var uris []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		uris = append(uris, line)
	}
	return uris, scanner.Err()
}

// runBatch publishes one job per URI and waits until every published job has
// been handled or ctx ends. It returns the ids of the published jobs in order.
func runBatch(ctx context.Context, pub jobs.Publisher, consumer jobs.Consumer, handler jobs.JobHandler, uris []string) ([]string, error) {
	var wg sync.WaitGroup
	tracked := func(ctx context.Context, job *jobs.ProcessClaimJob) error {
		defer wg.Done()
		return handler(ctx, job)
	}
	if err := consumer.Start(ctx, tracked); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(uris))
	for _, uri := range uris {
		job := &jobs.ProcessClaimJob{SourceURI: uri, DocumentName: gcs.FilenameFromURI(uri)}
		wg.Add(1)
		if err := pub.PublishProcessClaim(ctx, job); err != nil {
			wg.Done()
			return ids, err
		}
		ids = append(ids, job.JobID)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return ids, nil
	case <-ctx.Done():
		return ids, ctx.Err()
	}
}

// report prints one line per job and returns the number that did not complete.
func report(ctx context.Context, w io.Writer, store jobs.JobStore, ids []string) int {
	failed := 0
	for _, id := range ids {
		job, err := store.GetJob(ctx, id)
		if err != nil {
			failed++
			fmt.Fprintf(w, "%s\tunknown\t%v\n", id, err)
			continue
		}
		switch job.Status {
		case jobs.JobStatusCompleted:
			items, failures := 0, 0
			if job.Result != nil {
				items, failures = len(job.Result.Items), len(job.Result.Failures)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\titems=%d failures=%d\n", id, job.Status, job.SourceURI, items, failures)
		default:
			failed++
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", id, job.Status, job.SourceURI, job.Error)
		}
	}
	return failed
}
