package claims

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kentandrian/vertexai-demos/internal/document"
	"github.com/kentandrian/vertexai-demos/internal/logger"
	"github.com/kentandrian/vertexai-demos/internal/vertex"
)

// RunInfo describes a claim run when it starts.
type RunInfo struct {
	RunID        string
	DocumentName string
	MIMEType     string
	SourceURI    string
	Model        string
	StartedAt    time.Time
}

// RunSummary is recorded when a run finishes.
type RunSummary struct {
	Items    int
	Failures int
}

// RunRecorder persists the progress of claim runs. Errors it returns are
// logged and never change the outcome of a run.
type RunRecorder interface {
	StartRun(ctx context.Context, run RunInfo) error
	RecordModelOutput(ctx context.Context, runID, stage, raw string) error
	InsertClaimItems(ctx context.Context, runID string, items []EnrichedItem) error
	MarkRunSucceeded(ctx context.Context, runID string, summary RunSummary) error
	MarkRunFailed(ctx context.Context, runID string, runErr error)
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) StartRun(context.Context, RunInfo) error                         { return nil }
func (NopRecorder) RecordModelOutput(context.Context, string, string, string) error { return nil }
func (NopRecorder) InsertClaimItems(context.Context, string, []EnrichedItem) error  { return nil }
func (NopRecorder) MarkRunSucceeded(context.Context, string, RunSummary) error      { return nil }
func (NopRecorder) MarkRunFailed(context.Context, string, error)                    {}

// Stage names used for recorded model outputs.
const (
	StageExtraction = "stage1_extraction"
)

// Options configure a Processor.
type Options struct {
	// Model is the Gemini model id used for both stages.
	Model    string
	Workers  int
	Recorder RunRecorder
}

// Processor runs the full claim flow for one document at a time: extraction,
// bounded parallel classification and enrichment. It is safe for concurrent use.
type Processor struct {
	table      *CategoryTable
	extractor  *Extractor
	classifier *Classifier
	recorder   RunRecorder
	model      string
}

// NewProcessor wires the stages around a shared model handle and category table.
func NewProcessor(model vertex.Model, table *CategoryTable, opts Options) *Processor {
	rec := opts.Recorder
	if rec == nil {
		rec = NopRecorder{}
	}
	return &Processor{
		table:      table,
		extractor:  NewExtractor(model, opts.Model),
		classifier: NewClassifier(model, opts.Model, table, opts.Workers),
		recorder:   rec,
		model:      opts.Model,
	}
}

// Table returns the category table used for enrichment.
func (p *Processor) Table() *CategoryTable {
	return p.table
}

// Input is one document to process. SourceURI is informational.
type Input struct {
	Document  document.Document
	SourceURI string
	// RunID is generated when empty.
	RunID string
}

// Process runs every step for in. Input and Stage-1 errors are fatal and
// returned as is. Per-item classification failures are reported in
// Result.Failures.
func (p *Processor) Process(ctx context.Context, in Input) (*Result, error) {
	runID := in.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	ctx = logger.WithContext(ctx, logger.WithFields(logger.FromContext(ctx), map[string]interface{}{
		"run_id":   runID,
		"document": in.Document.Name,
	}))

	state := &processState{
		input: in,
		result: &Result{
			RunID:        runID,
			DocumentName: in.Document.Name,
			StartedAt:    time.Now().UTC(),
		},
	}

	steps := []processStep{
		&startRunStep{p},
		&extractStep{p},
		&classifyStep{p},
		&enrichStep{p},
		&recordItemsStep{p},
	}

	log := logger.FromContext(ctx)
	for _, step := range steps {
		if err := step.Execute(ctx, state); err != nil {
			log.Error().Err(err).Str("step", step.Name()).Msg("Claim processing failed")
			p.recorder.MarkRunFailed(ctx, runID, err)
			return nil, err
		}
	}

	state.result.FinishedAt = time.Now().UTC()
	if err := p.recorder.MarkRunSucceeded(ctx, runID, RunSummary{
		Items:    len(state.result.Items),
		Failures: len(state.result.Failures),
	}); err != nil {
		log.Warn().Err(err).Msg("Failed to record run success")
	}

	log.Info().
		Int("attempted", state.result.Attempted()).
		Int("items", len(state.result.Items)).
		Int("failures", len(state.result.Failures)).
		Dur("elapsed", state.result.FinishedAt.Sub(state.result.StartedAt)).
		Msg("Claim processed")
	return state.result, nil
}

type processState struct {
	input      Input
	extraction *Extraction
	classified []Classified
	result     *Result
}

type processStep interface {
	Name() string
	Execute(ctx context.Context, state *processState) error
}

type startRunStep struct{ p *Processor }

func (s *startRunStep) Name() string { return "start_run" }

func (s *startRunStep) Execute(ctx context.Context, state *processState) error {
	err := s.p.recorder.StartRun(ctx, RunInfo{
		RunID:        state.result.RunID,
		DocumentName: state.input.Document.Name,
		MIMEType:     state.input.Document.MIMEType,
		SourceURI:    state.input.SourceURI,
		Model:        s.p.model,
		StartedAt:    state.result.StartedAt,
	})
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("Failed to record run start")
	}
	return nil
}

type extractStep struct{ p *Processor }

func (s *extractStep) Name() string { return "extract" }

func (s *extractStep) Execute(ctx context.Context, state *processState) error {
	ext, err := s.p.extractor.Extract(ctx, state.input.Document)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			s.record(ctx, state.result.RunID, perr.Raw)
		}
		return err
	}
	s.record(ctx, state.result.RunID, string(ext.Raw))

	state.extraction = ext
	state.result.RawExtraction = ext.Raw
	state.result.GlobalContext = ext.GlobalContext
	return nil
}

func (s *extractStep) record(ctx context.Context, runID, raw string) {
	if err := s.p.recorder.RecordModelOutput(ctx, runID, StageExtraction, raw); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("Failed to record model output")
	}
}

type classifyStep struct{ p *Processor }

func (s *classifyStep) Name() string { return "classify" }

func (s *classifyStep) Execute(ctx context.Context, state *processState) error {
	if len(state.extraction.Items) == 0 {
		return nil
	}
	state.classified, state.result.Failures = s.p.classifier.Classify(ctx, state.extraction.GlobalContext, state.extraction.Items)
	return nil
}

type enrichStep struct{ p *Processor }

func (s *enrichStep) Name() string { return "enrich" }

func (s *enrichStep) Execute(_ context.Context, state *processState) error {
	state.result.Items = EnrichAll(s.p.table, state.classified, state.extraction.GlobalContext)
	if state.result.Failures == nil {
		state.result.Failures = []ItemFailure{}
	}
	return nil
}

type recordItemsStep struct{ p *Processor }

func (s *recordItemsStep) Name() string { return "record_items" }

func (s *recordItemsStep) Execute(ctx context.Context, state *processState) error {
	if len(state.result.Items) == 0 {
		return nil
	}
	if err := s.p.recorder.InsertClaimItems(ctx, state.result.RunID, state.result.Items); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("Failed to record claim items")
	}
	return nil
}
