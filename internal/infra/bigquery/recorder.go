package bigquery

import (
	"context"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/kentandrian/vertexai-demos/internal/claims"
)

// Recorder adapts a ClaimRunRepository to claims.RunRecorder.
type Recorder struct {
	repo  ClaimRunRepository
	model string
	now   func() time.Time
}

// NewRecorder creates a Recorder. model is stored with every model output.
func NewRecorder(repo ClaimRunRepository, model string) *Recorder {
	return &Recorder{repo: repo, model: model, now: time.Now}
}

// StartRun implements claims.RunRecorder.
func (r *Recorder) StartRun(ctx context.Context, run claims.RunInfo) error {
	return r.repo.InsertRun(ctx, &ClaimRunRow{
		RunID:        run.RunID,
		DocumentName: run.DocumentName,
		MIMEType:     run.MIMEType,
		SourceURI:    run.SourceURI,
		ModelName:    run.Model,
		StartedTS:    run.StartedAt,
	})
}

// RecordModelOutput implements claims.RunRecorder.
func (r *Recorder) RecordModelOutput(ctx context.Context, runID, stage, raw string) error {
	return r.repo.InsertModelOutput(ctx, &ModelOutputRow{
		OutputID:  uuid.NewString(),
		RunID:     runID,
		Stage:     stage,
		ModelName: r.model,
		RawText:   raw,
		CreatedTS: r.now(),
	})
}

// InsertClaimItems implements claims.RunRecorder.
func (r *Recorder) InsertClaimItems(ctx context.Context, runID string, items []claims.EnrichedItem) error {
	return r.repo.InsertClaimItems(ctx, ItemRows(runID, items, r.now()))
}

// MarkRunSucceeded implements claims.RunRecorder.
func (r *Recorder) MarkRunSucceeded(ctx context.Context, runID string, summary claims.RunSummary) error {
	return r.repo.MarkRunSucceeded(ctx, runID, summary.Items, summary.Failures)
}

// MarkRunFailed implements claims.RunRecorder.
func (r *Recorder) MarkRunFailed(ctx context.Context, runID string, runErr error) {
	r.repo.MarkRunFailed(ctx, runID, runErr)
}

// ItemRows converts enriched items into claim_items rows. Dates that are not
// YYYY-MM-DD are stored as NULL.
func ItemRows(runID string, items []claims.EnrichedItem, created time.Time) []*ClaimItemRow {
	rows := make([]*ClaimItemRow, 0, len(items))
	for i, it := range items {
		rows = append(rows, &ClaimItemRow{
			RunID:               runID,
			LineIndex:           int64(i),
			ReportTitle:         it.ReportTitle,
			EmployeeID:          it.EmployeeID,
			EmployeeName:        it.EmployeeName,
			Entity:              it.Entity,
			ProfitCenter:        it.ProfitCenter,
			CostCenter:          it.CostCenter,
			TravelStartDate:     nullDate(it.TravelStartDate),
			TravelEndDate:       nullDate(it.TravelEndDate),
			Merchant:            it.Merchant,
			Description:         it.Description,
			OriginalCurrency:    it.OriginalCurrency,
			OriginalAmount:      float64(it.OriginalAmount),
			EntityCurrency:      it.EntityCurrency,
			EntityAmount:        float64(it.EntityAmount),
			TransactionDate:     nullDate(it.TransactionDate),
			TransactionTime:     it.TransactionTime,
			ClassificationKey:   string(it.ClassificationKey),
			ModelKey:            it.ModelKey,
			CategoryClaim:       it.CategoryClaim,
			SubCategory:         it.SubCategory,
			COA:                 it.COA,
			CategoryDescription: it.CategoryDescription,
			CreatedTS:           created,
		})
	}
	return rows
}

func nullDate(s string) bigquery.NullDate {
	d, err := civil.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return bigquery.NullDate{}
	}
	return bigquery.NullDate{Date: d, Valid: true}
}

var _ claims.RunRecorder = (*Recorder)(nil)
