// Package bigquery holds the row types and repository interface for the claim
// run history kept in BigQuery.
package bigquery

import (
	"context"
	"time"

	"cloud.google.com/go/bigquery"
)

// Run statuses.
const (
	RunStatusRunning = "RUNNING"
	RunStatusSuccess = "SUCCESS"
	RunStatusFailed  = "FAILED"
)

// ClaimRunRepository persists claim runs, raw model outputs and enriched items.
type ClaimRunRepository interface {
	// InsertRun records a run with status RUNNING.
	InsertRun(ctx context.Context, row *ClaimRunRow) error

	// MarkRunSucceeded sets status=SUCCESS, finished_ts and the item counts.
	MarkRunSucceeded(ctx context.Context, runID string, items, failures int) error

	// MarkRunFailed sets status=FAILED, finished_ts and error_message. Errors are logged.
	MarkRunFailed(ctx context.Context, runID string, runErr error)

	// InsertModelOutput records one raw model reply.
	InsertModelOutput(ctx context.Context, row *ModelOutputRow) error

	// InsertClaimItems appends enriched items.
	InsertClaimItems(ctx context.Context, rows []*ClaimItemRow) error

	// ListRuns returns the most recent runs first.
	ListRuns(ctx context.Context, filter RunFilter) ([]*ClaimRunRow, error)

	// ListClaimItems returns the items recorded for a run.
	ListClaimItems(ctx context.Context, runID string) ([]*ClaimItemRow, error)
}

// RunFilter narrows ListRuns. Zero values match everything; Limit <= 0 uses the default.
type RunFilter struct {
	Status string
	Limit  int
}

type ClaimRunRow struct {
	RunID        string `bigquery:"run_id"`
	DocumentName string `bigquery:"document_name"`
	MIMEType     string `bigquery:"mime_type"`
	SourceURI    string `bigquery:"source_uri"`
	ModelName    string `bigquery:"model_name"`

	Status     string                 `bigquery:"status"`
	StartedTS  time.Time              `bigquery:"started_ts"`
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"` // NULLABLE

	ItemCount    bigquery.NullInt64  `bigquery:"item_count"`    // NULLABLE
	FailureCount bigquery.NullInt64  `bigquery:"failure_count"` // NULLABLE
	ErrorMessage bigquery.NullString `bigquery:"error_message"` // NULLABLE
}

type ModelOutputRow struct {
	OutputID  string `bigquery:"output_id"`
	RunID     string `bigquery:"run_id"`
	Stage     string `bigquery:"stage"`
	ModelName string `bigquery:"model_name"`

	// RawText is the reply exactly as returned, valid JSON or not.
	RawText   string    `bigquery:"raw_text"`
	CreatedTS time.Time `bigquery:"created_ts"`
}

type ClaimItemRow struct {
	RunID     string `bigquery:"run_id"`
	LineIndex int64  `bigquery:"line_index"`

	ReportTitle     string            `bigquery:"report_title"`
	EmployeeID      string            `bigquery:"employee_id"`
	EmployeeName    string            `bigquery:"employee_name"`
	Entity          string            `bigquery:"entity"`
	ProfitCenter    string            `bigquery:"profit_center"`
	CostCenter      string            `bigquery:"cost_center"`
	TravelStartDate bigquery.NullDate `bigquery:"travel_start_date"`
	TravelEndDate   bigquery.NullDate `bigquery:"travel_end_date"`

	Merchant         string            `bigquery:"merchant"`
	Description      string            `bigquery:"description"`
	OriginalCurrency string            `bigquery:"original_currency"`
	OriginalAmount   float64           `bigquery:"original_amount"`
	EntityCurrency   string            `bigquery:"entity_currency"`
	EntityAmount     float64           `bigquery:"entity_amount"`
	TransactionDate  bigquery.NullDate `bigquery:"transaction_date"`
	// TransactionTime is kept as text; the model returns mixed formats.
	TransactionTime string `bigquery:"transaction_time"`

	ClassificationKey   string `bigquery:"classification_key"`
	ModelKey            string `bigquery:"model_key"`
	CategoryClaim       string `bigquery:"category_claim"`
	SubCategory         string `bigquery:"sub_category"`
	COA                 string `bigquery:"coa"`
	CategoryDescription string `bigquery:"category_description"`

	CreatedTS time.Time `bigquery:"created_ts"`
}
