// Package bigquery implements the claim run history on BigQuery.
package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	bq "github.com/kentandrian/vertexai-demos/internal/bigquery"
	"github.com/rotisserie/eris"
)

// Re-export row types from shared package
type (
	ClaimRunRow        = bq.ClaimRunRow
	ModelOutputRow     = bq.ModelOutputRow
	ClaimItemRow       = bq.ClaimItemRow
	RunFilter          = bq.RunFilter
	ClaimRunRepository = bq.ClaimRunRepository
)

const (
	claimRunsTable    = "claim_runs"
	modelOutputsTable = "model_outputs"
	claimItemsTable   = "claim_items"

	defaultListLimit = 50
	maxErrorLen      = 2000
)

// Repository is the BigQuery implementation of ClaimRunRepository. It holds
// one shared client for all operations.
type Repository struct {
	client    *bigquery.Client
	projectID string
	datasetID string
	location  string
}

// NewRepository creates the BigQuery client for projectID and targets datasetID.
func NewRepository(ctx context.Context, projectID, datasetID, location string) (*Repository, error) {
	if projectID == "" || datasetID == "" {
		return nil, eris.New("NewRepository: project id and dataset are required")
	}
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, eris.Wrap(err, "NewRepository: creating client")
	}
	return &Repository{client: client, projectID: projectID, datasetID: datasetID, location: location}, nil
}

// Close closes the BigQuery client connection.
func (r *Repository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// tableRef returns the quoted fully qualified table name for DML.
func (r *Repository) tableRef(table string) string {
	return qualifiedTable(r.projectID, r.datasetID, table)
}

func qualifiedTable(projectID, datasetID, table string) string {
	return fmt.Sprintf("`%s.%s.%s`", projectID, datasetID, table)
}

// runDML runs a parameterized statement and waits for it to finish.
func (r *Repository) runDML(ctx context.Context, op, sql string, params []bigquery.QueryParameter) error {
	q := r.client.Query(sql)
	q.Parameters = params

	job, err := q.Run(ctx)
	if err != nil {
		return eris.Wrapf(err, "%s: running query", op)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return eris.Wrapf(err, "%s: waiting for job", op)
	}
	if err := status.Err(); err != nil {
		return eris.Wrapf(err, "%s: job error", op)
	}
	return nil
}

var _ ClaimRunRepository = (*Repository)(nil)
