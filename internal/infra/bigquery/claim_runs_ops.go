package bigquery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	bq "github.com/kentandrian/vertexai-demos/internal/bigquery"
	"github.com/kentandrian/vertexai-demos/internal/logger"
	"github.com/rotisserie/eris"
	"google.golang.org/api/iterator"
)

// InsertRun inserts a claim_runs row with status=RUNNING. DML is used so the
// later UPDATE is not blocked by the streaming buffer.
func (r *Repository) InsertRun(ctx context.Context, row *ClaimRunRow) error {
	sql := fmt.Sprintf(`
		INSERT INTO %s (
			run_id, document_name, mime_type, source_uri,
			model_name, status, started_ts
		)
		VALUES (
			@run_id, @document_name, @mime_type, @source_uri,
			@model_name, @status, @started_ts
		)
	`, r.tableRef(claimRunsTable))

	return r.runDML(ctx, "InsertRun", sql, []bigquery.QueryParameter{
		{Name: "run_id", Value: row.RunID},
		{Name: "document_name", Value: row.DocumentName},
		{Name: "mime_type", Value: row.MIMEType},
		{Name: "source_uri", Value: row.SourceURI},
		{Name: "model_name", Value: row.ModelName},
		{Name: "status", Value: bq.RunStatusRunning},
		{Name: "started_ts", Value: row.StartedTS},
	})
}

// MarkRunSucceeded sets status=SUCCESS, finished_ts and the counts, and clears error_message.
func (r *Repository) MarkRunSucceeded(ctx context.Context, runID string, items, failures int) error {
	sql := fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    finished_ts = @finished_ts,
		    item_count = @item_count,
		    failure_count = @failure_count,
		    error_message = NULL
		WHERE run_id = @run_id
	`, r.tableRef(claimRunsTable))

	return r.runDML(ctx, "MarkRunSucceeded", sql, []bigquery.QueryParameter{
		{Name: "status", Value: bq.RunStatusSuccess},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "item_count", Value: items},
		{Name: "failure_count", Value: failures},
		{Name: "run_id", Value: runID},
	})
}

// MarkRunFailed sets status=FAILED, finished_ts and error_message. Failures are only logged.
func (r *Repository) MarkRunFailed(ctx context.Context, runID string, runErr error) {
	sql := fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE run_id = @run_id
	`, r.tableRef(claimRunsTable))

	err := r.runDML(ctx, "MarkRunFailed", sql, []bigquery.QueryParameter{
		{Name: "status", Value: bq.RunStatusFailed},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "error_message", Value: truncateError(runErr)},
		{Name: "run_id", Value: runID},
	})
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().
			Err(err).
			Str("run_id", runID).
			Msg("MarkRunFailed: update failed")
	}
}

// ListRuns returns runs newest first.
func (r *Repository) ListRuns(ctx context.Context, filter RunFilter) ([]*ClaimRunRow, error) {
	sql, params := listRunsQuery(r.tableRef(claimRunsTable), filter)
	q := r.client.Query(sql)
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "ListRuns: reading query")
	}

	var runs []*ClaimRunRow
	for {
		var row ClaimRunRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "ListRuns: iterating")
		}
		runs = append(runs, &row)
	}
	return runs, nil
}

func listRunsQuery(table string, filter RunFilter) (string, []bigquery.QueryParameter) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	var b strings.Builder
	fmt.Fprintf(&b, `
		SELECT
			run_id, document_name, mime_type, source_uri, model_name,
			status, started_ts, finished_ts, item_count, failure_count, error_message
		FROM %s`, table)

	params := []bigquery.QueryParameter{{Name: "limit", Value: limit}}
	if filter.Status != "" {
		b.WriteString("\n\t\tWHERE status = @status")
		params = append(params, bigquery.QueryParameter{Name: "status", Value: strings.ToUpper(filter.Status)})
	}
	b.WriteString("\n\t\tORDER BY started_ts DESC\n\t\tLIMIT @limit")
	return b.String(), params
}

func truncateError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > maxErrorLen {
		msg = msg[:maxErrorLen]
	}
	return msg
}
