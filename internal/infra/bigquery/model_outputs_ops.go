package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
)

// InsertModelOutput inserts a single model_outputs row using DML.
func (r *Repository) InsertModelOutput(ctx context.Context, row *ModelOutputRow) error {
	sql := fmt.Sprintf(`
		INSERT INTO %s (
			output_id, run_id, stage, model_name, raw_text, created_ts
		)
		VALUES (
			@output_id, @run_id, @stage, @model_name, @raw_text, @created_ts
		)
	`, r.tableRef(modelOutputsTable))

	return r.runDML(ctx, "InsertModelOutput", sql, []bigquery.QueryParameter{
		{Name: "output_id", Value: row.OutputID},
		{Name: "run_id", Value: row.RunID},
		{Name: "stage", Value: row.Stage},
		{Name: "model_name", Value: row.ModelName},
		{Name: "raw_text", Value: row.RawText},
		{Name: "created_ts", Value: row.CreatedTS},
	})
}
