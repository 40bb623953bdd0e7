package bigquery

import (
	"context"
	"errors"
	"net/http"

	"cloud.google.com/go/bigquery"
	"github.com/kentandrian/vertexai-demos/internal/logger"
	"github.com/rotisserie/eris"
	"google.golang.org/api/googleapi"
)

type tableDef struct {
	name           string
	row            interface{}
	partitionField string
}

var tableDefs = []tableDef{
	{name: claimRunsTable, row: ClaimRunRow{}, partitionField: "started_ts"},
	{name: modelOutputsTable, row: ModelOutputRow{}, partitionField: "created_ts"},
	{name: claimItemsTable, row: ClaimItemRow{}, partitionField: "created_ts"},
}

// Schemas returns the inferred schema of every table, keyed by table name.
func Schemas() (map[string]bigquery.Schema, error) {
	out := make(map[string]bigquery.Schema, len(tableDefs))
	for _, def := range tableDefs {
		schema, err := bigquery.InferSchema(def.row)
		if err != nil {
			return nil, eris.Wrapf(err, "Schemas: infer %s", def.name)
		}
		out[def.name] = schema
	}
	return out, nil
}

// EnsureTables creates the dataset and the run history tables when they do not exist.
// Existing tables are left untouched.
func (r *Repository) EnsureTables(ctx context.Context) error {
	log := logger.FromContext(ctx)

	ds := r.client.Dataset(r.datasetID)
	if _, err := ds.Metadata(ctx); err != nil {
		if !isStatus(err, http.StatusNotFound) {
			return eris.Wrapf(err, "EnsureTables: read dataset %s", r.datasetID)
		}
		if err := ds.Create(ctx, &bigquery.DatasetMetadata{Location: r.location}); err != nil && !isStatus(err, http.StatusConflict) {
			return eris.Wrapf(err, "EnsureTables: create dataset %s", r.datasetID)
		}
		log.Info().Str("dataset", r.datasetID).Msg("Dataset created")
	}

	schemas, err := Schemas()
	if err != nil {
		return err
	}
	for _, def := range tableDefs {
		meta := &bigquery.TableMetadata{
			Schema: schemas[def.name],
			TimePartitioning: &bigquery.TimePartitioning{
				Type:  bigquery.DayPartitioningType,
				Field: def.partitionField,
			},
		}
		err := ds.Table(def.name).Create(ctx, meta)
		switch {
		case err == nil:
			log.Info().Str("table", def.name).Msg("Table created")
		case isStatus(err, http.StatusConflict):
			log.Debug().Str("table", def.name).Msg("Table already exists")
		default:
			return eris.Wrapf(err, "EnsureTables: create table %s", def.name)
		}
	}
	return nil
}

func isStatus(err error, code int) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == code
}
