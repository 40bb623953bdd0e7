package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/rotisserie/eris"
	"google.golang.org/api/iterator"
)

// InsertClaimItems streams a batch of claim_items rows. Items are never updated,
// so the streaming buffer is not a concern here.
func (r *Repository) InsertClaimItems(ctx context.Context, rows []*ClaimItemRow) error {
	if len(rows) == 0 {
		return nil
	}
	inserter := r.client.Dataset(r.datasetID).Table(claimItemsTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return eris.Wrap(err, "InsertClaimItems: inserting rows")
	}
	return nil
}

// ListClaimItems returns the items of one run ordered by line index.
func (r *Repository) ListClaimItems(ctx context.Context, runID string) ([]*ClaimItemRow, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT *
		FROM %s
		WHERE run_id = @run_id
		ORDER BY line_index
	`, r.tableRef(claimItemsTable)))
	q.Parameters = []bigquery.QueryParameter{{Name: "run_id", Value: runID}}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "ListClaimItems: reading query")
	}

	var rows []*ClaimItemRow
	for {
		var row ClaimItemRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "ListClaimItems: iterating")
		}
		rows = append(rows, &row)
	}
	return rows, nil
}
