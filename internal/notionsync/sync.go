// Package notionsync publishes recorded claim items to a Notion database
// so finance reviewers can check classifications outside BigQuery.
package notionsync

import (
	"context"

	"github.com/jomei/notionapi"
	bq "github.com/kentandrian/vertexai-demos/internal/bigquery"
	"github.com/kentandrian/vertexai-demos/internal/logger"
	"github.com/rotisserie/eris"
)

// PageSize is the page size used when listing the review database.
const PageSize = 100

// ItemSource lists the items of a recorded run.
type ItemSource interface {
	ListClaimItems(ctx context.Context, runID string) ([]*bq.ClaimItemRow, error)
}

// SyncStats counts what a sync did.
type SyncStats struct {
	Created int
	Updated int
	Failed  int
}

// SyncRunItems creates or updates one Notion page per item of the run. Pages are
// matched on the Item Key property, so re-running the sync does not duplicate rows.
func SyncRunItems(ctx context.Context, src ItemSource, notion NotionService, databaseID, runID string, dryRun bool) (*SyncStats, error) {
	log := logger.FromContext(ctx)
	if databaseID == "" {
		return nil, eris.New("SyncRunItems: notion database id is not set")
	}

	items, err := src.ListClaimItems(ctx, runID)
	if err != nil {
		return nil, eris.Wrap(err, "SyncRunItems: list items")
	}
	if len(items) == 0 {
		return nil, eris.Errorf("SyncRunItems: run %s has no recorded items", runID)
	}

	pages, err := queryAllPages(ctx, notion, databaseID)
	if err != nil {
		return nil, err
	}
	existing := make(map[string]string, len(pages))
	for _, p := range pages {
		if key := itemKeyOf(p); key != "" {
			existing[key] = string(p.ID)
		}
	}

	log.Info().
		Str("run_id", runID).
		Int("items", len(items)).
		Int("existing_pages", len(existing)).
		Bool("dry_run", dryRun).
		Msg("Syncing claim items to Notion")

	stats := &SyncStats{}
	for _, item := range items {
		key := ItemKey(item.RunID, item.LineIndex)
		props := ClaimItemToNotionProperties(item)
		pageID, found := existing[key]

		if dryRun {
			if found {
				stats.Updated++
			} else {
				stats.Created++
			}
			log.Info().Str("item_key", key).Bool("exists", found).Msg("[DRY RUN] Would sync claim item")
			continue
		}

		if found {
			if _, err := notion.UpdatePage(ctx, pageID, props); err != nil {
				log.Warn().Err(err).Str("item_key", key).Str("page_id", pageID).Msg("Failed to update Notion page")
				stats.Failed++
				continue
			}
			stats.Updated++
			continue
		}

		if _, err := notion.CreatePage(ctx, databaseID, props); err != nil {
			log.Warn().Err(err).Str("item_key", key).Msg("Failed to create Notion page")
			stats.Failed++
			continue
		}
		stats.Created++
	}

	log.Info().
		Int("created", stats.Created).
		Int("updated", stats.Updated).
		Int("failed", stats.Failed).
		Msg("Notion sync finished")
	return stats, nil
}

func queryAllPages(ctx context.Context, notion NotionService, databaseID string) ([]notionapi.Page, error) {
	var all []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{PageSize: PageSize}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notion.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, eris.Wrap(err, "queryAllPages")
		}
		all = append(all, resp.Results...)

		if !resp.HasMore {
			return all, nil
		}
		cursor = resp.NextCursor
	}
}
