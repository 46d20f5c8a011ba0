package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
	"github.com/rs/zerolog"

	"github.com/parkozhao/spendscope/internal/ledger"
)

// SyncConsumption pushes every consumption-track record into the Notion
// database, creating pages for new transactions and updating existing
// ones. dryRun logs what would change without touching Notion.
func SyncConsumption(ctx context.Context, log zerolog.Logger, client NotionService, databaseID string, l *ledger.Ledger, dryRun bool) error {
	existing, err := queryAllPages(ctx, client, databaseID)
	if err != nil {
		return err
	}

	pageByKey := make(map[string]string, len(existing))
	for _, page := range existing {
		if key := extractTransactionKey(page); key != "" {
			pageByKey[key] = string(page.ID)
		}
	}

	created, updated := 0, 0
	for _, r := range l.Consumption() {
		key := r.Key().String()
		props := RecordToNotionProperties(r)

		if pageID, ok := pageByKey[key]; ok {
			if dryRun {
				log.Info().Str("key", key).Msg("dry run: would update page")
				continue
			}
			if _, err := client.UpdatePage(ctx, pageID, props); err != nil {
				return fmt.Errorf("SyncConsumption: updating %s: %w", key, err)
			}
			updated++
			continue
		}

		if dryRun {
			log.Info().Str("key", key).Msg("dry run: would create page")
			continue
		}
		if _, err := client.CreatePage(ctx, databaseID, props); err != nil {
			return fmt.Errorf("SyncConsumption: creating %s: %w", key, err)
		}
		created++
	}

	log.Info().
		Int("created", created).
		Int("updated", updated).
		Int("existing_pages", len(existing)).
		Msg("notion sync complete")
	return nil
}

// queryAllPages pages through the whole database 100 pages at a time.
func queryAllPages(ctx context.Context, client NotionService, databaseID string) ([]notionapi.Page, error) {
	var all []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			PageSize: 100,
		}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := client.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllPages: %w", err)
		}
		all = append(all, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}
	return all, nil
}
