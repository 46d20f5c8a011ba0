package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parkozhao/spendscope/internal/config"
	"github.com/parkozhao/spendscope/internal/ledger"
	"github.com/parkozhao/spendscope/internal/logger"
	"github.com/parkozhao/spendscope/internal/notionsync"
	"github.com/parkozhao/spendscope/internal/pipeline"
)

func main() {
	var (
		configPath  = flag.String("config", "spendscope.toml", "Path to the TOML config file")
		ledgerPath  = flag.String("ledger", "", "Processed ledger CSV (defaults to the config output dir)")
		notionToken = flag.String("notion-token", os.Getenv("NOTION_TOKEN"), "Notion API token (or set NOTION_TOKEN)")
		notionDBID  = flag.String("notion-db-id", "", "Notion database ID (overrides config)")
		dryRun      = flag.Bool("dry-run", false, "Preview changes without syncing")
	)
	flag.Parse()

	log := logger.New()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if *notionDBID == "" {
		*notionDBID = cfg.Notion.DatabaseID
	}
	if *notionToken == "" {
		log.Fatal().Msg("Error: --notion-token is required")
	}
	if *notionDBID == "" {
		log.Fatal().Msg("Error: --notion-db-id is required")
	}
	if *ledgerPath == "" {
		*ledgerPath = filepath.Join(cfg.OutputDir, pipeline.ProcessedLedgerName)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	l, err := ledger.ReadCSVFile(*ledgerPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *ledgerPath).Msg("Failed to load processed ledger")
	}

	log.Info().
		Int("records", l.Len()).
		Bool("dry_run", *dryRun).
		Msg("Starting Notion sync")

	client := notionsync.NewNotionClient(*notionToken)

	if err := notionsync.SyncConsumption(ctx, log, client, *notionDBID, l, *dryRun); err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	fmt.Println("Sync completed successfully.")
}
