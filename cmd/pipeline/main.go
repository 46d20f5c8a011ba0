package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/parkozhao/spendscope/internal/config"
	infraBQ "github.com/parkozhao/spendscope/internal/infra/bigquery"
	"github.com/parkozhao/spendscope/internal/logger"
	"github.com/parkozhao/spendscope/internal/pipeline"
	"github.com/parkozhao/spendscope/internal/statements"
)

func main() {
	var (
		configPath = flag.String("config", "spendscope.toml", "Path to the TOML config file")
		dataDir    = flag.String("data", "", "Statement directory (overrides config)")
		skipGCS    = flag.Bool("skip-gcs", false, "Skip syncing statements from GCS")
	)
	flag.Parse()

	log := logger.New()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	if cfg.GCS.Bucket != "" && !*skipGCS {
		n, err := statements.SyncBucket(ctx, log, cfg.GCS.Bucket, cfg.DataDir)
		if err != nil {
			log.Fatal().Err(err).Str("bucket", cfg.GCS.Bucket).Msg("Failed to sync statements from GCS")
		}
		log.Info().Int("fetched", n).Str("bucket", cfg.GCS.Bucket).Msg("Statement sync complete")
	}

	var (
		overrides pipeline.OverrideStore
		sink      pipeline.LedgerSink
	)
	if cfg.BigQuery.Enabled {
		store, err := infraBQ.NewStore(ctx, cfg.BigQuery.Project, cfg.BigQuery.Dataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery store")
		}
		defer store.Close()
		overrides = store
		sink = store
	}

	state := pipeline.NewState(&cfg, log)
	if err := pipeline.Execute(ctx, state, pipeline.DefaultSteps(overrides, sink)...); err != nil {
		log.Fatal().Err(err).Msg("Pipeline run failed")
	}

	fmt.Printf("Run %s complete: %d records, %d rejected, %d batches pending tagging.\n",
		state.RunID, state.Ledger.Len(), len(state.Rejected), len(state.TagBatches))

	if len(state.TagBatches) > 0 {
		fmt.Printf("Tag them with: tag -config %s\n", *configPath)
	}
}
