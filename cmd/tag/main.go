package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/parkozhao/spendscope/internal/config"
	infraBQ "github.com/parkozhao/spendscope/internal/infra/bigquery"
	"github.com/parkozhao/spendscope/internal/jobs"
	"github.com/parkozhao/spendscope/internal/jobs/inmemory"
	"github.com/parkozhao/spendscope/internal/ledger"
	"github.com/parkozhao/spendscope/internal/logger"
	"github.com/parkozhao/spendscope/internal/pipeline"
	"github.com/parkozhao/spendscope/internal/tagging"
)

func main() {
	var (
		configPath = flag.String("config", "spendscope.toml", "Path to the TOML config file")
		applyOnly  = flag.Bool("apply-only", false, "Apply existing result files without calling the model")
	)
	flag.Parse()

	log := logger.New()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	ledgerPath := filepath.Join(cfg.OutputDir, pipeline.ProcessedLedgerName)
	batchesDir := filepath.Join(cfg.OutputDir, pipeline.TaggingBatchesDir)

	l, err := ledger.ReadCSVFile(ledgerPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", ledgerPath).Msg("Failed to load processed ledger")
	}

	batches, err := tagging.LoadManifest(batchesDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", batchesDir).Msg("Failed to load batch manifest")
	}
	if len(batches) == 0 {
		fmt.Println("Nothing to tag.")
		return
	}

	if !*applyOnly {
		if err := runTagging(ctx, log, cfg, batches); err != nil {
			log.Fatal().Err(err).Msg("Tagging run failed")
		}
	}

	applied, err := tagging.ApplyResultFiles(log, l, batchesDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to apply tagging results")
	}
	log.Info().Int("applied", applied).Msg("Applied labels to ledger")

	if err := l.WriteCSVFile(ledgerPath); err != nil {
		log.Fatal().Err(err).Str("path", ledgerPath).Msg("Failed to rewrite ledger")
	}

	if cfg.BigQuery.Enabled {
		store, err := infraBQ.NewStore(ctx, cfg.BigQuery.Project, cfg.BigQuery.Dataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery store")
		}
		defer store.Close()
		if err := store.SaveOverrides(ctx, tagging.CollectOverrides(l)); err != nil {
			log.Fatal().Err(err).Msg("Failed to save overrides")
		}
	}

	fmt.Printf("Tagged %d records across %d batches.\n", applied, len(batches))
}

// runTagging fans the batch prompts out over the in-memory queue and waits
// for every job to reach a terminal status.
func runTagging(ctx context.Context, log zerolog.Logger, cfg config.Config, batches []tagging.Batch) error {
	tagger, err := tagging.NewTagger(ctx, cfg.Tagging.Model)
	if err != nil {
		return fmt.Errorf("runTagging: %w", err)
	}

	store := inmemory.NewStore()
	queue := inmemory.NewQueue(len(batches), cfg.Tagging.Workers, store)

	handler := func(ctx context.Context, job jobs.Job) error {
		batchJob, ok := job.(*jobs.TagBatchJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		prompt, err := os.ReadFile(batchJob.BatchFile)
		if err != nil {
			return err
		}

		results, err := tagger.TagBatch(ctx, string(prompt))
		if err != nil {
			return err
		}

		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(batchJob.ResultFile, data, 0o644); err != nil {
			return err
		}

		log.Info().
			Str("job_id", batchJob.JobID).
			Int("batch", batchJob.BatchIndex).
			Int("results", len(results)).
			Msg("Batch tagged")
		return nil
	}

	if err := queue.Start(ctx, handler); err != nil {
		return fmt.Errorf("runTagging: %w", err)
	}

	for i, b := range batches {
		job := &jobs.TagBatchJob{
			BatchIndex: i,
			BatchFile:  b.File,
			ResultFile: b.ResultFile(),
		}
		if err := queue.PublishTagBatch(ctx, job); err != nil {
			return fmt.Errorf("runTagging: %w", err)
		}
	}

	// Jobs retry internally, so wait for everything to settle rather
	// than counting handler returns.
	for {
		var done int
		for _, status := range []jobs.JobStatus{jobs.JobStatusCompleted, jobs.JobStatusFailed} {
			list, err := store.ListJobs(ctx, jobs.JobFilter{Status: status})
			if err != nil {
				return fmt.Errorf("runTagging: %w", err)
			}
			done += len(list)
		}
		if done >= len(batches) {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := queue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	failed, err := store.ListJobs(ctx, jobs.JobFilter{Status: jobs.JobStatusFailed})
	if err != nil {
		return fmt.Errorf("runTagging: %w", err)
	}
	for _, job := range failed {
		log.Error().Str("job_id", job.JobID).Int("batch", job.BatchIndex).Str("error", job.Error).Msg("Batch failed")
	}
	return nil
}
