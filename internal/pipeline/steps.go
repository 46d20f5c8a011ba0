package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/parkozhao/spendscope/internal/ledger"
	"github.com/parkozhao/spendscope/internal/netting"
	"github.com/parkozhao/spendscope/internal/parsers"
	"github.com/parkozhao/spendscope/internal/tagging"
	"github.com/parkozhao/spendscope/internal/taxonomy"
	"github.com/parkozhao/spendscope/internal/tracks"
	"github.com/parkozhao/spendscope/internal/users"
)

// ProcessedLedgerName is the CSV file the pipeline writes its result to.
const ProcessedLedgerName = "processed_ledger.csv"

// TaggingBatchesDir is the subdirectory batch prompts are written under.
const TaggingBatchesDir = "tagging_batches"

// ParseStatementsStep parses every platform export in the data directory.
type ParseStatementsStep struct{}

func (s *ParseStatementsStep) Name() string { return "parse_statements" }

func (s *ParseStatementsStep) Execute(ctx context.Context, state *State) error {
	reg := users.NewRegistry(state.Config.Users, state.Config.DefaultUser)
	state.Batches = parsers.ParseDir(state.Log, state.Config.DataDir, reg)
	if len(state.Batches) == 0 {
		return fmt.Errorf("no statement files found in %s", state.Config.DataDir)
	}
	return nil
}

// MergeStep merges parsed batches into one deduplicated ledger.
type MergeStep struct{}

func (s *MergeStep) Name() string { return "merge" }

func (s *MergeStep) Execute(ctx context.Context, state *State) error {
	l, rejected := ledger.Merge(state.Batches...)
	state.Ledger = l
	state.Rejected = rejected

	for _, rej := range rejected {
		state.Log.Warn().
			Str("platform", rej.Record.Platform.String()).
			Str("transaction_id", rej.Record.TransactionID).
			Err(rej.Reason).
			Msg("record rejected")
	}
	state.Log.Info().
		Int("records", l.Len()).
		Int("rejected", len(rejected)).
		Int("batches", len(state.Batches)).
		Msg("ledger merged")
	return nil
}

// NettingStep runs refund netting across all platforms.
type NettingStep struct{}

func (s *NettingStep) Name() string { return "refund_netting" }

func (s *NettingStep) Execute(ctx context.Context, state *State) error {
	netting.Run(state.Log, state.Ledger, netting.DefaultStrategies()...)
	return nil
}

// TracksStep classifies every record as consumption or cashflow.
type TracksStep struct{}

func (s *TracksStep) Name() string { return "track_classification" }

func (s *TracksStep) Execute(ctx context.Context, state *State) error {
	extra := tracks.ExtraTags{
		AlipayCategories: state.Config.Tracks.AlipayCashflowCategories,
		WeChatTxTypes:    state.Config.Tracks.WeChatCashflowTxTypes,
	}
	tracks.Run(state.Log, state.Ledger, tracks.DefaultClassifiers(extra)...)
	return nil
}

// TaxonomyStep maps Alipay native categories directly onto L1 labels.
type TaxonomyStep struct{}

func (s *TaxonomyStep) Name() string { return "taxonomy_mapping" }

func (s *TaxonomyStep) Execute(ctx context.Context, state *State) error {
	mapped := taxonomy.ApplyL1Mapping(state.Ledger)
	state.Log.Info().Int("mapped", mapped).Msg("alipay categories mapped to L1")
	return nil
}

// ApplyOverridesStep restores labels persisted by earlier runs.
type ApplyOverridesStep struct {
	Store OverrideStore
}

func (s *ApplyOverridesStep) Name() string { return "apply_overrides" }

func (s *ApplyOverridesStep) Execute(ctx context.Context, state *State) error {
	if s.Store == nil {
		return nil
	}
	overrides, err := s.Store.ListOverrides(ctx)
	if err != nil {
		return fmt.Errorf("loading overrides: %w", err)
	}
	state.Overrides = overrides
	applied := tagging.ApplyOverrides(state.Ledger, overrides)
	state.Log.Info().
		Int("stored", len(overrides)).
		Int("applied", applied).
		Msg("category overrides applied")
	return nil
}

// GenerateBatchesStep writes tagging prompts for untagged consumption rows.
type GenerateBatchesStep struct{}

func (s *GenerateBatchesStep) Name() string { return "generate_tag_batches" }

func (s *GenerateBatchesStep) Execute(ctx context.Context, state *State) error {
	dir := filepath.Join(state.Config.OutputDir, TaggingBatchesDir)
	batches, err := tagging.GenerateBatches(state.Ledger, dir, state.Config.Tagging.BatchSize)
	if err != nil {
		return err
	}
	state.TagBatches = batches
	state.Log.Info().
		Int("batches", len(batches)).
		Str("dir", dir).
		Msg("tagging batches generated")
	return nil
}

// PersistStep writes the processed ledger CSV, and pushes the ledger and
// the collected overrides to their stores when configured.
type PersistStep struct {
	Sink      LedgerSink
	Overrides OverrideStore
}

func (s *PersistStep) Name() string { return "persist" }

func (s *PersistStep) Execute(ctx context.Context, state *State) error {
	if err := os.MkdirAll(state.Config.OutputDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(state.Config.OutputDir, ProcessedLedgerName)
	if err := state.Ledger.WriteCSVFile(path); err != nil {
		return err
	}
	state.Log.Info().Str("path", path).Int("records", state.Ledger.Len()).Msg("processed ledger written")

	if s.Sink != nil {
		if err := s.Sink.InsertLedger(ctx, state.RunID, state.Ledger); err != nil {
			return fmt.Errorf("inserting ledger: %w", err)
		}
	}
	if s.Overrides != nil {
		collected := tagging.CollectOverrides(state.Ledger)
		if err := s.Overrides.SaveOverrides(ctx, collected); err != nil {
			return fmt.Errorf("saving overrides: %w", err)
		}
		state.Log.Info().Int("overrides", len(collected)).Msg("category overrides saved")
	}
	return nil
}
