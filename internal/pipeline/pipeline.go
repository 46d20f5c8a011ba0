// Package pipeline orchestrates a full reconciliation run: parse exports,
// merge, net refunds, classify tracks, map and restore category labels,
// generate tagging batches, persist the result. Each stage is a Step so
// the binaries can compose partial runs and tests can exercise stages in
// isolation.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/parkozhao/spendscope/internal/config"
	"github.com/parkozhao/spendscope/internal/ledger"
	"github.com/parkozhao/spendscope/internal/tagging"
)

// Step is a single stage of the reconciliation pipeline.
type Step interface {
	Execute(ctx context.Context, state *State) error
}

// State is the shared state threaded through pipeline steps.
type State struct {
	Config *config.Config
	Log    zerolog.Logger

	// RunID identifies this pipeline run in logs and persisted rows.
	RunID string

	// Batches are the per-file record batches produced by parsing.
	Batches [][]*ledger.Record

	// Ledger is the merged working set after the merge step.
	Ledger *ledger.Ledger

	// Rejected are records that failed construction validation.
	Rejected []ledger.RejectedRecord

	// Overrides are stored labels applied on top of the fresh ledger.
	Overrides []tagging.Override

	// TagBatches are the prompt batches generated for LLM tagging.
	TagBatches []tagging.Batch
}

// NewState creates the state for one run.
func NewState(cfg *config.Config, log zerolog.Logger) *State {
	runID := uuid.New().String()
	return &State{
		Config: cfg,
		Log:    log.With().Str("run_id", runID).Logger(),
		RunID:  runID,
	}
}

// Execute runs steps in order, stopping at the first failure.
func Execute(ctx context.Context, state *State, steps ...Step) error {
	for _, step := range steps {
		start := time.Now()
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline: %s: %w", stepName(step), err)
		}
		state.Log.Info().
			Str("step", stepName(step)).
			Dur("took", time.Since(start)).
			Msg("step complete")
	}
	return nil
}

func stepName(s Step) string {
	if n, ok := s.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", s)
}

// OverrideStore loads and saves category overrides between runs. A nil
// store disables the feature.
type OverrideStore interface {
	ListOverrides(ctx context.Context) ([]tagging.Override, error)
	SaveOverrides(ctx context.Context, overrides []tagging.Override) error
}

// LedgerSink receives the finished ledger at the end of a run. A nil sink
// means the local CSV is the only output.
type LedgerSink interface {
	InsertLedger(ctx context.Context, runID string, l *ledger.Ledger) error
}

// DefaultSteps assembles the standard full run. overrides and sink may be
// nil when BigQuery is disabled.
func DefaultSteps(overrides OverrideStore, sink LedgerSink) []Step {
	return []Step{
		&ParseStatementsStep{},
		&MergeStep{},
		&NettingStep{},
		&TracksStep{},
		&TaxonomyStep{},
		&ApplyOverridesStep{Store: overrides},
		&GenerateBatchesStep{},
		&PersistStep{Sink: sink, Overrides: overrides},
	}
}
