package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/parkozhao/spendscope/internal/ledger"
	"github.com/parkozhao/spendscope/internal/pipeline"
	"github.com/parkozhao/spendscope/internal/tagging"
)

var (
	_ pipeline.OverrideStore = (*Store)(nil)
	_ pipeline.LedgerSink    = (*Store)(nil)
)

// Store is the BigQuery-backed persistence layer. It implements the
// pipeline's OverrideStore and LedgerSink.
type Store struct {
	client  *bigquery.Client
	project string
	dataset string
}

// NewStore creates a store against the configured project and dataset.
// Credentials come from the environment.
func NewStore(ctx context.Context, project, dataset string) (*Store, error) {
	client, err := bigquery.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("NewStore: bigquery client: %w", err)
	}
	return NewStoreWithClient(client, project, dataset), nil
}

// NewStoreWithClient wraps an existing client, mainly for tests.
func NewStoreWithClient(client *bigquery.Client, project, dataset string) *Store {
	return &Store{client: client, project: project, dataset: dataset}
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

// InsertLedger streams the full processed ledger under this run's ID.
func (s *Store) InsertLedger(ctx context.Context, runID string, l *ledger.Ledger) error {
	records := l.Records()
	if len(records) == 0 {
		return nil
	}

	now := time.Now().UTC()
	rows := make([]*LedgerRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, rowFromRecord(runID, r, now))
	}

	table := s.client.DatasetInProject(s.project, s.dataset).Table(ledgerTable)
	if err := table.Inserter().Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertLedger: inserting rows: %w", err)
	}
	return nil
}

// ListLedgerRuns returns the run IDs present in the ledger table, newest
// first.
func (s *Store) ListLedgerRuns(ctx context.Context, limit int) ([]string, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT run_id
		FROM %s.%s
		GROUP BY run_id
		ORDER BY MAX(inserted_ts) DESC
		LIMIT @limit
	`, s.dataset, ledgerTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "limit", Value: int64(limit)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListLedgerRuns: query read: %w", err)
	}

	var runs []string
	for {
		var row struct {
			RunID string `bigquery:"run_id"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListLedgerRuns: iter next: %w", err)
		}
		runs = append(runs, row.RunID)
	}
	return runs, nil
}

// ListLedgerRows returns all rows of one run, for report backends that
// read from BigQuery instead of the local CSV.
func (s *Store) ListLedgerRows(ctx context.Context, runID string) ([]*LedgerRow, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT *
		FROM %s.%s
		WHERE run_id = @run_id
		ORDER BY tx_timestamp
	`, s.dataset, ledgerTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: runID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListLedgerRows: query read: %w", err)
	}

	var rows []*LedgerRow
	for {
		var r LedgerRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListLedgerRows: iter next: %w", err)
		}
		rows = append(rows, &r)
	}
	return rows, nil
}

// ListOverrides returns the latest label for every overridden transaction.
func (s *Store) ListOverrides(ctx context.Context) ([]tagging.Override, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT platform, transaction_id, category_l1, category_l2
		FROM %s.%s
		QUALIFY ROW_NUMBER() OVER (
			PARTITION BY platform, transaction_id
			ORDER BY updated_ts DESC
		) = 1
	`, s.dataset, overridesTable))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListOverrides: query read: %w", err)
	}

	var overrides []tagging.Override
	for {
		var r OverrideRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListOverrides: iter next: %w", err)
		}
		overrides = append(overrides, tagging.Override{
			Platform:      r.Platform,
			TransactionID: r.TransactionID,
			L1:            r.CategoryL1,
			L2:            r.CategoryL2,
		})
	}
	return overrides, nil
}

// SaveOverrides appends the run's collected labels. Reads always take the
// newest row per transaction, so stale entries need no cleanup.
func (s *Store) SaveOverrides(ctx context.Context, overrides []tagging.Override) error {
	if len(overrides) == 0 {
		return nil
	}

	now := time.Now().UTC()
	rows := make([]*OverrideRow, 0, len(overrides))
	for _, o := range overrides {
		rows = append(rows, &OverrideRow{
			Platform:      o.Platform,
			TransactionID: o.TransactionID,
			CategoryL1:    o.L1,
			CategoryL2:    o.L2,
			UpdatedTS:     now,
		})
	}

	table := s.client.DatasetInProject(s.project, s.dataset).Table(overridesTable)
	if err := table.Inserter().Put(ctx, rows); err != nil {
		return fmt.Errorf("SaveOverrides: inserting rows: %w", err)
	}
	return nil
}
