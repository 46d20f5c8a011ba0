// Package bigquery persists processed ledgers and category overrides.
// Every pipeline run inserts its full ledger under a run ID; the override
// table is what carries human and model labels across runs.
package bigquery

import (
	"time"

	"cloud.google.com/go/civil"

	"github.com/parkozhao/spendscope/internal/ledger"
)

const (
	ledgerTable    = "processed_ledger"
	overridesTable = "category_overrides"
)

// LedgerRow is the BigQuery shape of one processed record. Amounts are
// stored as FLOAT64; the decimal precision only matters during netting,
// which always happens before rows get here.
type LedgerRow struct {
	RunID           string    `bigquery:"run_id"`            // REQUIRED
	Platform        string    `bigquery:"platform"`          // REQUIRED
	UserID          string    `bigquery:"user_id"`           // REQUIRED
	TransactionID   string    `bigquery:"transaction_id"`    // REQUIRED
	OriginalTxID    string    `bigquery:"original_tx_id"`    // NULLABLE
	MerchantOrderID string    `bigquery:"merchant_order_id"` // NULLABLE
	TxTimestamp     time.Time `bigquery:"tx_timestamp"`      // REQUIRED
	TxDate          civil.Date `bigquery:"tx_date"`          // REQUIRED, partition column
	Direction       string    `bigquery:"direction"`         // REQUIRED

	Amount          float64 `bigquery:"amount"`
	RefundAmount    float64 `bigquery:"refund_amount"`
	EffectiveAmount float64 `bigquery:"effective_amount"`

	Counterparty     string `bigquery:"counterparty"`      // NULLABLE
	Description      string `bigquery:"description"`       // NULLABLE
	PaymentMethod    string `bigquery:"payment_method"`    // NULLABLE
	Status           string `bigquery:"status"`            // NULLABLE
	PlatformCategory string `bigquery:"platform_category"` // NULLABLE
	PlatformTxType   string `bigquery:"platform_tx_type"`  // NULLABLE

	Track      string `bigquery:"track"`
	IsRefunded bool   `bigquery:"is_refunded"`
	IsIgnored  bool   `bigquery:"is_ignored"`
	CategoryL1 string `bigquery:"category_l1"` // NULLABLE
	CategoryL2 string `bigquery:"category_l2"` // NULLABLE

	InsertedTS time.Time `bigquery:"inserted_ts"` // REQUIRED
}

// OverrideRow is one persisted category label.
type OverrideRow struct {
	Platform      string    `bigquery:"platform"`       // REQUIRED
	TransactionID string    `bigquery:"transaction_id"` // REQUIRED
	CategoryL1    string    `bigquery:"category_l1"`    // REQUIRED
	CategoryL2    string    `bigquery:"category_l2"`    // NULLABLE
	UpdatedTS     time.Time `bigquery:"updated_ts"`     // REQUIRED
}

// rowFromRecord converts a ledger record for insertion.
func rowFromRecord(runID string, r *ledger.Record, now time.Time) *LedgerRow {
	return &LedgerRow{
		RunID:            runID,
		Platform:         r.Platform.String(),
		UserID:           r.UserID,
		TransactionID:    r.TransactionID,
		OriginalTxID:     r.OriginalTxID,
		MerchantOrderID:  r.MerchantOrderID,
		TxTimestamp:      r.Timestamp,
		TxDate:           civil.DateOf(r.Timestamp),
		Direction:        string(r.Direction),
		Amount:           r.Amount.InexactFloat64(),
		RefundAmount:     r.RefundAmount.InexactFloat64(),
		EffectiveAmount:  r.EffectiveAmount.InexactFloat64(),
		Counterparty:     r.Counterparty,
		Description:      r.Description,
		PaymentMethod:    r.PaymentMethod,
		Status:           r.Status,
		PlatformCategory: r.PlatformCategory,
		PlatformTxType:   r.PlatformTxType,
		Track:            string(r.Track),
		IsRefunded:       r.IsRefunded,
		IsIgnored:        r.IsIgnored,
		CategoryL1:       r.CategoryL1,
		CategoryL2:       r.CategoryL2,
		InsertedTS:       now,
	}
}
