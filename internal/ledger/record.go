// Package ledger defines the canonical transaction record produced by the
// platform statement parsers and mutated by the reconciliation pipeline.
// Every platform export is normalized into this one shape before netting
// and classification run.
package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Platform identifies the payment platform a record originated from.
type Platform string

const (
	PlatformAlipay  Platform = "alipay"
	PlatformWeChat  Platform = "wechat"
	PlatformJD      Platform = "jd"
	PlatformMeituan Platform = "meituan"
)

// Platforms lists every supported platform in pipeline processing order.
var Platforms = []Platform{PlatformAlipay, PlatformWeChat, PlatformJD, PlatformMeituan}

// IsValid checks if the platform is one of the supported platforms.
func (p Platform) IsValid() bool {
	switch p {
	case PlatformAlipay, PlatformWeChat, PlatformJD, PlatformMeituan:
		return true
	}
	return false
}

// String returns the string representation of the platform.
func (p Platform) String() string {
	return string(p)
}

// Direction is the platform-reported cashflow direction of a record.
type Direction string

const (
	// DirectionExpense is money out (支出).
	DirectionExpense Direction = "expense"
	// DirectionIncome is money in (收入).
	DirectionIncome Direction = "income"
	// DirectionNeutral covers transactions WeChat reports as "/" (中性).
	DirectionNeutral Direction = "neutral"
	// DirectionNonAccounted covers rows the platform excludes from its own
	// totals (不计收支): self-transfers, pre-authorizations, repayments.
	DirectionNonAccounted Direction = "non_accounted"
)

// IsValid checks if the direction is one of the known values.
func (d Direction) IsValid() bool {
	switch d {
	case DirectionExpense, DirectionIncome, DirectionNeutral, DirectionNonAccounted:
		return true
	}
	return false
}

// Track is the final disposition of a record after reconciliation.
type Track string

const (
	// TrackUnset means classification has not run yet.
	TrackUnset Track = ""
	// TrackConsumption marks genuine spend counted toward totals.
	TrackConsumption Track = "consumption"
	// TrackCashflow marks non-spend money movement (transfers, red packets,
	// investment moves, loan repayments, income).
	TrackCashflow Track = "cashflow"
	// TrackRefundProcessed marks refund rows already absorbed into the
	// charge they reverse.
	TrackRefundProcessed Track = "refund_processed"
)

// Platform-native tags shared across parsers, netting and classification.
// These must byte-match the real export files, so they stay in their
// original Chinese forms.
const (
	StatusRefundSucceeded = "退款成功"
	StatusTransferred     = "已转账"

	TxTypePayment   = "支付"
	TxTypeRefund    = "退款"
	TxTypeRepayment = "还款"
)

// Record is one canonical transaction row. Amount is immutable after
// ingestion; all reconciliation state lives in IsRefunded, RefundAmount,
// EffectiveAmount, IsIgnored and Track.
type Record struct {
	Platform        Platform
	UserID          string
	TransactionID   string
	OriginalTxID    string // explicit link to an original charge, if the platform encodes one
	MerchantOrderID string
	Timestamp       time.Time
	Direction       Direction
	Amount          decimal.Decimal
	Counterparty    string
	Description     string
	PaymentMethod   string
	Status          string
	PlatformCategory string
	PlatformTxType  string
	Note            string

	// Reconciliation state, owned by the pipeline.
	IsRefunded      bool
	RefundAmount    decimal.Decimal
	EffectiveAmount decimal.Decimal
	IsIgnored       bool
	Track           Track

	// Taxonomy labels filled by the categorization stage.
	CategoryL1 string
	CategoryL2 string
}

// Validate performs structural validation on an ingested record.
func (r *Record) Validate() error {
	if !r.Platform.IsValid() {
		return fmt.Errorf("unknown source platform %q", r.Platform)
	}
	if strings.TrimSpace(r.TransactionID) == "" {
		return fmt.Errorf("transaction ID cannot be empty")
	}
	if r.Amount.IsNegative() {
		return fmt.Errorf("amount cannot be negative: %s", r.Amount)
	}
	if !r.Direction.IsValid() {
		return fmt.Errorf("unknown direction %q", r.Direction)
	}
	return nil
}

// Key returns the cross-run join key for this record. Transaction IDs are
// only unique within a platform, so the key always carries both.
func (r *Record) Key() RecordKey {
	return RecordKey{Platform: r.Platform, TransactionID: r.TransactionID}
}

// RemainingRefundable is the portion of the original amount not yet
// consumed by matched refunds.
func (r *Record) RemainingRefundable() decimal.Decimal {
	return r.Amount.Sub(r.RefundAmount)
}

// ApplyRefund accumulates a matched refund onto this charge. RefundAmount
// only ever grows, and EffectiveAmount is recomputed as
// max(0, amount - refund_amount).
func (r *Record) ApplyRefund(amount decimal.Decimal) {
	r.IsRefunded = true
	r.RefundAmount = r.RefundAmount.Add(amount)
	r.EffectiveAmount = decimal.Max(decimal.Zero, r.Amount.Sub(r.RefundAmount))
}

// MarkRefundRow finalizes a refund row itself: it never counts as spend and
// its track is terminal.
func (r *Record) MarkRefundRow() {
	r.IsIgnored = true
	r.Track = TrackRefundProcessed
}

// MarkUnmatchedRefund records a refund that could not be tied to any
// specific charge. The row keeps a negative effective amount on purpose:
// the refund still nets out of aggregate consumption totals even though no
// single charge absorbed it.
func (r *Record) MarkUnmatchedRefund() {
	r.MarkRefundRow()
	r.EffectiveAmount = r.Amount.Neg()
}

// RecordKey identifies a record across pipeline runs.
type RecordKey struct {
	Platform      Platform
	TransactionID string
}

// String returns "platform:transaction_id".
func (k RecordKey) String() string {
	return string(k.Platform) + ":" + k.TransactionID
}
