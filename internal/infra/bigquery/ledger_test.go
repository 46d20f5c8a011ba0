package bigquery

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/parkozhao/spendscope/internal/ledger"
)

func TestRowFromRecord(t *testing.T) {
	r := &ledger.Record{
		Platform:         ledger.PlatformAlipay,
		UserID:           "primary",
		TransactionID:    "2025031422001400001",
		Timestamp:        time.Date(2025, 3, 14, 12, 30, 0, 0, time.UTC),
		Direction:        ledger.DirectionExpense,
		Amount:           decimal.RequireFromString("50.00"),
		Counterparty:     "肯德基",
		PlatformCategory: "餐饮美食",
		Track:            ledger.TrackConsumption,
		CategoryL1:       "餐饮美食",
		CategoryL2:       "快餐简餐",
	}
	r.ApplyRefund(decimal.RequireFromString("20.00"))

	now := time.Now().UTC()
	row := rowFromRecord("run-1", r, now)

	if row.RunID != "run-1" || row.Platform != "alipay" {
		t.Errorf("identity fields: run=%q platform=%q", row.RunID, row.Platform)
	}
	if row.Amount != 50.0 || row.RefundAmount != 20.0 || row.EffectiveAmount != 30.0 {
		t.Errorf("amounts = %v/%v/%v", row.Amount, row.RefundAmount, row.EffectiveAmount)
	}
	if !row.IsRefunded {
		t.Error("refund flag lost")
	}
	if row.TxDate != civil.DateOf(r.Timestamp) {
		t.Errorf("tx date = %v", row.TxDate)
	}
	if row.Track != "consumption" || row.CategoryL2 != "快餐简餐" {
		t.Errorf("labels: track=%q l2=%q", row.Track, row.CategoryL2)
	}
	if !row.InsertedTS.Equal(now) {
		t.Errorf("inserted ts = %v", row.InsertedTS)
	}
}
