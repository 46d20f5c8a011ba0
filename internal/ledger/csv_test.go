package ledger

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestCSVRoundTrip(t *testing.T) {
	charge := &Record{
		Platform:         PlatformAlipay,
		UserID:           "primary",
		TransactionID:    "2025031422001400001",
		Timestamp:        time.Date(2025, 3, 14, 12, 30, 0, 0, time.UTC),
		Direction:        DirectionExpense,
		Amount:           decimal.RequireFromString("50.00"),
		Counterparty:     "肯德基",
		Description:      "宅急送订单",
		Status:           "交易成功",
		PlatformCategory: "餐饮美食",
		Track:            TrackConsumption,
		CategoryL1:       "餐饮美食",
		CategoryL2:       "快餐简餐",
	}
	charge.ApplyRefund(decimal.RequireFromString("20.00"))

	refund := &Record{
		Platform:        PlatformAlipay,
		UserID:          "primary",
		TransactionID:   "2025031422001400001_R1",
		OriginalTxID:    "2025031422001400001",
		Timestamp:       time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC),
		Direction:       DirectionIncome,
		Amount:          decimal.RequireFromString("20.00"),
		Status:          StatusRefundSucceeded,
		EffectiveAmount: decimal.RequireFromString("20.00"),
	}
	refund.MarkRefundRow()

	l := FromRecords([]*Record{charge, refund})

	var buf bytes.Buffer
	if err := l.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte{0xEF, 0xBB, 0xBF}) {
		t.Error("output missing UTF-8 BOM")
	}
	if !strings.Contains(buf.String(), "肯德基") {
		t.Error("output missing counterparty text")
	}

	back, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if back.Len() != 2 {
		t.Fatalf("got %d records, want 2", back.Len())
	}

	got := back.Records()[0]
	if got.Key() != charge.Key() {
		t.Errorf("key = %v, want %v", got.Key(), charge.Key())
	}
	if !got.IsRefunded || got.RefundAmount.StringFixed(2) != "20.00" {
		t.Errorf("refund state lost: refunded=%v amount=%s", got.IsRefunded, got.RefundAmount)
	}
	if got.EffectiveAmount.StringFixed(2) != "30.00" {
		t.Errorf("effective = %s, want 30.00", got.EffectiveAmount)
	}
	if got.Track != TrackConsumption || got.CategoryL2 != "快餐简餐" {
		t.Errorf("labels lost: track=%q l2=%q", got.Track, got.CategoryL2)
	}
	if !got.Timestamp.Equal(charge.Timestamp) {
		t.Errorf("timestamp = %v, want %v", got.Timestamp, charge.Timestamp)
	}

	gotRefund := back.Records()[1]
	if !gotRefund.IsIgnored || gotRefund.Track != TrackRefundProcessed {
		t.Errorf("refund row state lost: ignored=%v track=%q", gotRefund.IsIgnored, gotRefund.Track)
	}
	if gotRefund.OriginalTxID != "2025031422001400001" {
		t.Errorf("original tx id = %q", gotRefund.OriginalTxID)
	}
}

func TestCSVFileRoundTrip(t *testing.T) {
	l := FromRecords([]*Record{{
		Platform:        PlatformMeituan,
		UserID:          "primary",
		TransactionID:   "MT1",
		Timestamp:       time.Now().UTC().Truncate(time.Second),
		Direction:       DirectionExpense,
		Amount:          decimal.RequireFromString("12.50"),
		EffectiveAmount: decimal.RequireFromString("12.50"),
		Track:           TrackConsumption,
	}})

	path := filepath.Join(t.TempDir(), "processed.csv")
	if err := l.WriteCSVFile(path); err != nil {
		t.Fatalf("WriteCSVFile: %v", err)
	}

	back, err := ReadCSVFile(path)
	if err != nil {
		t.Fatalf("ReadCSVFile: %v", err)
	}
	if back.Len() != 1 {
		t.Fatalf("got %d records, want 1", back.Len())
	}
}

func TestReadCSVRejectsUnknownHeader(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader("foo,bar\n")); err == nil {
		t.Fatal("expected error for unknown header")
	}
}

func TestReadCSVEmpty(t *testing.T) {
	l, err := ReadCSV(strings.NewReader(""))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if l.Len() != 0 {
		t.Fatalf("got %d records, want 0", l.Len())
	}
}
