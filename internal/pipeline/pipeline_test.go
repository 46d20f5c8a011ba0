package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/parkozhao/spendscope/internal/config"
	"github.com/parkozhao/spendscope/internal/ledger"
	"github.com/parkozhao/spendscope/internal/tagging"
)

const alipayExport = `支付宝交易明细（个人）
姓名：测试用户
支付宝账户：test@example.com
---------------------------------交易明细列表------------------------------------
交易时间,交易分类,交易对方,对方账号,商品说明,收/支,金额,收/付款方式,交易状态,交易订单号,商家订单号,备注,
2025-03-14 12:30:00,餐饮美食,肯德基,kfc@ali,宅急送订单,支出,50.00,余额宝,交易成功,2025031422001400001,M001,,
2025-03-15 09:00:00,餐饮美食,肯德基,kfc@ali,宅急送退款,收入,20.00,余额宝,退款成功,2025031422001400001_R1,M001,,
2025-03-16 10:00:00,投资理财,余额宝,,余额宝-转入,不计收支,100.00,余额宝,交易成功,2025031622001400002,M002,,
`

type memOverrideStore struct {
	stored []tagging.Override
	saved  []tagging.Override
	err    error
}

func (m *memOverrideStore) ListOverrides(ctx context.Context) ([]tagging.Override, error) {
	return m.stored, m.err
}

func (m *memOverrideStore) SaveOverrides(ctx context.Context, overrides []tagging.Override) error {
	m.saved = overrides
	return nil
}

type memLedgerSink struct {
	runID   string
	records int
}

func (m *memLedgerSink) InsertLedger(ctx context.Context, runID string, l *ledger.Ledger) error {
	m.runID = runID
	m.records = l.Len()
	return nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.OutputDir = t.TempDir()

	path := filepath.Join(cfg.DataDir, "支付宝交易明细.csv")
	if err := os.WriteFile(path, []byte(alipayExport), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return &cfg
}

func TestFullRun(t *testing.T) {
	cfg := testConfig(t)
	state := NewState(cfg, zerolog.New(io.Discard))

	overrides := &memOverrideStore{stored: []tagging.Override{
		{Platform: "alipay", TransactionID: "2025031422001400001", L1: "餐饮美食", L2: "快餐简餐"},
	}}
	sink := &memLedgerSink{}

	if err := Execute(context.Background(), state, DefaultSteps(overrides, sink)...); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if state.Ledger.Len() != 3 {
		t.Fatalf("ledger has %d records, want 3", state.Ledger.Len())
	}

	// Refund netting ran: the charge absorbed its refund.
	var charge, refund *ledger.Record
	for _, r := range state.Ledger.Records() {
		switch r.TransactionID {
		case "2025031422001400001":
			charge = r
		case "2025031422001400001_R1":
			refund = r
		}
	}
	if charge == nil || refund == nil {
		t.Fatal("expected charge and refund records")
	}
	if got := charge.EffectiveAmount.StringFixed(2); got != "30.00" {
		t.Errorf("charge effective = %s, want 30.00", got)
	}
	if !refund.IsIgnored || refund.Track != ledger.TrackRefundProcessed {
		t.Errorf("refund row: ignored=%v track=%q", refund.IsIgnored, refund.Track)
	}

	// Track classification and the stored override both landed.
	if charge.Track != ledger.TrackConsumption {
		t.Errorf("charge track = %q", charge.Track)
	}
	if charge.CategoryL2 != "快餐简餐" {
		t.Errorf("charge l2 = %q, want override applied", charge.CategoryL2)
	}

	// The tagged charge needs no batch, so nothing was generated.
	if len(state.TagBatches) != 0 {
		t.Errorf("generated %d tag batches, want 0", len(state.TagBatches))
	}

	// Persistence: CSV written, sink and override store called.
	csvPath := filepath.Join(cfg.OutputDir, ProcessedLedgerName)
	back, err := ledger.ReadCSVFile(csvPath)
	if err != nil {
		t.Fatalf("reading processed ledger: %v", err)
	}
	if back.Len() != 3 {
		t.Errorf("persisted ledger has %d records, want 3", back.Len())
	}
	if sink.runID != state.RunID || sink.records != 3 {
		t.Errorf("sink got runID=%q records=%d", sink.runID, sink.records)
	}
	if len(overrides.saved) != 1 {
		t.Errorf("saved %d overrides, want 1", len(overrides.saved))
	}
}

func TestRunGeneratesBatchesForUntagged(t *testing.T) {
	cfg := testConfig(t)
	state := NewState(cfg, zerolog.New(io.Discard))

	if err := Execute(context.Background(), state, DefaultSteps(nil, nil)...); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	// The alipay charge maps to L1 via its native category but still
	// lacks an L2, so exactly one batch covers it.
	if len(state.TagBatches) != 1 {
		t.Fatalf("generated %d tag batches, want 1", len(state.TagBatches))
	}
	if state.TagBatches[0].Keys[0] != "alipay:2025031422001400001" {
		t.Errorf("batch key = %q", state.TagBatches[0].Keys[0])
	}
	if _, err := os.Stat(state.TagBatches[0].File); err != nil {
		t.Errorf("batch file missing: %v", err)
	}
}

func TestRunFailsWithoutData(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.OutputDir = t.TempDir()
	state := NewState(&cfg, zerolog.New(io.Discard))

	err := Execute(context.Background(), state, DefaultSteps(nil, nil)...)
	if err == nil {
		t.Fatal("expected error for empty data dir")
	}
}

func TestExecuteStopsAtFailingStep(t *testing.T) {
	cfg := testConfig(t)
	state := NewState(cfg, zerolog.New(io.Discard))

	overrides := &memOverrideStore{err: errors.New("bigquery unavailable")}
	err := Execute(context.Background(), state, DefaultSteps(overrides, nil)...)
	if err == nil {
		t.Fatal("expected error from override store")
	}
	// The persist step never ran.
	if _, statErr := os.Stat(filepath.Join(cfg.OutputDir, ProcessedLedgerName)); statErr == nil {
		t.Error("processed ledger written despite earlier failure")
	}
}
