package taxonomy

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/parkozhao/spendscope/internal/ledger"
)

func TestIsL1(t *testing.T) {
	if !IsL1("餐饮美食") {
		t.Error("餐饮美食 should be a valid L1")
	}
	if IsL1("外卖配送") {
		t.Error("an L2 name is not an L1")
	}
	if IsL1("") {
		t.Error("empty string is not an L1")
	}
}

func TestIsL2(t *testing.T) {
	if !IsL2("餐饮美食", "外卖配送") {
		t.Error("外卖配送 belongs under 餐饮美食")
	}
	if IsL2("餐饮美食", "停车费") {
		t.Error("停车费 does not belong under 餐饮美食")
	}
	if IsL2("不存在", "外卖配送") {
		t.Error("unknown L1 has no children")
	}
}

func TestFallbackL2(t *testing.T) {
	if got := FallbackL2("交通出行"); got != "高速/ETC" {
		t.Errorf("FallbackL2 = %q, want first child", got)
	}
	if got := FallbackL2("不存在"); got != "" {
		t.Errorf("FallbackL2 for unknown L1 = %q, want empty", got)
	}
}

func TestPromptBlockStable(t *testing.T) {
	first := PromptBlock()
	if first != PromptBlock() {
		t.Fatal("PromptBlock must be deterministic")
	}
	lines := strings.Split(first, "\n")
	if len(lines) != len(Categories) {
		t.Errorf("prompt has %d lines, want %d", len(lines), len(Categories))
	}
	if !strings.HasPrefix(lines[0], "[餐饮美食: ") {
		t.Errorf("first line = %q", lines[0])
	}
}

func TestApplyL1Mapping(t *testing.T) {
	a := decimal.RequireFromString("30.00")
	mk := func(p ledger.Platform, txID, category string, track ledger.Track) *ledger.Record {
		return &ledger.Record{
			Platform:         p,
			TransactionID:    txID,
			Timestamp:        time.Now(),
			Direction:        ledger.DirectionExpense,
			Amount:           a,
			EffectiveAmount:  a,
			PlatformCategory: category,
			Track:            track,
		}
	}

	mappable := mk(ledger.PlatformAlipay, "tx-1", "餐饮美食", ledger.TrackConsumption)
	unknownCat := mk(ledger.PlatformAlipay, "tx-2", "奇怪分类", ledger.TrackConsumption)
	cashflow := mk(ledger.PlatformAlipay, "tx-3", "餐饮美食", ledger.TrackCashflow)
	wechat := mk(ledger.PlatformWeChat, "tx-4", "餐饮美食", ledger.TrackConsumption)

	l, _ := ledger.Merge([]*ledger.Record{mappable, unknownCat, cashflow, wechat})
	if mapped := ApplyL1Mapping(l); mapped != 1 {
		t.Errorf("mapped = %d, want 1", mapped)
	}
	if mappable.CategoryL1 != "餐饮美食" {
		t.Errorf("CategoryL1 = %q", mappable.CategoryL1)
	}
	if unknownCat.CategoryL1 != "" || cashflow.CategoryL1 != "" || wechat.CategoryL1 != "" {
		t.Error("only alipay consumption rows with L1-shaped categories are mapped")
	}
}
