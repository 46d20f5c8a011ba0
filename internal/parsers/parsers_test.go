package parsers

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/parkozhao/spendscope/internal/config"
	"github.com/parkozhao/spendscope/internal/ledger"
	"github.com/parkozhao/spendscope/internal/users"
)

func testRegistry() *users.Registry {
	return users.NewRegistry([]config.UserProfile{
		{ID: "zhang", DisplayName: "张三", Aliases: []string{"张三"}, AlipayAccount: "zhang@example.com"},
	}, "primary")
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

const alipayFixture = `支付宝交易明细（个人）
姓名：张三
支付宝账户：zhang@example.com
起始时间：[2025-03-01 00:00:00]    终止时间：[2025-03-31 23:59:59]
---------------------------------交易明细列表------------------------------------
交易时间,交易分类,交易对方,对方账号,商品说明,收/支,金额,收/付款方式,交易状态,交易订单号,商家订单号,备注,
2025-03-14 12:30:00,餐饮美食,肯德基,kfc@ali,宅急送订单,支出,50.00,余额宝,交易成功,2025031422001400001,M001,,
2025-03-15 09:00:00,餐饮美食,肯德基,kfc@ali,宅急送退款,收入,20.00,余额宝,退款成功,2025031422001400001_R1,M001,,
2025-03-16 10:00:00,投资理财,余额宝,,余额宝-转入,不计收支,100.00,余额宝,交易成功,2025031622001400002,M002,,
导出说明行
`

func TestAlipayParser(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "支付宝交易明细.csv", alipayFixture)

	records, err := NewAlipayParser(testRegistry()).ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}

	charge := records[0]
	if charge.UserID != "zhang" {
		t.Errorf("user = %q, want zhang", charge.UserID)
	}
	if charge.TransactionID != "2025031422001400001" {
		t.Errorf("tx id = %q", charge.TransactionID)
	}
	if charge.Direction != ledger.DirectionExpense {
		t.Errorf("direction = %q", charge.Direction)
	}
	if !charge.Amount.Equal(charge.EffectiveAmount) {
		t.Errorf("effective %s != amount %s", charge.EffectiveAmount, charge.Amount)
	}
	if charge.PlatformCategory != "餐饮美食" {
		t.Errorf("category = %q", charge.PlatformCategory)
	}

	refund := records[1]
	if refund.Status != ledger.StatusRefundSucceeded {
		t.Errorf("status = %q", refund.Status)
	}
	if refund.OriginalTxID != "2025031422001400001" {
		t.Errorf("original tx id = %q, want charge id", refund.OriginalTxID)
	}

	if records[2].Direction != ledger.DirectionNonAccounted {
		t.Errorf("direction = %q, want non_accounted", records[2].Direction)
	}
}

func TestAlipayParserNoHeader(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "支付宝交易明细.csv", "姓名：张三\n没有表头\n")

	if _, err := NewAlipayParser(testRegistry()).ParseFile(path); err == nil {
		t.Fatal("expected error for file without header row")
	}
}

const wechatFixture = `微信支付账单明细
微信昵称：[张三]
起始时间：[2025-03-01 00:00:00] 终止时间：[2025-03-31 23:59:59]
----------------------微信支付账单明细列表--------------------
交易时间,交易类型,交易对方,商品,收/支,金额(元),支付方式,当前状态,交易单号,商户单号,备注
2025-03-10 18:00:00,商户消费,瑞幸咖啡,拿铁,支出,¥28.00,零钱,已退款(￥14.00),WX1001,None,"/"
2025-03-11 08:30:00,商户消费,全家便利店,早餐,支出,¥12.50,零钱,已全额退款,WX1002,M100,"/"
2025-03-11 09:00:00,全家便利店-退款,全家便利店,早餐,收入,¥12.50,零钱,已退款至零钱,WX1003,M100,"/"
2025-03-12 12:00:00,转账,李四,/,/,¥200.00,零钱,朋友已收钱,WX1004,None,"/"
`

func TestWeChatParser(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "微信支付账单.csv", wechatFixture)

	records, err := NewWeChatParser(testRegistry()).ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("got %d records, want 4", len(records))
	}

	partial := records[0]
	if partial.UserID != "zhang" {
		t.Errorf("user = %q, want zhang", partial.UserID)
	}
	if !partial.IsRefunded {
		t.Error("partial refund charge should be marked refunded")
	}
	if got := partial.RefundAmount.StringFixed(2); got != "14.00" {
		t.Errorf("refund amount = %s, want 14.00", got)
	}
	if got := partial.EffectiveAmount.StringFixed(2); got != "14.00" {
		t.Errorf("effective = %s, want 14.00", got)
	}

	full := records[1]
	if !full.IsRefunded || !full.EffectiveAmount.IsZero() {
		t.Errorf("full refund: refunded=%v effective=%s", full.IsRefunded, full.EffectiveAmount)
	}

	income := records[2]
	if !income.IsIgnored {
		t.Error("refund income row should be ignored")
	}

	neutral := records[3]
	if neutral.Direction != ledger.DirectionNeutral {
		t.Errorf("direction = %q, want neutral", neutral.Direction)
	}
	if neutral.MerchantOrderID != "" {
		t.Errorf("merchant order id = %q, want empty for None", neutral.MerchantOrderID)
	}
}

const jdFixture = "\ufeff" + `京东交易流水
账户信息：某某
导出时间：2025-04-01
交易时间,商户名称,交易说明,金额,收/付款方式,交易状态,收/支,交易分类,交易单号,商户单号,备注,
2025-03-20 14:00:00,京东商城,手机壳,29.90,白条,交易成功,支出,数码产品,JD1001,O1001,,
2025-03-21 16:00:00,京东商城,键盘,2977.63(已退款2974.66),白条,交易成功,支出,数码产品,JD1002,O1002,,
2025-03-22 10:00:00,京东商城,显示器,293.10(已全额退款),白条,交易成功,支出,数码产品,JD1003,O1003,,
2025-03-22 11:00:00,京东商城,显示器退款,293.10,白条,退款成功,收入,数码产品,JD1004,O1003,,
`

func TestJDParser(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "京东交易流水.csv", jdFixture)

	records, err := NewJDParser(testRegistry()).ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("got %d records, want 4", len(records))
	}

	if records[0].IsRefunded {
		t.Error("plain charge should not be refunded")
	}

	partial := records[1]
	if got := partial.RefundAmount.StringFixed(2); got != "2974.66" {
		t.Errorf("refund amount = %s, want 2974.66", got)
	}
	if got := partial.EffectiveAmount.StringFixed(2); got != "2.97" {
		t.Errorf("effective = %s, want 2.97", got)
	}

	full := records[2]
	if !full.IsRefunded || !full.EffectiveAmount.IsZero() {
		t.Errorf("full refund: refunded=%v effective=%s", full.IsRefunded, full.EffectiveAmount)
	}

	if records[3].Status != ledger.StatusRefundSucceeded {
		t.Errorf("status = %q", records[3].Status)
	}
}

func TestParseJDAmount(t *testing.T) {
	tests := []struct {
		raw       string
		amount    string
		refunded  string
		ok        bool
	}{
		{"375.00", "375.00", "0.00", true},
		{"293.10(已全额退款)", "293.10", "293.10", true},
		{"2977.63(已退款2974.66)", "2977.63", "2974.66", true},
		{"", "0.00", "0.00", false},
		{"abc", "0.00", "0.00", false},
	}
	for _, tt := range tests {
		amount, refunded, ok := parseJDAmount(tt.raw)
		if ok != tt.ok {
			t.Errorf("parseJDAmount(%q) ok = %v, want %v", tt.raw, ok, tt.ok)
			continue
		}
		if !ok {
			continue
		}
		if amount.StringFixed(2) != tt.amount || refunded.StringFixed(2) != tt.refunded {
			t.Errorf("parseJDAmount(%q) = (%s, %s), want (%s, %s)",
				tt.raw, amount, refunded, tt.amount, tt.refunded)
		}
	}
}

const meituanFixture = "\ufeff" + `美团账单
免责声明：本账单仅供参考
【美团交易账单明细列表】
创建时间,成功时间,交易类型,订单标题,收/支,支付方式,订单金额,实付金额,交易单号,商户单号,备注
2025-03-14 12:00:00,2025-03-14 12:01:00,支付,Lush单人餐,支出,美团支付,¥50.00,¥45.00,MT1001,O2001,
2025-03-15 09:00:00,2025-03-15 09:01:00,退款,Lush单人餐,支出,美团支付,¥20.00,¥20.00,MT1002,O2001,
2025-03-16 20:00:00,,还款,月付还款,不计收支,银行卡,¥300.00,¥300.00,MT1003,O2002,
`

func TestMeituanParser(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "美团账单.csv", meituanFixture)

	records, err := NewMeituanParser(testRegistry()).ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}

	pay := records[0]
	if got := pay.Amount.StringFixed(2); got != "45.00" {
		t.Errorf("amount = %s, want actual paid 45.00", got)
	}
	if pay.Counterparty != "Lush单人餐" {
		t.Errorf("counterparty = %q", pay.Counterparty)
	}

	refund := records[1]
	if refund.Direction != ledger.DirectionIncome {
		t.Errorf("refund direction = %q, want income", refund.Direction)
	}
	if refund.PlatformTxType != ledger.TxTypeRefund {
		t.Errorf("tx type = %q", refund.PlatformTxType)
	}

	repay := records[2]
	if repay.Direction != ledger.DirectionNonAccounted {
		t.Errorf("repayment direction = %q, want non_accounted", repay.Direction)
	}
	// Falls back to create time when success time is empty.
	if repay.Timestamp.Hour() != 20 {
		t.Errorf("timestamp = %v, want create-time fallback", repay.Timestamp)
	}
}

func TestParseRefundStatus(t *testing.T) {
	tests := []struct {
		status string
		kind   refundKind
		amount string
	}{
		{"支付成功", noRefund, ""},
		{"已全额退款", fullRefund, ""},
		{"已退款(￥14.00)", partialRefund, "14.00"},
		{"已退款￥14.00", partialRefund, "14.00"},
		{"已退款(¥0.50)", partialRefund, "0.50"},
		{"", noRefund, ""},
	}
	for _, tt := range tests {
		info := parseRefundStatus(tt.status)
		if info.kind != tt.kind {
			t.Errorf("parseRefundStatus(%q) kind = %v, want %v", tt.status, info.kind, tt.kind)
			continue
		}
		if tt.kind == partialRefund && info.amount.StringFixed(2) != tt.amount {
			t.Errorf("parseRefundStatus(%q) amount = %s, want %s", tt.status, info.amount, tt.amount)
		}
	}
}

func TestParseDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "支付宝交易明细(20250301-20250331).csv", alipayFixture)
	writeFile(t, dir, "微信支付账单(20250301-20250331).csv", wechatFixture)
	writeFile(t, dir, "京东交易流水(20250301-20250331).csv", jdFixture)
	writeFile(t, dir, "美团账单(20250301-20250331).csv", meituanFixture)
	writeFile(t, dir, "unrelated.csv", "nothing here\n")

	log := zerolog.New(io.Discard)
	batches := ParseDir(log, dir, testRegistry())
	if len(batches) != 4 {
		t.Fatalf("got %d batches, want 4", len(batches))
	}

	total := 0
	seen := map[ledger.Platform]bool{}
	for _, batch := range batches {
		total += len(batch)
		for _, r := range batch {
			seen[r.Platform] = true
		}
	}
	if total != 14 {
		t.Errorf("total records = %d, want 14", total)
	}
	for _, p := range ledger.Platforms {
		if !seen[p] {
			t.Errorf("no records parsed for %s", p)
		}
	}
}

func TestParseDirSkipsBrokenFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "美团账单-broken.csv", "没有标记行\n")
	writeFile(t, dir, "美团账单-good.csv", meituanFixture)

	log := zerolog.New(io.Discard)
	batches := ParseDir(log, dir, testRegistry())
	if len(batches) != 1 {
		t.Fatalf("got %d batches, want 1 (broken file skipped)", len(batches))
	}
}
