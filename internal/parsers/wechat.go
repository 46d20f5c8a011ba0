package parsers

import (
	"encoding/csv"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/parkozhao/spendscope/internal/ledger"
	"github.com/parkozhao/spendscope/internal/users"
)

// WeChat Pay exports carry a metadata preamble with the account nickname,
// then a header row and quoted CSV data. Refunds against a charge are not
// separate linkable rows; instead the charge's 当前状态 field embeds the
// refund, e.g. "已全额退款" or "已退款(￥14.00)".

var (
	wechatNicknameRe = regexp.MustCompile(`微信昵称[：:]\s*\[?([^\]]+?)\]?\s*$`)
	wechatRefundRe   = regexp.MustCompile(`已退款[（(]?[¥￥]?([\d.]+)[）)]?`)
)

const wechatTimeLayout = "2006-01-02 15:04:05"

type refundKind int

const (
	noRefund refundKind = iota
	partialRefund
	fullRefund
)

// refundInfo is the parsed refund state of a WeChat status field. The
// amount is only meaningful for partial refunds; full refunds take the
// charge's own amount.
type refundInfo struct {
	kind   refundKind
	amount decimal.Decimal
}

// parseRefundStatus extracts embedded refund info from 当前状态.
func parseRefundStatus(status string) refundInfo {
	if strings.Contains(status, "已全额退款") {
		return refundInfo{kind: fullRefund}
	}
	if m := wechatRefundRe.FindStringSubmatch(status); m != nil {
		amt, err := decimal.NewFromString(m[1])
		if err == nil {
			return refundInfo{kind: partialRefund, amount: amt}
		}
	}
	return refundInfo{kind: noRefund}
}

// WeChatParser parses WeChat Pay statement exports.
type WeChatParser struct {
	users *users.Registry
}

func NewWeChatParser(reg *users.Registry) *WeChatParser {
	return &WeChatParser{users: reg}
}

func (p *WeChatParser) Platform() ledger.Platform { return ledger.PlatformWeChat }

func (p *WeChatParser) ParseFile(path string) ([]*ledger.Record, error) {
	lines, err := readLinesGB18030(path)
	if err != nil {
		return nil, err
	}

	nickname := ""
	headerIdx := -1
	for i, line := range lines {
		if m := wechatNicknameRe.FindStringSubmatch(line); m != nil {
			nickname = strings.TrimSpace(m[1])
		}
		if strings.Contains(line, "交易时间") && strings.Contains(line, "交易类型") {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, fmt.Errorf("no header row found in %s", path)
	}
	userID := p.users.Identify(nickname, "")

	reader := csv.NewReader(strings.NewReader(strings.Join(lines[headerIdx+1:], "\n")))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var records []*ledger.Record
	for _, row := range rows {
		if len(row) < 11 {
			continue
		}
		for i := range row {
			row[i] = strings.TrimSpace(row[i])
		}

		ts, err := time.ParseInLocation(wechatTimeLayout, row[0], time.Local)
		if err != nil {
			continue
		}
		amount, ok := parseAmount(row[5])
		if !ok {
			continue
		}

		txType := row[1]
		direction := row[4]
		status := row[7]
		merchantOrderID := row[9]
		if merchantOrderID == "None" {
			merchantOrderID = ""
		}

		r := &ledger.Record{
			Platform:        ledger.PlatformWeChat,
			UserID:          userID,
			TransactionID:   row[8],
			MerchantOrderID: merchantOrderID,
			Timestamp:       ts,
			Direction:       mapDirection(direction),
			Amount:          amount,
			Counterparty:    row[2],
			Description:     row[3],
			PaymentMethod:   row[6],
			Status:          status,
			PlatformTxType:  txType,
			Note:            row[10],
			EffectiveAmount: amount,
		}

		switch info := parseRefundStatus(status); info.kind {
		case fullRefund:
			r.ApplyRefund(amount)
		case partialRefund:
			r.ApplyRefund(info.amount)
		}

		// The matching refund-income row carries no link back to its
		// charge, so it is excluded outright to avoid double counting.
		if strings.Contains(txType, ledger.TxTypeRefund) && r.Direction == ledger.DirectionIncome {
			r.IsIgnored = true
		}

		records = append(records, r)
	}
	return records, nil
}
