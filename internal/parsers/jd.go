package parsers

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/parkozhao/spendscope/internal/ledger"
	"github.com/parkozhao/spendscope/internal/users"
)

// JD exports are UTF-8-with-BOM CSVs. Refunds never show up as separate
// rows; the amount field itself is annotated inline, e.g.
// "293.10(已全额退款)" or "2977.63(已退款2974.66)".

var (
	jdFullRefundRe    = regexp.MustCompile(`^([\d.]+)\(已全额退款\)$`)
	jdPartialRefundRe = regexp.MustCompile(`^([\d.]+)\(已退款([\d.]+)\)$`)
)

const jdTimeLayout = "2006-01-02 15:04:05"

// JDParser parses JD Finance statement exports.
type JDParser struct {
	users *users.Registry
}

func NewJDParser(reg *users.Registry) *JDParser {
	return &JDParser{users: reg}
}

func (p *JDParser) Platform() ledger.Platform { return ledger.PlatformJD }

func (p *JDParser) ParseFile(path string) ([]*ledger.Record, error) {
	lines, err := readLinesGB18030(path)
	if err != nil {
		return nil, err
	}

	headerIdx := -1
	for i, line := range lines {
		if strings.Contains(line, "交易时间") && strings.Contains(line, "商户名称") {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, fmt.Errorf("no header row found in %s", path)
	}

	userID := p.users.Identify("", "")

	var records []*ledger.Record
	for _, line := range lines[headerIdx+1:] {
		line = strings.TrimSpace(line)
		line = strings.TrimRight(line, ",")
		if line == "" || strings.HasPrefix(line, "-") {
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) < 11 {
			continue
		}
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		ts, err := time.ParseInLocation(jdTimeLayout, parts[0], time.Local)
		if err != nil {
			continue
		}

		amount, refunded, ok := parseJDAmount(parts[3])
		if !ok {
			continue
		}

		status := parts[5]
		r := &ledger.Record{
			Platform:         ledger.PlatformJD,
			UserID:           userID,
			TransactionID:    parts[8],
			MerchantOrderID:  parts[9],
			Timestamp:        ts,
			Direction:        mapDirection(parts[6]),
			Amount:           amount,
			Counterparty:     parts[1],
			Description:      parts[2],
			PaymentMethod:    parts[4],
			Status:           status,
			PlatformCategory: parts[7],
			Note:             parts[10],
			EffectiveAmount:  amount,
		}
		if refunded.IsPositive() {
			r.ApplyRefund(refunded)
		}
		records = append(records, r)
	}
	return records, nil
}

// parseJDAmount parses JD's amount field, extracting any inline refund.
// Returns (amount, refunded, ok).
func parseJDAmount(raw string) (decimal.Decimal, decimal.Decimal, bool) {
	raw = strings.TrimSpace(raw)

	if m := jdFullRefundRe.FindStringSubmatch(raw); m != nil {
		amount, err := decimal.NewFromString(m[1])
		if err != nil {
			return decimal.Zero, decimal.Zero, false
		}
		return amount, amount, true
	}

	if m := jdPartialRefundRe.FindStringSubmatch(raw); m != nil {
		amount, err1 := decimal.NewFromString(m[1])
		refunded, err2 := decimal.NewFromString(m[2])
		if err1 != nil || err2 != nil {
			return decimal.Zero, decimal.Zero, false
		}
		return amount, refunded, true
	}

	amount, ok := parseAmount(raw)
	if !ok {
		return decimal.Zero, decimal.Zero, false
	}
	return amount, decimal.Zero, true
}
