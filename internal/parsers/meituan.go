package parsers

import (
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/parkozhao/spendscope/internal/ledger"
	"github.com/parkozhao/spendscope/internal/users"
)

// Meituan exports are UTF-8-with-BOM CSVs with a variable-length
// disclaimer preamble. The data section starts right after the
// 【美团交易账单明细列表】 marker line. Amounts carry a ¥ prefix and every
// field is quoted.

const (
	meituanMarker     = "【美团交易账单明细列表】"
	meituanTimeLayout = "2006-01-02 15:04:05"
)

// MeituanParser parses Meituan statement exports.
type MeituanParser struct {
	users *users.Registry
}

func NewMeituanParser(reg *users.Registry) *MeituanParser {
	return &MeituanParser{users: reg}
}

func (p *MeituanParser) Platform() ledger.Platform { return ledger.PlatformMeituan }

func (p *MeituanParser) ParseFile(path string) ([]*ledger.Record, error) {
	lines, err := readLinesGB18030(path)
	if err != nil {
		return nil, err
	}

	markerIdx := -1
	for i, line := range lines {
		if strings.Contains(line, meituanMarker) {
			markerIdx = i
			break
		}
	}
	if markerIdx < 0 {
		return nil, fmt.Errorf("no %s marker found in %s", meituanMarker, path)
	}

	userID := p.users.Identify("", "")

	reader := csv.NewReader(strings.NewReader(strings.Join(lines[markerIdx+1:], "\n")))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(rows) < 2 {
		return nil, nil
	}

	var records []*ledger.Record
	for _, row := range rows[1:] {
		if len(row) < 11 {
			continue
		}
		for i := range row {
			row[i] = strings.TrimSpace(row[i])
		}

		createTime := row[0]
		successTime := row[1]
		txType := row[2]
		orderTitle := row[3]
		direction := row[4]

		// Actual paid amount, not the nominal order amount.
		amount, ok := parseAmount(row[7])
		if !ok {
			continue
		}

		tsStr := successTime
		if tsStr == "" {
			tsStr = createTime
		}
		ts, err := time.ParseInLocation(meituanTimeLayout, tsStr, time.Local)
		if err != nil {
			continue
		}

		// Refunds are money back in, repayments stay out of the totals.
		var dir ledger.Direction
		switch txType {
		case ledger.TxTypeRefund:
			dir = ledger.DirectionIncome
		case ledger.TxTypeRepayment:
			dir = ledger.DirectionNonAccounted
		default:
			dir = mapDirection(direction)
		}

		records = append(records, &ledger.Record{
			Platform:        ledger.PlatformMeituan,
			UserID:          userID,
			TransactionID:   row[8],
			MerchantOrderID: row[9],
			Timestamp:       ts,
			Direction:       dir,
			Amount:          amount,
			Counterparty:    orderTitle,
			Description:     orderTitle,
			PaymentMethod:   row[5],
			Status:          txType,
			PlatformTxType:  txType,
			Note:            row[10],
			EffectiveAmount: amount,
		})
	}
	return records, nil
}
