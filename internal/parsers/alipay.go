package parsers

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/parkozhao/spendscope/internal/ledger"
	"github.com/parkozhao/spendscope/internal/netting"
	"github.com/parkozhao/spendscope/internal/users"
)

// Alipay exports are GB18030-encoded CSVs with a metadata preamble:
// owner name, account, date range and disclaimers, then a header row,
// then data rows that each end with a trailing comma.

var (
	alipayNameRe    = regexp.MustCompile(`姓名[：:]\s*(.+)`)
	alipayAccountRe = regexp.MustCompile(`支付宝账户[：:]\s*(\S+)`)
)

const alipayTimeLayout = "2006-01-02 15:04:05"

// AlipayParser parses Alipay statement exports.
type AlipayParser struct {
	users *users.Registry
}

func NewAlipayParser(reg *users.Registry) *AlipayParser {
	return &AlipayParser{users: reg}
}

func (p *AlipayParser) Platform() ledger.Platform { return ledger.PlatformAlipay }

// ParseFile parses one Alipay export into ledger records. Rows with
// unparseable amounts or timestamps are skipped, matching how the export
// interleaves summary lines with data.
func (p *AlipayParser) ParseFile(path string) ([]*ledger.Record, error) {
	lines, err := readLinesGB18030(path)
	if err != nil {
		return nil, err
	}

	name, account := alipayMetadata(lines)
	userID := p.users.Identify(name, account)

	headerIdx := -1
	for i, line := range lines {
		if strings.Contains(line, "交易时间") && strings.Contains(line, "交易对方") {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, fmt.Errorf("no header row found in %s", path)
	}

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

		amount, ok := parseAmount(parts[6])
		if !ok {
			continue
		}
		ts, err := time.ParseInLocation(alipayTimeLayout, parts[0], time.Local)
		if err != nil {
			continue
		}

		status := parts[8]
		txID := parts[9]

		originalTxID := ""
		if status == ledger.StatusRefundSucceeded {
			originalTxID = netting.ExtractOriginalID(txID)
		}

		note := ""
		if len(parts) > 11 {
			note = parts[11]
		}

		records = append(records, &ledger.Record{
			Platform:         ledger.PlatformAlipay,
			UserID:           userID,
			TransactionID:    txID,
			OriginalTxID:     originalTxID,
			MerchantOrderID:  parts[10],
			Timestamp:        ts,
			Direction:        mapDirection(parts[5]),
			Amount:           amount,
			Counterparty:     parts[2],
			Description:      parts[4],
			PaymentMethod:    parts[7],
			Status:           status,
			PlatformCategory: parts[1],
			Note:             note,
			EffectiveAmount:  amount,
		})
	}
	return records, nil
}

// alipayMetadata pulls the owner name and account out of the preamble.
func alipayMetadata(lines []string) (name, account string) {
	limit := len(lines)
	if limit > 25 {
		limit = 25
	}
	for _, line := range lines[:limit] {
		if m := alipayNameRe.FindStringSubmatch(line); m != nil {
			name = strings.TrimSpace(m[1])
		}
		if m := alipayAccountRe.FindStringSubmatch(line); m != nil {
			account = strings.TrimSpace(m[1])
		}
	}
	return name, account
}

// readLinesGB18030 reads a file that may be GB18030 or UTF-8 encoded and
// returns its lines. Alipay ships GB18030; re-saved files are often UTF-8.
func readLinesGB18030(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	if !utf8.Valid(data) {
		decoded, err := simplifiedchinese.GB18030.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
		data = decoded
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	return strings.Split(text, "\n"), nil
}
