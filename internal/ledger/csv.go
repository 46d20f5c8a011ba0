package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// csvHeader is the column order of the processed-ledger CSV. The file is
// both the human-inspectable pipeline output and the input for result
// application on later runs, so the order is stable.
var csvHeader = []string{
	"platform", "user_id", "transaction_id", "original_tx_id",
	"merchant_order_id", "timestamp", "direction", "amount",
	"counterparty", "description", "payment_method", "status",
	"platform_category", "platform_tx_type", "note",
	"track", "is_refunded", "refund_amount", "effective_amount",
	"is_ignored", "category_l1", "category_l2",
}

const csvTimeLayout = time.RFC3339

// WriteCSV writes the ledger to w. A UTF-8 BOM is prepended so the file
// opens correctly in spreadsheet tools, which still guess the encoding of
// Chinese text without one.
func (l *Ledger) WriteCSV(w io.Writer) error {
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("WriteCSV: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("WriteCSV: %w", err)
	}
	for _, r := range l.records {
		row := []string{
			r.Platform.String(),
			r.UserID,
			r.TransactionID,
			r.OriginalTxID,
			r.MerchantOrderID,
			r.Timestamp.Format(csvTimeLayout),
			string(r.Direction),
			r.Amount.String(),
			r.Counterparty,
			r.Description,
			r.PaymentMethod,
			r.Status,
			r.PlatformCategory,
			r.PlatformTxType,
			r.Note,
			string(r.Track),
			strconv.FormatBool(r.IsRefunded),
			r.RefundAmount.String(),
			r.EffectiveAmount.String(),
			strconv.FormatBool(r.IsIgnored),
			r.CategoryL1,
			r.CategoryL2,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("WriteCSV: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("WriteCSV: %w", err)
	}
	return nil
}

// WriteCSVFile writes the ledger to path, truncating any existing file.
func (l *Ledger) WriteCSVFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("WriteCSVFile: %w", err)
	}
	defer f.Close()

	if err := l.WriteCSV(f); err != nil {
		return err
	}
	return f.Close()
}

// ReadCSV reads a processed-ledger CSV written by WriteCSV.
func ReadCSV(r io.Reader) (*Ledger, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(csvHeader)

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("ReadCSV: %w", err)
	}
	if len(rows) == 0 {
		return FromRecords(nil), nil
	}

	// Tolerate the BOM on the first header cell.
	first := rows[0]
	if len(first) > 0 && len(first[0]) >= 3 && first[0][:3] == "\xEF\xBB\xBF" {
		first[0] = first[0][3:]
	}
	if first[0] != csvHeader[0] {
		return nil, fmt.Errorf("ReadCSV: unexpected header %q", first[0])
	}

	records := make([]*Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rec, err := recordFromCSVRow(row)
		if err != nil {
			return nil, fmt.Errorf("ReadCSV: row %d: %w", i+2, err)
		}
		records = append(records, rec)
	}
	return FromRecords(records), nil
}

// ReadCSVFile reads a processed-ledger CSV from path.
func ReadCSVFile(path string) (*Ledger, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ReadCSVFile: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}

func recordFromCSVRow(row []string) (*Record, error) {
	ts, err := time.Parse(csvTimeLayout, row[5])
	if err != nil {
		return nil, fmt.Errorf("timestamp: %w", err)
	}
	amount, err := decimal.NewFromString(row[7])
	if err != nil {
		return nil, fmt.Errorf("amount: %w", err)
	}
	refundAmount, err := decimal.NewFromString(row[17])
	if err != nil {
		return nil, fmt.Errorf("refund_amount: %w", err)
	}
	effective, err := decimal.NewFromString(row[18])
	if err != nil {
		return nil, fmt.Errorf("effective_amount: %w", err)
	}
	isRefunded, err := strconv.ParseBool(row[16])
	if err != nil {
		return nil, fmt.Errorf("is_refunded: %w", err)
	}
	isIgnored, err := strconv.ParseBool(row[19])
	if err != nil {
		return nil, fmt.Errorf("is_ignored: %w", err)
	}

	return &Record{
		Platform:         Platform(row[0]),
		UserID:           row[1],
		TransactionID:    row[2],
		OriginalTxID:     row[3],
		MerchantOrderID:  row[4],
		Timestamp:        ts,
		Direction:        Direction(row[6]),
		Amount:           amount,
		Counterparty:     row[8],
		Description:      row[9],
		PaymentMethod:    row[10],
		Status:           row[11],
		PlatformCategory: row[12],
		PlatformTxType:   row[13],
		Note:             row[14],
		Track:            Track(row[15]),
		IsRefunded:       isRefunded,
		RefundAmount:     refundAmount,
		EffectiveAmount:  effective,
		IsIgnored:        isIgnored,
		CategoryL1:       row[20],
		CategoryL2:       row[21],
	}, nil
}
