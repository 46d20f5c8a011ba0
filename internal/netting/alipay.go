package netting

import (
	"strings"

	"github.com/parkozhao/spendscope/internal/ledger"
)

// Alipay refund IDs are compound: the original charge's transaction ID
// joined to a refund suffix with one of these separators.
var alipayRefundSeparators = []string{"_", "*"}

// minOriginalIDLength guards against spurious splits: a prefix shorter than
// this cannot be a real Alipay transaction ID.
const minOriginalIDLength = 10

// AlipayStrategy nets refunds via transaction-ID split. Refund rows carry
// status 退款成功 and a compound ID whose prefix names the original charge.
type AlipayStrategy struct{}

func (AlipayStrategy) Platform() ledger.Platform { return ledger.PlatformAlipay }

func (AlipayStrategy) Net(l *ledger.Ledger) {
	// Pass 1: index this platform's expense-direction charges by ID.
	index := make(map[string]*ledger.Record)
	for _, r := range l.Records() {
		if r.Platform == ledger.PlatformAlipay && r.Direction == ledger.DirectionExpense {
			index[r.TransactionID] = r
		}
	}

	// Pass 2: resolve refund rows against the index.
	for _, r := range l.Records() {
		if r.Platform != ledger.PlatformAlipay || r.Status != ledger.StatusRefundSucceeded {
			continue
		}

		r.MarkRefundRow()

		origID := r.OriginalTxID
		if origID == "" {
			origID = ExtractOriginalID(r.TransactionID)
		}
		if origID == "" {
			// Unresolvable refund: excluded from spend, nets against nothing.
			continue
		}
		// A charge never absorbs more than its remaining unrefunded
		// amount; an infeasible refund nets against nothing.
		if charge, ok := index[origID]; ok {
			remaining := charge.RemainingRefundable()
			if remaining.IsPositive() && remaining.GreaterThanOrEqual(r.Amount) {
				charge.ApplyRefund(r.Amount)
			}
		}
	}
}

// ExtractOriginalID extracts the original charge's transaction ID from a
// compound refund ID. It returns the prefix before the first separator
// found, or "" when no separator is present or the prefix is too short to
// be a real ID.
func ExtractOriginalID(txID string) string {
	txID = strings.TrimSpace(txID)
	for _, sep := range alipayRefundSeparators {
		if i := strings.Index(txID, sep); i >= 0 {
			candidate := strings.TrimSpace(txID[:i])
			if len(candidate) > minOriginalIDLength {
				return candidate
			}
		}
	}
	return ""
}
