package netting

import (
	"github.com/parkozhao/spendscope/internal/keywords"
	"github.com/parkozhao/spendscope/internal/ledger"
)

// MeituanStrategy covers the hardest case: refunds carry neither a shared
// ID nor an inline amount, so matching is purely by merchant-name
// similarity and amount feasibility. Charge order titles are expanded into
// keyword candidates (most specific first) and indexed globally; each
// refund row then tries its own candidates in order and accepts the first
// charge whose remaining unrefunded amount can absorb it.
type MeituanStrategy struct{}

func (MeituanStrategy) Platform() ledger.Platform { return ledger.PlatformMeituan }

func (MeituanStrategy) Net(l *ledger.Ledger) {
	// Pass 1: read-only keyword index over payment-type charge rows.
	// Candidate lists keep ledger order so matching stays deterministic.
	index := make(map[string][]*ledger.Record)
	for _, r := range l.Records() {
		if r.Platform != ledger.PlatformMeituan || r.PlatformTxType != ledger.TxTypePayment {
			continue
		}
		for _, key := range keywords.Extract(r.Counterparty) {
			if key == "" {
				continue
			}
			index[key] = append(index[key], r)
		}
	}

	// Pass 2: resolve refund rows.
	for _, r := range l.Records() {
		if r.Platform != ledger.PlatformMeituan || r.PlatformTxType != ledger.TxTypeRefund {
			continue
		}

		r.MarkRefundRow()

		if charge := findRefundTarget(index, r); charge != nil {
			charge.ApplyRefund(r.Amount)
		} else {
			// No keyword/amount match anywhere (pure voucher refunds end up
			// here too): keep a negative effective amount so the refund
			// still nets out of aggregate totals.
			r.MarkUnmatchedRefund()
		}
	}
}

// findRefundTarget tries the refund row's keyword candidates strictest
// first and returns the first charge that can still absorb the refund
// amount. Charges already fully refunded are skipped.
func findRefundTarget(index map[string][]*ledger.Record, refund *ledger.Record) *ledger.Record {
	for _, key := range keywords.Extract(refund.Counterparty) {
		if key == "" {
			continue
		}
		for _, charge := range index[key] {
			remaining := charge.RemainingRefundable()
			if remaining.IsPositive() && remaining.GreaterThanOrEqual(refund.Amount) {
				return charge
			}
		}
	}
	return nil
}
