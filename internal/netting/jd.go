package netting

import (
	"github.com/parkozhao/spendscope/internal/ledger"
)

// JDStrategy covers the inline-amount platform. JD embeds refund amounts
// directly in the charge's own amount field ("2977.63(已退款2974.66)"), which
// the parser already resolved, so no cross-record search is needed here.
// This pass only flags standalone refund-status rows so they never count as
// spend.
type JDStrategy struct{}

func (JDStrategy) Platform() ledger.Platform { return ledger.PlatformJD }

func (JDStrategy) Net(l *ledger.Ledger) {
	for _, r := range l.Records() {
		if r.Platform != ledger.PlatformJD {
			continue
		}
		if r.Status == ledger.StatusRefundSucceeded {
			r.MarkRefundRow()
		}
	}
}
