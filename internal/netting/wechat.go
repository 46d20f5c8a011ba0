package netting

import (
	"strings"

	"github.com/parkozhao/spendscope/internal/ledger"
)

// WeChatStrategy covers the self-describing-status platform. The parser
// already resolved refund state from the 当前状态 field onto the charge rows
// themselves (is_refunded, refund_amount, effective_amount), so this pass
// only finalizes refund-income rows arising from a "...-退款" transaction
// type: they must never count as spend.
type WeChatStrategy struct{}

func (WeChatStrategy) Platform() ledger.Platform { return ledger.PlatformWeChat }

func (WeChatStrategy) Net(l *ledger.Ledger) {
	for _, r := range l.Records() {
		if r.Platform != ledger.PlatformWeChat {
			continue
		}
		if r.IsIgnored && strings.Contains(r.PlatformTxType, ledger.TxTypeRefund) {
			r.Track = ledger.TrackRefundProcessed
		}
	}
}
