package tracks

import (
	"strings"

	"github.com/parkozhao/spendscope/internal/ledger"
)

// Alipay native categories that are money movement, not spend.
var alipayCashflowCategories = []string{
	"转账红包",
	"投资理财",
	"信用借还",
	"收入",
}

// alipayCategoryRefund is the leftover category on refunds that escaped
// netting; counted as cashflow rather than negative spend.
const alipayCategoryRefund = "退款"

// AlipayClassifier classifies Alipay records by direction and native
// category.
type AlipayClassifier struct {
	cashflowCategories map[string]bool
}

// NewAlipayClassifier builds the classifier, extending the built-in
// cashflow category set with deployment-specific extras.
func NewAlipayClassifier(extra []string) AlipayClassifier {
	return AlipayClassifier{cashflowCategories: toSet(alipayCashflowCategories, extra)}
}

func (AlipayClassifier) Platform() ledger.Platform { return ledger.PlatformAlipay }

func (c AlipayClassifier) Classify(r *ledger.Record) ledger.Track {
	switch {
	case r.Track == ledger.TrackRefundProcessed:
		return ledger.TrackRefundProcessed
	case r.Direction == ledger.DirectionNonAccounted:
		return ledger.TrackCashflow
	case r.Direction == ledger.DirectionIncome:
		return ledger.TrackCashflow
	case c.cashflowCategories[r.PlatformCategory]:
		return ledger.TrackCashflow
	case r.PlatformCategory == alipayCategoryRefund:
		return ledger.TrackCashflow
	case r.Direction == ledger.DirectionExpense:
		return ledger.TrackConsumption
	}
	return ledger.TrackCashflow
}

// WeChat transaction types that are money movement.
var wechatCashflowTxTypes = []string{
	"转账",
	"微信红包（单发）",
	"微信红包（群红包）",
	"微信红包",
	"二维码收款",
	"群收款",
}

// Partial-match patterns for WeChat cashflow types.
var wechatCashflowPatterns = []string{
	"转入零钱通",
	"零钱通",
}

const (
	wechatTxTypeMerchant = "商户消费"
	wechatTxTypeQRPay    = "扫二维码付款"
)

// WeChatClassifier classifies WeChat records by transaction type, with a
// status refinement for QR-code payments that settled as person-to-person
// transfers.
type WeChatClassifier struct {
	cashflowTxTypes map[string]bool
}

// NewWeChatClassifier builds the classifier, extending the built-in
// cashflow type set with deployment-specific extras.
func NewWeChatClassifier(extra []string) WeChatClassifier {
	return WeChatClassifier{cashflowTxTypes: toSet(wechatCashflowTxTypes, extra)}
}

func (WeChatClassifier) Platform() ledger.Platform { return ledger.PlatformWeChat }

func (c WeChatClassifier) Classify(r *ledger.Record) ledger.Track {
	if r.Track == ledger.TrackRefundProcessed || r.IsIgnored {
		return ledger.TrackRefundProcessed
	}

	txType := r.PlatformTxType
	if c.cashflowTxTypes[txType] {
		return ledger.TrackCashflow
	}
	for _, pattern := range wechatCashflowPatterns {
		if strings.Contains(txType, pattern) {
			return ledger.TrackCashflow
		}
	}
	if strings.Contains(txType, ledger.TxTypeRefund) {
		return ledger.TrackRefundProcessed
	}

	switch {
	case r.Direction == ledger.DirectionIncome:
		return ledger.TrackCashflow
	case r.Direction == ledger.DirectionNeutral:
		return ledger.TrackCashflow
	}

	// A QR-code payment whose status settled as a transfer is a
	// person-to-person payment, not a merchant charge.
	if txType == wechatTxTypeQRPay && strings.Contains(r.Status, ledger.StatusTransferred) {
		return ledger.TrackCashflow
	}
	if txType == wechatTxTypeMerchant || txType == wechatTxTypeQRPay {
		return ledger.TrackConsumption
	}
	return ledger.TrackCashflow
}

// JDClassifier classifies JD records by status and direction.
type JDClassifier struct{}

func (JDClassifier) Platform() ledger.Platform { return ledger.PlatformJD }

func (JDClassifier) Classify(r *ledger.Record) ledger.Track {
	switch {
	case r.Track == ledger.TrackRefundProcessed:
		return ledger.TrackRefundProcessed
	case r.Status == ledger.StatusRefundSucceeded:
		return ledger.TrackRefundProcessed
	case r.Direction == ledger.DirectionNonAccounted:
		// 白条还款, 小金库 moves, pre-authorizations.
		return ledger.TrackCashflow
	case r.Direction == ledger.DirectionIncome:
		return ledger.TrackCashflow
	case r.Direction == ledger.DirectionExpense:
		return ledger.TrackConsumption
	}
	return ledger.TrackCashflow
}

// MeituanClassifier classifies Meituan records by transaction type.
type MeituanClassifier struct{}

func (MeituanClassifier) Platform() ledger.Platform { return ledger.PlatformMeituan }

func (MeituanClassifier) Classify(r *ledger.Record) ledger.Track {
	switch {
	case r.Track == ledger.TrackRefundProcessed:
		return ledger.TrackRefundProcessed
	case r.PlatformTxType == ledger.TxTypeRefund:
		return ledger.TrackRefundProcessed
	case r.PlatformTxType == ledger.TxTypeRepayment:
		// 美团月付 auto-repayments are loan settlement, not spend.
		return ledger.TrackCashflow
	case r.PlatformTxType == ledger.TxTypePayment && r.Direction == ledger.DirectionExpense:
		return ledger.TrackConsumption
	}
	return ledger.TrackCashflow
}
