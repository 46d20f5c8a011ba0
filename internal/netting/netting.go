// Package netting matches refund records to the original charges they
// reverse and accumulates net effective amounts. Each platform encodes the
// charge-refund relationship differently, so netting is one strategy per
// platform, dispatched by the pipeline.
//
// Every strategy works in two explicit passes: a read-only index build over
// charge rows first, then mutation driven by a separate iteration over
// refund rows. Netting is applied exactly once per pipeline run; re-running
// it against an already-netted ledger would double-count accumulated
// refunds.
package netting

import (
	"github.com/rs/zerolog"

	"github.com/parkozhao/spendscope/internal/ledger"
)

// Strategy nets refunds for a single platform.
type Strategy interface {
	Platform() ledger.Platform
	Net(l *ledger.Ledger)
}

// DefaultStrategies returns one strategy per supported platform, in
// platform processing order.
func DefaultStrategies() []Strategy {
	return []Strategy{
		AlipayStrategy{},
		WeChatStrategy{},
		JDStrategy{},
		MeituanStrategy{},
	}
}

// Run applies each strategy once against the full merged ledger.
func Run(log zerolog.Logger, l *ledger.Ledger, strategies ...Strategy) {
	for _, s := range strategies {
		s.Net(l)
		log.Debug().
			Str("platform", s.Platform().String()).
			Msg("refund netting applied")
	}

	refunded, ignored := 0, 0
	for _, r := range l.Records() {
		if r.IsRefunded {
			refunded++
		}
		if r.IsIgnored {
			ignored++
		}
	}
	log.Info().
		Int("refunded_charges", refunded).
		Int("refund_rows", ignored).
		Msg("refund netting complete")
}
