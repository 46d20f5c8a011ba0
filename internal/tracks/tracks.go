// Package tracks assigns every ledger record its final disposition:
// consumption (real spend), cashflow (non-spend money movement) or
// refund_processed. Classification is one ordered rule list per platform,
// first matching rule wins, and must only run after refund netting has
// finalized that platform's refund rows.
//
// The default everywhere is cashflow: an unrecognized pattern is never
// silently counted as spend.
package tracks

import (
	"github.com/rs/zerolog"

	"github.com/parkozhao/spendscope/internal/ledger"
)

// Classifier decides the track for a single platform's records.
type Classifier interface {
	Platform() ledger.Platform
	Classify(r *ledger.Record) ledger.Track
}

// ExtraTags lets deployments extend the built-in cashflow tag sets without
// code changes (new red-packet variants show up in exports every year).
type ExtraTags struct {
	AlipayCategories []string
	WeChatTxTypes    []string
}

// DefaultClassifiers returns one classifier per supported platform.
func DefaultClassifiers(extra ExtraTags) []Classifier {
	return []Classifier{
		NewAlipayClassifier(extra.AlipayCategories),
		NewWeChatClassifier(extra.WeChatTxTypes),
		JDClassifier{},
		MeituanClassifier{},
	}
}

// Run assigns a track to every record not already finalized by netting.
// Records whose platform has no classifier fall to the conservative
// cashflow default.
func Run(log zerolog.Logger, l *ledger.Ledger, classifiers ...Classifier) {
	byPlatform := make(map[ledger.Platform]Classifier, len(classifiers))
	for _, c := range classifiers {
		byPlatform[c.Platform()] = c
	}

	consumption, cashflow := 0, 0
	for _, r := range l.Records() {
		if r.Track != ledger.TrackUnset {
			continue
		}
		if c, ok := byPlatform[r.Platform]; ok {
			r.Track = c.Classify(r)
		} else {
			r.Track = ledger.TrackCashflow
		}
		switch r.Track {
		case ledger.TrackConsumption:
			consumption++
		case ledger.TrackCashflow:
			cashflow++
		}
	}

	log.Info().
		Int("consumption", consumption).
		Int("cashflow", cashflow).
		Msg("track classification complete")
}

func toSet(base []string, extra []string) map[string]bool {
	set := make(map[string]bool, len(base)+len(extra))
	for _, s := range base {
		set[s] = true
	}
	for _, s := range extra {
		set[s] = true
	}
	return set
}
