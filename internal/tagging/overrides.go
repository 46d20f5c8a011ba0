package tagging

import (
	"github.com/parkozhao/spendscope/internal/ledger"
	"github.com/parkozhao/spendscope/internal/taxonomy"
)

// Override is a category label pinned to a specific transaction. Overrides
// carry labels across pipeline runs: since every run re-parses raw exports
// from scratch, tags applied on earlier runs (or corrected by hand) would
// otherwise be lost.
type Override struct {
	Platform      string
	TransactionID string
	L1            string
	L2            string
}

// CollectOverrides extracts an override for every tagged record, ready to
// be persisted for the next run.
func CollectOverrides(l *ledger.Ledger) []Override {
	var out []Override
	for _, r := range l.Records() {
		if r.CategoryL1 == "" {
			continue
		}
		out = append(out, Override{
			Platform:      r.Platform.String(),
			TransactionID: r.TransactionID,
			L1:            r.CategoryL1,
			L2:            r.CategoryL2,
		})
	}
	return out
}

// ApplyOverrides writes stored overrides onto a freshly built ledger.
// Overrides with a stale L1 (taxonomy edits happen) are ignored rather
// than propagated. Returns the number of records labeled.
func ApplyOverrides(l *ledger.Ledger, overrides []Override) int {
	if len(overrides) == 0 {
		return 0
	}
	byKey := make(map[ledger.RecordKey]Override, len(overrides))
	for _, o := range overrides {
		key := ledger.RecordKey{Platform: ledger.Platform(o.Platform), TransactionID: o.TransactionID}
		byKey[key] = o
	}

	applied := 0
	for _, r := range l.Records() {
		o, ok := byKey[r.Key()]
		if !ok {
			continue
		}
		if !taxonomy.IsL1(o.L1) {
			continue
		}
		r.CategoryL1 = o.L1
		if taxonomy.IsL2(o.L1, o.L2) {
			r.CategoryL2 = o.L2
		} else {
			r.CategoryL2 = taxonomy.FallbackL2(o.L1)
		}
		applied++
	}
	return applied
}
