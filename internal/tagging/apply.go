package tagging

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"

	"github.com/rs/zerolog"

	"github.com/parkozhao/spendscope/internal/ledger"
	"github.com/parkozhao/spendscope/internal/taxonomy"
)

// ApplyResults writes one batch's model results onto the ledger. Results
// with an out-of-range index or an L1 outside the taxonomy are dropped; an
// unknown L2 falls back to its L1's first subcategory. Returns the number
// of records tagged.
func ApplyResults(l *ledger.Ledger, batch Batch, results []Result) int {
	byKey := make(map[string]*ledger.Record, l.Len())
	for _, r := range l.Records() {
		byKey[r.Key().String()] = r
	}

	tagged := 0
	for _, res := range results {
		i := res.Index - 1
		if i < 0 || i >= len(batch.Keys) {
			continue
		}
		r, ok := byKey[batch.Keys[i]]
		if !ok {
			continue
		}
		if !taxonomy.IsL1(res.L1) {
			continue
		}
		r.CategoryL1 = res.L1
		if taxonomy.IsL2(res.L1, res.L2) {
			r.CategoryL2 = res.L2
		} else {
			r.CategoryL2 = taxonomy.FallbackL2(res.L1)
		}
		tagged++
	}
	return tagged
}

// ApplyResultFiles reads every batch's result file under dir and applies
// them. Batches whose result file does not exist yet are skipped, so the
// tagging stage can be re-run as results trickle in.
func ApplyResultFiles(log zerolog.Logger, l *ledger.Ledger, dir string) (int, error) {
	batches, err := LoadManifest(dir)
	if err != nil {
		return 0, err
	}

	tagged := 0
	for _, batch := range batches {
		data, err := os.ReadFile(batch.ResultFile())
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return tagged, err
		}
		var results []Result
		if err := json.Unmarshal(data, &results); err != nil {
			log.Error().Err(err).Str("file", batch.ResultFile()).Msg("skipping malformed result file")
			continue
		}
		n := ApplyResults(l, batch, results)
		tagged += n
		log.Debug().Str("file", batch.ResultFile()).Int("tagged", n).Msg("applied tagging results")
	}
	return tagged, nil
}
