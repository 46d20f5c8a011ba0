// Package parsers turns raw platform statement exports into canonical
// ledger records. One adapter per platform; each platform exports a
// different undocumented CSV dialect, so the adapters carry all the
// format-specific cleanup and none of the reconciliation logic.
package parsers

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/parkozhao/spendscope/internal/ledger"
	"github.com/parkozhao/spendscope/internal/users"
)

// Parser parses one platform's export file into ledger records.
type Parser interface {
	Platform() ledger.Platform
	ParseFile(path string) ([]*ledger.Record, error)
}

// filePatterns maps each platform to the glob its export files ship under.
// Platforms name their downloads consistently, which is the only reliable
// signal of origin.
var filePatterns = map[ledger.Platform]string{
	ledger.PlatformAlipay:  "支付宝*.csv",
	ledger.PlatformWeChat:  "微信支付*.csv",
	ledger.PlatformJD:      "京东*.csv",
	ledger.PlatformMeituan: "美团*.csv",
}

// ParseDir runs every platform parser over its matching files in dataDir
// and returns one record batch per file. Files that fail to parse are
// logged and skipped; one broken export must not block the rest.
func ParseDir(log zerolog.Logger, dataDir string, reg *users.Registry) [][]*ledger.Record {
	parsers := []Parser{
		NewAlipayParser(reg),
		NewWeChatParser(reg),
		NewJDParser(reg),
		NewMeituanParser(reg),
	}

	var batches [][]*ledger.Record
	for _, p := range parsers {
		pattern := filepath.Join(dataDir, filePatterns[p.Platform()])
		files, err := filepath.Glob(pattern)
		if err != nil {
			log.Error().Err(err).Str("pattern", pattern).Msg("glob failed")
			continue
		}
		sort.Strings(files)
		for _, f := range files {
			records, err := p.ParseFile(f)
			if err != nil {
				log.Error().
					Err(err).
					Str("platform", p.Platform().String()).
					Str("file", f).
					Msg("skipping unparseable export")
				continue
			}
			log.Info().
				Str("platform", p.Platform().String()).
				Str("file", filepath.Base(f)).
				Int("records", len(records)).
				Msg("parsed export")
			batches = append(batches, records)
		}
	}
	return batches
}

// mapDirection maps a platform-native direction string to the canonical
// enum. Unknown values map to neutral; classification treats neutral as
// cashflow, so nothing unknown ever counts as spend.
func mapDirection(native string) ledger.Direction {
	switch strings.TrimSpace(native) {
	case "支出":
		return ledger.DirectionExpense
	case "收入":
		return ledger.DirectionIncome
	case "不计收支":
		return ledger.DirectionNonAccounted
	default:
		return ledger.DirectionNeutral
	}
}

// parseAmount parses a numeric amount string, tolerating currency marks and
// stray whitespace.
func parseAmount(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "¥")
	s = strings.TrimPrefix(s, "￥")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
