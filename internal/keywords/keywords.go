// Package keywords turns a free-text order title into a ranked list of
// candidate matching keys, most specific first. Refund rows on platforms
// without an explicit charge link are matched to their original charge by
// trying these keys in order against an index built over charge titles.
package keywords

import (
	"regexp"
	"strings"
)

// Boilerplate suffixes that merchants append to order titles and that never
// survive into the refund row's title: voucher and coupon markers, set-meal
// headcount markers, generic order-detail suffixes and long numeric order
// IDs tacked onto the end.
var boilerplateSuffixes = []*regexp.Regexp{
	regexp.MustCompile(`(代金券|优惠券|团购券)$`),
	regexp.MustCompile(`[0-9一二两三四五六七八九十单双多]人餐$`),
	regexp.MustCompile(`订单详情$`),
	regexp.MustCompile(`[0-9]{10,}$`),
}

// Delimiters tried in priority order; truncation stops at the first
// delimiter actually present in the title.
var delimiters = []string{"（", "(", "-", "·", " "}

var latinPrefix = regexp.MustCompile(`^[A-Za-z]+`)

// Extract produces the ordered candidate key sequence for a title. The
// result is never empty and its first element is always the verbatim
// trimmed input; an empty or whitespace-only title yields [""] , which
// callers must treat as "no match possible". Duplicates are suppressed
// while preserving first-seen order.
func Extract(title string) []string {
	trimmed := strings.TrimSpace(title)
	out := []string{trimmed}
	if trimmed == "" {
		return out
	}

	seen := map[string]bool{trimmed: true}
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	stripped := stripBoilerplate(trimmed)
	add(stripped)

	// Truncate at the first delimiter present, trying delimiters in
	// priority order.
	for _, d := range delimiters {
		if i := strings.Index(stripped, d); i >= 0 {
			add(stripped[:i])
			break
		}
	}

	// Brand-name prefix heuristic: a leading run of Latin letters, but only
	// if long enough to plausibly be a brand token.
	if m := latinPrefix.FindString(stripped); len(m) >= 2 {
		add(m)
	}

	return out
}

// stripBoilerplate repeatedly removes known suffixes until the title
// stabilizes. Suffixes stack ("X代金券-1234567890123"), so a single pass is
// not enough.
func stripBoilerplate(s string) string {
	for {
		prev := s
		for _, re := range boilerplateSuffixes {
			s = re.ReplaceAllString(s, "")
		}
		s = strings.TrimRight(strings.TrimSpace(s), "-·")
		if s == prev {
			return s
		}
	}
}
