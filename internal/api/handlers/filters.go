package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/parkozhao/spendscope/internal/ledger"
)

// filters are the query parameters shared by every report endpoint.
type filters struct {
	user       string
	platform   string
	track      string
	category   string
	categoryL2 string
	excludeCat map[string]bool
	year       int
	dateFrom   time.Time
	dateTo     time.Time
}

const filterDateLayout = "2006-01-02"

// parseFilters reads the shared filter params from the query string.
func parseFilters(r *http.Request) (filters, error) {
	q := r.URL.Query()
	f := filters{
		user:       q.Get("user"),
		platform:   q.Get("platform"),
		track:      q.Get("track"),
		category:   q.Get("category"),
		categoryL2: q.Get("category_l2"),
	}

	if year := q.Get("year"); year != "" {
		y, err := strconv.Atoi(year)
		if err != nil {
			return f, fmt.Errorf("invalid year %q", year)
		}
		f.year = y
	}
	if from := q.Get("date_from"); from != "" {
		t, err := time.ParseInLocation(filterDateLayout, from, time.Local)
		if err != nil {
			return f, fmt.Errorf("invalid date_from %q", from)
		}
		f.dateFrom = t
	}
	if to := q.Get("date_to"); to != "" {
		t, err := time.ParseInLocation(filterDateLayout, to, time.Local)
		if err != nil {
			return f, fmt.Errorf("invalid date_to %q", to)
		}
		// Inclusive: the whole last day counts.
		f.dateTo = t.Add(24*time.Hour - time.Nanosecond)
	}
	if excl := q.Get("exclude_categories"); excl != "" {
		f.excludeCat = make(map[string]bool)
		for _, c := range strings.Split(excl, ",") {
			f.excludeCat[strings.TrimSpace(c)] = true
		}
	}
	return f, nil
}

// match reports whether a record passes all active filters.
func (f filters) match(rec *ledger.Record) bool {
	if f.user != "" && rec.UserID != f.user {
		return false
	}
	if f.year != 0 && rec.Timestamp.Year() != f.year {
		return false
	}
	if !f.dateFrom.IsZero() && rec.Timestamp.Before(f.dateFrom) {
		return false
	}
	if !f.dateTo.IsZero() && rec.Timestamp.After(f.dateTo) {
		return false
	}
	if f.platform != "" && rec.Platform.String() != f.platform {
		return false
	}
	if f.track != "" && string(rec.Track) != f.track {
		return false
	}
	if f.category != "" && rec.CategoryL1 != f.category {
		return false
	}
	if f.categoryL2 != "" && rec.CategoryL2 != f.categoryL2 {
		return false
	}
	if f.excludeCat != nil && f.excludeCat[rec.CategoryL1] {
		return false
	}
	return true
}

// apply returns the records passing the filters, in ledger order.
func (f filters) apply(l *ledger.Ledger) []*ledger.Record {
	var out []*ledger.Record
	for _, rec := range l.Records() {
		if f.match(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// consumption narrows filtered records to countable spend.
func consumption(records []*ledger.Record) []*ledger.Record {
	var out []*ledger.Record
	for _, r := range records {
		if r.Track == ledger.TrackConsumption && !r.IsIgnored {
			out = append(out, r)
		}
	}
	return out
}

// cashflow narrows filtered records to the cashflow track.
func cashflow(records []*ledger.Record) []*ledger.Record {
	var out []*ledger.Record
	for _, r := range records {
		if r.Track == ledger.TrackCashflow {
			out = append(out, r)
		}
	}
	return out
}
