// Package handlers implements the read-only reporting endpoints over a
// processed ledger.
package handlers

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/parkozhao/spendscope/internal/api/middleware"
	"github.com/parkozhao/spendscope/internal/ledger"
	"github.com/parkozhao/spendscope/internal/taxonomy"
)

// ReportHandler serves aggregate views of one processed ledger. The
// ledger is loaded once at startup; re-running the pipeline means
// restarting the server.
type ReportHandler struct {
	ledger *ledger.Ledger
	log    zerolog.Logger
}

// NewReportHandler creates a handler over a processed ledger.
func NewReportHandler(l *ledger.Ledger, log zerolog.Logger) *ReportHandler {
	return &ReportHandler{ledger: l, log: log}
}

func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// Meta handles GET /api/meta: filter dropdown data.
func (h *ReportHandler) Meta(w http.ResponseWriter, r *http.Request) {
	userSet := map[string]bool{}
	yearSet := map[int]bool{}
	platformSet := map[string]bool{}
	l1Counts := map[string]int{}

	for _, rec := range h.ledger.Records() {
		userSet[rec.UserID] = true
		yearSet[rec.Timestamp.Year()] = true
		platformSet[rec.Platform.String()] = true
		if rec.CategoryL1 != "" {
			l1Counts[rec.CategoryL1]++
		}
	}

	type userInfo struct {
		ID    string `json:"id"`
		Label string `json:"label"`
	}
	var users []userInfo
	for id := range userSet {
		users = append(users, userInfo{ID: id, Label: id})
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })

	var years []int
	for y := range yearSet {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))

	var platforms []string
	for p := range platformSet {
		platforms = append(platforms, p)
	}
	sort.Strings(platforms)

	type taxonomyInfo struct {
		L1    string   `json:"l1"`
		L2s   []string `json:"l2s"`
		Count int      `json:"count"`
	}
	var tax []taxonomyInfo
	for _, c := range taxonomy.Categories {
		tax = append(tax, taxonomyInfo{L1: c.L1, L2s: c.L2s, Count: l1Counts[c.L1]})
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"users":     users,
		"years":     years,
		"platforms": platforms,
		"taxonomy":  tax,
	})
}

// Summary handles GET /api/summary: overall totals under the active
// filters.
func (h *ReportHandler) Summary(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilters(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	filtered := f.apply(h.ledger)
	cons := consumption(filtered)
	cash := cashflow(filtered)

	totalSpend := decimal.Zero
	for _, rec := range cons {
		totalSpend = totalSpend.Add(rec.EffectiveAmount)
	}
	totalRefund := decimal.Zero
	for _, rec := range filtered {
		if rec.IsRefunded {
			totalRefund = totalRefund.Add(rec.RefundAmount)
		}
	}
	cashflowTotal := decimal.Zero
	for _, rec := range cash {
		if rec.Direction == ledger.DirectionExpense {
			cashflowTotal = cashflowTotal.Add(rec.Amount)
		}
	}
	platforms := map[string]int{}
	for _, rec := range filtered {
		platforms[rec.Platform.String()]++
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"total_records":       len(filtered),
		"consumption_records": len(cons),
		"cashflow_records":    len(cash),
		"total_spend":         round2(totalSpend),
		"total_refund":        round2(totalRefund),
		"cashflow_total":      round2(cashflowTotal),
		"platforms":           platforms,
	})
}

type categoryAgg struct {
	l1    string
	l2    string
	total decimal.Decimal
	count int
}

func aggregateByCategory(records []*ledger.Record, byL2 bool) []*categoryAgg {
	idx := map[string]*categoryAgg{}
	var order []string
	for _, rec := range records {
		key := rec.CategoryL1
		if byL2 {
			key = rec.CategoryL1 + "\x00" + rec.CategoryL2
		}
		agg, ok := idx[key]
		if !ok {
			agg = &categoryAgg{l1: rec.CategoryL1, l2: rec.CategoryL2}
			idx[key] = agg
			order = append(order, key)
		}
		agg.total = agg.total.Add(rec.EffectiveAmount)
		agg.count++
	}

	out := make([]*categoryAgg, 0, len(order))
	for _, key := range order {
		out = append(out, idx[key])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].total.GreaterThan(out[j].total)
	})
	return out
}

// ByCategory handles GET /api/by-category: consumption grouped by L1 or
// L1+L2.
func (h *ReportHandler) ByCategory(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilters(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	byL2 := r.URL.Query().Get("level") == "l2"
	aggs := aggregateByCategory(consumption(f.apply(h.ledger)), byL2)

	result := make([]map[string]interface{}, 0, len(aggs))
	for _, agg := range aggs {
		row := map[string]interface{}{
			"category_l1": agg.l1,
			"total":       round2(agg.total),
			"count":       agg.count,
		}
		if byL2 {
			row["category_l2"] = agg.l2
		}
		result = append(result, row)
	}
	middleware.WriteJSON(w, http.StatusOK, result)
}

// ByPeriod handles GET /api/by-period: consumption over time.
func (h *ReportHandler) ByPeriod(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilters(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	granularity := r.URL.Query().Get("granularity")

	type periodAgg struct {
		total decimal.Decimal
		count int
	}
	periods := map[string]*periodAgg{}
	for _, rec := range consumption(f.apply(h.ledger)) {
		var period string
		switch granularity {
		case "year":
			period = rec.Timestamp.Format("2006")
		case "week":
			year, week := rec.Timestamp.ISOWeek()
			period = fmt.Sprintf("%d-W%02d", year, week)
		default:
			period = rec.Timestamp.Format("2006-01")
		}
		agg, ok := periods[period]
		if !ok {
			agg = &periodAgg{}
			periods[period] = agg
		}
		agg.total = agg.total.Add(rec.EffectiveAmount)
		agg.count++
	}

	keys := make([]string, 0, len(periods))
	for k := range periods {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := make([]map[string]interface{}, 0, len(keys))
	for _, k := range keys {
		result = append(result, map[string]interface{}{
			"period": k,
			"total":  round2(periods[k].total),
			"count":  periods[k].count,
		})
	}
	middleware.WriteJSON(w, http.StatusOK, result)
}

// TopMerchants handles GET /api/top-merchants.
func (h *ReportHandler) TopMerchants(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilters(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit := intParam(r, "limit", 15)

	type merchantAgg struct {
		merchant string
		total    decimal.Decimal
		count    int
	}
	idx := map[string]*merchantAgg{}
	var order []string
	for _, rec := range consumption(f.apply(h.ledger)) {
		agg, ok := idx[rec.Counterparty]
		if !ok {
			agg = &merchantAgg{merchant: rec.Counterparty}
			idx[rec.Counterparty] = agg
			order = append(order, rec.Counterparty)
		}
		agg.total = agg.total.Add(rec.EffectiveAmount)
		agg.count++
	}

	aggs := make([]*merchantAgg, 0, len(order))
	for _, k := range order {
		aggs = append(aggs, idx[k])
	}
	sort.SliceStable(aggs, func(i, j int) bool {
		return aggs[i].total.GreaterThan(aggs[j].total)
	})
	if len(aggs) > limit {
		aggs = aggs[:limit]
	}

	result := make([]map[string]interface{}, 0, len(aggs))
	for _, agg := range aggs {
		result = append(result, map[string]interface{}{
			"merchant": agg.merchant,
			"total":    round2(agg.total),
			"count":    agg.count,
		})
	}
	middleware.WriteJSON(w, http.StatusOK, result)
}

// TopCategories handles GET /api/top-categories: like ByCategory but with
// a limit and per-category averages.
func (h *ReportHandler) TopCategories(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilters(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	byL2 := r.URL.Query().Get("level") == "l2"
	limit := intParam(r, "limit", 20)

	aggs := aggregateByCategory(consumption(f.apply(h.ledger)), byL2)
	if len(aggs) > limit {
		aggs = aggs[:limit]
	}

	result := make([]map[string]interface{}, 0, len(aggs))
	for _, agg := range aggs {
		avg := decimal.Zero
		if agg.count > 0 {
			avg = agg.total.Div(decimal.NewFromInt(int64(agg.count)))
		}
		row := map[string]interface{}{
			"total": round2(agg.total),
			"count": agg.count,
			"avg":   round2(avg),
		}
		if byL2 {
			row["category_l1"] = agg.l1
			row["category_l2"] = agg.l2
		} else {
			row["category"] = agg.l1
		}
		result = append(result, row)
	}
	middleware.WriteJSON(w, http.StatusOK, result)
}

// CashflowSummary handles GET /api/cashflow-summary: non-consumption
// money movement grouped by the platform's own labels.
func (h *ReportHandler) CashflowSummary(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilters(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	cash := cashflow(f.apply(h.ledger))

	type catAgg struct {
		category string
		total    decimal.Decimal
		count    int
	}
	idx := map[string]*catAgg{}
	var order []string
	for _, rec := range cash {
		cat := rec.PlatformCategory
		if cat == "" {
			cat = rec.PlatformTxType
		}
		if cat == "" {
			cat = "其他"
		}
		agg, ok := idx[cat]
		if !ok {
			agg = &catAgg{category: cat}
			idx[cat] = agg
			order = append(order, cat)
		}
		agg.total = agg.total.Add(rec.Amount)
		agg.count++
	}

	aggs := make([]*catAgg, 0, len(order))
	for _, k := range order {
		aggs = append(aggs, idx[k])
	}
	sort.SliceStable(aggs, func(i, j int) bool {
		return aggs[i].total.GreaterThan(aggs[j].total)
	})

	categories := make([]map[string]interface{}, 0, len(aggs))
	for _, agg := range aggs {
		categories = append(categories, map[string]interface{}{
			"category": agg.category,
			"total":    round2(agg.total),
			"count":    agg.count,
		})
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"total_records": len(cash),
		"categories":    categories,
	})
}

// transactionDTO is one row of the transaction list response.
type transactionDTO struct {
	Timestamp       string  `json:"timestamp"`
	Platform        string  `json:"platform"`
	UserID          string  `json:"user_id"`
	Counterparty    string  `json:"counterparty"`
	Description     string  `json:"description"`
	Amount          float64 `json:"amount"`
	EffectiveAmount float64 `json:"effective_amount"`
	Direction       string  `json:"direction"`
	CategoryL1      string  `json:"category_l1"`
	CategoryL2      string  `json:"category_l2"`
	PaymentMethod   string  `json:"payment_method"`
	Track           string  `json:"track"`
	IsRefunded      bool    `json:"is_refunded"`
	IsIgnored       bool    `json:"is_ignored"`
}

// Transactions handles GET /api/transactions: the raw list with search
// and pagination. Ignored rows are included; the list view shows
// everything.
func (h *ReportHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilters(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	search := strings.ToLower(r.URL.Query().Get("search"))
	page := intParam(r, "page", 1)
	perPage := intParam(r, "per_page", 50)
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 50
	}

	filtered := f.apply(h.ledger)
	if search != "" {
		var matched []*ledger.Record
		for _, rec := range filtered {
			if strings.Contains(strings.ToLower(rec.Counterparty), search) ||
				strings.Contains(strings.ToLower(rec.Description), search) {
				matched = append(matched, rec)
			}
		}
		filtered = matched
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Timestamp.After(filtered[j].Timestamp)
	})

	total := len(filtered)
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	records := make([]transactionDTO, 0, end-start)
	for _, rec := range filtered[start:end] {
		records = append(records, transactionDTO{
			Timestamp:       rec.Timestamp.Format("2006-01-02 15:04:05"),
			Platform:        rec.Platform.String(),
			UserID:          rec.UserID,
			Counterparty:    rec.Counterparty,
			Description:     rec.Description,
			Amount:          round2(rec.Amount),
			EffectiveAmount: round2(rec.EffectiveAmount),
			Direction:       string(rec.Direction),
			CategoryL1:      rec.CategoryL1,
			CategoryL2:      rec.CategoryL2,
			PaymentMethod:   rec.PaymentMethod,
			Track:           string(rec.Track),
			IsRefunded:      rec.IsRefunded,
			IsIgnored:       rec.IsIgnored,
		})
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"total":    total,
		"page":     page,
		"per_page": perPage,
		"records":  records,
	})
}

func intParam(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
