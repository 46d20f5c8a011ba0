package ledger

// Ledger is the merged record collection one pipeline run operates on.
// Ownership is exclusive for the duration of a run: netting and
// classification mutate records sequentially and nothing else writes.
type Ledger struct {
	records []*Record
}

// RejectedRecord reports a record that failed structural validation during
// merge. One malformed row never aborts the batch; it is excluded and
// surfaced to the caller instead.
type RejectedRecord struct {
	Record *Record
	Reason error
}

// Merge combines per-platform record batches into a single ledger.
// Structurally invalid records are rejected, and duplicate
// (platform, transaction_id) pairs keep the first occurrence, since
// quarterly export files overlap at the boundaries.
func Merge(batches ...[]*Record) (*Ledger, []RejectedRecord) {
	var rejected []RejectedRecord
	seen := make(map[RecordKey]bool)
	l := &Ledger{}

	for _, batch := range batches {
		for _, r := range batch {
			if err := r.Validate(); err != nil {
				rejected = append(rejected, RejectedRecord{Record: r, Reason: err})
				continue
			}
			key := r.Key()
			if seen[key] {
				continue
			}
			seen[key] = true
			l.records = append(l.records, r)
		}
	}
	return l, rejected
}

// FromRecords wraps an already-validated record slice, for loading a
// previously processed ledger back from storage.
func FromRecords(records []*Record) *Ledger {
	return &Ledger{records: records}
}

// Records returns all records in ingestion order.
func (l *Ledger) Records() []*Record {
	return l.records
}

// Len returns the number of records.
func (l *Ledger) Len() int {
	return len(l.records)
}

// ByPlatform returns the records originating from one platform, preserving
// order.
func (l *Ledger) ByPlatform(p Platform) []*Record {
	var out []*Record
	for _, r := range l.records {
		if r.Platform == p {
			out = append(out, r)
		}
	}
	return out
}

// Consumption returns the consumption view: real spend rows only.
func (l *Ledger) Consumption() []*Record {
	var out []*Record
	for _, r := range l.records {
		if r.Track == TrackConsumption && !r.IsIgnored {
			out = append(out, r)
		}
	}
	return out
}

// Cashflow returns the cashflow view: non-spend money movement.
func (l *Ledger) Cashflow() []*Record {
	var out []*Record
	for _, r := range l.records {
		if r.Track == TrackCashflow {
			out = append(out, r)
		}
	}
	return out
}
