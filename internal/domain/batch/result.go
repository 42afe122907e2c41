// Package batch holds per-item outcome types for bulk ingestion, so a single
// failed or skipped vacancy never hides inside an aggregate error.
package batch

// ItemStatus is the processing outcome of a single ingested item.
type ItemStatus string

// Item status values.
const (
	StatusOK      ItemStatus = "ok"
	StatusSkipped ItemStatus = "skipped"
	StatusError   ItemStatus = "error"
)

// Result is the outcome of processing one item in a bulk ingestion.
type Result struct {
	id     string
	status ItemStatus
	reason string
	err    error
}

// NewOK creates a successful item result.
func NewOK(id string) Result { return Result{id: id, status: StatusOK} }

// NewSkipped creates a result for an item rejected before embedding.
func NewSkipped(id, reason string) Result {
	return Result{id: id, status: StatusSkipped, reason: reason}
}

// NewError creates a failed item result.
func NewError(id string, err error) Result {
	return Result{id: id, status: StatusError, err: err}
}

// ID returns the item identifier.
func (r Result) ID() string { return r.id }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Reason returns the skip reason, if any.
func (r Result) Reason() string { return r.reason }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// Summary aggregates item results for an ingestion response.
type Summary struct {
	Ingested int
	Skipped  int
	Failed   int
}

// Summarize counts item outcomes.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		switch r.Status() {
		case StatusOK:
			s.Ingested++
		case StatusSkipped:
			s.Skipped++
		case StatusError:
			s.Failed++
		}
	}
	return s
}
