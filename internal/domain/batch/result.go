// Package batch reports per-item outcomes of bulk indexing.
package batch

// ItemStatus is the processing outcome of a single batch item.
type ItemStatus string

// Batch item status values.
const (
	StatusIndexed ItemStatus = "indexed"
	StatusRemoved ItemStatus = "removed"
	StatusError   ItemStatus = "error"
)

// Result is the outcome of processing one snapshot in a bulk index call.
type Result struct {
	id     string
	status ItemStatus
	err    error
}

// NewIndexed creates a result for a written document.
func NewIndexed(id string) Result { return Result{id: id, status: StatusIndexed} }

// NewRemoved creates a result for a snapshot that was not indexable and got removed.
func NewRemoved(id string) Result { return Result{id: id, status: StatusRemoved} }

// NewError creates a failed batch result.
func NewError(id string, err error) Result { return Result{id: id, status: StatusError, err: err} }

// ID returns the candidate identifier. Empty when the snapshot carried none.
func (r Result) ID() string { return r.id }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// Summary aggregates a bulk call.
type Summary struct {
	Results []Result
}

// Indexed counts the written documents.
func (s Summary) Indexed() int {
	n := 0
	for _, r := range s.Results {
		if r.status == StatusIndexed {
			n++
		}
	}
	return n
}

// Errors returns the per-item failures in input order.
func (s Summary) Errors() []error {
	var out []error
	for _, r := range s.Results {
		if r.err != nil {
			out = append(out, r.err)
		}
	}
	return out
}
