package models

import "errors"

// ErrDuplicateHash is returned by a store when a content hash is already recorded
var ErrDuplicateHash = errors.New("content hash already recorded")

// Status is the terminal classification of a candidate or one of its targets
type Status string

const (
	StatusSaved                 Status = "saved"
	StatusDeclined              Status = "declined"
	StatusPruned                Status = "pruned"
	StatusSkippedDuplicatePost  Status = "skipped-duplicate-post"
	StatusSkippedDuplicateImage Status = "skipped-duplicate-image"
	StatusDuplicateContent      Status = "duplicate-content"
	StatusFetchFailed           Status = "fetch-failed"
	StatusInvalidContentType    Status = "invalid-content-type"
	StatusCorruptImage          Status = "corrupt-image"
	StatusUnhandledError        Status = "unhandled-error"
)

// Settled reports whether a target needs no further work in later runs
func (s Status) Settled() bool {
	switch s {
	case StatusSaved, StatusDuplicateContent, StatusSkippedDuplicateImage, StatusSkippedDuplicatePost:
		return true
	}
	return false
}

// Failed reports whether the status puts the candidate on the unhandled list
func (s Status) Failed() bool {
	return s == StatusFetchFailed || s == StatusUnhandledError
}

// Rejected reports whether the fetched content itself was refused
func (s Status) Rejected() bool {
	return s == StatusInvalidContentType || s == StatusCorruptImage
}

// Skipped reports the dedup skip outcomes
func (s Status) Skipped() bool {
	switch s {
	case StatusPruned, StatusSkippedDuplicatePost, StatusSkippedDuplicateImage:
		return true
	}
	return false
}

// Outcome is one event emitted by the pipeline. Target is nil for events
// that concern the whole candidate (pruned, declined, resolution failure).
type Outcome struct {
	Candidate Candidate
	Target    *Candidate
	Status    Status
	Err       error
	Path      string
	Bytes     int
	Index     int
	Total     int
}

// URL returns the url the outcome refers to
func (o Outcome) URL() string {
	if o.Target != nil {
		return o.Target.URL
	}
	return o.Candidate.URL
}

// Result collects the per-run outcome lists and counters
type Result struct {
	Handled     []Candidate
	Unhandled   []Candidate
	Outcomes    []Outcome
	Saved       int
	Duplicates  int
	Skipped     int
	Declined    int
	Rejected    int
	Failed      int
	Bytes       int64
	Interrupted bool
}

// Tally adds one outcome to the counters
func (r *Result) Tally(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	switch {
	case o.Status == StatusSaved:
		r.Saved++
		r.Bytes += int64(o.Bytes)
	case o.Status == StatusDuplicateContent:
		r.Duplicates++
	case o.Status == StatusDeclined:
		r.Declined++
	case o.Status.Skipped():
		r.Skipped++
	case o.Status.Rejected():
		r.Rejected++
	case o.Status.Failed():
		r.Failed++
	}
}

// Total returns the number of recorded outcomes
func (r *Result) Total() int {
	return len(r.Outcomes)
}
