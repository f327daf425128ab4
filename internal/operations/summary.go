package operations

import (
	"errors"

	"dualfm/pkg/fileops"
)

// Result classifies a finished batch.
type Result int

const (
	// Success means every attempted item succeeded.
	Success Result = iota
	// Partial means some items succeeded and some failed.
	Partial
	// Failure means every attempted item failed.
	Failure
)

func (r Result) String() string {
	switch r {
	case Success:
		return "success"
	case Partial:
		return "partial"
	case Failure:
		return "failure"
	default:
		return "unknown"
	}
}

// ItemError records one failed item in a batch, pairing the item as the
// caller named it with the error that stopped it.
type ItemError struct {
	Item string
	Err  error
}

// Summary folds the per-item outcomes of one bulk operation into a single
// value the UI can render. Cancelled is orthogonal to Result: a batch
// cancelled after some successes still classifies by its counts, and the
// flag tells the UI to say "cancelled" rather than "failed".
type Summary struct {
	Result       Result
	SuccessCount int
	ErrorCount   int
	Errors       []ItemError
	Cancelled    bool
}

func (s *Summary) ok() {
	s.SuccessCount++
}

func (s *Summary) fail(item string, err error) {
	s.ErrorCount++
	s.Errors = append(s.Errors, ItemError{Item: item, Err: err})
	if errors.Is(err, fileops.ErrCancelled) {
		s.Cancelled = true
	}
}

// classify derives Result from the counts: Success when nothing failed,
// Failure when nothing succeeded but something failed, Partial for the mix.
func (s *Summary) classify() {
	switch {
	case s.ErrorCount == 0:
		s.Result = Success
	case s.SuccessCount == 0:
		s.Result = Failure
	default:
		s.Result = Partial
	}
}
