package runner

import (
	"fmt"

	"github.com/roach88/ratchet/internal/status"
)

// Outcome is the result of one test in the current run.
type Outcome int

const (
	// Failed means the test ran and failed.
	Failed Outcome = iota
	// Passed means the test ran and succeeded.
	Passed
	// Skipped means the harness reported the test but did not execute it
	// (go test skip, libtest ignored).
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Passed:
		return "passed"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result pairs a test identifier with its outcome.
type Result struct {
	ID      string
	Outcome Outcome
}

// DuplicateError reports a run that contains the same identifier twice.
// The run is malformed and cannot be reconciled.
type DuplicateError struct {
	ID string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("malformed test run: identifier %q reported more than once", e.ID)
}

// CheckDuplicates returns a *DuplicateError for the first identifier that
// appears more than once in results. Identifiers are compared in NFC form,
// the form the status document keys on.
func CheckDuplicates(results []Result) error {
	seen := make(map[string]struct{}, len(results))
	for _, r := range results {
		id := status.NormalizeID(r.ID)
		if _, ok := seen[id]; ok {
			return &DuplicateError{ID: r.ID}
		}
		seen[id] = struct{}{}
	}
	return nil
}
