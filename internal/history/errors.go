package history

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotRepository means the project directory is not inside a git work tree.
	ErrNotRepository = errors.New("not a git repository")

	// ErrNoCommits means the repository has no commits yet.
	ErrNoCommits = errors.New("repository has no commits")

	// ErrBaselineNotAncestor means an explicit baseline is not reachable from HEAD.
	ErrBaselineNotAncestor = errors.New("baseline is not an ancestor of HEAD")
)

// SnapshotError reports status file content at a commit that failed to parse.
type SnapshotError struct {
	Commit string
	Err    error
}

func (e *SnapshotError) Error() string {
	return fmt.Sprintf("status file at commit %s: %v", shortID(e.Commit), e.Err)
}

func (e *SnapshotError) Unwrap() error {
	return e.Err
}

// Fault is one illegal state transition observed across snapshots.
type Fault struct {
	Test   string
	Commit string
	From   string // "absent", "pending" or "passing"
	To     string
}

func (f Fault) String() string {
	return fmt.Sprintf("%s: %s → %s at commit %s", f.Test, f.From, f.To, shortID(f.Commit))
}

// ConsistencyError reports illegal transitions found in history.
type ConsistencyError struct {
	Faults []Fault
}

func (e *ConsistencyError) Error() string {
	lines := make([]string, 0, len(e.Faults))
	for _, f := range e.Faults {
		lines = append(lines, "  "+f.String())
	}
	return fmt.Sprintf("inconsistent status history (%d illegal transition(s)):\n%s",
		len(e.Faults), strings.Join(lines, "\n"))
}

func shortID(commit string) string {
	if len(commit) > 12 {
		return commit[:12]
	}
	return commit
}
