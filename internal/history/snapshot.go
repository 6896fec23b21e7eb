package history

import (
	"github.com/roach88/ratchet/internal/status"
)

// Snapshot is the status document as committed at one commit.
type Snapshot struct {
	Commit string
	Blob   string
	// Document must not be modified.
	Document *status.Document
	// Grandfathered marks the baseline snapshot, whose entries are exempt
	// from transition checking.
	Grandfathered bool
	// Reintroduced marks a snapshot taken after the status file had been
	// deleted; every entry in it is judged as a fresh appearance.
	Reintroduced bool
}

// Arena holds the snapshots of one walk in ancestry order, indexed by commit.
type Arena struct {
	order    []*Snapshot
	byCommit map[string]*Snapshot
}

func newArena(snapshots []*Snapshot) *Arena {
	a := &Arena{
		order:    snapshots,
		byCommit: make(map[string]*Snapshot, len(snapshots)),
	}
	for _, s := range snapshots {
		a.byCommit[s.Commit] = s
	}
	return a
}

// Len returns the number of snapshots.
func (a *Arena) Len() int {
	return len(a.order)
}

// At returns the i-th snapshot, oldest first.
func (a *Arena) At(i int) *Snapshot {
	return a.order[i]
}

// Get returns the snapshot taken at commit, if any.
func (a *Arena) Get(commit string) (*Snapshot, bool) {
	s, ok := a.byCommit[commit]
	return s, ok
}

// Snapshots returns the snapshots oldest first. The slice is a copy.
func (a *Arena) Snapshots() []*Snapshot {
	out := make([]*Snapshot, len(a.order))
	copy(out, a.order)
	return out
}
