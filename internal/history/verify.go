package history

import (
	"github.com/roach88/ratchet/internal/status"
)

const stateAbsent = "absent"

// VerifyTransitions checks every test's sequence of states across the
// ordered snapshots. exempt, when non-nil, names tests allowed to appear
// directly as passing (the bypass-prevention guard).
//
// Returns the faults in snapshot order, then test identifier order.
func VerifyTransitions(snapshots []*Snapshot, exempt func(id string) bool) []Fault {
	var faults []Fault
	var prev *status.Document

	for _, snap := range snapshots {
		if snap.Reintroduced {
			prev = nil
		}
		for _, id := range snap.Document.IDs() {
			to, _ := snap.Document.Get(id)
			if snap.Grandfathered {
				continue
			}

			from := stateAbsent
			if prev != nil {
				if st, ok := prev.Get(id); ok {
					from = st.String()
				}
			}

			if !allowedEdge(from, to.String()) {
				if from == stateAbsent && to == status.Passing && exempt != nil && exempt(id) {
					continue
				}
				faults = append(faults, Fault{Test: id, Commit: snap.Commit, From: from, To: to.String()})
			}
		}
		prev = snap.Document
	}
	return faults
}

func allowedEdge(from, to string) bool {
	switch from {
	case stateAbsent:
		return to == string(status.Pending)
	case string(status.Pending):
		return to == string(status.Pending) || to == string(status.Passing)
	case string(status.Passing):
		return to == string(status.Passing)
	}
	return false
}
