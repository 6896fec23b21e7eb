// Package history reconstructs past status snapshots from git commits and
// verifies that no test skipped its required failing stage.
//
// # Collaborator
//
// Git access goes through the read-only Git interface, injected by the
// caller. The production implementation (CLI) shells out to the git
// binary and never touches the working tree, the index or any ref.
//
// # Baseline
//
// If no ancestor commit contains the status file, the baseline is the
// repository's first commit. Otherwise it is the commit that first
// introduced the file, and the snapshot taken there is grandfathered:
// tests recorded in it are exempt from transition checking. An explicit
// baseline overrides automatic selection.
//
// # Replay
//
// Ancestry is walked oldest first from the baseline to HEAD. A snapshot is
// taken at the baseline (when the file exists there) and at every later
// commit whose status file blob differs from its predecessor's. Snapshots
// are immutable and kept in an Arena indexed by commit id; they are built
// once per invocation and discarded afterwards.
//
// # Transitions
//
// Across ordered snapshots each test may only move along
//
//	absent  → pending
//	pending → pending
//	pending → passing
//	passing → passing
//
// Removing an entry is allowed (it is how an intentionally deleted test is
// retired); a later re-appearance is judged as a fresh entry. Any other edge
// is a Fault, and faults abort the run: the ratchet cannot be trusted on top
// of an inconsistent history.
//
// The engine never sees snapshots. It only asks History.WasEverPending.
package history
