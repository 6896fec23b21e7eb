package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/ratchet/internal/status"
)

// DefaultWorkers bounds concurrent blob reads during a walk.
const DefaultWorkers = 8

// Walker replays a repository's history of the status file.
type Walker struct {
	// Git is the repository handle. Required.
	Git Git
	// Path is the repository-relative, slash-separated status file path.
	Path string
	// Exempt names tests allowed to appear directly as passing.
	Exempt func(id string) bool
	// Workers bounds concurrent blob reads; zero means DefaultWorkers.
	Workers int
}

// Options tune a single walk.
type Options struct {
	// Baseline overrides automatic baseline selection when non-empty.
	Baseline string
}

// History is the outcome of a successful walk.
type History struct {
	Head     string
	Baseline string
	// BaselineIntroduced is true when the baseline is the commit that first
	// introduced the status file (rather than the first commit or an override).
	BaselineIntroduced bool
	Arena              *Arena

	pending map[string]bool
}

// WasEverPending reports whether any snapshot recorded id as pending.
func (h *History) WasEverPending(id string) bool {
	if h == nil {
		return false
	}
	return h.pending[id]
}

// Empty returns the history of a repository without commits.
func Empty() *History {
	return &History{Arena: newArena(nil), pending: map[string]bool{}}
}

// Walk determines the baseline, replays snapshots oldest first, and
// verifies transitions. A *SnapshotError or *ConsistencyError is fatal.
func (w *Walker) Walk(ctx context.Context, opts Options) (*History, error) {
	if w.Git == nil {
		return nil, errors.New("history walker: no git repository handle")
	}

	head, err := w.Git.Head(ctx)
	if errors.Is(err, ErrNoCommits) {
		slog.Debug("repository has no commits, history is empty")
		return Empty(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}

	commits, err := w.Git.Ancestry(ctx, head)
	if err != nil {
		return nil, fmt.Errorf("list ancestry of %s: %w", shortID(head), err)
	}
	if len(commits) == 0 {
		return Empty(), nil
	}

	blobs, err := w.resolveBlobs(ctx, commits)
	if err != nil {
		return nil, err
	}

	base, introduced, err := w.selectBaseline(ctx, commits, blobs, opts.Baseline)
	if err != nil {
		return nil, err
	}

	snapshots, err := w.replay(ctx, commits, blobs, base)
	if err != nil {
		return nil, err
	}

	h := &History{
		Head:               head,
		Baseline:           commits[base],
		BaselineIntroduced: introduced,
		Arena:              newArena(snapshots),
		pending:            map[string]bool{},
	}
	slog.Debug("history replayed",
		"head", shortID(head),
		"baseline", shortID(h.Baseline),
		"commits", len(commits)-base,
		"snapshots", len(snapshots),
	)

	if faults := VerifyTransitions(snapshots, w.Exempt); len(faults) > 0 {
		return nil, &ConsistencyError{Faults: faults}
	}

	for _, snap := range snapshots {
		for _, id := range snap.Document.IDs() {
			if st, _ := snap.Document.Get(id); st == status.Pending {
				h.pending[id] = true
			}
		}
	}
	return h, nil
}

// blobRef is the status file blob at one commit ("" when absent).
type blobRef struct {
	id    string
	found bool
}

func (w *Walker) workers() int {
	if w.Workers > 0 {
		return w.Workers
	}
	return DefaultWorkers
}

// resolveBlobs looks up the status file blob at every commit in one batch,
// preserving ancestry order in the result.
func (w *Walker) resolveBlobs(ctx context.Context, commits []string) ([]blobRef, error) {
	ids, err := w.Git.BlobIDs(ctx, commits, w.Path)
	if err != nil {
		return nil, fmt.Errorf("look up %s across %d commits: %w", w.Path, len(commits), err)
	}
	if len(ids) != len(commits) {
		return nil, fmt.Errorf("look up %s: %d blob ids for %d commits", w.Path, len(ids), len(commits))
	}
	blobs := make([]blobRef, len(commits))
	for i, id := range ids {
		blobs[i] = blobRef{id: id, found: id != ""}
	}
	return blobs, nil
}

// selectBaseline returns the index of the baseline commit and whether it
// is the commit that introduced the status file.
func (w *Walker) selectBaseline(ctx context.Context, commits []string, blobs []blobRef, override string) (int, bool, error) {
	if override != "" {
		id, err := w.Git.Resolve(ctx, override)
		if err != nil {
			return 0, false, fmt.Errorf("resolve baseline %q: %w", override, err)
		}
		for i, c := range commits {
			if c == id {
				return i, false, nil
			}
		}
		return 0, false, fmt.Errorf("%w: %s", ErrBaselineNotAncestor, override)
	}

	for i, b := range blobs {
		if b.found {
			return i, true, nil
		}
	}
	// The file was never committed: the whole history is authoritative.
	return 0, false, nil
}

// replay builds snapshots from the baseline forward. Only commits that
// changed the status file content produce a snapshot.
func (w *Walker) replay(ctx context.Context, commits []string, blobs []blobRef, base int) ([]*Snapshot, error) {
	var snapshots []*Snapshot
	prev := ""
	deleted := false
	for i := base; i < len(commits); i++ {
		b := blobs[i]
		if !b.found {
			deleted = prev != "" || deleted
			prev = ""
			continue
		}
		if i == base || b.id != prev {
			snapshots = append(snapshots, &Snapshot{
				Commit:        commits[i],
				Blob:          b.id,
				Grandfathered: i == base,
				Reintroduced:  deleted,
			})
			deleted = false
		}
		prev = b.id
	}

	// Blobs are read and parsed concurrently; each goroutine owns one slot.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.workers())
	for _, snap := range snapshots {
		snap := snap
		g.Go(func() error {
			data, err := w.Git.ReadBlob(gctx, snap.Blob)
			if err != nil {
				return &SnapshotError{Commit: snap.Commit, Err: err}
			}
			doc, err := status.Parse(data, shortID(snap.Commit)+":"+w.Path)
			if err != nil {
				return &SnapshotError{Commit: snap.Commit, Err: err}
			}
			snap.Document = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snapshots, nil
}
