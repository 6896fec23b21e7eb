package ratchet

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/ratchet/internal/runner"
	"github.com/roach88/ratchet/internal/status"
)

// PendingHistory is the engine's view of the status file's history.
type PendingHistory interface {
	// WasEverPending reports whether any committed snapshot since the
	// baseline recorded id as pending.
	WasEverPending(id string) bool
}

// Decision is the engine's output: the next status document and the
// violations, ordered by test identifier then kind.
type Decision struct {
	Next       *status.Document
	Violations []Violation
}

// Clean reports whether the decision carries no violations.
func (d *Decision) Clean() bool {
	return len(d.Violations) == 0
}

// Engine evaluates runs. The zero value is ready to use.
type Engine struct {
	// Exempt names tests that may appear directly as passing (the guard).
	Exempt func(id string) bool
	// Workers bounds parallel per-test evaluation; values below 2 evaluate
	// sequentially.
	Workers int
}

// Evaluate is Engine{}.Evaluate without exemptions or parallelism.
func Evaluate(prior *status.Document, results []runner.Result, hist PendingHistory) (*Decision, error) {
	var e Engine
	return e.Evaluate(context.Background(), prior, results, hist)
}

// verdict is the evaluation of a single test.
type verdict struct {
	next      status.TestState
	record    bool
	violation *Violation
}

// Evaluate computes the decision for one run. prior is not modified.
// A run reporting an identifier twice fails with *runner.DuplicateError.
func (e *Engine) Evaluate(ctx context.Context, prior *status.Document, results []runner.Result, hist PendingHistory) (*Decision, error) {
	if prior == nil {
		prior = status.NewDocument()
	}
	if err := runner.CheckDuplicates(results); err != nil {
		return nil, err
	}

	outcomes := make(map[string]runner.Outcome, len(results))
	for _, r := range results {
		outcomes[status.NormalizeID(r.ID)] = r.Outcome
	}

	ids := prior.IDs()
	for id := range outcomes {
		if _, tracked := prior.Get(id); !tracked {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	verdicts := make([]verdict, len(ids))
	evalOne := func(i int) {
		id := ids[i]
		st, tracked := prior.Get(id)
		outcome, ran := outcomes[id]
		verdicts[i] = e.rule(id, st, tracked, outcome, ran, hist)
	}

	if e.Workers > 1 && len(ids) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.Workers)
		for i := range ids {
			i := i
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				evalOne(i)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i := range ids {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			evalOne(i)
		}
	}

	d := &Decision{Next: status.NewDocument()}
	for i, id := range ids {
		v := verdicts[i]
		if v.record {
			d.Next.Set(id, v.next)
		}
		if v.violation != nil {
			d.Violations = append(d.Violations, *v.violation)
		}
	}
	SortViolations(d.Violations)
	return d, nil
}

// rule applies the transition table to one test.
func (e *Engine) rule(id string, prior status.TestState, tracked bool, outcome runner.Outcome, ran bool, hist PendingHistory) verdict {
	if !tracked {
		switch {
		case !ran || outcome == runner.Skipped:
			return verdict{}
		case outcome == runner.Failed:
			return verdict{next: status.Pending, record: true}
		case e.Exempt != nil && e.Exempt(id):
			return verdict{next: status.Passing, record: true}
		default:
			v := newTestPassed(id)
			return verdict{next: status.Pending, record: true, violation: &v}
		}
	}

	keep := verdict{next: prior, record: true}
	if !ran {
		v := silentRemoval(id, prior)
		keep.violation = &v
		return keep
	}
	if outcome == runner.Skipped {
		return keep
	}

	switch prior {
	case status.Pending:
		if outcome == runner.Passed {
			if hist != nil && hist.WasEverPending(id) {
				return verdict{next: status.Passing, record: true}
			}
			v := skippedPending(id)
			keep.violation = &v
		}
	case status.Passing:
		if outcome == runner.Failed {
			v := regression(id)
			keep.violation = &v
		}
	}
	return keep
}
