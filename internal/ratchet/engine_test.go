package ratchet

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ratchet/internal/runner"
	"github.com/roach88/ratchet/internal/status"
)

// pendingSet is a PendingHistory backed by a set.
type pendingSet map[string]bool

func (p pendingSet) WasEverPending(id string) bool { return p[id] }

func doc(tests map[string]status.TestState) *status.Document {
	return status.FromMap(tests)
}

func run(pairs ...any) []runner.Result {
	var out []runner.Result
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, runner.Result{ID: pairs[i].(string), Outcome: pairs[i+1].(runner.Outcome)})
	}
	return out
}

func TestEvaluate_ScenarioA_NewFailingTestBecomesPending(t *testing.T) {
	d, err := Evaluate(status.NewDocument(), run("foo::bar", runner.Failed), pendingSet{})
	require.NoError(t, err)
	assert.Equal(t, map[string]status.TestState{"foo::bar": status.Pending}, d.Next.Map())
	assert.Empty(t, d.Violations)
	assert.True(t, d.Clean())
}

func TestEvaluate_ScenarioB_NewPassingTestIsViolation(t *testing.T) {
	d, err := Evaluate(status.NewDocument(), run("foo::bar", runner.Passed), pendingSet{})
	require.NoError(t, err)
	assert.Equal(t, map[string]status.TestState{"foo::bar": status.Pending}, d.Next.Map())
	require.Len(t, d.Violations, 1)
	assert.Equal(t, NewTestPassedImmediately, d.Violations[0].Kind)
	assert.Equal(t, "foo::bar", d.Violations[0].Test)
}

func TestEvaluate_ScenarioC_PromotionAfterCommittedPending(t *testing.T) {
	prior := doc(map[string]status.TestState{"foo::bar": status.Pending})
	d, err := Evaluate(prior, run("foo::bar", runner.Passed), pendingSet{"foo::bar": true})
	require.NoError(t, err)
	assert.Equal(t, map[string]status.TestState{"foo::bar": status.Passing}, d.Next.Map())
	assert.Empty(t, d.Violations)
}

func TestEvaluate_ScenarioD_RegressionKeepsPassing(t *testing.T) {
	prior := doc(map[string]status.TestState{"foo::bar": status.Passing})
	d, err := Evaluate(prior, run("foo::bar", runner.Failed), pendingSet{})
	require.NoError(t, err)
	assert.Equal(t, map[string]status.TestState{"foo::bar": status.Passing}, d.Next.Map())
	require.Len(t, d.Violations, 1)
	assert.Equal(t, Regression, d.Violations[0].Kind)
}

func TestEvaluate_ScenarioE_SilentRemoval(t *testing.T) {
	prior := doc(map[string]status.TestState{
		"foo::bar": status.Pending,
		"baz::qux": status.Passing,
	})
	d, err := Evaluate(prior, run("foo::bar", runner.Failed), pendingSet{})
	require.NoError(t, err)
	assert.True(t, prior.Equal(d.Next))
	require.Len(t, d.Violations, 1)
	assert.Equal(t, Violation{
		Test:   "baz::qux",
		Kind:   SilentRemoval,
		Detail: "tracked as passing but missing from the test run",
	}, d.Violations[0])
}

func TestEvaluate_RuleTable(t *testing.T) {
	tests := []struct {
		name      string
		prior     map[string]status.TestState
		outcome   *runner.Outcome
		pending   bool
		exempt    bool
		wantState status.TestState // "" means not recorded
		wantKind  Kind             // "" means no violation
	}{
		{name: "absent failed", outcome: ptr(runner.Failed), wantState: status.Pending},
		{name: "absent passed", outcome: ptr(runner.Passed), wantState: status.Pending, wantKind: NewTestPassedImmediately},
		{name: "absent passed guard", outcome: ptr(runner.Passed), exempt: true, wantState: status.Passing},
		{name: "absent failed guard", outcome: ptr(runner.Failed), exempt: true, wantState: status.Pending},
		{name: "absent skipped", outcome: ptr(runner.Skipped)},
		{name: "pending failed", prior: pending(), outcome: ptr(runner.Failed), wantState: status.Pending},
		{name: "pending passed with history", prior: pending(), outcome: ptr(runner.Passed), pending: true, wantState: status.Passing},
		{name: "pending passed without history", prior: pending(), outcome: ptr(runner.Passed), wantState: status.Pending, wantKind: SkippedPendingState},
		{name: "pending skipped", prior: pending(), outcome: ptr(runner.Skipped), wantState: status.Pending},
		{name: "pending missing", prior: pending(), wantState: status.Pending, wantKind: SilentRemoval},
		{name: "passing passed", prior: passing(), outcome: ptr(runner.Passed), wantState: status.Passing},
		{name: "passing failed", prior: passing(), outcome: ptr(runner.Failed), wantState: status.Passing, wantKind: Regression},
		{name: "passing skipped", prior: passing(), outcome: ptr(runner.Skipped), wantState: status.Passing},
		{name: "passing missing", prior: passing(), wantState: status.Passing, wantKind: SilentRemoval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var results []runner.Result
			if tt.outcome != nil {
				results = run("t", *tt.outcome)
			}
			e := &Engine{}
			if tt.exempt {
				e.Exempt = func(id string) bool { return id == "t" }
			}
			d, err := e.Evaluate(context.Background(), doc(tt.prior), results, pendingSet{"t": tt.pending})
			require.NoError(t, err)

			st, ok := d.Next.Get("t")
			if tt.wantState == "" {
				assert.False(t, ok, "test should not be recorded")
			} else {
				require.True(t, ok)
				assert.Equal(t, tt.wantState, st)
			}

			if tt.wantKind == "" {
				assert.Empty(t, d.Violations)
			} else {
				require.Len(t, d.Violations, 1)
				assert.Equal(t, tt.wantKind, d.Violations[0].Kind)
			}
		})
	}
}

func TestEvaluate_DuplicateIdentifierIsRejected(t *testing.T) {
	_, err := Evaluate(status.NewDocument(), run("a", runner.Failed, "a", runner.Passed), nil)
	var dup *runner.DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "a", dup.ID)

	// NFC and NFD spellings of one name are the same test.
	_, err = Evaluate(status.NewDocument(), run("pkg::caf\u00e9", runner.Failed, "pkg::cafe\u0301", runner.Passed), nil)
	require.ErrorAs(t, err, &dup)
}

func TestEvaluate_NilHistoryNeverPromotes(t *testing.T) {
	prior := doc(map[string]status.TestState{"a": status.Pending})
	d, err := Evaluate(prior, run("a", runner.Passed), nil)
	require.NoError(t, err)
	require.Len(t, d.Violations, 1)
	assert.Equal(t, SkippedPendingState, d.Violations[0].Kind)
}

func TestEvaluate_DoesNotModifyPrior(t *testing.T) {
	prior := doc(map[string]status.TestState{"a": status.Pending})
	before := prior.Clone()
	_, err := Evaluate(prior, run("a", runner.Passed, "b", runner.Failed), pendingSet{"a": true})
	require.NoError(t, err)
	assert.True(t, before.Equal(prior))
}

func TestEvaluate_ViolationsOrderedByTest(t *testing.T) {
	prior := doc(map[string]status.TestState{
		"c": status.Passing,
		"a": status.Passing,
	})
	d, err := Evaluate(prior, run("b", runner.Passed, "c", runner.Failed), nil)
	require.NoError(t, err)

	var got []string
	for _, v := range d.Violations {
		got = append(got, fmt.Sprintf("%s/%s", v.Test, v.Kind))
	}
	assert.Equal(t, []string{
		"a/SilentRemoval",
		"b/NewTestPassedImmediately",
		"c/Regression",
	}, got)
}

func TestEvaluate_Idempotent(t *testing.T) {
	prior := doc(map[string]status.TestState{
		"p": status.Pending,
		"q": status.Passing,
		"r": status.Pending,
	})
	results := run("p", runner.Passed, "q", runner.Passed, "r", runner.Failed, "s", runner.Failed)
	hist := pendingSet{"p": true}

	first, err := Evaluate(prior, results, hist)
	require.NoError(t, err)
	second, err := Evaluate(first.Next, results, hist)
	require.NoError(t, err)

	assert.True(t, first.Next.Equal(second.Next))
	assert.Equal(t, first.Violations, second.Violations)
}

func TestEvaluate_MonotonicAndComplete(t *testing.T) {
	prior := doc(map[string]status.TestState{
		"p1":   status.Pending,
		"p2":   status.Pending,
		"q1":   status.Passing,
		"q2":   status.Passing,
		"gone": status.Passing,
	})
	results := run(
		"p1", runner.Passed,
		"p2", runner.Failed,
		"q1", runner.Failed,
		"q2", runner.Skipped,
		"new1", runner.Passed,
		"new2", runner.Failed,
	)
	d, err := Evaluate(prior, results, pendingSet{"p1": true})
	require.NoError(t, err)

	for _, id := range prior.IDs() {
		before, _ := prior.Get(id)
		after, ok := d.Next.Get(id)
		require.True(t, ok, "%s dropped from the next document", id)
		if before == status.Passing {
			assert.Equal(t, status.Passing, after, "%s moved backwards", id)
		}
	}
	for _, r := range results {
		if r.Outcome == runner.Skipped {
			continue
		}
		_, ok := d.Next.Get(r.ID)
		assert.True(t, ok, "%s executed but not recorded", r.ID)
	}
}

func TestEvaluate_PromotionGating(t *testing.T) {
	prior := doc(map[string]status.TestState{"a": status.Pending, "b": status.Pending})
	d, err := Evaluate(prior, run("a", runner.Passed, "b", runner.Passed), pendingSet{"a": true})
	require.NoError(t, err)

	a, _ := d.Next.Get("a")
	b, _ := d.Next.Get("b")
	assert.Equal(t, status.Passing, a)
	assert.Equal(t, status.Pending, b, "b was never committed as pending")
}

func TestEngine_ParallelMatchesSequential(t *testing.T) {
	prior := status.NewDocument()
	var results []runner.Result
	hist := pendingSet{}
	for i := 0; i < 200; i++ {
		id := fmt.Sprintf("pkg::Test%03d", i)
		switch i % 4 {
		case 0:
			prior.Set(id, status.Pending)
			hist[id] = i%8 == 0
			results = append(results, runner.Result{ID: id, Outcome: runner.Passed})
		case 1:
			prior.Set(id, status.Passing)
			results = append(results, runner.Result{ID: id, Outcome: runner.Failed})
		case 2:
			prior.Set(id, status.Passing)
		case 3:
			results = append(results, runner.Result{ID: id, Outcome: runner.Passed})
		}
	}

	seq, err := (&Engine{}).Evaluate(context.Background(), prior, results, hist)
	require.NoError(t, err)
	par, err := (&Engine{Workers: 8}).Evaluate(context.Background(), prior, results, hist)
	require.NoError(t, err)

	assert.True(t, seq.Next.Equal(par.Next))
	assert.Equal(t, seq.Violations, par.Violations)
	// Half of the pending tests have history and promote cleanly.
	assert.Len(t, seq.Violations, 175)
}

func TestEngine_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&Engine{}).Evaluate(ctx, status.NewDocument(), run("a", runner.Failed), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGuardViolation(t *testing.T) {
	v := GuardViolation("TestRatchetGatekeeper")
	assert.Equal(t, MissingGuard, v.Kind)
	assert.Equal(t, "TestRatchetGatekeeper", v.Test)
	assert.Contains(t, v.Detail, "TestRatchetGatekeeper")
}

func TestKindRule(t *testing.T) {
	for _, k := range Kinds {
		assert.NotEqual(t, "unknown rule", k.Rule(), k)
	}
	assert.Equal(t, "unknown rule", Kind("Bogus").Rule())
}

func ptr(o runner.Outcome) *runner.Outcome { return &o }

func pending() map[string]status.TestState {
	return map[string]status.TestState{"t": status.Pending}
}

func passing() map[string]status.TestState {
	return map[string]status.TestState{"t": status.Passing}
}
