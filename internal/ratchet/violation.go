package ratchet

import (
	"fmt"
	"sort"

	"github.com/roach88/ratchet/internal/status"
)

// Kind names the rule a violation breaks.
type Kind string

const (
	// NewTestPassedImmediately: a test appeared for the first time already passing.
	NewTestPassedImmediately Kind = "NewTestPassedImmediately"
	// Regression: a passing test now fails.
	Regression Kind = "Regression"
	// SilentRemoval: a tracked test is missing from the run.
	SilentRemoval Kind = "SilentRemoval"
	// SkippedPendingState: a test would be promoted to passing without ever
	// having been committed as pending.
	SkippedPendingState Kind = "SkippedPendingState"
	// MissingGuard: the project has no bypass-prevention guard test.
	MissingGuard Kind = "MissingGuard"
)

// Kinds lists every kind in reporting order.
var Kinds = []Kind{
	NewTestPassedImmediately,
	SkippedPendingState,
	Regression,
	SilentRemoval,
	MissingGuard,
}

func (k Kind) String() string {
	return string(k)
}

// Rule states the rule a violation of kind k breaks.
func (k Kind) Rule() string {
	switch k {
	case NewTestPassedImmediately:
		return "new tests must fail first"
	case SkippedPendingState:
		return "a test must be committed as pending before it is promoted to passing"
	case Regression:
		return "a passing test must keep passing"
	case SilentRemoval:
		return "tracked tests must not disappear from the test run"
	case MissingGuard:
		return "the project must contain the bypass-prevention guard test"
	default:
		return "unknown rule"
	}
}

func (k Kind) rank() int {
	for i, kind := range Kinds {
		if kind == k {
			return i
		}
	}
	return len(Kinds)
}

// Violation is one breach of the ratchet rules.
type Violation struct {
	Test   string `json:"test"`
	Kind   Kind   `json:"kind"`
	Detail string `json:"detail"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s (%s)", v.Kind, v.Test, v.Detail)
}

// GuardViolation is the setup violation for a project without a guard.
// name is the guard test the project is expected to declare.
func GuardViolation(name string) Violation {
	return Violation{
		Test:   name,
		Kind:   MissingGuard,
		Detail: fmt.Sprintf("no test named %s was found in the project", name),
	}
}

// SortViolations orders violations by test identifier, then kind.
func SortViolations(vs []Violation) {
	sort.SliceStable(vs, func(i, j int) bool {
		if vs[i].Test != vs[j].Test {
			return vs[i].Test < vs[j].Test
		}
		return vs[i].Kind.rank() < vs[j].Kind.rank()
	})
}

func newTestPassed(id string) Violation {
	return Violation{
		Test:   id,
		Kind:   NewTestPassedImmediately,
		Detail: "passed on its first appearance; recorded as pending",
	}
}

func regression(id string) Violation {
	return Violation{
		Test:   id,
		Kind:   Regression,
		Detail: "was passing but now fails; stays recorded as passing",
	}
}

func silentRemoval(id string, st status.TestState) Violation {
	return Violation{
		Test:   id,
		Kind:   SilentRemoval,
		Detail: fmt.Sprintf("tracked as %s but missing from the test run", st),
	}
}

func skippedPending(id string) Violation {
	return Violation{
		Test:   id,
		Kind:   SkippedPendingState,
		Detail: "passes, but no commit ever recorded it as pending; stays pending",
	}
}
