package report

import (
	"fmt"
	"strings"

	"github.com/roach88/ratchet/internal/ratchet"
	"github.com/roach88/ratchet/internal/status"
)

// Exit statuses of a ratchet invocation.
const (
	ExitOK         = 0 // no violations
	ExitViolations = 1 // at least one ratchet or setup violation
	ExitFatal      = 2 // the check could not be completed
)

// EnforcementContext prefixes every fatal message.
const EnforcementContext = "this project requires failing-first tests, verified via history"

// Saver persists a status document.
type Saver interface {
	Save(doc *status.Document) error
}

// Entry is a violation as presented to the user.
type Entry struct {
	Test        string `json:"test"`
	Kind        string `json:"kind"`
	Rule        string `json:"rule"`
	Detail      string `json:"detail"`
	Remediation string `json:"remediation"`
}

// Summary is the rendered outcome of one check.
type Summary struct {
	StatusFile string   `json:"status_file"`
	Saved      bool     `json:"saved"`
	DryRun     bool     `json:"dry_run,omitempty"`
	Head       string   `json:"head,omitempty"`
	Baseline   string   `json:"baseline,omitempty"`
	Passing    int      `json:"passing"`
	Pending    int      `json:"pending"`
	Promoted   []string `json:"promoted,omitempty"`
	Added      []string `json:"added,omitempty"`
	Violations []Entry  `json:"violations"`
	ExitCode   int      `json:"exit_code"`
	RunID      string   `json:"run_id,omitempty"`
}

// Reporter performs the Output stage.
type Reporter struct {
	Store Saver
	// StatusFile is the status file name shown in messages.
	StatusFile string
	// DryRun computes and reports without writing.
	DryRun bool
}

// Persist saves the decision's next document, unless in dry-run, and
// summarizes the decision against prior. The document is saved even when
// the decision carries violations. A save failure is fatal.
func (r *Reporter) Persist(prior *status.Document, d *ratchet.Decision) (*Summary, error) {
	if !r.DryRun {
		if err := r.Store.Save(d.Next); err != nil {
			return nil, fmt.Errorf("save status file: %w", err)
		}
	}

	s := &Summary{
		StatusFile: r.statusFile(),
		Saved:      !r.DryRun,
		DryRun:     r.DryRun,
		Violations: Entries(d.Violations, r.statusFile()),
		ExitCode:   ExitCode(d.Violations),
	}
	s.Pending, s.Passing = d.Next.Counts()
	for _, id := range d.Next.IDs() {
		next, _ := d.Next.Get(id)
		before, tracked := prior.Get(id)
		switch {
		case !tracked:
			s.Added = append(s.Added, id)
		case before == status.Pending && next == status.Passing:
			s.Promoted = append(s.Promoted, id)
		}
	}
	return s, nil
}

func (r *Reporter) statusFile() string {
	if r.StatusFile == "" {
		return status.DefaultFileName
	}
	return r.StatusFile
}

// SetupSummary reports a setup violation detected before the run.
// Nothing is written.
func SetupSummary(v ratchet.Violation, statusFile string) *Summary {
	vs := []ratchet.Violation{v}
	return &Summary{
		StatusFile: statusFile,
		Violations: Entries(vs, statusFile),
		ExitCode:   ExitCode(vs),
	}
}

// ExitCode maps violations to the process exit status.
func ExitCode(vs []ratchet.Violation) int {
	if len(vs) == 0 {
		return ExitOK
	}
	return ExitViolations
}

// Entries converts violations for presentation, preserving order.
func Entries(vs []ratchet.Violation, statusFile string) []Entry {
	out := make([]Entry, 0, len(vs))
	for _, v := range vs {
		out = append(out, Entry{
			Test:        v.Test,
			Kind:        v.Kind.String(),
			Rule:        v.Kind.Rule(),
			Detail:      v.Detail,
			Remediation: Remediation(v.Kind, statusFile),
		})
	}
	return out
}

// Remediation tells the user how to resolve a violation of kind k.
func Remediation(k ratchet.Kind, statusFile string) string {
	switch k {
	case ratchet.NewTestPassedImmediately:
		return "revert the implementation until this test fails, commit it as pending, then reintroduce the implementation"
	case ratchet.SkippedPendingState:
		return fmt.Sprintf("commit %s with this test pending while it still fails, then commit the implementation", statusFile)
	case ratchet.Regression:
		return fmt.Sprintf("fix the regression; if the test is obsolete, remove it from both the code and %s", statusFile)
	case ratchet.SilentRemoval:
		return fmt.Sprintf("restore the test, or if it was removed on purpose, remove it from %s in the same commit", statusFile)
	case ratchet.MissingGuard:
		return "run `ratchet init` and add the printed guard test to the project"
	default:
		return "see the ratchet documentation"
	}
}

// FormatViolation renders one violation as context, problem and fix, the
// way the text report lists it.
func FormatViolation(e Entry) string {
	return formatViolation(e, Styles{})
}

func formatViolation(e Entry, st Styles) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", st.render(st.bad, "["+e.Kind+"]"), e.Test)
	fmt.Fprintf(&b, "  %s %s\n", st.render(st.label, "rule:  "), e.Rule)
	fmt.Fprintf(&b, "  %s %s\n", st.render(st.label, "detail:"), e.Detail)
	fmt.Fprintf(&b, "  %s %s\n", st.render(st.label, "fix:   "), e.Remediation)
	return b.String()
}

// FormatFatal renders an error that stopped the check.
func FormatFatal(err error) string {
	return fmt.Sprintf("ratchet: %s.\nThe check could not be completed: %v\n", EnforcementContext, err)
}
