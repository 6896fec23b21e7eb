package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// Styles decorates text output. The zero value renders plain text.
type Styles struct {
	enabled bool
	header  lipgloss.Style
	ok      lipgloss.Style
	bad     lipgloss.Style
	muted   lipgloss.Style
	label   lipgloss.Style
}

// StylesFor returns colored styles when w is a terminal and plain ones
// otherwise.
func StylesFor(w io.Writer) Styles {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return Styles{}
	}
	r := lipgloss.NewRenderer(w)
	return Styles{
		enabled: true,
		header:  r.NewStyle().Bold(true),
		ok:      r.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		bad:     r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		muted:   r.NewStyle().Foreground(lipgloss.Color("8")),
		label:   r.NewStyle().Foreground(lipgloss.Color("6")),
	}
}

func (s Styles) render(st lipgloss.Style, text string) string {
	if !s.enabled {
		return text
	}
	return st.Render(text)
}

// WriteText renders a summary for humans.
func WriteText(w io.Writer, sum *Summary, st Styles) error {
	var b strings.Builder

	if n := len(sum.Violations); n == 0 {
		fmt.Fprintf(&b, "%s %s\n", st.render(st.header, "ratchet check:"), st.render(st.ok, "ok"))
	} else {
		fmt.Fprintf(&b, "%s %s\n", st.render(st.header, "ratchet check:"), st.render(st.bad, plural(n, "violation")))
	}

	saved := "saved"
	switch {
	case sum.DryRun:
		saved = "dry run, not written"
	case !sum.Saved:
		saved = "not written"
	}
	row := func(label, value string) {
		fmt.Fprintf(&b, "  %s %s\n", st.render(st.label, Pad(label, 12)), value)
	}
	row("status file", fmt.Sprintf("%s %s", sum.StatusFile, st.render(st.muted, "("+saved+")")))
	if sum.Baseline != "" {
		row("baseline", short(sum.Baseline))
	}
	if sum.Head != "" {
		row("head", short(sum.Head))
	}
	if sum.Saved || sum.DryRun {
		row("tests", fmt.Sprintf("%d passing, %d pending", sum.Passing, sum.Pending))
	}
	if len(sum.Promoted) > 0 {
		row("promoted", strings.Join(sum.Promoted, ", "))
	}
	if len(sum.Added) > 0 {
		row("new", strings.Join(sum.Added, ", "))
	}
	if sum.RunID != "" {
		row("run", sum.RunID)
	}

	for _, e := range sum.Violations {
		b.WriteString("\n")
		b.WriteString(formatViolation(e, st))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Pad right-pads s with spaces to width terminal cells. Test identifiers
// may hold wide characters, so byte or rune counts do not align columns.
func Pad(s string, width int) string {
	return runewidth.FillRight(s, width)
}

// Width reports the number of terminal cells s occupies.
func Width(s string) int {
	return runewidth.StringWidth(s)
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func short(commit string) string {
	if len(commit) > 12 {
		return commit[:12]
	}
	return commit
}
