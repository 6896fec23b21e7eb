package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

var (
	// ErrUnavailable means the harness executable could not be started.
	ErrUnavailable = errors.New("test harness unavailable")

	// ErrNoResults means the harness failed without reporting any test.
	// Typically a compilation failure; reconciling an empty run would
	// report every tracked test as silently removed.
	ErrNoResults = errors.New("test harness failed without reporting any test results")
)

// Run is the aggregated result of one harness invocation.
type Run struct {
	Results  []Result
	ExitCode int
}

// Harness runs a test command as a single blocking subprocess.
type Harness struct {
	// Command is the argv to execute; Command[0] is looked up on PATH.
	Command []string
	// Dir is the working directory (the project root).
	Dir string
	// Env is appended to the current process environment.
	Env []string
	// Parser decodes the command's stdout.
	Parser Parser
	// Stderr receives the harness's stderr (streamed, not parsed).
	// Nil discards it.
	Stderr io.Writer
}

// Run executes the harness and parses its output.
//
// A non-zero exit status is expected whenever a test fails and is not an
// error by itself. It becomes ErrNoResults when no test was reported.
func (h *Harness) Run(ctx context.Context) (*Run, error) {
	if len(h.Command) == 0 {
		return nil, fmt.Errorf("%w: empty command", ErrUnavailable)
	}
	if h.Parser == nil {
		return nil, fmt.Errorf("harness %q: no output parser configured", h.Command[0])
	}

	cmd := exec.CommandContext(ctx, h.Command[0], h.Command[1:]...)
	cmd.Dir = h.Dir
	cmd.Env = append(os.Environ(), h.Env...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if h.Stderr != nil {
		cmd.Stderr = h.Stderr
	}

	slog.Debug("running test harness", "command", strings.Join(h.Command, " "), "dir", h.Dir, "parser", h.Parser.Name())

	exitCode := 0
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, h.Command[0], err)
		}
		exitCode = exitErr.ExitCode()
	}

	results, err := h.Parser.Parse(&stdout)
	if err != nil {
		return nil, fmt.Errorf("parse %s output: %w", h.Parser.Name(), err)
	}
	slog.Debug("test harness finished", "exit_code", exitCode, "results", len(results))

	if exitCode != 0 && len(results) == 0 {
		return nil, fmt.Errorf("%w (exit status %d)", ErrNoResults, exitCode)
	}
	return &Run{Results: results, ExitCode: exitCode}, nil
}
