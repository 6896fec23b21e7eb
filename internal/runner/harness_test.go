package runner

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestHarness_ParsesStdoutAndSetsEnv(t *testing.T) {
	requireShell(t)

	h := &Harness{
		Command: []string{"sh", "-c", `echo "test marker::$TDD_RATCHET ... ok"; echo "test other ... FAILED"; exit 101`},
		Dir:     t.TempDir(),
		Env:     []string{"TDD_RATCHET=1"},
		Parser:  LibtestText{},
	}

	run, err := h.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 101, run.ExitCode)
	assert.Equal(t, []Result{
		{ID: "marker::1", Outcome: Passed},
		{ID: "other", Outcome: Failed},
	}, run.Results)
}

func TestHarness_UnavailableExecutable(t *testing.T) {
	h := &Harness{
		Command: []string{"definitely-not-a-real-harness-binary"},
		Dir:     t.TempDir(),
		Parser:  GoTestJSON{},
	}

	_, err := h.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestHarness_EmptyCommand(t *testing.T) {
	_, err := (&Harness{Parser: GoTestJSON{}}).Run(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestHarness_FailureWithoutResults(t *testing.T) {
	requireShell(t)

	h := &Harness{
		Command: []string{"sh", "-c", "echo 'compile error' >&2; exit 2"},
		Dir:     t.TempDir(),
		Parser:  GoTestJSON{},
	}

	_, err := h.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoResults)
	assert.Contains(t, err.Error(), "exit status 2")
}

func TestHarness_SuccessWithoutResults(t *testing.T) {
	requireShell(t)

	h := &Harness{
		Command: []string{"sh", "-c", "exit 0"},
		Dir:     t.TempDir(),
		Parser:  GoTestJSON{},
	}

	run, err := h.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, run.Results)
	assert.Equal(t, 0, run.ExitCode)
}
