package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ratchet/internal/config"
	"github.com/roach88/ratchet/internal/guard"
	"github.com/roach88/ratchet/internal/pipeline"
	"github.com/roach88/ratchet/internal/status"
)

// InitResult is the JSON payload of the init command.
type InitResult struct {
	StatusFile   string `json:"status_file"`
	Passing      int    `json:"passing"`
	Pending      int    `json:"pending"`
	GuardName    string `json:"guard_name"`
	GuardPresent bool   `json:"guard_present"`
	GuardSnippet string `json:"guard_snippet"`
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	var statusFile string
	var empty bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the status file and print the guard test",
		Long: `Run the test suite once and create the status file from the result:
passing tests are recorded as passing, failing tests as pending, and
skipped tests are left out. Commit the file to make it the baseline.
With --empty the suite is not run and {"tests": {}} is written.

Then print the bypass-prevention guard test to add to the suite.

Fails with exit code 1 if the status file already exists, and with exit
code 2 (writing nothing) if the suite cannot be run.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var o config.Overrides
			if cmd.Flags().Changed("status-file") {
				o.StatusFile = &statusFile
			}
			return runInit(cmd, rootOpts, o, empty)
		},
	}

	cmd.Flags().StringVar(&statusFile, "status-file", "", "status file path (default .test-status.json)")
	cmd.Flags().BoolVar(&empty, "empty", false, "write an empty status file without running the suite")
	return cmd
}

func runInit(cmd *cobra.Command, rootOpts *RootOptions, overrides config.Overrides, empty bool) error {
	f := rootOpts.formatter(cmd)

	dir, cfg, err := rootOpts.loadConfig(f, overrides)
	if err != nil {
		return err
	}

	store := status.NewStore(cfg.StatusPath(dir))
	exists, err := store.Exists()
	if err != nil {
		return reportCommandError(f, ErrCodeGeneric, "inspect status file", err)
	}
	if exists {
		_ = f.Error(ErrCodeStatusExists, fmt.Sprintf("%s already exists", cfg.StatusFile), nil)
		return &ExitError{Code: ExitFailure}
	}

	p := &pipeline.Pipeline{
		Dir:           dir,
		Config:        cfg,
		Runner:        rootOpts.testRunner,
		HarnessStderr: cmd.ErrOrStderr(),
	}
	doc := status.NewDocument()
	if !empty {
		f.VerboseLog("project %s: running harness %s", dir, cfg.Harness)
		if doc, err = p.Adopt(cmd.Context()); err != nil {
			return reportFatal(f, err)
		}
	}
	if err := store.Save(doc); err != nil {
		return reportCommandError(f, ErrCodeGeneric, "create status file", err)
	}
	pending, passing := doc.Counts()

	g := p.Guard()
	_, guardErr := g.Check(dir)
	result := InitResult{
		StatusFile:   cfg.StatusFile,
		Passing:      passing,
		Pending:      pending,
		GuardName:    g.Name,
		GuardPresent: guardErr == nil,
		GuardSnippet: g.Snippet(cfg.Harness),
	}
	if guardErr != nil && !errors.Is(guardErr, guard.ErrMissing) {
		return reportCommandError(f, ErrCodeGeneric, "search for guard", guardErr)
	}

	if f.Format == "json" {
		return f.Success(result)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Created %s (%d passing, %d pending)\n", result.StatusFile, result.Passing, result.Pending)
	if result.GuardPresent {
		fmt.Fprintf(w, "Guard test %s is already present.\n", result.GuardName)
		return nil
	}
	fmt.Fprintf(w, "\nAdd this guard test to the project so the suite refuses to run outside ratchet:\n\n%s", result.GuardSnippet)
	return nil
}
