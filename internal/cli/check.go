package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ratchet/internal/config"
	"github.com/roach88/ratchet/internal/pipeline"
	"github.com/roach88/ratchet/internal/report"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	Baseline   string
	StatusFile string
	Harness    string
	Ledger     string
	Workers    int
	DryRun     bool
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run the test suite and enforce the ratchet",
		Long: `Run the project's test suite and reconcile the outcomes with the
committed status file and its git history.

The updated status file is always written, even when violations are found,
unless --dry-run is given.

Exit codes:
  0  no violations
  1  ratchet or setup violations
  2  the check could not be completed`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, rootOpts, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Baseline, "baseline", "", "commit to start history verification from")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "report without writing the status file")
	cmd.Flags().StringVar(&opts.StatusFile, "status-file", "", "status file path (default .test-status.json)")
	cmd.Flags().StringVar(&opts.Harness, "harness", "", "test harness: gotest, libtest or nextest")
	cmd.Flags().StringVar(&opts.Ledger, "ledger", "", "record the run in this SQLite ledger")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "parallel evaluation workers")

	return cmd
}

// checkOverrides converts explicitly set flags into config overrides.
func checkOverrides(cmd *cobra.Command, opts *CheckOptions) config.Overrides {
	var o config.Overrides
	flags := cmd.Flags()
	if flags.Changed("baseline") {
		o.Baseline = &opts.Baseline
	}
	if flags.Changed("status-file") {
		o.StatusFile = &opts.StatusFile
	}
	if flags.Changed("harness") {
		o.Harness = &opts.Harness
	}
	if flags.Changed("ledger") {
		o.Ledger = &opts.Ledger
	}
	if flags.Changed("workers") {
		o.Workers = &opts.Workers
	}
	return o
}

func runCheck(cmd *cobra.Command, rootOpts *RootOptions, opts *CheckOptions) error {
	f := rootOpts.formatter(cmd)

	dir, cfg, err := rootOpts.loadConfig(f, checkOverrides(cmd, opts))
	if err != nil {
		return err
	}

	f.VerboseLog("project %s: harness %s, status file %s", dir, cfg.Harness, cfg.StatusFile)

	p := &pipeline.Pipeline{
		Dir:           dir,
		Config:        cfg,
		DryRun:        opts.DryRun,
		Runner:        rootOpts.testRunner,
		HarnessStderr: cmd.ErrOrStderr(),
	}

	sum, err := p.Check(cmd.Context())
	if err != nil {
		return reportFatal(f, err)
	}

	if f.Format == "json" {
		if err := f.Success(sum); err != nil {
			return err
		}
	} else {
		out := cmd.OutOrStdout()
		if err := report.WriteText(out, sum, report.StylesFor(out)); err != nil {
			return err
		}
	}

	if sum.ExitCode != report.ExitOK {
		return &ExitError{Code: ExitFailure}
	}
	return nil
}

// reportFatal renders an error that stopped a check, with the
// enforcement context, and returns exit code 2.
func reportFatal(f *OutputFormatter, err error) error {
	if f.Format == "json" {
		var details map[string]string
		var ferr *pipeline.FatalError
		if errors.As(err, &ferr) {
			details = map[string]string{"stage": string(ferr.Stage)}
		}
		_ = f.Error(ErrCodeFatal, fmt.Sprintf("%s: %v", report.EnforcementContext, err), details)
	} else {
		fmt.Fprint(f.diag(), report.FormatFatal(err))
	}
	return &ExitError{Code: ExitCommandError, Err: err}
}
