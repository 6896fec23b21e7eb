package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/ratchet/internal/config"
	"github.com/roach88/ratchet/internal/ledger"
	"github.com/roach88/ratchet/internal/report"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	Ledger string
	RunID  string
	Limit  int
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{}

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show recorded ratchet runs",
		Long: `List the runs recorded in the ledger, newest first, or show one run
and its violations with --run.

A ledger is recorded only when configured (ledger in .ratchet.yaml,
RATCHET_LEDGER, or check --ledger).`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var o config.Overrides
			if cmd.Flags().Changed("ledger") {
				o.Ledger = &opts.Ledger
			}
			return runLog(cmd, rootOpts, opts, o)
		},
	}

	cmd.Flags().StringVar(&opts.Ledger, "ledger", "", "ledger database path")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "show a single run with its violations")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of runs to list (0 for all)")

	return cmd
}

func runLog(cmd *cobra.Command, rootOpts *RootOptions, opts *LogOptions, overrides config.Overrides) error {
	f := rootOpts.formatter(cmd)

	dir, cfg, err := rootOpts.loadConfig(f, overrides)
	if err != nil {
		return err
	}
	path := cfg.LedgerPath(dir)
	if path == "" {
		_ = f.Error(ErrCodeNoLedger, "no ledger configured: set ledger in .ratchet.yaml or pass --ledger", nil)
		return &ExitError{Code: ExitCommandError}
	}

	l, err := ledger.Open(path)
	if err != nil {
		return reportCommandError(f, ErrCodeNoLedger, "open ledger", err)
	}
	defer l.Close()

	ctx := cmd.Context()
	w := cmd.OutOrStdout()

	if opts.RunID != "" {
		run, err := l.ReadRun(ctx, opts.RunID)
		if errors.Is(err, ledger.ErrRunNotFound) {
			return reportCommandError(f, ErrCodeRunNotFound, "read run", err)
		}
		if err != nil {
			return reportCommandError(f, ErrCodeGeneric, "read run", err)
		}
		if f.Format == "json" {
			return f.Success(run)
		}
		fmt.Fprintf(w, "run %s (seq %d)\n", run.ID, run.Seq)
		fmt.Fprintf(w, "  recorded  %s\n", run.RecordedAt.UTC().Format(time.RFC3339))
		fmt.Fprintf(w, "  head      %s\n", shortCommit(run.Head))
		fmt.Fprintf(w, "  baseline  %s\n", shortCommit(run.Baseline))
		fmt.Fprintf(w, "  tests     %d passing, %d pending\n", run.Passing, run.Pending)
		fmt.Fprintf(w, "  exit      %d\n", run.ExitCode)
		kindW, testW := 0, 0
		for _, v := range run.Violations {
			kindW = max(kindW, report.Width(v.Kind)+2)
			testW = max(testW, report.Width(v.Test)+1)
		}
		for _, v := range run.Violations {
			fmt.Fprintf(w, "  %s %s %s\n", report.Pad("["+v.Kind+"]", kindW), report.Pad(v.Test+":", testW), v.Detail)
		}
		return nil
	}

	runs, err := l.ListRuns(ctx, opts.Limit)
	if err != nil {
		return reportCommandError(f, ErrCodeGeneric, "list runs", err)
	}
	if f.Format == "json" {
		return f.Success(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs recorded")
		return nil
	}
	fmt.Fprintf(w, "%-5s %-36s %-4s %-10s %-12s %s\n", "SEQ", "RUN", "EXIT", "VIOLATIONS", "HEAD", "RECORDED")
	for _, r := range runs {
		fmt.Fprintf(w, "%-5d %-36s %-4d %-10d %-12s %s\n",
			r.Seq, r.ID, r.ExitCode, r.ViolationCount, shortCommit(r.Head),
			r.RecordedAt.UTC().Format(time.RFC3339))
	}
	return nil
}
