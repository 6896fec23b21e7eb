package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ratchet/internal/config"
	"github.com/roach88/ratchet/internal/history"
	"github.com/roach88/ratchet/internal/pipeline"
)

// HistoryResult is the JSON payload of the history command.
type HistoryResult struct {
	Head           string         `json:"head,omitempty"`
	Baseline       string         `json:"baseline,omitempty"`
	BaselineReason string         `json:"baseline_reason"`
	Snapshots      []SnapshotInfo `json:"snapshots"`
}

// SnapshotInfo summarizes one committed status file.
type SnapshotInfo struct {
	Commit        string `json:"commit"`
	Pending       int    `json:"pending"`
	Passing       int    `json:"passing"`
	Grandfathered bool   `json:"grandfathered,omitempty"`
}

// Baseline reasons.
const (
	baselineOverride   = "override"
	baselineIntroduced = "introduced"
	baselineFirst      = "first-commit"
	baselineNone       = "no-commits"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	var baseline string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Verify the status file's git history without running tests",
		Long: `Walk the commits from the baseline to HEAD, replay every committed
version of the status file and verify that no test skipped its pending
state or moved backwards.

Exits with code 2 if the history is inconsistent.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var o config.Overrides
			if cmd.Flags().Changed("baseline") {
				o.Baseline = &baseline
			}
			return runHistory(cmd, rootOpts, o)
		},
	}

	cmd.Flags().StringVar(&baseline, "baseline", "", "commit to start history verification from")
	return cmd
}

func runHistory(cmd *cobra.Command, rootOpts *RootOptions, overrides config.Overrides) error {
	f := rootOpts.formatter(cmd)

	dir, cfg, err := rootOpts.loadConfig(f, overrides)
	if err != nil {
		return err
	}

	f.VerboseLog("project %s: status file %s", dir, cfg.StatusFile)

	p := &pipeline.Pipeline{Dir: dir, Config: cfg}
	h, err := p.History(cmd.Context())
	if err != nil {
		return reportFatal(f, err)
	}

	result := summarizeHistory(h, cfg.Baseline != "")
	if f.Format == "json" {
		return f.Success(result)
	}

	w := cmd.OutOrStdout()
	if result.Baseline == "" {
		fmt.Fprintln(w, "history: repository has no commits")
		return nil
	}
	fmt.Fprintf(w, "history: consistent (%d snapshot(s))\n", len(result.Snapshots))
	fmt.Fprintf(w, "  baseline  %s (%s)\n", shortCommit(result.Baseline), result.BaselineReason)
	fmt.Fprintf(w, "  head      %s\n", shortCommit(result.Head))
	for _, s := range result.Snapshots {
		line := fmt.Sprintf("  %s  %d passing, %d pending", shortCommit(s.Commit), s.Passing, s.Pending)
		if s.Grandfathered {
			line += " (grandfathered)"
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

func summarizeHistory(h *history.History, override bool) HistoryResult {
	result := HistoryResult{
		Head:      h.Head,
		Baseline:  h.Baseline,
		Snapshots: []SnapshotInfo{},
	}
	switch {
	case h.Baseline == "":
		result.BaselineReason = baselineNone
	case override:
		result.BaselineReason = baselineOverride
	case h.BaselineIntroduced:
		result.BaselineReason = baselineIntroduced
	default:
		result.BaselineReason = baselineFirst
	}
	for _, s := range h.Arena.Snapshots() {
		pending, passing := s.Document.Counts()
		result.Snapshots = append(result.Snapshots, SnapshotInfo{
			Commit:        s.Commit,
			Pending:       pending,
			Passing:       passing,
			Grandfathered: s.Grandfathered,
		})
	}
	return result
}

func shortCommit(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
