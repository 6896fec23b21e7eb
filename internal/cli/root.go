package cli

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/ratchet/internal/config"
	"github.com/roach88/ratchet/internal/pipeline"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Dir     string // project directory

	// lookupEnv and testRunner replace the process environment and the
	// test harness in tests.
	lookupEnv  func(string) (string, bool)
	testRunner pipeline.TestRunner
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the ratchet CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ratchet",
		Short: "ratchet - failing-first test enforcement",
		Long: `ratchet enforces a failing-first discipline on a test suite.

Every new test must be committed in a failing (pending) state before it is
committed passing, and a passing test must keep passing. The committed
status file records each test's state; git history proves the order.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			configureLogging(cmd.ErrOrStderr(), opts.Verbose)
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Dir, "dir", ".", "project directory")

	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewLogCommand(opts))

	return cmd
}

// configureLogging installs the default slog logger: warnings only, or
// everything with --verbose.
func configureLogging(w io.Writer, verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// projectDir returns the absolute project directory.
func (o *RootOptions) projectDir() (string, error) {
	dir := o.Dir
	if dir == "" {
		dir = "."
	}
	return filepath.Abs(dir)
}

// loadConfig resolves configuration for the project. Errors are reported
// through f and returned as exit code 2.
func (o *RootOptions) loadConfig(f *OutputFormatter, flags config.Overrides) (string, *config.Config, error) {
	dir, err := o.projectDir()
	if err != nil {
		return "", nil, reportCommandError(f, ErrCodeConfig, "resolve project directory", err)
	}
	cfg, err := config.Load(dir, o.lookupEnv, flags)
	if err != nil {
		return "", nil, reportCommandError(f, ErrCodeConfig, "load configuration", err)
	}
	return dir, cfg, nil
}
