// Package config resolves ratchet's settings.
//
// Layers, lowest precedence first:
//
//	built-in defaults (schema.cue)
//	.ratchet.yaml in the project directory
//	.env in the project directory
//	process environment (RATCHET_*)
//	command-line flags
//
// The merged settings are validated against the embedded CUE schema and
// decoded from the unified value, so defaults live in one place.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/ratchet/internal/runner"
)

// File names looked up in the project directory.
const (
	FileName    = ".ratchet.yaml"
	EnvFileName = ".env"
)

// Environment variables consulted by Load.
const (
	EnvStatusFile = "RATCHET_STATUS_FILE"
	EnvHarness    = "RATCHET_HARNESS"
	EnvBaseline   = "RATCHET_BASELINE"
	EnvLedger     = "RATCHET_LEDGER"
	EnvWorkers    = "RATCHET_WORKERS"
)

//go:embed schema.cue
var schemaCUE string

// Config is the resolved configuration.
type Config struct {
	StatusFile string   `json:"status_file"`
	Harness    string   `json:"harness"`
	Command    []string `json:"command,omitempty"`
	Baseline   string   `json:"baseline,omitempty"`
	Ledger     string   `json:"ledger,omitempty"`
	Workers    int      `json:"workers"`
	GuardName  string   `json:"guard_name,omitempty"`
}

// Overrides are command-line values; nil fields were not given.
type Overrides struct {
	StatusFile *string
	Harness    *string
	Baseline   *string
	Ledger     *string
	Workers    *int
}

// Error reports configuration that could not be read or is invalid.
type Error struct {
	Source string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("configuration %s: %v", e.Source, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Default returns the configuration with every default applied.
func Default() *Config {
	cfg, err := resolve(map[string]any{})
	if err != nil {
		panic(fmt.Sprintf("config: embedded schema is invalid: %v", err))
	}
	return cfg
}

// StatusPath returns the status file path, resolved against dir.
func (c *Config) StatusPath(dir string) string {
	return resolvePath(dir, c.StatusFile)
}

// LedgerPath returns the ledger path resolved against dir, or "" when the
// ledger is disabled.
func (c *Config) LedgerPath(dir string) string {
	if c.Ledger == "" {
		return ""
	}
	return resolvePath(dir, c.Ledger)
}

// CommandLine returns the harness argv: the configured command, or the
// harness default.
func (c *Config) CommandLine() []string {
	if len(c.Command) > 0 {
		return append([]string(nil), c.Command...)
	}
	return runner.DefaultCommand(c.Harness)
}

func resolvePath(dir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// resolve validates raw against #Config and decodes the result.
func resolve(raw map[string]any) (*Config, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	value := ctx.Encode(raw)
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, err
	}

	var cfg Config
	if err := unified.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return &cfg, nil
}

// Load resolves the configuration for the project in dir. lookupEnv reads
// the process environment; nil means os.LookupEnv.
func Load(dir string, lookupEnv func(string) (string, bool), flags Overrides) (*Config, error) {
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}

	raw := map[string]any{}

	if err := mergeFile(raw, filepath.Join(dir, FileName)); err != nil {
		return nil, err
	}

	dotenv, err := readDotenv(filepath.Join(dir, EnvFileName))
	if err != nil {
		return nil, err
	}
	env := func(key string) (string, bool) {
		if v, ok := lookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := mergeEnv(raw, env); err != nil {
		return nil, err
	}

	mergeFlags(raw, flags)

	cfg, err := resolve(raw)
	if err != nil {
		return nil, &Error{Source: "validation", Err: err}
	}
	slog.Debug("configuration resolved",
		"status_file", cfg.StatusFile,
		"harness", cfg.Harness,
		"workers", cfg.Workers,
		"ledger", cfg.Ledger != "",
	)
	return cfg, nil
}

func mergeFlags(raw map[string]any, flags Overrides) {
	setString := func(key string, v *string) {
		if v != nil {
			raw[key] = *v
		}
	}
	setString("status_file", flags.StatusFile)
	setString("harness", flags.Harness)
	setString("baseline", flags.Baseline)
	setString("ledger", flags.Ledger)
	if flags.Workers != nil {
		raw["workers"] = *flags.Workers
	}
}
