package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk shape of .ratchet.yaml.
type fileConfig struct {
	StatusFile *string  `yaml:"status_file"`
	Harness    *string  `yaml:"harness"`
	Command    []string `yaml:"command"`
	Baseline   *string  `yaml:"baseline"`
	Ledger     *string  `yaml:"ledger"`
	Workers    *int     `yaml:"workers"`
	GuardName  *string  `yaml:"guard_name"`
}

// mergeFile applies .ratchet.yaml, if present.
func mergeFile(raw map[string]any, path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return &Error{Source: path, Err: err}
	}

	var fc fileConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return &Error{Source: path, Err: err}
	}

	set := func(key string, v *string) {
		if v != nil {
			raw[key] = *v
		}
	}
	set("status_file", fc.StatusFile)
	set("harness", fc.Harness)
	set("baseline", fc.Baseline)
	set("ledger", fc.Ledger)
	set("guard_name", fc.GuardName)
	if fc.Command != nil {
		cmd := make([]any, len(fc.Command))
		for i, arg := range fc.Command {
			cmd[i] = arg
		}
		raw["command"] = cmd
	}
	if fc.Workers != nil {
		raw["workers"] = *fc.Workers
	}
	slog.Debug("loaded config file", "path", path)
	return nil
}

// readDotenv parses .env without touching the process environment.
// A missing file yields an empty map.
func readDotenv(path string) (map[string]string, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, &Error{Source: path, Err: err}
	}
	slog.Debug("loaded env file", "path", path, "keys", len(values))
	return values, nil
}

// mergeEnv applies RATCHET_* variables.
func mergeEnv(raw map[string]any, env func(string) (string, bool)) error {
	for key, field := range map[string]string{
		EnvStatusFile: "status_file",
		EnvHarness:    "harness",
		EnvBaseline:   "baseline",
		EnvLedger:     "ledger",
	} {
		if v, ok := env(key); ok && v != "" {
			raw[field] = v
		}
	}
	if v, ok := env(EnvWorkers); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &Error{Source: EnvWorkers, Err: fmt.Errorf("not an integer: %q", v)}
		}
		raw["workers"] = n
	}
	return nil
}
