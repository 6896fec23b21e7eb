package runner

import (
	"fmt"
	"io"
)

// Harness names accepted by ParserFor and the configuration layer.
const (
	HarnessGoTest  = "gotest"
	HarnessLibtest = "libtest"
	HarnessNextest = "nextest"
)

// Harnesses lists the supported harness names.
var Harnesses = []string{HarnessGoTest, HarnessLibtest, HarnessNextest}

// Parser extracts per-test results from harness output.
type Parser interface {
	// Name identifies the output format.
	Name() string
	// Parse reads the complete harness output.
	Parse(r io.Reader) ([]Result, error)
}

// ParserFor returns the parser for a harness name.
func ParserFor(harness string) (Parser, error) {
	switch harness {
	case HarnessGoTest:
		return GoTestJSON{}, nil
	case HarnessLibtest:
		return LibtestText{}, nil
	case HarnessNextest:
		return LibtestJSON{}, nil
	default:
		return nil, fmt.Errorf("unknown harness %q: must be one of %v", harness, Harnesses)
	}
}

// DefaultCommand returns the command line used to run a harness.
func DefaultCommand(harness string) []string {
	switch harness {
	case HarnessLibtest:
		return []string{"cargo", "test", "--no-fail-fast"}
	case HarnessNextest:
		return []string{"cargo", "nextest", "run", "--no-fail-fast", "--message-format", "libtest-json"}
	default:
		return []string{"go", "test", "-json", "./..."}
	}
}

// DefaultEnv returns extra environment a harness needs to emit parseable output.
func DefaultEnv(harness string) []string {
	if harness == HarnessNextest {
		return []string{"NEXTEST_EXPERIMENTAL_LIBTEST_JSON=1"}
	}
	return nil
}
