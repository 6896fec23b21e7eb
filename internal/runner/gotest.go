package runner

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/roach88/ratchet/internal/status"
)

// goTestEvent is a single event from go test -json output.
type goTestEvent struct {
	Action  string `json:"Action"` // start, run, pass, fail, skip, output, pause, cont
	Package string `json:"Package"`
	Test    string `json:"Test"`
}

// GoTestJSON parses the NDJSON stream of go test -json.
//
// Identifiers are "<package>::<test>"; subtests keep their slash path
// ("pkg::TestX/case"). Package-level events and output lines are ignored.
// Lines that are not JSON (build output interleaved by go test) are skipped.
type GoTestJSON struct{}

// Name implements Parser.
func (GoTestJSON) Name() string { return HarnessGoTest }

// Parse implements Parser.
func (GoTestJSON) Parse(r io.Reader) ([]Result, error) {
	scanner := bufio.NewScanner(r)
	// Allow large lines for verbose test output
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var results []Result
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 || line[0] != '{' {
			continue
		}
		var event goTestEvent
		if err := json.Unmarshal(line, &event); err != nil {
			continue
		}
		if event.Test == "" {
			continue
		}

		var outcome Outcome
		switch event.Action {
		case "pass":
			outcome = Passed
		case "fail":
			outcome = Failed
		case "skip":
			outcome = Skipped
		default:
			continue
		}
		results = append(results, Result{
			ID:      status.NormalizeID(event.Package + "::" + event.Test),
			Outcome: outcome,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning go test output: %w", err)
	}
	return results, nil
}
