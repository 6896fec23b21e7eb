package runner

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/roach88/ratchet/internal/status"
)

// LibtestText parses cargo test's human output, one line per test:
//
//	test module::name ... ok
//	test module::name ... FAILED
//	test module::name ... ignored
type LibtestText struct{}

// Name implements Parser.
func (LibtestText) Name() string { return HarnessLibtest }

// Parse implements Parser.
func (LibtestText) Parse(r io.Reader) ([]Result, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var results []Result
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "test ") {
			continue
		}
		name, verdict, ok := strings.Cut(line[len("test "):], " ... ")
		if !ok {
			continue
		}
		// "ignored, reason" is printed for #[ignore = "reason"]
		verdict, _, _ = strings.Cut(verdict, ",")

		var outcome Outcome
		switch verdict {
		case "ok":
			outcome = Passed
		case "FAILED":
			outcome = Failed
		case "ignored":
			outcome = Skipped
		default:
			continue
		}
		results = append(results, Result{ID: status.NormalizeID(name), Outcome: outcome})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning cargo test output: %w", err)
	}
	return results, nil
}

// libtestEvent is one line of libtest-json output.
type libtestEvent struct {
	Type  string `json:"type"`  // suite, test
	Event string `json:"event"` // started, ok, failed, ignored
	Name  string `json:"name"`
}

// LibtestJSON parses the libtest-json stream emitted by cargo nextest
// (--message-format libtest-json). Only terminal test events are kept.
type LibtestJSON struct{}

// Name implements Parser.
func (LibtestJSON) Name() string { return HarnessNextest }

// Parse implements Parser.
func (LibtestJSON) Parse(r io.Reader) ([]Result, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var results []Result
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 || line[0] != '{' {
			continue
		}
		var event libtestEvent
		if err := json.Unmarshal(line, &event); err != nil {
			continue
		}
		if event.Type != "test" || event.Name == "" {
			continue
		}

		var outcome Outcome
		switch event.Event {
		case "ok":
			outcome = Passed
		case "failed":
			outcome = Failed
		case "ignored":
			outcome = Skipped
		default:
			continue
		}
		results = append(results, Result{ID: status.NormalizeID(event.Name), Outcome: outcome})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning libtest-json output: %w", err)
	}
	return results, nil
}
