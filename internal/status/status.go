package status

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"golang.org/x/text/unicode/norm"
)

// TestState is the expected state of a tracked test.
type TestState string

const (
	// Pending means the test is expected to still fail, or was just added.
	Pending TestState = "pending"
	// Passing means the test is expected to succeed.
	Passing TestState = "passing"
)

// Valid reports whether s is one of the known states.
func (s TestState) Valid() bool {
	return s == Pending || s == Passing
}

func (s TestState) String() string {
	return string(s)
}

// UnmarshalJSON rejects unknown state names.
func (s *TestState) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("test state must be a string: %w", err)
	}
	state := TestState(raw)
	if !state.Valid() {
		return fmt.Errorf("unknown test state %q (want %q or %q)", raw, Pending, Passing)
	}
	*s = state
	return nil
}

// Document maps test identifiers to their expected state.
// The zero value is not usable; use NewDocument or Parse.
type Document struct {
	tests map[string]TestState
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{tests: make(map[string]TestState)}
}

// FromMap builds a document from a plain map. Identifiers are normalized.
// Used mostly by tests and fixtures.
func FromMap(m map[string]TestState) *Document {
	d := NewDocument()
	for id, st := range m {
		d.Set(id, st)
	}
	return d
}

// NormalizeID returns the canonical (NFC) form of a test identifier.
func NormalizeID(id string) string {
	return norm.NFC.String(id)
}

// Get returns the state of id and whether it is tracked.
func (d *Document) Get(id string) (TestState, bool) {
	st, ok := d.tests[id]
	return st, ok
}

// Set records the state of id.
func (d *Document) Set(id string, st TestState) {
	d.tests[NormalizeID(id)] = st
}

// Len returns the number of tracked tests.
func (d *Document) Len() int {
	return len(d.tests)
}

// IDs returns all tracked identifiers in sorted order.
func (d *Document) IDs() []string {
	ids := make([]string, 0, len(d.tests))
	for id := range d.tests {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Counts returns the number of pending and passing tests.
func (d *Document) Counts() (pending, passing int) {
	for _, st := range d.tests {
		switch st {
		case Pending:
			pending++
		case Passing:
			passing++
		}
	}
	return pending, passing
}

// Clone returns an independent copy of d.
func (d *Document) Clone() *Document {
	c := &Document{tests: make(map[string]TestState, len(d.tests))}
	for id, st := range d.tests {
		c.tests[id] = st
	}
	return c
}

// Map returns a copy of the underlying identifier → state mapping.
func (d *Document) Map() map[string]TestState {
	return d.Clone().tests
}

// Equal reports whether two documents track the same tests in the same states.
func (d *Document) Equal(other *Document) bool {
	if other == nil || len(d.tests) != len(other.tests) {
		return false
	}
	for id, st := range d.tests {
		if ost, ok := other.tests[id]; !ok || ost != st {
			return false
		}
	}
	return true
}

// fileFormat is the on-disk shape. Tests is a pointer so a missing
// "tests" key can be told apart from an empty object.
type fileFormat struct {
	Schema string                `json:"$schema,omitempty"`
	Tests  *map[string]TestState `json:"tests"`
}

// ParseError reports a status file that exists but is not well-formed.
type ParseError struct {
	Source string // file path, or "<commit>:<path>" for historical content
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed status file %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse decodes status file content. source names the content in errors.
func Parse(data []byte, source string) (*Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var f fileFormat
	if err := dec.Decode(&f); err != nil {
		return nil, &ParseError{Source: source, Err: err}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, &ParseError{Source: source, Err: fmt.Errorf("unexpected data after the top-level object")}
	}
	if f.Tests == nil {
		return nil, &ParseError{Source: source, Err: fmt.Errorf(`missing "tests" object`)}
	}

	doc := NewDocument()
	for id, st := range *f.Tests {
		canonical := NormalizeID(id)
		if _, dup := doc.tests[canonical]; dup {
			return nil, &ParseError{Source: source, Err: fmt.Errorf("duplicate test identifier %q after normalization", canonical)}
		}
		doc.tests[canonical] = st
	}
	return doc, nil
}

// Marshal encodes d in the persisted shape: indented, keys sorted,
// no HTML escaping, trailing newline.
func Marshal(d *Document) ([]byte, error) {
	tests := d.tests
	if tests == nil {
		tests = map[string]TestState{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	// encoding/json sorts map keys, which keeps diffs of the file stable.
	if err := enc.Encode(struct {
		Tests map[string]TestState `json:"tests"`
	}{Tests: tests}); err != nil {
		return nil, fmt.Errorf("encode status file: %w", err)
	}
	return buf.Bytes(), nil
}
