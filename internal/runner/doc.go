// Package runner turns a test harness run into (identifier, outcome) pairs.
//
// Parsing harness output is a format-detection concern kept behind the
// Parser interface, so the ratchet engine and history walker never learn
// which harness produced the data. The harness itself is one opaque,
// blocking subprocess; any parallelism inside it is invisible here.
//
// Supported formats:
//   - gotest:  go test -json event stream (identifier "<package>::<Test>")
//   - libtest: cargo test text output ("test <name> ... ok|FAILED|ignored")
//   - nextest: cargo nextest libtest-json event stream
package runner
