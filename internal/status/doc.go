// Package status holds the committed record of each test's expected state.
//
// The record lives in a repository-relative JSON file (by default
// .test-status.json) of the shape:
//
//	{
//	  "tests": {
//	    "pkg::TestAlpha": "passing",
//	    "pkg::TestBeta": "pending"
//	  }
//	}
//
// The file is valid, and parseable, even when no tests are tracked yet:
// {"tests": {}}. An optional "$schema" key is tolerated on read so that
// editors can attach a schema, but it is never written back.
//
// # Identity
//
// Test identifiers are NFC normalized at the parse boundary. Two keys that
// collapse to the same identifier after normalization make the document
// malformed, since the record must map each test to exactly one state.
//
// # Persistence
//
// Store.Save writes through a temp file in the same directory followed by a
// rename, so an interrupted process never leaves a truncated record behind.
package status
