// Package ratchet reconciles the committed status document with the
// outcomes of the current test run.
//
// The engine is pure: given the prior document, the run's outcomes and a
// view of the status file's history, it computes the next document and
// the rule violations. It performs no I/O; persisting the result and
// reporting the violations is the caller's job.
//
// Every test is evaluated independently:
//
//	prior    outcome  condition              next     violation
//	absent   failed                          pending
//	absent   passed                          pending  NewTestPassedImmediately
//	absent   passed   test is the guard      passing
//	absent   skipped                         absent
//	pending  failed                          pending
//	pending  passed   ever pending in git    passing
//	pending  passed   never pending in git   pending  SkippedPendingState
//	passing  passed                          passing
//	passing  failed                          passing  Regression
//	any      skipped                         unchanged
//	any      missing from the run            unchanged SilentRemoval
//
// A test's state only ever moves forward, and no tracked entry is ever
// dropped from the next document.
package ratchet
