// Package report turns a ratchet decision into the process's observable
// result: the one authoritative write of the status file, the rendered
// violations with remediation steps, and the exit status.
package report
