package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrRunNotFound means no run has the requested id.
var ErrRunNotFound = errors.New("run not found")

// Run is one recorded check.
type Run struct {
	ID           string      `json:"id"`
	Seq          int64       `json:"seq"`
	Head         string      `json:"head,omitempty"`
	Baseline     string      `json:"baseline,omitempty"`
	DocumentHash string      `json:"document_hash"`
	Pending      int         `json:"pending"`
	Passing      int         `json:"passing"`
	ExitCode     int         `json:"exit_code"`
	RecordedAt   time.Time   `json:"recorded_at"`
	Violations   []Violation `json:"violations"`
	// ViolationCount is filled by ListRuns, which does not load Violations.
	ViolationCount int `json:"violation_count"`
}

// Violation is a recorded violation, in reporting order.
type Violation struct {
	Test   string `json:"test"`
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

// IDGenerator produces run ids.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable run ids. Safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// RecordRun stores run and its violations in one transaction and returns
// the run's seq. Seq is assigned here; run.Seq is ignored. Recording an id
// that already exists is a no-op that returns the existing seq.
func (l *Ledger) RecordRun(ctx context.Context, run Run) (int64, error) {
	if run.ID == "" {
		return 0, fmt.Errorf("record run: empty id")
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("record run: begin: %w", err)
	}
	defer tx.Rollback()

	var existing int64
	err = tx.QueryRowContext(ctx, `SELECT seq FROM runs WHERE id = ?`, run.ID).Scan(&existing)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("record run: lookup: %w", err)
	}

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("record run: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, head, baseline, document_hash, pending, passing, exit_code, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		seq,
		run.Head,
		run.Baseline,
		run.DocumentHash,
		run.Pending,
		run.Passing,
		run.ExitCode,
		run.RecordedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("record run: %w", err)
	}

	for i, v := range run.Violations {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO violations (run_id, ordinal, test, kind, detail)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING
		`, run.ID, i, v.Test, v.Kind, v.Detail)
		if err != nil {
			return 0, fmt.Errorf("record violation %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("record run: commit: %w", err)
	}
	return seq, nil
}

// ListRuns returns up to limit runs, newest first, without their
// violations. limit <= 0 returns all runs.
func (l *Ledger) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT r.id, r.seq, r.head, r.baseline, r.document_hash, r.pending, r.passing,
		       r.exit_code, r.recorded_at,
		       (SELECT COUNT(*) FROM violations v WHERE v.run_id = r.id)
		FROM runs r
		ORDER BY r.seq DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows, true)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun returns one run with its violations in reporting order.
func (l *Ledger) ReadRun(ctx context.Context, id string) (Run, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT id, seq, head, baseline, document_hash, pending, passing, exit_code, recorded_at
		FROM runs
		WHERE id = ?
	`, id)
	run, err := scanRun(row, false)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, err
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT test, kind, detail
		FROM violations
		WHERE run_id = ?
		ORDER BY ordinal ASC
	`, id)
	if err != nil {
		return Run{}, fmt.Errorf("query violations: %w", err)
	}
	defer rows.Close()

	run.Violations = []Violation{}
	for rows.Next() {
		var v Violation
		if err := rows.Scan(&v.Test, &v.Kind, &v.Detail); err != nil {
			return Run{}, fmt.Errorf("scan violation: %w", err)
		}
		run.Violations = append(run.Violations, v)
	}
	if err := rows.Err(); err != nil {
		return Run{}, fmt.Errorf("iterate violations: %w", err)
	}
	run.ViolationCount = len(run.Violations)
	return run, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner, withCount bool) (Run, error) {
	var run Run
	var recordedAt string
	dest := []any{
		&run.ID, &run.Seq, &run.Head, &run.Baseline, &run.DocumentHash,
		&run.Pending, &run.Passing, &run.ExitCode, &recordedAt,
	}
	if withCount {
		dest = append(dest, &run.ViolationCount)
	}
	if err := s.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, recordedAt)
	if err != nil {
		return Run{}, fmt.Errorf("parse recorded_at %q: %w", recordedAt, err)
	}
	run.RecordedAt = t
	return run, nil
}
