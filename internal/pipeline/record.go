package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/ratchet/internal/ledger"
	"github.com/roach88/ratchet/internal/ratchet"
	"github.com/roach88/ratchet/internal/report"
	"github.com/roach88/ratchet/internal/status"
)

// record appends the run to the ledger, if one is configured, and returns
// the run id. Failures are logged; the status file is already saved.
func (p *Pipeline) record(ctx context.Context, sum *report.Summary, d *ratchet.Decision) string {
	path := p.Config.LedgerPath(p.Dir)
	if path == "" {
		return ""
	}

	hash, err := status.Hash(d.Next)
	if err != nil {
		slog.Warn("ledger: hash status document", "error", err)
		return ""
	}

	ids := p.IDs
	if ids == nil {
		ids = ledger.UUIDv7Generator{}
	}
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}

	run := ledger.Run{
		ID:           ids.Generate(),
		Head:         sum.Head,
		Baseline:     sum.Baseline,
		DocumentHash: hash,
		Pending:      sum.Pending,
		Passing:      sum.Passing,
		ExitCode:     sum.ExitCode,
		RecordedAt:   now(),
	}
	for _, v := range d.Violations {
		run.Violations = append(run.Violations, ledger.Violation{
			Test:   v.Test,
			Kind:   v.Kind.String(),
			Detail: v.Detail,
		})
	}

	l, err := ledger.Open(path)
	if err != nil {
		slog.Warn("ledger: open", "path", path, "error", err)
		return ""
	}
	defer l.Close()

	seq, err := l.RecordRun(ctx, run)
	if err != nil {
		slog.Warn("ledger: record run", "path", path, "error", err)
		return ""
	}
	slog.Debug("ledger: run recorded", "id", run.ID, "seq", seq)
	return run.ID
}
