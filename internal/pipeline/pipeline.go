// Package pipeline runs one ratchet check: Gather, Logic, Output.
//
// Gather loads the status document, checks for the guard, walks the git
// history and runs the test harness. Logic is the pure ratchet engine.
// Output persists the next document and builds the report. Any failure in
// Gather or Output is a *FatalError; nothing is written after a fatal
// error in Gather.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/ratchet/internal/config"
	"github.com/roach88/ratchet/internal/guard"
	"github.com/roach88/ratchet/internal/history"
	"github.com/roach88/ratchet/internal/ledger"
	"github.com/roach88/ratchet/internal/ratchet"
	"github.com/roach88/ratchet/internal/report"
	"github.com/roach88/ratchet/internal/runner"
	"github.com/roach88/ratchet/internal/status"
)

// Stage names a pipeline phase.
type Stage string

const (
	StageGather Stage = "gather"
	StageLogic  Stage = "logic"
	StageOutput Stage = "output"
)

// FatalError stops a check. The process exits with report.ExitFatal.
type FatalError struct {
	Stage Stage
	Err   error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

func fatal(stage Stage, err error) error {
	return &FatalError{Stage: stage, Err: err}
}

// TestRunner runs the project's test suite once.
type TestRunner interface {
	Run(ctx context.Context) (*runner.Run, error)
}

// Pipeline holds everything one check needs. Dir and Config are required.
type Pipeline struct {
	// Dir is the project directory.
	Dir    string
	Config *config.Config
	DryRun bool

	// Runner overrides the harness built from Config.
	Runner TestRunner
	// HarnessStderr receives the harness's stderr when Runner is nil.
	HarnessStderr io.Writer

	// Now and IDs feed the ledger; nil means wall time and UUIDv7.
	Now func() time.Time
	IDs ledger.IDGenerator
}

// Guard returns the guard the project must contain.
func (p *Pipeline) Guard() guard.Guard {
	g := guard.ForHarness(p.Config.Harness)
	if p.Config.GuardName != "" {
		g.Name = p.Config.GuardName
	}
	return g
}

// Check runs the pipeline. A setup violation (missing guard) returns a
// summary without running tests. The returned summary's ExitCode is
// report.ExitOK or report.ExitViolations; fatal conditions are errors.
func (p *Pipeline) Check(ctx context.Context) (*report.Summary, error) {
	cfg := p.Config
	statusPath := cfg.StatusPath(p.Dir)
	store := status.NewStore(statusPath)

	// Gather.
	prior, err := store.Load()
	if err != nil {
		return nil, fatal(StageGather, err)
	}

	g := p.Guard()
	guardPath, err := g.Check(p.Dir)
	if errors.Is(err, guard.ErrMissing) {
		slog.Debug("guard missing", "name", g.Name)
		return report.SetupSummary(ratchet.GuardViolation(g.Name), cfg.StatusFile), nil
	}
	if err != nil {
		return nil, fatal(StageGather, err)
	}
	slog.Debug("guard found", "name", g.Name, "path", guardPath)

	hist, err := p.walk(ctx, statusPath, g)
	if err != nil {
		return nil, fatal(StageGather, err)
	}

	results, err := p.runTests(ctx, g)
	if err != nil {
		return nil, fatal(StageGather, err)
	}

	// Logic.
	engine := &ratchet.Engine{Exempt: g.Matches, Workers: cfg.Workers}
	decision, err := engine.Evaluate(ctx, prior, results, hist)
	if err != nil {
		return nil, fatal(StageLogic, err)
	}

	// Output.
	rep := &report.Reporter{Store: store, StatusFile: cfg.StatusFile, DryRun: p.DryRun}
	sum, err := rep.Persist(prior, decision)
	if err != nil {
		return nil, fatal(StageOutput, err)
	}
	sum.Head = hist.Head
	sum.Baseline = hist.Baseline

	if !p.DryRun {
		sum.RunID = p.record(ctx, sum, decision)
	}
	return sum, nil
}

// Adopt runs the suite once and returns the document that records it as
// it stands: passing tests as passing, failing tests as pending. Skipped
// tests are left out. Used to bring an existing suite under the ratchet.
func (p *Pipeline) Adopt(ctx context.Context) (*status.Document, error) {
	results, err := p.runTests(ctx, p.Guard())
	if err != nil {
		return nil, fatal(StageGather, err)
	}
	doc := status.NewDocument()
	for _, r := range results {
		switch r.Outcome {
		case runner.Passed:
			doc.Set(r.ID, status.Passing)
		case runner.Failed:
			doc.Set(r.ID, status.Pending)
		}
	}
	return doc, nil
}

// History walks and verifies the status file's history without running
// any test.
func (p *Pipeline) History(ctx context.Context) (*history.History, error) {
	h, err := p.walk(ctx, p.Config.StatusPath(p.Dir), p.Guard())
	if err != nil {
		return nil, fatal(StageGather, err)
	}
	return h, nil
}

func (p *Pipeline) walk(ctx context.Context, statusPath string, g guard.Guard) (*history.History, error) {
	repo, err := history.Open(ctx, p.Dir)
	if err != nil {
		return nil, err
	}
	rel, err := repo.RelPath(statusPath)
	if err != nil {
		return nil, err
	}
	w := &history.Walker{Git: repo, Path: rel, Exempt: g.Matches}
	if p.Config.Workers > 1 {
		w.Workers = p.Config.Workers
	}
	return w.Walk(ctx, history.Options{Baseline: p.Config.Baseline})
}

func (p *Pipeline) runTests(ctx context.Context, g guard.Guard) ([]runner.Result, error) {
	tr := p.Runner
	if tr == nil {
		parser, err := runner.ParserFor(p.Config.Harness)
		if err != nil {
			return nil, err
		}
		tr = &runner.Harness{
			Command: p.Config.CommandLine(),
			Dir:     p.Dir,
			Env:     g.Environ(runner.DefaultEnv(p.Config.Harness)),
			Parser:  parser,
			Stderr:  p.HarnessStderr,
		}
	}

	run, err := tr.Run(ctx)
	if err != nil {
		return nil, err
	}
	if err := runner.CheckDuplicates(run.Results); err != nil {
		return nil, err
	}
	slog.Debug("test run finished", "results", len(run.Results), "exit_code", run.ExitCode)
	return run.Results, nil
}
