package staging

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"apub-go/internal/pub"
)

// Default escalation parameters.
const (
	DefaultBatchSize         = 30
	DefaultBulkTimeout       = 300 * time.Second
	DefaultBatchTimeout      = 90 * time.Second
	DefaultIndividualTimeout = 30 * time.Second

	verifyAttempts = 2
)

// Options tunes the escalation tiers. Zero fields take the defaults.
type Options struct {
	BatchSize         int
	BulkTimeout       time.Duration
	BatchTimeout      time.Duration
	IndividualTimeout time.Duration
}

// DefaultOptions returns the standard escalation parameters.
func DefaultOptions() Options {
	return Options{
		BatchSize:         DefaultBatchSize,
		BulkTimeout:       DefaultBulkTimeout,
		BatchTimeout:      DefaultBatchTimeout,
		IndividualTimeout: DefaultIndividualTimeout,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.BatchSize <= 0 {
		o.BatchSize = d.BatchSize
	}
	if o.BulkTimeout <= 0 {
		o.BulkTimeout = d.BulkTimeout
	}
	if o.BatchTimeout <= 0 {
		o.BatchTimeout = d.BatchTimeout
	}
	if o.IndividualTimeout <= 0 {
		o.IndividualTimeout = d.IndividualTimeout
	}
	return o
}

// Engine records a working tree into the repository index, escalating from
// one bulk call to per-batch calls, and from a failed batch to per-path calls.
type Engine struct {
	repo       pub.Repository
	fsmgr      pub.FilesystemManager
	logger     pub.Logger
	opts       Options
	strategies []strategy
}

var _ pub.Stager = (*Engine)(nil)

// NewEngine creates a staging engine over repo's working tree.
func NewEngine(repo pub.Repository, fsmgr pub.FilesystemManager, logger pub.Logger, opts Options) *Engine {
	e := &Engine{
		repo:   repo,
		fsmgr:  fsmgr,
		logger: logger,
		opts:   opts.withDefaults(),
	}
	e.strategies = []strategy{bulkStrategy{e}, batchStrategy{e}}
	return e
}

// Stage enumerates the working tree and stages it. The returned result is
// non-nil whenever a plan was built, including on ErrNothingStaged.
func (e *Engine) Stage(ctx context.Context) (*pub.StagingResult, error) {
	if !e.repo.IsRepository() {
		return nil, fmt.Errorf("%w: %s", pub.ErrNotARepository, e.repo.Root())
	}
	if err := e.repo.MarkTrusted(ctx); err != nil {
		e.logger.Warn("could not mark working directory as trusted", "error", err)
	}

	plan, err := e.plan()
	if err != nil {
		return nil, err
	}
	e.logger.Info("found files to stage", "count", len(plan))
	if len(plan) == 0 {
		return nil, pub.ErrEmptyPlan
	}

	result := &pub.StagingResult{Planned: len(plan)}
	for i, s := range e.strategies {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("%w: %v", pub.ErrInterrupted, err)
		}

		result.Mode = s.mode()
		out := s.stage(ctx, plan)
		if out.batchesFailed > 0 {
			result.Mode = pub.ModeIndividual
		}
		result.Attempted += out.attempted
		result.Clean = out.clean
		result.BatchesFailed += out.batchesFailed
		result.Failed = append(result.Failed, out.failed...)

		staged, indexed, err := e.verify(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return result, fmt.Errorf("%w: %v", pub.ErrInterrupted, ctx.Err())
			}
			return result, err
		}
		result.Staged, result.Indexed = staged, indexed

		if out.clean && staged > 0 {
			break
		}
		if i < len(e.strategies)-1 {
			e.logger.Warn("staging tier did not complete, escalating",
				"mode", s.mode(), "verified", staged)
		}
	}

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("%w: %v", pub.ErrInterrupted, err)
	}

	e.logger.Info("staging verified", "mode", result.Mode, "staged", result.Staged,
		"indexed", result.Indexed, "attempted", result.Attempted, "failed", len(result.Failed))

	if result.Staged == 0 {
		return result, pub.ErrNothingStaged
	}
	return result, nil
}

func (e *Engine) plan() (pub.StagingPlan, error) {
	paths, err := e.fsmgr.ListFiles(e.repo.Root(), pub.MetadataDir)
	if err != nil {
		return nil, fmt.Errorf("enumerating working tree: %w", err)
	}
	return pub.StagingPlan(paths), nil
}

// verify counts the non-empty index status lines rather than trusting the
// per-call success counters. A failed status query is retried once.
func (e *Engine) verify(ctx context.Context) (staged, indexed int, err error) {
	var lines []string
	for attempt := 1; attempt <= verifyAttempts; attempt++ {
		lines, err = e.repo.Status(ctx)
		if err == nil {
			return pub.CountChanges(lines), pub.CountStaged(lines), nil
		}
		e.logger.Warn("could not query index status", "attempt", attempt, "error", err)
	}
	return 0, 0, fmt.Errorf("verifying index status: %w", err)
}

// stageIndividually stages each path of a failed batch on its own.
func (e *Engine) stageIndividually(ctx context.Context, paths []string) (staged int, failed []pub.FailedPath) {
	for _, p := range paths {
		if !e.fsmgr.Exists(filepath.Join(e.repo.Root(), filepath.FromSlash(p))) {
			e.logger.Warn("file not found", "path", p)
			failed = append(failed, pub.FailedPath{Path: p, Reason: pub.ReasonMissing})
			continue
		}
		if err := e.add(ctx, e.opts.IndividualTimeout, p); err != nil {
			failed = append(failed, pub.FailedPath{Path: p, Reason: pub.ReasonCommandError, Err: err})
			continue
		}
		staged++
	}
	return staged, failed
}

func (e *Engine) add(ctx context.Context, timeout time.Duration, paths ...string) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return e.repo.Add(ctx, paths...)
}
