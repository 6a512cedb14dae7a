package pub

import (
	"context"
	"fmt"
)

// Components are the collaborators a Service sequences.
type Components struct {
	Source      Source
	Inspector   Inspector
	Extractor   Extractor
	Normalizer  Normalizer
	Auditor     Auditor
	Initializer Initializer
	Stager      Stager
	Publisher   Publisher
	FS          FilesystemManager
	Metrics     Metrics
	Logger      Logger
	Clock       Clock
}

// RunOptions are the per-run inputs of the coordinator.
type RunOptions struct {
	RunID      string
	ArchiveRef string
	WorkDir    string
	// KeepWorkDir skips removal of the working directory after the run.
	KeepWorkDir bool
}

// Service is the run coordinator. It sequences the pipeline stages, decides
// the overall outcome and always cleans up the working directory.
type Service struct {
	c    Components
	opts RunOptions
}

// NewService creates a Service. Metrics, Logger and Clock default to no-op
// and real implementations when nil.
func NewService(c Components, opts RunOptions) *Service {
	if c.Metrics == nil {
		c.Metrics = NopMetrics{}
	}
	if c.Logger == nil {
		c.Logger = NewNopLogger()
	}
	if c.Clock == nil {
		c.Clock = RealClock{}
	}
	return &Service{c: c, opts: opts}
}

// Run executes the pipeline. Inspection, normalization and auditing
// failures are logged and the run continues; extraction, initialization,
// staging and publishing failures abort it. The returned summary is always
// non-nil; its Err holds the fatal error, if any.
func (s *Service) Run(ctx context.Context) *RunSummary {
	summary := &RunSummary{
		RunID:     s.opts.RunID,
		Archive:   s.opts.ArchiveRef,
		WorkDir:   s.opts.WorkDir,
		StartedAt: s.c.Clock.Now(),
	}

	s.c.Logger.Info("starting run", "archive", s.opts.ArchiveRef, "workdir", s.opts.WorkDir)

	err := s.run(ctx, summary)
	if err != nil && ctx.Err() != nil && !isInterrupted(err) {
		err = fmt.Errorf("%w: %w", ErrInterrupted, err)
	}
	s.cleanup()

	summary.Success = err == nil
	summary.Err = err
	summary.Elapsed = s.c.Clock.Now().Sub(summary.StartedAt)

	if err != nil {
		s.c.Logger.Error("run failed", "error", err, "elapsed", summary.Elapsed)
	} else {
		s.c.Logger.Info("run complete", "elapsed", summary.Elapsed)
	}
	s.c.Metrics.ObserveRun(summary)
	return summary
}

func (s *Service) run(ctx context.Context, summary *RunSummary) error {
	archive, err := s.c.Source.Open(ctx, s.opts.ArchiveRef)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer archive.Close()
	summary.Archive = archive.Name

	if err := checkpoint(ctx); err != nil {
		return err
	}
	structure, err := s.c.Inspector.Inspect(ctx, archive)
	if err != nil {
		s.c.Logger.Warn("archive inspection failed, continuing without structure info", "error", err)
		structure = NewArchiveSummary(archive.Name)
	}
	summary.Structure = structure

	if err := checkpoint(ctx); err != nil {
		return err
	}
	extracted, err := s.c.Extractor.Extract(ctx, archive, s.opts.WorkDir)
	summary.Extract = extracted
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExtractFailed, err)
	}

	if err := checkpoint(ctx); err != nil {
		return err
	}
	normalized, err := s.c.Normalizer.Normalize(s.opts.WorkDir)
	if err != nil {
		s.c.Logger.Warn("structure normalization failed, keeping extracted layout", "error", err)
	}
	summary.Normalize = normalized

	audit, err := s.c.Auditor.Audit(s.opts.WorkDir)
	if err != nil {
		s.c.Logger.Warn("content audit failed", "error", err)
	}
	if audit == nil {
		audit = NewAuditReport()
	}
	summary.Audit = audit

	if err := checkpoint(ctx); err != nil {
		return err
	}
	if err := s.c.Initializer.Initialize(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrInitFailed, err)
	}

	if err := checkpoint(ctx); err != nil {
		return err
	}
	staged, err := s.c.Stager.Stage(ctx)
	summary.Staging = staged
	if err != nil {
		return fmt.Errorf("staging files: %w", err)
	}
	for _, f := range staged.Failed {
		s.c.Logger.Warn("path not staged", "path", f.Path, "reason", string(f.Reason))
	}

	if err := checkpoint(ctx); err != nil {
		return err
	}
	published, err := s.c.Publisher.Publish(ctx, PublishInput{
		Archive:    archive.Name,
		TotalFiles: audit.TotalFiles,
		Structure:  structure,
	})
	summary.Publish = published
	if err != nil {
		return fmt.Errorf("publishing: %w", err)
	}
	return nil
}

// cleanup removes the working directory. It is best-effort and never fails the run.
func (s *Service) cleanup() {
	if s.opts.KeepWorkDir || s.opts.WorkDir == "" {
		return
	}
	if err := s.c.FS.RemoveAll(s.opts.WorkDir); err != nil {
		s.c.Logger.Warn("cleanup failed", "workdir", s.opts.WorkDir, "error", err)
		return
	}
	s.c.Logger.Debug("working directory removed", "workdir", s.opts.WorkDir)
}

func checkpoint(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrInterrupted, err)
	}
	return nil
}
