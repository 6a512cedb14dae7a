package staging

import (
	"context"

	"apub-go/internal/pub"
)

// outcome is what one escalation tier did, before verification.
type outcome struct {
	attempted     int
	clean         bool
	batchesFailed int
	failed        []pub.FailedPath
}

// strategy is one escalation tier.
type strategy interface {
	mode() pub.StagingMode
	stage(ctx context.Context, plan pub.StagingPlan) outcome
}

// bulkStrategy stages the whole tree in a single call.
type bulkStrategy struct{ e *Engine }

func (bulkStrategy) mode() pub.StagingMode { return pub.ModeBulk }

func (s bulkStrategy) stage(ctx context.Context, plan pub.StagingPlan) outcome {
	s.e.logger.Info("attempting bulk staging")

	ctx, cancel := context.WithTimeout(ctx, s.e.opts.BulkTimeout)
	defer cancel()
	if err := s.e.repo.AddAll(ctx); err != nil {
		s.e.logger.Warn("bulk staging failed", "error", err)
		return outcome{}
	}
	s.e.logger.Info("bulk staging successful")
	return outcome{attempted: len(plan), clean: true}
}

// batchStrategy stages fixed-size batches in plan order, falling back to
// per-path staging for any batch that fails.
type batchStrategy struct{ e *Engine }

func (batchStrategy) mode() pub.StagingMode { return pub.ModeBatch }

func (s batchStrategy) stage(ctx context.Context, plan pub.StagingPlan) outcome {
	out := outcome{clean: true}
	batches := plan.Batches(s.e.opts.BatchSize)

	for i, batch := range batches {
		if ctx.Err() != nil {
			out.clean = false
			return out
		}
		s.e.logger.Info("staging batch", "batch", i+1, "of", len(batches), "files", len(batch))

		if err := s.e.add(ctx, s.e.opts.BatchTimeout, batch...); err != nil {
			s.e.logger.Warn("batch failed, trying individual files", "batch", i+1, "error", err)
			out.clean = false
			out.batchesFailed++
			staged, failed := s.e.stageIndividually(ctx, batch)
			out.attempted += staged
			out.failed = append(out.failed, failed...)
		} else {
			out.attempted += len(batch)
		}

		s.e.logger.Debug("staging progress", "percent", float64(i+1)*100/float64(len(batches)))
	}
	return out
}
