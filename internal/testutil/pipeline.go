package testutil

import (
	"context"
	"sync"

	"apub-go/internal/pub"
)

// Function adapters for the coordinator's collaborators.

type SourceFunc func(ctx context.Context, ref string) (*pub.LocalArchive, error)

func (f SourceFunc) Open(ctx context.Context, ref string) (*pub.LocalArchive, error) {
	return f(ctx, ref)
}

type InspectorFunc func(ctx context.Context, a *pub.LocalArchive) (*pub.ArchiveSummary, error)

func (f InspectorFunc) Inspect(ctx context.Context, a *pub.LocalArchive) (*pub.ArchiveSummary, error) {
	return f(ctx, a)
}

type ExtractorFunc func(ctx context.Context, a *pub.LocalArchive, dest string) (pub.ExtractResult, error)

func (f ExtractorFunc) Extract(ctx context.Context, a *pub.LocalArchive, dest string) (pub.ExtractResult, error) {
	return f(ctx, a, dest)
}

type NormalizerFunc func(root string) (pub.NormalizeResult, error)

func (f NormalizerFunc) Normalize(root string) (pub.NormalizeResult, error) { return f(root) }

type AuditorFunc func(root string) (*pub.AuditReport, error)

func (f AuditorFunc) Audit(root string) (*pub.AuditReport, error) { return f(root) }

type InitializerFunc func(ctx context.Context) error

func (f InitializerFunc) Initialize(ctx context.Context) error { return f(ctx) }

type StagerFunc func(ctx context.Context) (*pub.StagingResult, error)

func (f StagerFunc) Stage(ctx context.Context) (*pub.StagingResult, error) { return f(ctx) }

type PublisherFunc func(ctx context.Context, in pub.PublishInput) (*pub.PublishResult, error)

func (f PublisherFunc) Publish(ctx context.Context, in pub.PublishInput) (*pub.PublishResult, error) {
	return f(ctx, in)
}

// RecordingMetrics keeps every observed run summary.
type RecordingMetrics struct {
	mu   sync.Mutex
	runs []*pub.RunSummary
}

func (m *RecordingMetrics) ObserveRun(s *pub.RunSummary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, s)
}

// Runs returns the observed summaries in order.
func (m *RecordingMetrics) Runs() []*pub.RunSummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*pub.RunSummary(nil), m.runs...)
}
