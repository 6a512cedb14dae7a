package pub

import "context"

// LocalArchive is an archive available on local storage.
type LocalArchive struct {
	// Path is the file to read.
	Path string
	// Name is the logical file name, used for format detection and reports.
	Name string

	cleanup []func()
}

// NewLocalArchive returns a LocalArchive. cleanup, if non-nil, runs on Close.
func NewLocalArchive(path, name string, cleanup func()) *LocalArchive {
	a := &LocalArchive{Path: path, Name: name}
	a.OnClose(cleanup)
	return a
}

// OnClose registers fn to run on Close, before previously registered functions.
func (a *LocalArchive) OnClose(fn func()) {
	if fn != nil {
		a.cleanup = append([]func(){fn}, a.cleanup...)
	}
}

// Close removes any temporary files backing the archive.
func (a *LocalArchive) Close() {
	for _, fn := range a.cleanup {
		fn()
	}
	a.cleanup = nil
}

// Source resolves an archive reference to a local file.
type Source interface {
	Open(ctx context.Context, ref string) (*LocalArchive, error)
}

// Inspector reads archive metadata without extracting it.
type Inspector interface {
	Inspect(ctx context.Context, archive *LocalArchive) (*ArchiveSummary, error)
}

// ExtractResult counts what the extractor wrote.
type ExtractResult struct {
	Extracted int
	Skipped   int
}

// Extractor materializes an archive into dest, replacing its contents.
type Extractor interface {
	Extract(ctx context.Context, archive *LocalArchive, dest string) (ExtractResult, error)
}

// NormalizeResult reports what the normalizer saw and did.
type NormalizeResult struct {
	Flattened bool
	// Inner is the wrapper directory that was flattened.
	Inner     string
	RootDirs  int
	RootFiles int
}

// Normalizer collapses a redundant single-root wrapper directory.
type Normalizer interface {
	Normalize(root string) (NormalizeResult, error)
}

// Auditor classifies the files of a materialized tree.
type Auditor interface {
	Audit(root string) (*AuditReport, error)
}

// Initializer creates and configures a fresh repository in the working directory.
type Initializer interface {
	Initialize(ctx context.Context) error
}

// Metrics records run outcomes.
type Metrics interface {
	ObserveRun(summary *RunSummary)
}

// NopMetrics discards observations.
type NopMetrics struct{}

func (NopMetrics) ObserveRun(*RunSummary) {}
