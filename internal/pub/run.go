package pub

import "time"

// RunSummary aggregates one run. It is displayed and then discarded.
type RunSummary struct {
	RunID     string
	Archive   string
	WorkDir   string
	StartedAt time.Time
	Elapsed   time.Duration

	Structure *ArchiveSummary
	Extract   ExtractResult
	Normalize NormalizeResult
	Audit     *AuditReport
	Staging   *StagingResult
	Publish   *PublishResult

	Success bool
	Err     error
}
