package pub

import (
	"context"
	"strings"
)

// MetadataDir is the version-control metadata directory excluded from every plan.
const MetadataDir = ".git"

// StagingMode names an escalation tier.
type StagingMode string

const (
	ModeBulk       StagingMode = "bulk"
	ModeBatch      StagingMode = "batch"
	ModeIndividual StagingMode = "individual"
)

// FailReason explains why a single path could not be staged.
type FailReason string

const (
	ReasonMissing      FailReason = "missing"
	ReasonCommandError FailReason = "command-error"
)

// FailedPath is a path the individual tier could not stage.
type FailedPath struct {
	Path   string
	Reason FailReason
	Err    error
}

// StagingPlan is the ordered list of slash-separated paths, relative to the
// working directory, that should end up in the index.
type StagingPlan []string

// Batches partitions the plan into consecutive batches of at most size paths.
func (p StagingPlan) Batches(size int) [][]string {
	if size <= 0 {
		size = len(p)
	}
	var batches [][]string
	for start := 0; start < len(p); start += size {
		end := min(start+size, len(p))
		batches = append(batches, p[start:end])
	}
	return batches
}

// StagingResult reports what a staging run did.
type StagingResult struct {
	// Mode is the last tier that ran.
	Mode StagingMode
	// Planned is the number of paths in the plan.
	Planned int
	// Attempted sums the per-call success counters across tiers.
	Attempted int
	// Staged is the verified count: the number of non-empty index status
	// lines.
	Staged int
	// Indexed is the subset of Staged whose index column records a change.
	Indexed int
	// Clean is true when every staging call in the tier succeeded.
	Clean bool
	// BatchesFailed counts batches that fell back to individual staging.
	BatchesFailed int
	// Failed lists paths the individual tier could not stage, in plan order.
	Failed []FailedPath
}

// Stager records the working tree into the index.
type Stager interface {
	Stage(ctx context.Context) (*StagingResult, error)
}

// CountStaged returns the number of porcelain status lines whose index
// column records a change. Untracked, ignored and worktree-only lines are
// not counted.
func CountStaged(lines []string) int {
	n := 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" || len(line) < 2 {
			continue
		}
		switch line[0] {
		case ' ', '?', '!':
			continue
		}
		n++
	}
	return n
}

// CountChanges returns the number of non-empty porcelain status lines.
func CountChanges(lines []string) int {
	n := 0
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}
