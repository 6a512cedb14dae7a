package pub

import (
	"context"
	"time"
)

// PublishState is a step of the publish state machine.
type PublishState int

const (
	StatePending PublishState = iota
	StateCommitting
	StateNoChanges
	StateCommitted
	StateConfiguringRemote
	StatePushing
	StateRetryWait
	StatePublished
	StateFailed
)

func (s PublishState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateCommitting:
		return "committing"
	case StateNoChanges:
		return "no-changes"
	case StateCommitted:
		return "committed"
	case StateConfiguringRemote:
		return "configuring-remote"
	case StatePushing:
		return "pushing"
	case StateRetryWait:
		return "retry-wait"
	case StatePublished:
		return "published"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can happen.
func (s PublishState) Terminal() bool {
	return s == StateNoChanges || s == StatePublished || s == StateFailed
}

// PublishAttempt records one push attempt. Attempts are kept for the current
// run only.
type PublishAttempt struct {
	Attempt int
	Success bool
	Elapsed time.Duration
	Err     error
}

// PublishInput carries what the publish step needs from earlier stages.
type PublishInput struct {
	Archive    string
	TotalFiles int
	Structure  *ArchiveSummary
}

// PublishResult reports the outcome of a publish.
type PublishResult struct {
	State PublishState
	// RemoteURL is the remote location without credentials.
	RemoteURL string
	Branch    string
	Attempts  []PublishAttempt
}

// Published reports whether the run ended in a successful terminal state.
func (r *PublishResult) Published() bool {
	return r != nil && (r.State == StatePublished || r.State == StateNoChanges)
}

// Publisher commits the staged index and delivers it to the remote.
type Publisher interface {
	Publish(ctx context.Context, in PublishInput) (*PublishResult, error)
}
