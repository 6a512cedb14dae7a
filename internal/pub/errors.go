package pub

import "errors"

// Fatal pipeline conditions. Callers match them with errors.Is; the
// returned errors wrap these with the underlying cause.
var (
	// ErrNotARepository is returned when staging is attempted in a directory
	// without an initialized index.
	ErrNotARepository = errors.New("not a repository")

	// ErrEmptyPlan is returned when the tree walk finds no files to stage.
	ErrEmptyPlan = errors.New("no files to stage")

	// ErrNothingStaged is returned when every staging tier ran but the index
	// status shows no staged entries.
	ErrNothingStaged = errors.New("no files staged")

	// ErrCommitFailed is returned when the snapshot commit fails.
	ErrCommitFailed = errors.New("commit failed")

	// ErrRemoteConfigFailed is returned when the remote cannot be added.
	ErrRemoteConfigFailed = errors.New("remote configuration failed")

	// ErrPushFailed is returned after every push attempt has failed.
	ErrPushFailed = errors.New("push failed")

	// ErrConfigurationMissing is returned when a required configuration
	// value is absent at the point of use.
	ErrConfigurationMissing = errors.New("configuration missing")

	// ErrExtractFailed is returned when the archive cannot be materialized.
	ErrExtractFailed = errors.New("extraction failed")

	// ErrInitFailed is returned when the repository cannot be initialized or configured.
	ErrInitFailed = errors.New("repository initialization failed")

	// ErrInterrupted is returned when the run context is cancelled between
	// or during stages.
	ErrInterrupted = errors.New("interrupted")
)

func isInterrupted(err error) bool {
	return errors.Is(err, ErrInterrupted)
}
