package pub

import "context"

// Identity is the committer identity applied to the repository.
type Identity struct {
	Name  string
	Email string
}

// Repository is a local version-control working directory with an index.
// Every blocking call honors ctx; a deadline exceeded is that call's failure.
type Repository interface {
	// Root returns the working directory.
	Root() string

	// IsRepository reports whether Root contains an initialized index.
	IsRepository() bool

	// Init creates a fresh repository whose HEAD points at branch.
	Init(ctx context.Context, branch string) error

	// Configure applies the committer identity and default push behavior.
	Configure(ctx context.Context, id Identity) error

	// MarkTrusted marks the working directory, and any directory, as safe
	// for the current user regardless of ownership.
	MarkTrusted(ctx context.Context) error

	// AddAll stages every file under Root in one operation.
	AddAll(ctx context.Context) error

	// Add stages the given paths, relative to Root, in one operation.
	Add(ctx context.Context, paths ...string) error

	// Status returns porcelain status lines ("XY path").
	Status(ctx context.Context) ([]string, error)

	// Commit records the index as a new commit.
	Commit(ctx context.Context, message string) error

	// RemoveRemote deletes the named remote.
	RemoveRemote(ctx context.Context, name string) error

	// AddRemote adds a remote with the given URL.
	AddRemote(ctx context.Context, name, url string) error

	// RenameBranch moves the current branch to name, replacing any existing branch.
	RenameBranch(ctx context.Context, name string) error

	// Push force-pushes branch to remote and sets upstream tracking.
	Push(ctx context.Context, remote, branch string) error
}
