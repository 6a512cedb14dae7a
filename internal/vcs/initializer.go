package vcs

import (
	"context"
	"fmt"

	"apub-go/internal/fs"
	"apub-go/internal/pub"
)

// Initializer creates a fresh repository in the working directory and
// configures it for publishing.
type Initializer struct {
	repo     pub.Repository
	identity pub.Identity
	branch   string
	ignore   []byte
	logger   pub.Logger
}

var _ pub.Initializer = (*Initializer)(nil)

// NewInitializer creates an Initializer. ignore is written as the
// repository's ignore file; nil skips it.
func NewInitializer(repo pub.Repository, identity pub.Identity, branch string, ignore []byte, logger pub.Logger) *Initializer {
	return &Initializer{repo: repo, identity: identity, branch: branch, ignore: ignore, logger: logger}
}

func (i *Initializer) Initialize(ctx context.Context) error {
	i.logger.Info("setting up repository", "dir", i.repo.Root())

	if i.identity.Name == "" || i.identity.Email == "" {
		return fmt.Errorf("%w: identity.name, identity.email", pub.ErrConfigurationMissing)
	}

	i.trust(ctx)
	if err := i.repo.Init(ctx, i.branch); err != nil {
		return fmt.Errorf("initializing repository: %w", err)
	}
	// Ownership checks can apply to the new metadata directory too.
	i.trust(ctx)

	if err := i.repo.Configure(ctx, i.identity); err != nil {
		return fmt.Errorf("configuring repository: %w", err)
	}

	if i.ignore != nil {
		backedUp, err := fs.WriteIgnoreFile(i.repo.Root(), i.ignore)
		switch {
		case err != nil:
			i.logger.Warn("could not create ignore file", "error", err)
		case backedUp:
			i.logger.Info("existing ignore file backed up", "file", fs.IgnoreFileName+".backup")
		}
	}

	i.logger.Info("repository configured", "branch", i.branch)
	return nil
}

func (i *Initializer) trust(ctx context.Context) {
	if err := i.repo.MarkTrusted(ctx); err != nil {
		i.logger.Warn("could not mark directory as trusted", "error", err)
	}
}
