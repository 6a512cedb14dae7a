package vcs

import (
	"fmt"

	"apub-go/internal/config"
	"apub-go/internal/pub"
)

// NewRepositoryFromConfig creates the configured repository backend for dir.
func NewRepositoryFromConfig(cfg config.RepositoryConfig, dir string, logger pub.Logger) (pub.Repository, error) {
	switch cfg.Type {
	case "git", "":
		return NewGitRepository(cfg.GitPath, dir, cfg.TrustWorkDir, logger)
	case "gogit":
		return NewGoGitRepository(dir), nil
	default:
		return nil, fmt.Errorf("unknown repository type: %q", cfg.Type)
	}
}
