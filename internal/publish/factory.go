package publish

import (
	"apub-go/internal/config"
	"apub-go/internal/pub"
)

// NewManagerFromConfig creates a Manager from the remote and publish sections.
func NewManagerFromConfig(remote config.RemoteConfig, cfg config.PublishConfig, repo pub.Repository, clock pub.Clock, logger pub.Logger) *Manager {
	return NewManager(repo, clock, logger, Options{
		Remote: pub.RemoteSpec{
			Host:        remote.Host,
			Owner:       remote.Owner,
			User:        remote.User,
			Repo:        remote.Repo,
			Token:       remote.Token,
			URLTemplate: remote.URLTemplate,
		},
		RemoteName:  remote.Name,
		Branch:      remote.Branch,
		MaxAttempts: cfg.MaxAttempts,
		BackoffStep: cfg.BackoffStep.Duration,
		PushTimeout: cfg.PushTimeout.Duration,
	})
}
