package publish

import (
	"context"
	"errors"
	"fmt"
	"time"

	"apub-go/internal/pub"
)

const (
	DefaultRemoteName  = "origin"
	DefaultBranch      = "main"
	DefaultMaxAttempts = 3
	DefaultBackoffStep = 10 * time.Second
	DefaultPushTimeout = 900 * time.Second
)

// Options configures a Manager. Zero fields take the defaults.
type Options struct {
	Remote      pub.RemoteSpec
	RemoteName  string
	Branch      string
	MaxAttempts int
	BackoffStep time.Duration
	PushTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.RemoteName == "" {
		o.RemoteName = DefaultRemoteName
	}
	if o.Branch == "" {
		o.Branch = DefaultBranch
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.BackoffStep <= 0 {
		o.BackoffStep = DefaultBackoffStep
	}
	if o.PushTimeout <= 0 {
		o.PushTimeout = DefaultPushTimeout
	}
	return o
}

// Manager commits the staged index as one snapshot and force-pushes it to
// the configured remote, retrying the push with linear backoff.
type Manager struct {
	repo   pub.Repository
	clock  pub.Clock
	logger pub.Logger
	opts   Options
}

var _ pub.Publisher = (*Manager)(nil)

// NewManager creates a publish manager.
func NewManager(repo pub.Repository, clock pub.Clock, logger pub.Logger, opts Options) *Manager {
	return &Manager{
		repo:   repo,
		clock:  clock,
		logger: logger,
		opts:   opts.withDefaults(),
	}
}

// Publish runs commit, remote configuration, branch normalization and push.
// The returned result is always non-nil; its State is terminal.
func (m *Manager) Publish(ctx context.Context, in pub.PublishInput) (*pub.PublishResult, error) {
	remote := m.opts.Remote
	res := &pub.PublishResult{
		State:     pub.StatePending,
		RemoteURL: remote.DisplayURL(),
		Branch:    m.opts.Branch,
	}
	fail := func(err error) (*pub.PublishResult, error) {
		res.State = pub.StateFailed
		m.logger.Error("publish failed", "state", res.State, "error", err)
		return res, err
	}

	url, err := remote.URL()
	if err != nil {
		if !errors.Is(err, pub.ErrConfigurationMissing) {
			err = fmt.Errorf("%w: %v", pub.ErrConfigurationMissing, err)
		}
		return fail(err)
	}

	res.State = pub.StateCommitting
	m.logger.Info("committing changes")
	lines, err := m.repo.Status(ctx)
	if err != nil {
		return fail(fmt.Errorf("%w: checking for changes: %v", pub.ErrCommitFailed, err))
	}
	if pub.CountChanges(lines) == 0 {
		m.logger.Warn("no changes to commit")
		res.State = pub.StateNoChanges
		return res, nil
	}
	if err := m.repo.Commit(ctx, CommitMessage(in, m.clock.Now())); err != nil {
		return fail(fmt.Errorf("%w: %v", pub.ErrCommitFailed, err))
	}
	res.State = pub.StateCommitted

	res.State = pub.StateConfiguringRemote
	if err := m.repo.RemoveRemote(ctx, m.opts.RemoteName); err != nil {
		m.logger.Debug("no existing remote to remove", "remote", m.opts.RemoteName)
	}
	if err := m.repo.AddRemote(ctx, m.opts.RemoteName, url); err != nil {
		return fail(fmt.Errorf("%w: %s", pub.ErrRemoteConfigFailed, remote.Redact(err.Error())))
	}
	if err := m.repo.RenameBranch(ctx, m.opts.Branch); err != nil {
		m.logger.Warn("could not rename branch", "branch", m.opts.Branch, "error", err)
	}

	m.logger.Info("pushing to remote", "remote", res.RemoteURL, "branch", m.opts.Branch)
	policy := pub.RetryPolicy{
		MaxAttempts: m.opts.MaxAttempts,
		Backoff:     pub.LinearBackoff(m.opts.BackoffStep),
		OnRetry: func(attempt int, wait time.Duration, err error) {
			res.State = pub.StateRetryWait
			m.logger.Warn("push failed, retrying", "attempt", attempt, "wait", wait)
		},
	}
	n, err := pub.Retry(ctx, policy, m.clock, func(ctx context.Context, attempt int) error {
		res.State = pub.StatePushing
		m.logger.Info("push attempt", "attempt", attempt, "of", m.opts.MaxAttempts)
		return m.push(ctx, res, attempt)
	})
	if err != nil {
		if errors.Is(err, pub.ErrInterrupted) {
			return fail(err)
		}
		return fail(fmt.Errorf("%w after %d attempts: %s", pub.ErrPushFailed, n, remote.Redact(err.Error())))
	}

	res.State = pub.StatePublished
	m.logger.Info("successfully pushed", "remote", res.RemoteURL, "attempts", n)
	return res, nil
}

func (m *Manager) push(ctx context.Context, res *pub.PublishResult, attempt int) error {
	ctx, cancel := context.WithTimeout(ctx, m.opts.PushTimeout)
	defer cancel()

	start := m.clock.Now()
	err := m.repo.Push(ctx, m.opts.RemoteName, m.opts.Branch)
	res.Attempts = append(res.Attempts, pub.PublishAttempt{
		Attempt: attempt,
		Success: err == nil,
		Elapsed: m.clock.Now().Sub(start),
		Err:     err,
	})
	if err != nil {
		m.logger.Warn("push attempt failed", "attempt", attempt, "error", m.opts.Remote.Redact(err.Error()))
	}
	return err
}
