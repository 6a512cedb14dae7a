package vcs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"apub-go/internal/pub"
)

// GitRepository drives the git command-line tool.
type GitRepository struct {
	runner *Runner
	dir    string
	// trust adds the working directory to the global safe.directory list.
	trust bool
}

var _ pub.Repository = (*GitRepository)(nil)

// NewGitRepository creates a repository backed by the git executable at
// gitPath (or on PATH when empty).
func NewGitRepository(gitPath, dir string, trust bool, logger pub.Logger) (*GitRepository, error) {
	runner, err := NewRunner(gitPath, dir, logger)
	if err != nil {
		return nil, err
	}
	return &GitRepository{runner: runner, dir: dir, trust: trust}, nil
}

func (r *GitRepository) Root() string { return r.dir }

func (r *GitRepository) IsRepository() bool {
	_, err := os.Stat(filepath.Join(r.dir, pub.MetadataDir))
	return err == nil
}

func (r *GitRepository) Init(ctx context.Context, branch string) error {
	if _, err := r.runner.Run(ctx, "init"); err != nil {
		return err
	}
	// Older git releases have no --initial-branch flag.
	_, err := r.runner.Run(ctx, "symbolic-ref", "HEAD", "refs/heads/"+branch)
	return err
}

func (r *GitRepository) Configure(ctx context.Context, id pub.Identity) error {
	settings := [][2]string{
		{"user.name", id.Name},
		{"user.email", id.Email},
		{"push.default", "simple"},
	}
	for _, kv := range settings {
		if _, err := r.runner.Run(ctx, "config", kv[0], kv[1]); err != nil {
			return fmt.Errorf("setting %s: %w", kv[0], err)
		}
	}
	return nil
}

// MarkTrusted registers the working directory, and any directory, as safe
// in the global git configuration. Entries already present are not repeated.
func (r *GitRepository) MarkTrusted(ctx context.Context) error {
	if !r.trust {
		return nil
	}
	abs, err := filepath.Abs(r.dir)
	if err != nil {
		return fmt.Errorf("resolving working directory: %w", err)
	}

	existing := map[string]bool{}
	// Exit status 1 means the key is unset.
	if res, err := r.runner.Run(ctx, "config", "--global", "--get-all", "safe.directory"); err == nil {
		for _, line := range strings.Split(res.Stdout, "\n") {
			existing[strings.TrimSpace(line)] = true
		}
	}
	for _, dir := range []string{abs, "*"} {
		if existing[dir] {
			continue
		}
		if _, err := r.runner.Run(ctx, "config", "--global", "--add", "safe.directory", dir); err != nil {
			return err
		}
	}
	return nil
}

func (r *GitRepository) AddAll(ctx context.Context) error {
	_, err := r.runner.Run(ctx, "add", ".")
	return err
}

func (r *GitRepository) Add(ctx context.Context, paths ...string) error {
	args := append([]string{"add", "--"}, paths...)
	_, err := r.runner.Run(ctx, args...)
	return err
}

func (r *GitRepository) Status(ctx context.Context) ([]string, error) {
	res, err := r.runner.Run(ctx, "status", "--porcelain")
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, line := range strings.Split(res.Stdout, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

func (r *GitRepository) Commit(ctx context.Context, message string) error {
	_, err := r.runner.Run(ctx, "commit", "-m", message)
	return err
}

func (r *GitRepository) RemoveRemote(ctx context.Context, name string) error {
	_, err := r.runner.Run(ctx, "remote", "remove", name)
	return err
}

func (r *GitRepository) AddRemote(ctx context.Context, name, url string) error {
	_, err := r.runner.Run(ctx, "remote", "add", name, url)
	return err
}

func (r *GitRepository) RenameBranch(ctx context.Context, name string) error {
	_, err := r.runner.Run(ctx, "branch", "-M", name)
	return err
}

func (r *GitRepository) Push(ctx context.Context, remote, branch string) error {
	_, err := r.runner.Run(ctx, "push", "--force", "-u", remote, branch)
	return err
}
