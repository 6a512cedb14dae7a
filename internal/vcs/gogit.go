package vcs

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"apub-go/internal/pub"
)

// GoGitRepository is an in-process repository backed by go-git. It needs no
// git executable.
type GoGitRepository struct {
	dir  string
	repo *git.Repository
	now  func() time.Time
}

var _ pub.Repository = (*GoGitRepository)(nil)

// NewGoGitRepository creates a go-git repository handle for dir. The
// repository is opened lazily so dir may not be initialized yet.
func NewGoGitRepository(dir string) *GoGitRepository {
	return &GoGitRepository{dir: dir, now: time.Now}
}

func (r *GoGitRepository) Root() string { return r.dir }

func (r *GoGitRepository) open() (*git.Repository, error) {
	if r.repo != nil {
		return r.repo, nil
	}
	repo, err := git.PlainOpen(r.dir)
	if err != nil {
		return nil, fmt.Errorf("opening repository: %w", err)
	}
	r.repo = repo
	return repo, nil
}

func (r *GoGitRepository) worktree() (*git.Worktree, error) {
	repo, err := r.open()
	if err != nil {
		return nil, err
	}
	return repo.Worktree()
}

func (r *GoGitRepository) IsRepository() bool {
	_, err := r.open()
	return err == nil
}

func (r *GoGitRepository) Init(ctx context.Context, branch string) error {
	repo, err := git.PlainInitWithOptions(r.dir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName(branch)},
	})
	if err != nil {
		return fmt.Errorf("initializing repository: %w", err)
	}
	r.repo = repo
	return nil
}

func (r *GoGitRepository) Configure(ctx context.Context, id pub.Identity) error {
	repo, err := r.open()
	if err != nil {
		return err
	}
	cfg, err := repo.Config()
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	cfg.User.Name = id.Name
	cfg.User.Email = id.Email
	cfg.Raw.Section("push").SetOption("default", "simple")
	if err := repo.SetConfig(cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// MarkTrusted is a no-op; go-git does not check directory ownership.
func (r *GoGitRepository) MarkTrusted(ctx context.Context) error { return nil }

func (r *GoGitRepository) AddAll(ctx context.Context) error {
	wt, err := r.worktree()
	if err != nil {
		return err
	}
	return wt.AddWithOptions(&git.AddOptions{All: true})
}

func (r *GoGitRepository) Add(ctx context.Context, paths ...string) error {
	wt, err := r.worktree()
	if err != nil {
		return err
	}
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := wt.Add(p); err != nil {
			return fmt.Errorf("adding %s: %w", p, err)
		}
	}
	return nil
}

// Status returns porcelain-style lines ("XY path") sorted by path.
func (r *GoGitRepository) Status(ctx context.Context) ([]string, error) {
	wt, err := r.worktree()
	if err != nil {
		return nil, err
	}
	st, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("reading status: %w", err)
	}
	paths := make([]string, 0, len(st))
	for p, fs := range st {
		if fs.Staging == git.Unmodified && fs.Worktree == git.Unmodified {
			continue
		}
		paths = append(paths, p)
	}
	sort.Strings(paths)

	lines := make([]string, 0, len(paths))
	for _, p := range paths {
		fs := st[p]
		lines = append(lines, fmt.Sprintf("%c%c %s", fs.Staging, fs.Worktree, p))
	}
	return lines, nil
}

func (r *GoGitRepository) Commit(ctx context.Context, message string) error {
	repo, err := r.open()
	if err != nil {
		return err
	}
	cfg, err := repo.Config()
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	if cfg.User.Name == "" || cfg.User.Email == "" {
		return errors.New("author identity unknown")
	}
	wt, err := repo.Worktree()
	if err != nil {
		return err
	}
	_, err = wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: cfg.User.Name, Email: cfg.User.Email, When: r.now()},
	})
	if err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

func (r *GoGitRepository) RemoveRemote(ctx context.Context, name string) error {
	repo, err := r.open()
	if err != nil {
		return err
	}
	return repo.DeleteRemote(name)
}

func (r *GoGitRepository) AddRemote(ctx context.Context, name, rawURL string) error {
	repo, err := r.open()
	if err != nil {
		return err
	}
	_, err = repo.CreateRemote(&config.RemoteConfig{Name: name, URLs: []string{rawURL}})
	return err
}

// RenameBranch points HEAD at name, moving the current branch if one exists.
func (r *GoGitRepository) RenameBranch(ctx context.Context, name string) error {
	repo, err := r.open()
	if err != nil {
		return err
	}
	target := plumbing.NewBranchReferenceName(name)
	setHead := func() error {
		return repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, target))
	}

	head, err := repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return setHead()
	}
	if err != nil {
		return fmt.Errorf("resolving HEAD: %w", err)
	}
	if head.Name() == target {
		return nil
	}

	if err := repo.Storer.SetReference(plumbing.NewHashReference(target, head.Hash())); err != nil {
		return fmt.Errorf("creating %s: %w", name, err)
	}
	if err := setHead(); err != nil {
		return err
	}
	if head.Name().IsBranch() {
		if err := repo.Storer.RemoveReference(head.Name()); err != nil {
			return fmt.Errorf("removing %s: %w", head.Name().Short(), err)
		}
	}
	return nil
}

// Push force-pushes branch and records the remote as its upstream.
// Credentials embedded in the remote URL are used for HTTP basic auth.
func (r *GoGitRepository) Push(ctx context.Context, remoteName, branch string) error {
	repo, err := r.open()
	if err != nil {
		return err
	}
	remote, err := repo.Remote(remoteName)
	if err != nil {
		return fmt.Errorf("resolving remote %s: %w", remoteName, err)
	}

	ref := plumbing.NewBranchReferenceName(branch)
	opts := &git.PushOptions{
		RemoteName: remoteName,
		RefSpecs:   []config.RefSpec{config.RefSpec(fmt.Sprintf("+%s:%s", ref, ref))},
		Force:      true,
	}
	if urls := remote.Config().URLs; len(urls) > 0 {
		opts.Auth = authFromURL(urls[0])
	}

	err = repo.PushContext(ctx, opts)
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return err
	}

	cfg, err := repo.Config()
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	cfg.Branches[branch] = &config.Branch{Name: branch, Remote: remoteName, Merge: ref}
	if err := repo.SetConfig(cfg); err != nil {
		return fmt.Errorf("setting upstream: %w", err)
	}
	return nil
}

func authFromURL(raw string) transport.AuthMethod {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return nil
	}
	password, ok := u.User.Password()
	if !ok {
		return nil
	}
	return &http.BasicAuth{Username: u.User.Username(), Password: password}
}
