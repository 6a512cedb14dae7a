package testutil

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"apub-go/internal/pub"
)

// RepoCall records one call made to a FakeRepository.
type RepoCall struct {
	Method string
	Args   []string
}

// FakeRepository is a scriptable in-memory pub.Repository rooted at a real
// directory. Staging checks that paths exist on disk, the way git does.
type FakeRepository struct {
	mu   sync.Mutex
	root string

	initialized bool
	identity    pub.Identity
	branch      string
	remotes     map[string]string
	staged      map[string]bool
	commits     []string
	calls       []RepoCall

	// AddAllErr, when set, makes AddAll fail without staging anything.
	AddAllErr error
	// AddAllNoop makes AddAll succeed without staging anything.
	AddAllNoop bool
	// AddHook runs before Add stages its paths; a non-nil error fails the call.
	AddHook func(paths []string) error
	// StatusErr, when set, makes Status fail.
	StatusErr error
	// StatusErrs is consumed one per Status call before StatusErr is checked.
	StatusErrs []error
	// ExtraStatus lines are appended to every Status result, e.g. "?? stray.txt".
	ExtraStatus []string
	// CommitErr, when set, makes Commit fail.
	CommitErr error
	// AddRemoteErr, when set, makes AddRemote fail.
	AddRemoteErr error
	// PushErrs is consumed one per Push call; a nil entry or an exhausted
	// slice means success.
	PushErrs []error
	// InitErr, when set, makes Init fail.
	InitErr error
}

var _ pub.Repository = (*FakeRepository)(nil)

// NewFakeRepository creates a fake repository over root.
func NewFakeRepository(root string) *FakeRepository {
	return &FakeRepository{
		root:    root,
		remotes: make(map[string]string),
		staged:  make(map[string]bool),
	}
}

// NewInitializedFakeRepository creates a fake repository that reports an
// initialized index.
func NewInitializedFakeRepository(root string) *FakeRepository {
	r := NewFakeRepository(root)
	r.initialized = true
	r.branch = "master"
	return r
}

func (r *FakeRepository) record(method string, args ...string) {
	r.calls = append(r.calls, RepoCall{Method: method, Args: append([]string(nil), args...)})
}

// Calls returns every recorded call in order.
func (r *FakeRepository) Calls() []RepoCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RepoCall(nil), r.calls...)
}

// CallsTo returns the recorded calls to method.
func (r *FakeRepository) CallsTo(method string) []RepoCall {
	var out []RepoCall
	for _, c := range r.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Staged returns the staged paths in sorted order.
func (r *FakeRepository) Staged() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stagedLocked()
}

func (r *FakeRepository) stagedLocked() []string {
	out := make([]string, 0, len(r.staged))
	for p := range r.staged {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Commits returns the recorded commit messages.
func (r *FakeRepository) Commits() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.commits...)
}

// Remote returns the URL of the named remote.
func (r *FakeRepository) Remote(name string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.remotes[name]
	return u, ok
}

// Branch returns the current branch name.
func (r *FakeRepository) Branch() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.branch
}

// Identity returns the configured identity.
func (r *FakeRepository) Identity() pub.Identity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.identity
}

func (r *FakeRepository) Root() string { return r.root }

func (r *FakeRepository) IsRepository() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.initialized
}

func (r *FakeRepository) Init(ctx context.Context, branch string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("Init", branch)
	if r.InitErr != nil {
		return r.InitErr
	}
	r.initialized = true
	r.branch = branch
	return nil
}

func (r *FakeRepository) Configure(ctx context.Context, id pub.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("Configure", id.Name, id.Email)
	r.identity = id
	return nil
}

func (r *FakeRepository) MarkTrusted(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("MarkTrusted")
	return nil
}

func (r *FakeRepository) AddAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("AddAll")
	if r.AddAllErr != nil {
		return r.AddAllErr
	}
	if r.AddAllNoop {
		return nil
	}
	return filepath.WalkDir(r.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == pub.MetadataDir {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(r.root, p)
		if err != nil {
			return err
		}
		r.staged[filepath.ToSlash(rel)] = true
		return nil
	})
}

func (r *FakeRepository) Add(ctx context.Context, paths ...string) error {
	r.mu.Lock()
	r.record("Add", paths...)
	hook := r.AddHook
	r.mu.Unlock()

	if hook != nil {
		if err := hook(paths); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range paths {
		if _, err := os.Lstat(filepath.Join(r.root, filepath.FromSlash(p))); err != nil {
			return fmt.Errorf("pathspec '%s' did not match any files", p)
		}
	}
	for _, p := range paths {
		r.staged[p] = true
	}
	return nil
}

func (r *FakeRepository) Status(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("Status")
	if len(r.StatusErrs) > 0 {
		err := r.StatusErrs[0]
		r.StatusErrs = r.StatusErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	if r.StatusErr != nil {
		return nil, r.StatusErr
	}
	var lines []string
	for _, p := range r.stagedLocked() {
		lines = append(lines, "A  "+p)
	}
	return append(lines, r.ExtraStatus...), nil
}

func (r *FakeRepository) Commit(ctx context.Context, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("Commit", message)
	if r.CommitErr != nil {
		return r.CommitErr
	}
	if len(r.staged) == 0 {
		return fmt.Errorf("nothing to commit")
	}
	r.commits = append(r.commits, message)
	r.staged = make(map[string]bool)
	return nil
}

func (r *FakeRepository) RemoveRemote(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("RemoveRemote", name)
	if _, ok := r.remotes[name]; !ok {
		return fmt.Errorf("no such remote: '%s'", name)
	}
	delete(r.remotes, name)
	return nil
}

func (r *FakeRepository) AddRemote(ctx context.Context, name, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("AddRemote", name, url)
	if r.AddRemoteErr != nil {
		return r.AddRemoteErr
	}
	if _, ok := r.remotes[name]; ok {
		return fmt.Errorf("remote %s already exists", name)
	}
	r.remotes[name] = url
	return nil
}

func (r *FakeRepository) RenameBranch(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("RenameBranch", name)
	r.branch = name
	return nil
}

func (r *FakeRepository) Push(ctx context.Context, remote, branch string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("Push", remote, branch)
	if len(r.PushErrs) == 0 {
		return nil
	}
	err := r.PushErrs[0]
	r.PushErrs = r.PushErrs[1:]
	return err
}

