package staging

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"apub-go/internal/fs"
	"apub-go/internal/pub"
	"apub-go/internal/testutil"
)

func newTestEngine(t *testing.T, repo *testutil.FakeRepository, opts Options) *Engine {
	t.Helper()
	return NewEngine(repo, fs.NewOSFilesystemManager(), pub.NewNopLogger(), opts)
}

func addCalls(repo *testutil.FakeRepository) [][]string {
	var out [][]string
	for _, c := range repo.CallsTo("Add") {
		out = append(out, c.Args)
	}
	return out
}

func TestEngine_BulkShortCircuits(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	testutil.WriteNumberedFiles(t, root, "src", 5)
	repo := testutil.NewInitializedFakeRepository(root)

	res, err := newTestEngine(t, repo, Options{}).Stage(context.Background())
	if err != nil {
		t.Fatalf("Stage() error = %v", err)
	}
	want := &pub.StagingResult{Mode: pub.ModeBulk, Planned: 5, Attempted: 5, Staged: 5, Indexed: 5, Clean: true}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
	if n := len(repo.CallsTo("Add")); n != 0 {
		t.Errorf("expected no batch or individual calls, got %d", n)
	}
	if n := len(repo.CallsTo("MarkTrusted")); n != 1 {
		t.Errorf("MarkTrusted calls = %d, want 1", n)
	}
}

func TestEngine_BulkFailureEscalatesToBatches(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	paths := testutil.WriteNumberedFiles(t, root, "", 45)
	repo := testutil.NewInitializedFakeRepository(root)
	repo.AddAllErr = errors.New("index.lock exists")

	res, err := newTestEngine(t, repo, Options{}).Stage(context.Background())
	if err != nil {
		t.Fatalf("Stage() error = %v", err)
	}
	if diff := cmp.Diff([][]string{paths[:30], paths[30:]}, addCalls(repo)); diff != "" {
		t.Errorf("batch calls mismatch (-want +got):\n%s", diff)
	}
	if res.Mode != pub.ModeBatch || res.Staged != 45 || !res.Clean || res.BatchesFailed != 0 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestEngine_PartialBatchFailure(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	paths := testutil.WriteNumberedFiles(t, root, "", 45)
	repo := testutil.NewInitializedFakeRepository(root)
	repo.AddAllErr = errors.New("bulk add timed out")
	repo.AddHook = func(batch []string) error {
		if len(batch) > 1 && batch[0] == "file-031.txt" {
			// The archive tree changes under us while batch 2 runs.
			if err := os.Remove(filepath.Join(root, "file-033.txt")); err != nil {
				return err
			}
			return errors.New("batch add failed")
		}
		return nil
	}

	res, err := newTestEngine(t, repo, Options{}).Stage(context.Background())
	if err != nil {
		t.Fatalf("Stage() error = %v", err)
	}

	if res.Staged != 44 {
		t.Errorf("Staged = %d, want 44", res.Staged)
	}
	if res.Planned != 45 {
		t.Errorf("Planned = %d, want 45", res.Planned)
	}
	if res.Mode != pub.ModeIndividual {
		t.Errorf("Mode = %s, want %s", res.Mode, pub.ModeIndividual)
	}
	if res.BatchesFailed != 1 {
		t.Errorf("BatchesFailed = %d, want 1", res.BatchesFailed)
	}
	want := []pub.FailedPath{{Path: "file-033.txt", Reason: pub.ReasonMissing}}
	if diff := cmp.Diff(want, res.Failed, cmp.Comparer(func(a, b error) bool { return (a == nil) == (b == nil) })); diff != "" {
		t.Errorf("Failed mismatch (-want +got):\n%s", diff)
	}

	// Batch 1 as one call, the failed batch 2, then its 14 surviving files one by one.
	calls := addCalls(repo)
	if len(calls) != 2+14 {
		t.Fatalf("Add calls = %d, want 16", len(calls))
	}
	if diff := cmp.Diff(paths[:30], calls[0]); diff != "" {
		t.Errorf("first batch mismatch (-want +got):\n%s", diff)
	}
	var individual []string
	for _, c := range calls[2:] {
		if len(c) != 1 {
			t.Fatalf("individual call with %d paths", len(c))
		}
		individual = append(individual, c[0])
	}
	wantIndividual := append(append([]string{}, paths[30:32]...), paths[33:]...)
	if diff := cmp.Diff(wantIndividual, individual); diff != "" {
		t.Errorf("individual order mismatch (-want +got):\n%s", diff)
	}
}

func TestEngine_IndividualCommandError(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	testutil.WriteNumberedFiles(t, root, "", 5)
	repo := testutil.NewInitializedFakeRepository(root)
	repo.AddAllErr = errors.New("bulk failed")
	addErr := errors.New("invalid path")
	repo.AddHook = func(paths []string) error {
		for _, p := range paths {
			if p == "file-002.txt" {
				return addErr
			}
		}
		return nil
	}

	res, err := newTestEngine(t, repo, Options{}).Stage(context.Background())
	if err != nil {
		t.Fatalf("Stage() error = %v", err)
	}
	if res.Staged != 4 {
		t.Errorf("Staged = %d, want 4", res.Staged)
	}
	if len(res.Failed) != 1 {
		t.Fatalf("Failed = %v, want one entry", res.Failed)
	}
	f := res.Failed[0]
	if f.Path != "file-002.txt" || f.Reason != pub.ReasonCommandError || !errors.Is(f.Err, addErr) {
		t.Errorf("unexpected failure: %+v", f)
	}
}

func TestEngine_OnlyFailedBatchFallsBack(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	paths := testutil.WriteNumberedFiles(t, root, "", 6)
	repo := testutil.NewInitializedFakeRepository(root)
	repo.AddAllErr = errors.New("bulk failed")
	repo.AddHook = func(batch []string) error {
		if len(batch) == 2 && batch[0] == paths[2] {
			return errors.New("batch failed")
		}
		return nil
	}

	res, err := newTestEngine(t, repo, Options{BatchSize: 2}).Stage(context.Background())
	if err != nil {
		t.Fatalf("Stage() error = %v", err)
	}
	want := [][]string{
		paths[0:2],
		paths[2:4],
		{paths[2]},
		{paths[3]},
		paths[4:6],
	}
	if diff := cmp.Diff(want, addCalls(repo)); diff != "" {
		t.Errorf("Add calls mismatch (-want +got):\n%s", diff)
	}
	if res.Staged != 6 || len(res.Failed) != 0 || res.BatchesFailed != 1 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestEngine_SilentBulkNoopEscalates(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	testutil.WriteNumberedFiles(t, root, "", 3)
	repo := testutil.NewInitializedFakeRepository(root)
	repo.AddAllNoop = true

	res, err := newTestEngine(t, repo, Options{}).Stage(context.Background())
	if err != nil {
		t.Fatalf("Stage() error = %v", err)
	}
	if res.Mode != pub.ModeBatch || res.Staged != 3 {
		t.Errorf("unexpected result: %+v", res)
	}
	if res.Attempted != 6 {
		t.Errorf("Attempted = %d, want 6 (bulk counter plus batch counter)", res.Attempted)
	}
}

func TestEngine_VerifiedCountIncludesEveryStatusLine(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	testutil.WriteNumberedFiles(t, root, "", 3)
	repo := testutil.NewInitializedFakeRepository(root)
	repo.ExtraStatus = []string{"?? stray.txt", " M notes.txt", ""}

	res, err := newTestEngine(t, repo, Options{}).Stage(context.Background())
	if err != nil {
		t.Fatalf("Stage() error = %v", err)
	}
	if res.Staged != 5 || res.Indexed != 3 || res.Mode != pub.ModeBulk {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestEngine_StatusQueryFailure(t *testing.T) {
	t.Parallel()
	statusErr := errors.New("index.lock exists")

	tests := []struct {
		name       string
		setup      func(r *testutil.FakeRepository)
		wantErr    error
		wantStaged int
	}{
		{
			name:       "transient failure is retried",
			setup:      func(r *testutil.FakeRepository) { r.StatusErrs = []error{statusErr} },
			wantStaged: 4,
		},
		{
			name:    "persistent failure is reported",
			setup:   func(r *testutil.FakeRepository) { r.StatusErr = statusErr },
			wantErr: statusErr,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			root := t.TempDir()
			testutil.WriteNumberedFiles(t, root, "", 4)
			repo := testutil.NewInitializedFakeRepository(root)
			tt.setup(repo)

			res, err := newTestEngine(t, repo, Options{}).Stage(context.Background())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Stage() error = %v, want %v", err, tt.wantErr)
				}
				if errors.Is(err, pub.ErrNothingStaged) {
					t.Errorf("status failure reported as ErrNothingStaged")
				}
			} else if err != nil {
				t.Fatalf("Stage() error = %v", err)
			}

			if res.Mode != pub.ModeBulk || res.Staged != tt.wantStaged {
				t.Errorf("unexpected result: %+v", res)
			}
			if n := len(repo.CallsTo("AddAll")); n != 1 {
				t.Errorf("AddAll calls = %d, want 1", n)
			}
			if n := len(repo.CallsTo("Add")); n != 0 {
				t.Errorf("expected no batch or individual calls, got %d", n)
			}
			if n := len(repo.CallsTo("Status")); n != 2 {
				t.Errorf("Status calls = %d, want 2", n)
			}
		})
	}
}

func TestEngine_NothingStaged(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	testutil.WriteNumberedFiles(t, root, "", 3)
	repo := testutil.NewInitializedFakeRepository(root)
	repo.AddAllErr = errors.New("bulk failed")
	repo.AddHook = func([]string) error { return errors.New("permission denied") }

	res, err := newTestEngine(t, repo, Options{}).Stage(context.Background())
	if !errors.Is(err, pub.ErrNothingStaged) {
		t.Fatalf("Stage() error = %v, want ErrNothingStaged", err)
	}
	if res == nil || len(res.Failed) != 3 {
		t.Fatalf("expected three failed paths, got %+v", res)
	}
	for _, f := range res.Failed {
		if f.Reason != pub.ReasonCommandError {
			t.Errorf("%s: reason = %s, want %s", f.Path, f.Reason, pub.ReasonCommandError)
		}
	}
}

func TestEngine_Preconditions(t *testing.T) {
	t.Parallel()

	t.Run("not a repository", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		testutil.WriteNumberedFiles(t, root, "", 1)
		repo := testutil.NewFakeRepository(root)

		_, err := newTestEngine(t, repo, Options{}).Stage(context.Background())
		if !errors.Is(err, pub.ErrNotARepository) {
			t.Fatalf("Stage() error = %v, want ErrNotARepository", err)
		}
		if len(repo.Calls()) != 0 {
			t.Errorf("expected no repository calls, got %v", repo.Calls())
		}
	})

	t.Run("empty plan", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		testutil.WriteTree(t, root, map[string]string{
			".git/HEAD":   "ref: refs/heads/main",
			".git/config": "[core]",
			"empty/":      "",
		})
		repo := testutil.NewInitializedFakeRepository(root)

		_, err := newTestEngine(t, repo, Options{}).Stage(context.Background())
		if !errors.Is(err, pub.ErrEmptyPlan) {
			t.Fatalf("Stage() error = %v, want ErrEmptyPlan", err)
		}
		if len(repo.CallsTo("AddAll")) != 0 {
			t.Error("staging ran for an empty plan")
		}
	})

	t.Run("interrupted", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		testutil.WriteNumberedFiles(t, root, "", 2)
		repo := testutil.NewInitializedFakeRepository(root)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := newTestEngine(t, repo, Options{}).Stage(ctx)
		if !errors.Is(err, pub.ErrInterrupted) {
			t.Fatalf("Stage() error = %v, want ErrInterrupted", err)
		}
	})
}

func TestEngine_OversizedFileIsStaged(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{"README.md": "# data"})
	testutil.WriteSizedFile(t, filepath.Join(root, "data", "dump.bin"), 150<<20)
	repo := testutil.NewInitializedFakeRepository(root)

	res, err := newTestEngine(t, repo, Options{}).Stage(context.Background())
	if err != nil {
		t.Fatalf("Stage() error = %v", err)
	}
	if res.Staged != 2 {
		t.Errorf("Staged = %d, want 2", res.Staged)
	}
	if diff := cmp.Diff([]string{"README.md", "data/dump.bin"}, repo.Staged()); diff != "" {
		t.Errorf("staged mismatch (-want +got):\n%s", diff)
	}
}

func TestOptions_WithDefaults(t *testing.T) {
	t.Parallel()
	got := Options{BatchSize: 10}.withDefaults()
	want := DefaultOptions()
	want.BatchSize = 10
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("withDefaults() mismatch (-want +got):\n%s", diff)
	}
}
