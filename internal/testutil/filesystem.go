package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"apub-go/internal/pub"
)

// WriteTree creates files under root. Keys are slash-separated relative
// paths; a key ending in "/" creates an empty directory.
func WriteTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if strings.HasSuffix(rel, "/") {
			if err := os.MkdirAll(p, 0755); err != nil {
				t.Fatalf("creating directory %s: %v", rel, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatalf("creating parent of %s: %v", rel, err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatalf("writing %s: %v", rel, err)
		}
	}
}

// WriteNumberedFiles creates n files named "<dir>/file-NN.txt" (1-based,
// zero-padded to keep lexical order) and returns their relative paths in order.
func WriteNumberedFiles(t *testing.T, root, dir string, n int) []string {
	t.Helper()
	paths := make([]string, 0, n)
	files := make(map[string]string, n)
	for i := 1; i <= n; i++ {
		rel := fmt.Sprintf("file-%03d.txt", i)
		if dir != "" {
			rel = dir + "/" + rel
		}
		paths = append(paths, rel)
		files[rel] = fmt.Sprintf("content %d\n", i)
	}
	WriteTree(t, root, files)
	return paths
}

// WriteSizedFile creates a sparse file of the given size.
func WriteSizedFile(t *testing.T, path string, size int64) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating parent of %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating %s: %v", path, err)
	}
	defer f.Close()
	if err := f.Truncate(size); err != nil {
		t.Fatalf("sizing %s: %v", path, err)
	}
}

// MockFilesystemManager is an in-memory pub.FilesystemManager for
// coordinator tests. It records removals.
type MockFilesystemManager struct {
	mu      sync.Mutex
	files   map[string]bool
	removed []string

	// RemoveErr, when set, makes RemoveAll fail.
	RemoveErr error
}

// NewMockFilesystemManager creates an empty mock filesystem.
func NewMockFilesystemManager() *MockFilesystemManager {
	return &MockFilesystemManager{files: make(map[string]bool)}
}

// AddFile adds an absolute file path.
func (m *MockFilesystemManager) AddFile(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[filepath.Clean(path)] = true
}

// Removed returns the paths passed to RemoveAll.
func (m *MockFilesystemManager) Removed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.removed...)
}

func (m *MockFilesystemManager) ListFiles(root string, exclude ...string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	root = filepath.Clean(root)
	var out []string
	for p := range m.files {
		rel, err := filepath.Rel(root, p)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		rel = filepath.ToSlash(rel)
		if excluded(rel, exclude) {
			continue
		}
		out = append(out, rel)
	}
	sort.Strings(out)
	return out, nil
}

func excluded(rel string, exclude []string) bool {
	parts := strings.Split(rel, "/")
	for _, part := range parts[:len(parts)-1] {
		for _, ex := range exclude {
			if part == ex {
				return true
			}
		}
	}
	return false
}

func (m *MockFilesystemManager) Exists(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.files[filepath.Clean(path)]
}

func (m *MockFilesystemManager) RemoveAll(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, path)
	if m.RemoveErr != nil {
		return m.RemoveErr
	}
	prefix := filepath.Clean(path) + string(filepath.Separator)
	for p := range m.files {
		if p == filepath.Clean(path) || strings.HasPrefix(p, prefix) {
			delete(m.files, p)
		}
	}
	return nil
}

var _ pub.FilesystemManager = (*MockFilesystemManager)(nil)
