package source

import (
	"context"
	"fmt"
	"os"
	"sync"

	"apub-go/internal/pub"
)

// MemorySource serves archives registered with Put. Each Open writes the
// bytes to a temp file that is removed when the archive is closed.
// Safe for concurrent use.
type MemorySource struct {
	dir      string
	archives map[string][]byte
	mu       sync.RWMutex
}

var _ pub.Source = (*MemorySource)(nil)

// NewMemorySource creates an empty MemorySource writing temp files under
// dir, or the system temp dir when dir is empty.
func NewMemorySource(dir string) *MemorySource {
	return &MemorySource{dir: dir, archives: make(map[string][]byte)}
}

// Put registers data under name, replacing any previous value.
func (m *MemorySource) Put(name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.archives[name] = append([]byte(nil), data...)
}

func (m *MemorySource) Open(ctx context.Context, ref string) (*pub.LocalArchive, error) {
	m.mu.RLock()
	data, ok := m.archives[ref]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("archive not found: %s", ref)
	}

	path, err := writeTemp(m.dir, ref, data)
	if err != nil {
		return nil, err
	}
	return pub.NewLocalArchive(path, ref, func() { os.Remove(path) }), nil
}
