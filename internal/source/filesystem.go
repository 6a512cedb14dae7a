package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"apub-go/internal/pub"
)

// FileSource serves archives that are already on local disk.
type FileSource struct {
	logger pub.Logger
}

var _ pub.Source = (*FileSource)(nil)

// NewFileSource creates a FileSource.
func NewFileSource(logger pub.Logger) *FileSource {
	return &FileSource{logger: logger}
}

// Open checks that ref names a readable regular file. Nothing is copied, so
// the returned archive has no cleanup.
func (s *FileSource) Open(ctx context.Context, ref string) (*pub.LocalArchive, error) {
	if ref == "" {
		return nil, fmt.Errorf("archive path: %w", pub.ErrConfigurationMissing)
	}
	if strings.HasPrefix(ref, s3Scheme) {
		return nil, fmt.Errorf("%s is an S3 reference; set archive.source = \"s3\"", ref)
	}

	path, err := filepath.Abs(ref)
	if err != nil {
		return nil, fmt.Errorf("resolving archive path: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("archive not accessible: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("archive is not a regular file: %s", path)
	}

	s.logger.Info("using local archive", "path", path, "bytes", info.Size())
	return pub.NewLocalArchive(path, filepath.Base(path), nil), nil
}
