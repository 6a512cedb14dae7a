package source

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// createTemp creates an empty temp file in dir whose name keeps the suffix
// of name, so format detection still works on the path.
func createTemp(dir, name string) (*os.File, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating download directory: %w", err)
		}
	}
	f, err := os.CreateTemp(dir, "apub-*-"+filepath.Base(name))
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	return f, nil
}

// writeTemp copies data into a new temp file and returns its path.
func writeTemp(dir, name string, data []byte) (string, error) {
	return copyTemp(dir, name, func(w io.Writer) error {
		_, err := io.Copy(w, bytes.NewReader(data))
		return err
	})
}

// copyTemp creates a temp file and fills it with fill. The file is removed
// if fill fails.
func copyTemp(dir, name string, fill func(w io.Writer) error) (string, error) {
	f, err := createTemp(dir, name)
	if err != nil {
		return "", err
	}
	path := f.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(path)
		}
	}()

	if err := fill(f); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write data: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	success = true
	return path, nil
}
