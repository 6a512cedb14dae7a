package fs

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/otiai10/copy"
)

const (
	IgnoreFileName  = ".gitignore"
	ignoreBackupExt = ".backup"
)

//go:embed gitignore.tmpl
var defaultIgnoreTemplate []byte

// DefaultIgnoreTemplate returns the built-in ignore file contents.
func DefaultIgnoreTemplate() []byte {
	return append([]byte(nil), defaultIgnoreTemplate...)
}

// LoadIgnoreTemplate reads the template at path, or returns the built-in
// template when path is empty.
func LoadIgnoreTemplate(path string) ([]byte, error) {
	if path == "" {
		return DefaultIgnoreTemplate(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading ignore template: %w", err)
	}
	return b, nil
}

// WriteIgnoreFile writes content to <root>/.gitignore. An existing file is
// first copied to .gitignore.backup. It reports whether a backup was made.
func WriteIgnoreFile(root string, content []byte) (backedUp bool, err error) {
	target := filepath.Join(root, IgnoreFileName)

	if _, err := os.Lstat(target); err == nil {
		if err := copy.Copy(target, target+ignoreBackupExt); err != nil {
			return false, fmt.Errorf("backing up %s: %w", IgnoreFileName, err)
		}
		backedUp = true
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("checking %s: %w", IgnoreFileName, err)
	}

	if err := os.WriteFile(target, content, 0o644); err != nil {
		return backedUp, fmt.Errorf("writing %s: %w", IgnoreFileName, err)
	}
	return backedUp, nil
}
