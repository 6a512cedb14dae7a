package encryption

import (
	"fmt"
	"os"
	"path/filepath"

	"apub-go/internal/pub"
)

// Suffix is appended to the names of encrypted archives.
const Suffix = ".age"

// EncryptFile encrypts the file at src into src+Suffix and returns the new
// path. The output is written to a temp file and renamed into place, so a
// failed run never leaves a truncated archive behind.
func EncryptFile(e pub.Encryptor, src string) (string, error) {
	dst := src + Suffix
	if _, err := os.Stat(dst); err == nil {
		return "", fmt.Errorf("%s already exists", dst)
	}

	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if err := e.Encrypt(in, tmp); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return "", fmt.Errorf("failed to rename temp file: %w", err)
	}
	success = true
	return dst, nil
}
