package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	securejoin "github.com/cyphar/filepath-securejoin"

	"apub-go/internal/fs"
	"apub-go/internal/pub"
)

// progressInterval is how many entries pass between progress log lines.
const progressInterval = 100

// Extractor writes an archive's regular files and directories into a
// working directory.
type Extractor struct {
	skip   *fs.SkipMatcher
	logger pub.Logger
}

var _ pub.Extractor = (*Extractor)(nil)

// NewExtractor creates an Extractor that leaves out entries matched by skip.
func NewExtractor(skip *fs.SkipMatcher, logger pub.Logger) *Extractor {
	return &Extractor{skip: skip, logger: logger}
}

// Extract replaces the contents of dest with the archive's contents.
// Entries that fail to extract, skip-matched entries and anything that is not
// a regular file or directory are counted as skipped. Only a failure to
// read the archive itself is returned as an error.
func (x *Extractor) Extract(ctx context.Context, a *pub.LocalArchive, dest string) (pub.ExtractResult, error) {
	var res pub.ExtractResult

	format, err := resolveFormat(a.Path, a.Name)
	if err != nil {
		return res, err
	}

	x.logger.Info("cleaning working directory", "dir", dest)
	if err := os.RemoveAll(dest); err != nil {
		return res, fmt.Errorf("cleaning %s: %w", dest, err)
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return res, fmt.Errorf("creating %s: %w", dest, err)
	}

	x.logger.Info("extracting archive", "archive", a.Name, "format", format)
	seen := 0
	err = walk(ctx, a.Path, format, func(e entry) error {
		seen++
		if seen%progressInterval == 0 {
			x.logger.Info("extraction progress", "entries", seen)
		}

		name := cleanName(e.Name)
		if name == "" {
			return nil
		}
		if x.skip.Match(name) {
			res.Skipped++
			return nil
		}
		if !e.IsDir() && !e.IsRegular() {
			x.logger.Debug("skipping non-regular entry", "name", name, "type", e.Type.String())
			res.Skipped++
			return nil
		}

		if err := x.write(dest, name, e); err != nil {
			x.logger.Warn("failed to extract entry", "name", name, "error", err)
			res.Skipped++
			return nil
		}
		if e.IsRegular() {
			res.Extracted++
		}
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("extracting %s: %w", a.Name, err)
	}
	if seen%progressInterval != 0 {
		x.logger.Info("extraction progress", "entries", seen)
	}

	x.logger.Info("extraction complete", "entries", seen, "extracted", res.Extracted, "skipped", res.Skipped)
	return res, nil
}

func (x *Extractor) write(dest, name string, e entry) error {
	target, err := securejoin.SecureJoin(dest, filepath.FromSlash(name))
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}

	if e.IsDir() {
		return os.MkdirAll(target, 0o755)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	src, err := e.open()
	if err != nil {
		return err
	}
	defer src.Close()

	perm := e.Perm | 0o600
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
