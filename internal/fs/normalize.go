package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/otiai10/copy"

	"apub-go/internal/pub"
)

// minWrapperItems is the item count above which a lone root directory is
// treated as the real project root.
const minWrapperItems = 5

// projectMarkers are directory names that identify a project root.
var projectMarkers = []string{"src", "lib", "app", "components", "pages"}

// Normalizer flattens a single wrapper directory at the root of an
// extracted tree.
type Normalizer struct {
	logger pub.Logger
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(logger pub.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize moves the contents of a lone root directory up to root when the
// root holds exactly one directory, no files, and that directory looks like a
// project (more than five items, or a conventional source folder).
func (n *Normalizer) Normalize(root string) (pub.NormalizeResult, error) {
	var res pub.NormalizeResult

	dirs, files, err := listRoot(root)
	if err != nil {
		return res, err
	}
	res.RootDirs, res.RootFiles = len(dirs), len(files)
	n.logger.Info("current structure", "folders", len(dirs), "files", len(files))

	if len(dirs) != 1 || len(files) != 0 {
		n.logger.Info("keeping current folder structure")
		return res, nil
	}

	inner := dirs[0]
	innerPath := filepath.Join(root, inner)
	items, err := os.ReadDir(innerPath)
	if err != nil {
		return res, fmt.Errorf("reading %s: %w", inner, err)
	}
	n.logger.Info("single root folder", "folder", inner, "items", len(items))

	if !looksLikeProject(items) {
		n.logger.Info("keeping current folder structure")
		return res, nil
	}

	n.logger.Info("nested project structure detected, moving contents to root", "folder", inner)
	if err := flatten(root, innerPath); err != nil {
		return res, fmt.Errorf("flattening %s: %w", inner, err)
	}

	dirs, files, err = listRoot(root)
	if err != nil {
		return res, err
	}
	res.Flattened = true
	res.Inner = inner
	res.RootDirs, res.RootFiles = len(dirs), len(files)
	n.logger.Info("folder structure normalized", "folders", len(dirs), "files", len(files))
	return res, nil
}

func looksLikeProject(items []os.DirEntry) bool {
	if len(items) > minWrapperItems {
		return true
	}
	for _, item := range items {
		name := strings.ToLower(item.Name())
		for _, marker := range projectMarkers {
			if name == marker {
				return true
			}
		}
	}
	return false
}

// flatten replaces root with the contents of inner, which must live directly under root.
func flatten(root, inner string) error {
	tmp := fmt.Sprintf("%s.flatten-%s", filepath.Clean(root), uuid.NewString()[:8])

	if err := os.Rename(inner, tmp); err != nil {
		// Rename fails across devices; copy instead.
		if err := copy.Copy(inner, tmp); err != nil {
			os.RemoveAll(tmp)
			return fmt.Errorf("copying to temporary location: %w", err)
		}
	}
	if err := os.RemoveAll(root); err != nil {
		return fmt.Errorf("removing wrapper: %w", err)
	}
	if err := os.Rename(tmp, root); err != nil {
		if err := copy.Copy(tmp, root); err != nil {
			return fmt.Errorf("restoring from temporary location: %w", err)
		}
		os.RemoveAll(tmp)
	}
	return nil
}

func listRoot(root string) (dirs, files []string, err error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, nil, fmt.Errorf("reading root: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		} else {
			files = append(files, e.Name())
		}
	}
	return dirs, files, nil
}

var _ pub.Normalizer = (*Normalizer)(nil)
