package archive

import (
	"context"
	"fmt"

	"apub-go/internal/fs"
	"apub-go/internal/pub"
)

// Inspector reads an archive's directory structure without extracting it.
type Inspector struct {
	skip   *fs.SkipMatcher
	logger pub.Logger
}

var _ pub.Inspector = (*Inspector)(nil)

// NewInspector creates an Inspector that leaves out entries matched by skip.
func NewInspector(skip *fs.SkipMatcher, logger pub.Logger) *Inspector {
	return &Inspector{skip: skip, logger: logger}
}

// Inspect builds the ArchiveSummary for a. TotalEntries counts every entry,
// skipped ones included; everything else covers kept entries only.
func (i *Inspector) Inspect(ctx context.Context, a *pub.LocalArchive) (*pub.ArchiveSummary, error) {
	i.logger.Info("analyzing archive structure", "archive", a.Name)

	format, err := resolveFormat(a.Path, a.Name)
	if err != nil {
		return nil, err
	}

	s := pub.NewArchiveSummary(a.Name)
	err = walk(ctx, a.Path, format, func(e entry) error {
		s.TotalEntries++
		name := cleanName(e.Name)
		if name == "" || i.skip.Match(name) {
			return nil
		}
		switch {
		case e.IsDir():
			s.AddRoot(name)
			s.AddDirectory(name)
		case e.IsRegular():
			s.AddRoot(name)
			s.AddFile(name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("inspecting %s: %w", a.Name, err)
	}

	i.logger.Info("archive contents", "format", format, "entries", s.TotalEntries,
		"folders", s.DirectoryCount(), "files", s.FileCount())
	for _, root := range s.Roots() {
		if s.IsDirectory(root) {
			i.logger.Info("root folder", "name", root, "files", s.FilesUnder(root))
		} else {
			i.logger.Info("root file", "name", root)
		}
	}
	if s.HasSingleRoot() {
		i.logger.Info("single root folder detected", "name", s.Roots()[0])
	}
	return s, nil
}
