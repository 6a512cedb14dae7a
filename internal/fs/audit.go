package fs

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"apub-go/internal/pub"
)

// Auditor walks a materialized tree and classifies its files by extension
// and size tier.
type Auditor struct {
	logger pub.Logger
}

// NewAuditor creates an Auditor.
func NewAuditor(logger pub.Logger) *Auditor {
	return &Auditor{logger: logger}
}

// Audit builds a report for every regular file under root, skipping the
// version-control metadata directory. Files that cannot be read are logged
// and left out of the report.
func (a *Auditor) Audit(root string) (*pub.AuditReport, error) {
	a.logger.Info("performing file analysis", "root", root)
	report := pub.NewAuditReport()

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			a.logger.Warn("cannot access path", "path", p, "error", err)
			return nil
		}
		if d.IsDir() {
			if p != root && d.Name() == pub.MetadataDir {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			a.logger.Warn("cannot access file", "path", p, "error", err)
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return fmt.Errorf("relative path of %s: %w", p, err)
		}

		rec := pub.FileRecord{
			Path: filepath.ToSlash(rel),
			Size: info.Size(),
			Ext:  strings.ToLower(filepath.Ext(d.Name())),
			Tier: pub.TierFor(info.Size()),
		}
		if rec.Tier == pub.TierOversized {
			a.logger.Warn("very large file", "path", rec.Path, "size_mb", fmt.Sprintf("%.2f", float64(rec.Size)/(1<<20)))
		}
		report.Add(rec)
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("walking %s: %w", root, err)
	}

	a.logger.Info("file analysis complete", "files", report.TotalFiles, "bytes", report.TotalBytes)
	if n := len(report.Oversize); n > 0 {
		a.logger.Warn("files over the publish size limit", "count", n, "limit_mb", pub.PublishSizeCeiling>>20)
	}
	return report, nil
}

var _ pub.Auditor = (*Auditor)(nil)
