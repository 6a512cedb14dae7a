// Package report renders human-readable summaries of inspections, audits
// and runs.
package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/xlab/treeprint"

	"apub-go/internal/pub"
)

// Display limits.
const (
	TopExtensions   = 10
	ListedOversized = 5
	ListedFailures  = 5
)

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	style := table.StyleLight
	style.Format.Header = text.FormatDefault
	style.Format.Footer = text.FormatDefault
	style.Title.Format = text.FormatDefault
	// Widen narrow tables so the title is never wrapped: "│ " + title + " │".
	style.Size.WidthMin = text.StringWidthWithoutEscSequences(title) + 4
	t.SetStyle(style)
	t.SetTitle(title)
	return t
}

// StructureTree returns the root-level tree of an archive: each root item,
// with the number of files below it for directories.
func StructureTree(s *pub.ArchiveSummary) string {
	tree := treeprint.New()
	tree.SetValue(s.Name)
	for _, root := range s.Roots() {
		if s.IsDirectory(root) {
			tree.AddMetaBranch(fmt.Sprintf("%d files", s.FilesUnder(root)), root+"/")
		} else {
			tree.AddNode(root)
		}
	}
	return tree.String()
}

// WriteStructure renders the inspector's summary of an archive.
func WriteStructure(w io.Writer, s *pub.ArchiveSummary) error {
	if _, err := io.WriteString(w, StructureTree(s)); err != nil {
		return err
	}

	t := newTable(w, "Archive contents")
	t.AppendRows([]table.Row{
		{"Entries", s.TotalEntries},
		{"Folders", s.DirectoryCount()},
		{"Files", s.FileCount()},
		{"Single root folder", yesNo(s.HasSingleRoot())},
	})
	t.Render()

	folders := make([]string, 0, len(s.FolderCounts))
	for dir, n := range s.FolderCounts {
		if n > 0 {
			folders = append(folders, dir)
		}
	}
	if len(folders) == 0 {
		return nil
	}
	sort.Strings(folders)

	ft := newTable(w, "Files per folder")
	ft.AppendHeader(table.Row{"Folder", "Files"})
	for _, dir := range folders {
		ft.AppendRow(table.Row{dir, s.FolderCounts[dir]})
	}
	ft.Render()
	return nil
}

// WriteAudit renders the content auditor's report.
func WriteAudit(w io.Writer, r *pub.AuditReport) error {
	t := newTable(w, "Content audit")
	t.AppendHeader(table.Row{"Size tier", "Files"})
	for _, tier := range pub.Tiers {
		t.AppendRow(table.Row{tier.String(), r.ByTier[tier]})
	}
	t.AppendFooter(table.Row{"Total", fmt.Sprintf("%d (%s)", r.TotalFiles, FormatBytes(r.TotalBytes))})
	t.Render()

	if exts := r.TopExtensions(TopExtensions); len(exts) > 0 {
		et := newTable(w, "Top extensions")
		et.AppendHeader(table.Row{"Extension", "Files"})
		for _, e := range exts {
			name := e.Ext
			if name == "" {
				name = "(none)"
			}
			et.AppendRow(table.Row{name, e.Count})
		}
		et.Render()
	}

	return writeOversized(w, r.Oversize, len(r.Oversize))
}

func writeOversized(w io.Writer, list pub.OversizeList, limit int) error {
	if len(list) == 0 {
		return nil
	}
	t := newTable(w, fmt.Sprintf("Files at or above %s", FormatBytes(pub.PublishSizeCeiling)))
	t.AppendHeader(table.Row{"Path", "Size"})
	for i, f := range list {
		if i == limit {
			break
		}
		t.AppendRow(table.Row{f.Path, FormatBytes(f.Size)})
	}
	if more := len(list) - limit; more > 0 {
		t.AppendFooter(table.Row{fmt.Sprintf("... and %d more", more), ""})
	}
	t.Render()
	return nil
}

// WriteRun renders the final summary of a run.
func WriteRun(w io.Writer, s *pub.RunSummary) error {
	t := newTable(w, "Run summary")
	t.AppendRows([]table.Row{
		{"Run", s.RunID},
		{"Archive", s.Archive},
		{"Elapsed", s.Elapsed.Round(100 * time.Millisecond).String()},
	})
	if s.Structure != nil {
		t.AppendRow(table.Row{"Archive files", fmt.Sprintf("%d in %d folders", s.Structure.FileCount(), s.Structure.DirectoryCount())})
	}
	t.AppendRow(table.Row{"Extracted", fmt.Sprintf("%d (skipped %d)", s.Extract.Extracted, s.Extract.Skipped)})
	if s.Normalize.Flattened {
		t.AppendRow(table.Row{"Flattened", s.Normalize.Inner})
	}
	if s.Audit != nil {
		t.AppendRow(table.Row{"Files", fmt.Sprintf("%d (%s)", s.Audit.TotalFiles, FormatBytes(s.Audit.TotalBytes))})
	}
	if st := s.Staging; st != nil {
		t.AppendRow(table.Row{"Staged", fmt.Sprintf("%d of %d (%s mode)", st.Staged, st.Planned, st.Mode)})
		if len(st.Failed) > 0 {
			t.AppendRow(table.Row{"Not staged", len(st.Failed)})
		}
	}
	if p := s.Publish; p != nil {
		t.AppendRow(table.Row{"Publish", fmt.Sprintf("%s after %d attempt(s)", p.State, len(p.Attempts))})
		if p.Published() && p.RemoteURL != "" {
			t.AppendRow(table.Row{"Repository", p.RemoteURL})
		}
	}
	t.AppendSeparator()
	if s.Success {
		t.AppendRow(table.Row{"Result", "SUCCESS"})
	} else {
		t.AppendRow(table.Row{"Result", "FAILED"})
		if s.Err != nil {
			t.AppendRow(table.Row{"Error", s.Err.Error()})
		}
	}
	t.Render()

	if s.Staging != nil && len(s.Staging.Failed) > 0 {
		writeFailures(w, s.Staging.Failed)
	}
	if s.Audit != nil {
		return writeOversized(w, s.Audit.Oversize, ListedOversized)
	}
	return nil
}

func writeFailures(w io.Writer, failed []pub.FailedPath) {
	t := newTable(w, "Paths not staged")
	t.AppendHeader(table.Row{"Path", "Reason"})
	for i, f := range failed {
		if i == ListedFailures {
			break
		}
		t.AppendRow(table.Row{f.Path, string(f.Reason)})
	}
	if more := len(failed) - ListedFailures; more > 0 {
		t.AppendFooter(table.Row{fmt.Sprintf("... and %d more", more), ""})
	}
	t.Render()
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
