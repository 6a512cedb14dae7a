package pub

import (
	"sort"
	"strings"
)

// RootFolder is the FolderCounts key used for files at the archive root.
const RootFolder = "."

// ArchiveSummary describes the structure of an archive as recorded by the
// inspector. It is built once per run and must not be modified afterwards.
type ArchiveSummary struct {
	// Name is the archive's file name, used in reports and the commit message.
	Name string

	// TotalEntries counts every entry in the archive, including skipped ones.
	TotalEntries int

	// Directories holds every directory path, explicit or implied by a file path.
	Directories map[string]struct{}

	// Files lists file paths in archive order.
	Files []string

	// RootItems holds the first path component of every kept entry.
	RootItems map[string]struct{}

	// FolderCounts maps a directory path to the number of files directly in it.
	// Files at the archive root are counted under RootFolder.
	FolderCounts map[string]int
}

// NewArchiveSummary returns an empty summary for the named archive.
func NewArchiveSummary(name string) *ArchiveSummary {
	return &ArchiveSummary{
		Name:         name,
		Directories:  make(map[string]struct{}),
		RootItems:    make(map[string]struct{}),
		FolderCounts: make(map[string]int),
	}
}

// AddDirectory records a directory entry and its parents.
func (s *ArchiveSummary) AddDirectory(dir string) {
	for dir != "" && dir != "." {
		if _, ok := s.Directories[dir]; ok {
			return
		}
		s.Directories[dir] = struct{}{}
		if _, ok := s.FolderCounts[dir]; !ok {
			s.FolderCounts[dir] = 0
		}
		dir = parentDir(dir)
	}
}

// AddFile records a file entry, its parent directories and its folder count.
func (s *ArchiveSummary) AddFile(file string) {
	s.Files = append(s.Files, file)
	parent := parentDir(file)
	if parent == "" {
		s.FolderCounts[RootFolder]++
		return
	}
	s.AddDirectory(parent)
	s.FolderCounts[parent]++
}

// AddRoot records the root-level item of an entry path.
func (s *ArchiveSummary) AddRoot(entry string) {
	root, _, _ := strings.Cut(entry, "/")
	if root != "" {
		s.RootItems[root] = struct{}{}
	}
}

// DirectoryCount returns the number of distinct directories.
func (s *ArchiveSummary) DirectoryCount() int {
	if s == nil {
		return 0
	}
	return len(s.Directories)
}

// FileCount returns the number of files.
func (s *ArchiveSummary) FileCount() int {
	if s == nil {
		return 0
	}
	return len(s.Files)
}

// Roots returns the root-level item names in sorted order.
func (s *ArchiveSummary) Roots() []string {
	roots := make([]string, 0, len(s.RootItems))
	for r := range s.RootItems {
		roots = append(roots, r)
	}
	sort.Strings(roots)
	return roots
}

// IsDirectory reports whether path was recorded as a directory.
func (s *ArchiveSummary) IsDirectory(path string) bool {
	_, ok := s.Directories[path]
	return ok
}

// FilesUnder returns the number of files anywhere below dir.
func (s *ArchiveSummary) FilesUnder(dir string) int {
	prefix := dir + "/"
	n := 0
	for _, f := range s.Files {
		if strings.HasPrefix(f, prefix) {
			n++
		}
	}
	return n
}

// HasSingleRoot reports whether the archive holds exactly one root item and
// that item is a directory.
func (s *ArchiveSummary) HasSingleRoot() bool {
	if len(s.RootItems) != 1 {
		return false
	}
	for r := range s.RootItems {
		return s.IsDirectory(r)
	}
	return false
}

func parentDir(p string) string {
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return ""
	}
	return p[:i]
}
