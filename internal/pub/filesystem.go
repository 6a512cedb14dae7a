package pub

// FilesystemManager provides the filesystem operations the pipeline needs.
// It abstracts file access so components can be tested against temp trees.
type FilesystemManager interface {
	// ListFiles walks root and returns every regular file as a slash-separated
	// path relative to root, in lexical walk order. Directories whose name is
	// in exclude are skipped entirely.
	ListFiles(root string, exclude ...string) ([]string, error)

	// Exists reports whether path is present (without following symlinks).
	Exists(path string) bool

	// RemoveAll removes path and any children.
	RemoveAll(path string) error
}
