package fs

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultAllowedDotfiles are hidden entries kept during extraction.
var DefaultAllowedDotfiles = []string{".gitignore", ".env"}

// DefaultSkipPatterns are always-skipped archive artifacts.
var DefaultSkipPatterns = []string{"__MACOSX/**"}

// SkipMatcher decides which archive entries are left out of analysis and
// extraction. An entry is skipped when any of its path components starts
// with "." and is not an allowed dotfile, or when it matches one of the
// doublestar patterns.
type SkipMatcher struct {
	allowed  map[string]bool
	patterns []string
}

// NewSkipMatcher creates a SkipMatcher. Blank patterns and lines starting
// with '#' are ignored; invalid patterns are dropped.
func NewSkipMatcher(allowed []string, rawPatterns []string) *SkipMatcher {
	m := &SkipMatcher{allowed: make(map[string]bool, len(allowed))}
	for _, a := range allowed {
		m.allowed[a] = true
	}
	for _, raw := range rawPatterns {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		if !doublestar.ValidatePattern(raw) {
			continue
		}
		m.patterns = append(m.patterns, raw)
	}
	return m
}

// NewDefaultSkipMatcher returns the matcher used when nothing is configured.
func NewDefaultSkipMatcher() *SkipMatcher {
	return NewSkipMatcher(DefaultAllowedDotfiles, DefaultSkipPatterns)
}

// Match reports whether the slash-separated entry name should be skipped.
func (m *SkipMatcher) Match(name string) bool {
	name = strings.Trim(name, "/")
	if name == "" {
		return true
	}

	for _, part := range strings.Split(name, "/") {
		if strings.HasPrefix(part, ".") && !m.allowed[part] {
			return true
		}
	}

	for _, p := range m.patterns {
		if ok, err := doublestar.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}
