package pub

import (
	"sort"
)

// Size tier boundaries. PublishSizeCeiling is the largest file the remote
// host accepts; files at or above it are flagged, not excluded.
const (
	SmallFileLimit     int64 = 1 << 10
	MediumFileLimit    int64 = 1 << 20
	PublishSizeCeiling int64 = 100 << 20
)

// SizeTier classifies a file by byte size.
type SizeTier int

const (
	TierSmall SizeTier = iota
	TierMedium
	TierLarge
	TierOversized
)

// Tiers lists every tier in ascending order.
var Tiers = []SizeTier{TierSmall, TierMedium, TierLarge, TierOversized}

func (t SizeTier) String() string {
	switch t {
	case TierSmall:
		return "small"
	case TierMedium:
		return "medium"
	case TierLarge:
		return "large"
	case TierOversized:
		return "oversized"
	default:
		return "unknown"
	}
}

// TierFor returns the tier for a file of the given size.
func TierFor(size int64) SizeTier {
	switch {
	case size < SmallFileLimit:
		return TierSmall
	case size < MediumFileLimit:
		return TierMedium
	case size < PublishSizeCeiling:
		return TierLarge
	default:
		return TierOversized
	}
}

// FileRecord describes one file found by the auditor.
type FileRecord struct {
	Path string
	Size int64
	// Ext is the lower-cased extension including the dot, or "" when absent.
	Ext  string
	Tier SizeTier
}

// OversizeEntry is a file at or above PublishSizeCeiling.
type OversizeEntry struct {
	Path string
	Size int64
}

// OversizeList holds oversized files in walk order.
type OversizeList []OversizeEntry

// AuditReport aggregates the auditor's findings for a tree.
type AuditReport struct {
	TotalFiles  int
	TotalBytes  int64
	ByExtension map[string]int
	ByTier      map[SizeTier]int
	Oversize    OversizeList
}

// NewAuditReport returns an empty report.
func NewAuditReport() *AuditReport {
	return &AuditReport{
		ByExtension: make(map[string]int),
		ByTier:      make(map[SizeTier]int),
	}
}

// Add folds a file record into the report.
func (r *AuditReport) Add(rec FileRecord) {
	r.TotalFiles++
	r.TotalBytes += rec.Size
	r.ByExtension[rec.Ext]++
	r.ByTier[rec.Tier]++
	if rec.Tier == TierOversized {
		r.Oversize = append(r.Oversize, OversizeEntry{Path: rec.Path, Size: rec.Size})
	}
}

// ExtensionCount pairs an extension with its file count.
type ExtensionCount struct {
	Ext   string
	Count int
}

// TopExtensions returns up to n extensions ordered by count, then name.
func (r *AuditReport) TopExtensions(n int) []ExtensionCount {
	counts := make([]ExtensionCount, 0, len(r.ByExtension))
	for ext, c := range r.ByExtension {
		counts = append(counts, ExtensionCount{Ext: ext, Count: c})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Ext < counts[j].Ext
	})
	if n > 0 && len(counts) > n {
		counts = counts[:n]
	}
	return counts
}
