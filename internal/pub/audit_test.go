package pub

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTierFor(t *testing.T) {
	tests := []struct {
		size int64
		want SizeTier
	}{
		{0, TierSmall},
		{1023, TierSmall},
		{1024, TierMedium},
		{1<<20 - 1, TierMedium},
		{1 << 20, TierLarge},
		{100<<20 - 1, TierLarge},
		{100 << 20, TierOversized},
		{150 << 20, TierOversized},
	}
	for _, tt := range tests {
		if got := TierFor(tt.size); got != tt.want {
			t.Errorf("TierFor(%d) = %s, want %s", tt.size, got, tt.want)
		}
	}
}

func TestAuditReport_TopExtensions(t *testing.T) {
	r := NewAuditReport()
	for _, rec := range []FileRecord{
		{Path: "a.js", Ext: ".js"},
		{Path: "b.js", Ext: ".js"},
		{Path: "c.css", Ext: ".css"},
		{Path: "d.html", Ext: ".html"},
		{Path: "Makefile", Ext: ""},
		{Path: "e.css", Ext: ".css"},
		{Path: "big.iso", Ext: ".iso", Size: 200 << 20, Tier: TierOversized},
	} {
		r.Add(rec)
	}

	want := []ExtensionCount{{".css", 2}, {".js", 2}, {"", 1}}
	if diff := cmp.Diff(want, r.TopExtensions(3)); diff != "" {
		t.Errorf("TopExtensions(3) mismatch (-want +got):\n%s", diff)
	}
	if got := len(r.TopExtensions(10)); got != 5 {
		t.Errorf("TopExtensions(10) returned %d entries, want 5", got)
	}
	if diff := cmp.Diff(OversizeList{{Path: "big.iso", Size: 200 << 20}}, r.Oversize); diff != "" {
		t.Errorf("Oversize mismatch (-want +got):\n%s", diff)
	}
	if r.TotalFiles != 7 || r.TotalBytes != 200<<20 {
		t.Errorf("totals = %d files, %d bytes", r.TotalFiles, r.TotalBytes)
	}
}
