package publish

import (
	"fmt"
	"strings"
	"time"

	"apub-go/internal/pub"
)

const commitTimeLayout = "2006-01-02 15:04:05"

// CommitMessage builds the snapshot commit message.
func CommitMessage(in pub.PublishInput, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Complete repository upload - %s\n\n", now.Format(commitTimeLayout))
	fmt.Fprintf(&b, "Uploaded from archive: %s\n", in.Archive)
	fmt.Fprintf(&b, "Total files: %d\n", in.TotalFiles)
	fmt.Fprintf(&b, "Structure: %d folders, %d files\n",
		in.Structure.DirectoryCount(), in.Structure.FileCount())
	return b.String()
}
