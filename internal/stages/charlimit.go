package stages

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/clipperhouse/uax29/v2/graphemes"

	"github.com/copytree/copytree/internal/pipeline"
)

// truncationMarker is appended after a grapheme-safe cut point.
const truncationMarkerFmt = "\n\n[... truncated, %d characters omitted ...]\n"

// CharLimit enforces Options.CharLimit, counting Unicode code points
// (spec.md §9's resolved Open Question) and cutting only on grapheme
// cluster boundaries so a multi-rune cluster (e.g. an emoji with a skin
// tone modifier) is never split mid-cluster.
type CharLimit struct{}

func (CharLimit) Name() string { return "char-limit" }

func (CharLimit) ShouldApply(v *pipeline.Value) bool { return v.Options.HasLimit && v.Options.CharLimit > 0 }

// Process enforces Options.CharLimit as a single cumulative budget across
// all surviving files, not a per-file cap (spec.md §3.2): it walks files in
// order, subtracting each one's code-point length from the remaining
// budget. The first file that would cross zero is truncated in place to
// whatever budget remains, exhausting it; every file after that is dropped
// outright. At most one file is ever partially included.
func (CharLimit) Process(_ context.Context, v *pipeline.Value) (*pipeline.Value, error) {
	remaining := v.Options.CharLimit
	var kept []*pipeline.FileDescriptor
	charsTruncated, filesDropped := 0, 0
	exhausted := false

	for _, fd := range v.Files {
		if exhausted {
			filesDropped++
			continue
		}

		count := utf8.RuneCountInString(fd.Content)
		if count <= remaining {
			remaining -= count
			kept = append(kept, fd)
			continue
		}

		truncatedContent, keptCount := truncateToCodePoints(fd.Content, remaining)
		fd.OriginalLength = count
		fd.Content = truncatedContent + fmt.Sprintf(truncationMarkerFmt, count-keptCount)
		fd.Truncated = true
		charsTruncated += count - keptCount
		kept = append(kept, fd)

		remaining = 0
		exhausted = true
	}

	v.Files = kept
	v.Stats.CharsTruncated += charsTruncated
	v.Stats.FilesDroppedLimit += filesDropped
	return v, nil
}

// truncateToCodePoints returns the longest prefix of content with at most
// limit Unicode code points, cut on a grapheme cluster boundary, along with
// the number of code points actually kept.
func truncateToCodePoints(content string, limit int) (string, int) {
	var kept, codePoints int
	seg := graphemes.FromString(content)
	for seg.Next() {
		cluster := seg.Value()
		n := utf8.RuneCountInString(cluster)
		if codePoints+n > limit {
			break
		}
		codePoints += n
		kept += len(cluster)
	}
	return content[:kept], codePoints
}
