package render

import (
	"fmt"
	"strings"
)

// LineNumberFormat is the default 1-based line-number prefix, per spec.md
// §4.6 ("a fixed format string (default `%4d: `)").
const LineNumberFormat = "%4d: "

// PrefixLineNumbers prepends each line of content with a 1-based line
// number formatted with format (LineNumberFormat when format is empty).
// Shared by the XML and Markdown formatters when --line-numbers is set,
// and by transform.LineNumberTransformer when numbering is applied at the
// file level instead of at render time.
func PrefixLineNumbers(content, format string) string {
	if format == "" {
		format = LineNumberFormat
	}
	lines := strings.Split(content, "\n")
	var b strings.Builder
	for i, line := range lines {
		fmt.Fprintf(&b, format, i+1)
		b.WriteString(line)
		if i != len(lines)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
