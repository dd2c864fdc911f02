// Package render implements copytree's output formatters: XML, JSON,
// Markdown, and ASCII tree, each in a batch (single string) and a streaming
// (incremental io.Writer) variant, per spec.md §4.6.
//
// Formatters are the terminal stage of the pipeline: they consume a fully
// processed pipeline.Value and never mutate it.
package render

import (
	"fmt"
	"time"

	"github.com/copytree/copytree/internal/pipeline"
)

// Formatter renders a complete pipeline.Value into a single document.
type Formatter interface {
	Format(v *pipeline.Value) (string, error)
}

// StreamingFormatter renders a pipeline.Value incrementally: a header, then
// one chunk per file, then a footer. Implementations are stateful across the
// three calls (e.g. tracking whether a separator has already been written),
// so a single instance must not be reused across two concurrent runs.
type StreamingFormatter interface {
	WriteHeader(w Writer, v *pipeline.Value) error
	WriteFile(w Writer, fd *pipeline.FileDescriptor) error
	WriteFooter(w Writer, v *pipeline.Value) error
}

// Writer is the minimal io.Writer-shaped interface streaming formatters
// write to. It is defined locally so this package does not need to import
// io solely for the one method it uses.
type Writer interface {
	Write(p []byte) (n int, err error)
}

// ForFormat returns the batch Formatter for the given output format.
func ForFormat(format pipeline.OutputFormat) (Formatter, error) {
	switch format {
	case pipeline.FormatXML:
		return XMLFormatter{}, nil
	case pipeline.FormatJSON:
		return JSONFormatter{}, nil
	case pipeline.FormatMarkdown:
		return MarkdownFormatter{}, nil
	case pipeline.FormatTree:
		return TreeFormatter{}, nil
	default:
		return nil, fmt.Errorf("render: unknown output format %q", format)
	}
}

// StreamingForFormat returns a fresh StreamingFormatter instance for the
// given output format. Tree has no incremental form (it is a single
// computed structure) and is not supported here; callers asking for
// streamed tree output should fall back to ForFormat's batch TreeFormatter.
func StreamingForFormat(format pipeline.OutputFormat) (StreamingFormatter, error) {
	switch format {
	case pipeline.FormatXML:
		return &XMLStreamFormatter{}, nil
	case pipeline.FormatJSON:
		return &JSONStreamFormatter{}, nil
	case pipeline.FormatMarkdown:
		return &MarkdownStreamFormatter{}, nil
	default:
		return nil, fmt.Errorf("render: no streaming formatter for format %q", format)
	}
}

// timeNowRFC3339 returns the current UTC time formatted per RFC 3339, used
// as the "generated" timestamp across all formatters.
func timeNowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// totalSizeOf sums Size over files.
func totalSizeOf(files []*pipeline.FileDescriptor) int64 {
	var total int64
	for _, fd := range files {
		total += fd.Size
	}
	return total
}
