package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/copytree/copytree/internal/pipeline"
)

const (
	xmlHeader    = "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n"
	xmlNamespace = "urn:copytree"
)

// XMLFormatter renders the pipeline.Value as a single <ct:directory>
// document, namespace urn:copytree, per spec.md §4.6.
type XMLFormatter struct{}

func (XMLFormatter) Format(v *pipeline.Value) (string, error) {
	files := v.NonNilFiles()

	var b strings.Builder
	b.WriteString(xmlHeader)
	fmt.Fprintf(&b, "<ct:directory xmlns:ct=%q>\n", xmlNamespace)
	writeXMLMetadata(&b, v, files)
	b.WriteString("  <ct:files>\n")
	for _, fd := range files {
		writeXMLFile(&b, fd, v.Options.WithLineNumbers)
	}
	b.WriteString("  </ct:files>\n")
	b.WriteString("</ct:directory>\n")
	return b.String(), nil
}

func writeXMLMetadata(b *strings.Builder, v *pipeline.Value, files []*pipeline.FileDescriptor) {
	b.WriteString("  <ct:metadata>\n")
	fmt.Fprintf(b, "    <ct:generated>%s</ct:generated>\n", timeNowRFC3339())
	fmt.Fprintf(b, "    <ct:fileCount>%d</ct:fileCount>\n", len(files))
	fmt.Fprintf(b, "    <ct:totalSize>%d</ct:totalSize>\n", totalSizeOf(files))
	if v.Profile != nil && v.Profile.Name != "" {
		fmt.Fprintf(b, "    <ct:profile>%s</ct:profile>\n", xmlEscapeText(v.Profile.Name))
	}
	if v.GitMetadata != nil {
		g := v.GitMetadata
		b.WriteString("    <ct:git>\n")
		fmt.Fprintf(b, "      <ct:branch>%s</ct:branch>\n", xmlEscapeText(g.Branch))
		fmt.Fprintf(b, "      <ct:commit>%s</ct:commit>\n", xmlEscapeText(g.LastCommitHash))
		fmt.Fprintf(b, "      <ct:subject>%s</ct:subject>\n", xmlEscapeText(g.LastCommitSubject))
		fmt.Fprintf(b, "      <ct:dirty>%t</ct:dirty>\n", g.Dirty)
		b.WriteString("    </ct:git>\n")
	}
	if v.Instructions != "" {
		fmt.Fprintf(b, "    <ct:instructions>%s</ct:instructions>\n", wrapCDATA(v.Instructions))
	}
	b.WriteString("  </ct:metadata>\n")
}

func writeXMLFile(b *strings.Builder, fd *pipeline.FileDescriptor, withLineNumbers bool) {
	fmt.Fprintf(b, "    <ct:file path=%q size=%q modified=%q binary=%q",
		xmlEscapeAttr("@"+fd.Path),
		xmlEscapeAttr(fmt.Sprint(fd.Size)),
		xmlEscapeAttr(fd.ModTime.UTC().Format(time.RFC3339)),
		xmlEscapeAttr(fmt.Sprint(fd.IsBinary)))
	if fd.Encoding != "" {
		fmt.Fprintf(b, " encoding=%q", xmlEscapeAttr(fd.Encoding))
	}
	if fd.GitStatus != "" {
		fmt.Fprintf(b, " gitStatus=%q", xmlEscapeAttr(fd.GitStatus))
	}
	if fd.Truncated {
		b.WriteString(` truncated="true"`)
	}
	b.WriteString(">")

	content := fd.Content
	if withLineNumbers && !fd.IsBinary {
		content = PrefixLineNumbers(content, "")
	}
	b.WriteString(wrapCDATA(content))
	b.WriteString("</ct:file>\n")
}

// wrapCDATA wraps content in a CDATA section, splitting any embedded "]]>"
// so it never prematurely terminates the section (spec.md §4.6/§8).
func wrapCDATA(content string) string {
	return "<![CDATA[" + strings.ReplaceAll(content, "]]>", "]]]]><![CDATA[>") + "]]>"
}

var xmlAttrReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

func xmlEscapeAttr(s string) string { return xmlAttrReplacer.Replace(s) }

var xmlTextReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

func xmlEscapeText(s string) string { return xmlTextReplacer.Replace(s) }

// XMLStreamFormatter writes the document incrementally: the full metadata
// block and the <ct:files> opening tag in WriteHeader (the complete
// pipeline.Value is already available by the time rendering starts, so
// "streaming" here means not buffering the whole output as one string, not
// streaming concurrently with pipeline execution), one <ct:file> element per
// WriteFile call, and the closing tags in WriteFooter.
type XMLStreamFormatter struct {
	withLineNumbers bool
}

func (f *XMLStreamFormatter) WriteHeader(w Writer, v *pipeline.Value) error {
	f.withLineNumbers = v.Options.WithLineNumbers

	var b strings.Builder
	b.WriteString(xmlHeader)
	fmt.Fprintf(&b, "<ct:directory xmlns:ct=%q>\n", xmlNamespace)
	writeXMLMetadata(&b, v, v.NonNilFiles())
	b.WriteString("  <ct:files>\n")
	_, err := w.Write([]byte(b.String()))
	return err
}

func (f *XMLStreamFormatter) WriteFile(w Writer, fd *pipeline.FileDescriptor) error {
	var b strings.Builder
	writeXMLFile(&b, fd, f.withLineNumbers)
	_, err := w.Write([]byte(b.String()))
	return err
}

func (f *XMLStreamFormatter) WriteFooter(w Writer, v *pipeline.Value) error {
	_, err := w.Write([]byte("  </ct:files>\n</ct:directory>\n"))
	return err
}
