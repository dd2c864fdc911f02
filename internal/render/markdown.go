package render

import (
	"fmt"
	"strings"

	"github.com/zeebo/xxh3"
	"gopkg.in/yaml.v3"

	"github.com/copytree/copytree/internal/pipeline"
)

// markdownFrontMatter is marshaled as the document's YAML front matter.
type markdownFrontMatter struct {
	Generated string `yaml:"generated"`
	FileCount int    `yaml:"fileCount"`
	TotalSize int64  `yaml:"totalSize"`
	Profile   string `yaml:"profile,omitempty"`
	Branch    string `yaml:"branch,omitempty"`
	Commit    string `yaml:"commit,omitempty"`
	Dirty     bool   `yaml:"dirty,omitempty"`
}

// MarkdownFormatter renders the pipeline.Value as a Markdown document: YAML
// front matter, an optional instructions block, an ASCII tree overview, and
// one fenced section per file, per spec.md §4.6.
type MarkdownFormatter struct{}

func (MarkdownFormatter) Format(v *pipeline.Value) (string, error) {
	files := v.NonNilFiles()

	var b strings.Builder
	fm, err := buildMarkdownFrontMatter(v, files)
	if err != nil {
		return "", err
	}
	b.WriteString(fm)

	if v.Instructions != "" {
		b.WriteString(v.Instructions)
		b.WriteString("\n\n")
	}

	b.WriteString("## Directory Structure\n\n```\n")
	b.WriteString(RenderASCIITree(files))
	b.WriteString("\n```\n\n")

	b.WriteString("## Files\n\n")
	for _, fd := range files {
		writeMarkdownFile(&b, fd, v.Options.WithLineNumbers)
	}
	return b.String(), nil
}

func buildMarkdownFrontMatter(v *pipeline.Value, files []*pipeline.FileDescriptor) (string, error) {
	fm := markdownFrontMatter{
		Generated: timeNowRFC3339(),
		FileCount: len(files),
		TotalSize: totalSizeOf(files),
	}
	if v.Profile != nil {
		fm.Profile = v.Profile.Name
	}
	if v.GitMetadata != nil {
		fm.Branch = v.GitMetadata.Branch
		fm.Commit = v.GitMetadata.LastCommitHash
		fm.Dirty = v.GitMetadata.Dirty
	}
	out, err := yaml.Marshal(fm)
	if err != nil {
		return "", fmt.Errorf("render: marshal markdown front matter: %w", err)
	}
	return "---\n" + string(out) + "---\n\n", nil
}

func writeMarkdownFile(b *strings.Builder, fd *pipeline.FileDescriptor, withLineNumbers bool) {
	fmt.Fprintf(b, "### @%s\n\n", fd.Path)
	fmt.Fprintf(b, "- size: %d\n", fd.Size)
	fmt.Fprintf(b, "- modified: %s\n", fd.ModTime.UTC().Format(timeLayoutRFC3339))
	if fd.GitStatus != "" {
		fmt.Fprintf(b, "- gitStatus: %s\n", fd.GitStatus)
	}
	if fd.Truncated {
		b.WriteString("- truncated: true\n")
	}
	fmt.Fprintf(b, "- hash: %x\n\n", xxh3.HashString(fd.Content))

	if fd.IsBinary {
		fmt.Fprintf(b, "_binary content omitted (encoding: %s)_\n\n", fd.Encoding)
		return
	}

	content := fd.Content
	if withLineNumbers {
		content = PrefixLineNumbers(content, "")
	}
	fence := chooseFence(content)
	fmt.Fprintf(b, "%s%s\n%s\n%s\n\n", fence, languageFor(fd.Path), content, fence)
}

// chooseFence returns a backtick fence one run longer than the longest
// backtick run already present in content, so the fence can never be closed
// early by the file's own content (minimum three backticks).
func chooseFence(content string) string {
	longest := 2
	run := 0
	for _, r := range content {
		if r == '`' {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}
	return strings.Repeat("`", longest+1)
}

// MarkdownStreamFormatter writes the document incrementally: front matter,
// instructions, and the tree section in WriteHeader, one file section per
// WriteFile call, and a trailing newline in WriteFooter.
type MarkdownStreamFormatter struct {
	withLineNumbers bool
}

func (f *MarkdownStreamFormatter) WriteHeader(w Writer, v *pipeline.Value) error {
	files := v.NonNilFiles()
	f.withLineNumbers = v.Options.WithLineNumbers

	fm, err := buildMarkdownFrontMatter(v, files)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprint(w, fm); err != nil {
		return err
	}
	if v.Instructions != "" {
		if _, err := fmt.Fprintf(w, "%s\n\n", v.Instructions); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "## Directory Structure\n\n```\n%s\n```\n\n## Files\n\n", RenderASCIITree(files))
	return err
}

func (f *MarkdownStreamFormatter) WriteFile(w Writer, fd *pipeline.FileDescriptor) error {
	var b strings.Builder
	writeMarkdownFile(&b, fd, f.withLineNumbers)
	_, err := fmt.Fprint(w, b.String())
	return err
}

func (f *MarkdownStreamFormatter) WriteFooter(w Writer, v *pipeline.Value) error {
	_, err := fmt.Fprintln(w)
	return err
}
