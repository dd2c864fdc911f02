package render

import (
	"fmt"

	"github.com/segmentio/encoding/json"

	"github.com/copytree/copytree/internal/pipeline"
)

// jsonGit mirrors pipeline.GitMetadata for the JSON document.
type jsonGit struct {
	Branch  string `json:"branch"`
	Commit  string `json:"commit"`
	Subject string `json:"subject"`
	Dirty   bool   `json:"dirty"`
}

// jsonMetadata is the "metadata" object at the top of the JSON document.
type jsonMetadata struct {
	Generated    string   `json:"generated"`
	FileCount    int      `json:"fileCount"`
	TotalSize    int64    `json:"totalSize"`
	Profile      string   `json:"profile,omitempty"`
	Git          *jsonGit `json:"git,omitempty"`
	Instructions string   `json:"instructions,omitempty"`
}

// jsonFile is a single file entry in the JSON document.
type jsonFile struct {
	Path      string `json:"path"`
	Size      int64  `json:"size"`
	Modified  string `json:"modified"`
	Binary    bool   `json:"binary"`
	Encoding  string `json:"encoding,omitempty"`
	GitStatus string `json:"gitStatus,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`
	Content   string `json:"content"`
}

// jsonDocument is the full output document.
type jsonDocument struct {
	Metadata jsonMetadata `json:"metadata"`
	Files    []jsonFile   `json:"files"`
}

// JSONFormatter renders the pipeline.Value as a single JSON document, per
// spec.md §4.6.
type JSONFormatter struct{}

func (JSONFormatter) Format(v *pipeline.Value) (string, error) {
	doc := buildJSONDocument(v)
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("render: marshal json: %w", err)
	}
	return string(b) + "\n", nil
}

func buildJSONDocument(v *pipeline.Value) jsonDocument {
	files := v.NonNilFiles()

	meta := jsonMetadata{
		Generated: timeNowRFC3339(),
		FileCount: len(files),
		TotalSize: totalSizeOf(files),
	}
	if v.Profile != nil {
		meta.Profile = v.Profile.Name
	}
	if v.GitMetadata != nil {
		meta.Git = &jsonGit{
			Branch:  v.GitMetadata.Branch,
			Commit:  v.GitMetadata.LastCommitHash,
			Subject: v.GitMetadata.LastCommitSubject,
			Dirty:   v.GitMetadata.Dirty,
		}
	}
	meta.Instructions = v.Instructions

	out := make([]jsonFile, 0, len(files))
	for _, fd := range files {
		content := fd.Content
		if v.Options.WithLineNumbers && !fd.IsBinary {
			content = PrefixLineNumbers(content, "")
		}
		out = append(out, jsonFile{
			Path:      "@" + fd.Path,
			Size:      fd.Size,
			Modified:  fd.ModTime.UTC().Format(timeLayoutRFC3339),
			Binary:    fd.IsBinary,
			Encoding:  fd.Encoding,
			GitStatus: fd.GitStatus,
			Truncated: fd.Truncated,
			Content:   content,
		})
	}
	return jsonDocument{Metadata: meta, Files: out}
}

const timeLayoutRFC3339 = "2006-01-02T15:04:05Z07:00"

// JSONStreamFormatter writes the document incrementally: the metadata object
// and opening "files" array in WriteHeader, one array element per WriteFile
// call, then the closing brackets in WriteFooter.
type JSONStreamFormatter struct {
	wroteFirstFile bool
}

func (f *JSONStreamFormatter) WriteHeader(w Writer, v *pipeline.Value) error {
	files := v.NonNilFiles()
	meta := jsonMetadata{
		Generated: timeNowRFC3339(),
		FileCount: len(files),
		TotalSize: totalSizeOf(files),
	}
	if v.Profile != nil {
		meta.Profile = v.Profile.Name
	}
	if v.GitMetadata != nil {
		meta.Git = &jsonGit{
			Branch:  v.GitMetadata.Branch,
			Commit:  v.GitMetadata.LastCommitHash,
			Subject: v.GitMetadata.LastCommitSubject,
			Dirty:   v.GitMetadata.Dirty,
		}
	}
	meta.Instructions = v.Instructions

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("render: marshal json metadata: %w", err)
	}
	_, err = fmt.Fprintf(w, "{\n  \"metadata\": %s,\n  \"files\": [\n", metaJSON)
	return err
}

func (f *JSONStreamFormatter) WriteFile(w Writer, fd *pipeline.FileDescriptor) error {
	jf := jsonFile{
		Path:      "@" + fd.Path,
		Size:      fd.Size,
		Modified:  fd.ModTime.UTC().Format(timeLayoutRFC3339),
		Binary:    fd.IsBinary,
		Encoding:  fd.Encoding,
		GitStatus: fd.GitStatus,
		Truncated: fd.Truncated,
		Content:   fd.Content,
	}
	b, err := json.MarshalIndent(jf, "    ", "  ")
	if err != nil {
		return fmt.Errorf("render: marshal json file %s: %w", fd.Path, err)
	}
	prefix := "    "
	if f.wroteFirstFile {
		prefix = ",\n    "
	}
	f.wroteFirstFile = true
	_, err = fmt.Fprint(w, prefix+string(b))
	return err
}

func (f *JSONStreamFormatter) WriteFooter(w Writer, v *pipeline.Value) error {
	_, err := fmt.Fprint(w, "\n  ]\n}\n")
	return err
}
