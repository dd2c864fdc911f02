// Package pipeline defines the central data types and the staged-engine
// contract shared across the copytree pipeline. These types are the data
// backbone: discovery, filtering, secrets scanning, transform, and rendering
// all operate on the same DTOs defined here.
//
// This package has zero external dependencies -- only stdlib types. The
// Profile and Options values it threads through Value are defined here (the
// config package builds them). It contains data types, the Stage contract, and lightweight
// validation helpers; no stage implementations live here.
package pipeline

import "time"

// ExitCode represents the process exit code returned by the copytree CLI.
type ExitCode int

const (
	// ExitSuccess indicates the pipeline completed successfully.
	ExitSuccess ExitCode = 0

	// ExitError indicates a fatal error occurred, or --fail-on-secrets was
	// triggered by detected secrets.
	ExitError ExitCode = 1

	// ExitPartial indicates partial success: some files failed processing but
	// output was still generated for the rest.
	ExitPartial ExitCode = 2
)

// OutputFormat specifies the format of the rendered context document.
type OutputFormat string

const (
	// FormatMarkdown renders the context document as Markdown with fenced code
	// blocks and YAML front matter.
	FormatMarkdown OutputFormat = "markdown"

	// FormatXML renders the context document as XML, optimized for Claude's
	// XML-native parsing capabilities.
	FormatXML OutputFormat = "xml"

	// FormatJSON renders the context document as a single JSON object.
	FormatJSON OutputFormat = "json"

	// FormatTree renders only the ASCII directory tree, with no file content.
	FormatTree OutputFormat = "tree"
)

// LLMTarget identifies the target LLM platform, allowing format defaults to
// be tuned per model family.
type LLMTarget string

const (
	// TargetClaude targets Anthropic Claude models. Defaults to XML output.
	TargetClaude LLMTarget = "claude"

	// TargetChatGPT targets OpenAI ChatGPT/GPT-4 models. Defaults to Markdown.
	TargetChatGPT LLMTarget = "chatgpt"

	// TargetGeneric is a generic target with no model-specific optimizations.
	TargetGeneric LLMTarget = "generic"
)

// DefaultTier is the relevance tier assigned to files that do not match any
// explicit tier pattern. Unmatched files default to tier 2 (secondary
// source) so that sorting by relevance never silently excludes a file --
// relevance is a secondary sort key only, never an inclusion filter.
const DefaultTier = 2

// FileDescriptor is the central DTO passed between all pipeline stages. Each
// stage enriches or mutates the descriptor as the file flows through the
// pipeline (the spec's "FileRecord"):
//
//   - Discovery: sets Path, AbsPath, Size, ModTime, IsSymlink
//   - FileLoading: sets Content, IsBinary, Encoding, BinaryCategory
//   - SecretsGuard: updates Content (redacted), sets SecretsRedacted/Count
//   - Transform: updates Content, sets Transformed, Language
//   - Dedup/Sort/CharLimit: set ContentHash, Truncated, OriginalLength
//
// The Content field stores processed content only; each stage that mutates
// it discards the previous value so at most one version is live at a time.
type FileDescriptor struct {
	// Path is the POSIX-normalized path relative to BasePath. It is the
	// canonical identity of the file within a Value.
	Path string `json:"path"`

	// AbsPath is the canonical absolute filesystem path.
	AbsPath string `json:"abs_path"`

	// Size is the file size in bytes as reported by the filesystem at
	// discovery time.
	Size int64 `json:"size"`

	// ModTime is the file's modification time as reported by the filesystem
	// at discovery time.
	ModTime time.Time `json:"modified"`

	// Tier is the relevance tier (0-5). Lower tiers are higher priority when
	// sorting with Sort(by=relevance). Defaults to DefaultTier for files that
	// match no tier pattern.
	Tier int `json:"tier"`

	// TokenCount is the number of tokens in the processed content, counted
	// after redaction and transform. Only populated when token counting is
	// enabled; it is advisory and never used to enforce CharLimit.
	TokenCount int `json:"token_count"`

	// ContentHash is a hash of the processed (post-transform) content, used
	// by Dedup for change detection and by formatters for idempotent
	// streaming hashes.
	ContentHash uint64 `json:"content_hash"`

	// Content is the processed file content after loading, redaction, and
	// transform.
	Content string `json:"content"`

	// Encoding describes how Content is encoded: "" (plain UTF-8 text) or
	// "base64" when the binary policy is base64.
	Encoding string `json:"encoding,omitempty"`

	// Transformed indicates a non-pass-through transformer changed Content.
	Transformed bool `json:"transformed,omitempty"`

	// Language is the detected programming language, used to select a fence
	// language in the Markdown formatter.
	Language string `json:"language,omitempty"`

	// SecretsRedacted indicates one or more spans in Content were replaced
	// by the secrets guard.
	SecretsRedacted bool `json:"secrets_redacted,omitempty"`

	// SecretsCount is the number of redacted findings in this file.
	SecretsCount int `json:"secrets_count,omitempty"`

	// SecretsExcluded indicates the file was dropped entirely by the
	// secrets guard (hard-deny match, or redaction mode "off" with findings).
	SecretsExcluded bool `json:"secrets_excluded,omitempty"`

	// Truncated indicates CharLimit cut this file short.
	Truncated bool `json:"truncated,omitempty"`

	// OriginalLength is the code-point length of Content before truncation.
	// Only meaningful when Truncated is true.
	OriginalLength int `json:"original_length,omitempty"`

	// AlwaysInclude marks a file whose path matched an "always" profile
	// pattern; every filter stage must exempt it.
	AlwaysInclude bool `json:"always_include,omitempty"`

	// GitStatus is the single-letter git status code (M, A, D, R, ??) when
	// withGitStatus is enabled.
	GitStatus string `json:"git_status,omitempty"`

	// IsExternal marks a file that was merged in from an ExternalSource
	// rather than discovered under BasePath.
	IsExternal bool `json:"is_external,omitempty"`

	// ExternalSource/ExternalDestination record where an external file came
	// from and the destination path prefix it was mounted under.
	ExternalSource      string `json:"external_source,omitempty"`
	ExternalDestination string `json:"external_destination,omitempty"`

	// ExcludedReason records why a file was annotated for removal by the
	// FileLoading binary policy ("comment") rather than dropped outright.
	ExcludedReason string `json:"excluded_reason,omitempty"`

	// BinaryCategory classifies a binary file's convertible kind (pdf, docx,
	// image, ...) for transform dispatch. Empty for non-binary files.
	BinaryCategory string `json:"binary_category,omitempty"`

	// IsSymlink indicates whether the file is a symbolic link.
	IsSymlink bool `json:"is_symlink"`

	// IsBinary indicates whether binary content was detected.
	IsBinary bool `json:"is_binary"`

	// Error tracks per-file processing failures. When set, the file may
	// still appear in output with an error sentinel rather than content.
	// Does not serialize to JSON since the error interface cannot be
	// marshaled cleanly.
	Error error `json:"-"`
}

// IsValid reports whether the FileDescriptor has the minimum required fields
// for a valid pipeline entry: a non-empty relative path.
func (fd *FileDescriptor) IsValid() bool {
	return fd.Path != ""
}

// DiscoveryResult holds the aggregate output of the file discovery phase.
type DiscoveryResult struct {
	// Files is the slice of discovered file descriptors that passed all
	// filtering criteria (ignore patterns, binary/size limits).
	Files []*FileDescriptor `json:"files"`

	// TotalFound is the total number of entries encountered during
	// traversal, before any filtering was applied.
	TotalFound int `json:"total_found"`

	// TotalSkipped is the total number of entries skipped for any reason.
	TotalSkipped int `json:"total_skipped"`

	// SkipReasons maps each skip reason to the count of entries skipped for
	// that reason.
	SkipReasons map[string]int `json:"skip_reasons"`
}

// GitMetadata captures repository state attached to a Value when GitFilter
// runs with withGitStatus or a git-scoped filter.
type GitMetadata struct {
	Branch            string `json:"branch"`
	LastCommitHash    string `json:"last_commit_hash"`
	LastCommitSubject string `json:"last_commit_subject"`
	Dirty             bool   `json:"dirty"`
	FilterType        string `json:"filter_type,omitempty"`
}

// Stats accumulates per-stage counters over the life of a Value.
type Stats struct {
	Discovery struct {
		TotalFound   int
		TotalSkipped int
		SkipReasons  map[string]int
	}
	ProfileFilterDropped int
	GitFilterDropped     int
	SecretsGuard         struct {
		FilesRedacted int
		FilesExcluded int
		Findings      []SecretFinding
	}
	TransformErrors   int
	DedupDropped      int
	CharsTruncated    int
	FilesDroppedLimit int
	TotalTokens       int
}

// SecretFinding is the sanitized report of a single secrets-guard hit. Raw
// matched text is never retained here.
type SecretFinding struct {
	File string `json:"file"`
	Line int    `json:"line"`
	Rule string `json:"rule"`
}

// NewStats returns a zero-valued Stats with its maps initialized.
func NewStats() *Stats {
	s := &Stats{}
	s.Discovery.SkipReasons = make(map[string]int)
	return s
}

// Value is the message threaded through every pipeline stage (the spec's
// "PipelineValue"). It is owned exclusively by the stage currently running;
// stages must not retain references to a Value across invocations.
type Value struct {
	// BasePath is the absolute root directory of the scan. Set once by the
	// first stage (Discovery) and never reassigned afterward.
	BasePath string

	// Files is the ordered sequence of file descriptors in flight. Nil
	// entries are permitted transiently between stages and are filtered out
	// before the value reaches a formatter.
	Files []*FileDescriptor

	// Options is the immutable configuration snapshot derived from CLI flags
	// and the resolved profile.
	Options Options

	// Profile is the resolved profile: include/exclude/always/transformer
	// map/external list.
	Profile *Profile

	// Stats accumulates cumulative per-stage counters.
	Stats *Stats

	// GitMetadata is populated only when GitFilter actually queried git.
	GitMetadata *GitMetadata

	// Instructions is free-form text to prepend to the rendered output.
	Instructions string

	// Output, OutputFormat, and OutputSize are populated by the formatter
	// stage.
	Output       string
	OutputFormat OutputFormat
	OutputSize   int
}

// NonNilFiles returns Files with any transient nil entries removed, in
// order. Stages that may drop an entry in place (setting it to nil rather
// than re-slicing) should call this before handing the Value to the next
// stage or a formatter.
func (v *Value) NonNilFiles() []*FileDescriptor {
	out := make([]*FileDescriptor, 0, len(v.Files))
	for _, fd := range v.Files {
		if fd != nil {
			out = append(out, fd)
		}
	}
	return out
}

// Compact removes nil entries from Files in place.
func (v *Value) Compact() {
	v.Files = v.NonNilFiles()
}
