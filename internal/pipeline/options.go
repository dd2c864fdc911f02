package pipeline

import "time"

// Options is the single immutable configuration snapshot threaded through a
// pipeline run. It is built once at pipeline entry (see config.BuildOptions)
// by flattening CLI flags, environment overrides, and the resolved profile
// into one value -- no stage reads configuration from anywhere else or
// re-resolves it mid-run (Design Notes: "flatten two-layer configuration
// merge to a single immutable options struct").
type Options struct {
	BasePath     string
	ProfileName  string
	Filter       []string
	Include      []string
	Exclude      []string
	Always       []string
	ForceInclude []string

	Modified      bool
	Changed       string
	WithGitStatus bool

	AIFilterQuery string

	External []ExternalSourceSpec

	WithLineNumbers bool
	Info            bool
	ShowSize        bool

	IncludeBinary bool
	DryRun        bool

	Head      int
	HasHead   bool
	CharLimit int
	HasLimit  bool

	OutputTarget OutputTarget
	OutputPath   string
	Format       OutputFormat

	OnlyTree       bool
	NoInstructions bool
	NoCache        bool

	// IgnoreFileName is the in-tree ignore file name consulted while
	// walking, default ".copytreeignore".
	IgnoreFileName string

	// IncludeHidden disables the implicit dotfile exclusion described in
	// spec.md §4.2.
	IncludeHidden bool

	MaxDepth int

	// MaxConcurrency bounds the transform stage's worker pool. Default 5.
	MaxConcurrency int

	// SecretsEngine is one of "builtin", "external", "both", "auto", "wasm".
	SecretsEngine string
	SecretsBinary string

	// SecretsWASMModule is the path to a WASI-compiled scanner module, used
	// when SecretsEngine is "wasm" to run detection sandboxed under wazero
	// instead of shelling out to a host binary (spec.md §4.4.1).
	SecretsWASMModule string

	RedactionMode  string // "typed", "length-preserving", "off"
	FailOnSecrets  bool
	SecretsAllow   []string
	MaxSecretBytes int64

	// DedupAlgorithm is "xxh3" (default, fast) or "sha256" (integrity-grade).
	DedupAlgorithm string

	// SortBy is one of "path", "size", "modified", "name", "extension",
	// "depth", "relevance". SortDescending reverses the order.
	SortBy         string
	SortDescending bool

	// BinaryPolicy is one of "convert", "placeholder", "skip", "base64",
	// "comment".
	BinaryPolicy   string
	SampleBytes    int
	BinaryRatio    float64
	SkipLargeFiles int64

	CountTokens   bool
	TokenizerName string

	CacheDir           string
	CacheTTL           time.Duration
	CacheMemoryEntries int

	Target LLMTarget

	// GitTrackedOnly restricts discovery to git-tracked files.
	GitTrackedOnly bool

	// RelevanceTiers drives relevance classification ahead of Sort(by=relevance).
	// Empty falls back to the package's built-in tier definitions.
	RelevanceTiers []RelevanceTier

	RunID string
}

// RelevanceTier maps a priority tier number (0 highest, 5 lowest) to the
// glob patterns that assign a file to it. Mirrors relevance.TierDefinition
// without importing that package here, which would cycle back to pipeline.
type RelevanceTier struct {
	Tier     int
	Patterns []string
}

// OutputTarget selects where the formatted document is written.
type OutputTarget string

const (
	OutputStdout    OutputTarget = "stdout"
	OutputFile      OutputTarget = "file"
	OutputClipboard OutputTarget = "clipboard"
	OutputStream    OutputTarget = "stream"
)

// ExternalSourceSpec describes one external root to merge into the tree,
// per spec.md §6. Resolution of Source into a local path is performed by an
// injected resolver, not by this package.
type ExternalSourceSpec struct {
	Source      string
	Destination string
	Rules       []string
	Optional    bool
}

// Profile selects and shapes which files are included and how, per
// spec.md §3.1. It is the canonical, resolution-complete shape: inheritance,
// discovery, and schema validation are handled upstream by the config
// package and are not part of this type's contract.
type Profile struct {
	Name         string
	Description  string
	Include      []string
	Exclude      []string
	Always       []string
	Transformers map[string]TransformerConfig
	External     []ExternalSourceSpec
}

// TransformerConfig is the per-transformer block of a Profile.
type TransformerConfig struct {
	Enabled bool
	Options map[string]any
}
