package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// DefaultOutput is the default output file path when --output is not specified.
const DefaultOutput = "copytree-output.md"

// DefaultSkipLargeFiles is the default file size threshold (1MB) above which
// files are skipped during discovery.
const DefaultSkipLargeFiles int64 = 1 * 1024 * 1024

// FlagValues collects all parsed global flag values from the CLI. This struct
// is populated by BindFlags and passed to downstream pipeline stages.
type FlagValues struct {
	Dir             string
	Output          string
	Filters         []string // file extensions (without leading dots)
	Includes        []string // include glob patterns
	Excludes        []string // exclude glob patterns
	Always          []string // always-include glob patterns, bypass every filter
	ForceInclude    []string // force-include glob patterns, bypass ignores only
	Format          string
	Target          string
	GitTrackedOnly  bool
	SkipLargeFiles  int64 // bytes
	Stdout          bool
	Clipboard       bool
	LineNumbers     bool
	NoRedact        bool
	FailOnRedaction bool
	Verbose         bool
	Quiet           bool
	Yes             bool
	ClearCache      bool

	Profile string

	Modified      bool
	Changed       string
	WithGitStatus bool

	AIFilterQuery string
	External      []string // SOURCE[:DEST][:rule1,rule2]

	Head      int
	CharLimit int
	OnlyTree  bool

	NoInstructions bool
	NoCache        bool
	CacheDir       string
	CacheTTL       string

	SecretsEngine     string
	SecretsWASMModule string
	RedactionMode     string
	FailOnSecrets     bool
	SecretsAllow      []string
	IncludeBinary     bool
	BinaryPolicy      string

	Info     bool
	ShowSize bool
	DryRun   bool

	MaxDepth        int
	IncludeHidden   bool
	IgnoreFileName  string
	MaxConcurrency  int

	DedupAlgorithm string
	SortBy         string
	SortDesc       bool

	CountTokens    bool
	TokenCountOnly bool
	TopFiles       int
	Tokenizer      string
	MaxTokens      int
	Heatmap        bool

	TruncationStrategy string
}

// BindFlags registers all global persistent flags on the given Cobra command
// and returns a FlagValues pointer that will be populated when the command is
// executed. Callers should access the returned struct after flag parsing.
func BindFlags(cmd *cobra.Command) *FlagValues {
	fv := &FlagValues{}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&fv.Dir, "dir", "d", ".", "target directory to scan")
	pf.StringVarP(&fv.Output, "output", "o", DefaultOutput, "output file path")
	pf.StringArrayVarP(&fv.Filters, "filter", "f", nil, "filter by file extension (repeatable, e.g. -f ts -f go)")
	pf.StringArrayVar(&fv.Includes, "include", nil, "include glob pattern (repeatable)")
	pf.StringArrayVar(&fv.Excludes, "exclude", nil, "exclude glob pattern (repeatable)")
	pf.StringArrayVar(&fv.Always, "always", nil, "always-include glob pattern, bypasses every filter (repeatable)")
	pf.StringArrayVar(&fv.ForceInclude, "force-include", nil, "force-include glob pattern, bypasses ignores only (repeatable)")
	pf.StringVar(&fv.Format, "format", "markdown", "output format: markdown, xml, json, tree")
	pf.StringVar(&fv.Target, "target", "generic", "LLM target: claude, chatgpt, generic")
	pf.BoolVar(&fv.GitTrackedOnly, "git-tracked-only", false, "only include files in git index")
	pf.StringVar(&skipLargeFilesRaw, "skip-large-files", "1MB", "skip files larger than threshold (e.g. 500KB, 2MB)")
	pf.BoolVar(&fv.Stdout, "stdout", false, "output to stdout instead of file")
	pf.BoolVar(&fv.Clipboard, "clipboard", false, "copy output to the system clipboard instead of a file")
	pf.BoolVar(&fv.LineNumbers, "line-numbers", false, "add line numbers to code blocks")
	pf.BoolVar(&fv.NoRedact, "no-redact", false, "disable secret redaction")
	pf.BoolVar(&fv.FailOnRedaction, "fail-on-redaction", false, "exit 1 if secrets are detected")
	pf.BoolVarP(&fv.Verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVarP(&fv.Quiet, "quiet", "q", false, "suppress all output except errors")
	pf.BoolVar(&fv.Yes, "yes", false, "skip confirmation prompts")
	pf.BoolVar(&fv.ClearCache, "clear-cache", false, "clear cached state before running")

	pf.StringVarP(&fv.Profile, "profile", "p", "", "named profile to resolve (default: \"default\")")

	pf.BoolVar(&fv.Modified, "modified", false, "only include files with uncommitted git changes")
	pf.StringVar(&fv.Changed, "changed", "", "only include files changed since the given git ref")
	pf.BoolVar(&fv.WithGitStatus, "with-git-status", false, "annotate each file with its git status letter")

	pf.StringVar(&fv.AIFilterQuery, "ai-filter-query", "", "natural-language query the AI filter stage uses to select files")
	pf.StringArrayVar(&fv.External, "external", nil, "external source to merge, SOURCE[:DEST][:rule1,rule2] (repeatable)")

	pf.IntVar(&fv.Head, "head", 0, "limit output to the first N files after sorting")
	pf.IntVar(&fv.CharLimit, "char-limit", 0, "truncate each file's content to N Unicode code points")
	pf.BoolVar(&fv.OnlyTree, "only-tree", false, "render only the directory tree, omitting file content")

	pf.BoolVar(&fv.NoInstructions, "no-instructions", false, "omit the instructions preamble from rendered output")
	pf.BoolVar(&fv.NoCache, "no-cache", false, "bypass the transform cache for this run")
	pf.StringVar(&fv.CacheDir, "cache-dir", "", "override the transform cache directory")
	pf.StringVar(&fv.CacheTTL, "cache-ttl", "", "override the transform cache entry TTL (e.g. 24h)")

	pf.StringVar(&fv.SecretsEngine, "secrets-engine", "builtin", "secrets detection engine: builtin, external, both, auto, wasm")
	pf.StringVar(&fv.SecretsWASMModule, "secrets-wasm-module", "", "path to a WASI scanner module, used when --secrets-engine=wasm")
	pf.StringVar(&fv.RedactionMode, "redaction-mode", "typed", "redaction mode: typed, length-preserving, off")
	pf.BoolVar(&fv.FailOnSecrets, "fail-on-secrets", false, "exit with an error if any secret is detected")
	pf.StringArrayVar(&fv.SecretsAllow, "secrets-allow", nil, "allowlist pattern exempted from secrets detection (repeatable)")
	pf.BoolVar(&fv.IncludeBinary, "include-binary", false, "include binary files instead of skipping them")
	pf.StringVar(&fv.BinaryPolicy, "binary-policy", "placeholder", "binary file handling: convert, placeholder, skip, base64, comment")

	pf.BoolVar(&fv.Info, "info", false, "print discovery/run statistics instead of file content")
	pf.BoolVar(&fv.ShowSize, "show-size", false, "annotate each file with its size")
	pf.BoolVar(&fv.DryRun, "dry-run", false, "run discovery and filtering without writing output")

	pf.IntVar(&fv.MaxDepth, "max-depth", 0, "maximum directory traversal depth (0 = unlimited)")
	pf.BoolVar(&fv.IncludeHidden, "include-hidden", false, "include dotfiles and dot-directories")
	pf.StringVar(&fv.IgnoreFileName, "ignore-file-name", ".copytreeignore", "name of the per-directory ignore file to honor")
	pf.IntVar(&fv.MaxConcurrency, "max-concurrency", 5, "maximum concurrent workers for loading/transform/secrets stages")

	pf.StringVar(&fv.DedupAlgorithm, "dedup-algorithm", "xxh3", "content hash algorithm used for deduplication: xxh3, sha256")
	pf.StringVar(&fv.SortBy, "sort-by", "path", "sort key: path, size, relevance, modified")
	pf.BoolVar(&fv.SortDesc, "sort-desc", false, "reverse the sort order")

	pf.BoolVar(&fv.CountTokens, "count-tokens", false, "count tokens per file using the configured tokenizer")
	pf.BoolVar(&fv.TokenCountOnly, "token-count", false, "print a token count report instead of generating output")
	pf.IntVar(&fv.TopFiles, "top-files", 0, "show the top N files by token count in the token report (0 = all)")
	pf.StringVar(&fv.Tokenizer, "tokenizer", "cl100k_base", "tokenizer encoding: cl100k_base, o200k_base, none")
	pf.IntVar(&fv.MaxTokens, "max-tokens", 0, "token budget; 0 disables budget enforcement")
	pf.StringVar(&fv.TruncationStrategy, "truncation-strategy", "skip", "behavior when over budget: truncate, skip")

	return fv
}

// skipLargeFilesRaw holds the raw string value for --skip-large-files before
// parsing. This is a package-level variable because Cobra needs a string target
// for binding, and we parse it into FlagValues.SkipLargeFiles during validation.
var skipLargeFilesRaw string

// ValidateFlags checks the parsed flag values for correctness and mutual
// exclusion. It also applies environment variable fallbacks and normalizes
// values. Call this from PersistentPreRunE after Cobra has parsed the flags.
func ValidateFlags(fv *FlagValues, cmd *cobra.Command) error {
	// Apply environment variable fallbacks for flags not explicitly set.
	applyEnvOverrides(fv, cmd)

	// Mutual exclusion: --verbose and --quiet
	if fv.Verbose && fv.Quiet {
		return fmt.Errorf("--verbose and --quiet are mutually exclusive")
	}

	// Validate --dir exists and is a directory
	info, err := os.Stat(fv.Dir)
	if err != nil {
		return fmt.Errorf("--dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("--dir: %s is not a directory", fv.Dir)
	}

	// Validate --format
	switch fv.Format {
	case "markdown", "xml", "json", "tree":
		// valid
	default:
		return fmt.Errorf("--format: invalid value %q (allowed: markdown, xml, json, tree)", fv.Format)
	}

	// Validate --target
	switch fv.Target {
	case "claude", "chatgpt", "generic":
		// valid
	default:
		return fmt.Errorf("--target: invalid value %q (allowed: claude, chatgpt, generic)", fv.Target)
	}

	// Validate --secrets-engine
	switch fv.SecretsEngine {
	case "builtin", "external", "both", "auto", "wasm":
		// valid
	default:
		return fmt.Errorf("--secrets-engine: invalid value %q (allowed: builtin, external, both, auto, wasm)", fv.SecretsEngine)
	}

	// Validate --redaction-mode
	switch fv.RedactionMode {
	case "typed", "length-preserving", "off":
		// valid
	default:
		return fmt.Errorf("--redaction-mode: invalid value %q (allowed: typed, length-preserving, off)", fv.RedactionMode)
	}

	// Validate --binary-policy
	switch fv.BinaryPolicy {
	case "convert", "placeholder", "skip", "base64", "comment":
		// valid
	default:
		return fmt.Errorf("--binary-policy: invalid value %q (allowed: convert, placeholder, skip, base64, comment)", fv.BinaryPolicy)
	}

	// Validate --sort-by
	switch fv.SortBy {
	case "path", "size", "relevance", "modified":
		// valid
	default:
		return fmt.Errorf("--sort-by: invalid value %q (allowed: path, size, relevance, modified)", fv.SortBy)
	}

	// Validate --tokenizer
	switch fv.Tokenizer {
	case "cl100k_base", "o200k_base", "none":
		// valid
	default:
		return fmt.Errorf("--tokenizer: invalid value %q (allowed: cl100k_base, o200k_base, none)", fv.Tokenizer)
	}

	// Validate --truncation-strategy
	switch fv.TruncationStrategy {
	case "truncate", "skip":
		// valid
	default:
		return fmt.Errorf("--truncation-strategy: invalid value %q (allowed: truncate, skip)", fv.TruncationStrategy)
	}

	// --modified and --changed are mutually exclusive (both select by git state).
	if fv.Modified && fv.Changed != "" {
		return fmt.Errorf("--modified and --changed are mutually exclusive")
	}

	// Parse --skip-large-files
	size, err := ParseSize(skipLargeFilesRaw)
	if err != nil {
		return fmt.Errorf("--skip-large-files: %w", err)
	}
	fv.SkipLargeFiles = size

	// Normalize --filter: strip leading dots
	for i, f := range fv.Filters {
		fv.Filters[i] = strings.TrimLeft(f, ".")
	}

	return nil
}

// applyEnvOverrides applies environment variable fallbacks for flags that were
// not explicitly set on the command line. The prefix is COPYTREE_.
func applyEnvOverrides(fv *FlagValues, cmd *cobra.Command) {
	envMap := map[string]func(string){
		"COPYTREE_DIR":     func(v string) { fv.Dir = v },
		"COPYTREE_OUTPUT":  func(v string) { fv.Output = v },
		"COPYTREE_FORMAT":  func(v string) { fv.Format = v },
		"COPYTREE_TARGET":  func(v string) { fv.Target = v },
		"COPYTREE_PROFILE": func(v string) { fv.Profile = v },
	}

	for env, setter := range envMap {
		v := os.Getenv(env)
		if v == "" {
			continue
		}
		// Only apply if the corresponding flag was not explicitly set.
		flagName := strings.ToLower(strings.TrimPrefix(env, "COPYTREE_"))
		if !cmd.Flags().Changed(flagName) {
			setter(v)
		}
	}

	// Boolean env vars
	if os.Getenv("COPYTREE_VERBOSE") == "1" && !cmd.Flags().Changed("verbose") {
		fv.Verbose = true
	}
	if os.Getenv("COPYTREE_QUIET") == "1" && !cmd.Flags().Changed("quiet") {
		fv.Quiet = true
	}
}

// ParseSize parses a human-readable size string into bytes. It supports KB, MB,
// and GB suffixes (case-insensitive). Plain numbers without a suffix are treated
// as bytes. KB = 1024, MB = 1048576, GB = 1073741824.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	upper := strings.ToUpper(s)

	var suffix string
	var multiplier int64

	switch {
	case strings.HasSuffix(upper, "GB"):
		suffix = "GB"
		multiplier = 1024 * 1024 * 1024
	case strings.HasSuffix(upper, "MB"):
		suffix = "MB"
		multiplier = 1024 * 1024
	case strings.HasSuffix(upper, "KB"):
		suffix = "KB"
		multiplier = 1024
	default:
		// Plain number, treat as bytes
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid size: %q", s)
		}
		if n < 0 {
			return 0, fmt.Errorf("size must be non-negative: %q", s)
		}
		return n, nil
	}

	numStr := strings.TrimSpace(s[:len(s)-len(suffix)])
	n, err := strconv.ParseInt(numStr, 10, 64)
	if err != nil {
		// Try float for things like "1.5MB"
		f, ferr := strconv.ParseFloat(numStr, 64)
		if ferr != nil {
			return 0, fmt.Errorf("invalid size: %q", s)
		}
		if f < 0 {
			return 0, fmt.Errorf("size must be non-negative: %q", s)
		}
		return int64(f * float64(multiplier)), nil
	}
	if n < 0 {
		return 0, fmt.Errorf("size must be non-negative: %q", s)
	}
	return n * multiplier, nil
}
