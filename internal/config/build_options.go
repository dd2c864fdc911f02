package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/copytree/copytree/internal/pipeline"
)

// BuildOptions flattens a resolved FlagValues plus the matching ResolvedConfig
// into the single immutable pipeline.Options/pipeline.Profile pair a run is
// built from (Options doc: "flatten two-layer configuration merge to a
// single immutable options struct").
//
// config.Profile's TOML schema (types.go) predates Always/ForceInclude/
// Transformers/External: those fields exist only on pipeline.Profile, so
// they are sourced directly from FlagValues here rather than by extending
// the TOML schema and koanf flattening machinery. See DESIGN.md.
func BuildOptions(fv *FlagValues, resolved *ResolvedConfig) (pipeline.Options, *pipeline.Profile, error) {
	rc := resolved.Profile

	cacheTTL := DefaultCacheTTL
	if fv.CacheTTL != "" {
		d, err := time.ParseDuration(fv.CacheTTL)
		if err != nil {
			return pipeline.Options{}, nil, fmt.Errorf("--cache-ttl: %w", err)
		}
		cacheTTL = d
	}

	external, err := parseExternalSpecs(fv.External)
	if err != nil {
		return pipeline.Options{}, nil, err
	}

	opts := pipeline.Options{
		BasePath:     fv.Dir,
		ProfileName:  resolved.ProfileName,
		Filter:       fv.Filters,
		Include:      fv.Includes,
		Exclude:      fv.Excludes,
		Always:       fv.Always,
		ForceInclude: fv.ForceInclude,

		Modified:      fv.Modified,
		Changed:       fv.Changed,
		WithGitStatus: fv.WithGitStatus,

		AIFilterQuery: fv.AIFilterQuery,
		External:      external,

		WithLineNumbers: fv.LineNumbers,
		Info:            fv.Info,
		ShowSize:        fv.ShowSize,

		IncludeBinary: fv.IncludeBinary,
		DryRun:        fv.DryRun,

		Head:      fv.Head,
		HasHead:   fv.Head > 0,
		CharLimit: fv.CharLimit,
		HasLimit:  fv.CharLimit > 0,

		OutputTarget: outputTargetFor(fv),
		OutputPath:   fv.Output,
		Format:       pipeline.OutputFormat(fv.Format),

		OnlyTree:       fv.OnlyTree,
		NoInstructions: fv.NoInstructions,
		NoCache:        fv.NoCache,

		IgnoreFileName: fv.IgnoreFileName,
		IncludeHidden:  fv.IncludeHidden,
		MaxDepth:       fv.MaxDepth,
		MaxConcurrency: fv.MaxConcurrency,

		SecretsEngine:     fv.SecretsEngine,
		SecretsWASMModule: fv.SecretsWASMModule,
		RedactionMode:     redactionModeFor(fv, rc),
		FailOnSecrets:     fv.FailOnSecrets || fv.FailOnRedaction,
		SecretsAllow:      fv.SecretsAllow,
		MaxSecretBytes:    DefaultMaxSecretBytes,

		DedupAlgorithm: fv.DedupAlgorithm,
		SortBy:         fv.SortBy,
		SortDescending: fv.SortDesc,

		BinaryPolicy:   fv.BinaryPolicy,
		SampleBytes:    DefaultSampleBytes,
		BinaryRatio:    DefaultBinaryRatio,
		SkipLargeFiles: fv.SkipLargeFiles,

		CountTokens:   fv.CountTokens || fv.TokenCountOnly,
		TokenizerName: fv.Tokenizer,

		CacheDir:           fv.CacheDir,
		CacheTTL:           cacheTTL,
		CacheMemoryEntries: DefaultCacheMemoryEntries,

		Target: pipeline.LLMTarget(fv.Target),

		GitTrackedOnly: fv.GitTrackedOnly,
		RelevanceTiers: relevanceTiersFrom(rc.Relevance),
	}

	profile := &pipeline.Profile{
		Name:         resolved.ProfileName,
		Include:      append(append([]string{}, rc.Include...), fv.Includes...),
		Exclude:      fv.Excludes,
		Always:       fv.Always,
		Transformers: map[string]pipeline.TransformerConfig{},
		External:     external,
	}

	return opts, profile, nil
}

// Tunable defaults not yet exposed as their own flags; centralized here so
// BuildOptions has one place to adjust them.
const (
	DefaultCacheTTL           = 24 * time.Hour
	DefaultCacheMemoryEntries = 512
	DefaultMaxSecretBytes     = 5 << 20 // 5MiB
	DefaultSampleBytes        = 8192
	DefaultBinaryRatio        = 0.3
)

func outputTargetFor(fv *FlagValues) pipeline.OutputTarget {
	switch {
	case fv.Stdout:
		return pipeline.OutputStdout
	case fv.Clipboard:
		return pipeline.OutputClipboard
	default:
		return pipeline.OutputFile
	}
}

// redactionModeFor applies --no-redact as an override of the profile's
// boolean Redaction toggle: --no-redact always wins, a profile with
// Redaction disabled also yields "off", otherwise the explicit
// --redaction-mode flag value is used as-is (it already defaults to "typed").
func redactionModeFor(fv *FlagValues, rc *Profile) string {
	if fv.NoRedact {
		return "off"
	}
	if rc != nil && !rc.Redaction {
		return "off"
	}
	return fv.RedactionMode
}

func relevanceTiersFrom(rc RelevanceConfig) []pipeline.RelevanceTier {
	tiers := []struct {
		n        int
		patterns []string
	}{
		{0, rc.Tier0},
		{1, rc.Tier1},
		{2, rc.Tier2},
		{3, rc.Tier3},
		{4, rc.Tier4},
		{5, rc.Tier5},
	}

	var out []pipeline.RelevanceTier
	for _, t := range tiers {
		if len(t.patterns) == 0 {
			continue
		}
		out = append(out, pipeline.RelevanceTier{Tier: t.n, Patterns: t.patterns})
	}
	return out
}

// parseExternalSpecs parses "SOURCE[:DEST][:rule1,rule2]" strings from
// --external into ExternalSourceSpec values. DEST defaults to the source's
// basename-free form (the literal source string) when omitted.
func parseExternalSpecs(raw []string) ([]pipeline.ExternalSourceSpec, error) {
	specs := make([]pipeline.ExternalSourceSpec, 0, len(raw))
	for _, s := range raw {
		parts := strings.Split(s, ":")
		if len(parts) == 0 || parts[0] == "" {
			return nil, fmt.Errorf("--external: invalid spec %q", s)
		}

		spec := pipeline.ExternalSourceSpec{Source: parts[0], Destination: parts[0]}
		if len(parts) > 1 && parts[1] != "" {
			spec.Destination = parts[1]
		}
		if len(parts) > 2 && parts[2] != "" {
			spec.Rules = strings.Split(parts[2], ",")
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
