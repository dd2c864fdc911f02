// Package engine wires discovery, the filter/guard stages, transform, and
// render together into the single entry point the CLI calls. It exists as
// its own package (rather than living in internal/pipeline, as the
// teacher's stub pipeline.Run did) because internal/stages, internal/
// discovery, internal/transform, and internal/render all import pipeline
// for its DTOs; pipeline itself must stay a leaf to avoid a cycle. See
// DESIGN.md.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/atotto/clipboard"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"

	"github.com/copytree/copytree/internal/config"
	"github.com/copytree/copytree/internal/discovery"
	"github.com/copytree/copytree/internal/gitutil"
	"github.com/copytree/copytree/internal/pipeline"
	"github.com/copytree/copytree/internal/progress"
	"github.com/copytree/copytree/internal/render"
	"github.com/copytree/copytree/internal/secrets"
	"github.com/copytree/copytree/internal/stages"
	"github.com/copytree/copytree/internal/transform"
	"github.com/copytree/copytree/internal/transform/cache"
)

// Run discovers, filters, transforms, and renders a copytree context
// document from fv, writing it to the resolved output target. It is the
// single orchestration entry point both `copytree generate` and the `mcp`
// subcommand's generate_context tool build on.
func Run(ctx context.Context, fv *config.FlagValues) error {
	v, opts, err := process(ctx, fv)
	if err != nil {
		return err
	}

	if err := renderAndWrite(v, opts); err != nil {
		return err
	}

	if opts.FailOnSecrets && v.Stats.SecretsGuard.FilesRedacted+v.Stats.SecretsGuard.FilesExcluded > 0 {
		return pipeline.NewRedactionError(fmt.Sprintf(
			"secrets detected in %d file(s)", v.Stats.SecretsGuard.FilesRedacted+v.Stats.SecretsGuard.FilesExcluded))
	}
	return nil
}

// Evaluate runs the same discovery and stage plan as Run, but stops short of
// rendering and writing output. It backs `copytree preview`, which reports
// file selection and token statistics without producing a context document.
// Token counting is always enabled for Evaluate regardless of
// Options.CountTokens, since a preview with no token counts is useless.
func Evaluate(ctx context.Context, fv *config.FlagValues) (*pipeline.Value, error) {
	previewFlags := *fv
	previewFlags.CountTokens = true
	v, _, err := process(ctx, &previewFlags)
	return v, err
}

// process resolves configuration, discovers files, and runs the full stage
// plan, returning the resulting Value and the Options it was built from.
// Run renders and writes v; Evaluate reports on it directly.
func process(ctx context.Context, fv *config.FlagValues) (*pipeline.Value, pipeline.Options, error) {
	resolved, err := config.Resolve(config.ResolveOptions{
		ProfileName: fv.Profile,
		TargetDir:   fv.Dir,
	})
	if err != nil {
		return nil, pipeline.Options{}, pipeline.NewError("resolving configuration", err)
	}

	opts, profile, err := config.BuildOptions(fv, resolved)
	if err != nil {
		return nil, pipeline.Options{}, pipeline.NewError("building pipeline options", err)
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}

	v, err := discoverValue(ctx, opts, profile)
	if err != nil {
		return nil, opts, err
	}

	var observer *progress.Observer
	if progress.ShouldShow(opts.OutputTarget, isatty.IsTerminal(os.Stderr.Fd())) {
		observer = progress.New(opts.MaxConcurrency)
		observer.Start()
		defer observer.Stop()
	}

	sink := pipeline.EventSink(pipeline.NopSink{})
	if observer != nil {
		sink = observer.Sink()
	}

	secretsEngine, err := secrets.NewEngine(opts.SecretsEngine, opts.SecretsBinary, opts.SecretsWASMModule, nil)
	if err != nil {
		return nil, opts, pipeline.NewError("constructing secrets engine", err)
	}

	transformStage, err := buildTransformStage(opts, sink)
	if err != nil {
		return nil, opts, pipeline.NewError("constructing transform stage", err)
	}

	plan := pipeline.Plan{
		Name: "generate",
		Stages: []pipeline.Stage{
			stages.AlwaysInclude{},
			stages.ProfileFilter{},
			stages.NewGitFilter(slog.Default().With("component", "git-filter")),
			stages.FileLoading{},
			stages.NewSecretsGuard(secretsEngine),
			transformStage,
			stages.ExternalMerge{Resolver: localPathResolver},
			stages.Dedup{},
			stages.RelevanceClassify{},
			stages.Sort{},
			stages.TokenCount{},
			stages.CharLimit{},
		},
	}

	runner := pipeline.NewRunner(sink)
	v, err = runner.Run(ctx, v, plan)
	if err != nil {
		return nil, opts, pipeline.NewError("running pipeline", err)
	}
	v.Compact()

	return v, opts, nil
}

// discoverValue runs the discovery walker and seeds the initial Value.
func discoverValue(ctx context.Context, opts pipeline.Options, profile *pipeline.Profile) (*pipeline.Value, error) {
	gitignoreMatcher, err := discovery.NewGitignoreMatcher(opts.BasePath)
	if err != nil {
		return nil, pipeline.NewError("loading .gitignore", err)
	}
	copytreeignoreMatcher, err := discovery.NewCopytreeignoreMatcher(opts.BasePath, opts.IgnoreFileName)
	if err != nil {
		return nil, pipeline.NewError("loading "+opts.IgnoreFileName, err)
	}

	forceInclude := append([]string{}, opts.ForceInclude...)
	forceInclude = append(forceInclude, opts.Always...)
	if profile != nil {
		forceInclude = append(forceInclude, profile.Always...)
	}

	var patternFilter *discovery.PatternFilter
	if len(opts.Filter) > 0 {
		patternFilter = discovery.NewPatternFilter(discovery.PatternFilterOptions{Extensions: opts.Filter})
	}

	cfg := discovery.WalkerConfig{
		Root:                  opts.BasePath,
		GitignoreMatcher:      gitignoreMatcher,
		CopytreeignoreMatcher: copytreeignoreMatcher,
		DefaultIgnorer:        discovery.NewDefaultIgnoreMatcher(),
		PatternFilter:         patternFilter,
		GitTrackedOnly:        opts.GitTrackedOnly,
		SkipLargeFiles:        opts.SkipLargeFiles,
		Concurrency:           opts.MaxConcurrency,
		IncludeHidden:         opts.IncludeHidden,
		MaxDepth:              opts.MaxDepth,
		IncludeBinary:         opts.IncludeBinary,
		ForceInclude:          forceInclude,
	}

	result, err := discovery.NewWalker().Walk(ctx, cfg)
	if err != nil {
		return nil, pipeline.NewError("discovering files", err)
	}

	stats := pipeline.NewStats()
	stats.Discovery.TotalFound = result.TotalFound
	stats.Discovery.TotalSkipped = result.TotalSkipped
	stats.Discovery.SkipReasons = result.SkipReasons

	return &pipeline.Value{
		BasePath: opts.BasePath,
		Files:    result.Files,
		Options:  opts,
		Profile:  profile,
		Stats:    stats,
	}, nil
}

// buildTransformStage assembles the registry, cache, and worker pool the
// transform stage runs with. PlainTextTransformer is the default fallback;
// LineNumberTransformer takes over as the default when --line-numbers is
// set so ordinary source files get numbered without per-extension wiring.
// Image MIME types route to ImageDescriptionTransformer with no captioning
// backend configured, the documented seam for a future AI-backed captioner
// (spec.md's AI-transformer non-goal).
func buildTransformStage(opts pipeline.Options, sink pipeline.EventSink) (*transform.Stage, error) {
	var def transform.Transformer = transform.PlainTextTransformer{}
	if opts.WithLineNumbers {
		def = transform.LineNumberTransformer{}
	}

	registry := transform.NewRegistry(def)
	registry.RegisterMIME("image/", transform.NewImageDescriptionTransformer(nil))

	switch opts.BinaryPolicy {
	case "base64":
		registry.RegisterMIME("application/", transform.Base64Transformer{})
	case "placeholder":
		registry.RegisterMIME("application/", transform.PlaceholderTransformer{})
	}

	cacheDir := opts.CacheDir
	if cacheDir == "" {
		dir, err := os.UserCacheDir()
		if err == nil {
			cacheDir = dir + "/copytree/transform"
		}
	}
	c, err := cache.New(cacheDir, opts.CacheMemoryEntries, opts.CacheTTL, opts.NoCache)
	if err != nil {
		return nil, err
	}

	// net/http.DetectContentType is the stdlib MIME sniffer: no third-party
	// content-sniffing library appears anywhere in the example corpus, and
	// this is exactly the use DetectContentType is designed for. See
	// DESIGN.md.
	mimeOf := func(fd *pipeline.FileDescriptor) string {
		n := len(fd.Content)
		if n > 512 {
			n = 512
		}
		return http.DetectContentType([]byte(fd.Content[:n]))
	}

	stage := transform.NewStage(registry, c, nil, mimeOf)
	stage.Sink = sink
	return stage, nil
}

// localPathResolver resolves an ExternalSourceSpec's Source as a local
// filesystem path. Remote sources (git URLs, archives) are out of scope for
// this resolver; spec.md §6 treats resolution as an opaque, swappable
// collaborator, so a future resolver can replace this one without touching
// ExternalMerge.
func localPathResolver(_ context.Context, source string) (string, error) {
	info, err := os.Stat(source)
	if err != nil {
		return "", fmt.Errorf("external source %q: %w", source, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("external source %q is not a directory", source)
	}
	return source, nil
}

// renderAndWrite formats v per Options.Format and writes it to the
// resolved OutputTarget.
func renderAndWrite(v *pipeline.Value, opts pipeline.Options) error {
	formatter, err := render.ForFormat(opts.Format)
	if err != nil {
		return pipeline.NewError("selecting formatter", err)
	}

	doc, err := formatter.Format(v)
	if err != nil {
		return pipeline.NewError("rendering output", err)
	}
	v.Output = doc
	v.OutputFormat = opts.Format
	v.OutputSize = len(doc)

	switch opts.OutputTarget {
	case pipeline.OutputStdout:
		fmt.Print(doc)
	case pipeline.OutputClipboard:
		if err := clipboard.WriteAll(doc); err != nil {
			return pipeline.NewError("copying output to clipboard", err)
		}
	default:
		if err := os.WriteFile(opts.OutputPath, []byte(doc), 0o644); err != nil {
			return pipeline.NewError("writing output file", err)
		}
	}
	return nil
}

// ensure gitutil stays linked for GitFilter's subprocess helpers even if
// engine never calls it directly; keeps the import intentional, not dead.
var _ = gitutil.DefaultTimeout
