package transform

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/copytree/copytree/internal/pipeline"
	"github.com/copytree/copytree/internal/transform/cache"
)

// DefaultConcurrency bounds the transform worker pool when the caller does
// not specify Options.MaxConcurrency.
const DefaultConcurrency = 5

// Stage runs the registry's resolved transformer for every file in the
// pipeline value, using a bounded worker pool. It implements pipeline.Stage.
type Stage struct {
	registry *Registry
	cache    *cache.Cache
	plan     []Transformer // batch transformers needing a final Flush
	mimeOf   func(fd *pipeline.FileDescriptor) string
	Sink     pipeline.EventSink
}

// NewStage returns a Stage resolving transformers from registry and caching
// Heavy results in c. mimeOf is optional; when nil, MIME-based resolution is
// skipped and only extension/regex rules apply.
func NewStage(registry *Registry, c *cache.Cache, batch []Transformer, mimeOf func(*pipeline.FileDescriptor) string) *Stage {
	return &Stage{registry: registry, cache: c, plan: batch, mimeOf: mimeOf, Sink: pipeline.NopSink{}}
}

// activeFiles tracks in-flight filenames for the optional progress
// observer; it is never consulted for correctness.
type activeFiles struct {
	mu    sync.Mutex
	names map[string]bool
}

func (a *activeFiles) snapshot() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.names))
	for n := range a.names {
		out = append(out, n)
	}
	return out
}

func (a *activeFiles) add(name string) {
	a.mu.Lock()
	a.names[name] = true
	a.mu.Unlock()
}

func (a *activeFiles) remove(name string) {
	a.mu.Lock()
	delete(a.names, name)
	a.mu.Unlock()
}

func (s *Stage) Name() string { return "transform" }

func (s *Stage) ShouldApply(v *pipeline.Value) bool {
	return len(v.Files) > 0
}

func (s *Stage) Process(ctx context.Context, v *pipeline.Value) (*pipeline.Value, error) {
	concurrency := v.Options.MaxConcurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	results := make([]*pipeline.FileDescriptor, len(v.Files))
	var mu sync.Mutex
	var transformErrors int
	active := &activeFiles{names: make(map[string]bool)}
	sink := s.Sink
	if sink == nil {
		sink = pipeline.NopSink{}
	}

	for i, fd := range v.Files {
		i, fd := i, fd
		g.Go(func() error {
			active.add(fd.Path)
			sink.Publish(pipeline.Event{Kind: pipeline.EventActiveFiles, Stage: s.Name(), Payload: active.snapshot()})
			defer func() {
				active.remove(fd.Path)
				sink.Publish(pipeline.Event{Kind: pipeline.EventActiveFiles, Stage: s.Name(), Payload: active.snapshot()})
			}()

			var mime string
			if s.mimeOf != nil {
				mime = s.mimeOf(fd)
			}
			t := s.registry.Resolve(fd, mime)

			out, err := s.runTransformer(gctx, t, fd, v)
			if err != nil {
				failed := *fd
				failed.Error = fmt.Errorf("transform %s: %w", t.Name(), err)
				failed.Transformed = false
				mu.Lock()
				transformErrors++
				mu.Unlock()
				results[i] = &failed
				return nil // Non-fatal: capture error, continue.
			}
			results[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return v, fmt.Errorf("transform stage: %w", err)
	}

	v.Files = results
	v.Stats.TransformErrors += transformErrors

	for _, t := range s.plan {
		bt, ok := t.(BatchTransformer)
		if !ok {
			continue
		}
		extra, err := bt.Flush(ctx)
		if err != nil {
			return v, fmt.Errorf("flushing batch transformer %s: %w", t.Name(), err)
		}
		v.Files = append(v.Files, extra...)
	}

	return v, nil
}

func (s *Stage) runTransformer(ctx context.Context, t Transformer, fd *pipeline.FileDescriptor, v *pipeline.Value) (*pipeline.FileDescriptor, error) {
	traits := t.Traits()
	opts := transformerOptions(v, t.Name())

	if !traits.Heavy || s.cache == nil {
		return t.Transform(ctx, fd, opts)
	}

	key := cache.Key(fd.Content, t.Name(), opts)
	if cached, ok := s.cache.Get(key); ok {
		clone := *cached
		clone.Path = fd.Path
		clone.AbsPath = fd.AbsPath
		return &clone, nil
	}

	out, err := t.Transform(ctx, fd, opts)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, out)
	return out, nil
}

func transformerOptions(v *pipeline.Value, name string) map[string]any {
	if v.Profile == nil {
		return nil
	}
	cfg, ok := v.Profile.Transformers[name]
	if !ok {
		return nil
	}
	return cfg.Options
}
