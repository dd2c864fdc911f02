package stages

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/copytree/copytree/internal/pipeline"
)

// ExternalResolver resolves an ExternalSourceSpec's Source (a git URL, a
// local path, anything caller-defined) into a local filesystem path ready to
// be walked. Resolution itself -- cloning, fetching, whatever -- is an
// opaque collaborator per spec.md §1; ExternalMerge only knows how to merge
// an already-resolved directory into the file list.
type ExternalResolver func(ctx context.Context, source string) (localPath string, err error)

// ExternalMerge resolves and merges external roots (Options.External) into
// the file list under their configured Destination prefix. Per-source rules
// reuse the same glob matching stages.ProfileFilter applies to the main
// tree. A source marked Optional is skipped (not failed) when resolution
// errors.
type ExternalMerge struct {
	Resolver ExternalResolver
}

func (ExternalMerge) Name() string { return "external-merge" }

func (e ExternalMerge) ShouldApply(v *pipeline.Value) bool { return len(v.Options.External) > 0 }

func (e ExternalMerge) Process(ctx context.Context, v *pipeline.Value) (*pipeline.Value, error) {
	if e.Resolver == nil {
		return v, pipeline.NewError("external-merge: no resolver configured", pipeline.ErrConfiguration)
	}

	concurrency := v.Options.MaxConcurrency
	if concurrency <= 0 {
		concurrency = 5
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	merged := make([][]*pipeline.FileDescriptor, len(v.Options.External))

	for i, spec := range v.Options.External {
		i, spec := i, spec
		g.Go(func() error {
			files, err := e.resolveOne(gctx, spec)
			if err != nil {
				if spec.Optional {
					return nil
				}
				return fmt.Errorf("external source %q: %w", spec.Source, err)
			}
			merged[i] = files
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return v, pipeline.WrapStageError(e.Name(), err)
	}

	for _, files := range merged {
		v.Files = append(v.Files, files...)
	}
	return v, nil
}

func (e ExternalMerge) resolveOne(ctx context.Context, spec pipeline.ExternalSourceSpec) ([]*pipeline.FileDescriptor, error) {
	localPath, err := e.Resolver(ctx, spec.Source)
	if err != nil {
		return nil, fmt.Errorf("resolving: %w", err)
	}

	var files []*pipeline.FileDescriptor
	err = filepath.WalkDir(localPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(localPath, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if len(spec.Rules) > 0 && !matchesAny(spec.Rules, rel) {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		info, err := d.Info()
		if err != nil {
			return err
		}

		dest := strings.TrimSuffix(spec.Destination, "/") + "/" + rel
		dest = strings.TrimPrefix(dest, "/")
		files = append(files, &pipeline.FileDescriptor{
			Path:                dest,
			AbsPath:             path,
			Size:                info.Size(),
			ModTime:             info.ModTime(),
			Content:             string(content),
			IsExternal:          true,
			ExternalSource:      spec.Source,
			ExternalDestination: spec.Destination,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
