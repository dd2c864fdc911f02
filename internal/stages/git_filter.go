package stages

import (
	"context"
	"log/slog"

	"github.com/copytree/copytree/internal/gitutil"
	"github.com/copytree/copytree/internal/pipeline"
)

// GitFilter restricts the file set to modified/changed paths and/or
// annotates GitMetadata, per spec.md §4.4. Any subprocess failure demotes
// the stage to a no-op rather than aborting the run.
type GitFilter struct {
	logger *slog.Logger
}

// NewGitFilter returns a GitFilter logging through logger (or slog.Default
// if nil).
func NewGitFilter(logger *slog.Logger) *GitFilter {
	if logger == nil {
		logger = slog.Default()
	}
	return &GitFilter{logger: logger.With("component", "git-filter")}
}

func (g *GitFilter) Name() string { return "git-filter" }

func (g *GitFilter) ShouldApply(v *pipeline.Value) bool {
	return v.Options.Modified || v.Options.Changed != "" || v.Options.WithGitStatus
}

func (g *GitFilter) Process(ctx context.Context, v *pipeline.Value) (*pipeline.Value, error) {
	if !gitutil.IsRepository(ctx, v.BasePath) {
		g.logger.Warn("git filter requested but root is not a git repository, skipping", "root", v.BasePath)
		return v, nil
	}

	if v.Options.WithGitStatus {
		meta, err := gitutil.ReadMetadata(ctx, v.BasePath)
		if err != nil {
			g.logger.Warn("failed reading git metadata", "error", err)
		} else {
			v.GitMetadata = &pipeline.GitMetadata{
				Branch:            meta.Branch,
				LastCommitHash:    meta.LastCommitHash,
				LastCommitSubject: meta.LastCommitSubject,
				Dirty:             meta.Dirty,
			}
		}

		if statuses, err := gitutil.StatusLetters(ctx, v.BasePath); err == nil {
			for _, fd := range v.Files {
				fd.GitStatus = statuses[fd.Path]
			}
		}
	}

	var allow map[string]bool
	var filterType string

	switch {
	case v.Options.Modified:
		modified, err := gitutil.ModifiedFiles(ctx, v.BasePath)
		if err != nil {
			g.logger.Warn("git status failed, skipping modified filter", "error", err)
			return v, nil
		}
		allow = modified
		filterType = "modified"
	case v.Options.Changed != "":
		changed, err := gitutil.ChangedFiles(ctx, v.BasePath, v.Options.Changed)
		if err != nil {
			g.logger.Warn("git diff failed, skipping changed filter", "error", err)
			return v, nil
		}
		allow = changed
		filterType = "changed:" + v.Options.Changed
	default:
		return v, nil
	}

	if v.GitMetadata != nil {
		v.GitMetadata.FilterType = filterType
	}

	var kept []*pipeline.FileDescriptor
	dropped := 0
	for _, fd := range v.Files {
		if fd.AlwaysInclude || allow[fd.Path] {
			kept = append(kept, fd)
			continue
		}
		dropped++
		fd.ExcludedReason = "git-filter"
	}
	v.Files = kept
	v.Stats.GitFilterDropped += dropped

	return v, nil
}
