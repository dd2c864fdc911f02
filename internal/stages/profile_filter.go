// Package stages implements the filter, guard, and ordering stages that run
// after discovery and transform: profile inclusion/exclusion, git-aware
// filtering, secrets detection, dedup, sort, and char-limit truncation.
package stages

import (
	"context"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/copytree/copytree/internal/pipeline"
)

// caseFold lowercases both pattern and path on platforms where the
// filesystem is conventionally case-insensitive, so profile globs behave
// consistently with the host's usual expectations.
func caseFold(s string) string {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		return strings.ToLower(s)
	}
	return s
}

func globMatch(pattern, path string) bool {
	ok, err := doublestar.Match(caseFold(pattern), caseFold(path))
	return err == nil && ok
}

// ProfileFilter applies a profile's include gate then its exclude drop,
// exempting files already tagged AlwaysInclude (spec.md §4.4: always >
// filter-gate > exclude, the stricter reading of the Open Question).
type ProfileFilter struct{}

func (ProfileFilter) Name() string { return "profile-filter" }

func (ProfileFilter) ShouldApply(v *pipeline.Value) bool {
	return v.Profile != nil && (len(v.Profile.Include) > 0 || len(v.Profile.Exclude) > 0 ||
		len(v.Options.Filter) > 0 || len(v.Options.Include) > 0 || len(v.Options.Exclude) > 0)
}

func (ProfileFilter) Process(_ context.Context, v *pipeline.Value) (*pipeline.Value, error) {
	include := append([]string{}, v.Options.Filter...)
	include = append(include, v.Options.Include...)
	exclude := append([]string{}, v.Options.Exclude...)
	if v.Profile != nil {
		include = append(include, v.Profile.Include...)
		exclude = append(exclude, v.Profile.Exclude...)
	}

	var kept []*pipeline.FileDescriptor
	dropped := 0
	for _, fd := range v.Files {
		if fd.AlwaysInclude {
			kept = append(kept, fd)
			continue
		}

		if len(include) > 0 && !matchesAny(include, fd.Path) {
			dropped++
			fd.ExcludedReason = "not-included"
			continue
		}

		if matchesAny(exclude, fd.Path) {
			dropped++
			fd.ExcludedReason = "excluded"
			continue
		}

		kept = append(kept, fd)
	}

	v.Files = kept
	v.Stats.ProfileFilterDropped += dropped
	return v, nil
}

func matchesAny(patterns []string, path string) bool {
	for _, p := range patterns {
		if globMatch(p, path) {
			return true
		}
	}
	return false
}

// AlwaysInclude tags files matching Profile.Always (glob, exact path, or
// basename equality) before ProfileFilter runs, per spec's "annotate, don't
// add" contract -- it never adds files discovery didn't already find.
type AlwaysInclude struct{}

func (AlwaysInclude) Name() string { return "always-include" }

func (AlwaysInclude) ShouldApply(v *pipeline.Value) bool {
	always := v.Options.Always
	if v.Profile != nil {
		always = append(always, v.Profile.Always...)
	}
	return len(always) > 0
}

func (AlwaysInclude) Process(_ context.Context, v *pipeline.Value) (*pipeline.Value, error) {
	always := append([]string{}, v.Options.Always...)
	if v.Profile != nil {
		always = append(always, v.Profile.Always...)
	}

	for _, fd := range v.Files {
		if fd.AlwaysInclude {
			continue
		}
		for _, pattern := range always {
			if globMatch(pattern, fd.Path) || fd.Path == pattern || filepath.Base(fd.Path) == pattern {
				fd.AlwaysInclude = true
				break
			}
		}
	}
	return v, nil
}
