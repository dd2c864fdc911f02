package stages

import (
	"context"

	"github.com/copytree/copytree/internal/pipeline"
	"github.com/copytree/copytree/internal/relevance"
)

// RelevanceClassify assigns each file's Tier from the configured (or
// default) tier definitions ahead of Sort(by=relevance). Tiering never
// drops a file -- an unmatched path lands at relevance.DefaultUnmatchedTier,
// per pipeline.DefaultTier's "secondary sort key only" invariant.
type RelevanceClassify struct{}

func (RelevanceClassify) Name() string { return "relevance-classify" }

func (RelevanceClassify) ShouldApply(v *pipeline.Value) bool {
	return v.Options.SortBy == "relevance"
}

func (RelevanceClassify) Process(_ context.Context, v *pipeline.Value) (*pipeline.Value, error) {
	defs := relevance.DefaultTierDefinitions()
	if len(v.Options.RelevanceTiers) > 0 {
		defs = make([]relevance.TierDefinition, len(v.Options.RelevanceTiers))
		for i, t := range v.Options.RelevanceTiers {
			defs[i] = relevance.TierDefinition{Tier: relevance.Tier(t.Tier), Patterns: t.Patterns}
		}
	}

	matcher := relevance.NewTierMatcher(defs)
	for _, fd := range v.Files {
		fd.Tier = int(matcher.Match(fd.Path))
	}
	return v, nil
}
