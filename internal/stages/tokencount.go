package stages

import (
	"context"

	"github.com/copytree/copytree/internal/pipeline"
	"github.com/copytree/copytree/internal/tokenizer"
)

// TokenCount populates each file's TokenCount and the run's aggregate
// Stats.TotalTokens. It is purely additive: per spec.md §4.7 a token report
// never affects inclusion, CharLimit remains the sole enforcer.
type TokenCount struct{}

func (TokenCount) Name() string { return "token-count" }

func (TokenCount) ShouldApply(v *pipeline.Value) bool { return v.Options.CountTokens }

func (TokenCount) Process(ctx context.Context, v *pipeline.Value) (*pipeline.Value, error) {
	tok, err := tokenizer.NewTokenizer(v.Options.TokenizerName)
	if err != nil {
		return v, pipeline.WrapStageError("token-count", err)
	}

	total, err := tokenizer.NewTokenCounter(tok).CountFiles(ctx, v.Files)
	if err != nil {
		return v, pipeline.WrapStageError("token-count", err)
	}

	v.Stats.TotalTokens += total
	return v, nil
}
