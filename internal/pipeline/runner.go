package pipeline

import (
	"context"
	"fmt"
	"time"
)

// Plan is a named, ordered sequence of stages. The engine builds a single
// "generate" plan, used for every output format and target.
type Plan struct {
	Name   string
	Stages []Stage
}

// Runner drives a Value through a Plan's stages, emitting events and
// applying each stage's recovery hook on error. The runtime centralizes
// timing and error propagation; individual stages never measure their own
// elapsed time (spec.md §4.1).
type Runner struct {
	Sink            EventSink
	ContinueOnError bool
}

// NewRunner returns a Runner publishing to sink. A nil sink is replaced with
// NopSink.
func NewRunner(sink EventSink) *Runner {
	if sink == nil {
		sink = NopSink{}
	}
	return &Runner{Sink: sink}
}

// Run executes plan.Stages in strict sequence against v, returning the final
// Value or the first unrecovered error. Cancellation is checked before each
// stage; a cancelled context aborts the run without starting the next stage.
func (r *Runner) Run(ctx context.Context, v *Value, plan Plan) (*Value, error) {
	sink := r.Sink
	if sink == nil {
		sink = NopSink{}
	}

	for _, stage := range plan.Stages {
		select {
		case <-ctx.Done():
			sink.Publish(Event{Kind: EventRunAborted, Stage: stage.Name()})
			return v, fmt.Errorf("%s: %w", plan.Name, ctx.Err())
		default:
		}

		if !stage.ShouldApply(v) {
			continue
		}

		sink.Publish(Event{Kind: EventStageBefore, Stage: stage.Name()})
		start := time.Now()

		next, err := runStage(ctx, stage, v)
		elapsed := time.Since(start).Seconds()

		if err != nil {
			recovered, rerr := recoverFromError(ctx, stage, err, v)
			if rerr != nil {
				return v, WrapStageError(stage.Name(), rerr)
			}
			if recovered != nil {
				v = recovered
				sink.Publish(Event{Kind: EventStageAfter, Stage: stage.Name(), Elapsed: elapsed})
				continue
			}
			if r.ContinueOnError {
				// No recovery hook, but the plan tolerates stage failure:
				// keep the pre-stage value and move on.
				continue
			}
			return v, WrapStageError(stage.Name(), err)
		}

		v = next
		sink.Publish(Event{Kind: EventStageAfter, Stage: stage.Name(), Elapsed: elapsed})
	}

	return v, nil
}

// runStage invokes stage.Process, converting a panic into an *Internal*
// error wrapped with the stage name rather than letting it escape the
// runtime (spec.md §4.1: "never panic on a stage error").
func runStage(ctx context.Context, stage Stage, v *Value) (result *Value, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", ErrInternal, rec)
		}
	}()
	return stage.Process(ctx, v)
}

// recoverFromError invokes the stage's HandleError hook if it implements
// RecoverableStage. It returns (nil, nil) when the stage has no hook, so the
// caller can fall back to its continueOnError/abort decision.
func recoverFromError(ctx context.Context, stage Stage, err error, v *Value) (*Value, error) {
	rs, ok := stage.(RecoverableStage)
	if !ok {
		return nil, nil
	}
	recovered, rerr := rs.HandleError(ctx, err, v)
	if rerr != nil {
		return nil, rerr
	}
	return recovered, nil
}
