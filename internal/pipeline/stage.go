package pipeline

import "context"

// Stage is the unit of work composed into a Plan. Each stage receives the
// current Value and returns the (possibly mutated) Value for the next
// stage. Implementations must not retain v beyond the call.
type Stage interface {
	// Name identifies the stage in events and wrapped errors.
	Name() string

	// ShouldApply reports whether this stage should run at all for the
	// given Value. When false, Process is not called and no "after" event
	// is emitted.
	ShouldApply(v *Value) bool

	// Process runs the stage's work and returns the resulting Value.
	Process(ctx context.Context, v *Value) (*Value, error)
}

// RecoverableStage is implemented by stages that can convert their own
// errors into a degraded-but-valid Value instead of aborting the run.
type RecoverableStage interface {
	Stage

	// HandleError is invoked when Process returns a non-nil error. It may
	// return a replacement Value (recovery) or rethrow/return a new error.
	HandleError(ctx context.Context, err error, v *Value) (*Value, error)
}

// EventKind identifies the kind of event published to an EventSink.
type EventKind string

const (
	EventStageBefore  EventKind = "stage:before"
	EventStageAfter   EventKind = "stage:after"
	EventActiveFiles  EventKind = "transform:active-files"
	EventFileStart    EventKind = "file:start"
	EventFileDone     EventKind = "file:done"
	EventRunAborted   EventKind = "run:aborted"
)

// Event is a single progress notification published by the runtime or a
// stage. Payload is stage-specific and may be nil.
type Event struct {
	Kind    EventKind
	Stage   string
	Elapsed float64 // seconds, only set on EventStageAfter
	Payload any
}

// EventSink receives Events published during a run. Implementations must be
// safe for concurrent use: stages with internal concurrency (Transform,
// SecretsGuard, the walker) may publish from multiple goroutines.
type EventSink interface {
	Publish(Event)
}

// NopSink discards every event. It is the default sink when the caller does
// not supply one.
type NopSink struct{}

func (NopSink) Publish(Event) {}

// FuncSink adapts a plain function to the EventSink interface.
type FuncSink func(Event)

func (f FuncSink) Publish(e Event) { f(e) }
