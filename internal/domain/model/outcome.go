package model

import "context"

// OutcomeKind discriminates the worker outcome variant.
type OutcomeKind int

const (
	// OutcomeNoOp means the worker had nothing to contribute.
	OutcomeNoOp OutcomeKind = iota
	// OutcomeEmitted carries follow-up events for the same task.
	OutcomeEmitted
	// OutcomeFailure reports that the worker could not complete.
	OutcomeFailure
)

// String returns the wire name of the kind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeEmitted:
		return "emitted"
	case OutcomeFailure:
		return "failure"
	default:
		return "no_op"
	}
}

// Outcome is the result of a single worker invocation. Exactly one variant is
// meaningful per value, selected by Kind.
type Outcome struct {
	Kind   OutcomeKind
	Events []Event // populated for OutcomeEmitted
	Reason string  // populated for OutcomeFailure
}

// Emit builds an emitted-events outcome.
func Emit(events ...Event) Outcome {
	return Outcome{Kind: OutcomeEmitted, Events: events}
}

// NoOp builds an empty outcome.
func NoOp() Outcome {
	return Outcome{Kind: OutcomeNoOp}
}

// Fail builds a failure outcome with a human-readable reason.
func Fail(reason string) Outcome {
	return Outcome{Kind: OutcomeFailure, Reason: reason}
}

// Snapshot is a consistent point-in-time view of a task's board facts,
// passed by value to worker invocations. Mutating it has no effect on the
// board.
type Snapshot map[string]any

// Worker is the capability contract the dispatcher invokes. Workers are
// stateless from the dispatcher's point of view: anything durable must be
// reconstructed from the snapshot each invocation. Handle must honor ctx
// cancellation; late results from an expired invocation are discarded.
type Worker interface {
	ID() string
	Handle(ctx context.Context, event Event, snapshot Snapshot) Outcome
}

// WorkerFunc adapts a function to the Worker interface.
type WorkerFunc struct {
	WorkerID string
	Fn       func(ctx context.Context, event Event, snapshot Snapshot) Outcome
}

// ID returns the worker identifier.
func (w WorkerFunc) ID() string { return w.WorkerID }

// Handle invokes the wrapped function.
func (w WorkerFunc) Handle(ctx context.Context, event Event, snapshot Snapshot) Outcome {
	return w.Fn(ctx, event, snapshot)
}
