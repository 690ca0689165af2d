package model

import "time"

// Phase is the lifecycle state of a task. Phases advance monotonically except
// PhaseFailed, which is reachable from any non-terminal phase.
type Phase string

const (
	PhasePending         Phase = "pending"
	PhaseDispatching     Phase = "dispatching"
	PhaseAwaitingWorkers Phase = "awaiting_workers"
	PhaseCompleted       Phase = "completed"
	PhaseFailed          Phase = "failed"
)

// Terminal reports whether no further events are accepted in this phase.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

// rank orders phases for the monotonicity check. Failed sorts last so the
// tracker can reach it from anywhere.
func (p Phase) rank() int {
	switch p {
	case PhasePending:
		return 0
	case PhaseDispatching:
		return 1
	case PhaseAwaitingWorkers:
		return 2
	case PhaseCompleted:
		return 3
	case PhaseFailed:
		return 4
	default:
		return -1
	}
}

// CanTransition reports whether moving from p to next respects the monotonic
// lifecycle. Terminal phases accept no successor.
func (p Phase) CanTransition(next Phase) bool {
	if p.Terminal() {
		return false
	}
	if next == PhaseFailed {
		return true
	}
	return next.rank() > p.rank() && next.rank() >= 0
}

// Task is the bookkeeping record for one logical unit of coordinated work.
type Task struct {
	ID             string
	Phase          Phase
	CreatedAt      time.Time
	Workers        []string       // participating worker ids, registration order
	PendingEvents  int            // enqueued plus in-flight events
	TerminalResult map[string]any // payload of the authoritative terminal event
	FailureReason  string         // set when Phase == PhaseFailed
}

// Activity is an append-only observability record of one worker invocation.
// Control decisions never read these.
type Activity struct {
	TaskID    string
	WorkerID  string
	Status    string
	Detail    string
	Timestamp time.Time
}
