package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/slate/internal/adapters/repository"
	"github.com/okian/slate/internal/domain/model"
	"github.com/okian/slate/pkg/logger"
	"github.com/okian/slate/pkg/metrics"
)

// taskLoop serializes all event processing for one task. It is the only
// goroutine that writes this task's board entries, which is what makes the
// per-task ordering guarantee hold without board-level coordination.
type taskLoop struct {
	id     string
	d      *Dispatcher
	events chan Event

	stop     chan struct{}
	stopOnce sync.Once

	// retry budget consumed so far, per worker id
	retries map[string]int
	// first terminal event observed; later ones are discarded
	terminal bool
}

func newTaskLoop(d *Dispatcher, taskID string) *taskLoop {
	return &taskLoop{
		id:      taskID,
		d:       d,
		events:  make(chan Event, d.loopBuffer),
		stop:    make(chan struct{}),
		retries: make(map[string]int),
	}
}

// submit hands an event to the loop without blocking. The buffer is sized
// generously; overflow means the task is emitting faster than it can be
// dispatched and the event is dropped with an error.
func (l *taskLoop) submit(ctx context.Context, ev Event) {
	// The loop removes itself after the task turns terminal, but a caller
	// may still hold a reference from just before that point. Such events
	// are late, not pending.
	if t, err := l.d.tracker.Get(l.id); err == nil && t.Phase.Terminal() {
		metrics.RecordEventLate()
		l.d.logger.Info(ctx, "dropping event for terminal task",
			logger.String("taskID", l.id),
			logger.String("type", ev.Type),
		)
		return
	}
	l.d.tracker.AdjustPending(l.id, 1)
	select {
	case l.events <- ev:
	default:
		l.d.tracker.AdjustPending(l.id, -1)
		metrics.RecordQueueEnqueueError()
		l.d.logger.Error(ctx, "task loop buffer full, dropping event",
			logger.String("taskID", l.id),
			logger.String("type", ev.Type),
		)
	}
}

func (l *taskLoop) halt() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// run processes events in arrival order until the task reaches a terminal
// phase, its wall-clock budget expires, or the dispatcher stops.
func (l *taskLoop) run(ctx context.Context) {
	defer l.d.wg.Done()
	defer l.d.removeLoop(l.id)

	deadline := time.NewTimer(l.d.taskTimeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.stop:
			return
		case <-deadline.C:
			l.d.failTask(ctx, l.id, "task deadline exceeded with unresolved events", "timeout")
			return
		case ev := <-l.events:
			l.process(ctx, ev)
			if l.finished(ctx) {
				return
			}
		}
	}
}

// finished reports whether the loop is done, completing the task when the
// pending counter drained after a terminal event.
func (l *taskLoop) finished(ctx context.Context) bool {
	t, err := l.d.tracker.Get(l.id)
	if err != nil {
		return true
	}
	if t.Phase.Terminal() {
		return true
	}
	if l.terminal && t.PendingEvents == 0 && len(l.events) == 0 {
		l.d.completeTask(ctx, l.id)
		return true
	}
	return false
}

// process handles a single event: lifecycle bookkeeping, terminal and fatal
// classification, then concurrent fan-out to every subscribed worker.
func (l *taskLoop) process(ctx context.Context, ev Event) {
	start := time.Now()
	defer func() {
		metrics.RecordDispatchLatency(float64(time.Since(start).Milliseconds()))
		l.d.tracker.AdjustPending(l.id, -1)
	}()
	metrics.RecordEventDispatched()

	l.d.advance(ctx, l.id, model.PhaseDispatching)

	if l.d.isFatalType(ev.Type) {
		l.d.failTask(ctx, l.id, failureReason(ev), "fatal_event")
		return
	}

	// Worker-emitted terminal events are claimed when their outcome is
	// handled; only externally submitted ones are claimed here.
	if l.d.isTerminalType(ev.Type) && ev.Origin == model.OriginExternal {
		if !l.claimTerminal(ctx, ev) {
			return
		}
	}

	workers := l.d.resolver.Resolve(ev.Type)
	if len(workers) == 0 {
		metrics.RecordEventInert()
		l.d.logger.Debug(ctx, "event has no subscribers",
			logger.String("taskID", l.id),
			logger.String("type", ev.Type),
		)
		return
	}

	l.d.advance(ctx, l.id, model.PhaseAwaitingWorkers)

	// One snapshot per fan-out: every worker of this event sees the same
	// consistent board state.
	snap := l.d.board.Snapshot(ctx, l.id)

	invs := make([]invocation, len(workers))
	var wg sync.WaitGroup
	for i, w := range workers {
		wg.Add(1)
		go func(i int, w model.Worker) {
			defer wg.Done()
			out, invID := l.invoke(ctx, w, ev, snap)
			invs[i] = invocation{worker: w, out: out, id: invID}
		}(i, w)
	}
	wg.Wait()

	// Outcomes are handled in resolution order so follow-up enqueueing is
	// deterministic regardless of which invocation returned first.
	for _, inv := range invs {
		l.handleOutcome(ctx, ev, inv)
	}
}

// invocation pairs a worker's outcome with the invocation id its board
// writes are attributed to.
type invocation struct {
	worker model.Worker
	out    model.Outcome
	id     string
}

// invoke runs one worker against the event under the per-invocation
// deadline. On timeout the invocation id is revoked so a late result cannot
// reach the board, and the outcome is reported as a failure.
func (l *taskLoop) invoke(ctx context.Context, w model.Worker, ev Event, snap model.Snapshot) (model.Outcome, string) {
	invID := uuid.NewString()
	l.d.tracker.AddWorker(l.id, w.ID())
	metrics.RecordWorkerInvocation(w.ID())

	cctx, cancel := context.WithTimeout(ctx, l.d.workerDeadline)
	defer cancel()

	start := time.Now()
	res := make(chan model.Outcome, 1)
	go func() {
		res <- w.Handle(cctx, ev, snap)
	}()

	select {
	case out := <-res:
		metrics.RecordWorkerLatency(float64(time.Since(start).Milliseconds()))
		return out, invID
	case <-cctx.Done():
		l.d.board.RevokeInvocation(ctx, l.id, invID)
		metrics.RecordWorkerTimeout(w.ID())
		l.d.logger.Warn(ctx, "worker invocation timed out",
			logger.String("taskID", l.id),
			logger.String("worker", w.ID()),
			logger.String("type", ev.Type),
		)
		return model.Fail("invocation deadline exceeded"), invID
	}
}

// handleOutcome applies one invocation result, re-invoking on failure while
// the worker's retry budget lasts.
func (l *taskLoop) handleOutcome(ctx context.Context, ev Event, inv invocation) {
	workerID := inv.worker.ID()
	out, invID := inv.out, inv.id

	for {
		switch out.Kind {
		case model.OutcomeNoOp:
			l.recordActivity(workerID, "no_op", ev.Type)
			return

		case model.OutcomeEmitted:
			l.recordActivity(workerID, "emitted", ev.Type)
			for _, child := range out.Events {
				l.acceptEmitted(ctx, ev, workerID, invID, child)
			}
			return

		case model.OutcomeFailure:
			metrics.RecordWorkerFailure(workerID)
			if l.retries[workerID] < l.d.maxRetries {
				l.retries[workerID]++
				metrics.RecordWorkerRetry()
				l.recordActivity(workerID, "retrying", out.Reason)
				l.d.logger.Warn(ctx, "retrying worker after failure",
					logger.String("taskID", l.id),
					logger.String("worker", workerID),
					logger.String("reason", out.Reason),
					logger.Int("attempt", l.retries[workerID]),
				)
				// Fresh snapshot: earlier outcomes of this fan-out may
				// have written board entries the retry should see.
				out, invID = l.invoke(ctx, inv.worker, ev, l.d.board.Snapshot(ctx, l.id))
				continue
			}
			l.recordActivity(workerID, "failed", out.Reason)
			l.escalateFailure(ctx, ev, workerID, out.Reason)
			return

		default:
			return
		}
	}
}

// acceptEmitted validates, writes, and re-enqueues one worker-emitted event.
func (l *taskLoop) acceptEmitted(ctx context.Context, parent Event, workerID, invID string, child Event) {
	if !child.Valid() || child.TaskID != l.id {
		metrics.RecordEventMalformed()
		l.recordActivity(workerID, "malformed", child.Type)
		l.d.logger.Warn(ctx, "discarding malformed worker event",
			logger.String("taskID", l.id),
			logger.String("worker", workerID),
			logger.String("type", child.Type),
		)
		return
	}

	if l.d.isTerminalType(child.Type) && !l.claimTerminal(ctx, child) {
		return
	}

	if child.Payload != nil {
		meta := repository.WriteMeta{Writer: workerID, InvocationID: invID}
		if _, err := l.d.board.Write(ctx, l.id, child.Type, child.Payload, meta); err != nil {
			l.d.logger.Warn(ctx, "board rejected worker event",
				logger.String("taskID", l.id),
				logger.String("worker", workerID),
				logger.String("type", child.Type),
				logger.Error(err),
			)
			return
		}
	}

	metrics.RecordEventEmitted()
	l.submit(ctx, child)
}

// escalateFailure records an exhausted worker failure on the board and posts
// the failure event, which is fatal under the default configuration. The
// entry is the dispatcher's own record, written without an invocation id:
// revocation blocks a timed-out worker's late results, never the failure
// record itself.
func (l *taskLoop) escalateFailure(ctx context.Context, ev Event, workerID, reason string) {
	value := map[string]any{
		"worker":     workerID,
		"reason":     reason,
		"event_type": ev.Type,
		"event_id":   ev.ID,
	}
	meta := repository.WriteMeta{Writer: OriginDispatcher}
	if _, err := l.d.board.Write(ctx, l.id, ErrorKey, value, meta); err != nil {
		l.d.logger.Warn(ctx, "could not record worker failure",
			logger.String("taskID", l.id),
			logger.String("worker", workerID),
			logger.Error(err),
		)
	}

	failure := ev.Child(FailureEventType, OriginDispatcher, value)
	l.submit(ctx, failure)
}

// claimTerminal makes the first terminal event authoritative. Returns false
// when a terminal result already exists; the duplicate is logged and
// discarded rather than dispatched.
func (l *taskLoop) claimTerminal(ctx context.Context, ev Event) bool {
	if !l.terminal {
		l.terminal = true
		l.d.tracker.SetResult(l.id, ev.Payload)
		return true
	}
	l.recordActivity(ev.Origin, "terminal_discarded", ev.Type)
	l.d.logger.Warn(ctx, "discarding duplicate terminal event",
		logger.String("taskID", l.id),
		logger.String("type", ev.Type),
		logger.String("origin", ev.Origin),
	)
	return false
}

func (l *taskLoop) recordActivity(workerID, status, detail string) {
	a := l.d.tracker.RecordActivity(l.id, workerID, status, detail)
	l.d.announceActivity(a)
}

// failureReason extracts a human-readable reason from a fatal event payload.
func failureReason(ev Event) string {
	if r, ok := ev.Payload["reason"].(string); ok && r != "" {
		return r
	}
	return "fatal event " + ev.Type
}
