// Package dispatch routes task events to subscribed workers.
//
// One goroutine consumes the intake queue and hands each event to a per-task
// loop. A task's events are processed strictly in arrival order; events of
// different tasks interleave freely. Worker fan-out inside a single event is
// concurrent, but the loop waits for every invocation before touching the
// next event, so board reads and writes of one task never race.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/slate/internal/adapters/audit"
	"github.com/okian/slate/internal/adapters/repository"
	"github.com/okian/slate/internal/domain/model"
	"github.com/okian/slate/internal/domain/tracker"
	"github.com/okian/slate/pkg/logger"
	"github.com/okian/slate/pkg/metrics"
)

// Default dispatcher configuration constants.
const (
	defaultWorkerDeadline = 5 * time.Second
	defaultTaskTimeout    = 60 * time.Second
	defaultMaxRetries     = 1
	defaultLoopBuffer     = 1024
)

// FailureEventType is the internal event type posted when a worker exhausts
// its retry budget. It is in the fatal set unless reconfigured, so an
// unrecoverable worker takes its task to failed.
const FailureEventType = "worker.failure"

// ErrorKey is the distinguished board key under which worker failures are
// recorded. Each failure appends a new version.
const ErrorKey = "worker.error"

// OriginDispatcher attributes board writes and events produced by the
// dispatcher itself rather than a worker.
const OriginDispatcher = "dispatcher"

// Event abstracts what the dispatcher reads off the queue.
// Using the model.Event type for consistency.
type Event = model.Event

// Queue defines how the dispatcher receives externally submitted events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Resolver returns the workers subscribed to an event type, already in
// deterministic invocation order.
type Resolver interface {
	Resolve(eventType string) []model.Worker
}

// Publisher pushes live-feed messages to observers. Implementations must not
// block the caller.
type Publisher interface {
	Publish(msg model.Message)
}

// Dispatcher owns the task loops and the routing policy between them.
type Dispatcher struct {
	queue    Queue
	board    repository.Board
	resolver Resolver
	tracker  *tracker.Tracker
	feed     Publisher
	trail    audit.Log

	workerDeadline time.Duration
	taskTimeout    time.Duration
	maxRetries     int
	loopBuffer     int
	terminalTypes  map[string]struct{}
	fatalTypes     map[string]struct{}
	verboseFeed    bool

	mu    sync.Mutex
	loops map[string]*taskLoop
	wg    sync.WaitGroup

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	// Logging
	logger logger.Logger
}

// New creates a dispatcher with configuration options.
func New(q Queue, board repository.Board, resolver Resolver, tr *tracker.Tracker, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		queue:          q,
		board:          board,
		resolver:       resolver,
		tracker:        tr,
		workerDeadline: defaultWorkerDeadline,
		taskTimeout:    defaultTaskTimeout,
		maxRetries:     defaultMaxRetries,
		loopBuffer:     defaultLoopBuffer,
		terminalTypes:  make(map[string]struct{}),
		fatalTypes:     map[string]struct{}{FailureEventType: {}},
		loops:          make(map[string]*taskLoop),
		shutdown:       make(chan struct{}),
		done:           make(chan struct{}),
		logger:         logger.Get().Named("dispatch"),
	}

	// Apply all options
	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Run consumes the intake queue until ctx is canceled, the queue closes, or
// Shutdown is called.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)

	events := d.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			d.stopLoops()
			return
		case <-d.shutdown:
			d.stopLoops()
			return
		case ev, ok := <-events:
			if !ok {
				// Queue closed and drained, dispatcher should stop.
				d.stopLoops()
				return
			}
			d.route(ctx, ev)
		}
	}
}

// Shutdown gracefully stops the dispatcher and waits for the task loops.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	close(d.shutdown)

	select {
	case <-d.done:
	case <-ctx.Done():
		d.logger.Warn(ctx, "dispatcher shutdown timed out")
		return fmt.Errorf("dispatcher shutdown timed out: %w", ctx.Err())
	}

	finished := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		d.logger.Warn(ctx, "task loops did not stop in time")
		return fmt.Errorf("task loops did not stop: %w", ctx.Err())
	}
}

// route hands an intake event to its task loop, creating task and loop on
// first sight. Events for terminal tasks are dropped as late.
func (d *Dispatcher) route(ctx context.Context, ev Event) {
	if !ev.Valid() {
		metrics.RecordEventMalformed()
		d.logger.Warn(ctx, "dropping malformed event",
			logger.String("taskID", ev.TaskID),
			logger.String("type", ev.Type),
		)
		return
	}

	d.mu.Lock()
	l, ok := d.loops[ev.TaskID]
	if !ok {
		if t, err := d.tracker.Get(ev.TaskID); err == nil && t.Phase.Terminal() {
			d.mu.Unlock()
			metrics.RecordEventLate()
			d.logger.Info(ctx, "dropping event for terminal task",
				logger.String("taskID", ev.TaskID),
				logger.String("type", ev.Type),
			)
			return
		} else if err != nil {
			if _, err := d.tracker.Create(ev.TaskID); err == nil {
				metrics.RecordTaskCreated()
				metrics.UpdateTasksActive(d.tracker.ActiveCount())
				d.auditAppend(ctx, audit.Record{
					TaskID:    ev.TaskID,
					Kind:      "task_created",
					Timestamp: time.Now().UTC(),
					Detail:    map[string]any{"seed_type": ev.Type},
				})
			}
		}
		l = newTaskLoop(d, ev.TaskID)
		d.loops[ev.TaskID] = l
		d.wg.Add(1)
		go l.run(ctx)
	}
	d.mu.Unlock()

	l.submit(ctx, ev)
}

func (d *Dispatcher) removeLoop(taskID string) {
	d.mu.Lock()
	delete(d.loops, taskID)
	d.mu.Unlock()
}

func (d *Dispatcher) stopLoops() {
	d.mu.Lock()
	for _, l := range d.loops {
		l.halt()
	}
	d.mu.Unlock()
}

func (d *Dispatcher) isTerminalType(eventType string) bool {
	_, ok := d.terminalTypes[eventType]
	return ok
}

func (d *Dispatcher) isFatalType(eventType string) bool {
	_, ok := d.fatalTypes[eventType]
	return ok
}

// advance moves the task forward to next if the lifecycle allows it.
// Out-of-order calls are no-ops, so processing a second event while already
// awaiting workers costs nothing.
func (d *Dispatcher) advance(ctx context.Context, taskID string, next model.Phase) {
	t, err := d.tracker.Get(taskID)
	if err != nil || t.Phase == next || !t.Phase.CanTransition(next) {
		return
	}
	if err := d.tracker.Transition(taskID, next); err != nil {
		return
	}
	d.announcePhase(ctx, taskID, next, "")
}

// completeTask finishes a task whose pending events drained after a terminal
// result was recorded.
func (d *Dispatcher) completeTask(ctx context.Context, taskID string) {
	if err := d.tracker.Transition(taskID, model.PhaseCompleted); err != nil {
		return
	}
	d.board.MarkTerminal(ctx, taskID)
	metrics.RecordTaskCompleted()
	metrics.UpdateTasksActive(d.tracker.ActiveCount())
	d.announcePhase(ctx, taskID, model.PhaseCompleted, "")
	d.logger.Info(ctx, "task completed", logger.String("taskID", taskID))
}

// failTask moves a task to failed. reason is human readable; cause is the
// coarse classification used for metrics.
func (d *Dispatcher) failTask(ctx context.Context, taskID, reason, cause string) {
	if err := d.tracker.Transition(taskID, model.PhaseFailed); err != nil {
		return
	}
	d.tracker.SetFailure(taskID, reason)
	d.board.MarkTerminal(ctx, taskID)
	metrics.RecordTaskFailed(cause)
	metrics.UpdateTasksActive(d.tracker.ActiveCount())
	d.announcePhase(ctx, taskID, model.PhaseFailed, reason)
	d.logger.Warn(ctx, "task failed",
		logger.String("taskID", taskID),
		logger.String("reason", reason),
	)
}

// announcePhase appends the transition to the audit trail and, for terminal
// phases (or always with a verbose feed), publishes it to live observers.
func (d *Dispatcher) announcePhase(ctx context.Context, taskID string, next model.Phase, reason string) {
	detail := map[string]any{"phase": string(next)}
	if reason != "" {
		detail["reason"] = reason
	}
	d.auditAppend(ctx, audit.Record{
		TaskID:    taskID,
		Kind:      "phase_transition",
		Timestamp: time.Now().UTC(),
		Detail:    detail,
	})

	if d.feed == nil || (!next.Terminal() && !d.verboseFeed) {
		return
	}
	d.feed.Publish(model.Message{
		TaskID:    taskID,
		Kind:      model.KindPhase,
		Payload:   detail,
		Timestamp: time.Now().UTC(),
	})
}

// announceActivity mirrors a worker activity record onto the verbose feed.
func (d *Dispatcher) announceActivity(a model.Activity) {
	if d.feed == nil || !d.verboseFeed {
		return
	}
	d.feed.Publish(model.Message{
		TaskID: a.TaskID,
		Kind:   model.KindActivity,
		Payload: map[string]any{
			"worker": a.WorkerID,
			"status": a.Status,
			"detail": a.Detail,
		},
		Timestamp: a.Timestamp,
	})
}

func (d *Dispatcher) auditAppend(ctx context.Context, rec audit.Record) {
	if d.trail == nil {
		return
	}
	if err := d.trail.Append(ctx, rec); err != nil {
		d.logger.Error(ctx, "audit append failed",
			logger.String("taskID", rec.TaskID),
			logger.Error(err),
		)
	}
}
