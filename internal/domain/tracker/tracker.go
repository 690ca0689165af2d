// Package tracker maintains the authoritative lifecycle state of each task.
//
// Phases advance monotonically (pending -> dispatching -> awaiting_workers ->
// completed) with failed reachable from any non-terminal phase. The tracker
// is bookkeeping only: it validates transitions and answers status queries,
// it never drives scheduling itself.
package tracker

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/slate/internal/domain/model"
)

// Tracker holds every known task and its activity records.
type Tracker struct {
	mu         sync.RWMutex
	tasks      map[string]*model.Task
	activities map[string][]model.Activity
}

// New creates an empty tracker.
func New() *Tracker {
	return &Tracker{
		tasks:      make(map[string]*model.Task),
		activities: make(map[string][]model.Activity),
	}
}

// Create registers a new task in the pending phase.
// Fails with ErrTaskExists if the id is already known.
func (t *Tracker) Create(taskID string) (model.Task, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.tasks[taskID]; ok {
		return model.Task{}, fmt.Errorf("task %s: %w", taskID, ErrTaskExists)
	}
	task := &model.Task{
		ID:        taskID,
		Phase:     model.PhasePending,
		CreatedAt: time.Now().UTC(),
	}
	t.tasks[taskID] = task
	return *task, nil
}

// Transition moves the task to a new phase.
// Fails with ErrInvalidTransition when the move violates monotonic ordering.
func (t *Tracker) Transition(taskID string, next model.Phase) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	task, ok := t.tasks[taskID]
	if !ok {
		return fmt.Errorf("task %s: %w", taskID, ErrUnknownTask)
	}
	if !task.Phase.CanTransition(next) {
		return fmt.Errorf("task %s: %s -> %s: %w", taskID, task.Phase, next, ErrInvalidTransition)
	}
	task.Phase = next
	return nil
}

// Get returns a copy of the task's current state.
func (t *Tracker) Get(taskID string) (model.Task, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	task, ok := t.tasks[taskID]
	if !ok {
		return model.Task{}, fmt.Errorf("task %s: %w", taskID, ErrUnknownTask)
	}
	out := *task
	out.Workers = append([]string(nil), task.Workers...)
	return out, nil
}

// AddWorker records workerID as a participant of the task. Idempotent.
func (t *Tracker) AddWorker(taskID, workerID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	task, ok := t.tasks[taskID]
	if !ok {
		return
	}
	for _, id := range task.Workers {
		if id == workerID {
			return
		}
	}
	task.Workers = append(task.Workers, workerID)
}

// AdjustPending adds delta to the task's pending-event counter and returns
// the new value. The counter covers enqueued plus in-flight events.
func (t *Tracker) AdjustPending(taskID string, delta int) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	task, ok := t.tasks[taskID]
	if !ok {
		return 0
	}
	task.PendingEvents += delta
	if task.PendingEvents < 0 {
		task.PendingEvents = 0
	}
	return task.PendingEvents
}

// SetResult records the authoritative terminal payload for the task.
func (t *Tracker) SetResult(taskID string, result map[string]any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if task, ok := t.tasks[taskID]; ok {
		task.TerminalResult = result
	}
}

// SetFailure records the reason the task failed.
func (t *Tracker) SetFailure(taskID, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if task, ok := t.tasks[taskID]; ok {
		task.FailureReason = reason
	}
}

// RecordActivity appends a worker activity record. Append-only and
// observability-only: nothing reads these for control decisions.
func (t *Tracker) RecordActivity(taskID, workerID, status, detail string) model.Activity {
	act := model.Activity{
		TaskID:    taskID,
		WorkerID:  workerID,
		Status:    status,
		Detail:    detail,
		Timestamp: time.Now().UTC(),
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.activities[taskID] = append(t.activities[taskID], act)
	return act
}

// Activities returns the task's activity records in append order.
func (t *Tracker) Activities(taskID string) []model.Activity {
	t.mu.RLock()
	defer t.mu.RUnlock()

	acts := t.activities[taskID]
	out := make([]model.Activity, len(acts))
	copy(out, acts)
	return out
}

// ActiveCount returns the number of tasks in a non-terminal phase.
func (t *Tracker) ActiveCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	count := 0
	for _, task := range t.tasks {
		if !task.Phase.Terminal() {
			count++
		}
	}
	return count
}

// List returns a copy of every known task, most recent first.
func (t *Tracker) List() []model.Task {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]model.Task, 0, len(t.tasks))
	for _, task := range t.tasks {
		cp := *task
		cp.Workers = append([]string(nil), task.Workers...)
		out = append(out, cp)
	}
	// Newest first keeps the sessions listing readable.
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
