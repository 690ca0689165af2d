// Package registry maps event types to the workers subscribed to them.
//
// The routing table is read-mostly: Resolve is safe for concurrent use from
// many dispatch goroutines, while Subscribe and Unsubscribe take the write
// lock and are expected to be rare (startup plus occasional hot-adds).
package registry

import (
	"sort"
	"sync"

	"github.com/okian/slate/internal/domain/model"
)

// subscription is one worker's interest in an event type.
type subscription struct {
	worker   model.Worker
	priority int
	order    int // registration order, stable tie-break
}

// Registry is the routing table from event type to subscribed workers.
type Registry struct {
	mu      sync.RWMutex
	byType  map[string][]subscription
	nextOrd int
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{byType: make(map[string][]subscription)}
}

// Subscribe registers worker for eventType at the given priority. Higher
// priority resolves earlier. Re-subscribing the same worker id to the same
// type updates its priority instead of duplicating the entry.
func (r *Registry) Subscribe(eventType string, worker model.Worker, priority int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs := r.byType[eventType]
	for i := range subs {
		if subs[i].worker.ID() == worker.ID() {
			subs[i].priority = priority
			subs[i].worker = worker
			return
		}
	}
	r.byType[eventType] = append(subs, subscription{
		worker:   worker,
		priority: priority,
		order:    r.nextOrd,
	})
	r.nextOrd++
}

// Unsubscribe removes the worker's interest in eventType. Removing an
// unknown subscription is a no-op; deletion exists for graceful worker
// shutdown, not correctness.
func (r *Registry) Unsubscribe(eventType, workerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs := r.byType[eventType]
	for i := range subs {
		if subs[i].worker.ID() == workerID {
			r.byType[eventType] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// Resolve returns the workers subscribed to eventType, ordered by priority
// (highest first) then registration order. An empty result is valid and
// means the event is inert, not an error.
func (r *Registry) Resolve(eventType string) []model.Worker {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := r.byType[eventType]
	if len(subs) == 0 {
		return nil
	}
	ordered := make([]subscription, len(subs))
	copy(ordered, subs)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].priority != ordered[j].priority {
			return ordered[i].priority > ordered[j].priority
		}
		return ordered[i].order < ordered[j].order
	})

	workers := make([]model.Worker, len(ordered))
	for i, sub := range ordered {
		workers[i] = sub.worker
	}
	return workers
}

// EventTypes returns every event type with at least one subscriber.
func (r *Registry) EventTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.byType))
	for eventType, subs := range r.byType {
		if len(subs) > 0 {
			types = append(types, eventType)
		}
	}
	sort.Strings(types)
	return types
}

// Workers returns the distinct ids of every subscribed worker.
func (r *Registry) Workers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	var ids []string
	for _, subs := range r.byType {
		for _, sub := range subs {
			if _, ok := seen[sub.worker.ID()]; !ok {
				seen[sub.worker.ID()] = struct{}{}
				ids = append(ids, sub.worker.ID())
			}
		}
	}
	sort.Strings(ids)
	return ids
}
