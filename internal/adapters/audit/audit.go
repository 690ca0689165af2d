// Package audit provides the durable, ordered coordination trace.
//
// Every board write and task phase transition is appended to a log keyed by
// task id, sufficient to reconstruct the full coordination history of a
// completed or failed task.
package audit

import (
	"context"
	"sync"
	"time"
)

// Record is one appended trace entry.
type Record struct {
	TaskID    string         `json:"task_id"`
	Kind      string         `json:"kind"`
	Timestamp time.Time      `json:"timestamp"`
	Detail    map[string]any `json:"detail"`
}

// Log appends and replays per-task trace records in append order.
type Log interface {
	// Append adds a record to the task's trace.
	Append(ctx context.Context, rec Record) error

	// Replay returns the full trace for a task in append order.
	Replay(ctx context.Context, taskID string) ([]Record, error)

	// Close releases backend resources.
	Close() error
}

// MemoryLog implements Log in process memory. It is the default backend and
// the reference for ordering semantics.
type MemoryLog struct {
	mu     sync.RWMutex
	traces map[string][]Record
}

// NewMemoryLog creates an empty in-memory log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{traces: make(map[string][]Record)}
}

// Append adds a record to the task's trace.
func (l *MemoryLog) Append(ctx context.Context, rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.traces[rec.TaskID] = append(l.traces[rec.TaskID], rec)
	return nil
}

// Replay returns the full trace for a task in append order.
func (l *MemoryLog) Replay(ctx context.Context, taskID string) ([]Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	trace, ok := l.traces[taskID]
	if !ok {
		return nil, ErrNoTrace
	}
	out := make([]Record, len(trace))
	copy(out, trace)
	return out, nil
}

// Close is a no-op for the memory backend.
func (l *MemoryLog) Close() error { return nil }
