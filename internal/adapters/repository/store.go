// Package repository defines the board store interface and errors.
package repository

import (
	"context"
	"time"

	"github.com/okian/slate/internal/domain/model"
)

// Entry is one immutable version of a board fact.
type Entry struct {
	TaskID    string
	Key       string
	Value     any
	Writer    string // worker id or "dispatcher"
	Version   uint64 // strictly increasing per (task, key)
	Timestamp time.Time
}

// WriteMeta attributes a write to its originating invocation so that late
// results from a cancelled invocation can be rejected.
type WriteMeta struct {
	Writer       string
	InvocationID string
}

// Board provides versioned read/write access to task-scoped facts. Writes are
// append-only: a new version per write, never an in-place overwrite.
type Board interface {
	// Write appends a new version for (taskID, key) and returns it.
	// Fails with ErrStaleTaskWrite once the task is terminal and with
	// ErrRevokedWriter when meta carries a cancelled invocation id.
	Write(ctx context.Context, taskID, key string, value any, meta WriteMeta) (uint64, error)

	// Read returns the latest version for (taskID, key).
	// Returns ErrNotFound if no version exists.
	Read(ctx context.Context, taskID, key string) (Entry, error)

	// History returns every version for (taskID, key) in write order.
	History(ctx context.Context, taskID, key string) ([]Entry, error)

	// TaskHistory returns every entry of the task across all keys in write order.
	TaskHistory(ctx context.Context, taskID string) ([]Entry, error)

	// Snapshot returns a consistent copy of the latest value per key.
	// The returned map is detached from the store.
	Snapshot(ctx context.Context, taskID string) model.Snapshot

	// MarkTerminal stops accepting writes for taskID.
	MarkTerminal(ctx context.Context, taskID string)

	// RevokeInvocation rejects any future write tagged with invocationID.
	RevokeInvocation(ctx context.Context, taskID, invocationID string)

	// Count returns the total number of entry versions held.
	Count(ctx context.Context) int
}
