package repository

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/slate/internal/adapters/audit"
	"github.com/okian/slate/internal/domain/model"
	"github.com/okian/slate/pkg/metrics"
)

// In-memory, sharded Board implementation.
//
// Sharding is by task id, so all facts of one task live in one shard and a
// single shard mutex serializes that task's mutations. This preserves the
// per-(task, key) version ordering invariant without a global lock.

const defaultShardCount = 8

// taskState holds every version written for one task.
type taskState struct {
	entries  map[string][]Entry // key -> versions in write order
	log      []Entry            // all entries in task-wide write order
	terminal bool
	revoked  map[string]struct{} // cancelled invocation ids
}

type shard struct {
	mu    sync.RWMutex
	tasks map[string]*taskState
}

// MemBoard implements Board with sharded in-memory state.
type MemBoard struct {
	shards     []*shard
	shardCount int
	count      atomic.Int64

	auditLog audit.Log
	notify   func(model.Message)
}

// NewMemBoard creates an in-memory board with configuration options.
func NewMemBoard(ctx context.Context, opts ...Option) *MemBoard {
	b := &MemBoard{
		shardCount: defaultShardCount,
	}

	for _, opt := range opts {
		opt(b)
	}

	b.shards = make([]*shard, b.shardCount)
	for i := range b.shards {
		b.shards[i] = &shard{tasks: make(map[string]*taskState)}
	}

	return b
}

func (b *MemBoard) shardFor(taskID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(taskID))
	return b.shards[h.Sum32()%uint32(b.shardCount)]
}

func (s *shard) task(taskID string) *taskState {
	ts, ok := s.tasks[taskID]
	if !ok {
		ts = &taskState{
			entries: make(map[string][]Entry),
			revoked: make(map[string]struct{}),
		}
		s.tasks[taskID] = ts
	}
	return ts
}

// Write appends a new version for (taskID, key).
func (b *MemBoard) Write(ctx context.Context, taskID, key string, value any, meta WriteMeta) (uint64, error) {
	s := b.shardFor(taskID)
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.task(taskID)
	if ts.terminal {
		metrics.RecordBoardStaleWrite()
		return 0, ErrStaleTaskWrite
	}
	if meta.InvocationID != "" {
		if _, revoked := ts.revoked[meta.InvocationID]; revoked {
			metrics.RecordBoardRevokedWrite()
			return 0, ErrRevokedWriter
		}
	}

	entry := Entry{
		TaskID:    taskID,
		Key:       key,
		Value:     value,
		Writer:    meta.Writer,
		Version:   uint64(len(ts.entries[key]) + 1),
		Timestamp: time.Now().UTC(),
	}
	ts.entries[key] = append(ts.entries[key], entry)
	ts.log = append(ts.log, entry)

	total := b.count.Add(1)
	metrics.RecordBoardWrite()
	metrics.UpdateBoardEntries(int(total))

	// Audit and broadcast happen under the shard lock so that delivery
	// order within a task matches mutation order.
	if b.auditLog != nil {
		_ = b.auditLog.Append(ctx, audit.Record{
			TaskID:    taskID,
			Kind:      string(model.KindBoardWrite),
			Timestamp: entry.Timestamp,
			Detail: map[string]any{
				"key":     key,
				"value":   value,
				"writer":  meta.Writer,
				"version": entry.Version,
			},
		})
	}
	if b.notify != nil {
		b.notify(model.Message{
			TaskID:    taskID,
			Kind:      model.KindBoardWrite,
			Timestamp: entry.Timestamp,
			Payload: map[string]any{
				"key":     key,
				"value":   value,
				"writer":  meta.Writer,
				"version": entry.Version,
			},
		})
	}

	return entry.Version, nil
}

// Read returns the latest version for (taskID, key).
func (b *MemBoard) Read(ctx context.Context, taskID, key string) (Entry, error) {
	s := b.shardFor(taskID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	metrics.RecordBoardRead()
	ts, ok := s.tasks[taskID]
	if !ok {
		return Entry{}, ErrNotFound
	}
	versions := ts.entries[key]
	if len(versions) == 0 {
		return Entry{}, ErrNotFound
	}
	return versions[len(versions)-1], nil
}

// History returns every version for (taskID, key) in write order.
func (b *MemBoard) History(ctx context.Context, taskID, key string) ([]Entry, error) {
	s := b.shardFor(taskID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	metrics.RecordBoardRead()
	ts, ok := s.tasks[taskID]
	if !ok {
		return nil, ErrNotFound
	}
	versions := ts.entries[key]
	if len(versions) == 0 {
		return nil, ErrNotFound
	}
	out := make([]Entry, len(versions))
	copy(out, versions)
	return out, nil
}

// TaskHistory returns every entry of the task in task-wide write order.
func (b *MemBoard) TaskHistory(ctx context.Context, taskID string) ([]Entry, error) {
	s := b.shardFor(taskID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	metrics.RecordBoardRead()
	ts, ok := s.tasks[taskID]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]Entry, len(ts.log))
	copy(out, ts.log)
	return out, nil
}

// Snapshot returns a detached copy of the latest value per key.
func (b *MemBoard) Snapshot(ctx context.Context, taskID string) model.Snapshot {
	s := b.shardFor(taskID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	metrics.RecordBoardRead()
	snap := make(model.Snapshot)
	ts, ok := s.tasks[taskID]
	if !ok {
		return snap
	}
	for key, versions := range ts.entries {
		snap[key] = versions[len(versions)-1].Value
	}
	return snap
}

// MarkTerminal stops accepting writes for taskID.
func (b *MemBoard) MarkTerminal(ctx context.Context, taskID string) {
	s := b.shardFor(taskID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.task(taskID).terminal = true
}

// RevokeInvocation rejects any future write tagged with invocationID.
func (b *MemBoard) RevokeInvocation(ctx context.Context, taskID, invocationID string) {
	if invocationID == "" {
		return
	}
	s := b.shardFor(taskID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.task(taskID).revoked[invocationID] = struct{}{}
}

// Count returns the total number of entry versions held.
func (b *MemBoard) Count(ctx context.Context) int {
	return int(b.count.Load())
}
