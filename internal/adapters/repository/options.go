// Package repository defines the board store interface and errors.
package repository

import (
	"github.com/okian/slate/internal/adapters/audit"
	"github.com/okian/slate/internal/domain/model"
)

// Option applies a configuration option to the MemBoard.
type Option func(*MemBoard)

// WithShardCount sets the number of task shards.
func WithShardCount(count int) Option {
	return func(b *MemBoard) {
		if count > 0 {
			b.shardCount = count
		}
	}
}

// WithAuditLog durably appends every write to the given audit log.
func WithAuditLog(log audit.Log) Option {
	return func(b *MemBoard) {
		b.auditLog = log
	}
}

// WithNotifier forwards every write to the given sink, in mutation order
// per task. Used to feed the broadcast hub.
func WithNotifier(notify func(model.Message)) Option {
	return func(b *MemBoard) {
		if notify != nil {
			b.notify = notify
		}
	}
}
