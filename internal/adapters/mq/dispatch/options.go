package dispatch

import (
	"time"

	"github.com/okian/slate/internal/adapters/audit"
	"github.com/okian/slate/pkg/logger"
)

// Option applies a configuration option to the Dispatcher.
type Option func(*Dispatcher)

// WithWorkerDeadline bounds a single worker invocation. A worker still
// running at the deadline is treated as failed and its pending board writes
// are revoked.
func WithWorkerDeadline(d time.Duration) Option {
	return func(dp *Dispatcher) {
		if d > 0 {
			dp.workerDeadline = d
		}
	}
}

// WithTaskTimeout bounds a task's total wall-clock time. A task that still
// has unresolved events when it expires moves to failed.
func WithTaskTimeout(d time.Duration) Option {
	return func(dp *Dispatcher) {
		if d > 0 {
			dp.taskTimeout = d
		}
	}
}

// WithMaxRetries sets how many times a failing worker is re-invoked per
// task. Zero disables retries.
func WithMaxRetries(n int) Option {
	return func(dp *Dispatcher) {
		if n >= 0 {
			dp.maxRetries = n
		}
	}
}

// WithLoopBuffer sets the per-task event buffer capacity.
func WithLoopBuffer(n int) Option {
	return func(dp *Dispatcher) {
		if n > 0 {
			dp.loopBuffer = n
		}
	}
}

// WithTerminalTypes declares the event types whose first durable occurrence
// becomes the task's authoritative result.
func WithTerminalTypes(types ...string) Option {
	return func(dp *Dispatcher) {
		for _, t := range types {
			if t != "" {
				dp.terminalTypes[t] = struct{}{}
			}
		}
	}
}

// WithFatalTypes declares the event types that move a task straight to
// failed. The built-in worker failure type stays fatal unless
// WithoutFatalFailures removes it.
func WithFatalTypes(types ...string) Option {
	return func(dp *Dispatcher) {
		for _, t := range types {
			if t != "" {
				dp.fatalTypes[t] = struct{}{}
			}
		}
	}
}

// WithoutFatalFailures keeps tasks alive after a worker exhausts its
// retries; the failure stays visible as a board entry only.
func WithoutFatalFailures() Option {
	return func(dp *Dispatcher) {
		delete(dp.fatalTypes, FailureEventType)
	}
}

// WithFeed publishes live messages to the given observer hub.
func WithFeed(p Publisher) Option {
	return func(dp *Dispatcher) {
		if p != nil {
			dp.feed = p
		}
	}
}

// WithAuditLog appends task creation and phase transitions to the trail.
func WithAuditLog(l audit.Log) Option {
	return func(dp *Dispatcher) {
		if l != nil {
			dp.trail = l
		}
	}
}

// WithVerboseFeed also publishes non-terminal phase transitions and worker
// activity records, not just board writes and terminal phases.
func WithVerboseFeed(verbose bool) Option {
	return func(dp *Dispatcher) {
		dp.verboseFeed = verbose
	}
}

// WithLogger sets a custom logger for the dispatcher.
func WithLogger(log logger.Logger) Option {
	return func(dp *Dispatcher) {
		if log != nil {
			dp.logger = log
		}
	}
}
