// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults; Load() layers file and env.
// - External errors must be wrapped via this package's error helpers.
package config

// Audit backend names accepted in AuditBackend.
const (
	AuditBackendMemory = "memory"
	AuditBackendRedis  = "redis"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// EventQueueSize bounds the in-memory intake queue.
	EventQueueSize int `koanf:"queue_size"`

	// DedupeSize sets the size of the submission deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// ShardCount configures the number of shards in the board store.
	ShardCount int `koanf:"shard_count"`

	// TaskBufferSize bounds the per-task event buffer.
	TaskBufferSize int `koanf:"task_buffer_size"`

	// WorkerDeadlineMS bounds a single worker invocation.
	WorkerDeadlineMS int `koanf:"worker_deadline_ms"`

	// TaskTimeoutMS bounds a task's total wall-clock time.
	TaskTimeoutMS int `koanf:"task_timeout_ms"`

	// MaxRetries is the per-worker retry budget within one task.
	MaxRetries int `koanf:"max_retries"`

	// TerminalEventTypes lists the event types whose first occurrence
	// becomes a task's authoritative result.
	TerminalEventTypes []string `koanf:"terminal_event_types"`

	// FatalEventTypes lists additional event types that fail a task
	// immediately. Exhausted worker failures are always fatal unless
	// TolerateWorkerFailures is set.
	FatalEventTypes []string `koanf:"fatal_event_types"`

	// TolerateWorkerFailures keeps tasks alive after a worker exhausts
	// its retries.
	TolerateWorkerFailures bool `koanf:"tolerate_worker_failures"`

	// BroadcastBuffer sets the per-observer live feed buffer.
	BroadcastBuffer int `koanf:"broadcast_buffer"`

	// VerboseFeed also broadcasts non-terminal phase transitions and
	// worker activity records.
	VerboseFeed bool `koanf:"verbose_feed"`

	// DemoAgents registers the built-in scripted planner/reporter pair at
	// startup so the binary coordinates out of the box. Disable when
	// embedding real workers.
	DemoAgents bool `koanf:"demo_agents"`

	// AuditBackend selects the audit trail store: memory or redis.
	AuditBackend string `koanf:"audit_backend"`

	// RedisAddr, RedisPassword, and RedisDB configure the redis audit
	// backend.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":9080",
		EventQueueSize:     100_000,
		DedupeSize:         500_000,
		ShardCount:         8,
		TaskBufferSize:     1024,
		WorkerDeadlineMS:   5_000,
		TaskTimeoutMS:      60_000,
		MaxRetries:         1,
		TerminalEventTypes: []string{"task.result"},
		BroadcastBuffer:    256,
		DemoAgents:         true,
		AuditBackend:       AuditBackendMemory,
		RedisAddr:          "localhost:6379",
	}
}
