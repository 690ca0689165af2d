package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if SLATE_CONFIG is set
//  3. env (prefix SLATE_)
func Load(ctx context.Context) (*Config, error) {
	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("SLATE_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	// Environment variables: SLATE_ADDR, SLATE_QUEUE_SIZE, ...
	// Map env keys like SLATE_QUEUE_SIZE -> queue_size (flat keys)
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("SLATE_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "slate_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate rejects configurations the service cannot run with.
func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.EventQueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.ShardCount <= 0:
		return fmt.Errorf("%w: shard_count must be positive", ErrInvalidConfig)
	case c.WorkerDeadlineMS <= 0:
		return fmt.Errorf("%w: worker_deadline_ms must be positive", ErrInvalidConfig)
	case c.TaskTimeoutMS < c.WorkerDeadlineMS:
		return fmt.Errorf("%w: task_timeout_ms must cover at least one invocation deadline", ErrInvalidConfig)
	case c.MaxRetries < 0:
		return fmt.Errorf("%w: max_retries must not be negative", ErrInvalidConfig)
	case len(c.TerminalEventTypes) == 0:
		return fmt.Errorf("%w: at least one terminal event type is required", ErrInvalidConfig)
	}

	if c.AuditBackend != AuditBackendMemory && c.AuditBackend != AuditBackendRedis {
		return fmt.Errorf("%w: unknown audit_backend %q", ErrInvalidConfig, c.AuditBackend)
	}
	if c.AuditBackend == AuditBackendRedis && c.RedisAddr == "" {
		return fmt.Errorf("%w: redis_addr is required for the redis audit backend", ErrInvalidConfig)
	}
	return nil
}
