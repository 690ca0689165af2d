package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/okian/slate/pkg/logger"
)

const defaultKeyPrefix = "slate:audit:"

// RedisLog implements Log on a Redis list per task. RPUSH preserves append
// order, so Replay returns the trace exactly as it was written.
type RedisLog struct {
	client    *redis.Client
	options   *redis.Options
	keyPrefix string
	log       logger.Logger
}

// NewRedisLog returns a Redis-backed audit log.
func NewRedisLog(opts *redis.Options, log logger.Logger) *RedisLog {
	if log == nil {
		log = logger.Get().Named("audit")
	}
	return &RedisLog{
		client:    redis.NewClient(opts),
		options:   opts,
		keyPrefix: defaultKeyPrefix,
		log:       log,
	}
}

// ensureConnection pings Redis and reconnects if needed.
func (l *RedisLog) ensureConnection(ctx context.Context) {
	if err := l.client.Ping(ctx).Err(); err != nil {
		l.log.Warn(ctx, "audit log reconnecting to redis", logger.Error(err))
		l.client = redis.NewClient(l.options)
	}
}

// Append adds a record to the task's trace.
func (l *RedisLog) Append(ctx context.Context, rec Record) error {
	l.ensureConnection(ctx)
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}
	if err := l.client.RPush(ctx, l.keyPrefix+rec.TaskID, data).Err(); err != nil {
		return fmt.Errorf("append audit record: %w", err)
	}
	return nil
}

// Replay returns the full trace for a task in append order.
func (l *RedisLog) Replay(ctx context.Context, taskID string) ([]Record, error) {
	l.ensureConnection(ctx)
	raw, err := l.client.LRange(ctx, l.keyPrefix+taskID, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("replay audit trace: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrNoTrace
	}
	out := make([]Record, 0, len(raw))
	for _, item := range raw {
		var rec Record
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("decode audit record: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Close closes the Redis connection.
func (l *RedisLog) Close() error {
	return l.client.Close()
}
