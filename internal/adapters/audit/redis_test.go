package audit

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/okian/slate/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestRedisAppendReplay(t *testing.T) {
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer s.Close()

	log := NewRedisLog(&redis.Options{Addr: s.Addr()}, nil)
	defer log.Close()
	ctx := context.Background()

	records := []Record{
		{TaskID: "t1", Kind: "board_write", Detail: map[string]any{"key": "plan", "version": float64(1)}},
		{TaskID: "t1", Kind: "phase", Detail: map[string]any{"phase": "completed"}},
	}
	for _, rec := range records {
		if err := log.Append(ctx, rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	trace, err := log.Replay(ctx, "t1")
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if len(trace) != 2 {
		t.Fatalf("expected 2 records, got %d", len(trace))
	}
	if trace[0].Kind != "board_write" || trace[1].Kind != "phase" {
		t.Fatalf("unexpected replay order: %v", trace)
	}
	if trace[0].Detail["key"] != "plan" {
		t.Fatalf("unexpected detail: %v", trace[0].Detail)
	}
}

func TestRedisReplayMissing(t *testing.T) {
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer s.Close()

	log := NewRedisLog(&redis.Options{Addr: s.Addr()}, nil)
	defer log.Close()

	if _, err := log.Replay(context.Background(), "missing"); err != ErrNoTrace {
		t.Fatalf("expected ErrNoTrace, got %v", err)
	}
}
