package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/slate/internal/domain/model"
)

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	event1 := model.NewEvent("t1", "request", model.OriginExternal, nil)
	if !q.Enqueue(ctx, event1) {
		t.Error("expected enqueue to succeed")
	}

	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	eventChan := q.Dequeue(ctx)
	event := <-eventChan
	if event.ID != event1.ID {
		t.Errorf("expected %s, got %s", event1.ID, event.ID)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if !q.Enqueue(ctx, model.NewEvent("t1", fmt.Sprintf("e%d", i), model.OriginExternal, nil)) {
			t.Error("expected enqueue to succeed")
		}
	}

	// Queue full: the third enqueue must be rejected, not block.
	if q.Enqueue(ctx, model.NewEvent("t1", "e2", model.OriginExternal, nil)) {
		t.Error("expected enqueue to fail when full")
	}

	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_OrderPreserved(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(16))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if !q.Enqueue(ctx, model.NewEvent("t1", fmt.Sprintf("e%d", i), model.OriginExternal, nil)) {
			t.Fatal("enqueue failed")
		}
	}

	eventChan := q.Dequeue(ctx)
	for i := 0; i < 5; i++ {
		select {
		case e := <-eventChan:
			if want := fmt.Sprintf("e%d", i); e.Type != want {
				t.Errorf("expected %s, got %s", want, e.Type)
			}
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for event")
		}
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1000))
	ctx := context.Background()

	var wg sync.WaitGroup
	for p := 0; p < 10; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				q.Enqueue(ctx, model.NewEvent(fmt.Sprintf("t%d", p), "request", model.OriginExternal, nil))
			}
		}(p)
	}
	wg.Wait()

	if l := q.Len(ctx); l != 500 {
		t.Errorf("expected 500 queued events, got %d", l)
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, model.NewEvent("t1", "request", model.OriginExternal, nil)) {
		t.Fatal("enqueue failed")
	}

	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed")
	}

	// Closing twice is fine.
	if err := q.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	// Enqueue after close is rejected.
	if q.Enqueue(ctx, model.NewEvent("t1", "request", model.OriginExternal, nil)) {
		t.Error("expected enqueue to fail after close")
	}

	// Buffered events drain, then the channel closes.
	eventChan := q.Dequeue(ctx)
	if _, ok := <-eventChan; !ok {
		t.Error("expected buffered event before close")
	}
	if _, ok := <-eventChan; ok {
		t.Error("expected closed channel after drain")
	}
}
