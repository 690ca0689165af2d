// Package broadcast fans coordination activity out to live observers.
//
// Publish never blocks the caller: each observer has a bounded buffer and a
// full buffer drops the oldest message first. A slow or disconnected observer
// therefore costs the dispatcher nothing beyond a channel send attempt.
package broadcast

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/slate/internal/domain/model"
	"github.com/okian/slate/pkg/logger"
	"github.com/okian/slate/pkg/metrics"
)

const defaultObserverBuffer = 256

// Observer is one live subscription to the broadcast feed. The feed starts
// at subscription time; there is no history replay (observers wanting the
// past use the board's history operations).
type Observer struct {
	id     string
	ch     chan model.Message
	hub    *Hub
	closed sync.Once
}

// ID returns the observer identifier.
func (o *Observer) ID() string { return o.id }

// C returns the observer's message channel. It is closed when the observer
// or the hub shuts down.
func (o *Observer) C() <-chan model.Message { return o.ch }

// Close detaches the observer from the hub.
func (o *Observer) Close() {
	o.hub.remove(o)
}

// Hub is the broadcast channel: zero or more observers, one publisher side.
type Hub struct {
	mu        sync.RWMutex
	observers map[string]*Observer
	buffer    int
	closed    bool

	log logger.Logger
}

// New creates a hub with configuration options.
func New(opts ...Option) *Hub {
	h := &Hub{
		observers: make(map[string]*Observer),
		buffer:    defaultObserverBuffer,
		log:       logger.Get().Named("broadcast"),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Subscribe attaches a new observer to the live feed.
func (h *Hub) Subscribe() *Observer {
	h.mu.Lock()
	defer h.mu.Unlock()

	o := &Observer{
		id:  uuid.NewString(),
		ch:  make(chan model.Message, h.buffer),
		hub: h,
	}
	if h.closed {
		close(o.ch)
		return o
	}
	h.observers[o.id] = o
	metrics.UpdateBroadcastObservers(len(h.observers))
	return o
}

// Publish delivers msg to every observer without blocking. Observers whose
// buffers are full lose their oldest message first.
func (h *Hub) Publish(msg model.Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}
	metrics.RecordBroadcastPublished()
	for _, o := range h.observers {
		select {
		case o.ch <- msg:
		default:
			// Buffer full: drop the oldest message, then retry once.
			select {
			case <-o.ch:
				metrics.RecordBroadcastDropped()
			default:
			}
			select {
			case o.ch <- msg:
			default:
				metrics.RecordBroadcastDropped()
			}
		}
	}
}

// ObserverCount returns the number of attached observers.
func (h *Hub) ObserverCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.observers)
}

// Close detaches every observer and stops the hub.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, o := range h.observers {
		o.closed.Do(func() { close(o.ch) })
		delete(h.observers, id)
	}
	metrics.UpdateBroadcastObservers(0)
	h.log.Debug(context.Background(), "broadcast hub closed")
}

func (h *Hub) remove(o *Observer) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.observers[o.id]; !ok {
		return
	}
	delete(h.observers, o.id)
	o.closed.Do(func() { close(o.ch) })
	metrics.UpdateBroadcastObservers(len(h.observers))
}
