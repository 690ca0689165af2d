// Package dedupe tracks submission ids for at-most-once task intake.
//
// Clients retry POSTs; the front door must not seed the same task twice. The
// deduper answers "was this submission already accepted" atomically, with a
// bounded memory footprint: once full, the oldest recorded id is evicted
// first, so a very old retry may be re-accepted while recent ones never are.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Deduper records seen submission ids to ensure at-most-once intake.
type Deduper interface {
	// SeenAndRecord atomically checks whether id was seen and records it
	// if not. Returns true when id was already seen.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets an id so the submission can be retried. Use it when
	// an accepted submission could not be enqueued (backpressure).
	Unrecord(ctx context.Context, id string)

	Size() int64
}

const defaultMaxSize = 50_000

// inMemoryDeduper implements Deduper with a map for membership and a ring of
// ids in record order for FIFO eviction. Unbounded mode (maxSize <= 0) skips
// the ring entirely.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	ring    []string // record order, oldest at tail index
	tail    int      // next eviction slot
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates a deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
	}

	for _, opt := range opts {
		opt(d)
	}

	d.seen = make(map[string]struct{})
	if d.maxSize > 0 {
		d.ring = make([]string, 0, d.maxSize)
	}

	return d
}

// SeenAndRecord atomically checks and records one submission id.
func (d *inMemoryDeduper) SeenAndRecord(ctx context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}

	if d.maxSize > 0 {
		if len(d.ring) < d.maxSize {
			d.ring = append(d.ring, id)
		} else {
			// Full: evict the oldest slot and reuse it.
			evicted := d.ring[d.tail]
			if evicted != "" {
				delete(d.seen, evicted)
				d.size.Add(-1)
			}
			d.ring[d.tail] = id
			d.tail = (d.tail + 1) % d.maxSize
		}
	}

	d.seen[id] = struct{}{}
	d.size.Add(1)
	return false
}

// Unrecord forgets an id. The ring slot is blanked rather than compacted;
// the hole is skipped at eviction time.
func (d *inMemoryDeduper) Unrecord(ctx context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; !ok {
		return
	}
	delete(d.seen, id)
	d.size.Add(-1)

	for i := range d.ring {
		if d.ring[i] == id {
			d.ring[i] = ""
			break
		}
	}
}

// Size returns the current number of recorded ids.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
