// Package agents provides scripted workers for demos, simulations, and
// load exercises. A scripted worker reacts to event types from a fixed
// table and may simulate processing latency to model a real agent calling
// out to an external service.
package agents

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/okian/slate/internal/domain/model"
)

// Default scripted agent configuration constants.
const (
	defaultMinLatency = 10 * time.Millisecond
	defaultMaxLatency = 50 * time.Millisecond
	defaultRandomSeed = 42
)

// Reaction describes how a scripted agent answers one event type.
type Reaction struct {
	// EmitType is the follow-up event type to post. Empty means the agent
	// acknowledges the event without contributing.
	EmitType string
	// Payload is attached to the emitted event. It is copied per emission
	// so concurrent tasks never share a map.
	Payload map[string]any
	// FailWith, when non-empty, makes the agent report a failure with this
	// reason instead of emitting.
	FailWith string
}

// Scripted implements model.Worker from a reaction table.
type Scripted struct {
	id     string
	script map[string]Reaction

	// Simulated latency range
	minLatency time.Duration
	maxLatency time.Duration

	// failEvery makes every Nth invocation fail, for exercising the retry
	// and escalation paths. Zero disables it.
	failEvery int

	mu    sync.Mutex
	rng   *rand.Rand
	calls int
}

// Option applies a configuration option to the Scripted agent.
type Option func(*Scripted)

// WithReaction adds one event-type reaction to the script.
func WithReaction(eventType string, r Reaction) Option {
	return func(s *Scripted) {
		if eventType != "" {
			s.script[eventType] = r
		}
	}
}

// WithScript replaces the whole reaction table.
func WithScript(script map[string]Reaction) Option {
	return func(s *Scripted) {
		s.script = make(map[string]Reaction, len(script))
		for t, r := range script {
			s.script[t] = r
		}
	}
}

// WithLatencyRange sets the simulated processing latency range.
func WithLatencyRange(minLatency, maxLatency time.Duration) Option {
	return func(s *Scripted) {
		if minLatency > 0 && maxLatency > minLatency {
			s.minLatency = minLatency
			s.maxLatency = maxLatency
		}
	}
}

// WithoutLatency disables latency simulation, for deterministic tests.
func WithoutLatency() Option {
	return func(s *Scripted) {
		s.minLatency = 0
		s.maxLatency = 0
	}
}

// WithFailEvery makes every nth invocation fail regardless of script.
func WithFailEvery(n int) Option {
	return func(s *Scripted) {
		if n > 0 {
			s.failEvery = n
		}
	}
}

// WithSeed fixes the latency rng seed.
func WithSeed(seed int64) Option {
	return func(s *Scripted) {
		s.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // deterministic seed for reproducible simulation
	}
}

// New creates a scripted agent with configuration options.
func New(id string, opts ...Option) *Scripted {
	s := &Scripted{
		id:         id,
		script:     make(map[string]Reaction),
		minLatency: defaultMinLatency,
		maxLatency: defaultMaxLatency,
		rng:        rand.New(rand.NewSource(defaultRandomSeed)), //nolint:gosec // deterministic seed for reproducible simulation
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// ID returns the agent identifier.
func (s *Scripted) ID() string { return s.id }

// Handle reacts to one event according to the script.
func (s *Scripted) Handle(ctx context.Context, ev model.Event, snapshot model.Snapshot) model.Outcome {
	if err := s.simulateLatency(ctx); err != nil {
		return model.Fail(err.Error())
	}

	if s.failEvery > 0 {
		if n := s.nextCall(); n%s.failEvery == 0 {
			return model.Fail(fmt.Sprintf("scripted failure on call %d", n))
		}
	}

	r, ok := s.script[ev.Type]
	if !ok {
		return model.NoOp()
	}
	if r.FailWith != "" {
		return model.Fail(r.FailWith)
	}
	if r.EmitType == "" {
		return model.NoOp()
	}

	payload := make(map[string]any, len(r.Payload)+1)
	for k, v := range r.Payload {
		payload[k] = v
	}
	payload["produced_by"] = s.id

	return model.Emit(ev.Child(r.EmitType, s.id, payload))
}

// simulateLatency sleeps a randomized duration, honoring ctx.
func (s *Scripted) simulateLatency(ctx context.Context) error {
	if s.maxLatency == 0 {
		return nil
	}
	s.mu.Lock()
	latency := s.minLatency + time.Duration(s.rng.Int63n(int64(s.maxLatency-s.minLatency)))
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	case <-time.After(latency):
		return nil
	}
}

func (s *Scripted) nextCall() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.calls
}
