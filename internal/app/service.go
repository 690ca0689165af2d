// Package service wires the coordination substrate together and implements
// the dependencies required by the HTTP API: task submission, status and
// history queries, live observation, and worker registration.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/okian/slate/internal/adapters/audit"
	"github.com/okian/slate/internal/adapters/broadcast"
	"github.com/okian/slate/internal/adapters/mq/dispatch"
	eventqueue "github.com/okian/slate/internal/adapters/mq/queue"
	"github.com/okian/slate/internal/adapters/repository"
	"github.com/okian/slate/internal/config"
	"github.com/okian/slate/internal/domain/dedupe"
	"github.com/okian/slate/internal/domain/model"
	"github.com/okian/slate/internal/domain/registry"
	"github.com/okian/slate/internal/domain/tracker"
	"github.com/okian/slate/internal/domain/types"
	"github.com/okian/slate/pkg/logger"
	"github.com/okian/slate/pkg/metrics"
)

const shutdownTimeout = 30 * time.Second

// Service implements the API dependencies for the coordination system.
type Service struct {
	mu sync.RWMutex

	// Core components
	board      *repository.MemBoard
	trail      audit.Log
	registry   *registry.Registry
	tracker    *tracker.Tracker
	deduper    dedupe.Deduper
	eventQueue *eventqueue.InMemoryQueue
	hub        *broadcast.Hub
	dispatcher *dispatch.Dispatcher

	// Configuration
	cfg *config.Config

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig sets the full service configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		cfg: config.New(),
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting coordination service...")

	trail, err := s.newAuditLog(ctx)
	if err != nil {
		return err
	}
	s.trail = trail

	s.hub = broadcast.New(
		broadcast.WithObserverBuffer(s.cfg.BroadcastBuffer),
	)
	s.board = repository.NewMemBoard(ctx,
		repository.WithShardCount(s.cfg.ShardCount),
		repository.WithAuditLog(s.trail),
		repository.WithNotifier(s.hub.Publish),
	)
	s.registry = registry.New()
	s.tracker = tracker.New()
	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.cfg.DedupeSize),
	)
	s.eventQueue = eventqueue.NewInMemoryQueue(
		eventqueue.WithCapacity(s.cfg.EventQueueSize),
	)

	dispatchOpts := []dispatch.Option{
		dispatch.WithWorkerDeadline(time.Duration(s.cfg.WorkerDeadlineMS) * time.Millisecond),
		dispatch.WithTaskTimeout(time.Duration(s.cfg.TaskTimeoutMS) * time.Millisecond),
		dispatch.WithMaxRetries(s.cfg.MaxRetries),
		dispatch.WithLoopBuffer(s.cfg.TaskBufferSize),
		dispatch.WithTerminalTypes(s.cfg.TerminalEventTypes...),
		dispatch.WithFatalTypes(s.cfg.FatalEventTypes...),
		dispatch.WithFeed(s.hub),
		dispatch.WithAuditLog(s.trail),
		dispatch.WithVerboseFeed(s.cfg.VerboseFeed),
	}
	if s.cfg.TolerateWorkerFailures {
		dispatchOpts = append(dispatchOpts, dispatch.WithoutFatalFailures())
	}
	s.dispatcher = dispatch.New(s.eventQueue, s.board, s.registry, s.tracker, dispatchOpts...)
	go s.dispatcher.Run(ctx)

	s.started = true
	s.logger.Info(ctx, "coordination service started",
		logger.Int("queueSize", s.cfg.EventQueueSize),
		logger.Int("shardCount", s.cfg.ShardCount),
		logger.String("auditBackend", s.cfg.AuditBackend),
	)

	return nil
}

// newAuditLog builds the configured audit backend.
func (s *Service) newAuditLog(ctx context.Context) (audit.Log, error) {
	switch s.cfg.AuditBackend {
	case config.AuditBackendRedis:
		return audit.NewRedisLog(&redis.Options{
			Addr:     s.cfg.RedisAddr,
			Password: s.cfg.RedisPassword,
			DB:       s.cfg.RedisDB,
		}, s.logger.Named("audit")), nil
	default:
		return audit.NewMemoryLog(), nil
	}
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping coordination service...")

	_ = s.eventQueue.Close()
	if err := s.dispatcher.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "dispatcher shutdown incomplete", logger.Error(err))
	}
	s.hub.Close()
	if err := s.trail.Close(); err != nil {
		s.logger.Warn(ctx, "audit log close failed", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "coordination service stopped")
}

// RegisterWorker subscribes a worker to an event type with a priority.
// Higher priority workers are invoked first within a fan-out.
func (s *Service) RegisterWorker(eventType string, w model.Worker, priority int) {
	s.registry.Subscribe(eventType, w, priority)
}

// UnregisterWorker removes a worker's subscription to an event type.
func (s *Service) UnregisterWorker(eventType, workerID string) {
	s.registry.Unsubscribe(eventType, workerID)
}

// Submit accepts one external work submission: it deduplicates on the
// submission id, seeds the task's event, and acknowledges before any
// processing happens.
func (s *Service) Submit(ctx context.Context, req types.Submission) (types.SubmissionAck, error) {
	if req.EventType == "" {
		return types.SubmissionAck{}, ErrMissingEventType
	}

	taskID := req.TaskID
	if taskID == "" {
		taskID = uuid.NewString()
	}

	if req.SubmissionID != "" && s.deduper.SeenAndRecord(ctx, req.SubmissionID) {
		metrics.RecordSubmission("duplicate")
		s.logger.Debug(ctx, "duplicate submission acknowledged",
			logger.String("submissionID", req.SubmissionID),
			logger.String("taskID", taskID),
		)
		return types.SubmissionAck{TaskID: taskID, Duplicate: true}, nil
	}

	ev := model.NewEvent(taskID, req.EventType, model.OriginExternal, req.Payload)
	if !s.eventQueue.Enqueue(ctx, ev) {
		// The submission was never admitted; let the client retry it.
		if req.SubmissionID != "" {
			s.deduper.Unrecord(ctx, req.SubmissionID)
		}
		metrics.RecordSubmission("rejected")
		return types.SubmissionAck{}, ErrQueueFull
	}

	metrics.RecordSubmission("accepted")
	return types.SubmissionAck{TaskID: taskID, EventID: ev.ID}, nil
}

// Status returns the task's phase, participants, and current board snapshot.
func (s *Service) Status(ctx context.Context, taskID string) (types.TaskStatus, error) {
	t, err := s.tracker.Get(taskID)
	if err != nil {
		return types.TaskStatus{}, err
	}
	return s.taskStatus(ctx, t, true), nil
}

// Tasks lists every known task, newest first, without board snapshots.
func (s *Service) Tasks(ctx context.Context) []types.TaskStatus {
	tasks := s.tracker.List()
	out := make([]types.TaskStatus, len(tasks))
	for i, t := range tasks {
		out[i] = s.taskStatus(ctx, t, false)
	}
	return out
}

func (s *Service) taskStatus(ctx context.Context, t model.Task, withSnapshot bool) types.TaskStatus {
	status := types.TaskStatus{
		TaskID:        t.ID,
		Phase:         string(t.Phase),
		CreatedAt:     t.CreatedAt,
		Workers:       t.Workers,
		PendingEvents: t.PendingEvents,
		Result:        t.TerminalResult,
		FailureReason: t.FailureReason,
	}
	if withSnapshot {
		status.Snapshot = s.board.Snapshot(ctx, t.ID)
	}
	return status
}

// History returns every version of one board key in write order.
func (s *Service) History(ctx context.Context, taskID, key string) ([]types.HistoryEntry, error) {
	entries, err := s.board.History(ctx, taskID, key)
	if err != nil {
		return nil, err
	}
	return toHistory(entries), nil
}

// TaskHistory returns the task's full board history across keys.
func (s *Service) TaskHistory(ctx context.Context, taskID string) ([]types.HistoryEntry, error) {
	entries, err := s.board.TaskHistory(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return toHistory(entries), nil
}

func toHistory(entries []repository.Entry) []types.HistoryEntry {
	out := make([]types.HistoryEntry, len(entries))
	for i, e := range entries {
		out[i] = types.HistoryEntry{
			Key:       e.Key,
			Value:     e.Value,
			Writer:    e.Writer,
			Version:   e.Version,
			Timestamp: e.Timestamp,
		}
	}
	return out
}

// Trace replays the task's audit trail in append order.
func (s *Service) Trace(ctx context.Context, taskID string) ([]audit.Record, error) {
	return s.trail.Replay(ctx, taskID)
}

// Subscribe attaches a live observer to the broadcast feed.
func (s *Service) Subscribe() *broadcast.Observer {
	return s.hub.Subscribe()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":    s.started,
		"queueSize":  s.cfg.EventQueueSize,
		"dedupeSize": s.cfg.DedupeSize,
	}

	if s.started {
		stats["queueLength"] = s.eventQueue.Len(ctx)
		stats["boardEntries"] = s.board.Count(ctx)
		stats["activeTasks"] = s.tracker.ActiveCount()
		stats["knownWorkers"] = s.registry.Workers()
		stats["eventTypes"] = s.registry.EventTypes()
		stats["dedupeEntries"] = s.deduper.Size()
	}

	return stats
}
