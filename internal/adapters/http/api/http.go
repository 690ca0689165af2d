// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/slate/internal/adapters/audit"
	"github.com/okian/slate/internal/adapters/broadcast"
	"github.com/okian/slate/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Submit accepts one external work submission. It acknowledges before
	// any processing happens and reports backpressure via error.
	Submit(ctx context.Context, sub types.Submission) (types.SubmissionAck, error)

	// Read operations expose task state and history.
	Status(ctx context.Context, taskID string) (types.TaskStatus, error)
	Tasks(ctx context.Context) []types.TaskStatus
	History(ctx context.Context, taskID, key string) ([]types.HistoryEntry, error)
	TaskHistory(ctx context.Context, taskID string) ([]types.HistoryEntry, error)
	Trace(ctx context.Context, taskID string) ([]audit.Record, error)

	// Subscribe attaches a live observer to the broadcast feed.
	Subscribe() *broadcast.Observer
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	tasksHandler     *TasksHandler
	feedHandler      *FeedHandler
	dashboardHandler *dashboardHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		tasksHandler:     NewTasksHandler(deps),
		feedHandler:      NewFeedHandler(deps),
		dashboardHandler: newdashboardHandler(),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/dashboard", s.dashboardHandler.HandleDashboard)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/ws", s.feedHandler.HandleFeed)
	mux.HandleFunc("/tasks", MetricsMiddleware(s.tasksHandler.HandleTasks, "tasks"))
	mux.HandleFunc("/tasks/", MetricsMiddleware(s.tasksHandler.HandleTask, "task"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
