// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/slate/internal/adapters/audit"
	"github.com/okian/slate/internal/adapters/repository"
	"github.com/okian/slate/internal/domain/tracker"
	"github.com/okian/slate/internal/domain/types"
)

// TasksHandler handles task submission and task read requests.
type TasksHandler struct {
	deps Dependencies
}

// NewTasksHandler creates a new tasks handler.
func NewTasksHandler(deps Dependencies) *TasksHandler {
	return &TasksHandler{deps: deps}
}

// HandleTasks handles POST /tasks and GET /tasks requests.
func (h *TasksHandler) HandleTasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleSubmit(w, r)
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.deps.Tasks(r.Context()))
	default:
		http.NotFound(w, r)
	}
}

// handleSubmit accepts a work submission and acknowledges immediately; all
// coordination happens asynchronously after the 202.
func (h *TasksHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_task"

	var sub types.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if strings.TrimSpace(sub.EventType) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing event_type"))
		return
	}

	ack, err := h.deps.Submit(r.Context(), sub)
	if err != nil {
		if errors.Is(err, types.ErrQueueFull) {
			writeError(w, http.StatusTooManyRequests, "backpressure", err)
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if ack.Duplicate {
		writeJSON(w, http.StatusOK, ack)
		return
	}
	writeJSON(w, http.StatusAccepted, ack)
}

// HandleTask handles GET /tasks/{id}, GET /tasks/{id}/history, and
// GET /tasks/{id}/trace requests.
func (h *TasksHandler) HandleTask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/tasks/")
	taskID, sub, _ := strings.Cut(rest, "/")
	if taskID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing task id"))
		return
	}

	switch sub {
	case "":
		h.handleStatus(w, r, taskID)
	case "history":
		h.handleHistory(w, r, taskID)
	case "trace":
		h.handleTrace(w, r, taskID)
	default:
		http.NotFound(w, r)
	}
}

func (h *TasksHandler) handleStatus(w http.ResponseWriter, r *http.Request, taskID string) {
	status, err := h.deps.Status(r.Context(), taskID)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleHistory returns the task's board history, optionally filtered with
// ?key=<board key>.
func (h *TasksHandler) handleHistory(w http.ResponseWriter, r *http.Request, taskID string) {
	var (
		entries []types.HistoryEntry
		err     error
	)
	if key := r.URL.Query().Get("key"); key != "" {
		entries, err = h.deps.History(r.Context(), taskID, key)
	} else {
		entries, err = h.deps.TaskHistory(r.Context(), taskID)
	}
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *TasksHandler) handleTrace(w http.ResponseWriter, r *http.Request, taskID string) {
	records, err := h.deps.Trace(r.Context(), taskID)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// isNotFound translates upstream not-found conditions to 404.
func isNotFound(err error) bool {
	return errors.Is(err, tracker.ErrUnknownTask) ||
		errors.Is(err, repository.ErrNotFound) ||
		errors.Is(err, audit.ErrNoTrace)
}
