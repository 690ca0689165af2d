// Package types contains common types used across the application
package types

import "time"

// TaskStatus is the read shape returned by task status queries.
type TaskStatus struct {
	TaskID        string         `json:"task_id"`
	Phase         string         `json:"phase"`
	CreatedAt     time.Time      `json:"created_at"`
	Workers       []string       `json:"workers"`
	PendingEvents int            `json:"pending_events"`
	Result        map[string]any `json:"result,omitempty"`
	FailureReason string         `json:"failure_reason,omitempty"`
	Snapshot      map[string]any `json:"snapshot,omitempty"`
}

// Submission is one external work submission.
type Submission struct {
	// TaskID targets an existing task; empty means a fresh task.
	TaskID string `json:"task_id,omitempty"`
	// EventType routes the seed event through the subscription registry.
	EventType string `json:"event_type"`
	// Payload is the opaque event body.
	Payload map[string]any `json:"payload,omitempty"`
	// SubmissionID is the client idempotency key. Empty disables
	// deduplication for this submission.
	SubmissionID string `json:"submission_id,omitempty"`
}

// SubmissionAck acknowledges an accepted submission.
type SubmissionAck struct {
	TaskID    string `json:"task_id"`
	EventID   string `json:"event_id,omitempty"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// HistoryEntry is the read shape of one board version in an audit trace.
type HistoryEntry struct {
	Key       string    `json:"key"`
	Value     any       `json:"value"`
	Writer    string    `json:"writer"`
	Version   uint64    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}
