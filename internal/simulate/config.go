package simulate

import "time"

// Config holds configuration for the simulation run
type Config struct {
	BaseURL     string        // Base URL of the service
	NumTasks    int           // Number of tasks to submit
	Workers     int           // Number of concurrent submitters
	Timeout     time.Duration // HTTP request timeout
	WaitTimeout time.Duration // How long to wait for tasks to settle
	LogFile     string        // Log file for simulation output
	Verbose     bool          // Enable verbose logging
}

// Submission is the wire shape of one task submission
type Submission struct {
	TaskID       string         `json:"task_id,omitempty"`
	EventType    string         `json:"event_type"`
	Payload      map[string]any `json:"payload,omitempty"`
	SubmissionID string         `json:"submission_id,omitempty"`
}

// Ack is the wire shape of a submission acknowledgement
type Ack struct {
	TaskID    string `json:"task_id"`
	EventID   string `json:"event_id"`
	Duplicate bool   `json:"duplicate"`
}

// TaskStatus is the wire shape returned by the status endpoint
type TaskStatus struct {
	TaskID        string         `json:"task_id"`
	Phase         string         `json:"phase"`
	Workers       []string       `json:"workers"`
	PendingEvents int            `json:"pending_events"`
	Result        map[string]any `json:"result"`
	FailureReason string         `json:"failure_reason"`
}

// HistoryEntry is the wire shape of one board version
type HistoryEntry struct {
	Key     string `json:"key"`
	Writer  string `json:"writer"`
	Version uint64 `json:"version"`
}

// FeedMessage is the wire shape of one live feed message
type FeedMessage struct {
	TaskID string `json:"task_id"`
	Kind   string `json:"kind"`
}

// Stats holds simulation statistics
type Stats struct {
	TasksGenerated  int
	TasksSubmitted  int
	TasksAccepted   int
	TasksDuplicate  int
	TasksRejected   int
	TasksCompleted  int
	TasksFailed     int
	TasksUnsettled  int
	BoardsVerified  int
	FeedBoardWrites int64
	FeedPhases      int64
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}
