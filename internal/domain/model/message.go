package model

import "time"

// MessageKind classifies broadcast feed messages.
type MessageKind string

const (
	// KindBoardWrite announces a new board entry version.
	KindBoardWrite MessageKind = "board_write"
	// KindPhase announces a task phase transition.
	KindPhase MessageKind = "phase"
	// KindActivity announces a worker activity record.
	KindActivity MessageKind = "activity"
)

// Message is one unit of the live observation feed. Delivery order within a
// task matches board mutation order; no ordering holds across tasks.
type Message struct {
	TaskID    string         `json:"task_id"`
	Kind      MessageKind    `json:"kind"`
	Payload   map[string]any `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
}
