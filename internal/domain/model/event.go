// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/google/uuid"
)

// OriginExternal marks events created by the front door rather than a worker.
const OriginExternal = "external"

// Event is an immutable message scoped to a task. Superseded facts become new
// board entries; an Event is never edited after creation.
type Event struct {
	ID             string         // unique event id
	Type           string         // routing key for the subscription registry
	TaskID         string         // owning task
	Origin         string         // worker id or OriginExternal
	Payload        map[string]any // opaque structured value
	Timestamp      time.Time
	CausalParentID string // id of the event this one reacts to, if any
}

// NewEvent builds an event with a fresh id and timestamp.
func NewEvent(taskID, eventType, origin string, payload map[string]any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TaskID:    taskID,
		Origin:    origin,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// Child derives a follow-up event caused by e, attributed to origin.
func (e Event) Child(eventType, origin string, payload map[string]any) Event {
	child := NewEvent(e.TaskID, eventType, origin, payload)
	child.CausalParentID = e.ID
	return child
}

// Valid reports whether the event satisfies the structural contract expected
// from worker outcomes. Events failing this check are recorded as malformed
// and never enter the dispatch queue.
func (e Event) Valid() bool {
	return e.ID != "" && e.Type != "" && e.TaskID != ""
}
