package entity

import (
	"time"

	"github.com/google/uuid"
)

// EventType is the closed set of progress event kinds sent to stream
// subscribers. Keepalive frames carry no state and must be ignored by
// consumers for state purposes.
type EventType string

const (
	EventConnected    EventType = "connected"
	EventProgress     EventType = "progress"
	EventStepComplete EventType = "step_complete"
	EventCompleted    EventType = "completed"
	EventError        EventType = "error"
	EventKeepalive    EventType = "keepalive"
)

// ProgressEvent is an immutable notification of a job's state change.
// Events for one job form a strictly ordered sequence with non-decreasing
// progress values.
type ProgressEvent struct {
	Type      EventType    `json:"type"`
	JobID     string       `json:"job_id"`
	Step      WorkflowStep `json:"step,omitempty"`
	Progress  int          `json:"progress"`
	Message   string       `json:"message"`
	Timestamp time.Time    `json:"timestamp"`
}

// Terminal reports whether the event announces a terminal job state.
func (e ProgressEvent) Terminal() bool {
	return e.Type == EventCompleted || e.Type == EventError
}

func NewProgressEvent(typ EventType, jobID uuid.UUID, step WorkflowStep, progress int, message string) ProgressEvent {
	return ProgressEvent{
		Type:      typ,
		JobID:     jobID.String(),
		Step:      step,
		Progress:  progress,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}
