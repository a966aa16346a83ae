package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// Terminal reports whether no further transition is allowed out of s.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

type WorkflowStep string

const (
	StepInitializing  WorkflowStep = "initializing"
	StepBrandIdentity WorkflowStep = "brand_identity"
	StepMarketing     WorkflowStep = "marketing"
	StepFinalizing    WorkflowStep = "finalizing"
)

// Job is the authoritative record of one workflow run. The store owns the
// record for its lifetime; everything handed out of the store is a copy.
type Job struct {
	ID          uuid.UUID                  `json:"job_id"`
	Brief       Brief                      `json:"brand_brief"`
	Status      JobStatus                  `json:"status"`
	CurrentStep WorkflowStep               `json:"current_step,omitempty"`
	Progress    int                        `json:"progress"`
	CreatedAt   time.Time                  `json:"created_at"`
	StartedAt   *time.Time                 `json:"started_at,omitempty"`
	CompletedAt *time.Time                 `json:"completed_at,omitempty"`
	Error       *string                    `json:"error,omitempty"`
	Results     map[string]json.RawMessage `json:"results,omitempty"`
}

// Clone returns a deep copy safe to hand across goroutine boundaries.
func (j Job) Clone() Job {
	out := j
	if j.StartedAt != nil {
		t := *j.StartedAt
		out.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		out.CompletedAt = &t
	}
	if j.Error != nil {
		e := *j.Error
		out.Error = &e
	}
	if j.Results != nil {
		out.Results = make(map[string]json.RawMessage, len(j.Results))
		for k, v := range j.Results {
			out.Results[k] = append(json.RawMessage(nil), v...)
		}
	}
	return out
}
