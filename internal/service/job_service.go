package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"brand-workflow-service/internal/broadcast"
	"brand-workflow-service/internal/entity"
	"brand-workflow-service/internal/store"
)

var ErrResultNotReady = errors.New("result not ready")

// Runner is the slice of the workflow manager the request layer needs.
type Runner interface {
	Start(job entity.Job) error
	Cancel(id uuid.UUID) (entity.Job, error)
}

// JobService is the request layer's entry point: it validates briefs,
// creates records, launches executors and exposes snapshots and results.
type JobService struct {
	store  *store.Store
	hub    *broadcast.Hub
	runner Runner
	logger *slog.Logger
}

func NewJobService(st *store.Store, hub *broadcast.Hub, runner Runner, logger *slog.Logger) *JobService {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &JobService{store: st, hub: hub, runner: runner, logger: logger}
}

// Submit validates the brief, creates the pending record and its
// broadcaster, and starts the executor. It returns as soon as the job is
// launched; progress is observed via snapshots or the stream.
func (s *JobService) Submit(brief entity.Brief) (entity.Job, error) {
	job, err := s.store.Create(brief)
	if err != nil {
		return entity.Job{}, err
	}

	s.hub.Create(job.ID)
	if err := s.runner.Start(job); err != nil {
		// Should not happen for a fresh id; settle the record so it cannot
		// hang in pending forever.
		s.logger.Error("executor start failed", "job_id", job.ID.String(), "error", err)
		_ = s.store.MarkFailed(job.ID, "failed to start workflow: "+err.Error())
		s.hub.Retire(job.ID)
		return s.store.Get(job.ID)
	}

	s.logger.Info("job submitted", "job_id", job.ID.String(), "brand", brief.BrandName)
	return job, nil
}

// Snapshot returns a copy of the job's current state.
func (s *JobService) Snapshot(id uuid.UUID) (entity.Job, error) {
	return s.store.Get(id)
}

// List returns up to limit recent jobs, newest first.
func (s *JobService) List(limit int) []entity.Job {
	return s.store.List(limit)
}

// Cancel stops a pending or running job.
func (s *JobService) Cancel(id uuid.UUID) (entity.Job, error) {
	if _, err := s.store.Get(id); err != nil {
		return entity.Job{}, err
	}
	return s.runner.Cancel(id)
}

// Subscribe attaches a live event feed for the job, or nil when the job's
// broadcaster is already retired.
func (s *JobService) Subscribe(id uuid.UUID) *broadcast.Subscription {
	return s.hub.Subscribe(id)
}

// Result assembles the final payload for a completed job. Pending, running
// and failed jobs yield ErrResultNotReady.
func (s *JobService) Result(id uuid.UUID) (entity.WorkflowResult, error) {
	job, err := s.store.Get(id)
	if err != nil {
		return entity.WorkflowResult{}, err
	}

	switch job.Status {
	case entity.StatusCompleted:
	case entity.StatusFailed:
		msg := "unknown error"
		if job.Error != nil {
			msg = *job.Error
		}
		return entity.WorkflowResult{}, fmt.Errorf("%w: job failed: %s", ErrResultNotReady, msg)
	default:
		return entity.WorkflowResult{}, fmt.Errorf("%w: job is %s", ErrResultNotReady, job.Status)
	}

	result := entity.WorkflowResult{
		JobID:       job.ID.String(),
		Status:      job.Status,
		Brief:       job.Brief,
		CreatedAt:   job.CreatedAt,
		CompletedAt: job.CompletedAt,
		RawResults:  job.Results,
	}
	if raw, ok := job.Results[string(entity.StepBrandIdentity)]; ok {
		var identity entity.BrandIdentityResult
		if err := json.Unmarshal(raw, &identity); err == nil {
			result.BrandIdentity = &identity
		}
	}
	if raw, ok := job.Results[string(entity.StepMarketing)]; ok {
		var marketing entity.MarketingResult
		if err := json.Unmarshal(raw, &marketing); err == nil {
			result.Marketing = &marketing
		}
	}
	return result, nil
}
