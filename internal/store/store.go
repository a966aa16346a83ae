// Package store holds the authoritative in-memory registry of job records.
// Records move forward through pending -> running -> {completed, failed} and
// never back; progress is monotonically non-decreasing. Every accessor hands
// out copies, never the owned record.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"brand-workflow-service/internal/entity"
)

var (
	ErrNotFound          = errors.New("job not found")
	ErrInvalidTransition = errors.New("invalid job transition")
)

const DefaultMaxJobs = 100

// Store is safe for concurrent use. The registry map has its own lock;
// each record carries a per-job lock so unrelated jobs never contend on
// updates.
type Store struct {
	mu      sync.RWMutex
	jobs    map[uuid.UUID]*record
	maxJobs int

	// onEvict runs outside all store locks for every record dropped by
	// retention cleanup. Used to retire the job's broadcaster.
	onEvict func(uuid.UUID)

	logger *slog.Logger
}

type record struct {
	mu  sync.Mutex
	job entity.Job
}

type Option func(*Store)

// WithMaxJobs caps retained records; oldest terminal records are evicted
// beyond the cap.
func WithMaxJobs(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxJobs = n
		}
	}
}

func WithEvictHook(fn func(uuid.UUID)) Option {
	return func(s *Store) { s.onEvict = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		jobs:    make(map[uuid.UUID]*record),
		maxJobs: DefaultMaxJobs,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates the brief and allocates a new pending record. No record
// is created when validation fails.
func (s *Store) Create(brief entity.Brief) (entity.Job, error) {
	if err := brief.Validate(); err != nil {
		return entity.Job{}, err
	}

	job := entity.Job{
		ID:        uuid.New(),
		Brief:     brief,
		Status:    entity.StatusPending,
		CreatedAt: time.Now().UTC(),
		Results:   make(map[string]json.RawMessage),
	}

	s.mu.Lock()
	s.jobs[job.ID] = &record{job: job}
	evicted := s.cleanupLocked()
	s.mu.Unlock()

	for _, id := range evicted {
		s.logger.Info("evicted old job record", "job_id", id.String())
		if s.onEvict != nil {
			s.onEvict(id)
		}
	}
	return job.Clone(), nil
}

// Get returns a snapshot copy of the record.
func (s *Store) Get(id uuid.UUID) (entity.Job, error) {
	rec, err := s.lookup(id)
	if err != nil {
		return entity.Job{}, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.job.Clone(), nil
}

// List returns up to limit snapshots ordered newest first.
func (s *Store) List(limit int) []entity.Job {
	s.mu.RLock()
	recs := make([]*record, 0, len(s.jobs))
	for _, rec := range s.jobs {
		recs = append(recs, rec)
	}
	s.mu.RUnlock()

	out := make([]entity.Job, 0, len(recs))
	for _, rec := range recs {
		rec.mu.Lock()
		out = append(out, rec.job.Clone())
		rec.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Count reports the number of retained records.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// MarkRunning transitions pending -> running and sets the start timestamp.
func (s *Store) MarkRunning(id uuid.UUID, step entity.WorkflowStep) error {
	return s.update(id, func(j *entity.Job) error {
		if j.Status != entity.StatusPending {
			return fmt.Errorf("%w: %s -> running", ErrInvalidTransition, j.Status)
		}
		now := time.Now().UTC()
		j.Status = entity.StatusRunning
		j.StartedAt = &now
		j.CurrentStep = step
		return nil
	})
}

// SetStep updates the current step of a running job without touching
// progress.
func (s *Store) SetStep(id uuid.UUID, step entity.WorkflowStep) error {
	return s.update(id, func(j *entity.Job) error {
		if j.Status != entity.StatusRunning {
			return fmt.Errorf("%w: set step while %s", ErrInvalidTransition, j.Status)
		}
		j.CurrentStep = step
		return nil
	})
}

// RecordStep stores a completed stage's output and advances progress.
// Progress regressions are rejected.
func (s *Store) RecordStep(id uuid.UUID, step entity.WorkflowStep, progress int, output json.RawMessage) error {
	return s.update(id, func(j *entity.Job) error {
		if j.Status != entity.StatusRunning {
			return fmt.Errorf("%w: record step while %s", ErrInvalidTransition, j.Status)
		}
		if progress < j.Progress {
			return fmt.Errorf("%w: progress %d -> %d", ErrInvalidTransition, j.Progress, progress)
		}
		if j.Results == nil {
			j.Results = make(map[string]json.RawMessage)
		}
		j.Results[string(step)] = append(json.RawMessage(nil), output...)
		j.CurrentStep = step
		j.Progress = progress
		return nil
	})
}

// MarkCompleted transitions running -> completed with progress 100.
func (s *Store) MarkCompleted(id uuid.UUID) error {
	return s.update(id, func(j *entity.Job) error {
		if j.Status != entity.StatusRunning {
			return fmt.Errorf("%w: %s -> completed", ErrInvalidTransition, j.Status)
		}
		now := time.Now().UTC()
		j.Status = entity.StatusCompleted
		j.CompletedAt = &now
		j.Progress = 100
		return nil
	})
}

// MarkFailed transitions pending/running -> failed, keeping any partial
// results already recorded.
func (s *Store) MarkFailed(id uuid.UUID, errText string) error {
	return s.update(id, func(j *entity.Job) error {
		if j.Status.Terminal() {
			return fmt.Errorf("%w: %s -> failed", ErrInvalidTransition, j.Status)
		}
		now := time.Now().UTC()
		j.Status = entity.StatusFailed
		j.CompletedAt = &now
		j.Error = &errText
		return nil
	})
}

func (s *Store) lookup(id uuid.UUID) (*record, error) {
	s.mu.RLock()
	rec, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return rec, nil
}

func (s *Store) update(id uuid.UUID, mutate func(*entity.Job) error) error {
	rec, err := s.lookup(id)
	if err != nil {
		return err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return mutate(&rec.job)
}

// cleanupLocked evicts the oldest terminal records past maxJobs. Caller holds
// the registry write lock. Records still pending or running are never
// evicted.
func (s *Store) cleanupLocked() []uuid.UUID {
	if len(s.jobs) <= s.maxJobs {
		return nil
	}

	type aged struct {
		id        uuid.UUID
		createdAt time.Time
	}
	candidates := make([]aged, 0, len(s.jobs))
	for id, rec := range s.jobs {
		rec.mu.Lock()
		if rec.job.Status.Terminal() {
			candidates = append(candidates, aged{id: id, createdAt: rec.job.CreatedAt})
		}
		rec.mu.Unlock()
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].createdAt.Before(candidates[j].createdAt) })

	toRemove := len(s.jobs) - s.maxJobs
	var evicted []uuid.UUID
	for _, c := range candidates {
		if toRemove <= 0 {
			break
		}
		delete(s.jobs, c.id)
		evicted = append(evicted, c.id)
		toRemove--
	}
	return evicted
}
