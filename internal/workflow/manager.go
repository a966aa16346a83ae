// Package workflow runs each job's stage pipeline in its own goroutine,
// detached from the request that submitted it. The manager enforces at most
// one executor per job, supports cancellation and an overall deadline, and
// guarantees every run leaves the job record in a terminal state.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"brand-workflow-service/internal/archive"
	"brand-workflow-service/internal/broadcast"
	"brand-workflow-service/internal/entity"
	"brand-workflow-service/internal/pipeline"
	"brand-workflow-service/internal/store"
)

var (
	ErrAlreadyRunning = errors.New("executor already running for job")
	ErrStageTimeout   = errors.New("stage deadline exceeded")
	ErrJobCancelled   = errors.New("cancelled by user")
	ErrShutdown       = errors.New("server shutting down")
)

// DefaultJobTimeout bounds one job's entire run.
const DefaultJobTimeout = 10 * time.Minute

// JobStore is the slice of the record store the executor needs.
type JobStore interface {
	Get(id uuid.UUID) (entity.Job, error)
	MarkRunning(id uuid.UUID, step entity.WorkflowStep) error
	SetStep(id uuid.UUID, step entity.WorkflowStep) error
	RecordStep(id uuid.UUID, step entity.WorkflowStep, progress int, output json.RawMessage) error
	MarkCompleted(id uuid.UUID) error
	MarkFailed(id uuid.UUID, errText string) error
}

type Manager struct {
	store    JobStore
	hub      *broadcast.Hub
	pipe     *pipeline.Pipeline
	archiver archive.Archiver
	timeout  time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	running map[uuid.UUID]context.CancelCauseFunc
	wg      sync.WaitGroup
}

type Option func(*Manager)

func WithTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithArchiver persists terminal records best-effort.
func WithArchiver(a archive.Archiver) Option {
	return func(m *Manager) { m.archiver = a }
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

func NewManager(st JobStore, hub *broadcast.Hub, pipe *pipeline.Pipeline, opts ...Option) *Manager {
	m := &Manager{
		store:   st,
		hub:     hub,
		pipe:    pipe,
		timeout: DefaultJobTimeout,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		running: make(map[uuid.UUID]context.CancelCauseFunc),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start launches the job's executor goroutine. The submitting caller returns
// immediately; execution is independent of any observer.
func (m *Manager) Start(job entity.Job) error {
	m.mu.Lock()
	if _, ok := m.running[job.ID]; ok {
		m.mu.Unlock()
		return ErrAlreadyRunning
	}
	base, timeoutCancel := context.WithTimeoutCause(context.Background(), m.timeout, ErrStageTimeout)
	ctx, cancel := context.WithCancelCause(base)
	m.running[job.ID] = cancel
	m.wg.Add(1)
	m.mu.Unlock()

	go m.supervise(ctx, timeoutCancel, job)
	return nil
}

// Cancel stops a pending or running job through the same termination path as
// a stage failure and returns the resulting snapshot. Cancelling an already
// terminal job is a no-op that returns the current snapshot.
func (m *Manager) Cancel(id uuid.UUID) (entity.Job, error) {
	m.mu.Lock()
	cancel := m.running[id]
	m.mu.Unlock()
	if cancel != nil {
		cancel(ErrJobCancelled)
	}

	// Terminalize synchronously so the caller observes a settled state. The
	// executor racing us loses the transition and skips its own terminal
	// event.
	err := m.store.MarkFailed(id, ErrJobCancelled.Error())
	switch {
	case err == nil:
		job, getErr := m.store.Get(id)
		if getErr != nil {
			return entity.Job{}, getErr
		}
		m.hub.Publish(id, entity.NewProgressEvent(entity.EventError, id, job.CurrentStep, job.Progress, "Workflow cancelled by user"))
		m.archiveTerminal(id)
		m.logger.Info("job cancelled", "job_id", id.String())
	case errors.Is(err, store.ErrInvalidTransition):
		// already terminal
	default:
		return entity.Job{}, err
	}
	return m.store.Get(id)
}

// Running reports whether an executor is active for the job.
func (m *Manager) Running(id uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.running[id]
	return ok
}

// Shutdown cancels all in-flight executors and waits for them to settle
// their job records, or until ctx expires.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	for _, cancel := range m.running {
		cancel(ErrShutdown)
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) finish(id uuid.UUID, timeoutCancel context.CancelFunc) {
	timeoutCancel()
	m.mu.Lock()
	if cancel, ok := m.running[id]; ok {
		cancel(nil)
		delete(m.running, id)
	}
	m.mu.Unlock()
	m.hub.Retire(id)
}
