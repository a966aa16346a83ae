package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"brand-workflow-service/internal/entity"
	"brand-workflow-service/internal/pipeline"
	"brand-workflow-service/internal/store"
)

// supervise wraps one executor run. Whatever happens inside (panic, stage
// failure, timeout, cancellation), the job record ends terminal and the
// job's broadcaster is retired.
func (m *Manager) supervise(ctx context.Context, timeoutCancel context.CancelFunc, job entity.Job) {
	defer m.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("executor panic", "job_id", job.ID.String(), "panic", r)
		}
		// The executor may only exit through a terminal transition. Catch a
		// run that slipped out without one.
		if j, err := m.store.Get(job.ID); err == nil && !j.Status.Terminal() {
			const msg = "executor terminated without reaching a terminal state"
			if err := m.store.MarkFailed(job.ID, msg); err == nil {
				m.hub.Publish(job.ID, entity.NewProgressEvent(entity.EventError, job.ID, j.CurrentStep, j.Progress, msg))
				m.archiveTerminal(job.ID)
			}
		}
		m.finish(job.ID, timeoutCancel)
	}()

	m.run(ctx, job)
}

func (m *Manager) run(ctx context.Context, job entity.Job) {
	id := job.ID
	brief := job.Brief.Normalized()
	stages := m.pipe.Stages()
	start := time.Now()

	if err := m.store.MarkRunning(id, stages[0].Name); err != nil {
		// Cancelled between submit and start; the record is already settled.
		m.logger.Warn("start rejected", "job_id", id.String(), "error", err)
		return
	}
	m.hub.Publish(id, entity.NewProgressEvent(entity.EventConnected, id, stages[0].Name, 0, "Workflow started"))

	results := make(map[string]json.RawMessage, len(stages))
	progress := 0
	for _, stage := range stages {
		if err := m.store.SetStep(id, stage.Name); err != nil {
			m.logger.Warn("set step rejected", "job_id", id.String(), "step", string(stage.Name), "error", err)
			return
		}
		m.hub.Publish(id, entity.NewProgressEvent(entity.EventProgress, id, stage.Name, progress,
			fmt.Sprintf("Starting %s...", stepLabel(stage.Name))))

		out, err := m.invoke(ctx, stage, brief, results)
		if err != nil {
			m.fail(id, stage.Name, progress, err, time.Since(start))
			return
		}

		results[string(stage.Name)] = out
		progress += stage.Weight
		if err := m.store.RecordStep(id, stage.Name, progress, out); err != nil {
			m.logger.Warn("record step rejected", "job_id", id.String(), "step", string(stage.Name), "error", err)
			return
		}
		m.hub.Publish(id, entity.NewProgressEvent(entity.EventStepComplete, id, stage.Name, progress,
			fmt.Sprintf("%s completed", titleLabel(stage.Name))))
	}

	if err := m.store.MarkCompleted(id); err != nil {
		m.logger.Warn("completion rejected", "job_id", id.String(), "error", err)
		return
	}
	last := stages[len(stages)-1].Name
	m.hub.Publish(id, entity.NewProgressEvent(entity.EventCompleted, id, last, 100, "Workflow completed successfully"))
	m.logger.Info("job completed", "job_id", id.String(), "duration_ms", time.Since(start).Milliseconds())
	m.archiveTerminal(id)
}

// invoke runs one stage call in its own goroutine so an unresponsive stage
// cannot hold the executor past the job deadline. The stage's context is
// cancelled on timeout, but that cancellation is advisory: the executor
// abandons the call rather than waiting on it.
func (m *Manager) invoke(ctx context.Context, stage pipeline.Stage, brief entity.Brief, prior map[string]json.RawMessage) (json.RawMessage, error) {
	type stageResult struct {
		out json.RawMessage
		err error
	}
	ch := make(chan stageResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- stageResult{err: fmt.Errorf("stage %s panicked: %v", stage.Name, r)}
			}
		}()
		out, err := stage.Run(ctx, brief, prior)
		ch <- stageResult{out: out, err: err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, fmt.Errorf("stage %s: %w", stage.Name, res.err)
		}
		return res.out, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("stage %s: %w", stage.Name, context.Cause(ctx))
	}
}

// fail settles the record as failed, keeping partial results from prior
// stages. When the transition is rejected, another path (cancel) already
// terminalized the job and its terminal event has been sent.
func (m *Manager) fail(id uuid.UUID, step entity.WorkflowStep, progress int, cause error, elapsed time.Duration) {
	errText := cause.Error()
	if err := m.store.MarkFailed(id, errText); err != nil {
		if !errors.Is(err, store.ErrInvalidTransition) {
			m.logger.Error("fail transition error", "job_id", id.String(), "error", err)
		}
		return
	}
	m.hub.Publish(id, entity.NewProgressEvent(entity.EventError, id, step, progress, "Workflow failed: "+errText))
	m.logger.Warn("job failed",
		"job_id", id.String(),
		"step", string(step),
		"duration_ms", elapsed.Milliseconds(),
		"error", errText,
	)
	m.archiveTerminal(id)
}

// archiveTerminal mirrors the terminal record into the archive, when one is
// configured. Failures are logged and never affect the job.
func (m *Manager) archiveTerminal(id uuid.UUID) {
	if m.archiver == nil {
		return
	}
	job, err := m.store.Get(id)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.archiver.Save(ctx, job); err != nil {
		m.logger.Warn("archive write failed", "job_id", id.String(), "error", err)
	}
}

func stepLabel(step entity.WorkflowStep) string {
	return strings.ReplaceAll(string(step), "_", " ")
}

func titleLabel(step entity.WorkflowStep) string {
	label := stepLabel(step)
	if label == "" {
		return label
	}
	return strings.ToUpper(label[:1]) + label[1:]
}
