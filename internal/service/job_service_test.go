package service_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"brand-workflow-service/internal/broadcast"
	"brand-workflow-service/internal/entity"
	"brand-workflow-service/internal/service"
	"brand-workflow-service/internal/store"
)

type fakeRunner struct {
	st        *store.Store
	startErr  error
	started   []uuid.UUID
	cancelled []uuid.UUID
}

func (f *fakeRunner) Start(job entity.Job) error {
	f.started = append(f.started, job.ID)
	return f.startErr
}

func (f *fakeRunner) Cancel(id uuid.UUID) (entity.Job, error) {
	f.cancelled = append(f.cancelled, id)
	_ = f.st.MarkFailed(id, "cancelled by user")
	return f.st.Get(id)
}

func validBrief() entity.Brief {
	return entity.Brief{BrandName: "Acme", Industry: "software", TargetAudience: "developers"}
}

func newService(t *testing.T) (*service.JobService, *store.Store, *broadcast.Hub, *fakeRunner) {
	t.Helper()
	st := store.New()
	hub := broadcast.NewHub()
	runner := &fakeRunner{st: st}
	return service.NewJobService(st, hub, runner, nil), st, hub, runner
}

func TestSubmit_CreatesRecordAndStartsExecutor(t *testing.T) {
	svc, st, hub, runner := newService(t)

	job, err := svc.Submit(validBrief())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if job.Status != entity.StatusPending {
		t.Fatalf("expected pending, got %s", job.Status)
	}
	if len(runner.started) != 1 || runner.started[0] != job.ID {
		t.Fatalf("expected executor started for %s, got %v", job.ID, runner.started)
	}
	if hub.Lookup(job.ID) == nil {
		t.Fatal("expected a broadcaster for the new job")
	}
	if st.Count() != 1 {
		t.Fatalf("expected 1 record, got %d", st.Count())
	}
}

func TestSubmit_InvalidBriefLeavesNoTrace(t *testing.T) {
	svc, st, _, runner := newService(t)

	_, err := svc.Submit(entity.Brief{BrandName: "Acme"})
	if !errors.Is(err, entity.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if st.Count() != 0 {
		t.Fatalf("expected no records, got %d", st.Count())
	}
	if len(runner.started) != 0 {
		t.Fatal("executor must not start for an invalid brief")
	}
}

func TestSubmit_ExecutorStartFailureSettlesRecord(t *testing.T) {
	svc, _, hub, runner := newService(t)
	runner.startErr = errors.New("scheduler saturated")

	job, err := svc.Submit(validBrief())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if job.Status != entity.StatusFailed {
		t.Fatalf("expected failed record, got %s", job.Status)
	}
	if job.Error == nil || !strings.Contains(*job.Error, "failed to start workflow") {
		t.Fatalf("unexpected error text: %v", job.Error)
	}
	if hub.Lookup(job.ID) != nil {
		t.Fatal("expected broadcaster retired after start failure")
	}
}

func TestCancel_UnknownJob(t *testing.T) {
	svc, _, _, runner := newService(t)

	_, err := svc.Cancel(uuid.New())
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(runner.cancelled) != 0 {
		t.Fatal("runner must not be called for an unknown job")
	}
}

func TestCancel_DelegatesToRunner(t *testing.T) {
	svc, _, _, runner := newService(t)

	job, err := svc.Submit(validBrief())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	got, err := svc.Cancel(job.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.Status != entity.StatusFailed {
		t.Fatalf("expected failed after cancel, got %s", got.Status)
	}
	if len(runner.cancelled) != 1 || runner.cancelled[0] != job.ID {
		t.Fatalf("expected runner cancel for %s, got %v", job.ID, runner.cancelled)
	}
}

func TestResult_NotReadyStates(t *testing.T) {
	svc, st, _, _ := newService(t)

	job, err := svc.Submit(validBrief())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	_, err = svc.Result(job.ID)
	if !errors.Is(err, service.ErrResultNotReady) {
		t.Fatalf("expected ErrResultNotReady for pending job, got %v", err)
	}
	if !strings.Contains(err.Error(), "pending") {
		t.Fatalf("expected status in error, got %v", err)
	}

	_ = st.MarkFailed(job.ID, "stage brand_identity: boom")
	_, err = svc.Result(job.ID)
	if !errors.Is(err, service.ErrResultNotReady) {
		t.Fatalf("expected ErrResultNotReady for failed job, got %v", err)
	}
	if !strings.Contains(err.Error(), "job failed") || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected failure reason in error, got %v", err)
	}
}

func TestResult_UnknownJob(t *testing.T) {
	svc, _, _, _ := newService(t)

	_, err := svc.Result(uuid.New())
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResult_AssemblesTypedPayload(t *testing.T) {
	svc, st, _, _ := newService(t)

	job, err := svc.Submit(validBrief())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	id := job.ID

	identity := `{"logo_concepts":[{"id":"concept-1","name":"Mark","description":"geometric"}],"color_palette":{"primary":{"hex":"#1a1a2e","name":"Ink"}},"style_guide":{"voice_and_tone":"confident"}}`
	marketing := `{"social_media":{"platforms":["instagram"],"posts_per_platform":5},"voice_and_tone":"confident"}`

	_ = st.MarkRunning(id, entity.StepInitializing)
	_ = st.RecordStep(id, entity.StepInitializing, 5, json.RawMessage(`{"status":"ready"}`))
	_ = st.RecordStep(id, entity.StepBrandIdentity, 50, json.RawMessage(identity))
	_ = st.RecordStep(id, entity.StepMarketing, 90, json.RawMessage(marketing))
	_ = st.RecordStep(id, entity.StepFinalizing, 100, json.RawMessage(`{"status":"done"}`))
	_ = st.MarkCompleted(id)

	result, err := svc.Result(id)
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if result.Status != entity.StatusCompleted {
		t.Fatalf("expected completed, got %s", result.Status)
	}
	if result.JobID != id.String() {
		t.Fatalf("expected job id %s, got %s", id, result.JobID)
	}
	if result.BrandIdentity == nil || len(result.BrandIdentity.LogoConcepts) != 1 {
		t.Fatalf("expected decoded brand identity, got %+v", result.BrandIdentity)
	}
	if result.BrandIdentity.ColorPalette == nil || result.BrandIdentity.ColorPalette.Primary.Hex != "#1a1a2e" {
		t.Fatalf("unexpected palette: %+v", result.BrandIdentity.ColorPalette)
	}
	if result.Marketing == nil || result.Marketing.SocialMedia == nil || len(result.Marketing.SocialMedia.Platforms) != 1 {
		t.Fatalf("expected decoded marketing content, got %+v", result.Marketing)
	}
	if len(result.RawResults) != 4 {
		t.Fatalf("expected all stage outputs, got %d", len(result.RawResults))
	}
	if result.CompletedAt == nil {
		t.Fatal("expected completion timestamp")
	}
}
