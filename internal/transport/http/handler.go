package httptransport

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"brand-workflow-service/internal/entity"
	"brand-workflow-service/internal/service"
	"brand-workflow-service/internal/store"
)

const defaultListLimit = 20

type Handler struct {
	jobSvc *service.JobService
	logger *slog.Logger
}

func NewHandler(jobSvc *service.JobService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{jobSvc: jobSvc, logger: logger}
}

type jobResp struct {
	JobID       string              `json:"job_id"`
	Status      entity.JobStatus    `json:"status"`
	CurrentStep entity.WorkflowStep `json:"current_step,omitempty"`
	Progress    int                 `json:"progress"`
	CreatedAt   string              `json:"created_at"`
	StartedAt   *string             `json:"started_at,omitempty"`
	CompletedAt *string             `json:"completed_at,omitempty"`
	Error       *string             `json:"error,omitempty"`
}

type jobListResp struct {
	Jobs  []jobResp `json:"jobs"`
	Total int       `json:"total"`
}

func toJobResp(j entity.Job) jobResp {
	resp := jobResp{
		JobID:       j.ID.String(),
		Status:      j.Status,
		CurrentStep: j.CurrentStep,
		Progress:    j.Progress,
		CreatedAt:   j.CreatedAt.Format(time.RFC3339),
		Error:       j.Error,
	}
	if j.StartedAt != nil {
		s := j.StartedAt.Format(time.RFC3339)
		resp.StartedAt = &s
	}
	if j.CompletedAt != nil {
		s := j.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &s
	}
	return resp
}

// CreateJob godoc
// @Summary Submit a new brand workflow job
// @Description Validates the brief, creates a pending job and starts the workflow in the background.
// @Tags jobs
// @Accept json
// @Produce json
// @Param request body entity.Brief true "brand brief"
// @Success 202 {object} jobResp
// @Failure 400 {object} apiError
// @Router /api/jobs [post]
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var brief entity.Brief
	if err := json.NewDecoder(r.Body).Decode(&brief); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	job, err := h.jobSvc.Submit(brief)
	if err != nil {
		if errors.Is(err, entity.ErrValidation) {
			writeErr(w, http.StatusBadRequest, err.Error())
			return
		}
		writeErr(w, http.StatusInternalServerError, "failed to submit job")
		return
	}

	writeJSON(w, http.StatusAccepted, toJobResp(job))
}

// ListJobs godoc
// @Summary List recent jobs
// @Tags jobs
// @Produce json
// @Param limit query int false "maximum jobs to return (default 20)"
// @Success 200 {object} jobListResp
// @Router /api/jobs [get]
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	jobs := h.jobSvc.List(limit)
	resp := jobListResp{Jobs: make([]jobResp, 0, len(jobs)), Total: len(jobs)}
	for _, j := range jobs {
		resp.Jobs = append(resp.Jobs, toJobResp(j))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetJob godoc
// @Summary Get job status by id
// @Tags jobs
// @Produce json
// @Param id path string true "job id (uuid)"
// @Success 200 {object} jobResp
// @Failure 400 {object} apiError
// @Failure 404 {object} apiError
// @Router /api/jobs/{id} [get]
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobID(w, r)
	if !ok {
		return
	}
	job, err := h.jobSvc.Snapshot(id)
	if err != nil {
		writeErr(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, toJobResp(job))
}

// GetJobResult godoc
// @Summary Get the final result of a completed job
// @Tags jobs
// @Produce json
// @Param id path string true "job id (uuid)"
// @Success 200 {object} entity.WorkflowResult
// @Failure 400 {object} apiError
// @Failure 404 {object} apiError
// @Failure 409 {object} apiError
// @Router /api/jobs/{id}/result [get]
func (h *Handler) GetJobResult(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobID(w, r)
	if !ok {
		return
	}

	result, err := h.jobSvc.Result(id)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeErr(w, http.StatusNotFound, "job not found")
		case errors.Is(err, service.ErrResultNotReady):
			writeErr(w, http.StatusConflict, err.Error())
		default:
			writeErr(w, http.StatusInternalServerError, "failed to build result")
		}
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// CancelJob godoc
// @Summary Cancel a pending or running job
// @Tags jobs
// @Produce json
// @Param id path string true "job id (uuid)"
// @Success 200 {object} jobResp
// @Failure 400 {object} apiError
// @Failure 404 {object} apiError
// @Router /api/jobs/{id}/cancel [post]
func (h *Handler) CancelJob(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobID(w, r)
	if !ok {
		return
	}

	job, err := h.jobSvc.Cancel(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, "job not found")
			return
		}
		writeErr(w, http.StatusInternalServerError, "failed to cancel job")
		return
	}
	writeJSON(w, http.StatusOK, toJobResp(job))
}

// Health godoc
// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Root godoc
// @Summary API info
// @Tags system
// @Produce json
// @Success 200 {object} map[string]any
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "Brand Workflow Service",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"jobs":      "/api/jobs",
			"websocket": "/ws/{job_id}",
		},
	})
}

func (h *Handler) jobID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}
