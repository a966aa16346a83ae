package httptransport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"brand-workflow-service/internal/entity"
)

const (
	// keepaliveInterval matches the client's ~25s ping cadence with margin;
	// clients that never ping are tolerated.
	keepaliveInterval = 30 * time.Second
	writeTimeout      = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Progress streams carry no credentials; any origin may watch a job.
	CheckOrigin: func(*http.Request) bool { return true },
}

type keepaliveFrame struct {
	Type entity.EventType `json:"type"`
}

// StreamJob serves the live progress stream for one job. The connection is a
// pure observer: its lifecycle never affects the executor, and any number of
// connections may watch the same job, each seeing the identical event order.
func (h *Handler) StreamJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "job_id", id.String(), "error", err)
		return
	}
	defer conn.Close()

	job, err := h.jobSvc.Snapshot(id)
	if err != nil {
		_ = h.writeEvent(conn, entity.NewProgressEvent(entity.EventError, id, "", 0, "Job not found"))
		return
	}

	// Snapshot-derived context so a late joiner knows where the job stands
	// before any live event arrives.
	connected := entity.NewProgressEvent(entity.EventConnected, id, job.CurrentStep, job.Progress, "Connected to job progress stream")
	if err := h.writeEvent(conn, connected); err != nil {
		return
	}

	if job.Status.Terminal() {
		h.sendTerminal(conn, job)
		return
	}

	sub := h.jobSvc.Subscribe(id)
	if sub == nil {
		// Broadcaster retired between snapshot and subscribe; the job just
		// went terminal.
		if job, err := h.jobSvc.Snapshot(id); err == nil {
			h.sendTerminal(conn, job)
		}
		return
	}
	defer sub.Close()

	// Reads and writes proceed independently so a silent client cannot
	// stall event delivery. gorilla allows a single writer, so pongs are
	// funneled through the write loop.
	pong := make(chan struct{}, 1)
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if string(msg) == "ping" {
				select {
				case pong <- struct{}{}:
				default:
				}
			}
		}
	}()

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				// Broadcaster retired; the terminal event was already
				// delivered from the buffer.
				return
			}
			if err := h.writeEvent(conn, ev); err != nil {
				h.logger.Debug("stream write failed", "job_id", id.String(), "error", err)
				return
			}
			if ev.Terminal() {
				return
			}
		case <-pong:
			if err := h.writeMessage(conn, []byte("pong")); err != nil {
				return
			}
		case <-keepalive.C:
			if err := h.writeFrame(conn, keepaliveFrame{Type: entity.EventKeepalive}); err != nil {
				return
			}
		case <-readerDone:
			return
		case <-r.Context().Done():
			return
		}
	}
}

// sendTerminal reflects an already finished job's final state and leaves the
// connection to close after flushing.
func (h *Handler) sendTerminal(conn *websocket.Conn, job entity.Job) {
	switch job.Status {
	case entity.StatusCompleted:
		_ = h.writeEvent(conn, entity.NewProgressEvent(entity.EventCompleted, job.ID, job.CurrentStep, 100, "Job already completed"))
	case entity.StatusFailed:
		msg := "Job failed"
		if job.Error != nil {
			msg = "Job failed: " + *job.Error
		}
		_ = h.writeEvent(conn, entity.NewProgressEvent(entity.EventError, job.ID, job.CurrentStep, job.Progress, msg))
	}
}

func (h *Handler) writeEvent(conn *websocket.Conn, ev entity.ProgressEvent) error {
	return h.writeFrame(conn, ev)
}

func (h *Handler) writeFrame(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(v)
}

func (h *Handler) writeMessage(conn *websocket.Conn, msg []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, msg)
}
