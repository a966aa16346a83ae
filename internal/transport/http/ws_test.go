package httptransport_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"brand-workflow-service/internal/entity"
)

func dialStream(t *testing.T, srvURL, id string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srvURL, "http") + "/ws/" + id
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readEvent reads the next JSON frame. Plain text frames (pong) fail the
// decode and are surfaced as an error.
func readEvent(t *testing.T, conn *websocket.Conn) entity.ProgressEvent {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var ev entity.ProgressEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	return ev
}

func TestStreamJob_LiveRunEndsWithTerminalEvent(t *testing.T) {
	pipe, release := stallPipeline(t)
	srv, _ := newTestServer(t, pipe)

	id := submitJob(t, srv)
	waitStatus(t, srv, id, string(entity.StatusRunning))

	conn := dialStream(t, srv.URL, id)

	first := readEvent(t, conn)
	if first.Type != entity.EventConnected {
		t.Fatalf("expected connected event first, got %s", first.Type)
	}
	if first.JobID != id {
		t.Fatalf("expected job id %s, got %s", id, first.JobID)
	}

	close(release)

	prev := first.Progress
	var last entity.ProgressEvent
	for {
		ev := readEvent(t, conn)
		if ev.Progress < prev {
			t.Fatalf("progress regressed %d -> %d", prev, ev.Progress)
		}
		prev = ev.Progress
		if ev.Terminal() {
			last = ev
			break
		}
	}
	if last.Type != entity.EventCompleted || last.Progress != 100 {
		t.Fatalf("expected completed@100, got %s@%d", last.Type, last.Progress)
	}

	// server closes the stream after the terminal event
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected stream closed after terminal event")
	}
}

func TestStreamJob_TwoObserversSeeSameTerminal(t *testing.T) {
	pipe, release := stallPipeline(t)
	srv, _ := newTestServer(t, pipe)

	id := submitJob(t, srv)
	waitStatus(t, srv, id, string(entity.StatusRunning))

	c1 := dialStream(t, srv.URL, id)
	c2 := dialStream(t, srv.URL, id)
	readEvent(t, c1) // connected
	readEvent(t, c2)

	close(release)

	for _, conn := range []*websocket.Conn{c1, c2} {
		for {
			ev := readEvent(t, conn)
			if ev.Terminal() {
				if ev.Type != entity.EventCompleted {
					t.Fatalf("expected completed, got %s", ev.Type)
				}
				break
			}
		}
	}
}

func TestStreamJob_PingGetsPong(t *testing.T) {
	pipe, release := stallPipeline(t)
	defer close(release)
	srv, _ := newTestServer(t, pipe)

	id := submitJob(t, srv)
	waitStatus(t, srv, id, string(entity.StatusRunning))

	conn := dialStream(t, srv.URL, id)
	readEvent(t, conn) // connected

	if err := conn.WriteMessage(websocket.TextMessage, []byte("ping")); err != nil {
		t.Fatalf("write ping: %v", err)
	}

	// events may interleave with the pong
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if string(msg) == "pong" {
			return
		}
		if !json.Valid(msg) {
			t.Fatalf("unexpected frame %q", msg)
		}
	}
	t.Fatal("never received pong")
}

func TestStreamJob_CompletedJobGetsFinalStateThenClose(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	id := submitJob(t, srv)
	waitStatus(t, srv, id, string(entity.StatusCompleted))

	conn := dialStream(t, srv.URL, id)

	first := readEvent(t, conn)
	if first.Type != entity.EventConnected || first.Progress != 100 {
		t.Fatalf("expected connected@100, got %s@%d", first.Type, first.Progress)
	}
	final := readEvent(t, conn)
	if final.Type != entity.EventCompleted || final.Progress != 100 {
		t.Fatalf("expected completed@100, got %s@%d", final.Type, final.Progress)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected connection closed after final state")
	}
}

func TestStreamJob_FailedJobReportsError(t *testing.T) {
	pipe, release := stallPipeline(t)
	defer close(release)
	srv, mgr := newTestServer(t, pipe)

	id := submitJob(t, srv)
	waitStatus(t, srv, id, string(entity.StatusRunning))

	parsed, err := uuid.Parse(id)
	if err != nil {
		t.Fatalf("parse id: %v", err)
	}
	if _, err := mgr.Cancel(parsed); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	waitStatus(t, srv, id, string(entity.StatusFailed))

	conn := dialStream(t, srv.URL, id)
	readEvent(t, conn) // connected
	final := readEvent(t, conn)
	if final.Type != entity.EventError {
		t.Fatalf("expected error event, got %s", final.Type)
	}
	if !strings.Contains(final.Message, "Job failed") {
		t.Fatalf("expected failure message, got %q", final.Message)
	}
}

func TestStreamJob_UnknownJob(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	conn := dialStream(t, srv.URL, "00000000-0000-0000-0000-000000000001")
	ev := readEvent(t, conn)
	if ev.Type != entity.EventError {
		t.Fatalf("expected error event, got %s", ev.Type)
	}
	if !strings.Contains(ev.Message, "not found") {
		t.Fatalf("expected not-found message, got %q", ev.Message)
	}
}
