package broadcast_test

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"brand-workflow-service/internal/broadcast"
	"brand-workflow-service/internal/entity"
)

func event(typ entity.EventType, progress int) entity.ProgressEvent {
	return entity.ProgressEvent{Type: typ, JobID: "job", Progress: progress, Timestamp: time.Now()}
}

func collect(t *testing.T, sub *broadcast.Subscription, n int) []entity.ProgressEvent {
	t.Helper()
	var out []entity.ProgressEvent
	timeout := time.After(2 * time.Second)
	for len(out) < n {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				t.Fatalf("feed closed after %d of %d events", len(out), n)
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatalf("timed out after %d of %d events", len(out), n)
		}
	}
	return out
}

func TestPublish_AllSubscribersSeeSameOrder(t *testing.T) {
	b := broadcast.New()
	s1 := b.Subscribe()
	s2 := b.Subscribe()

	published := []entity.ProgressEvent{
		event(entity.EventConnected, 0),
		event(entity.EventProgress, 5),
		event(entity.EventStepComplete, 50),
		event(entity.EventCompleted, 100),
	}
	for _, ev := range published {
		b.Publish(ev)
	}

	for _, sub := range []*broadcast.Subscription{s1, s2} {
		got := collect(t, sub, len(published))
		for i := range published {
			if got[i].Type != published[i].Type || got[i].Progress != published[i].Progress {
				t.Fatalf("event %d: got %s/%d, want %s/%d",
					i, got[i].Type, got[i].Progress, published[i].Type, published[i].Progress)
			}
		}
	}
}

func TestSubscribe_ReplaysOnlyLastEvent(t *testing.T) {
	b := broadcast.New()
	b.Publish(event(entity.EventConnected, 0))
	b.Publish(event(entity.EventStepComplete, 50))

	sub := b.Subscribe()
	got := collect(t, sub, 1)
	if got[0].Type != entity.EventStepComplete || got[0].Progress != 50 {
		t.Fatalf("expected replay of last event, got %s/%d", got[0].Type, got[0].Progress)
	}

	// nothing older than the replay may arrive
	select {
	case ev := <-sub.Events():
		t.Fatalf("unexpected extra event %s/%d", ev.Type, ev.Progress)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribe_FreshBroadcasterHasNoReplay(t *testing.T) {
	b := broadcast.New()
	sub := b.Subscribe()

	select {
	case ev := <-sub.Events():
		t.Fatalf("unexpected event %s on fresh subscription", ev.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublish_NeverBlocksOnSlowSubscriber(t *testing.T) {
	b := broadcast.New()
	sub := b.Subscribe()

	// far more events than the buffer holds; publisher must not stall
	done := make(chan struct{})
	go func() {
		for i := 0; i < 500; i++ {
			b.Publish(event(entity.EventProgress, i%100))
		}
		b.Publish(event(entity.EventCompleted, 100))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on a slow subscriber")
	}

	// oldest events were dropped; the terminal event must still be the last
	var last entity.ProgressEvent
	b.Close()
	for ev := range sub.Events() {
		last = ev
	}
	if last.Type != entity.EventCompleted {
		t.Fatalf("expected terminal event last, got %s", last.Type)
	}
}

func TestUnsubscribe_IdempotentAndIsolated(t *testing.T) {
	b := broadcast.New()
	s1 := b.Subscribe()
	s2 := b.Subscribe()

	s1.Close()
	s1.Close() // second close is a no-op

	b.Publish(event(entity.EventProgress, 10))
	got := collect(t, s2, 1)
	if got[0].Progress != 10 {
		t.Fatalf("remaining subscriber missed event: %+v", got[0])
	}
	if b.Subscribers() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", b.Subscribers())
	}
}

func TestClose_DrainsBufferedEventsThenEnds(t *testing.T) {
	b := broadcast.New()
	sub := b.Subscribe()

	b.Publish(event(entity.EventProgress, 10))
	b.Publish(event(entity.EventCompleted, 100))
	b.Close()

	got := collect(t, sub, 2)
	if got[1].Type != entity.EventCompleted {
		t.Fatalf("expected buffered terminal event, got %s", got[1].Type)
	}
	if _, ok := <-sub.Events(); ok {
		t.Fatal("expected closed feed")
	}

	// publishing after close is a no-op
	b.Publish(event(entity.EventProgress, 10))

	// subscribing after close yields an already-closed feed
	late := b.Subscribe()
	if _, ok := <-late.Events(); ok {
		t.Fatal("expected closed feed for late subscriber")
	}
}

func TestHub_CreateLookupRetire(t *testing.T) {
	h := broadcast.NewHub()
	id := uuid.New()

	b := h.Create(id)
	if h.Create(id) != b {
		t.Fatal("expected Create to return the existing broadcaster")
	}
	if h.Lookup(id) != b {
		t.Fatal("expected Lookup to find the broadcaster")
	}

	sub := h.Subscribe(id)
	if sub == nil {
		t.Fatal("expected subscription")
	}
	h.Publish(id, event(entity.EventProgress, 10))
	got := collect(t, sub, 1)
	if got[0].Progress != 10 {
		t.Fatalf("unexpected event %+v", got[0])
	}

	h.Retire(id)
	h.Retire(id) // idempotent
	if h.Lookup(id) != nil {
		t.Fatal("expected broadcaster removed")
	}
	if h.Subscribe(id) != nil {
		t.Fatal("expected nil subscription after retire")
	}
	if _, ok := <-sub.Events(); ok {
		t.Fatal("expected feed closed by retire")
	}
}
