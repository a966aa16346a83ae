// Package broadcast fans progress events out to a job's live stream
// subscribers. Publishing never blocks the executor: each subscription has a
// bounded buffer and the oldest pending event is dropped when a slow
// consumer falls behind. Delivery order is the publish order for every
// subscriber.
package broadcast

import (
	"sync"

	"brand-workflow-service/internal/entity"
)

const subscriberBuffer = 32

// Broadcaster multicasts events for one job.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	last   *entity.ProgressEvent
	closed bool
}

// Subscription is a pure observer of one job's event feed. Closing it has no
// effect on the job or its executor.
type Subscription struct {
	b    *Broadcaster
	ch   chan entity.ProgressEvent
	once sync.Once
}

func New() *Broadcaster {
	return &Broadcaster{subs: make(map[*Subscription]struct{})}
}

// Publish delivers ev to every current subscriber in order and records it as
// the replay event for late joiners. Publishing to a closed broadcaster is a
// no-op.
func (b *Broadcaster) Publish(ev entity.ProgressEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.last = &ev
	for sub := range b.subs {
		sub.send(ev)
	}
}

// Subscribe registers a new observer. The feed starts with a replay of the
// most recent event, when one exists, then receives everything published
// afterwards. Subscribing after Close returns an already-closed feed.
func (b *Broadcaster) Subscribe() *Subscription {
	sub := &Subscription{b: b, ch: make(chan entity.ProgressEvent, subscriberBuffer)}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(sub.ch)
		return sub
	}
	if b.last != nil {
		sub.ch <- *b.last
	}
	b.subs[sub] = struct{}{}
	return sub
}

// Close detaches and closes all subscriptions. Buffered events still drain
// on the consumer side before the feed reports closed.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		delete(b.subs, sub)
		close(sub.ch)
	}
}

// Subscribers reports the number of attached feeds.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Events is the subscriber's feed. It is closed when the broadcaster is
// retired or the subscription is closed.
func (s *Subscription) Events() <-chan entity.ProgressEvent {
	return s.ch
}

// Close removes the subscription. Idempotent.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.b.mu.Lock()
		if _, ok := s.b.subs[s]; ok {
			delete(s.b.subs, s)
			close(s.ch)
		}
		s.b.mu.Unlock()
	})
}

// send enqueues without blocking; when the buffer is full the oldest pending
// event is dropped in favor of the new one.
func (s *Subscription) send(ev entity.ProgressEvent) {
	select {
	case s.ch <- ev:
		return
	default:
	}
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- ev:
	default:
	}
}
