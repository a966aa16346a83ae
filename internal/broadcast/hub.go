package broadcast

import (
	"sync"

	"github.com/google/uuid"

	"brand-workflow-service/internal/entity"
)

// Hub tracks one broadcaster per live job. Broadcasters are created with the
// job record and retired once the job is terminal, or when the record is
// evicted from the store.
type Hub struct {
	mu sync.Mutex
	m  map[uuid.UUID]*Broadcaster
}

func NewHub() *Hub {
	return &Hub{m: make(map[uuid.UUID]*Broadcaster)}
}

// Create registers a broadcaster for the job, returning the existing one if
// already present.
func (h *Hub) Create(id uuid.UUID) *Broadcaster {
	h.mu.Lock()
	defer h.mu.Unlock()
	if b, ok := h.m[id]; ok {
		return b
	}
	b := New()
	h.m[id] = b
	return b
}

// Lookup returns the job's broadcaster, or nil when none is registered.
func (h *Hub) Lookup(id uuid.UUID) *Broadcaster {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.m[id]
}

// Subscribe attaches a new feed to the job's broadcaster. Returns nil when
// the broadcaster has already been retired.
func (h *Hub) Subscribe(id uuid.UUID) *Subscription {
	b := h.Lookup(id)
	if b == nil {
		return nil
	}
	return b.Subscribe()
}

// Publish forwards ev to the job's broadcaster, if any.
func (h *Hub) Publish(id uuid.UUID, ev entity.ProgressEvent) {
	if b := h.Lookup(id); b != nil {
		b.Publish(ev)
	}
}

// Retire closes and removes the job's broadcaster. Idempotent.
func (h *Hub) Retire(id uuid.UUID) {
	h.mu.Lock()
	b, ok := h.m[id]
	if ok {
		delete(h.m, id)
	}
	h.mu.Unlock()
	if ok {
		b.Close()
	}
}
