package syncx

import (
	"sync"

	"github.com/google/uuid"

	"github.com/hankgpa/gpa-live/internal/course"
)

// Event is the envelope pushed to live channels. Type mirrors the wire
// protocol: init, update, deleted, rules, error.
type Event struct {
	Type    string             `json:"type"`
	Courses []course.Course    `json:"courses,omitempty"`
	Rules   []course.RuleRange `json:"rules,omitempty"`
	ID      int64              `json:"id,omitempty"`
	Message string             `json:"message,omitempty"`
}

const (
	EventInit    = "init"
	EventUpdate  = "update"
	EventDeleted = "deleted"
	EventRules   = "rules"
	EventError   = "error"
)

// Hub fans events out to every live channel subscribed to an owner. Channels
// are buffered and sends never block: a subscriber that cannot keep up drops
// events rather than stalling the mutation that triggered the push.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[string]chan Event // owner -> channel id -> chan
	buf  int
}

func NewHub() *Hub {
	return &Hub{subs: map[string]map[string]chan Event{}, buf: 16}
}

// Subscribe registers a live channel for owner. The returned cancel func is
// idempotent and closes the channel.
func (h *Hub) Subscribe(owner string) (<-chan Event, func()) {
	id := uuid.NewString()
	ch := make(chan Event, h.buf)

	h.mu.Lock()
	if _, ok := h.subs[owner]; !ok {
		h.subs[owner] = map[string]chan Event{}
	}
	h.subs[owner][id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if owned, ok := h.subs[owner]; ok {
				delete(owned, id)
				close(ch)
				if len(owned) == 0 {
					delete(h.subs, owner)
				}
			}
		})
	}
	return ch, cancel
}

// Publish delivers ev to all of owner's channels. Callers invoke this only
// after the underlying mutation committed.
func (h *Hub) Publish(owner string, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs[owner] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribers reports how many live channels owner has. Used by tests and the
// readiness probe.
func (h *Hub) Subscribers(owner string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[owner])
}
