package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is one item pushed to a user's live stream.
type Event struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

const subscriberBuffer = 16

// Hub fans events out to per-user subscribers. Delivery is at-most-once and
// best-effort: a subscriber with a full buffer misses the event rather than
// blocking the publisher. State is partitioned by user id; publishing to one
// user never touches another's subscribers.
type Hub struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[uuid.UUID]map[chan Event]struct{})}
}

// Subscribe registers a listener for the user's events. The returned cancel
// function must be called when the listener goes away; it closes the channel.
func (h *Hub) Subscribe(userID uuid.UUID) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[chan Event]struct{})
	}
	h.subs[userID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[userID], ch)
			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers the event to the user's current subscribers. Never blocks.
func (h *Hub) Publish(userID uuid.UUID, eventType string, payload any) {
	var raw json.RawMessage
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			raw = data
		}
	}
	event := Event{Type: eventType, Payload: raw, Timestamp: time.Now()}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[userID] {
		select {
		case ch <- event:
		default:
			// Slow subscriber: drop rather than block.
		}
	}
}

// Subscribers reports the user's current listener count.
func (h *Hub) Subscribers(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}
