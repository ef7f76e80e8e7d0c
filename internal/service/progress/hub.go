// Package progress fans publish progress events out to watchers of a handle.
package progress

import (
	"strings"
	"sync"
	"time"
)

// Stages of a publish.
const (
	StageStarted   = "started"
	StageRecord    = "record"
	StageCompleted = "completed"
	StageFailed    = "failed"
)

// Event reports one step of a publish.
type Event struct {
	PublishID string    `json:"publishId"`
	Handle    string    `json:"handle"`
	Stage     string    `json:"stage"`
	Index     int       `json:"index,omitempty"`
	Total     int       `json:"total,omitempty"`
	URI       string    `json:"uri,omitempty"`
	Error     string    `json:"error,omitempty"`
	Time      time.Time `json:"time"`
}

const subscriptionBuffer = 32

// Subscription receives events for one handle until cancelled.
type Subscription struct {
	C      <-chan Event
	ch     chan Event
	handle string
	hub    *Hub
	once   sync.Once
}

// Close stops delivery and closes C.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
	})
}

// Hub routes events by handle.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*Subscription]struct{})}
}

func normalize(handle string) string {
	return strings.ToLower(strings.TrimSpace(handle))
}

// Subscribe registers interest in a handle's publishes.
func (h *Hub) Subscribe(handle string) *Subscription {
	ch := make(chan Event, subscriptionBuffer)
	sub := &Subscription{C: ch, ch: ch, handle: normalize(handle), hub: h}

	h.mu.Lock()
	set, ok := h.subs[sub.handle]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[sub.handle] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()

	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[sub.handle]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, sub.handle)
		}
	}
	close(sub.ch)
}

// Publish delivers ev to every subscriber of ev.Handle. Subscribers whose
// buffer is full miss the event; publishing never blocks.
func (h *Hub) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[normalize(ev.Handle)] {
		select {
		case sub.ch <- ev:
		default:
		}
	}
}

// Subscribers returns how many watchers a handle has.
func (h *Hub) Subscribers(handle string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[normalize(handle)])
}
