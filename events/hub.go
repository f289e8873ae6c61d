package events

import (
	"context"
	"sync"
	"time"

	"engagement-engine/models"
)

type subscription struct {
	userID string // empty receives every user's events
	ch     chan models.Event
}

// Hub fans events out to in-process subscribers. Publish never blocks:
// a subscriber whose buffer is full misses the event.
type Hub struct {
	mu   sync.RWMutex
	subs map[*subscription]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[*subscription]struct{})}
}

func (h *Hub) Publish(evts ...models.Event) {
	if h == nil || len(evts) == 0 {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, evt := range evts {
		if evt.OccurredAt.IsZero() {
			evt.OccurredAt = time.Now()
		}
		for sub := range h.subs {
			if sub.userID != "" && sub.userID != evt.UserID {
				continue
			}
			select {
			case sub.ch <- evt:
			default:
				// slow consumer, drop
			}
		}
	}
}

// Subscribe registers until ctx is done, then closes the channel.
func (h *Hub) Subscribe(ctx context.Context, userID string, buffer int) <-chan models.Event {
	if buffer <= 0 {
		buffer = 16
	}
	sub := &subscription{userID: userID, ch: make(chan models.Event, buffer)}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, sub)
		h.mu.Unlock()
		close(sub.ch)
	}()

	return sub.ch
}

// Subscribers returns the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
