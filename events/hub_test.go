package events

import (
	"context"
	"testing"
	"time"

	"engagement-engine/models"
)

func TestHubRoutesByUser(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	alice := h.Subscribe(ctx, "alice", 4)
	all := h.Subscribe(ctx, "", 4)

	h.Publish(
		models.Event{Type: models.EventXPGained, UserID: "alice", XP: 30},
		models.Event{Type: models.EventXPGained, UserID: "bob", XP: 10},
	)

	select {
	case ev := <-alice:
		if ev.UserID != "alice" || ev.XP != 30 || ev.OccurredAt.IsZero() {
			t.Fatalf("ev=%+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("alice got nothing")
	}
	select {
	case ev := <-alice:
		t.Fatalf("alice received someone else's event: %+v", ev)
	default:
	}
	if len(all) != 2 {
		t.Fatalf("wildcard subscriber got %d events, want 2", len(all))
	}
}

func TestHubNeverBlocksOnSlowConsumer(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	slow := h.Subscribe(ctx, "u", 1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			h.Publish(models.Event{Type: models.EventCoinsGained, UserID: "u"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	if len(slow) != 1 {
		t.Fatalf("buffered=%d, want 1", len(slow))
	}
}

func TestHubUnsubscribesOnCancel(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	ch := h.Subscribe(ctx, "u", 1)
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
	if h.Subscribers() != 0 {
		t.Fatalf("subscribers=%d", h.Subscribers())
	}

	var nilHub *Hub
	nilHub.Publish(models.Event{Type: models.EventXPGained})
}
