package broadcast

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

func receive(t *testing.T, sub *Subscription) *Event {
	t.Helper()
	select {
	case e, ok := <-sub.C:
		if !ok {
			t.Fatal("subscription closed")
		}
		return e
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
	return nil
}

func TestHubFanOut(t *testing.T) {
	hub := NewHub(8, zap.NewNop().Sugar())
	first := hub.Subscribe()
	second := hub.Subscribe()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		e, _ := NewEvent(PostUpdated, map[string]int{"seq": i})
		if err := hub.Publish(ctx, e); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	for _, sub := range []*Subscription{first, second} {
		for i := 0; i < 3; i++ {
			var payload map[string]int
			if err := receive(t, sub).Decode(&payload); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if payload["seq"] != i {
				t.Errorf("subscriber %s: expected seq %d, but was %d", sub.ID, i, payload["seq"])
			}
		}
	}
}

func TestHubUnsubscribe(t *testing.T) {
	hub := NewHub(8, zap.NewNop().Sugar())
	sub := hub.Subscribe()
	hub.Unsubscribe(sub)
	hub.Unsubscribe(sub)

	if _, ok := <-sub.C; ok {
		t.Error("expected closed channel")
	}

	e, _ := NewEvent(PostDeleted, &Deleted{ID: "x"})
	hub.Publish(context.Background(), e)

	if hub.Len() != 0 {
		t.Errorf("expected no subscribers, but was %d", hub.Len())
	}
}

func TestHubDropsSlowSubscriber(t *testing.T) {
	hub := NewHub(2, zap.NewNop().Sugar())
	slow := hub.Subscribe()
	fast := hub.Subscribe()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		e, _ := NewEvent(PostCreated, i)
		hub.Publish(ctx, e)
		if i < 2 {
			receive(t, fast)
		}
	}

	if hub.Len() != 1 {
		t.Fatalf("expected slow subscriber to be dropped, %d left", hub.Len())
	}

	receive(t, slow)
	receive(t, slow)
	if _, ok := <-slow.C; ok {
		t.Error("expected the slow subscription to be closed after buffered events")
	}

	receive(t, fast)
}

func TestEventJSON(t *testing.T) {
	e, err := NewEvent(PostDeleted, &Deleted{ID: "abc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if string(e.Data) != `{"id":"abc"}` {
		t.Errorf("unexpected payload %s", e.Data)
	}
}
