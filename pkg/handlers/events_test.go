package handlers

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"socialfeed/pkg/broadcast"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func dialEvents(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("cannot dial: %v", err)
	}
	return ws
}

func waitSubscribers(t *testing.T, hub *broadcast.Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for hub.Len() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d subscribers, but was %d", n, hub.Len())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestEventsHandlerStreamsEvents(t *testing.T) {
	hub := broadcast.NewHub(8, zap.NewNop().Sugar())
	srv := httptest.NewServer(&EventsHandler{Bus: hub, Logger: zap.NewNop().Sugar()})
	defer srv.Close()

	ws := dialEvents(t, srv)
	defer ws.Close()
	waitSubscribers(t, hub, 1)

	e, _ := broadcast.NewEvent(broadcast.PostDeleted, &broadcast.Deleted{ID: "abc"})
	hub.Publish(context.Background(), e)

	ws.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if string(msg) != "{\"event\":\"post:deleted\",\"data\":{\"id\":\"abc\"}}\n" {
		t.Errorf("unexpected frame %q", msg)
	}
}

func TestEventsHandlerUnsubscribesOnClose(t *testing.T) {
	hub := broadcast.NewHub(8, zap.NewNop().Sugar())
	srv := httptest.NewServer(&EventsHandler{Bus: hub, Logger: zap.NewNop().Sugar()})
	defer srv.Close()

	ws := dialEvents(t, srv)
	waitSubscribers(t, hub, 1)

	ws.Close()
	waitSubscribers(t, hub, 0)
}

type closingBus struct {
	c chan *broadcast.Event
}

func (b *closingBus) Publish(context.Context, *broadcast.Event) error { return nil }

func (b *closingBus) Subscribe() *broadcast.Subscription {
	return &broadcast.Subscription{ID: "dropped", C: b.c}
}

func (b *closingBus) Unsubscribe(*broadcast.Subscription) {}

func TestEventsHandlerClosesDroppedSubscriber(t *testing.T) {
	bus := &closingBus{c: make(chan *broadcast.Event)}
	close(bus.c)

	srv := httptest.NewServer(&EventsHandler{Bus: bus, Logger: zap.NewNop().Sugar()})
	defer srv.Close()

	ws := dialEvents(t, srv)
	defer ws.Close()

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := ws.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseTryAgainLater) {
		t.Fatalf("expected try again later close, but was %v", err)
	}
}
