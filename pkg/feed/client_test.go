package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"socialfeed/pkg/broadcast"
	"socialfeed/pkg/posts"

	"github.com/go-playground/assert/v2"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// fakeServer serves a listing and, per websocket connection, sends the
// queued events and hangs up.
type fakeServer struct {
	listings int32
	events   []*broadcast.Event
}

func (s *fakeServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/posts", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&s.listings, 1)
		list := []*posts.Post{post("a", "alice", "1")}
		if n > 1 {
			list = append([]*posts.Post{post("b", "bob", "after reconnect")}, list...)
		}
		json.NewEncoder(w).Encode(list)
	})

	upgrader := websocket.Upgrader{}
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()

		for _, e := range s.events {
			ws.WriteJSON(e)
		}
		ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	})
	return mux
}

func TestClientSyncsAndReconnects(t *testing.T) {
	liked := post("a", "alice", "1")
	liked.Likes = 1
	liked.Reactions["bob"] = posts.Like

	srv := &fakeServer{events: []*broadcast.Event{
		event(t, broadcast.PostUpdated, liked),
	}}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	settings := DefaultClientSettings()
	settings.ReconnectTimeout = 10 * time.Millisecond

	client, err := NewClient(ts.URL, Session{Username: "bob"}, settings, zap.NewNop().Sugar())
	assert.Equal(t, err, nil)

	resets := make(chan []string, 10)
	changes := make(chan Change, 10)
	client.OnReset = func(list []*posts.Post, s Session) {
		if s.Username != "bob" {
			t.Errorf("unexpected session %+v", s)
		}
		resets <- ids(list)
	}
	client.OnChange = func(c Change, s Session) {
		changes <- c
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	select {
	case got := <-resets:
		assert.Equal(t, got, []string{"a"})
	case <-time.After(2 * time.Second):
		t.Fatal("no initial listing")
	}

	select {
	case c := <-changes:
		assert.Equal(t, c.Kind, Replaced)
		a, ok := Highlighted(c.Post, Session{Username: "bob"})
		assert.Equal(t, ok, true)
		assert.Equal(t, a, posts.Like)
	case <-time.After(2 * time.Second):
		t.Fatal("no change delivered")
	}

	select {
	case got := <-resets:
		assert.Equal(t, got, []string{"b", "a"})
	case <-time.After(2 * time.Second):
		t.Fatal("client did not resync after the connection closed")
	}

	cancel()
	select {
	case err := <-done:
		assert.Equal(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("client did not stop")
	}
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient("ftp://example.com", Session{}, nil, zap.NewNop().Sugar())
	assert.NotEqual(t, err, nil)
}

func TestClientURLs(t *testing.T) {
	c, err := NewClient("https://feed.example.com/", Session{}, nil, zap.NewNop().Sugar())
	assert.Equal(t, err, nil)
	assert.Equal(t, c.wsURL(), "wss://feed.example.com/ws")
}
