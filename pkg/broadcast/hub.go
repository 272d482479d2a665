package broadcast

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultBuffer = 64

// Hub is an in-process Bus. Publish never blocks: a subscriber whose buffer
// is full is dropped and its channel closed.
type Hub struct {
	subs   map[string]chan *Event
	mu     *sync.Mutex
	buffer int
	logger *zap.SugaredLogger
}

func NewHub(buffer int, logger *zap.SugaredLogger) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}

	return &Hub{
		subs:   make(map[string]chan *Event),
		mu:     &sync.Mutex{},
		buffer: buffer,
		logger: logger,
	}
}

func (h *Hub) Subscribe() *Subscription {
	ch := make(chan *Event, h.buffer)
	id := uuid.New().String()

	h.mu.Lock()
	h.subs[id] = ch
	h.mu.Unlock()

	h.logger.Debugw("subscriber added", "subscriber", id)
	return &Subscription{ID: id, C: ch}
}

func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[sub.ID]; ok {
		delete(h.subs, sub.ID)
		close(ch)
	}
}

func (h *Hub) Publish(ctx context.Context, e *Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.subs {
		select {
		case ch <- e:
		default:
			delete(h.subs, id)
			close(ch)
			h.logger.Warnw("dropping slow subscriber", "subscriber", id, "event", e.Kind)
		}
	}

	return nil
}

// Len returns the number of current subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
