package broadcast

import (
	"context"
	"encoding/json"
	"math"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

type PubSubClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// RedisBus publishes through a redis channel so that every server instance
// sees every event. Local observers are served by an embedded Hub fed from a
// single relay goroutine.
//
// Instances publish in the order their messages reach redis, which for one
// post may differ from its commit order. The relay therefore tracks the last
// version relayed per post id and drops created or updated events that are
// not newer, as well as any event for a post already reported deleted.
type RedisBus struct {
	rdb     PubSubClient
	channel string
	hub     *Hub
	logger  *zap.SugaredLogger
	done    chan struct{}

	// relayed is owned by the relay goroutine
	relayed map[string]int64
}

// revision is the part of a post payload the relay orders by.
type revision struct {
	ID      string `json:"id"`
	Version int64  `json:"version"`
}

const deletedVersion = math.MaxInt64

func NewRedisBus(ctx context.Context, rdb PubSubClient, channel string, hub *Hub, logger *zap.SugaredLogger) (*RedisBus, error) {
	ps := rdb.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, err
	}

	b := &RedisBus{
		rdb:     rdb,
		channel: channel,
		hub:     hub,
		logger:  logger,
		done:    make(chan struct{}),
		relayed: make(map[string]int64),
	}
	go b.relay(ctx, ps)

	return b, nil
}

func (b *RedisBus) Publish(ctx context.Context, e *Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}

	return b.rdb.Publish(ctx, b.channel, payload).Err()
}

func (b *RedisBus) Subscribe() *Subscription {
	return b.hub.Subscribe()
}

func (b *RedisBus) Unsubscribe(sub *Subscription) {
	b.hub.Unsubscribe(sub)
}

// Done is closed once the relay stops.
func (b *RedisBus) Done() <-chan struct{} {
	return b.done
}

func (b *RedisBus) relay(ctx context.Context, ps *redis.PubSub) {
	defer close(b.done)
	defer ps.Close()

	messages := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}

			e := &Event{}
			if err := json.Unmarshal([]byte(msg.Payload), e); err != nil {
				b.logger.Errorw("bad event on redis channel", "channel", msg.Channel, "error", err)
				continue
			}

			if b.stale(e) {
				b.logger.Debugw("dropping stale event", "event", e.Kind)
				continue
			}
			b.hub.Publish(ctx, e)
		}
	}
}

// stale reports whether e is older than what was already relayed for its
// post. Payloads without an id pass through.
func (b *RedisBus) stale(e *Event) bool {
	rev := revision{}
	if err := e.Decode(&rev); err != nil || rev.ID == "" {
		return false
	}

	last := b.relayed[rev.ID]
	if e.Kind == PostDeleted {
		b.relayed[rev.ID] = deletedVersion
		return last == deletedVersion
	}

	if rev.Version <= last {
		return true
	}
	b.relayed[rev.ID] = rev.Version
	return false
}
