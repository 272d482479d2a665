package broadcast

import (
	"context"
	"encoding/json"
)

type Kind string

const (
	PostCreated Kind = "post:created"
	PostUpdated Kind = "post:updated"
	PostDeleted Kind = "post:deleted"
)

// Event is the frame sent to observers. Data is serialized when the event is
// built, so later changes to the source value never leak into it.
type Event struct {
	Kind Kind            `json:"event"`
	Data json.RawMessage `json:"data"`
}

type Deleted struct {
	ID string `json:"id"`
}

func NewEvent(kind Kind, payload interface{}) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{Kind: kind, Data: data}, nil
}

// Decode unmarshals the event payload into v.
func (e *Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

type Subscription struct {
	ID string
	C  <-chan *Event
}

// Bus fans events out to every current subscriber.
type Bus interface {
	Publish(ctx context.Context, e *Event) error
	Subscribe() *Subscription
	Unsubscribe(sub *Subscription)
}
