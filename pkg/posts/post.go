package posts

import (
	"strings"
	"time"
)

type Action string

const (
	Like    Action = "like"
	Dislike Action = "dislike"
)

func (a Action) Valid() bool {
	return a == Like || a == Dislike
}

type Post struct {
	ID        string            `bson:"_id" json:"id"`
	Author    string            `bson:"author" json:"author"`
	Content   string            `bson:"content" json:"content"`
	Likes     int               `bson:"likes" json:"likes"`
	Dislikes  int               `bson:"dislikes" json:"dislikes"`
	Reactions map[string]Action `bson:"reactions" json:"reactions"`
	Replies   []*Reply          `bson:"replies" json:"replies"`
	CreatedAt time.Time         `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time         `bson:"updatedAt" json:"updatedAt"`
	// Version is bumped by every committed write and guards updates.
	Version int64 `bson:"version" json:"version"`
}

type Reply struct {
	Author    string    `bson:"author" json:"author"`
	Content   string    `bson:"content" json:"content"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// NewPost builds a post with zero counters and no replies or reactions.
func NewPost(author, content string, now time.Time) (*Post, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}

	return &Post{
		Author:    author,
		Content:   content,
		Reactions: map[string]Action{},
		Replies:   []*Reply{},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Clone returns a deep copy so callers can mutate it without touching shared
// state. Nil collections stay nil.
func (p *Post) Clone() *Post {
	c := *p
	if p.Reactions != nil {
		c.Reactions = make(map[string]Action, len(p.Reactions))
		for u, a := range p.Reactions {
			c.Reactions[u] = a
		}
	}

	if p.Replies != nil {
		c.Replies = make([]*Reply, 0, len(p.Replies))
		for _, r := range p.Replies {
			reply := *r
			c.Replies = append(c.Replies, &reply)
		}
	}

	return &c
}

// ReactionOf reports the user's current reaction, if any.
func (p *Post) ReactionOf(username string) (Action, bool) {
	a, ok := p.Reactions[username]
	return a, ok
}
