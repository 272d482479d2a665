package posts

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

type reactionCase struct {
	name        string
	post        *Post
	user        string
	action      Action
	changed     bool
	err         error
	likes       int
	dislikes    int
	expectedMap map[string]Action
}

func postWith(likes, dislikes int, reactions map[string]Action) *Post {
	return &Post{ID: "p1", Author: "alice", Content: "hello", Likes: likes, Dislikes: dislikes, Reactions: reactions}
}

var reactionCases = []reactionCase{
	{
		name:        "FirstLike",
		post:        postWith(0, 0, map[string]Action{}),
		user:        "bob",
		action:      Like,
		changed:     true,
		likes:       1,
		expectedMap: map[string]Action{"bob": Like},
	},
	{
		name:        "FirstDislikeNilMap",
		post:        postWith(0, 0, nil),
		user:        "bob",
		action:      Dislike,
		changed:     true,
		dislikes:    1,
		expectedMap: map[string]Action{"bob": Dislike},
	},
	{
		name:        "RepeatedLikeIsNoop",
		post:        postWith(1, 0, map[string]Action{"bob": Like}),
		user:        "bob",
		action:      Like,
		changed:     false,
		likes:       1,
		expectedMap: map[string]Action{"bob": Like},
	},
	{
		name:        "SwitchLikeToDislike",
		post:        postWith(2, 0, map[string]Action{"bob": Like, "carol": Like}),
		user:        "bob",
		action:      Dislike,
		changed:     true,
		likes:       1,
		dislikes:    1,
		expectedMap: map[string]Action{"bob": Dislike, "carol": Like},
	},
	{
		name:        "SwitchDislikeToLike",
		post:        postWith(0, 1, map[string]Action{"bob": Dislike}),
		user:        "bob",
		action:      Like,
		changed:     true,
		likes:       1,
		expectedMap: map[string]Action{"bob": Like},
	},
	{
		name:        "InvalidAction",
		post:        postWith(0, 0, map[string]Action{}),
		user:        "bob",
		action:      Action("love"),
		err:         ErrInvalidAction,
		expectedMap: map[string]Action{},
	},
	{
		name:        "NegativeCounterFailsLoudly",
		post:        postWith(0, 0, map[string]Action{"bob": Like}),
		user:        "bob",
		action:      Dislike,
		err:         ErrInconsistentState,
		expectedMap: map[string]Action{"bob": Like},
	},
	{
		name:        "UnknownStoredReaction",
		post:        postWith(0, 0, map[string]Action{"bob": Action("meh")}),
		user:        "bob",
		action:      Like,
		err:         ErrInconsistentState,
		expectedMap: map[string]Action{"bob": Action("meh")},
	},
}

func TestApplyReaction(t *testing.T) {
	for i, c := range reactionCases {
		changed, err := ApplyReaction(c.post, c.user, c.action)
		if c.err != nil {
			if !errors.Is(err, c.err) {
				t.Errorf("test #%d %s fail, expected error %v, but was %v", i, c.name, c.err, err)
			}
		} else if err != nil {
			t.Errorf("test #%d %s fail, unexpected error: %v", i, c.name, err)
		}

		if changed != c.changed {
			t.Errorf("test #%d %s fail, expected changed=%v, but was %v", i, c.name, c.changed, changed)
		}

		if c.post.Likes != c.likes || c.post.Dislikes != c.dislikes {
			t.Errorf("test #%d %s fail, expected %d/%d, but was %d/%d",
				i, c.name, c.likes, c.dislikes, c.post.Likes, c.post.Dislikes)
		}

		if len(c.expectedMap) > 0 && !reflect.DeepEqual(c.post.Reactions, c.expectedMap) {
			t.Errorf("test #%d %s fail, expected reactions %v, but was %v", i, c.name, c.expectedMap, c.post.Reactions)
		}
	}
}

func TestApplyReactionSequenceKeepsCounters(t *testing.T) {
	p, err := NewPost("alice", "hello", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	steps := []struct {
		user   string
		action Action
	}{
		{"bob", Like}, {"carol", Dislike}, {"bob", Like}, {"bob", Dislike},
		{"dave", Like}, {"carol", Like}, {"carol", Like}, {"dave", Dislike}, {"erin", Like},
	}

	for i, s := range steps {
		if _, err := ApplyReaction(p, s.user, s.action); err != nil {
			t.Fatalf("step #%d unexpected error: %v", i, err)
		}
		if err := CheckCounters(p); err != nil {
			t.Fatalf("step #%d: %v", i, err)
		}
	}

	if p.Likes != 2 || p.Dislikes != 2 {
		t.Errorf("expected 2 likes and 2 dislikes, but was %d/%d", p.Likes, p.Dislikes)
	}
}

func TestApplyReactionIdempotent(t *testing.T) {
	p := postWith(0, 0, map[string]Action{})
	if changed, _ := ApplyReaction(p, "bob", Like); !changed {
		t.Fatal("first reaction should change the post")
	}

	snapshot := p.Clone()
	changed, err := ApplyReaction(p, "bob", Like)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if changed {
		t.Error("second identical reaction should not change the post")
	}
	if !reflect.DeepEqual(p, snapshot) {
		t.Errorf("expected %+v, but was %+v", snapshot, p)
	}
}

func TestCheckCounters(t *testing.T) {
	if err := CheckCounters(postWith(1, 1, map[string]Action{"a": Like, "b": Dislike})); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	err := CheckCounters(postWith(2, 0, map[string]Action{"a": Like}))
	if !errors.Is(err, ErrInconsistentState) {
		t.Errorf("expected ErrInconsistentState, but was %v", err)
	}
}
