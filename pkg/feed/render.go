package feed

import (
	"fmt"
	"io"
	"strings"

	"socialfeed/pkg/posts"
)

func shortID(id string) string {
	if len(id) > 8 {
		return id[len(id)-8:]
	}
	return id
}

// RenderPost writes one entry with its replies.
func RenderPost(w io.Writer, p *posts.Post, s Session) error {
	marks := map[posts.Action]string{posts.Like: " ", posts.Dislike: " "}
	if a, ok := Highlighted(p, s); ok {
		marks[a] = "*"
	}

	_, err := fmt.Fprintf(w, "[%s] %s: %s\n    %slike %d  %sdislike %d  replies %d\n",
		shortID(p.ID), p.Author, p.Content,
		marks[posts.Like], p.Likes, marks[posts.Dislike], p.Dislikes, len(p.Replies))
	if err != nil {
		return err
	}

	for _, r := range p.Replies {
		if _, err := fmt.Fprintf(w, "      > %s: %s\n", r.Author, r.Content); err != nil {
			return err
		}
	}
	return nil
}

// RenderFeed writes the whole list.
func RenderFeed(w io.Writer, list []*posts.Post, s Session) error {
	if len(list) == 0 {
		_, err := io.WriteString(w, "(no posts)\n")
		return err
	}

	for _, p := range list {
		if err := RenderPost(w, p, s); err != nil {
			return err
		}
	}
	return nil
}

// RenderChange writes a one-line header for the change followed by the
// affected entry.
func RenderChange(w io.Writer, c Change, s Session) error {
	if _, err := fmt.Fprintf(w, "-- %s %s\n", strings.ToUpper(c.Kind.String()), shortID(c.ID)); err != nil {
		return err
	}
	if c.Post == nil {
		return nil
	}
	return RenderPost(w, c.Post, s)
}
