package posts

import (
	"strings"
	"time"
)

func AppendReply(p *Post, author, content string, now time.Time) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return ErrEmptyContent
	}

	p.Replies = append(p.Replies, &Reply{Author: author, Content: content, CreatedAt: now})
	return nil
}
