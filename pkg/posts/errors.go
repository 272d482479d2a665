package posts

import "errors"

var (
	ErrEmptyContent  = errors.New("content must not be empty")
	ErrInvalidAction = errors.New("action must be like or dislike")
	ErrNotFound      = errors.New("post not found")
	ErrForbidden     = errors.New("only the author may change this post")
	ErrInvalidID     = errors.New("invalid post id")

	// ErrConflict is returned by Repo.Update when the stored version moved on.
	ErrConflict = errors.New("post was modified concurrently")

	// ErrInconsistentState means the counter bookkeeping is broken. It is a bug,
	// never a user error.
	ErrInconsistentState = errors.New("inconsistent reaction counters")
)
