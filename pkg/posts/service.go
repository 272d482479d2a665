package posts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"socialfeed/pkg/broadcast"

	"go.uber.org/zap"
)

const DefaultMaxCommitAttempts = 5

type Repo interface {
	GetAll(ctx context.Context) ([]*Post, error)
	GetByID(ctx context.Context, id string) (*Post, error)
	Add(ctx context.Context, p *Post) (string, error)
	Update(ctx context.Context, p *Post) error
	Delete(ctx context.Context, id string) (bool, error)
}

type Publisher interface {
	Publish(ctx context.Context, e *broadcast.Event) error
}

// Service owns every post mutation. Writes to one post are serialized inside
// the process and committed with a version check, so a write that lost a race
// with another instance is re-applied to the fresh document.
type Service struct {
	repo        Repo
	bus         Publisher
	logger      *zap.SugaredLogger
	maxAttempts int
	locks       *keyedMutex
	now         func() time.Time
}

func NewService(repo Repo, bus Publisher, logger *zap.SugaredLogger, maxAttempts int) *Service {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxCommitAttempts
	}

	return &Service{
		repo:        repo,
		bus:         bus,
		logger:      logger,
		maxAttempts: maxAttempts,
		locks:       newKeyedMutex(),
		now:         time.Now,
	}
}

func (s *Service) List(ctx context.Context) ([]*Post, error) {
	return s.repo.GetAll(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*Post, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, author, content string) (*Post, error) {
	p, err := NewPost(author, content, s.now())
	if err != nil {
		return nil, err
	}

	// the post is locked before it becomes visible, so no update on it can
	// publish ahead of the creation event
	p.ID = NewID()
	unlock := s.locks.Lock(p.ID)
	defer unlock()

	if _, err = s.repo.Add(ctx, p); err != nil {
		return nil, fmt.Errorf("add post: %w", err)
	}

	s.publish(ctx, broadcast.PostCreated, p)

	return p, nil
}

func (s *Service) Edit(ctx context.Context, id, username, content string) (*Post, error) {
	return s.mutate(ctx, id, func(p *Post) (bool, error) {
		if p.Author != username {
			return false, ErrForbidden
		}

		content := strings.TrimSpace(content)
		if content == "" {
			return false, ErrEmptyContent
		}

		p.Content = content
		return true, nil
	})
}

// React applies a like or dislike. Repeating the current reaction returns the
// stored post and publishes nothing.
func (s *Service) React(ctx context.Context, id, username string, action Action) (*Post, error) {
	if !action.Valid() {
		return nil, ErrInvalidAction
	}

	return s.mutate(ctx, id, func(p *Post) (bool, error) {
		if err := CheckCounters(p); err != nil {
			return false, err
		}
		return ApplyReaction(p, username, action)
	})
}

func (s *Service) Reply(ctx context.Context, id, username, content string) (*Post, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	return s.mutate(ctx, id, func(p *Post) (bool, error) {
		if err := AppendReply(p, username, content, s.now()); err != nil {
			return false, err
		}
		return true, nil
	})
}

func (s *Service) Delete(ctx context.Context, id, username string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if p.Author != username {
		return ErrForbidden
	}

	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete post %s: %w", id, err)
	}
	if !ok {
		return ErrNotFound
	}

	s.publish(ctx, broadcast.PostDeleted, &broadcast.Deleted{ID: id})
	return nil
}

// mutate loads the post, applies fn and commits. On a version conflict the
// post is loaded again and fn re-evaluated against the fresh copy.
func (s *Service) mutate(ctx context.Context, id string, fn func(p *Post) (bool, error)) (*Post, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		p, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		changed, err := fn(p)
		if err != nil {
			return nil, err
		}

		if !changed {
			return p, nil
		}

		p.UpdatedAt = s.now()
		err = s.repo.Update(ctx, p)
		if errors.Is(err, ErrConflict) {
			s.logger.Debugw("write conflict, retrying", "post", id, "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("update post %s: %w", id, err)
		}

		s.publish(ctx, broadcast.PostUpdated, p)
		return p, nil
	}

	return nil, fmt.Errorf("post %s after %d attempts: %w", id, s.maxAttempts, ErrConflict)
}

func (s *Service) publish(ctx context.Context, kind broadcast.Kind, payload interface{}) {
	e, err := broadcast.NewEvent(kind, payload)
	if err != nil {
		s.logger.Errorw("cannot encode event", "event", kind, "error", err)
		return
	}

	if err := s.bus.Publish(ctx, e); err != nil {
		s.logger.Errorw("publish failed", "event", kind, "error", err)
	}
}
