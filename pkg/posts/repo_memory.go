package posts

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryPostsRepo keeps posts in process. It follows the same version
// semantics as the mongo repo.
type MemoryPostsRepo struct {
	mu   *sync.Mutex
	seq  uint64
	data map[string]*memoryEntry
}

type memoryEntry struct {
	seq  uint64
	post *Post
}

func NewMemoryRepo() *MemoryPostsRepo {
	return &MemoryPostsRepo{data: make(map[string]*memoryEntry), mu: &sync.Mutex{}}
}

func (repo *MemoryPostsRepo) GetAll(ctx context.Context) ([]*Post, error) {
	repo.mu.Lock()
	entries := make([]*memoryEntry, 0, len(repo.data))
	for _, e := range repo.data {
		entries = append(entries, e)
	}
	repo.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i].post, entries[j].post
		if a.CreatedAt.Equal(b.CreatedAt) {
			return entries[i].seq > entries[j].seq
		}
		return a.CreatedAt.After(b.CreatedAt)
	})

	res := make([]*Post, 0, len(entries))
	for _, e := range entries {
		res = append(res, e.post.Clone())
	}

	return res, nil
}

func (repo *MemoryPostsRepo) GetByID(ctx context.Context, id string) (*Post, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	e, ok := repo.data[id]
	if !ok {
		return nil, ErrNotFound
	}

	return e.post.Clone(), nil
}

func (repo *MemoryPostsRepo) Add(ctx context.Context, p *Post) (string, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if p.ID == "" {
		p.ID = NewID()
	}
	if _, ok := repo.data[p.ID]; ok {
		return "", fmt.Errorf("post %s already exists", p.ID)
	}
	repo.seq++
	p.Version = 1
	repo.data[p.ID] = &memoryEntry{seq: repo.seq, post: p.Clone()}
	return p.ID, nil
}

func (repo *MemoryPostsRepo) Update(ctx context.Context, p *Post) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	e, ok := repo.data[p.ID]
	if !ok || e.post.Version != p.Version {
		return ErrConflict
	}

	p.Version++
	stored := p.Clone()
	stored.Author = e.post.Author
	stored.CreatedAt = e.post.CreatedAt
	e.post = stored
	return nil
}

func (repo *MemoryPostsRepo) Delete(ctx context.Context, id string) (bool, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if _, ok := repo.data[id]; !ok {
		return false, nil
	}

	delete(repo.data, id)
	return true, nil
}
