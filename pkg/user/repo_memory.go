package user

import (
	"context"
	"sync"
)

// MemoryUsersRepo keeps accounts in process memory. Used when no MySQL DSN
// is configured.
type MemoryUsersRepo struct {
	lastID int64
	data   map[string]*User
	mu     *sync.RWMutex
}

func NewMemoryRepo() *MemoryUsersRepo {
	return &MemoryUsersRepo{data: make(map[string]*User), mu: &sync.RWMutex{}}
}

func (repo *MemoryUsersRepo) GetByID(_ context.Context, id int64) (*User, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	for _, u := range repo.data {
		if u.ID == id {
			return copyUser(u), nil
		}
	}

	return nil, nil
}

func (repo *MemoryUsersRepo) GetByUsername(_ context.Context, username string) (*User, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	u, ok := repo.data[username]
	if !ok {
		return nil, nil
	}

	return copyUser(u), nil
}

func (repo *MemoryUsersRepo) Add(_ context.Context, user *User) (int64, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if _, ok := repo.data[user.Username]; ok {
		return 0, ErrUserExists
	}

	repo.lastID++
	stored := copyUser(user)
	stored.ID = repo.lastID
	repo.data[user.Username] = stored
	return repo.lastID, nil
}

func copyUser(u *User) *User {
	c := *u
	c.Password = append([]byte(nil), u.Password...)
	return &c
}
