package user

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()

	first, err := repo.Add(ctx, &User{Username: "alice", Password: []byte("hash")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := repo.Add(ctx, &User{Username: "bob", Password: []byte("hash")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != 1 || second != 2 {
		t.Errorf("expected sequential ids, but were %d and %d", first, second)
	}

	if _, err := repo.Add(ctx, &User{Username: "alice"}); !errors.Is(err, ErrUserExists) {
		t.Errorf("expected %v, but was %v", ErrUserExists, err)
	}

	found, err := repo.GetByUsername(ctx, "bob")
	if err != nil || found == nil || found.ID != 2 {
		t.Fatalf("unexpected result: %v, %v", found, err)
	}

	byID, err := repo.GetByID(ctx, 1)
	if err != nil || byID == nil || byID.Username != "alice" {
		t.Fatalf("unexpected result: %v, %v", byID, err)
	}

	missing, err := repo.GetByUsername(ctx, "carol")
	if missing != nil || err != nil {
		t.Errorf("expected both nil, but was %v, %v", missing, err)
	}
	missing, err = repo.GetByID(ctx, 99)
	if missing != nil || err != nil {
		t.Errorf("expected both nil, but was %v, %v", missing, err)
	}
}
