package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/taskmaster/tracker/internal/domain/entities"
)

type fakeUserRepo struct {
	mu          sync.Mutex
	users       map[string]*entities.User
	seq         int
	getByIDsHit int
	failLookups bool
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*entities.User)}
}

func (r *fakeUserRepo) add(name, email string) *entities.User {
	u := &entities.User{Name: name, Email: email}
	if err := r.Create(context.Background(), u); err != nil {
		panic(err)
	}
	return u
}

func (r *fakeUserRepo) Create(ctx context.Context, user *entities.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == user.Email {
			return entities.ErrEmailTaken
		}
	}
	r.seq++
	user.ID = fmt.Sprintf("user-%d", r.seq)
	c := *user
	r.users[user.ID] = &c
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*entities.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, entities.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, entities.ErrUserNotFound
}

func (r *fakeUserRepo) GetByIDs(ctx context.Context, ids []string) (map[string]*entities.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.getByIDsHit++
	if r.failLookups {
		return nil, fmt.Errorf("store unavailable")
	}
	out := make(map[string]*entities.User)
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			c := *u
			out[id] = &c
		}
	}
	return out, nil
}

type fakeOwnerCache struct {
	mu      sync.Mutex
	entries map[string]entities.OwnerRef
	sets    int
}

func newFakeOwnerCache() *fakeOwnerCache {
	return &fakeOwnerCache{entries: make(map[string]entities.OwnerRef)}
}

func (c *fakeOwnerCache) Get(ctx context.Context, id string) (*entities.OwnerRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	owner, ok := c.entries[id]
	if !ok {
		return nil, nil
	}
	return &owner, nil
}

func (c *fakeOwnerCache) Set(ctx context.Context, owner entities.OwnerRef, expiration time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sets++
	c.entries[owner.ID] = owner
	return nil
}
