package services

import (
	"context"
	"testing"
	"time"

	"github.com/taskmaster/tracker/internal/domain/entities"
	"github.com/taskmaster/tracker/internal/infrastructure/logger"
)

func TestEnrichResolvesEachOwnerOnce(t *testing.T) {
	users := newFakeUserRepo()
	alice := users.add("Alice", "alice@example.com")
	bob := users.add("Bob", "bob@example.com")
	e := NewOwnerEnricher(users, nil, 0, logger.NewNop())

	tasks := []*entities.Task{
		{ID: "1", CreatedBy: entities.OwnerRef{ID: alice.ID}},
		{ID: "2", CreatedBy: entities.OwnerRef{ID: bob.ID}},
		{ID: "3", CreatedBy: entities.OwnerRef{ID: alice.ID}},
	}
	e.Enrich(context.Background(), tasks...)

	if users.getByIDsHit != 1 {
		t.Errorf("store queried %d times, want 1", users.getByIDsHit)
	}
	if tasks[0].CreatedBy.Name != "Alice" || tasks[2].CreatedBy.Email != "alice@example.com" {
		t.Errorf("alice not embedded: %+v / %+v", tasks[0].CreatedBy, tasks[2].CreatedBy)
	}
	if tasks[1].CreatedBy.Name != "Bob" {
		t.Errorf("bob not embedded: %+v", tasks[1].CreatedBy)
	}
}

func TestEnrichUsesCache(t *testing.T) {
	users := newFakeUserRepo()
	alice := users.add("Alice", "alice@example.com")
	cache := newFakeOwnerCache()
	e := NewOwnerEnricher(users, cache, time.Minute, logger.NewNop())
	ctx := context.Background()

	first := &entities.Task{CreatedBy: entities.OwnerRef{ID: alice.ID}}
	e.Enrich(ctx, first)
	second := &entities.Task{CreatedBy: entities.OwnerRef{ID: alice.ID}}
	e.Enrich(ctx, second)

	if users.getByIDsHit != 1 {
		t.Errorf("store queried %d times, want 1", users.getByIDsHit)
	}
	if cache.sets != 1 {
		t.Errorf("cache written %d times, want 1", cache.sets)
	}
	if second.CreatedBy.Name != "Alice" {
		t.Errorf("cached owner not embedded: %+v", second.CreatedBy)
	}
}

func TestEnrichToleratesLookupFailure(t *testing.T) {
	users := newFakeUserRepo()
	users.failLookups = true
	e := NewOwnerEnricher(users, nil, 0, logger.NewNop())

	task := &entities.Task{CreatedBy: entities.OwnerRef{ID: "user-7"}}
	e.Enrich(context.Background(), task)

	if task.CreatedBy != (entities.OwnerRef{ID: "user-7"}) {
		t.Errorf("createdBy = %+v, want id only", task.CreatedBy)
	}
}

func TestEnrichUnknownOwnerKeepsID(t *testing.T) {
	users := newFakeUserRepo()
	e := NewOwnerEnricher(users, nil, 0, logger.NewNop())

	task := &entities.Task{CreatedBy: entities.OwnerRef{ID: "orphan"}}
	e.Enrich(context.Background(), task)

	if task.CreatedBy.ID != "orphan" || task.CreatedBy.Name != "" {
		t.Errorf("createdBy = %+v", task.CreatedBy)
	}
}
